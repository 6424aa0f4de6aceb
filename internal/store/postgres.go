package store

import (
	"context"
	"database/sql"
	"fmt"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) DB() *sql.DB {
	return s.db
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// ── Users ──

func (s *PostgresStore) CreateUser(ctx context.Context, user User) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, email, display_name, password_hash, is_admin)
		VALUES ($1, $2, $3, $4, $5)
	`, user.ID, user.Email, user.DisplayName, user.PasswordHash, user.IsAdmin)
	if err != nil {
		if IsUniqueViolation(err) {
			return err
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (User, error) {
	var user User
	err := s.db.QueryRowContext(ctx, `
		SELECT id, email, display_name, password_hash, is_admin, created_at, updated_at
		FROM users
		WHERE email = $1
	`, email).Scan(&user.ID, &user.Email, &user.DisplayName, &user.PasswordHash, &user.IsAdmin, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return User{}, err
	}
	return user, nil
}

func (s *PostgresStore) GetUserByID(ctx context.Context, userID string) (User, error) {
	var user User
	err := s.db.QueryRowContext(ctx, `
		SELECT id, email, display_name, password_hash, is_admin, created_at, updated_at
		FROM users
		WHERE id = $1
	`, userID).Scan(&user.ID, &user.Email, &user.DisplayName, &user.PasswordHash, &user.IsAdmin, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return User{}, err
	}
	return user, nil
}

// ── Documentations ──

const documentationColumns = `id, template_id, title, content, status, version, created_by, created_at, updated_at`

func scanDocumentation(row interface{ Scan(...any) error }) (Documentation, error) {
	var item Documentation
	err := row.Scan(
		&item.ID,
		&item.TemplateID,
		&item.Title,
		&item.Content,
		&item.Status,
		&item.Version,
		&item.CreatedBy,
		&item.CreatedAt,
		&item.UpdatedAt,
	)
	return item, err
}

func (s *PostgresStore) InsertDocumentation(ctx context.Context, item Documentation) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO documentations (id, template_id, title, content, status, version, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, item.ID, item.TemplateID, item.Title, []byte(item.Content), item.Status, item.Version, item.CreatedBy)
	if err != nil {
		if IsForeignKeyViolation(err) || IsUniqueViolation(err) {
			return err
		}
		return fmt.Errorf("insert documentation: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetDocumentation(ctx context.Context, documentationID string) (Documentation, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+documentationColumns+`
		FROM documentations
		WHERE id = $1
	`, documentationID)
	return scanDocumentation(row)
}

// ListDocumentationsByOwner returns one newest-first page of the owner's
// documentations plus the total row count for pagination metadata.
func (s *PostgresStore) ListDocumentationsByOwner(ctx context.Context, ownerID string, limit, offset int) ([]Documentation, int, error) {
	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documentations WHERE created_by = $1`, ownerID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count documentations: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+documentationColumns+`
		FROM documentations
		WHERE created_by = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, ownerID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list documentations: %w", err)
	}
	defer rows.Close()

	items := make([]Documentation, 0)
	for rows.Next() {
		item, err := scanDocumentation(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan documentation: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate documentations: %w", err)
	}
	return items, total, nil
}

// UpdateDocumentation persists the updatable fields. Ownership, template
// and version are never written here.
func (s *PostgresStore) UpdateDocumentation(ctx context.Context, item Documentation) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE documentations
		SET title=$2, content=$3, status=$4, updated_at=NOW()
		WHERE id=$1
	`, item.ID, item.Title, []byte(item.Content), item.Status)
	if err != nil {
		return fmt.Errorf("update documentation: %w", err)
	}
	return nil
}

// DeleteDocumentation removes the documentation and all of its diagrams in
// one transaction. A partial cascade must never be observable.
func (s *PostgresStore) DeleteDocumentation(ctx context.Context, documentationID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete documentation: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM diagrams WHERE documentation_id=$1`, documentationID); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("delete diagrams: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM documentations WHERE id=$1`, documentationID); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("delete documentation: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete documentation: %w", err)
	}
	return nil
}

// ── Diagrams ──

const diagramColumns = `id, documentation_id, type, mermaid_syntax, title, description, created_by, created_at, updated_at`

func scanDiagram(row interface{ Scan(...any) error }) (Diagram, error) {
	var item Diagram
	err := row.Scan(
		&item.ID,
		&item.DocumentationID,
		&item.Type,
		&item.MermaidSyntax,
		&item.Title,
		&item.Description,
		&item.CreatedBy,
		&item.CreatedAt,
		&item.UpdatedAt,
	)
	return item, err
}

func (s *PostgresStore) InsertDiagram(ctx context.Context, item Diagram) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO diagrams (id, documentation_id, type, mermaid_syntax, title, description, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, item.ID, item.DocumentationID, item.Type, item.MermaidSyntax, item.Title, item.Description, item.CreatedBy)
	if err != nil {
		if IsForeignKeyViolation(err) || IsUniqueViolation(err) {
			return err
		}
		return fmt.Errorf("insert diagram: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetDiagram(ctx context.Context, diagramID string) (Diagram, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+diagramColumns+`
		FROM diagrams
		WHERE id = $1
	`, diagramID)
	return scanDiagram(row)
}

func (s *PostgresStore) ListDiagramsByDocumentation(ctx context.Context, documentationID string) ([]Diagram, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+diagramColumns+`
		FROM diagrams
		WHERE documentation_id = $1
		ORDER BY created_at
	`, documentationID)
	if err != nil {
		return nil, fmt.Errorf("list diagrams: %w", err)
	}
	defer rows.Close()

	items := make([]Diagram, 0)
	for rows.Next() {
		item, err := scanDiagram(rows)
		if err != nil {
			return nil, fmt.Errorf("scan diagram: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate diagrams: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) UpdateDiagram(ctx context.Context, item Diagram) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE diagrams
		SET type=$2, mermaid_syntax=$3, title=$4, description=$5, updated_at=NOW()
		WHERE id=$1
	`, item.ID, item.Type, item.MermaidSyntax, item.Title, item.Description)
	if err != nil {
		return fmt.Errorf("update diagram: %w", err)
	}
	return nil
}

func (s *PostgresStore) DeleteDiagram(ctx context.Context, diagramID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM diagrams WHERE id=$1`, diagramID)
	if err != nil {
		return fmt.Errorf("delete diagram: %w", err)
	}
	return nil
}
