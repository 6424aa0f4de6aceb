package store

import (
	"context"
	"encoding/json"
	"fmt"
)

const srsDocumentColumns = `id, user_id, title, description, project_overview, scope, constraints, assumptions, created_at, updated_at`

func scanSrsDocument(row interface{ Scan(...any) error }) (SrsDocument, error) {
	var item SrsDocument
	err := row.Scan(
		&item.ID,
		&item.UserID,
		&item.Title,
		&item.Description,
		&item.ProjectOverview,
		&item.Scope,
		&item.Constraints,
		&item.Assumptions,
		&item.CreatedAt,
		&item.UpdatedAt,
	)
	return item, err
}

func (s *PostgresStore) InsertSrsDocument(ctx context.Context, item SrsDocument) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO srs_documents (id, user_id, title, description, project_overview, scope, constraints, assumptions)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, item.ID, item.UserID, item.Title, item.Description, item.ProjectOverview, item.Scope, item.Constraints, item.Assumptions)
	if err != nil {
		if IsForeignKeyViolation(err) || IsUniqueViolation(err) {
			return err
		}
		return fmt.Errorf("insert srs document: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetSrsDocument(ctx context.Context, documentID string) (SrsDocument, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+srsDocumentColumns+`
		FROM srs_documents
		WHERE id = $1
	`, documentID)
	return scanSrsDocument(row)
}

func (s *PostgresStore) ListSrsDocumentsByOwner(ctx context.Context, ownerID string, limit, offset int) ([]SrsDocument, int, error) {
	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM srs_documents WHERE user_id = $1`, ownerID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count srs documents: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+srsDocumentColumns+`
		FROM srs_documents
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, ownerID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list srs documents: %w", err)
	}
	defer rows.Close()

	items := make([]SrsDocument, 0)
	for rows.Next() {
		item, err := scanSrsDocument(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan srs document: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate srs documents: %w", err)
	}
	return items, total, nil
}

func (s *PostgresStore) UpdateSrsDocument(ctx context.Context, item SrsDocument) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE srs_documents
		SET title=$2, description=$3, project_overview=$4, scope=$5, constraints=$6, assumptions=$7, updated_at=NOW()
		WHERE id=$1
	`, item.ID, item.Title, item.Description, item.ProjectOverview, item.Scope, item.Constraints, item.Assumptions)
	if err != nil {
		return fmt.Errorf("update srs document: %w", err)
	}
	return nil
}

// DeleteSrsDocument removes the document and its requirements atomically.
func (s *PostgresStore) DeleteSrsDocument(ctx context.Context, documentID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete srs document: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM srs_functional_requirements WHERE srs_document_id=$1`, documentID); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("delete srs requirements: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM srs_documents WHERE id=$1`, documentID); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("delete srs document: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete srs document: %w", err)
	}
	return nil
}

// ── Functional requirements ──

const srsRequirementColumns = `id, srs_document_id, requirement_id, title, description, priority, ux_considerations, "order", created_at, updated_at`

func scanSrsRequirement(row interface{ Scan(...any) error }) (SrsRequirement, error) {
	var item SrsRequirement
	var ux []byte
	err := row.Scan(
		&item.ID,
		&item.SrsDocumentID,
		&item.RequirementID,
		&item.Title,
		&item.Description,
		&item.Priority,
		&ux,
		&item.Order,
		&item.CreatedAt,
		&item.UpdatedAt,
	)
	if err != nil {
		return SrsRequirement{}, err
	}
	if len(ux) > 0 {
		if err := json.Unmarshal(ux, &item.UXConsiderations); err != nil {
			return SrsRequirement{}, fmt.Errorf("decode ux considerations: %w", err)
		}
	}
	return item, nil
}

func encodeUXConsiderations(items []string) ([]byte, error) {
	if items == nil {
		items = []string{}
	}
	encoded, err := json.Marshal(items)
	if err != nil {
		return nil, fmt.Errorf("encode ux considerations: %w", err)
	}
	return encoded, nil
}

func (s *PostgresStore) InsertSrsRequirement(ctx context.Context, item SrsRequirement) error {
	ux, err := encodeUXConsiderations(item.UXConsiderations)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO srs_functional_requirements (id, srs_document_id, requirement_id, title, description, priority, ux_considerations, "order")
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, item.ID, item.SrsDocumentID, item.RequirementID, item.Title, item.Description, item.Priority, ux, item.Order)
	if err != nil {
		if IsUniqueViolation(err) || IsForeignKeyViolation(err) {
			return err
		}
		return fmt.Errorf("insert srs requirement: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetSrsRequirement(ctx context.Context, requirementID string) (SrsRequirement, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+srsRequirementColumns+`
		FROM srs_functional_requirements
		WHERE id = $1
	`, requirementID)
	return scanSrsRequirement(row)
}

func (s *PostgresStore) ListSrsRequirements(ctx context.Context, documentID string) ([]SrsRequirement, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+srsRequirementColumns+`
		FROM srs_functional_requirements
		WHERE srs_document_id = $1
		ORDER BY "order", created_at
	`, documentID)
	if err != nil {
		return nil, fmt.Errorf("list srs requirements: %w", err)
	}
	defer rows.Close()

	items := make([]SrsRequirement, 0)
	for rows.Next() {
		item, err := scanSrsRequirement(rows)
		if err != nil {
			return nil, fmt.Errorf("scan srs requirement: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate srs requirements: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) UpdateSrsRequirement(ctx context.Context, item SrsRequirement) error {
	ux, err := encodeUXConsiderations(item.UXConsiderations)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		UPDATE srs_functional_requirements
		SET requirement_id=$2, title=$3, description=$4, priority=$5, ux_considerations=$6, "order"=$7, updated_at=NOW()
		WHERE id=$1
	`, item.ID, item.RequirementID, item.Title, item.Description, item.Priority, ux, item.Order)
	if err != nil {
		if IsUniqueViolation(err) {
			return err
		}
		return fmt.Errorf("update srs requirement: %w", err)
	}
	return nil
}

func (s *PostgresStore) DeleteSrsRequirement(ctx context.Context, requirementID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM srs_functional_requirements WHERE id=$1`, requirementID)
	if err != nil {
		return fmt.Errorf("delete srs requirement: %w", err)
	}
	return nil
}
