package store

import (
	"context"
	"fmt"
)

const sddDocumentColumns = `id, user_id, title, description, design_overview, architecture_overview, created_at, updated_at`

func scanSddDocument(row interface{ Scan(...any) error }) (SddDocument, error) {
	var item SddDocument
	err := row.Scan(
		&item.ID,
		&item.UserID,
		&item.Title,
		&item.Description,
		&item.DesignOverview,
		&item.ArchitectureOverview,
		&item.CreatedAt,
		&item.UpdatedAt,
	)
	return item, err
}

func (s *PostgresStore) InsertSddDocument(ctx context.Context, item SddDocument) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sdd_documents (id, user_id, title, description, design_overview, architecture_overview)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, item.ID, item.UserID, item.Title, item.Description, item.DesignOverview, item.ArchitectureOverview)
	if err != nil {
		if IsForeignKeyViolation(err) || IsUniqueViolation(err) {
			return err
		}
		return fmt.Errorf("insert sdd document: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetSddDocument(ctx context.Context, documentID string) (SddDocument, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+sddDocumentColumns+`
		FROM sdd_documents
		WHERE id = $1
	`, documentID)
	return scanSddDocument(row)
}

func (s *PostgresStore) ListSddDocumentsByOwner(ctx context.Context, ownerID string, limit, offset int) ([]SddDocument, int, error) {
	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sdd_documents WHERE user_id = $1`, ownerID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count sdd documents: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+sddDocumentColumns+`
		FROM sdd_documents
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, ownerID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list sdd documents: %w", err)
	}
	defer rows.Close()

	items := make([]SddDocument, 0)
	for rows.Next() {
		item, err := scanSddDocument(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan sdd document: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate sdd documents: %w", err)
	}
	return items, total, nil
}

func (s *PostgresStore) UpdateSddDocument(ctx context.Context, item SddDocument) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE sdd_documents
		SET title=$2, description=$3, design_overview=$4, architecture_overview=$5, updated_at=NOW()
		WHERE id=$1
	`, item.ID, item.Title, item.Description, item.DesignOverview, item.ArchitectureOverview)
	if err != nil {
		return fmt.Errorf("update sdd document: %w", err)
	}
	return nil
}

// DeleteSddDocument removes the document, its components and its diagrams
// in one transaction.
func (s *PostgresStore) DeleteSddDocument(ctx context.Context, documentID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete sdd document: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM sdd_components WHERE sdd_document_id=$1`, documentID); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("delete sdd components: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM sdd_diagrams WHERE sdd_document_id=$1`, documentID); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("delete sdd diagrams: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM sdd_documents WHERE id=$1`, documentID); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("delete sdd document: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete sdd document: %w", err)
	}
	return nil
}

// ── Components ──

const sddComponentColumns = `id, sdd_document_id, component_name, description, responsibility, interfaces, diagram_data, diagram_type, "order", created_at, updated_at`

func scanSddComponent(row interface{ Scan(...any) error }) (SddComponent, error) {
	var item SddComponent
	var diagramData []byte
	err := row.Scan(
		&item.ID,
		&item.SddDocumentID,
		&item.ComponentName,
		&item.Description,
		&item.Responsibility,
		&item.Interfaces,
		&diagramData,
		&item.DiagramType,
		&item.Order,
		&item.CreatedAt,
		&item.UpdatedAt,
	)
	if err != nil {
		return SddComponent{}, err
	}
	item.DiagramData = diagramData
	return item, nil
}

func (s *PostgresStore) InsertSddComponent(ctx context.Context, item SddComponent) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sdd_components (id, sdd_document_id, component_name, description, responsibility, interfaces, diagram_data, diagram_type, "order")
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, item.ID, item.SddDocumentID, item.ComponentName, item.Description, item.Responsibility, item.Interfaces, []byte(item.DiagramData), item.DiagramType, item.Order)
	if err != nil {
		if IsForeignKeyViolation(err) || IsUniqueViolation(err) {
			return err
		}
		return fmt.Errorf("insert sdd component: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetSddComponent(ctx context.Context, componentID string) (SddComponent, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+sddComponentColumns+`
		FROM sdd_components
		WHERE id = $1
	`, componentID)
	return scanSddComponent(row)
}

func (s *PostgresStore) ListSddComponents(ctx context.Context, documentID string) ([]SddComponent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+sddComponentColumns+`
		FROM sdd_components
		WHERE sdd_document_id = $1
		ORDER BY "order", created_at
	`, documentID)
	if err != nil {
		return nil, fmt.Errorf("list sdd components: %w", err)
	}
	defer rows.Close()

	items := make([]SddComponent, 0)
	for rows.Next() {
		item, err := scanSddComponent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan sdd component: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sdd components: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) UpdateSddComponent(ctx context.Context, item SddComponent) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE sdd_components
		SET component_name=$2, description=$3, responsibility=$4, interfaces=$5, diagram_data=$6, diagram_type=$7, "order"=$8, updated_at=NOW()
		WHERE id=$1
	`, item.ID, item.ComponentName, item.Description, item.Responsibility, item.Interfaces, []byte(item.DiagramData), item.DiagramType, item.Order)
	if err != nil {
		return fmt.Errorf("update sdd component: %w", err)
	}
	return nil
}

func (s *PostgresStore) DeleteSddComponent(ctx context.Context, componentID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM sdd_components WHERE id=$1`, componentID)
	if err != nil {
		return fmt.Errorf("delete sdd component: %w", err)
	}
	return nil
}

// ── SDD diagrams ──

const sddDiagramColumns = `id, sdd_document_id, diagram_name, diagram_type, diagram_content, text_description, created_at, updated_at`

func scanSddDiagram(row interface{ Scan(...any) error }) (SddDiagram, error) {
	var item SddDiagram
	err := row.Scan(
		&item.ID,
		&item.SddDocumentID,
		&item.DiagramName,
		&item.DiagramType,
		&item.DiagramContent,
		&item.TextDescription,
		&item.CreatedAt,
		&item.UpdatedAt,
	)
	return item, err
}

func (s *PostgresStore) InsertSddDiagram(ctx context.Context, item SddDiagram) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sdd_diagrams (id, sdd_document_id, diagram_name, diagram_type, diagram_content, text_description)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, item.ID, item.SddDocumentID, item.DiagramName, item.DiagramType, item.DiagramContent, item.TextDescription)
	if err != nil {
		if IsForeignKeyViolation(err) || IsUniqueViolation(err) {
			return err
		}
		return fmt.Errorf("insert sdd diagram: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetSddDiagram(ctx context.Context, diagramID string) (SddDiagram, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+sddDiagramColumns+`
		FROM sdd_diagrams
		WHERE id = $1
	`, diagramID)
	return scanSddDiagram(row)
}

func (s *PostgresStore) ListSddDiagrams(ctx context.Context, documentID string) ([]SddDiagram, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+sddDiagramColumns+`
		FROM sdd_diagrams
		WHERE sdd_document_id = $1
		ORDER BY created_at
	`, documentID)
	if err != nil {
		return nil, fmt.Errorf("list sdd diagrams: %w", err)
	}
	defer rows.Close()

	items := make([]SddDiagram, 0)
	for rows.Next() {
		item, err := scanSddDiagram(rows)
		if err != nil {
			return nil, fmt.Errorf("scan sdd diagram: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sdd diagrams: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) UpdateSddDiagram(ctx context.Context, item SddDiagram) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE sdd_diagrams
		SET diagram_name=$2, diagram_type=$3, diagram_content=$4, text_description=$5, updated_at=NOW()
		WHERE id=$1
	`, item.ID, item.DiagramName, item.DiagramType, item.DiagramContent, item.TextDescription)
	if err != nil {
		return fmt.Errorf("update sdd diagram: %w", err)
	}
	return nil
}

func (s *PostgresStore) DeleteSddDiagram(ctx context.Context, diagramID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM sdd_diagrams WHERE id=$1`, diagramID)
	if err != nil {
		return fmt.Errorf("delete sdd diagram: %w", err)
	}
	return nil
}
