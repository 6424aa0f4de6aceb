package app

import (
	"context"
	"encoding/json"
	"strings"

	"specsmith/api/internal/mermaid"
	"specsmith/api/internal/policy"
	"specsmith/api/internal/store"
	"specsmith/api/internal/templates"
	"specsmith/api/internal/util"
)

var documentationStatuses = map[string]struct{}{
	"draft":    {},
	"review":   {},
	"approved": {},
}

var diagramTypes = map[string]struct{}{
	"flowchart": {},
	"sequence":  {},
	"class":     {},
	"gantt":     {},
	"er":        {},
	"state":     {},
	"pie":       {},
}

const defaultDiagramTitle = "Untitled Diagram"

type CreateDocumentationInput struct {
	TemplateID string          `json:"templateId"`
	Title      string          `json:"title"`
	Content    json.RawMessage `json:"content"`
}

// UpdateDocumentationInput is the declared-updatable field set. Ownership
// and identifiers are not represented here, so they can never be read from
// an update payload.
type UpdateDocumentationInput struct {
	Title   *string         `json:"title"`
	Content json.RawMessage `json:"content"`
	Status  *string         `json:"status"`
}

// CreateDocumentation validates the payload against the template catalog
// and persists a fresh draft owned by the session user.
func (s *Service) CreateDocumentation(ctx context.Context, sess Session, input CreateDocumentationInput) (map[string]any, error) {
	if !policy.OpenView.CanCreate(sess.actor()) {
		return nil, forbidden()
	}

	errs := fieldErrors{}
	if strings.TrimSpace(input.TemplateID) == "" {
		errs.add("templateId", "The templateId field is required")
	} else if _, ok := templates.ByID(input.TemplateID); !ok {
		errs.add("templateId", "The selected templateId is invalid")
	}
	validateTitle(errs, "title", input.Title, true)
	if !isJSONObject(input.Content) {
		errs.add("content", "The content field must be a JSON object")
	}
	if err := errs.err(); err != nil {
		return nil, err
	}

	item := store.Documentation{
		ID:         util.NewID("doc"),
		TemplateID: input.TemplateID,
		Title:      strings.TrimSpace(input.Title),
		Content:    input.Content,
		Status:     "draft",
		Version:    1,
		CreatedBy:  sess.UserID,
	}
	if err := s.store.InsertDocumentation(ctx, item); err != nil {
		return nil, classifyConstraint(err)
	}

	persisted, err := s.store.GetDocumentation(ctx, item.ID)
	if err != nil {
		return nil, err
	}
	return documentationJSON(persisted), nil
}

// GetDocumentation returns the detail view with template, diagrams and
// creator loaded eagerly. Viewing is open to any authenticated actor.
func (s *Service) GetDocumentation(ctx context.Context, sess Session, documentationID string) (map[string]any, error) {
	item, err := s.store.GetDocumentation(ctx, documentationID)
	if err != nil {
		return nil, err
	}
	if !policy.OpenView.CanView(sess.actor(), item.CreatedBy) {
		return nil, forbidden()
	}

	payload := documentationJSON(item)
	if tpl, ok := templates.ByID(item.TemplateID); ok {
		payload["template"] = tpl
	}

	diagrams, err := s.store.ListDiagramsByDocumentation(ctx, item.ID)
	if err != nil {
		return nil, err
	}
	diagramItems := make([]map[string]any, 0, len(diagrams))
	for _, diagram := range diagrams {
		diagramItems = append(diagramItems, diagramJSON(diagram))
	}
	payload["diagrams"] = diagramItems

	if creator, err := s.store.GetUserByID(ctx, item.CreatedBy); err == nil {
		payload["creator"] = map[string]any{
			"id":          creator.ID,
			"displayName": creator.DisplayName,
		}
	}
	return payload, nil
}

// ListDocumentations returns one page of the session user's own documents,
// newest first.
func (s *Service) ListDocumentations(ctx context.Context, sess Session, page int) (map[string]any, error) {
	items, total, err := s.store.ListDocumentationsByOwner(ctx, sess.UserID, listPageSize, pageOffset(page))
	if err != nil {
		return nil, err
	}
	serialized := make([]map[string]any, 0, len(items))
	for _, item := range items {
		payload := documentationJSON(item)
		if tpl, ok := templates.ByID(item.TemplateID); ok {
			payload["template"] = tpl
		}
		serialized = append(serialized, payload)
	}
	if page < 1 {
		page = 1
	}
	return map[string]any{
		"items":       serialized,
		"total":       total,
		"perPage":     listPageSize,
		"currentPage": page,
	}, nil
}

func (s *Service) UpdateDocumentation(ctx context.Context, sess Session, documentationID string, input UpdateDocumentationInput) (map[string]any, error) {
	item, err := s.store.GetDocumentation(ctx, documentationID)
	if err != nil {
		return nil, err
	}
	if !policy.OpenView.CanUpdate(sess.actor(), item.CreatedBy) {
		return nil, forbidden()
	}

	errs := fieldErrors{}
	if input.Title != nil {
		validateTitle(errs, "title", *input.Title, true)
	}
	if input.Content != nil && !isJSONObject(input.Content) {
		errs.add("content", "The content field must be a JSON object")
	}
	if input.Status != nil {
		if _, ok := documentationStatuses[*input.Status]; !ok {
			errs.add("status", "The selected status is invalid")
		}
	}
	if err := errs.err(); err != nil {
		return nil, err
	}

	if input.Title != nil {
		item.Title = strings.TrimSpace(*input.Title)
	}
	if input.Content != nil {
		item.Content = input.Content
	}
	if input.Status != nil {
		item.Status = *input.Status
	}
	if err := s.store.UpdateDocumentation(ctx, item); err != nil {
		return nil, err
	}

	persisted, err := s.store.GetDocumentation(ctx, item.ID)
	if err != nil {
		return nil, err
	}
	return documentationJSON(persisted), nil
}

func (s *Service) DeleteDocumentation(ctx context.Context, sess Session, documentationID string) error {
	item, err := s.store.GetDocumentation(ctx, documentationID)
	if err != nil {
		return err
	}
	if !policy.OpenView.CanDelete(sess.actor(), item.CreatedBy) {
		return forbidden()
	}
	return s.store.DeleteDocumentation(ctx, documentationID)
}

// ── Diagrams ──

type CreateDiagramInput struct {
	Type          string  `json:"type"`
	MermaidSyntax string  `json:"mermaidSyntax"`
	Title         *string `json:"title"`
	Description   *string `json:"description"`
}

// UpdateDiagramInput leaves Type optional; it is required on create only.
type UpdateDiagramInput struct {
	MermaidSyntax string  `json:"mermaidSyntax"`
	Title         *string `json:"title"`
	Description   *string `json:"description"`
	Type          *string `json:"type"`
}

func (s *Service) ListDiagrams(ctx context.Context, sess Session, documentationID string) ([]map[string]any, error) {
	parent, err := s.store.GetDocumentation(ctx, documentationID)
	if err != nil {
		return nil, err
	}
	if !policy.OpenView.CanView(sess.actor(), parent.CreatedBy) {
		return nil, forbidden()
	}

	diagrams, err := s.store.ListDiagramsByDocumentation(ctx, documentationID)
	if err != nil {
		return nil, err
	}
	items := make([]map[string]any, 0, len(diagrams))
	for _, diagram := range diagrams {
		items = append(items, diagramJSON(diagram))
	}
	return items, nil
}

// CreateDiagram authorizes against the owning documentation: a diagram can
// be attached by whoever may update the parent.
func (s *Service) CreateDiagram(ctx context.Context, sess Session, documentationID string, input CreateDiagramInput) (map[string]any, error) {
	parent, err := s.store.GetDocumentation(ctx, documentationID)
	if err != nil {
		return nil, err
	}
	if !policy.OpenView.CanUpdate(sess.actor(), parent.CreatedBy) {
		return nil, forbidden()
	}

	errs := fieldErrors{}
	if input.Type == "" {
		errs.add("type", "The type field is required")
	} else if _, ok := diagramTypes[input.Type]; !ok {
		errs.add("type", "The selected type is invalid")
	}
	validateDiagramSyntax(errs, input.MermaidSyntax)
	validateDiagramText(errs, input.Title, input.Description)
	if err := errs.err(); err != nil {
		return nil, err
	}

	item := store.Diagram{
		ID:              util.NewID("dia"),
		DocumentationID: parent.ID,
		Type:            input.Type,
		MermaidSyntax:   input.MermaidSyntax,
		Title:           defaultDiagramTitle,
		CreatedBy:       sess.UserID,
	}
	if input.Title != nil && strings.TrimSpace(*input.Title) != "" {
		item.Title = strings.TrimSpace(*input.Title)
	}
	if input.Description != nil {
		item.Description = *input.Description
	}
	if err := s.store.InsertDiagram(ctx, item); err != nil {
		return nil, classifyConstraint(err)
	}

	persisted, err := s.store.GetDiagram(ctx, item.ID)
	if err != nil {
		return nil, err
	}
	return diagramJSON(persisted), nil
}

func (s *Service) GetDiagram(ctx context.Context, sess Session, diagramID string) (map[string]any, error) {
	item, parent, err := s.diagramWithParent(ctx, diagramID)
	if err != nil {
		return nil, err
	}
	if !policy.OpenView.CanView(sess.actor(), parent.CreatedBy) {
		return nil, forbidden()
	}
	return diagramJSON(item), nil
}

func (s *Service) UpdateDiagram(ctx context.Context, sess Session, diagramID string, input UpdateDiagramInput) (map[string]any, error) {
	item, parent, err := s.diagramWithParent(ctx, diagramID)
	if err != nil {
		return nil, err
	}
	if !policy.OpenView.CanUpdate(sess.actor(), parent.CreatedBy) {
		return nil, forbidden()
	}

	errs := fieldErrors{}
	validateDiagramSyntax(errs, input.MermaidSyntax)
	validateDiagramText(errs, input.Title, input.Description)
	if input.Type != nil {
		if _, ok := diagramTypes[*input.Type]; !ok {
			errs.add("type", "The selected type is invalid")
		}
	}
	if err := errs.err(); err != nil {
		return nil, err
	}

	item.MermaidSyntax = input.MermaidSyntax
	if input.Title != nil && strings.TrimSpace(*input.Title) != "" {
		item.Title = strings.TrimSpace(*input.Title)
	}
	if input.Description != nil {
		item.Description = *input.Description
	}
	if input.Type != nil {
		item.Type = *input.Type
	}
	if err := s.store.UpdateDiagram(ctx, item); err != nil {
		return nil, err
	}

	persisted, err := s.store.GetDiagram(ctx, item.ID)
	if err != nil {
		return nil, err
	}
	return diagramJSON(persisted), nil
}

func (s *Service) DeleteDiagram(ctx context.Context, sess Session, diagramID string) error {
	_, parent, err := s.diagramWithParent(ctx, diagramID)
	if err != nil {
		return err
	}
	if !policy.OpenView.CanDelete(sess.actor(), parent.CreatedBy) {
		return forbidden()
	}
	return s.store.DeleteDiagram(ctx, diagramID)
}

// PreviewDiagram returns the syntax for client-side rendering; the server
// never rasterizes diagrams.
func (s *Service) PreviewDiagram(ctx context.Context, sess Session, diagramID string) (map[string]any, error) {
	item, parent, err := s.diagramWithParent(ctx, diagramID)
	if err != nil {
		return nil, err
	}
	if !policy.OpenView.CanView(sess.actor(), parent.CreatedBy) {
		return nil, forbidden()
	}
	return map[string]any{
		"type":   item.Type,
		"syntax": item.MermaidSyntax,
		"title":  item.Title,
	}, nil
}

// ValidateDiagramSyntax checks syntax without persisting anything.
func (s *Service) ValidateDiagramSyntax(_ context.Context, syntax string) (map[string]any, error) {
	if len(syntax) < 3 {
		return nil, fieldError("syntax", "The syntax field must be at least 3 characters")
	}
	return map[string]any{"isValid": mermaid.Valid(syntax)}, nil
}

// diagramWithParent resolves a diagram and the documentation that owns it;
// mutation rights on a diagram always derive from the parent.
func (s *Service) diagramWithParent(ctx context.Context, diagramID string) (store.Diagram, store.Documentation, error) {
	item, err := s.store.GetDiagram(ctx, diagramID)
	if err != nil {
		return store.Diagram{}, store.Documentation{}, err
	}
	parent, err := s.store.GetDocumentation(ctx, item.DocumentationID)
	if err != nil {
		return store.Diagram{}, store.Documentation{}, err
	}
	return item, parent, nil
}

// ── Shared validation and serialization ──

func validateTitle(errs fieldErrors, field, value string, required bool) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		if required {
			errs.add(field, "The "+field+" field is required")
		}
		return
	}
	if len(trimmed) > 255 {
		errs.add(field, "The "+field+" field must not exceed 255 characters")
	}
}

func validateDiagramSyntax(errs fieldErrors, syntax string) {
	if len(syntax) < 3 {
		errs.add("mermaidSyntax", "The mermaidSyntax field must be at least 3 characters")
		return
	}
	if !mermaid.Valid(syntax) {
		errs.add("mermaidSyntax", "Invalid Mermaid syntax provided")
	}
}

func validateDiagramText(errs fieldErrors, title, description *string) {
	if title != nil && len(strings.TrimSpace(*title)) > 255 {
		errs.add("title", "The title field must not exceed 255 characters")
	}
	if description != nil && len(*description) > 1000 {
		errs.add("description", "The description field must not exceed 1000 characters")
	}
}

// isJSONObject reports whether raw is a JSON object literal.
func isJSONObject(raw json.RawMessage) bool {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed[0] != '{' {
		return false
	}
	return json.Valid(raw)
}

// classifyConstraint turns store-level constraint violations that slipped
// past validation into validation-equivalent failures instead of crashes.
func classifyConstraint(err error) error {
	if store.IsUniqueViolation(err) {
		return fieldError("id", "A record with the same unique value already exists")
	}
	if store.IsForeignKeyViolation(err) {
		return fieldError("id", "A referenced record does not exist")
	}
	return err
}

func documentationJSON(item store.Documentation) map[string]any {
	var content any
	if len(item.Content) > 0 {
		_ = json.Unmarshal(item.Content, &content)
	}
	return map[string]any{
		"id":         item.ID,
		"templateId": item.TemplateID,
		"title":      item.Title,
		"content":    content,
		"status":     item.Status,
		"version":    item.Version,
		"createdBy":  item.CreatedBy,
		"createdAt":  item.CreatedAt,
		"updatedAt":  item.UpdatedAt,
	}
}

func diagramJSON(item store.Diagram) map[string]any {
	return map[string]any{
		"id":              item.ID,
		"documentationId": item.DocumentationID,
		"type":            item.Type,
		"mermaidSyntax":   item.MermaidSyntax,
		"title":           item.Title,
		"description":     item.Description,
		"createdBy":       item.CreatedBy,
		"createdAt":       item.CreatedAt,
		"updatedAt":       item.UpdatedAt,
	}
}
