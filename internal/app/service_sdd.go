package app

import (
	"context"
	"encoding/json"
	"strings"

	"specsmith/api/internal/policy"
	"specsmith/api/internal/store"
	"specsmith/api/internal/util"
)

var componentDiagramTypes = map[string]struct{}{
	"mermaid": {},
	"custom":  {},
}

type SddDocumentInput struct {
	Title                *string `json:"title"`
	Description          *string `json:"description"`
	DesignOverview       *string `json:"designOverview"`
	ArchitectureOverview *string `json:"architectureOverview"`
}

func (s *Service) CreateSddDocument(ctx context.Context, sess Session, input SddDocumentInput) (map[string]any, error) {
	if !policy.StrictOwner.CanCreate(sess.actor()) {
		return nil, forbidden()
	}

	errs := fieldErrors{}
	validateTitle(errs, "title", strValue(input.Title), true)
	if err := errs.err(); err != nil {
		return nil, err
	}

	item := store.SddDocument{
		ID:     util.NewID("sdd"),
		UserID: sess.UserID,
		Title:  strings.TrimSpace(strValue(input.Title)),
	}
	applySddDocumentInput(&item, input)
	if err := s.store.InsertSddDocument(ctx, item); err != nil {
		return nil, classifyConstraint(err)
	}

	persisted, err := s.store.GetSddDocument(ctx, item.ID)
	if err != nil {
		return nil, err
	}
	return sddDocumentJSON(persisted), nil
}

// GetSddDocument loads the document together with its architecture
// components and standalone diagrams, both in display order.
func (s *Service) GetSddDocument(ctx context.Context, sess Session, documentID string) (map[string]any, error) {
	item, err := s.store.GetSddDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if !policy.StrictOwner.CanView(sess.actor(), item.UserID) {
		return nil, forbidden()
	}

	payload := sddDocumentJSON(item)

	components, err := s.store.ListSddComponents(ctx, item.ID)
	if err != nil {
		return nil, err
	}
	componentItems := make([]map[string]any, 0, len(components))
	for _, component := range components {
		componentItems = append(componentItems, sddComponentJSON(component))
	}
	payload["components"] = componentItems

	diagrams, err := s.store.ListSddDiagrams(ctx, item.ID)
	if err != nil {
		return nil, err
	}
	diagramItems := make([]map[string]any, 0, len(diagrams))
	for _, diagram := range diagrams {
		diagramItems = append(diagramItems, sddDiagramJSON(diagram))
	}
	payload["diagrams"] = diagramItems
	return payload, nil
}

func (s *Service) ListSddDocuments(ctx context.Context, sess Session, page int) (map[string]any, error) {
	items, total, err := s.store.ListSddDocumentsByOwner(ctx, sess.UserID, listPageSize, pageOffset(page))
	if err != nil {
		return nil, err
	}
	serialized := make([]map[string]any, 0, len(items))
	for _, item := range items {
		serialized = append(serialized, sddDocumentJSON(item))
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

func (s *Service) UpdateSddDocument(ctx context.Context, sess Session, documentID string, input SddDocumentInput) (map[string]any, error) {
	item, err := s.store.GetSddDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if !policy.StrictOwner.CanUpdate(sess.actor(), item.UserID) {
		return nil, forbidden()
	}

	errs := fieldErrors{}
	if input.Title != nil {
		validateTitle(errs, "title", *input.Title, true)
	}
	if err := errs.err(); err != nil {
		return nil, err
	}

	if input.Title != nil {
		item.Title = strings.TrimSpace(*input.Title)
	}
	applySddDocumentInput(&item, input)
	if err := s.store.UpdateSddDocument(ctx, item); err != nil {
		return nil, err
	}

	persisted, err := s.store.GetSddDocument(ctx, item.ID)
	if err != nil {
		return nil, err
	}
	return sddDocumentJSON(persisted), nil
}

func (s *Service) DeleteSddDocument(ctx context.Context, sess Session, documentID string) error {
	item, err := s.store.GetSddDocument(ctx, documentID)
	if err != nil {
		return err
	}
	if !policy.StrictOwner.CanDelete(sess.actor(), item.UserID) {
		return forbidden()
	}
	return s.store.DeleteSddDocument(ctx, documentID)
}

func applySddDocumentInput(item *store.SddDocument, input SddDocumentInput) {
	if input.Description != nil {
		item.Description = *input.Description
	}
	if input.DesignOverview != nil {
		item.DesignOverview = *input.DesignOverview
	}
	if input.ArchitectureOverview != nil {
		item.ArchitectureOverview = *input.ArchitectureOverview
	}
}

// ── Architecture components ──

type SddComponentInput struct {
	ComponentName  *string         `json:"componentName"`
	Description    *string         `json:"description"`
	Responsibility *string         `json:"responsibility"`
	Interfaces     *string         `json:"interfaces"`
	DiagramData    json.RawMessage `json:"diagramData"`
	DiagramType    *string         `json:"diagramType"`
	Order          *int            `json:"order"`
}

func (s *Service) ListSddComponents(ctx context.Context, sess Session, documentID string) ([]map[string]any, error) {
	parent, err := s.store.GetSddDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if !policy.StrictOwner.CanView(sess.actor(), parent.UserID) {
		return nil, forbidden()
	}

	components, err := s.store.ListSddComponents(ctx, documentID)
	if err != nil {
		return nil, err
	}
	items := make([]map[string]any, 0, len(components))
	for _, component := range components {
		items = append(items, sddComponentJSON(component))
	}
	return items, nil
}

func (s *Service) CreateSddComponent(ctx context.Context, sess Session, documentID string, input SddComponentInput) (map[string]any, error) {
	parent, err := s.store.GetSddDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if !policy.StrictOwner.CanUpdate(sess.actor(), parent.UserID) {
		return nil, forbidden()
	}

	errs := fieldErrors{}
	validateTitle(errs, "componentName", strValue(input.ComponentName), true)
	diagramType := "mermaid"
	if input.DiagramType != nil {
		diagramType = *input.DiagramType
		if _, ok := componentDiagramTypes[diagramType]; !ok {
			errs.add("diagramType", "The selected diagramType is invalid")
		}
	}
	if input.DiagramData != nil && !isJSONObject(input.DiagramData) {
		errs.add("diagramData", "The diagramData field must be a JSON object")
	}
	if err := errs.err(); err != nil {
		return nil, err
	}

	item := store.SddComponent{
		ID:            util.NewID("cmp"),
		SddDocumentID: parent.ID,
		ComponentName: strings.TrimSpace(strValue(input.ComponentName)),
		DiagramType:   diagramType,
		DiagramData:   input.DiagramData,
	}
	if input.Description != nil {
		item.Description = *input.Description
	}
	if input.Responsibility != nil {
		item.Responsibility = *input.Responsibility
	}
	if input.Interfaces != nil {
		item.Interfaces = *input.Interfaces
	}
	if input.Order != nil {
		item.Order = *input.Order
	}
	if err := s.store.InsertSddComponent(ctx, item); err != nil {
		return nil, classifyConstraint(err)
	}

	persisted, err := s.store.GetSddComponent(ctx, item.ID)
	if err != nil {
		return nil, err
	}
	return sddComponentJSON(persisted), nil
}

func (s *Service) UpdateSddComponent(ctx context.Context, sess Session, componentID string, input SddComponentInput) (map[string]any, error) {
	item, parent, err := s.sddComponentWithParent(ctx, componentID)
	if err != nil {
		return nil, err
	}
	if !policy.StrictOwner.CanUpdate(sess.actor(), parent.UserID) {
		return nil, forbidden()
	}

	errs := fieldErrors{}
	if input.ComponentName != nil {
		validateTitle(errs, "componentName", *input.ComponentName, true)
	}
	if input.DiagramType != nil {
		if _, ok := componentDiagramTypes[*input.DiagramType]; !ok {
			errs.add("diagramType", "The selected diagramType is invalid")
		}
	}
	if input.DiagramData != nil && !isJSONObject(input.DiagramData) {
		errs.add("diagramData", "The diagramData field must be a JSON object")
	}
	if err := errs.err(); err != nil {
		return nil, err
	}

	if input.ComponentName != nil {
		item.ComponentName = strings.TrimSpace(*input.ComponentName)
	}
	if input.Description != nil {
		item.Description = *input.Description
	}
	if input.Responsibility != nil {
		item.Responsibility = *input.Responsibility
	}
	if input.Interfaces != nil {
		item.Interfaces = *input.Interfaces
	}
	if input.DiagramData != nil {
		item.DiagramData = input.DiagramData
	}
	if input.DiagramType != nil {
		item.DiagramType = *input.DiagramType
	}
	if input.Order != nil {
		item.Order = *input.Order
	}
	if err := s.store.UpdateSddComponent(ctx, item); err != nil {
		return nil, err
	}

	persisted, err := s.store.GetSddComponent(ctx, item.ID)
	if err != nil {
		return nil, err
	}
	return sddComponentJSON(persisted), nil
}

func (s *Service) DeleteSddComponent(ctx context.Context, sess Session, componentID string) error {
	_, parent, err := s.sddComponentWithParent(ctx, componentID)
	if err != nil {
		return err
	}
	if !policy.StrictOwner.CanDelete(sess.actor(), parent.UserID) {
		return forbidden()
	}
	return s.store.DeleteSddComponent(ctx, componentID)
}

func (s *Service) sddComponentWithParent(ctx context.Context, componentID string) (store.SddComponent, store.SddDocument, error) {
	item, err := s.store.GetSddComponent(ctx, componentID)
	if err != nil {
		return store.SddComponent{}, store.SddDocument{}, err
	}
	parent, err := s.store.GetSddDocument(ctx, item.SddDocumentID)
	if err != nil {
		return store.SddComponent{}, store.SddDocument{}, err
	}
	return item, parent, nil
}

// ── Design diagrams ──

type SddDiagramInput struct {
	DiagramName     *string `json:"diagramName"`
	DiagramType     *string `json:"diagramType"`
	DiagramContent  *string `json:"diagramContent"`
	TextDescription *string `json:"textDescription"`
}

func (s *Service) ListSddDiagrams(ctx context.Context, sess Session, documentID string) ([]map[string]any, error) {
	parent, err := s.store.GetSddDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if !policy.StrictOwner.CanView(sess.actor(), parent.UserID) {
		return nil, forbidden()
	}

	diagrams, err := s.store.ListSddDiagrams(ctx, documentID)
	if err != nil {
		return nil, err
	}
	items := make([]map[string]any, 0, len(diagrams))
	for _, diagram := range diagrams {
		items = append(items, sddDiagramJSON(diagram))
	}
	return items, nil
}

func (s *Service) CreateSddDiagram(ctx context.Context, sess Session, documentID string, input SddDiagramInput) (map[string]any, error) {
	parent, err := s.store.GetSddDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if !policy.StrictOwner.CanUpdate(sess.actor(), parent.UserID) {
		return nil, forbidden()
	}

	errs := fieldErrors{}
	validateTitle(errs, "diagramName", strValue(input.DiagramName), true)
	if strings.TrimSpace(strValue(input.DiagramType)) == "" {
		errs.add("diagramType", "The diagramType field is required")
	}
	if strValue(input.DiagramContent) == "" {
		errs.add("diagramContent", "The diagramContent field is required")
	}
	if err := errs.err(); err != nil {
		return nil, err
	}

	item := store.SddDiagram{
		ID:             util.NewID("sdg"),
		SddDocumentID:  parent.ID,
		DiagramName:    strings.TrimSpace(strValue(input.DiagramName)),
		DiagramType:    strings.TrimSpace(strValue(input.DiagramType)),
		DiagramContent: strValue(input.DiagramContent),
	}
	if input.TextDescription != nil {
		item.TextDescription = *input.TextDescription
	}
	if err := s.store.InsertSddDiagram(ctx, item); err != nil {
		return nil, classifyConstraint(err)
	}

	persisted, err := s.store.GetSddDiagram(ctx, item.ID)
	if err != nil {
		return nil, err
	}
	return sddDiagramJSON(persisted), nil
}

func (s *Service) UpdateSddDiagram(ctx context.Context, sess Session, diagramID string, input SddDiagramInput) (map[string]any, error) {
	item, parent, err := s.sddDiagramWithParent(ctx, diagramID)
	if err != nil {
		return nil, err
	}
	if !policy.StrictOwner.CanUpdate(sess.actor(), parent.UserID) {
		return nil, forbidden()
	}

	errs := fieldErrors{}
	if input.DiagramName != nil {
		validateTitle(errs, "diagramName", *input.DiagramName, true)
	}
	if input.DiagramType != nil && strings.TrimSpace(*input.DiagramType) == "" {
		errs.add("diagramType", "The diagramType field is required")
	}
	if input.DiagramContent != nil && *input.DiagramContent == "" {
		errs.add("diagramContent", "The diagramContent field is required")
	}
	if err := errs.err(); err != nil {
		return nil, err
	}

	if input.DiagramName != nil {
		item.DiagramName = strings.TrimSpace(*input.DiagramName)
	}
	if input.DiagramType != nil {
		item.DiagramType = strings.TrimSpace(*input.DiagramType)
	}
	if input.DiagramContent != nil {
		item.DiagramContent = *input.DiagramContent
	}
	if input.TextDescription != nil {
		item.TextDescription = *input.TextDescription
	}
	if err := s.store.UpdateSddDiagram(ctx, item); err != nil {
		return nil, err
	}

	persisted, err := s.store.GetSddDiagram(ctx, item.ID)
	if err != nil {
		return nil, err
	}
	return sddDiagramJSON(persisted), nil
}

func (s *Service) DeleteSddDiagram(ctx context.Context, sess Session, diagramID string) error {
	_, parent, err := s.sddDiagramWithParent(ctx, diagramID)
	if err != nil {
		return err
	}
	if !policy.StrictOwner.CanDelete(sess.actor(), parent.UserID) {
		return forbidden()
	}
	return s.store.DeleteSddDiagram(ctx, diagramID)
}

func (s *Service) sddDiagramWithParent(ctx context.Context, diagramID string) (store.SddDiagram, store.SddDocument, error) {
	item, err := s.store.GetSddDiagram(ctx, diagramID)
	if err != nil {
		return store.SddDiagram{}, store.SddDocument{}, err
	}
	parent, err := s.store.GetSddDocument(ctx, item.SddDocumentID)
	if err != nil {
		return store.SddDiagram{}, store.SddDocument{}, err
	}
	return item, parent, nil
}

func sddDocumentJSON(item store.SddDocument) map[string]any {
	return map[string]any{
		"id":                   item.ID,
		"userId":               item.UserID,
		"title":                item.Title,
		"description":          item.Description,
		"designOverview":       item.DesignOverview,
		"architectureOverview": item.ArchitectureOverview,
		"createdAt":            item.CreatedAt,
		"updatedAt":            item.UpdatedAt,
	}
}

func sddComponentJSON(item store.SddComponent) map[string]any {
	var diagramData any
	if len(item.DiagramData) > 0 {
		_ = json.Unmarshal(item.DiagramData, &diagramData)
	}
	return map[string]any{
		"id":             item.ID,
		"sddDocumentId":  item.SddDocumentID,
		"componentName":  item.ComponentName,
		"description":    item.Description,
		"responsibility": item.Responsibility,
		"interfaces":     item.Interfaces,
		"diagramData":    diagramData,
		"diagramType":    item.DiagramType,
		"order":          item.Order,
		"createdAt":      item.CreatedAt,
		"updatedAt":      item.UpdatedAt,
	}
}

func sddDiagramJSON(item store.SddDiagram) map[string]any {
	return map[string]any{
		"id":              item.ID,
		"sddDocumentId":   item.SddDocumentID,
		"diagramName":     item.DiagramName,
		"diagramType":     item.DiagramType,
		"diagramContent":  item.DiagramContent,
		"textDescription": item.TextDescription,
		"createdAt":       item.CreatedAt,
		"updatedAt":       item.UpdatedAt,
	}
}
