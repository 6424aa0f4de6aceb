package app

import (
	"context"
	"strings"

	"specsmith/api/internal/policy"
	"specsmith/api/internal/store"
	"specsmith/api/internal/util"
)

var requirementPriorities = map[string]struct{}{
	"low":      {},
	"medium":   {},
	"high":     {},
	"critical": {},
}

type SrsDocumentInput struct {
	Title           *string `json:"title"`
	Description     *string `json:"description"`
	ProjectOverview *string `json:"projectOverview"`
	Scope           *string `json:"scope"`
	Constraints     *string `json:"constraints"`
	Assumptions     *string `json:"assumptions"`
}

func (s *Service) CreateSrsDocument(ctx context.Context, sess Session, input SrsDocumentInput) (map[string]any, error) {
	if !policy.StrictOwner.CanCreate(sess.actor()) {
		return nil, forbidden()
	}

	errs := fieldErrors{}
	title := ""
	if input.Title != nil {
		title = *input.Title
	}
	validateTitle(errs, "title", title, true)
	if err := errs.err(); err != nil {
		return nil, err
	}

	item := store.SrsDocument{
		ID:     util.NewID("srs"),
		UserID: sess.UserID,
		Title:  strings.TrimSpace(title),
	}
	applySrsDocumentInput(&item, input)
	if err := s.store.InsertSrsDocument(ctx, item); err != nil {
		return nil, classifyConstraint(err)
	}

	persisted, err := s.store.GetSrsDocument(ctx, item.ID)
	if err != nil {
		return nil, err
	}
	return srsDocumentJSON(persisted), nil
}

// GetSrsDocument enforces the strict-owner policy: not even admins may
// view someone else's SRS. The detail view includes the ordered
// functional requirements.
func (s *Service) GetSrsDocument(ctx context.Context, sess Session, documentID string) (map[string]any, error) {
	item, err := s.store.GetSrsDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if !policy.StrictOwner.CanView(sess.actor(), item.UserID) {
		return nil, forbidden()
	}

	payload := srsDocumentJSON(item)
	reqs, err := s.store.ListSrsRequirements(ctx, item.ID)
	if err != nil {
		return nil, err
	}
	serialized := make([]map[string]any, 0, len(reqs))
	for _, req := range reqs {
		serialized = append(serialized, srsRequirementJSON(req))
	}
	payload["functionalRequirements"] = serialized
	return payload, nil
}

func (s *Service) ListSrsDocuments(ctx context.Context, sess Session, page int) (map[string]any, error) {
	items, total, err := s.store.ListSrsDocumentsByOwner(ctx, sess.UserID, listPageSize, pageOffset(page))
	if err != nil {
		return nil, err
	}
	serialized := make([]map[string]any, 0, len(items))
	for _, item := range items {
		serialized = append(serialized, srsDocumentJSON(item))
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

func (s *Service) UpdateSrsDocument(ctx context.Context, sess Session, documentID string, input SrsDocumentInput) (map[string]any, error) {
	item, err := s.store.GetSrsDocument(ctx, documentID)
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
	applySrsDocumentInput(&item, input)
	if err := s.store.UpdateSrsDocument(ctx, item); err != nil {
		return nil, err
	}

	persisted, err := s.store.GetSrsDocument(ctx, item.ID)
	if err != nil {
		return nil, err
	}
	return srsDocumentJSON(persisted), nil
}

func (s *Service) DeleteSrsDocument(ctx context.Context, sess Session, documentID string) error {
	item, err := s.store.GetSrsDocument(ctx, documentID)
	if err != nil {
		return err
	}
	if !policy.StrictOwner.CanDelete(sess.actor(), item.UserID) {
		return forbidden()
	}
	return s.store.DeleteSrsDocument(ctx, documentID)
}

// applySrsDocumentInput copies the optional prose fields; Title is handled
// by the callers because it is validated.
func applySrsDocumentInput(item *store.SrsDocument, input SrsDocumentInput) {
	if input.Description != nil {
		item.Description = *input.Description
	}
	if input.ProjectOverview != nil {
		item.ProjectOverview = *input.ProjectOverview
	}
	if input.Scope != nil {
		item.Scope = *input.Scope
	}
	if input.Constraints != nil {
		item.Constraints = *input.Constraints
	}
	if input.Assumptions != nil {
		item.Assumptions = *input.Assumptions
	}
}

// ── Functional requirements ──

type SrsRequirementInput struct {
	RequirementID    *string  `json:"requirementId"`
	Title            *string  `json:"title"`
	Description      *string  `json:"description"`
	Priority         *string  `json:"priority"`
	UXConsiderations []string `json:"uxConsiderations"`
	Order            *int     `json:"order"`
}

func (s *Service) ListSrsRequirements(ctx context.Context, sess Session, documentID string) ([]map[string]any, error) {
	parent, err := s.store.GetSrsDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if !policy.StrictOwner.CanView(sess.actor(), parent.UserID) {
		return nil, forbidden()
	}

	reqs, err := s.store.ListSrsRequirements(ctx, documentID)
	if err != nil {
		return nil, err
	}
	items := make([]map[string]any, 0, len(reqs))
	for _, req := range reqs {
		items = append(items, srsRequirementJSON(req))
	}
	return items, nil
}

func (s *Service) CreateSrsRequirement(ctx context.Context, sess Session, documentID string, input SrsRequirementInput) (map[string]any, error) {
	parent, err := s.store.GetSrsDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if !policy.StrictOwner.CanUpdate(sess.actor(), parent.UserID) {
		return nil, forbidden()
	}

	errs := fieldErrors{}
	requirementID := strValue(input.RequirementID)
	if strings.TrimSpace(requirementID) == "" {
		errs.add("requirementId", "The requirementId field is required")
	}
	validateTitle(errs, "title", strValue(input.Title), true)
	if strValue(input.Description) == "" {
		errs.add("description", "The description field is required")
	}
	priority := "medium"
	if input.Priority != nil {
		priority = *input.Priority
		if _, ok := requirementPriorities[priority]; !ok {
			errs.add("priority", "The selected priority is invalid")
		}
	}
	if err := errs.err(); err != nil {
		return nil, err
	}

	item := store.SrsRequirement{
		ID:               util.NewID("req"),
		SrsDocumentID:    parent.ID,
		RequirementID:    strings.TrimSpace(requirementID),
		Title:            strings.TrimSpace(strValue(input.Title)),
		Description:      strValue(input.Description),
		Priority:         priority,
		UXConsiderations: input.UXConsiderations,
	}
	if input.Order != nil {
		item.Order = *input.Order
	}
	if err := s.store.InsertSrsRequirement(ctx, item); err != nil {
		// requirement_id is unique across the entire store, not just
		// within this document.
		if store.IsUniqueViolation(err) {
			return nil, fieldError("requirementId", "The requirementId has already been taken")
		}
		return nil, classifyConstraint(err)
	}

	persisted, err := s.store.GetSrsRequirement(ctx, item.ID)
	if err != nil {
		return nil, err
	}
	return srsRequirementJSON(persisted), nil
}

func (s *Service) UpdateSrsRequirement(ctx context.Context, sess Session, requirementID string, input SrsRequirementInput) (map[string]any, error) {
	item, parent, err := s.srsRequirementWithParent(ctx, requirementID)
	if err != nil {
		return nil, err
	}
	if !policy.StrictOwner.CanUpdate(sess.actor(), parent.UserID) {
		return nil, forbidden()
	}

	errs := fieldErrors{}
	if input.RequirementID != nil && strings.TrimSpace(*input.RequirementID) == "" {
		errs.add("requirementId", "The requirementId field is required")
	}
	if input.Title != nil {
		validateTitle(errs, "title", *input.Title, true)
	}
	if input.Description != nil && *input.Description == "" {
		errs.add("description", "The description field is required")
	}
	if input.Priority != nil {
		if _, ok := requirementPriorities[*input.Priority]; !ok {
			errs.add("priority", "The selected priority is invalid")
		}
	}
	if err := errs.err(); err != nil {
		return nil, err
	}

	if input.RequirementID != nil {
		item.RequirementID = strings.TrimSpace(*input.RequirementID)
	}
	if input.Title != nil {
		item.Title = strings.TrimSpace(*input.Title)
	}
	if input.Description != nil {
		item.Description = *input.Description
	}
	if input.Priority != nil {
		item.Priority = *input.Priority
	}
	if input.UXConsiderations != nil {
		item.UXConsiderations = input.UXConsiderations
	}
	if input.Order != nil {
		item.Order = *input.Order
	}
	if err := s.store.UpdateSrsRequirement(ctx, item); err != nil {
		if store.IsUniqueViolation(err) {
			return nil, fieldError("requirementId", "The requirementId has already been taken")
		}
		return nil, err
	}

	persisted, err := s.store.GetSrsRequirement(ctx, item.ID)
	if err != nil {
		return nil, err
	}
	return srsRequirementJSON(persisted), nil
}

func (s *Service) DeleteSrsRequirement(ctx context.Context, sess Session, requirementID string) error {
	_, parent, err := s.srsRequirementWithParent(ctx, requirementID)
	if err != nil {
		return err
	}
	if !policy.StrictOwner.CanDelete(sess.actor(), parent.UserID) {
		return forbidden()
	}
	return s.store.DeleteSrsRequirement(ctx, requirementID)
}

func (s *Service) srsRequirementWithParent(ctx context.Context, requirementID string) (store.SrsRequirement, store.SrsDocument, error) {
	item, err := s.store.GetSrsRequirement(ctx, requirementID)
	if err != nil {
		return store.SrsRequirement{}, store.SrsDocument{}, err
	}
	parent, err := s.store.GetSrsDocument(ctx, item.SrsDocumentID)
	if err != nil {
		return store.SrsRequirement{}, store.SrsDocument{}, err
	}
	return item, parent, nil
}

func strValue(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}

func srsDocumentJSON(item store.SrsDocument) map[string]any {
	return map[string]any{
		"id":              item.ID,
		"userId":          item.UserID,
		"title":           item.Title,
		"description":     item.Description,
		"projectOverview": item.ProjectOverview,
		"scope":           item.Scope,
		"constraints":     item.Constraints,
		"assumptions":     item.Assumptions,
		"createdAt":       item.CreatedAt,
		"updatedAt":       item.UpdatedAt,
	}
}

func srsRequirementJSON(item store.SrsRequirement) map[string]any {
	ux := item.UXConsiderations
	if ux == nil {
		ux = []string{}
	}
	return map[string]any{
		"id":               item.ID,
		"srsDocumentId":    item.SrsDocumentID,
		"requirementId":    item.RequirementID,
		"title":            item.Title,
		"description":      item.Description,
		"priority":         item.Priority,
		"uxConsiderations": ux,
		"order":            item.Order,
		"createdAt":        item.CreatedAt,
		"updatedAt":        item.UpdatedAt,
	}
}
