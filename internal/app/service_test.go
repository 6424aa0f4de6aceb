package app

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"specsmith/api/internal/authpw"
	"specsmith/api/internal/config"
	"specsmith/api/internal/session"
	"specsmith/api/internal/store"
)

type fakeStore struct {
	createUserFn     func(context.Context, store.User) error
	getUserByEmailFn func(context.Context, string) (store.User, error)
	getUserByIDFn    func(context.Context, string) (store.User, error)

	insertDocumentationFn       func(context.Context, store.Documentation) error
	getDocumentationFn          func(context.Context, string) (store.Documentation, error)
	listDocumentationsByOwnerFn func(context.Context, string, int, int) ([]store.Documentation, int, error)
	updateDocumentationFn       func(context.Context, store.Documentation) error
	deleteDocumentationFn       func(context.Context, string) error

	insertDiagramFn func(context.Context, store.Diagram) error
	getDiagramFn    func(context.Context, string) (store.Diagram, error)

	insertSrsDocumentFn    func(context.Context, store.SrsDocument) error
	getSrsDocumentFn       func(context.Context, string) (store.SrsDocument, error)
	insertSrsRequirementFn func(context.Context, store.SrsRequirement) error
	getSrsRequirementFn    func(context.Context, string) (store.SrsRequirement, error)

	getSddDocumentFn func(context.Context, string) (store.SddDocument, error)
}

func (f *fakeStore) CreateUser(ctx context.Context, user store.User) error {
	if f.createUserFn != nil {
		return f.createUserFn(ctx, user)
	}
	return nil
}

func (f *fakeStore) GetUserByEmail(ctx context.Context, email string) (store.User, error) {
	if f.getUserByEmailFn != nil {
		return f.getUserByEmailFn(ctx, email)
	}
	return store.User{}, sql.ErrNoRows
}

func (f *fakeStore) GetUserByID(ctx context.Context, userID string) (store.User, error) {
	if f.getUserByIDFn != nil {
		return f.getUserByIDFn(ctx, userID)
	}
	return store.User{ID: userID, DisplayName: "User"}, nil
}

func (f *fakeStore) InsertDocumentation(ctx context.Context, item store.Documentation) error {
	if f.insertDocumentationFn != nil {
		return f.insertDocumentationFn(ctx, item)
	}
	return nil
}

func (f *fakeStore) GetDocumentation(ctx context.Context, documentationID string) (store.Documentation, error) {
	if f.getDocumentationFn != nil {
		return f.getDocumentationFn(ctx, documentationID)
	}
	return store.Documentation{}, sql.ErrNoRows
}

func (f *fakeStore) ListDocumentationsByOwner(ctx context.Context, ownerID string, limit, offset int) ([]store.Documentation, int, error) {
	if f.listDocumentationsByOwnerFn != nil {
		return f.listDocumentationsByOwnerFn(ctx, ownerID, limit, offset)
	}
	return nil, 0, nil
}

func (f *fakeStore) UpdateDocumentation(ctx context.Context, item store.Documentation) error {
	if f.updateDocumentationFn != nil {
		return f.updateDocumentationFn(ctx, item)
	}
	return nil
}

func (f *fakeStore) DeleteDocumentation(ctx context.Context, documentationID string) error {
	if f.deleteDocumentationFn != nil {
		return f.deleteDocumentationFn(ctx, documentationID)
	}
	return nil
}

func (f *fakeStore) InsertDiagram(ctx context.Context, item store.Diagram) error {
	if f.insertDiagramFn != nil {
		return f.insertDiagramFn(ctx, item)
	}
	return nil
}

func (f *fakeStore) GetDiagram(ctx context.Context, diagramID string) (store.Diagram, error) {
	if f.getDiagramFn != nil {
		return f.getDiagramFn(ctx, diagramID)
	}
	return store.Diagram{}, sql.ErrNoRows
}

func (f *fakeStore) ListDiagramsByDocumentation(context.Context, string) ([]store.Diagram, error) {
	return nil, nil
}
func (f *fakeStore) UpdateDiagram(context.Context, store.Diagram) error { return nil }
func (f *fakeStore) DeleteDiagram(context.Context, string) error        { return nil }

func (f *fakeStore) InsertSrsDocument(ctx context.Context, item store.SrsDocument) error {
	if f.insertSrsDocumentFn != nil {
		return f.insertSrsDocumentFn(ctx, item)
	}
	return nil
}

func (f *fakeStore) GetSrsDocument(ctx context.Context, documentID string) (store.SrsDocument, error) {
	if f.getSrsDocumentFn != nil {
		return f.getSrsDocumentFn(ctx, documentID)
	}
	return store.SrsDocument{}, sql.ErrNoRows
}

func (f *fakeStore) ListSrsDocumentsByOwner(context.Context, string, int, int) ([]store.SrsDocument, int, error) {
	return nil, 0, nil
}
func (f *fakeStore) UpdateSrsDocument(context.Context, store.SrsDocument) error { return nil }
func (f *fakeStore) DeleteSrsDocument(context.Context, string) error            { return nil }

func (f *fakeStore) InsertSrsRequirement(ctx context.Context, item store.SrsRequirement) error {
	if f.insertSrsRequirementFn != nil {
		return f.insertSrsRequirementFn(ctx, item)
	}
	return nil
}

func (f *fakeStore) GetSrsRequirement(ctx context.Context, requirementID string) (store.SrsRequirement, error) {
	if f.getSrsRequirementFn != nil {
		return f.getSrsRequirementFn(ctx, requirementID)
	}
	return store.SrsRequirement{}, sql.ErrNoRows
}

func (f *fakeStore) ListSrsRequirements(context.Context, string) ([]store.SrsRequirement, error) {
	return nil, nil
}
func (f *fakeStore) UpdateSrsRequirement(context.Context, store.SrsRequirement) error { return nil }
func (f *fakeStore) DeleteSrsRequirement(context.Context, string) error               { return nil }

func (f *fakeStore) InsertSddDocument(context.Context, store.SddDocument) error { return nil }
func (f *fakeStore) GetSddDocument(ctx context.Context, documentID string) (store.SddDocument, error) {
	if f.getSddDocumentFn != nil {
		return f.getSddDocumentFn(ctx, documentID)
	}
	return store.SddDocument{}, sql.ErrNoRows
}
func (f *fakeStore) ListSddDocumentsByOwner(context.Context, string, int, int) ([]store.SddDocument, int, error) {
	return nil, 0, nil
}
func (f *fakeStore) UpdateSddDocument(context.Context, store.SddDocument) error   { return nil }
func (f *fakeStore) DeleteSddDocument(context.Context, string) error              { return nil }
func (f *fakeStore) InsertSddComponent(context.Context, store.SddComponent) error { return nil }
func (f *fakeStore) GetSddComponent(context.Context, string) (store.SddComponent, error) {
	return store.SddComponent{}, sql.ErrNoRows
}
func (f *fakeStore) ListSddComponents(context.Context, string) ([]store.SddComponent, error) {
	return nil, nil
}
func (f *fakeStore) UpdateSddComponent(context.Context, store.SddComponent) error { return nil }
func (f *fakeStore) DeleteSddComponent(context.Context, string) error             { return nil }
func (f *fakeStore) InsertSddDiagram(context.Context, store.SddDiagram) error     { return nil }
func (f *fakeStore) GetSddDiagram(context.Context, string) (store.SddDiagram, error) {
	return store.SddDiagram{}, sql.ErrNoRows
}
func (f *fakeStore) ListSddDiagrams(context.Context, string) ([]store.SddDiagram, error) {
	return nil, nil
}
func (f *fakeStore) UpdateSddDiagram(context.Context, store.SddDiagram) error { return nil }
func (f *fakeStore) DeleteSddDiagram(context.Context, string) error           { return nil }

func (f *fakeStore) Ping(context.Context) error { return nil }

type fakeSessionStore struct {
	saved map[string]session.Identity
}

func newFakeSessionStore() *fakeSessionStore {
	return &fakeSessionStore{saved: make(map[string]session.Identity)}
}

func (f *fakeSessionStore) Save(_ context.Context, tokenHash string, identity session.Identity, _ time.Time) error {
	f.saved[tokenHash] = identity
	return nil
}

func (f *fakeSessionStore) Lookup(_ context.Context, tokenHash string) (session.Identity, error) {
	identity, ok := f.saved[tokenHash]
	if !ok {
		return session.Identity{}, session.ErrNotFound
	}
	return identity, nil
}

func (f *fakeSessionStore) Revoke(_ context.Context, tokenHash string) error {
	delete(f.saved, tokenHash)
	return nil
}

func newTestService(fs *fakeStore) *Service {
	return &Service{
		cfg: config.Config{
			TokenSecret: "test-secret",
			AccessTTL:   time.Hour,
			RefreshTTL:  24 * time.Hour,
		},
		store:    fs,
		sessions: newFakeSessionStore(),
		authpw:   authpw.NewService(fs),
	}
}

func ownerSession() Session {
	return Session{UserID: "usr_owner", UserName: "Owner"}
}

func domainStatus(t *testing.T, err error) *DomainError {
	t.Helper()
	var domainErr *DomainError
	if !errors.As(err, &domainErr) {
		t.Fatalf("expected DomainError, got %v", err)
	}
	return domainErr
}

func TestCreateDocumentationValidation(t *testing.T) {
	svc := newTestService(&fakeStore{})

	_, err := svc.CreateDocumentation(context.Background(), ownerSession(), CreateDocumentationInput{
		TemplateID: "tpl_missing",
		Title:      "",
		Content:    json.RawMessage(`[]`),
	})
	domainErr := domainStatus(t, err)
	if domainErr.Status != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", domainErr.Status)
	}
	for _, field := range []string{"templateId", "title", "content"} {
		if len(domainErr.Errors[field]) == 0 {
			t.Fatalf("expected error for %s, got %v", field, domainErr.Errors)
		}
	}
}

func TestCreateDocumentationSetsOwnerAndDefaults(t *testing.T) {
	var inserted store.Documentation
	fs := &fakeStore{
		insertDocumentationFn: func(_ context.Context, item store.Documentation) error {
			inserted = item
			return nil
		},
		getDocumentationFn: func(_ context.Context, documentationID string) (store.Documentation, error) {
			inserted.ID = documentationID
			return inserted, nil
		},
	}
	svc := newTestService(fs)

	payload, err := svc.CreateDocumentation(context.Background(), ownerSession(), CreateDocumentationInput{
		TemplateID: "tpl_ieee_srs",
		Title:      "  Payments Service  ",
		Content:    json.RawMessage(`{"introduction":{}}`),
	})
	if err != nil {
		t.Fatalf("CreateDocumentation() error = %v", err)
	}
	if inserted.CreatedBy != "usr_owner" {
		t.Fatalf("owner must come from the session, got %q", inserted.CreatedBy)
	}
	if inserted.Status != "draft" || inserted.Version != 1 {
		t.Fatalf("expected draft v1, got %q v%d", inserted.Status, inserted.Version)
	}
	if inserted.Title != "Payments Service" {
		t.Fatalf("expected trimmed title, got %q", inserted.Title)
	}
	if payload["createdBy"] != "usr_owner" {
		t.Fatalf("unexpected payload: %v", payload)
	}
}

func TestUpdateDocumentationOwnership(t *testing.T) {
	doc := store.Documentation{
		ID:         "doc_1",
		TemplateID: "tpl_ieee_srs",
		Title:      "Original",
		Content:    json.RawMessage(`{}`),
		Status:     "draft",
		Version:    1,
		CreatedBy:  "usr_owner",
	}
	var updated store.Documentation
	fs := &fakeStore{
		getDocumentationFn: func(context.Context, string) (store.Documentation, error) {
			return doc, nil
		},
		updateDocumentationFn: func(_ context.Context, item store.Documentation) error {
			updated = item
			return nil
		},
	}
	svc := newTestService(fs)

	title := "Renamed"
	_, err := svc.UpdateDocumentation(context.Background(), Session{UserID: "usr_other"}, "doc_1", UpdateDocumentationInput{Title: &title})
	if domainErr := domainStatus(t, err); domainErr.Status != http.StatusForbidden {
		t.Fatalf("non-owner must get 403, got %d", domainErr.Status)
	}

	// An admin may update documents they do not own.
	if _, err := svc.UpdateDocumentation(context.Background(), Session{UserID: "usr_admin", IsAdmin: true}, "doc_1", UpdateDocumentationInput{Title: &title}); err != nil {
		t.Fatalf("admin update failed: %v", err)
	}
	if updated.CreatedBy != "usr_owner" {
		t.Fatalf("owner must never change on update, got %q", updated.CreatedBy)
	}
	if updated.Version != 1 {
		t.Fatalf("version is set once, got %d", updated.Version)
	}
}

func TestDeleteDocumentationGuardsAndPropagates(t *testing.T) {
	deleted := []string{}
	storeErr := error(nil)
	fs := &fakeStore{
		getDocumentationFn: func(context.Context, string) (store.Documentation, error) {
			return store.Documentation{ID: "doc_1", CreatedBy: "usr_owner"}, nil
		},
		deleteDocumentationFn: func(_ context.Context, documentationID string) error {
			deleted = append(deleted, documentationID)
			return storeErr
		},
	}
	svc := newTestService(fs)

	err := svc.DeleteDocumentation(context.Background(), Session{UserID: "usr_other"}, "doc_1")
	if domainErr := domainStatus(t, err); domainErr.Status != http.StatusForbidden {
		t.Fatalf("non-owner delete must get 403, got %d", domainErr.Status)
	}
	if len(deleted) != 0 {
		t.Fatalf("store delete must not run for a denied actor, got %v", deleted)
	}

	if err := svc.DeleteDocumentation(context.Background(), ownerSession(), "doc_1"); err != nil {
		t.Fatalf("owner delete failed: %v", err)
	}
	if len(deleted) != 1 || deleted[0] != "doc_1" {
		t.Fatalf("expected one store delete for doc_1, got %v", deleted)
	}

	// A failed cascade surfaces to the caller instead of reporting success.
	storeErr = errors.New("tx aborted")
	if err := svc.DeleteDocumentation(context.Background(), ownerSession(), "doc_1"); err == nil {
		t.Fatalf("store failure must propagate")
	}
}

func TestGetDocumentationOpenToOtherUsers(t *testing.T) {
	fs := &fakeStore{
		getDocumentationFn: func(context.Context, string) (store.Documentation, error) {
			return store.Documentation{
				ID:         "doc_1",
				TemplateID: "tpl_ieee_srs",
				Title:      "Shared",
				Content:    json.RawMessage(`{}`),
				Status:     "draft",
				Version:    1,
				CreatedBy:  "usr_owner",
			}, nil
		},
	}
	svc := newTestService(fs)

	payload, err := svc.GetDocumentation(context.Background(), Session{UserID: "usr_other"}, "doc_1")
	if err != nil {
		t.Fatalf("any authenticated user may view, got %v", err)
	}
	if payload["title"] != "Shared" {
		t.Fatalf("unexpected payload: %v", payload)
	}
}

func TestListDocumentationsScopedToSessionUser(t *testing.T) {
	var requestedOwner string
	fs := &fakeStore{
		listDocumentationsByOwnerFn: func(_ context.Context, ownerID string, limit, offset int) ([]store.Documentation, int, error) {
			requestedOwner = ownerID
			if limit != listPageSize || offset != listPageSize {
				t.Fatalf("expected limit=%d offset=%d, got %d/%d", listPageSize, listPageSize, limit, offset)
			}
			return nil, 31, nil
		},
	}
	svc := newTestService(fs)

	payload, err := svc.ListDocumentations(context.Background(), ownerSession(), 2)
	if err != nil {
		t.Fatalf("ListDocumentations() error = %v", err)
	}
	if requestedOwner != "usr_owner" {
		t.Fatalf("list must be scoped to the session user, got %q", requestedOwner)
	}
	if payload["total"] != 31 || payload["currentPage"] != 2 {
		t.Fatalf("unexpected page meta: %v", payload)
	}
}

func TestCreateDiagramAuthorizesAgainstParent(t *testing.T) {
	fs := &fakeStore{
		getDocumentationFn: func(context.Context, string) (store.Documentation, error) {
			return store.Documentation{ID: "doc_1", CreatedBy: "usr_owner"}, nil
		},
	}
	svc := newTestService(fs)

	_, err := svc.CreateDiagram(context.Background(), Session{UserID: "usr_other"}, "doc_1", CreateDiagramInput{
		Type:          "flowchart",
		MermaidSyntax: "flowchart TD\nA-->B",
	})
	if domainErr := domainStatus(t, err); domainErr.Status != http.StatusForbidden {
		t.Fatalf("diagram rights derive from the parent, got %d", domainErr.Status)
	}
}

func TestCreateDiagramDefaultsTitle(t *testing.T) {
	var inserted store.Diagram
	fs := &fakeStore{
		getDocumentationFn: func(context.Context, string) (store.Documentation, error) {
			return store.Documentation{ID: "doc_1", CreatedBy: "usr_owner"}, nil
		},
		insertDiagramFn: func(_ context.Context, item store.Diagram) error {
			inserted = item
			return nil
		},
		getDiagramFn: func(context.Context, string) (store.Diagram, error) {
			return inserted, nil
		},
	}
	svc := newTestService(fs)

	if _, err := svc.CreateDiagram(context.Background(), ownerSession(), "doc_1", CreateDiagramInput{
		Type:          "sequence",
		MermaidSyntax: "sequenceDiagram\nA->>B: hi",
	}); err != nil {
		t.Fatalf("CreateDiagram() error = %v", err)
	}
	if inserted.Title != defaultDiagramTitle {
		t.Fatalf("expected default title, got %q", inserted.Title)
	}
}

func TestCreateDiagramRejectsInvalidSyntax(t *testing.T) {
	fs := &fakeStore{
		getDocumentationFn: func(context.Context, string) (store.Documentation, error) {
			return store.Documentation{ID: "doc_1", CreatedBy: "usr_owner"}, nil
		},
	}
	svc := newTestService(fs)

	_, err := svc.CreateDiagram(context.Background(), ownerSession(), "doc_1", CreateDiagramInput{
		Type:          "flowchart",
		MermaidSyntax: "this is not mermaid",
	})
	domainErr := domainStatus(t, err)
	if domainErr.Status != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", domainErr.Status)
	}
	if len(domainErr.Errors["mermaidSyntax"]) == 0 {
		t.Fatalf("expected mermaidSyntax error, got %v", domainErr.Errors)
	}
}

func TestSrsDocumentStrictOwner(t *testing.T) {
	fs := &fakeStore{
		getSrsDocumentFn: func(context.Context, string) (store.SrsDocument, error) {
			return store.SrsDocument{ID: "srs_1", UserID: "usr_owner", Title: "SRS"}, nil
		},
	}
	svc := newTestService(fs)

	// Not even admins can read someone else's SRS.
	_, err := svc.GetSrsDocument(context.Background(), Session{UserID: "usr_admin", IsAdmin: true}, "srs_1")
	if domainErr := domainStatus(t, err); domainErr.Status != http.StatusForbidden {
		t.Fatalf("expected 403 for admin, got %d", domainErr.Status)
	}

	if _, err := svc.GetSrsDocument(context.Background(), ownerSession(), "srs_1"); err != nil {
		t.Fatalf("owner read failed: %v", err)
	}
}

func TestCreateSrsRequirementDefaultsAndUniqueness(t *testing.T) {
	var inserted store.SrsRequirement
	insertErr := error(nil)
	fs := &fakeStore{
		getSrsDocumentFn: func(context.Context, string) (store.SrsDocument, error) {
			return store.SrsDocument{ID: "srs_1", UserID: "usr_owner"}, nil
		},
		insertSrsRequirementFn: func(_ context.Context, item store.SrsRequirement) error {
			inserted = item
			return insertErr
		},
		getSrsRequirementFn: func(context.Context, string) (store.SrsRequirement, error) {
			return inserted, nil
		},
	}
	svc := newTestService(fs)

	reqID := "FR-001"
	title := "Login"
	desc := "Users can log in"
	payload, err := svc.CreateSrsRequirement(context.Background(), ownerSession(), "srs_1", SrsRequirementInput{
		RequirementID: &reqID,
		Title:         &title,
		Description:   &desc,
	})
	if err != nil {
		t.Fatalf("CreateSrsRequirement() error = %v", err)
	}
	if inserted.Priority != "medium" {
		t.Fatalf("expected default priority medium, got %q", inserted.Priority)
	}
	if payload["uxConsiderations"] == nil {
		t.Fatalf("uxConsiderations must serialize as an array, got %v", payload)
	}

	insertErr = &pgconn.PgError{Code: "23505", ConstraintName: "srs_requirements_requirement_id_key"}
	_, err = svc.CreateSrsRequirement(context.Background(), ownerSession(), "srs_1", SrsRequirementInput{
		RequirementID: &reqID,
		Title:         &title,
		Description:   &desc,
	})
	domainErr := domainStatus(t, err)
	if domainErr.Status != http.StatusUnprocessableEntity {
		t.Fatalf("duplicate requirementId must map to 422, got %d", domainErr.Status)
	}
	if len(domainErr.Errors["requirementId"]) == 0 {
		t.Fatalf("expected requirementId error, got %v", domainErr.Errors)
	}
}

func TestValidateDiagramSyntax(t *testing.T) {
	svc := newTestService(&fakeStore{})

	payload, err := svc.ValidateDiagramSyntax(context.Background(), "flowchart TD\nA-->B")
	if err != nil {
		t.Fatalf("ValidateDiagramSyntax() error = %v", err)
	}
	if payload["isValid"] != true {
		t.Fatalf("expected valid, got %v", payload)
	}

	payload, err = svc.ValidateDiagramSyntax(context.Background(), "nope nope")
	if err != nil {
		t.Fatalf("ValidateDiagramSyntax() error = %v", err)
	}
	if payload["isValid"] != false {
		t.Fatalf("expected invalid, got %v", payload)
	}

	if _, err := svc.ValidateDiagramSyntax(context.Background(), "ab"); err == nil {
		t.Fatalf("expected length error for short syntax")
	}
}

func TestRefreshRotatesToken(t *testing.T) {
	fs := &fakeStore{
		getUserByIDFn: func(_ context.Context, userID string) (store.User, error) {
			return store.User{ID: userID, DisplayName: "Avery"}, nil
		},
	}
	svc := newTestService(fs)

	first, err := svc.issueSession(context.Background(), store.User{ID: "usr_1", DisplayName: "Avery"})
	if err != nil {
		t.Fatalf("issueSession() error = %v", err)
	}

	second, err := svc.Refresh(context.Background(), first.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	if second.RefreshToken == first.RefreshToken {
		t.Fatalf("refresh must rotate the token")
	}

	if _, err := svc.Refresh(context.Background(), first.RefreshToken); !errors.Is(err, session.ErrNotFound) {
		t.Fatalf("old refresh token must be revoked, got %v", err)
	}
}
