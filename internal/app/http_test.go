package app

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"specsmith/api/internal/store"
)

func decodeEnvelope(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var payload map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("parse response: %v body=%s", err, rr.Body.String())
	}
	return payload
}

func TestHealth(t *testing.T) {
	server := NewHTTPServer(newTestService(&fakeStore{}), "*")

	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
}

func TestProtectedRoutesRequireBearer(t *testing.T) {
	server := NewHTTPServer(newTestService(&fakeStore{}), "*")

	paths := []string{
		"/api/documentations",
		"/api/templates",
		"/api/srs-documents",
		"/api/sdd-documents",
	}
	for _, path := range paths {
		rr := httptest.NewRecorder()
		server.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
		if rr.Code != http.StatusUnauthorized {
			t.Fatalf("%s: expected 401, got %d", path, rr.Code)
		}
		payload := decodeEnvelope(t, rr)
		if payload["success"] != false {
			t.Fatalf("%s: expected success=false, got %v", path, payload)
		}
	}
}

func TestSignUpReturnsSessionContract(t *testing.T) {
	server := NewHTTPServer(newTestService(&fakeStore{}), "*")

	body := bytes.NewBufferString(`{"email":"avery@example.com","password":"correct-horse","displayName":"Avery"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/auth/signup", body)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()

	server.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d body=%s", rr.Code, rr.Body.String())
	}
	payload := decodeEnvelope(t, rr)
	if payload["success"] != true {
		t.Fatalf("expected success=true, got %v", payload)
	}
	data, _ := payload["data"].(map[string]any)
	if data["accessToken"] == "" || data["accessToken"] == nil {
		t.Fatalf("expected accessToken, got %v", data)
	}
	if data["refreshToken"] == "" || data["refreshToken"] == nil {
		t.Fatalf("expected refreshToken, got %v", data)
	}
	if data["userName"] != "Avery" {
		t.Fatalf("expected userName Avery, got %v", data)
	}
}

func TestSignUpValidationEnvelope(t *testing.T) {
	server := NewHTTPServer(newTestService(&fakeStore{}), "*")

	body := bytes.NewBufferString(`{"email":"not-an-email","password":"short","displayName":""}`)
	req := httptest.NewRequest(http.MethodPost, "/api/auth/signup", body)
	rr := httptest.NewRecorder()

	server.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d body=%s", rr.Code, rr.Body.String())
	}
	payload := decodeEnvelope(t, rr)
	if payload["success"] != false || payload["errors"] == nil {
		t.Fatalf("expected failure envelope with errors, got %v", payload)
	}
}

func TestSignInRejectsBadCredentials(t *testing.T) {
	server := NewHTTPServer(newTestService(&fakeStore{}), "*")

	body := bytes.NewBufferString(`{"email":"nobody@example.com","password":"whatever"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/auth/signin", body)
	rr := httptest.NewRecorder()

	server.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestDocumentationLifecycleOverHTTP(t *testing.T) {
	var saved store.Documentation
	fs := &fakeStore{
		insertDocumentationFn: func(_ context.Context, item store.Documentation) error {
			saved = item
			return nil
		},
		getDocumentationFn: func(context.Context, string) (store.Documentation, error) {
			if saved.ID == "" {
				return store.Documentation{}, sql.ErrNoRows
			}
			return saved, nil
		},
		updateDocumentationFn: func(_ context.Context, item store.Documentation) error {
			saved = item
			return nil
		},
	}
	svc := newTestService(fs)
	server := NewHTTPServer(svc, "*")

	ownerSess, err := svc.issueSession(context.Background(), store.User{ID: "usr_owner", DisplayName: "Owner"})
	if err != nil {
		t.Fatalf("issueSession() error = %v", err)
	}
	otherSess, err := svc.issueSession(context.Background(), store.User{ID: "usr_other", DisplayName: "Other"})
	if err != nil {
		t.Fatalf("issueSession() error = %v", err)
	}

	// Owner creates a documentation.
	createBody := bytes.NewBufferString(`{"templateId":"tpl_ieee_srs","title":"Payments","content":{"introduction":{}}}`)
	req := httptest.NewRequest(http.MethodPost, "/api/documentations", createBody)
	req.Header.Set("Authorization", "Bearer "+ownerSess.Token)
	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d body=%s", rr.Code, rr.Body.String())
	}
	if saved.CreatedBy != "usr_owner" {
		t.Fatalf("create: owner must come from the token, got %q", saved.CreatedBy)
	}

	// Another user may view it.
	req = httptest.NewRequest(http.MethodGet, "/api/documentations/"+saved.ID, nil)
	req.Header.Set("Authorization", "Bearer "+otherSess.Token)
	rr = httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("view: expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}

	// But not update it.
	req = httptest.NewRequest(http.MethodPut, "/api/documentations/"+saved.ID, bytes.NewBufferString(`{"title":"Hijacked"}`))
	req.Header.Set("Authorization", "Bearer "+otherSess.Token)
	rr = httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("foreign update: expected 403, got %d body=%s", rr.Code, rr.Body.String())
	}
	if saved.Title != "Payments" {
		t.Fatalf("foreign update must not persist, got %q", saved.Title)
	}

	// The owner can.
	req = httptest.NewRequest(http.MethodPut, "/api/documentations/"+saved.ID, bytes.NewBufferString(`{"title":"Payments v2","status":"review"}`))
	req.Header.Set("Authorization", "Bearer "+ownerSess.Token)
	rr = httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("owner update: expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}
	if saved.Title != "Payments v2" || saved.Status != "review" {
		t.Fatalf("owner update not persisted: %+v", saved)
	}
}

func TestUnknownRouteIs404(t *testing.T) {
	svc := newTestService(&fakeStore{})
	server := NewHTTPServer(svc, "*")

	sess, err := svc.issueSession(context.Background(), store.User{ID: "usr_1", DisplayName: "A"})
	if err != nil {
		t.Fatalf("issueSession() error = %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/nope", nil)
	req.Header.Set("Authorization", "Bearer "+sess.Token)
	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
}

func TestTemplateRoutes(t *testing.T) {
	svc := newTestService(&fakeStore{})
	server := NewHTTPServer(svc, "*")

	sess, err := svc.issueSession(context.Background(), store.User{ID: "usr_1", DisplayName: "A"})
	if err != nil {
		t.Fatalf("issueSession() error = %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/templates", nil)
	req.Header.Set("Authorization", "Bearer "+sess.Token)
	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("list: expected 200, got %d", rr.Code)
	}
	payload := decodeEnvelope(t, rr)
	items, _ := payload["data"].([]any)
	if len(items) == 0 {
		t.Fatalf("expected seeded templates, got %v", payload)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/templates/tpl_missing", nil)
	req.Header.Set("Authorization", "Bearer "+sess.Token)
	rr = httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("missing template: expected 404, got %d", rr.Code)
	}
}
