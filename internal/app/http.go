package app

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"specsmith/api/internal/auth"
	"specsmith/api/internal/authpw"
	"specsmith/api/internal/session"
)

type HTTPServer struct {
	service    *Service
	corsOrigin string
}

func NewHTTPServer(service *Service, corsOrigin string) *HTTPServer {
	return &HTTPServer{service: service, corsOrigin: corsOrigin}
}

func (s *HTTPServer) Handler() http.Handler {
	return s.withMiddleware(http.HandlerFunc(s.handle))
}

func (s *HTTPServer) handle(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		writeJSON(w, http.StatusNoContent, map[string]any{})
		return
	}

	if (r.Method == http.MethodGet || r.Method == http.MethodHead) && r.URL.Path == "/api/health" {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		return
	}

	if (r.Method == http.MethodGet || r.Method == http.MethodHead) && r.URL.Path == "/api/ready" {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		status := "ready"
		statusCode := http.StatusOK
		checks := map[string]any{
			"database": map[string]any{"status": "ok"},
		}
		if err := s.service.Ping(ctx); err != nil {
			status = "not_ready"
			statusCode = http.StatusServiceUnavailable
			checks["database"] = map[string]any{
				"status": "error",
				"error":  err.Error(),
			}
		}
		writeJSON(w, statusCode, map[string]any{
			"ok":     status == "ready",
			"status": status,
			"checks": checks,
		})
		return
	}

	// Auth routes (no session required)
	if r.Method == http.MethodPost && r.URL.Path == "/api/auth/signup" {
		s.handleAuthSignUp(w, r)
		return
	}

	if r.Method == http.MethodPost && r.URL.Path == "/api/auth/signin" {
		s.handleAuthSignIn(w, r)
		return
	}

	if r.Method == http.MethodPost && r.URL.Path == "/api/auth/refresh" {
		var body struct {
			RefreshToken string `json:"refreshToken"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeFailure(w, http.StatusBadRequest, err.Error(), nil)
			return
		}
		sess, err := s.service.Refresh(r.Context(), body.RefreshToken)
		if err != nil {
			if errors.Is(err, session.ErrNotFound) || errors.Is(err, sql.ErrNoRows) {
				writeFailure(w, http.StatusUnauthorized, "Refresh token invalid", nil)
				return
			}
			s.fail(w, err)
			return
		}
		writeSuccess(w, http.StatusOK, sessionJSON(sess))
		return
	}

	if r.Method == http.MethodPost && r.URL.Path == "/api/auth/logout" {
		var body struct {
			RefreshToken string `json:"refreshToken"`
		}
		_ = decodeBody(r, &body)
		_ = s.service.Logout(r.Context(), body.RefreshToken)
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Logged out"})
		return
	}

	if r.Method == http.MethodGet && r.URL.Path == "/api/session" {
		token := bearerToken(r)
		if token == "" {
			writeJSON(w, http.StatusOK, map[string]any{"authenticated": false, "userName": nil})
			return
		}
		sess, err := s.service.SessionFromToken(r.Context(), token)
		if err != nil {
			writeJSON(w, http.StatusOK, map[string]any{"authenticated": false, "userName": nil})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"authenticated": true,
			"userName":      sess.UserName,
			"userId":        sess.UserID,
			"isAdmin":       sess.IsAdmin,
		})
		return
	}

	sess, ok := s.requireSession(w, r)
	if !ok {
		return
	}

	if r.Method == http.MethodGet && r.URL.Path == "/api/templates" {
		writeSuccess(w, http.StatusOK, s.service.ListTemplates(r.Context()))
		return
	}

	if r.URL.Path == "/api/documentations" {
		switch r.Method {
		case http.MethodGet:
			payload, err := s.service.ListDocumentations(r.Context(), sess, pageParam(r))
			s.respond(w, http.StatusOK, payload, err)
		case http.MethodPost:
			var body CreateDocumentationInput
			if err := decodeBody(r, &body); err != nil {
				writeFailure(w, http.StatusBadRequest, err.Error(), nil)
				return
			}
			payload, err := s.service.CreateDocumentation(r.Context(), sess, body)
			s.respond(w, http.StatusCreated, payload, err)
		default:
			writeFailure(w, http.StatusMethodNotAllowed, "Method not allowed", nil)
		}
		return
	}

	if r.Method == http.MethodPost && r.URL.Path == "/api/diagrams/validate" {
		var body struct {
			Syntax string `json:"syntax"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeFailure(w, http.StatusBadRequest, err.Error(), nil)
			return
		}
		payload, err := s.service.ValidateDiagramSyntax(r.Context(), body.Syntax)
		s.respond(w, http.StatusOK, payload, err)
		return
	}

	parts := splitPath(r.URL.Path)

	if len(parts) == 3 && parts[0] == "api" && parts[1] == "templates" {
		if r.Method != http.MethodGet {
			writeFailure(w, http.StatusMethodNotAllowed, "Method not allowed", nil)
			return
		}
		tpl, err := s.service.GetTemplate(r.Context(), parts[2])
		if err != nil {
			s.fail(w, err)
			return
		}
		writeSuccess(w, http.StatusOK, tpl)
		return
	}

	if len(parts) >= 3 && parts[0] == "api" && parts[1] == "documentations" {
		s.handleDocumentations(w, r, sess, parts)
		return
	}

	if len(parts) >= 3 && parts[0] == "api" && parts[1] == "diagrams" {
		s.handleDiagrams(w, r, sess, parts)
		return
	}

	if len(parts) >= 2 && parts[0] == "api" && strings.HasPrefix(parts[1], "srs-") {
		if s.routeSrs(w, r, sess, parts[1:]) {
			return
		}
	}

	if len(parts) >= 2 && parts[0] == "api" && strings.HasPrefix(parts[1], "sdd-") {
		if s.routeSdd(w, r, sess, parts[1:]) {
			return
		}
	}

	writeFailure(w, http.StatusNotFound, "Not found", nil)
}

func (s *HTTPServer) handleDocumentations(w http.ResponseWriter, r *http.Request, sess Session, parts []string) {
	documentationID := parts[2]

	if len(parts) == 3 {
		switch r.Method {
		case http.MethodGet:
			payload, err := s.service.GetDocumentation(r.Context(), sess, documentationID)
			s.respond(w, http.StatusOK, payload, err)
		case http.MethodPut, http.MethodPatch:
			var body UpdateDocumentationInput
			if err := decodeBody(r, &body); err != nil {
				writeFailure(w, http.StatusBadRequest, err.Error(), nil)
				return
			}
			payload, err := s.service.UpdateDocumentation(r.Context(), sess, documentationID, body)
			s.respond(w, http.StatusOK, payload, err)
		case http.MethodDelete:
			if err := s.service.DeleteDocumentation(r.Context(), sess, documentationID); err != nil {
				s.fail(w, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Documentation deleted"})
		default:
			writeFailure(w, http.StatusMethodNotAllowed, "Method not allowed", nil)
		}
		return
	}

	if len(parts) == 4 && parts[3] == "diagrams" {
		switch r.Method {
		case http.MethodGet:
			payload, err := s.service.ListDiagrams(r.Context(), sess, documentationID)
			s.respond(w, http.StatusOK, payload, err)
		case http.MethodPost:
			var body CreateDiagramInput
			if err := decodeBody(r, &body); err != nil {
				writeFailure(w, http.StatusBadRequest, err.Error(), nil)
				return
			}
			payload, err := s.service.CreateDiagram(r.Context(), sess, documentationID, body)
			s.respond(w, http.StatusCreated, payload, err)
		default:
			writeFailure(w, http.StatusMethodNotAllowed, "Method not allowed", nil)
		}
		return
	}

	writeFailure(w, http.StatusNotFound, "Not found", nil)
}

func (s *HTTPServer) handleDiagrams(w http.ResponseWriter, r *http.Request, sess Session, parts []string) {
	diagramID := parts[2]

	if len(parts) == 3 {
		switch r.Method {
		case http.MethodGet:
			payload, err := s.service.GetDiagram(r.Context(), sess, diagramID)
			s.respond(w, http.StatusOK, payload, err)
		case http.MethodPut, http.MethodPatch:
			var body UpdateDiagramInput
			if err := decodeBody(r, &body); err != nil {
				writeFailure(w, http.StatusBadRequest, err.Error(), nil)
				return
			}
			payload, err := s.service.UpdateDiagram(r.Context(), sess, diagramID, body)
			s.respond(w, http.StatusOK, payload, err)
		case http.MethodDelete:
			if err := s.service.DeleteDiagram(r.Context(), sess, diagramID); err != nil {
				s.fail(w, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Diagram deleted"})
		default:
			writeFailure(w, http.StatusMethodNotAllowed, "Method not allowed", nil)
		}
		return
	}

	if len(parts) == 4 && parts[3] == "preview" && r.Method == http.MethodGet {
		payload, err := s.service.PreviewDiagram(r.Context(), sess, diagramID)
		s.respond(w, http.StatusOK, payload, err)
		return
	}

	writeFailure(w, http.StatusNotFound, "Not found", nil)
}

func (s *HTTPServer) handleAuthSignUp(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email       string `json:"email"`
		Password    string `json:"password"`
		DisplayName string `json:"displayName"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeFailure(w, http.StatusBadRequest, err.Error(), nil)
		return
	}

	sess, err := s.service.SignUp(r.Context(), body.Email, body.Password, body.DisplayName)
	if err != nil {
		if errors.Is(err, authpw.ErrEmailTaken) {
			writeFailure(w, http.StatusUnprocessableEntity, "The given data was invalid", map[string][]string{
				"email": {"The email has already been taken"},
			})
			return
		}
		s.fail(w, err)
		return
	}
	writeSuccess(w, http.StatusCreated, sessionJSON(sess))
}

func (s *HTTPServer) handleAuthSignIn(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeFailure(w, http.StatusBadRequest, err.Error(), nil)
		return
	}

	sess, err := s.service.SignIn(r.Context(), body.Email, body.Password)
	if err != nil {
		if errors.Is(err, authpw.ErrInvalidCredentials) {
			writeFailure(w, http.StatusUnauthorized, "Invalid email or password", nil)
			return
		}
		s.fail(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, sessionJSON(sess))
}

func sessionJSON(sess Session) map[string]any {
	return map[string]any{
		"accessToken":  sess.Token,
		"refreshToken": sess.RefreshToken,
		"userId":       sess.UserID,
		"userName":     sess.UserName,
		"isAdmin":      sess.IsAdmin,
		"expiresAt":    sess.ExpiresAt.Unix(),
	}
}

func (s *HTTPServer) requireSession(w http.ResponseWriter, r *http.Request) (Session, bool) {
	token := bearerToken(r)
	if token == "" {
		writeFailure(w, http.StatusUnauthorized, "Unauthorized", nil)
		return Session{}, false
	}
	sess, err := s.service.SessionFromToken(r.Context(), token)
	if err != nil {
		if errors.Is(err, auth.ErrExpiredToken) || errors.Is(err, auth.ErrInvalidToken) {
			writeFailure(w, http.StatusUnauthorized, "Unauthorized", nil)
			return Session{}, false
		}
		writeFailure(w, http.StatusInternalServerError, "Session lookup failed", nil)
		return Session{}, false
	}
	return sess, true
}

// respond renders the common success/error split for service calls.
func (s *HTTPServer) respond(w http.ResponseWriter, successStatus int, payload any, err error) {
	if err != nil {
		s.fail(w, err)
		return
	}
	writeSuccess(w, successStatus, payload)
}

func (s *HTTPServer) fail(w http.ResponseWriter, err error) {
	status, message, fields := mapError(err)
	writeFailure(w, status, message, fields)
}

func (s *HTTPServer) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = randomRequestID()
		}
		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		r = r.WithContext(ctx)

		started := time.Now()
		writer := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		setCORSHeaders(writer.Header(), s.corsOrigin)
		writer.Header().Set("X-Request-ID", requestID)

		next.ServeHTTP(writer, r)

		log.Printf(`{"request_id":"%s","method":"%s","path":"%s","status":%d,"duration_ms":%d}`,
			requestID,
			r.Method,
			r.URL.Path,
			writer.status,
			time.Since(started).Milliseconds(),
		)
	})
}

type requestIDKey struct{}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func randomRequestID() string {
	buf := make([]byte, 8)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}

func setCORSHeaders(header http.Header, corsOrigin string) {
	header.Set("Access-Control-Allow-Origin", corsOrigin)
	header.Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")
	header.Set("Access-Control-Allow-Methods", "GET,POST,PUT,PATCH,DELETE,OPTIONS")
	header.Set("Cache-Control", "no-store")
	header.Set("Content-Type", "application/json")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeSuccess(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, map[string]any{
		"success": true,
		"data":    data,
	})
}

func writeFailure(w http.ResponseWriter, status int, message string, fields map[string][]string) {
	response := map[string]any{
		"success": false,
		"message": message,
	}
	if len(fields) > 0 {
		response["errors"] = fields
	}
	writeJSON(w, status, response)
}

func decodeBody(r *http.Request, target any) error {
	if r.Body == nil {
		return nil
	}
	defer r.Body.Close()
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(target); err != nil {
		if errors.Is(err, http.ErrBodyReadAfterClose) {
			return nil
		}
		return fmt.Errorf("invalid JSON body")
	}
	return nil
}

func bearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if !strings.HasPrefix(header, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
}

func splitPath(path string) []string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}

// pageParam reads the 1-based page query; anything unparseable is page 1.
func pageParam(r *http.Request) int {
	raw := strings.TrimSpace(r.URL.Query().Get("page"))
	if raw == "" {
		return 1
	}
	page, err := strconv.Atoi(raw)
	if err != nil || page < 1 {
		return 1
	}
	return page
}

func mapError(err error) (status int, message string, fields map[string][]string) {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Status, domainErr.Message, domainErr.Errors
	}
	if errors.Is(err, sql.ErrNoRows) {
		return http.StatusNotFound, "Not found", nil
	}
	if errors.Is(err, session.ErrNotFound) {
		return http.StatusUnauthorized, "Unauthorized", nil
	}
	if errors.Is(err, auth.ErrInvalidToken) || errors.Is(err, auth.ErrExpiredToken) {
		return http.StatusUnauthorized, "Unauthorized", nil
	}
	return http.StatusInternalServerError, "Server error", nil
}
