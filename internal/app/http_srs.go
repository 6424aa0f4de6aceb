package app

import "net/http"

// routeSrs dispatches the SRS document and functional-requirement routes.
// parts excludes the leading "api" segment. Returns false when the path is
// not an SRS route at all.
func (s *HTTPServer) routeSrs(w http.ResponseWriter, r *http.Request, sess Session, parts []string) bool {
	if parts[0] == "srs-documents" {
		s.handleSrsDocuments(w, r, sess, parts)
		return true
	}
	if parts[0] == "srs-requirements" && len(parts) == 2 {
		s.handleSrsRequirement(w, r, sess, parts[1])
		return true
	}
	return false
}

func (s *HTTPServer) handleSrsDocuments(w http.ResponseWriter, r *http.Request, sess Session, parts []string) {
	if len(parts) == 1 {
		switch r.Method {
		case http.MethodGet:
			payload, err := s.service.ListSrsDocuments(r.Context(), sess, pageParam(r))
			s.respond(w, http.StatusOK, payload, err)
		case http.MethodPost:
			var body SrsDocumentInput
			if err := decodeBody(r, &body); err != nil {
				writeFailure(w, http.StatusBadRequest, err.Error(), nil)
				return
			}
			payload, err := s.service.CreateSrsDocument(r.Context(), sess, body)
			s.respond(w, http.StatusCreated, payload, err)
		default:
			writeFailure(w, http.StatusMethodNotAllowed, "Method not allowed", nil)
		}
		return
	}

	documentID := parts[1]

	if len(parts) == 2 {
		switch r.Method {
		case http.MethodGet:
			payload, err := s.service.GetSrsDocument(r.Context(), sess, documentID)
			s.respond(w, http.StatusOK, payload, err)
		case http.MethodPut, http.MethodPatch:
			var body SrsDocumentInput
			if err := decodeBody(r, &body); err != nil {
				writeFailure(w, http.StatusBadRequest, err.Error(), nil)
				return
			}
			payload, err := s.service.UpdateSrsDocument(r.Context(), sess, documentID, body)
			s.respond(w, http.StatusOK, payload, err)
		case http.MethodDelete:
			if err := s.service.DeleteSrsDocument(r.Context(), sess, documentID); err != nil {
				s.fail(w, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "SRS document deleted"})
		default:
			writeFailure(w, http.StatusMethodNotAllowed, "Method not allowed", nil)
		}
		return
	}

	if len(parts) == 3 && parts[2] == "requirements" {
		switch r.Method {
		case http.MethodGet:
			payload, err := s.service.ListSrsRequirements(r.Context(), sess, documentID)
			s.respond(w, http.StatusOK, payload, err)
		case http.MethodPost:
			var body SrsRequirementInput
			if err := decodeBody(r, &body); err != nil {
				writeFailure(w, http.StatusBadRequest, err.Error(), nil)
				return
			}
			payload, err := s.service.CreateSrsRequirement(r.Context(), sess, documentID, body)
			s.respond(w, http.StatusCreated, payload, err)
		default:
			writeFailure(w, http.StatusMethodNotAllowed, "Method not allowed", nil)
		}
		return
	}

	writeFailure(w, http.StatusNotFound, "Not found", nil)
}

func (s *HTTPServer) handleSrsRequirement(w http.ResponseWriter, r *http.Request, sess Session, requirementID string) {
	switch r.Method {
	case http.MethodPut, http.MethodPatch:
		var body SrsRequirementInput
		if err := decodeBody(r, &body); err != nil {
			writeFailure(w, http.StatusBadRequest, err.Error(), nil)
			return
		}
		payload, err := s.service.UpdateSrsRequirement(r.Context(), sess, requirementID, body)
		s.respond(w, http.StatusOK, payload, err)
	case http.MethodDelete:
		if err := s.service.DeleteSrsRequirement(r.Context(), sess, requirementID); err != nil {
			s.fail(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Requirement deleted"})
	default:
		writeFailure(w, http.StatusMethodNotAllowed, "Method not allowed", nil)
	}
}
