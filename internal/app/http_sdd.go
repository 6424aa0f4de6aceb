package app

import "net/http"

// routeSdd dispatches the SDD document, component and diagram routes.
// parts excludes the leading "api" segment.
func (s *HTTPServer) routeSdd(w http.ResponseWriter, r *http.Request, sess Session, parts []string) bool {
	if parts[0] == "sdd-documents" {
		s.handleSddDocuments(w, r, sess, parts)
		return true
	}
	if parts[0] == "sdd-components" && len(parts) == 2 {
		s.handleSddComponent(w, r, sess, parts[1])
		return true
	}
	if parts[0] == "sdd-diagrams" && len(parts) == 2 {
		s.handleSddDiagram(w, r, sess, parts[1])
		return true
	}
	return false
}

func (s *HTTPServer) handleSddDocuments(w http.ResponseWriter, r *http.Request, sess Session, parts []string) {
	if len(parts) == 1 {
		switch r.Method {
		case http.MethodGet:
			payload, err := s.service.ListSddDocuments(r.Context(), sess, pageParam(r))
			s.respond(w, http.StatusOK, payload, err)
		case http.MethodPost:
			var body SddDocumentInput
			if err := decodeBody(r, &body); err != nil {
				writeFailure(w, http.StatusBadRequest, err.Error(), nil)
				return
			}
			payload, err := s.service.CreateSddDocument(r.Context(), sess, body)
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
			payload, err := s.service.GetSddDocument(r.Context(), sess, documentID)
			s.respond(w, http.StatusOK, payload, err)
		case http.MethodPut, http.MethodPatch:
			var body SddDocumentInput
			if err := decodeBody(r, &body); err != nil {
				writeFailure(w, http.StatusBadRequest, err.Error(), nil)
				return
			}
			payload, err := s.service.UpdateSddDocument(r.Context(), sess, documentID, body)
			s.respond(w, http.StatusOK, payload, err)
		case http.MethodDelete:
			if err := s.service.DeleteSddDocument(r.Context(), sess, documentID); err != nil {
				s.fail(w, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "SDD document deleted"})
		default:
			writeFailure(w, http.StatusMethodNotAllowed, "Method not allowed", nil)
		}
		return
	}

	if len(parts) == 3 && parts[2] == "components" {
		switch r.Method {
		case http.MethodGet:
			payload, err := s.service.ListSddComponents(r.Context(), sess, documentID)
			s.respond(w, http.StatusOK, payload, err)
		case http.MethodPost:
			var body SddComponentInput
			if err := decodeBody(r, &body); err != nil {
				writeFailure(w, http.StatusBadRequest, err.Error(), nil)
				return
			}
			payload, err := s.service.CreateSddComponent(r.Context(), sess, documentID, body)
			s.respond(w, http.StatusCreated, payload, err)
		default:
			writeFailure(w, http.StatusMethodNotAllowed, "Method not allowed", nil)
		}
		return
	}

	if len(parts) == 3 && parts[2] == "diagrams" {
		switch r.Method {
		case http.MethodGet:
			payload, err := s.service.ListSddDiagrams(r.Context(), sess, documentID)
			s.respond(w, http.StatusOK, payload, err)
		case http.MethodPost:
			var body SddDiagramInput
			if err := decodeBody(r, &body); err != nil {
				writeFailure(w, http.StatusBadRequest, err.Error(), nil)
				return
			}
			payload, err := s.service.CreateSddDiagram(r.Context(), sess, documentID, body)
			s.respond(w, http.StatusCreated, payload, err)
		default:
			writeFailure(w, http.StatusMethodNotAllowed, "Method not allowed", nil)
		}
		return
	}

	writeFailure(w, http.StatusNotFound, "Not found", nil)
}

func (s *HTTPServer) handleSddComponent(w http.ResponseWriter, r *http.Request, sess Session, componentID string) {
	switch r.Method {
	case http.MethodPut, http.MethodPatch:
		var body SddComponentInput
		if err := decodeBody(r, &body); err != nil {
			writeFailure(w, http.StatusBadRequest, err.Error(), nil)
			return
		}
		payload, err := s.service.UpdateSddComponent(r.Context(), sess, componentID, body)
		s.respond(w, http.StatusOK, payload, err)
	case http.MethodDelete:
		if err := s.service.DeleteSddComponent(r.Context(), sess, componentID); err != nil {
			s.fail(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Component deleted"})
	default:
		writeFailure(w, http.StatusMethodNotAllowed, "Method not allowed", nil)
	}
}

func (s *HTTPServer) handleSddDiagram(w http.ResponseWriter, r *http.Request, sess Session, diagramID string) {
	switch r.Method {
	case http.MethodPut, http.MethodPatch:
		var body SddDiagramInput
		if err := decodeBody(r, &body); err != nil {
			writeFailure(w, http.StatusBadRequest, err.Error(), nil)
			return
		}
		payload, err := s.service.UpdateSddDiagram(r.Context(), sess, diagramID, body)
		s.respond(w, http.StatusOK, payload, err)
	case http.MethodDelete:
		if err := s.service.DeleteSddDiagram(r.Context(), sess, diagramID); err != nil {
			s.fail(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Diagram deleted"})
	default:
		writeFailure(w, http.StatusMethodNotAllowed, "Method not allowed", nil)
	}
}
