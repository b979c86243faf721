package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/voyago/voyago/internal/chat"
)

// SessionHandler handles session management endpoints. Sessions are
// derived from the turn log, so list/delete operate on log contents
// rather than a session table.
type SessionHandler struct {
	svc    *chat.Service
	logger *slog.Logger
}

// NewSessionHandler creates a new session handler.
func NewSessionHandler(svc *chat.Service, logger *slog.Logger) *SessionHandler {
	return &SessionHandler{svc: svc, logger: logger}
}

// RegisterRoutes registers session routes on the given mux.
func (h *SessionHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/sessions", h.list)
	mux.HandleFunc("POST /api/sessions", h.create)
	mux.HandleFunc("DELETE /api/sessions/{id}", h.delete)
	mux.HandleFunc("POST /api/sessions/rename", h.rename)
	mux.HandleFunc("GET /api/personas", h.personas)
}

// list returns every session, newest activity first.
func (h *SessionHandler) list(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.svc.ListSessions(r.Context())
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"sessions": sessions,
		"total":    len(sessions),
	})
}

// CreateSessionRequest is the request body for creating a session.
type CreateSessionRequest struct {
	Title   string `json:"title,omitempty"`
	Persona string `json:"persona,omitempty"`
}

// create mints a new session id, optionally titled.
func (h *SessionHandler) create(w http.ResponseWriter, r *http.Request) {
	var req CreateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "request body must be JSON")
		return
	}

	id, err := h.svc.CreateSession(r.Context(), req.Title, req.Persona)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{"session_id": id})
}

// delete removes a session's turns. Unknown ids are a zero-count 200.
func (h *SessionHandler) delete(w http.ResponseWriter, r *http.Request) {
	deleted, err := h.svc.DeleteSession(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]int64{"deleted": deleted})
}

// RenameSessionRequest is the request body for renaming a session.
type RenameSessionRequest struct {
	SessionID string `json:"session_id"`
	Title     string `json:"title"`
}

// rename sets a session's title.
func (h *SessionHandler) rename(w http.ResponseWriter, r *http.Request) {
	var req RenameSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "request body must be JSON")
		return
	}

	if err := h.svc.Rename(r.Context(), req.SessionID, req.Title); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"session_id": req.SessionID, "title": req.Title})
}

// personas lists the registered personas.
func (h *SessionHandler) personas(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"personas": h.svc.Personas()})
}
