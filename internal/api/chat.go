package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/voyago/voyago/internal/chat"
)

// ChatHandler handles the chat endpoint.
type ChatHandler struct {
	svc        *chat.Service
	logger     *slog.Logger
	trustProxy bool
}

// NewChatHandler creates a new chat handler.
func NewChatHandler(svc *chat.Service, logger *slog.Logger, trustProxy bool) *ChatHandler {
	return &ChatHandler{svc: svc, logger: logger, trustProxy: trustProxy}
}

// RegisterRoutes registers chat routes on the given mux.
func (h *ChatHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/chat", h.handle)
}

// ChatRequest is the request body for POST /api/chat.
type ChatRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
	Persona   string `json:"persona,omitempty"`
}

// handle runs one message through the chat pipeline.
func (h *ChatHandler) handle(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "request body must be JSON")
		return
	}

	res, err := h.svc.HandleChat(r.Context(), req.SessionID, req.Message, req.Persona, clientIP(r, h.trustProxy))
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, res)
}
