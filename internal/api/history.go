package api

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/voyago/voyago/internal/chat"
)

// HistoryHandler serves read and purge endpoints over the turn log.
type HistoryHandler struct {
	svc    *chat.Service
	logger *slog.Logger
}

// NewHistoryHandler creates a new history handler.
func NewHistoryHandler(svc *chat.Service, logger *slog.Logger) *HistoryHandler {
	return &HistoryHandler{svc: svc, logger: logger}
}

// RegisterRoutes registers history routes on the given mux.
func (h *HistoryHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/history", h.history)
	mux.HandleFunc("GET /api/stats", h.stats)
	mux.HandleFunc("DELETE /api/clear", h.clear)
}

// history returns a session's conversational turns in order.
// Query parameters:
//   - session_id: required
//   - limit: maximum turns to return (default 200, max 2000)
func (h *HistoryHandler) history(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session_id")
	limit := parseIntParam(r, "limit", 0)

	turns, err := h.svc.History(r.Context(), sessionID, limit)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"session_id": sessionID,
		"turns":      turns,
		"total":      len(turns),
	})
}

// stats returns the turn count for one session, or globally when
// session_id is omitted.
func (h *HistoryHandler) stats(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session_id")

	count, err := h.svc.Stats(r.Context(), sessionID)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	resp := map[string]any{"turns": count}
	if sessionID != "" {
		resp["session_id"] = sessionID
	}
	writeJSON(w, http.StatusOK, resp)
}

// clear removes every turn of a session.
func (h *HistoryHandler) clear(w http.ResponseWriter, r *http.Request) {
	deleted, err := h.svc.Clear(r.Context(), r.URL.Query().Get("session_id"))
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]int64{"deleted": deleted})
}

// parseIntParam parses an integer query parameter, falling back to
// defaultVal on absence or garbage.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	str := r.URL.Query().Get(name)
	if str == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(str)
	if err != nil {
		return defaultVal
	}
	return val
}
