package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"math"
	"net/http"
	"strconv"

	"github.com/voyago/voyago/internal/chat"
	"github.com/voyago/voyago/internal/gemini"
)

// writeJSON writes a JSON response with the given status code. The body
// is encoded into a buffer first so an encoding failure can still
// become a 500 instead of a half-written response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(data); err != nil {
		slog.Error("failed to encode JSON response", "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

// ErrorResponse is the JSON error body.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, err string, message string) {
	writeJSON(w, status, ErrorResponse{Error: err, Message: message})
}

// writeServiceError maps service-layer errors onto HTTP statuses.
//
//	validation          -> 400
//	client rate limit   -> 429 + Retry-After
//	model auth          -> 502
//	model quota         -> 429
//	model timeout       -> 504
//	other model failure -> 502
//	anything else       -> 500
func writeServiceError(w http.ResponseWriter, logger *slog.Logger, err error) {
	var ve *chat.ValidationError
	if errors.As(err, &ve) {
		writeError(w, http.StatusBadRequest, "validation_error", ve.Error())
		return
	}

	var rle *chat.RateLimitError
	if errors.As(err, &rle) {
		secs := int(math.Ceil(rle.RetryAfter.Seconds()))
		if secs < 1 {
			secs = 1
		}
		w.Header().Set("Retry-After", strconv.Itoa(secs))
		writeError(w, http.StatusTooManyRequests, "rate_limited", rle.Error())
		return
	}

	switch {
	case errors.Is(err, gemini.ErrAuth):
		logger.Error("model authorization failed", "error", err)
		writeError(w, http.StatusBadGateway, "model_auth", "model provider rejected our credentials")
	case errors.Is(err, gemini.ErrQuota):
		logger.Warn("model quota exhausted", "error", err)
		writeError(w, http.StatusTooManyRequests, "model_quota", "model provider quota exceeded, try again later")
	case errors.Is(err, gemini.ErrTimeout):
		logger.Warn("model request timed out", "error", err)
		writeError(w, http.StatusGatewayTimeout, "model_timeout", "model did not respond in time")
	case errors.Is(err, gemini.ErrUpstream), errors.Is(err, gemini.ErrMalformed):
		logger.Error("model request failed", "error", err)
		writeError(w, http.StatusBadGateway, "model_error", "model request failed")
	default:
		logger.Error("request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal", "internal server error")
	}
}
