package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/genai"
)

// Sentinel error categories for upstream failures. Callers branch on
// these with errors.Is to choose a response status; the title path
// absorbs all of them.
var (
	// ErrAuth indicates the API rejected our credentials.
	ErrAuth = errors.New("gemini: authorization failed")

	// ErrQuota indicates upstream rate or quota exhaustion.
	ErrQuota = errors.New("gemini: quota exceeded")

	// ErrTimeout indicates the call did not finish in time.
	ErrTimeout = errors.New("gemini: request timed out")

	// ErrMalformed indicates a response with no usable text.
	ErrMalformed = errors.New("gemini: malformed response")

	// ErrUpstream wraps model failures that fit no finer category, so
	// callers can still tell them apart from local storage errors.
	ErrUpstream = errors.New("gemini: upstream failure")
)

// classify maps an upstream error onto the sentinel categories. Errors
// that fit no finer category fall through to ErrUpstream.
func classify(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}

	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case http.StatusUnauthorized, http.StatusForbidden:
			return fmt.Errorf("%w: %s", ErrAuth, apiErr.Message)
		case http.StatusTooManyRequests:
			return fmt.Errorf("%w: %s", ErrQuota, apiErr.Message)
		case http.StatusRequestTimeout, http.StatusGatewayTimeout:
			return fmt.Errorf("%w: %s", ErrTimeout, apiErr.Message)
		}
	}

	return fmt.Errorf("%w: %w", ErrUpstream, err)
}
