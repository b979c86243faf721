package chat

import (
	"fmt"
	"time"
)

// ValidationError reports request input rejected before any
// persistence happened.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func validationErr(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// RateLimitError reports a rejected request with the time remaining
// until the client's window frees a slot.
type RateLimitError struct {
	Limit      int
	Window     time.Duration
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded (%d requests per %s), retry in %s",
		e.Limit, e.Window, e.RetryAfter.Round(time.Second))
}
