package gemini

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"google.golang.org/genai"
)

func TestClassify_APIErrorCodes(t *testing.T) {
	tests := []struct {
		name string
		code int
		want error
	}{
		{"unauthorized", 401, ErrAuth},
		{"forbidden", 403, ErrAuth},
		{"too many requests", 429, ErrQuota},
		{"request timeout", 408, ErrTimeout},
		{"gateway timeout", 504, ErrTimeout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := classify(genai.APIError{Code: tt.code, Message: "upstream"})
			if !errors.Is(err, tt.want) {
				t.Errorf("classify(code=%d) = %v, want %v", tt.code, err, tt.want)
			}
		})
	}
}

func TestClassify_DeadlineExceeded(t *testing.T) {
	err := classify(fmt.Errorf("calling api: %w", context.DeadlineExceeded))
	if !errors.Is(err, ErrTimeout) {
		t.Errorf("classify(deadline) = %v, want ErrTimeout", err)
	}
}

func TestClassify_UnknownFallsThroughToUpstream(t *testing.T) {
	cause := errors.New("connection reset")
	err := classify(cause)

	if !errors.Is(err, cause) {
		t.Error("classify must wrap the original error")
	}
	if !errors.Is(err, ErrUpstream) {
		t.Errorf("got %v, want ErrUpstream", err)
	}
	for _, sentinel := range []error{ErrAuth, ErrQuota, ErrTimeout, ErrMalformed} {
		if errors.Is(err, sentinel) {
			t.Errorf("generic error wrongly classified as %v", sentinel)
		}
	}
}

func TestClassify_ServerErrorNotAuth(t *testing.T) {
	err := classify(genai.APIError{Code: 500, Message: "internal"})
	if errors.Is(err, ErrAuth) || errors.Is(err, ErrQuota) || errors.Is(err, ErrTimeout) {
		t.Errorf("500 should map to ErrUpstream, got %v", err)
	}
	if !errors.Is(err, ErrUpstream) {
		t.Errorf("got %v, want ErrUpstream", err)
	}
}

func TestClassify_Nil(t *testing.T) {
	if classify(nil) != nil {
		t.Error("classify(nil) must be nil")
	}
}
