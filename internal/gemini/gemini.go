// Package gemini wraps the Google generative-language API behind the
// two calls the chat service needs: generating a reply from windowed
// history and summarizing a prompt into a session title.
package gemini

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/time/rate"
	"google.golang.org/genai"
)

// External-model roles. History handed to Generate must already be
// mapped onto these; the internal bot role does not exist upstream.
const (
	RoleUser  = "user"
	RoleModel = "model"
)

// Message is one history entry in external-model terms.
type Message struct {
	Role string
	Text string
}

// Config configures the client.
type Config struct {
	// APIKey authenticates against the Gemini API.
	APIKey string

	// Model generates chat replies. Default: gemini-2.5-flash.
	Model string

	// TitleModel generates session titles. A lighter model is fine
	// here. Default: gemini-2.5-flash-lite.
	TitleModel string

	// QPS caps outbound calls client-side so a burst of sessions does
	// not trip upstream quotas. Default: 2 calls/second, burst 4.
	QPS   float64
	Burst int
}

// Client talks to the Gemini API.
//
// Client is safe for concurrent use by multiple goroutines.
type Client struct {
	gc         *genai.Client
	model      string
	titleModel string
	limiter    *rate.Limiter
	logger     *slog.Logger
}

// New creates a Client. The underlying connection is lazy; an invalid
// key surfaces on the first call, classified as ErrAuth.
func New(ctx context.Context, cfg Config, logger *slog.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini: API key is required")
	}
	if cfg.Model == "" {
		cfg.Model = "gemini-2.5-flash"
	}
	if cfg.TitleModel == "" {
		cfg.TitleModel = "gemini-2.5-flash-lite"
	}
	if cfg.QPS <= 0 {
		cfg.QPS = 2
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 4
	}
	if logger == nil {
		logger = slog.Default()
	}

	gc, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: creating client: %w", err)
	}

	return &Client{
		gc:         gc,
		model:      cfg.Model,
		titleModel: cfg.TitleModel,
		limiter:    rate.NewLimiter(rate.Limit(cfg.QPS), cfg.Burst),
		logger:     logger,
	}, nil
}

// Generate produces a reply for message given the windowed history and
// the active persona's system prompt. The new message must not be part
// of history; it is appended as the final user turn here.
func (c *Client) Generate(ctx context.Context, history []Message, message, systemPrompt string) (string, error) {
	contents := make([]*genai.Content, 0, len(history)+1)
	for _, m := range history {
		role := genai.Role(genai.RoleModel)
		if m.Role == RoleUser {
			role = genai.RoleUser
		}
		contents = append(contents, genai.NewContentFromText(m.Text, role))
	}
	contents = append(contents, genai.NewContentFromText(message, genai.RoleUser))

	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(systemPrompt, genai.RoleUser),
	}

	return c.generate(ctx, c.model, contents, config)
}

// Summarize runs a single-shot prompt on the title model.
func (c *Client) Summarize(ctx context.Context, prompt string) (string, error) {
	contents := []*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)}
	return c.generate(ctx, c.titleModel, contents, nil)
}

func (c *Client) generate(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", classify(err)
	}

	resp, err := c.gc.Models.GenerateContent(ctx, model, contents, config)
	if err != nil {
		c.logger.Warn("generate content failed", "model", model, "error", err)
		return "", classify(err)
	}

	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("%w: empty candidate text", ErrMalformed)
	}
	return text, nil
}
