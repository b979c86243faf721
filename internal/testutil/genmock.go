package testutil

import (
	"context"
	"sync"

	"github.com/voyago/voyago/internal/gemini"
)

// GenerateCall records one Generate invocation.
type GenerateCall struct {
	History      []gemini.Message
	Message      string
	SystemPrompt string
}

// FakeGenerator is a scripted chat.Generator. Zero value replies with
// canned strings; set the error fields to exercise failure paths.
type FakeGenerator struct {
	mu sync.Mutex

	Reply        string
	GenerateErr  error
	Title        string
	SummarizeErr error

	GenerateCalls  []GenerateCall
	SummarizeCalls []string
}

// Generate records the call and returns the scripted reply or error.
func (g *FakeGenerator) Generate(_ context.Context, history []gemini.Message, message, systemPrompt string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.GenerateCalls = append(g.GenerateCalls, GenerateCall{
		History:      append([]gemini.Message(nil), history...),
		Message:      message,
		SystemPrompt: systemPrompt,
	})
	if g.GenerateErr != nil {
		return "", g.GenerateErr
	}
	if g.Reply == "" {
		return "fake reply", nil
	}
	return g.Reply, nil
}

// Summarize records the prompt and returns the scripted title or error.
func (g *FakeGenerator) Summarize(_ context.Context, prompt string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.SummarizeCalls = append(g.SummarizeCalls, prompt)
	if g.SummarizeErr != nil {
		return "", g.SummarizeErr
	}
	if g.Title == "" {
		return "Fake Title", nil
	}
	return g.Title, nil
}

// LastGenerate returns the most recent Generate call, or nil.
func (g *FakeGenerator) LastGenerate() *GenerateCall {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.GenerateCalls) == 0 {
		return nil
	}
	call := g.GenerateCalls[len(g.GenerateCalls)-1]
	return &call
}
