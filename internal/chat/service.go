// Package chat implements the conversational core of voyago: persisting
// turns, windowing history for the model, deriving session titles, and
// enforcing per-client rate limits.
//
// The package owns the rules; storage and generation are collaborators
// behind the TurnStore and Generator interfaces so the logic tests
// against in-memory fakes.
package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/voyago/voyago/internal/gemini"
	"github.com/voyago/voyago/internal/persona"
	"github.com/voyago/voyago/internal/turn"
)

// Input limits for inbound messages. Generated content is unbounded.
const (
	MinMessageLen = 1
	MaxMessageLen = 5000
)

// DefaultMaxHistoryTurns bounds the conversation slice sent upstream.
// Started at 40 and has been raised as model context windows grew.
const DefaultMaxHistoryTurns = 200

// TurnStore is the persistence contract the service needs. Implemented
// by *turn.Store; tests use an in-memory fake.
type TurnStore interface {
	Append(ctx context.Context, t *turn.Turn) (int64, error)
	Recent(ctx context.Context, sessionID string, limit int, beforeID int64) ([]turn.Turn, error)
	History(ctx context.Context, sessionID string, limit int) ([]turn.Turn, error)
	CountRole(ctx context.Context, sessionID string, role turn.Role) (int64, error)
	UserMessages(ctx context.Context, sessionID string, limit int) ([]turn.Turn, error)
	TitleMarker(ctx context.Context, sessionID string) (*turn.Turn, error)
	UpdateContent(ctx context.Context, id int64, content string) error
	LastTurn(ctx context.Context, sessionID string) (*turn.Turn, error)
	Purge(ctx context.Context, sessionID string) (int64, error)
	Count(ctx context.Context, sessionID string) (int64, error)
	SessionIDs(ctx context.Context) ([]string, error)
}

// Generator is the external-model contract.
type Generator interface {
	Generate(ctx context.Context, history []gemini.Message, message, systemPrompt string) (string, error)
	Summarize(ctx context.Context, prompt string) (string, error)
}

// Config tunes the service.
type Config struct {
	// MaxHistoryTurns bounds the history window. Default 200.
	MaxHistoryTurns int

	// RateLimit / RateWindow configure the per-client limiter.
	RateLimit  int
	RateWindow time.Duration

	// Location is the civil timezone turns are stamped with. Defaults
	// to UTC; the deployed service runs Asia/Kolkata.
	Location *time.Location
}

// Service implements the chat operations consumed by the HTTP layer.
type Service struct {
	store      TurnStore
	gen        Generator
	personas   *persona.Registry
	limiter    *Limiter
	maxHistory int
	now        func() time.Time
	logger     *slog.Logger
}

// NewService creates a Service.
func NewService(store TurnStore, gen Generator, reg *persona.Registry, cfg Config, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if reg == nil {
		reg = persona.NewRegistry()
	}
	maxHistory := cfg.MaxHistoryTurns
	if maxHistory <= 0 {
		maxHistory = DefaultMaxHistoryTurns
	}
	loc := cfg.Location
	if loc == nil {
		loc = time.UTC
	}

	return &Service{
		store:      store,
		gen:        gen,
		personas:   reg,
		limiter:    NewLimiter(cfg.RateLimit, cfg.RateWindow),
		maxHistory: maxHistory,
		now:        func() time.Time { return time.Now().In(loc) },
		logger:     logger,
	}
}

// ChatResult is the outcome of one handled message.
type ChatResult struct {
	Reply          string `json:"reply"`
	TitleGenerated bool   `json:"title_generated"`
}

// HandleChat runs the full pipeline for one inbound message: rate
// limit, persist the user turn, title decision, history windowing,
// model call, persist the reply.
//
// When the model call fails the already-persisted user turn is kept and
// no bot turn is written; a retry of the same message completes the
// session state.
func (s *Service) HandleChat(ctx context.Context, sessionID, message, personaKey, clientKey string) (*ChatResult, error) {
	sessionID = strings.TrimSpace(sessionID)
	message = strings.TrimSpace(message)

	if sessionID == "" {
		return nil, validationErr("session_id", "required")
	}
	if message == "" {
		return nil, validationErr("message", "empty message")
	}
	if utf8.RuneCountInString(message) > MaxMessageLen {
		return nil, validationErr("message", fmt.Sprintf("longer than %d characters", MaxMessageLen))
	}
	if personaKey != "" && !s.personas.Valid(personaKey) {
		return nil, validationErr("persona", fmt.Sprintf("unknown persona %q", personaKey))
	}

	if err := s.limiter.Check(clientKey, s.now()); err != nil {
		return nil, err
	}

	p := s.personas.Resolve(personaKey)

	userTurn := &turn.Turn{
		SessionID: sessionID,
		Role:      turn.RoleUser,
		Content:   message,
		Persona:   p.ID,
		Timestamp: s.now(),
	}
	userID, err := s.store.Append(ctx, userTurn)
	if err != nil {
		return nil, fmt.Errorf("persisting user turn: %w", err)
	}

	userCount, err := s.store.CountRole(ctx, sessionID, turn.RoleUser)
	if err != nil {
		return nil, fmt.Errorf("counting user turns: %w", err)
	}

	titleGenerated := s.maybeGenerateTitle(ctx, sessionID, userCount, message)

	history, err := s.buildContext(ctx, sessionID, s.maxHistory, userID)
	if err != nil {
		return nil, fmt.Errorf("building history window: %w", err)
	}

	reply, err := s.gen.Generate(ctx, history, message, p.Prompt)
	if err != nil {
		// The user turn stays; the session is retryable.
		return nil, err
	}

	botTurn := &turn.Turn{
		SessionID: sessionID,
		Role:      turn.RoleBot,
		Content:   reply,
		Persona:   p.ID,
		Timestamp: s.now(),
	}
	if _, err := s.store.Append(ctx, botTurn); err != nil {
		return nil, fmt.Errorf("persisting bot turn: %w", err)
	}

	s.logger.Debug("handled chat",
		"session_id", sessionID,
		"persona", p.ID,
		"user_turns", userCount,
		"title_generated", titleGenerated)

	return &ChatResult{Reply: reply, TitleGenerated: titleGenerated}, nil
}

// History returns a session's conversational turns in id order. System
// turns never appear. limit <= 0 uses the default of 200, capped at 2000.
func (s *Service) History(ctx context.Context, sessionID string, limit int) ([]turn.Turn, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, validationErr("session_id", "required")
	}
	if limit <= 0 {
		limit = 200
	}
	if limit > 2000 {
		limit = 2000
	}
	return s.store.History(ctx, sessionID, limit)
}

// Stats returns the turn count for one session, or globally when
// sessionID is empty.
func (s *Service) Stats(ctx context.Context, sessionID string) (int64, error) {
	return s.store.Count(ctx, strings.TrimSpace(sessionID))
}

// Clear removes every turn of a session and returns the deleted count.
// Clearing an unknown session is a zero-count no-op.
func (s *Service) Clear(ctx context.Context, sessionID string) (int64, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return 0, validationErr("session_id", "required")
	}
	return s.store.Purge(ctx, sessionID)
}

// CreateSession mints a new session id. When a title is given a marker
// turn is written immediately; otherwise the session has no turns until
// the first message arrives.
func (s *Service) CreateSession(ctx context.Context, title, personaKey string) (string, error) {
	if personaKey != "" && !s.personas.Valid(personaKey) {
		return "", validationErr("persona", fmt.Sprintf("unknown persona %q", personaKey))
	}

	sessionID := uuid.NewString()
	if title = strings.TrimSpace(title); title != "" {
		if err := s.persistTitle(ctx, sessionID, truncateRunes(title, titleMaxLen)); err != nil {
			return "", err
		}
	}
	return sessionID, nil
}

// Rename sets a session's title, replacing the current marker in place
// so only one live marker ever exists per session.
func (s *Service) Rename(ctx context.Context, sessionID, title string) error {
	sessionID = strings.TrimSpace(sessionID)
	title = strings.TrimSpace(title)
	if sessionID == "" {
		return validationErr("session_id", "required")
	}
	if title == "" {
		return validationErr("title", "required")
	}
	return s.persistTitle(ctx, sessionID, truncateRunes(title, titleMaxLen))
}

// DeleteSession removes all turns of a session.
func (s *Service) DeleteSession(ctx context.Context, sessionID string) (int64, error) {
	return s.Clear(ctx, sessionID)
}

// Personas lists the registered personas in stable order.
func (s *Service) Personas() []persona.Persona {
	return s.personas.List()
}

// SessionSummary is one row of the session listing.
type SessionSummary struct {
	SessionID    string    `json:"session_id"`
	Title        string    `json:"title"`
	Persona      string    `json:"persona"`
	Preview      string    `json:"preview"`
	LastActivity time.Time `json:"last_activity"`
}

const previewMaxLen = 60

// ListSessions aggregates the turn log into per-session summaries,
// newest activity first. Sessions and titles are derived views over the
// log; there is no separate session table.
func (s *Service) ListSessions(ctx context.Context) ([]SessionSummary, error) {
	ids, err := s.store.SessionIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}

	summaries := make([]SessionSummary, 0, len(ids))
	for _, id := range ids {
		summary, err := s.summarize(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("summarizing session %s: %w", id, err)
		}
		summaries = append(summaries, summary)
	}

	// Newest first; sessions with no conversational turns carry the
	// zero time and sort last.
	sort.SliceStable(summaries, func(i, j int) bool {
		return summaries[i].LastActivity.After(summaries[j].LastActivity)
	})
	return summaries, nil
}

func (s *Service) summarize(ctx context.Context, sessionID string) (SessionSummary, error) {
	summary := SessionSummary{
		SessionID: sessionID,
		Title:     fallbackTitle,
		Persona:   persona.DefaultID,
	}

	firstUser, err := s.store.UserMessages(ctx, sessionID, 1)
	if err != nil {
		return summary, err
	}
	if len(firstUser) > 0 {
		summary.Title = deterministicTitle(firstUser[0].Content)
		summary.Preview = truncateRunes(firstUser[0].Content, previewMaxLen)
	}

	marker, err := s.store.TitleMarker(ctx, sessionID)
	switch {
	case err == nil:
		summary.Title = marker.Title()
	case !errors.Is(err, turn.ErrNotFound):
		return summary, err
	}

	last, err := s.store.LastTurn(ctx, sessionID)
	switch {
	case err == nil:
		summary.LastActivity = last.Timestamp
		if last.Persona != "" {
			summary.Persona = last.Persona
		}
	case !errors.Is(err, turn.ErrNotFound):
		return summary, err
	}

	return summary, nil
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
