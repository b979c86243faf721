package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/voyago/voyago/internal/turn"
)

const (
	// fallbackTitle names sessions with no usable user input.
	fallbackTitle = "New Chat"

	// titleMaxLen caps stored titles.
	titleMaxLen = 50

	// titleWordLimit bounds the deterministic fallback title.
	titleWordLimit = 5

	// titleSourceMessages is how many non-greeting user messages feed
	// the summarization prompt.
	titleSourceMessages = 3
)

// maybeGenerateTitle applies the title trigger rules after the user
// turn has been persisted. userCount includes the current message.
//
//	U == 1 and the message is not a greeting -> first-impression title
//	U == 3                                   -> regenerate from accumulated context
//	anything else                            -> no action
//
// Returns whether a title was (re)generated. Never fails the request:
// generation errors fall back to a deterministic title, and a failed
// write is logged and dropped.
func (s *Service) maybeGenerateTitle(ctx context.Context, sessionID string, userCount int64, message string) bool {
	switch {
	case userCount == 1 && !IsGreeting(message):
	case userCount == 3:
	default:
		return false
	}

	title := s.generateTitle(ctx, sessionID)
	if err := s.persistTitle(ctx, sessionID, title); err != nil {
		s.logger.Warn("failed to persist session title",
			"session_id", sessionID, "error", err)
		return false
	}

	s.logger.Debug("session title set", "session_id", sessionID, "title", title)
	return true
}

// generateTitle produces a title from the first non-greeting user
// messages, asking the model first and falling back to a deterministic
// rule on any failure.
func (s *Service) generateTitle(ctx context.Context, sessionID string) string {
	sources := s.titleSources(ctx, sessionID)
	if len(sources) == 0 {
		return fallbackTitle
	}

	prompt := fmt.Sprintf(
		"Give a short, descriptive title (5 words maximum, no quotes) for a conversation that starts with: %s",
		strings.Join(sources, " | "))

	out, err := s.gen.Summarize(ctx, prompt)
	if err != nil {
		s.logger.Warn("title generation failed, using fallback",
			"session_id", sessionID, "error", err)
		return deterministicTitle(sources[0])
	}

	title := sanitizeTitle(out)
	if title == "" {
		return deterministicTitle(sources[0])
	}
	return title
}

// titleSources returns up to titleSourceMessages non-greeting user
// messages in conversation order.
func (s *Service) titleSources(ctx context.Context, sessionID string) []string {
	// Fetch a few extra so leading greetings don't starve the prompt.
	msgs, err := s.store.UserMessages(ctx, sessionID, titleSourceMessages*3)
	if err != nil {
		s.logger.Warn("failed to load title sources",
			"session_id", sessionID, "error", err)
		return nil
	}

	var sources []string
	for _, m := range msgs {
		if IsGreeting(m.Content) {
			continue
		}
		sources = append(sources, m.Content)
		if len(sources) == titleSourceMessages {
			break
		}
	}
	return sources
}

// persistTitle upserts the session's title marker. An existing marker
// is mutated in place, preserving its id and timestamp so recency
// ordering elsewhere is untouched; otherwise a new marker is appended.
func (s *Service) persistTitle(ctx context.Context, sessionID, title string) error {
	content := turn.TitlePrefix + title

	marker, err := s.store.TitleMarker(ctx, sessionID)
	switch {
	case err == nil:
		return s.store.UpdateContent(ctx, marker.ID, content)
	case errors.Is(err, turn.ErrNotFound):
		_, err := s.store.Append(ctx, &turn.Turn{
			SessionID: sessionID,
			Role:      turn.RoleSystem,
			Content:   content,
			Timestamp: s.now(),
		})
		return err
	default:
		return err
	}
}

// sanitizeTitle strips the quoting and whitespace models like to wrap
// titles in, flattens newlines, and truncates to titleMaxLen.
func sanitizeTitle(s string) string {
	s = strings.TrimSpace(s)
	s = strings.Trim(s, "\"'“”‘’")
	s = strings.Join(strings.Fields(s), " ")
	return strings.TrimSpace(truncateRunes(s, titleMaxLen))
}

// deterministicTitle derives a title from a message without the model:
// its first titleWordLimit words, with an ellipsis when truncated.
func deterministicTitle(message string) string {
	words := strings.Fields(message)
	if len(words) == 0 {
		return fallbackTitle
	}
	title := strings.Join(words[:min(len(words), titleWordLimit)], " ")
	if len(words) > titleWordLimit {
		title += "…"
	}
	return truncateRunes(title, titleMaxLen)
}
