package chat

import (
	"context"

	"github.com/voyago/voyago/internal/gemini"
	"github.com/voyago/voyago/internal/turn"
)

// buildContext selects the most recent maxTurns turns that existed
// before beforeID and maps them onto external-model roles. System turns
// (title markers) are dropped. Output is chronological. The triggering
// message is not part of the window; the model receives it separately
// as the final turn.
func (s *Service) buildContext(ctx context.Context, sessionID string, maxTurns int, beforeID int64) ([]gemini.Message, error) {
	turns, err := s.store.Recent(ctx, sessionID, maxTurns, beforeID)
	if err != nil {
		return nil, err
	}

	history := make([]gemini.Message, 0, len(turns))
	for _, t := range turns {
		switch t.Role {
		case turn.RoleSystem:
			continue
		case turn.RoleUser:
			history = append(history, gemini.Message{Role: gemini.RoleUser, Text: t.Content})
		case turn.RoleBot:
			history = append(history, gemini.Message{Role: gemini.RoleModel, Text: t.Content})
		default:
			// Rows from retired revisions can carry role tags the
			// closed enum no longer admits; they read as model turns.
			history = append(history, gemini.Message{Role: gemini.RoleModel, Text: t.Content})
		}
	}
	return history, nil
}
