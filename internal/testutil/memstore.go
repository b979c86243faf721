// Package testutil provides in-memory fakes and container helpers for
// tests. Production code must not import it.
package testutil

import (
	"context"
	"strings"
	"sync"

	"github.com/voyago/voyago/internal/turn"
)

// MemStore is an in-memory turn log implementing chat.TurnStore. IDs
// are assigned in append order starting at 1. FailOn forces an error
// for a named method, for exercising error paths.
type MemStore struct {
	mu     sync.Mutex
	nextID int64
	turns  []turn.Turn

	FailOn map[string]error
}

// NewMemStore creates an empty MemStore.
func NewMemStore() *MemStore {
	return &MemStore{nextID: 1}
}

func (m *MemStore) fail(method string) error {
	if err, ok := m.FailOn[method]; ok {
		return err
	}
	return nil
}

// Append stores a copy of t and returns its assigned id.
func (m *MemStore) Append(_ context.Context, t *turn.Turn) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("Append"); err != nil {
		return 0, err
	}

	stored := *t
	stored.ID = m.nextID
	m.nextID++
	m.turns = append(m.turns, stored)
	t.ID = stored.ID
	return stored.ID, nil
}

// Recent returns the last limit turns of a session with id < beforeID
// (no bound when beforeID <= 0), in chronological order.
func (m *MemStore) Recent(_ context.Context, sessionID string, limit int, beforeID int64) ([]turn.Turn, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("Recent"); err != nil {
		return nil, err
	}

	var out []turn.Turn
	for _, t := range m.turns {
		if t.SessionID != sessionID {
			continue
		}
		if beforeID > 0 && t.ID >= beforeID {
			continue
		}
		out = append(out, t)
	}
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

// History returns a session's non-system turns in id order.
func (m *MemStore) History(_ context.Context, sessionID string, limit int) ([]turn.Turn, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("History"); err != nil {
		return nil, err
	}

	var out []turn.Turn
	for _, t := range m.turns {
		if t.SessionID != sessionID || t.Role == turn.RoleSystem {
			continue
		}
		out = append(out, t)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// CountRole counts a session's turns with the given role.
func (m *MemStore) CountRole(_ context.Context, sessionID string, role turn.Role) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("CountRole"); err != nil {
		return 0, err
	}

	var n int64
	for _, t := range m.turns {
		if t.SessionID == sessionID && t.Role == role {
			n++
		}
	}
	return n, nil
}

// UserMessages returns a session's user turns in id order.
func (m *MemStore) UserMessages(_ context.Context, sessionID string, limit int) ([]turn.Turn, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("UserMessages"); err != nil {
		return nil, err
	}

	var out []turn.Turn
	for _, t := range m.turns {
		if t.SessionID != sessionID || t.Role != turn.RoleUser {
			continue
		}
		out = append(out, t)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// TitleMarker returns the most recent title marker of a session, or
// turn.ErrNotFound.
func (m *MemStore) TitleMarker(_ context.Context, sessionID string) (*turn.Turn, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("TitleMarker"); err != nil {
		return nil, err
	}

	for i := len(m.turns) - 1; i >= 0; i-- {
		t := m.turns[i]
		if t.SessionID == sessionID && strings.HasPrefix(t.Content, turn.TitlePrefix) {
			return &t, nil
		}
	}
	return nil, turn.ErrNotFound
}

// UpdateContent rewrites the content of the turn with the given id,
// leaving its timestamp alone.
func (m *MemStore) UpdateContent(_ context.Context, id int64, content string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("UpdateContent"); err != nil {
		return err
	}

	for i := range m.turns {
		if m.turns[i].ID == id {
			m.turns[i].Content = content
			return nil
		}
	}
	return turn.ErrNotFound
}

// LastTurn returns a session's latest non-system turn, or
// turn.ErrNotFound.
func (m *MemStore) LastTurn(_ context.Context, sessionID string) (*turn.Turn, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("LastTurn"); err != nil {
		return nil, err
	}

	for i := len(m.turns) - 1; i >= 0; i-- {
		t := m.turns[i]
		if t.SessionID == sessionID && t.Role != turn.RoleSystem {
			return &t, nil
		}
	}
	return nil, turn.ErrNotFound
}

// Purge removes every turn of a session and returns the removed count.
func (m *MemStore) Purge(_ context.Context, sessionID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("Purge"); err != nil {
		return 0, err
	}

	var kept []turn.Turn
	var removed int64
	for _, t := range m.turns {
		if t.SessionID == sessionID {
			removed++
			continue
		}
		kept = append(kept, t)
	}
	m.turns = kept
	return removed, nil
}

// Count counts one session's turns, or every turn when sessionID is
// empty.
func (m *MemStore) Count(_ context.Context, sessionID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("Count"); err != nil {
		return 0, err
	}

	if sessionID == "" {
		return int64(len(m.turns)), nil
	}
	var n int64
	for _, t := range m.turns {
		if t.SessionID == sessionID {
			n++
		}
	}
	return n, nil
}

// SessionIDs returns the distinct session ids in first-seen order.
func (m *MemStore) SessionIDs(_ context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("SessionIDs"); err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	var ids []string
	for _, t := range m.turns {
		if _, ok := seen[t.SessionID]; ok {
			continue
		}
		seen[t.SessionID] = struct{}{}
		ids = append(ids, t.SessionID)
	}
	return ids, nil
}

// Turns returns a copy of the stored log for assertions.
func (m *MemStore) Turns() []turn.Turn {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]turn.Turn, len(m.turns))
	copy(out, m.turns)
	return out
}
