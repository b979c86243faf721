// Package turn provides the append-only conversation log backing voyago.
//
// A session is nothing more than the set of turns sharing a session id;
// titles are system-role marker turns inside the same log. The row id is
// the authoritative order within a session. Timestamps are recorded in
// a fixed civil timezone for display and must never drive ordering.
package turn

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Role identifies who produced a turn.
type Role string

// Valid roles. The set is closed at the API boundary; rows written by
// retired revisions of the service may still carry other tags.
const (
	RoleUser   Role = "user"
	RoleBot    Role = "bot"
	RoleSystem Role = "system"
)

// ParseRole validates a role tag coming from outside the process.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleUser, RoleBot, RoleSystem:
		return Role(s), nil
	default:
		return "", fmt.Errorf("unknown role %q", s)
	}
}

// TitlePrefix tags a system turn as the session's title marker.
const TitlePrefix = "[title]"

// ErrNotFound is returned when a lookup matches no turn.
var ErrNotFound = errors.New("turn not found")

// Turn is one stored message in a session's log.
type Turn struct {
	ID        int64     `json:"id"`
	SessionID string    `json:"session_id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Persona   string    `json:"persona,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// IsTitleMarker reports whether the turn carries the session title.
func (t *Turn) IsTitleMarker() bool {
	return t.Role == RoleSystem && strings.HasPrefix(t.Content, TitlePrefix)
}

// Title returns the title text of a marker turn, or "" for other turns.
func (t *Turn) Title() string {
	if !t.IsTitleMarker() {
		return ""
	}
	return strings.TrimPrefix(t.Content, TitlePrefix)
}
