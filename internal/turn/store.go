package turn

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// querier is the common interface satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// turnCols is the standard SELECT column list for scanTurns.
const turnCols = `id, session_id, role, content, persona, created_at`

// Store persists turns in PostgreSQL.
//
// Store is safe for concurrent use by multiple goroutines. Each append
// is individually atomic; no cross-turn transaction is held, so
// concurrent requests on the same session interleave in id order.
type Store struct {
	db     querier
	logger *slog.Logger
}

// NewStore creates a turn Store.
func NewStore(db querier, logger *slog.Logger) (*Store, error) {
	if db == nil {
		return nil, fmt.Errorf("db is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{db: db, logger: logger}, nil
}

// Append inserts a turn and returns the assigned id.
func (s *Store) Append(ctx context.Context, t *Turn) (int64, error) {
	var persona *string
	if t.Persona != "" {
		persona = &t.Persona
	}

	var id int64
	err := s.db.QueryRow(ctx,
		`INSERT INTO turns (session_id, role, content, persona, created_at)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id`,
		t.SessionID, string(t.Role), t.Content, persona, t.Timestamp,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("appending turn: %w", err)
	}

	t.ID = id
	s.logger.Debug("appended turn", "session_id", t.SessionID, "role", t.Role, "id", id)
	return id, nil
}

// Recent returns up to limit turns of a session in chronological order,
// selected newest-first by id. When beforeID > 0 only turns with a
// smaller id are considered, which lets callers window the history that
// existed before a given append.
func (s *Store) Recent(ctx context.Context, sessionID string, limit int, beforeID int64) ([]Turn, error) {
	query := `SELECT ` + turnCols + ` FROM turns WHERE session_id = $1`
	args := []any{sessionID}
	if beforeID > 0 {
		query += ` AND id < $2`
		args = append(args, beforeID)
	}
	query += fmt.Sprintf(` ORDER BY id DESC LIMIT %d`, limit)

	turns, err := s.scanTurns(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying recent turns: %w", err)
	}

	// Newest-first from the database; reverse to chronological.
	for i, j := 0, len(turns)-1; i < j; i, j = i+1, j-1 {
		turns[i], turns[j] = turns[j], turns[i]
	}
	return turns, nil
}

// History returns a session's turns in id order with system turns
// excluded. limit <= 0 means no limit.
func (s *Store) History(ctx context.Context, sessionID string, limit int) ([]Turn, error) {
	query := `SELECT ` + turnCols + ` FROM turns
		WHERE session_id = $1 AND role <> 'system'
		ORDER BY id ASC`
	if limit > 0 {
		query += fmt.Sprintf(` LIMIT %d`, limit)
	}

	turns, err := s.scanTurns(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("querying history: %w", err)
	}
	return turns, nil
}

// CountRole counts a session's turns with the given role.
func (s *Store) CountRole(ctx context.Context, sessionID string, role Role) (int64, error) {
	var n int64
	err := s.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM turns WHERE session_id = $1 AND role = $2`,
		sessionID, string(role),
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting %s turns: %w", role, err)
	}
	return n, nil
}

// UserMessages returns the first limit user turns of a session in id order.
func (s *Store) UserMessages(ctx context.Context, sessionID string, limit int) ([]Turn, error) {
	query := `SELECT ` + turnCols + ` FROM turns
		WHERE session_id = $1 AND role = 'user'
		ORDER BY id ASC`
	if limit > 0 {
		query += fmt.Sprintf(` LIMIT %d`, limit)
	}

	turns, err := s.scanTurns(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("querying user messages: %w", err)
	}
	return turns, nil
}

// TitleMarker returns the session's current title marker, resolving to
// the latest marker by id. Returns ErrNotFound when no title exists.
func (s *Store) TitleMarker(ctx context.Context, sessionID string) (*Turn, error) {
	row := s.db.QueryRow(ctx,
		`SELECT `+turnCols+` FROM turns
		 WHERE session_id = $1 AND role = 'system' AND content LIKE $2
		 ORDER BY id DESC LIMIT 1`,
		sessionID, TitlePrefix+"%",
	)

	t, err := scanTurn(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying title marker: %w", err)
	}
	return t, nil
}

// UpdateContent replaces a turn's content in place. The created_at
// column is deliberately untouched so recency sorting is not disturbed.
func (s *Store) UpdateContent(ctx context.Context, id int64, content string) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE turns SET content = $1 WHERE id = $2`, content, id)
	if err != nil {
		return fmt.Errorf("updating turn %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// LastTurn returns the session's most recent non-system turn, or
// ErrNotFound for sessions with no conversational turns.
func (s *Store) LastTurn(ctx context.Context, sessionID string) (*Turn, error) {
	row := s.db.QueryRow(ctx,
		`SELECT `+turnCols+` FROM turns
		 WHERE session_id = $1 AND role <> 'system'
		 ORDER BY id DESC LIMIT 1`,
		sessionID,
	)

	t, err := scanTurn(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying last turn: %w", err)
	}
	return t, nil
}

// Purge deletes every turn of a session and returns the count removed.
// Purging an unknown session returns zero without error.
func (s *Store) Purge(ctx context.Context, sessionID string) (int64, error) {
	tag, err := s.db.Exec(ctx, `DELETE FROM turns WHERE session_id = $1`, sessionID)
	if err != nil {
		return 0, fmt.Errorf("purging session %s: %w", sessionID, err)
	}

	deleted := tag.RowsAffected()
	s.logger.Debug("purged session", "session_id", sessionID, "deleted", deleted)
	return deleted, nil
}

// Count returns the number of stored turns, for one session or globally
// when sessionID is empty.
func (s *Store) Count(ctx context.Context, sessionID string) (int64, error) {
	var (
		n   int64
		err error
	)
	if sessionID == "" {
		err = s.db.QueryRow(ctx, `SELECT COUNT(*) FROM turns`).Scan(&n)
	} else {
		err = s.db.QueryRow(ctx,
			`SELECT COUNT(*) FROM turns WHERE session_id = $1`, sessionID).Scan(&n)
	}
	if err != nil {
		return 0, fmt.Errorf("counting turns: %w", err)
	}
	return n, nil
}

// SessionIDs returns every distinct session id in the log.
func (s *Store) SessionIDs(ctx context.Context) ([]string, error) {
	rows, err := s.db.Query(ctx, `SELECT DISTINCT session_id FROM turns`)
	if err != nil {
		return nil, fmt.Errorf("querying session ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning session id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating session ids: %w", err)
	}
	return ids, nil
}

func (s *Store) scanTurns(ctx context.Context, query string, args ...any) ([]Turn, error) {
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var turns []Turn
	for rows.Next() {
		t, err := scanTurn(rows)
		if err != nil {
			return nil, err
		}
		turns = append(turns, *t)
	}
	return turns, rows.Err()
}

// scanTurn scans one row into a Turn. The persona column is nullable on
// rows written before personas existed.
func scanTurn(row pgx.Row) (*Turn, error) {
	var (
		t       Turn
		role    string
		persona *string
	)
	if err := row.Scan(&t.ID, &t.SessionID, &role, &t.Content, &persona, &t.Timestamp); err != nil {
		return nil, err
	}
	t.Role = Role(role)
	if persona != nil {
		t.Persona = *persona
	}
	return &t, nil
}
