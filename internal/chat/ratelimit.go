package chat

import (
	"sync"
	"time"
)

// Rate limiter defaults.
const (
	DefaultRateLimit  = 10
	DefaultRateWindow = 60 * time.Second
)

// Limiter is a per-client sliding-window request counter. Each check
// evicts timestamps older than the window before counting, so no
// background sweep is needed. A key that goes quiet keeps an empty
// slice around until its next check; acceptable at the client
// cardinality this service sees.
//
// Limiter is safe for concurrent use; check-then-record is one step
// under the mutex so concurrent requests from one client cannot
// undercount.
type Limiter struct {
	mu      sync.Mutex
	limit   int
	window  time.Duration
	clients map[string][]time.Time
}

// NewLimiter creates a Limiter allowing limit requests per window for
// each client key. Non-positive arguments fall back to the defaults.
func NewLimiter(limit int, window time.Duration) *Limiter {
	if limit <= 0 {
		limit = DefaultRateLimit
	}
	if window <= 0 {
		window = DefaultRateWindow
	}
	return &Limiter{
		limit:   limit,
		window:  window,
		clients: make(map[string][]time.Time),
	}
}

// Check records a request for key at now, or returns a *RateLimitError
// when the client already has limit requests inside the window.
func (l *Limiter) Check(key string, now time.Time) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := now.Add(-l.window)
	recent := l.clients[key][:0]
	for _, ts := range l.clients[key] {
		if ts.After(cutoff) {
			recent = append(recent, ts)
		}
	}

	if len(recent) >= l.limit {
		l.clients[key] = recent
		return &RateLimitError{
			Limit:      l.limit,
			Window:     l.window,
			RetryAfter: l.window - now.Sub(recent[0]),
		}
	}

	l.clients[key] = append(recent, now)
	return nil
}
