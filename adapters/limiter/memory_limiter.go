package limiter

import (
	"context"
	"sync"
	"time"

	"github.com/muralhq/walletgate/ports"
)

type window struct {
	count   int
	resetAt time.Time
}

// MemoryLimiter is the in-process twin of the Redis limiter, with identical
// fixed-window semantics. Suitable for tests and single-instance runs.
type MemoryLimiter struct {
	mu      sync.Mutex
	windows map[string]*window
	limit   int
	window  time.Duration
}

// NewMemoryLimiter creates an in-memory limiter allowing limit calls per
// window for each key.
func NewMemoryLimiter(limit int, windowSize time.Duration) *MemoryLimiter {
	return &MemoryLimiter{
		windows: make(map[string]*window),
		limit:   limit,
		window:  windowSize,
	}
}

var _ ports.RateLimiter = (*MemoryLimiter)(nil)

// Allow consumes one unit for key.
func (l *MemoryLimiter) Allow(ctx context.Context, key string) (bool, time.Duration, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	w, ok := l.windows[key]
	if !ok || now.After(w.resetAt) {
		w = &window{resetAt: now.Add(l.window)}
		l.windows[key] = w
	}

	w.count++
	if w.count <= l.limit {
		return true, 0, nil
	}

	return false, time.Until(w.resetAt), nil
}
