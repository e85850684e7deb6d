package ports

import (
	"context"
	"time"
)

// RateLimiter gates authentication attempt volume. Counters are the only
// shared mutable state in the subsystem and may live in Redis so that the
// limit holds across serving instances.
type RateLimiter interface {
	// Allow consumes one unit for key. When the window's limit is exhausted
	// it returns ok=false and the duration until the window resets. A limiter
	// error fails closed: callers treat it as not allowed.
	Allow(ctx context.Context, key string) (ok bool, retryAfter time.Duration, err error)
}
