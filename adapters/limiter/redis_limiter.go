// Package limiter provides fixed-window rate limiting in front of the
// challenge and login endpoints.
package limiter

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/muralhq/walletgate/ports"
)

// RedisLimiter counts requests per key in Redis so the limit holds across
// serving instances. INCR creates the counter atomically; the expiry set on
// first increment defines the window.
type RedisLimiter struct {
	client *redis.Client
	prefix string
	limit  int64
	window time.Duration
}

// NewRedisLimiter creates a Redis-backed limiter allowing limit calls per
// window for each key.
func NewRedisLimiter(client *redis.Client, limit int, window time.Duration) ports.RateLimiter {
	return &RedisLimiter{
		client: client,
		prefix: "walletgate:ratelimit:",
		limit:  int64(limit),
		window: window,
	}
}

// Allow consumes one unit for key.
func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, time.Duration, error) {
	rkey := l.prefix + key

	count, err := l.client.Incr(ctx, rkey).Result()
	if err != nil {
		return false, 0, fmt.Errorf("failed to increment rate counter: %w", err)
	}

	if count == 1 {
		if err := l.client.PExpire(ctx, rkey, l.window).Err(); err != nil {
			return false, 0, fmt.Errorf("failed to arm rate window: %w", err)
		}
	}

	if count <= l.limit {
		return true, 0, nil
	}

	ttl, err := l.client.PTTL(ctx, rkey).Result()
	if err != nil || ttl < 0 {
		ttl = l.window
	}

	return false, ttl, nil
}
