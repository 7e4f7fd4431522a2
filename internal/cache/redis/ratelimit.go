package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RateLimiter implements fixed-window rate limiting on a Redis counter.
type RateLimiter struct {
	client *redis.Client
}

// NewRateLimiter creates a RateLimiter over the given client.
func NewRateLimiter(c *Client) *RateLimiter {
	return &RateLimiter{client: c.Underlying()}
}

// Allow increments the counter for key and reports whether the caller is
// still within limit for the current window. The window TTL is set on the
// first hit only, so the window is fixed rather than sliding.
func (rl *RateLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	pipe := rl.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.ExpireNX(ctx, key, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("redis: rate limit %s: %w", key, err)
	}
	return incr.Val() <= int64(limit), nil
}
