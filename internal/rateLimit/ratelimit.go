// Package rateLimit implements a fixed-window request limiter on redis.
package rateLimit

import (
	"context"
	"time"

	redisadapter "github.com/tickethub/ticket-inventory/internal/adapters/redis"
)

type RateLimiter struct {
	redis *redisadapter.Idempotency
}

func NewRateLimiter(redis *redisadapter.Idempotency) *RateLimiter {
	return &RateLimiter{redis: redis}
}

// Allow increments the window counter for key and reports whether the
// caller is still under rate. Redis failures fail open: inventory requests
// must not depend on the limiter being reachable.
func (rl *RateLimiter) Allow(ctx context.Context, key string, rate int, period time.Duration) bool {
	fullKey := "rl:" + key

	pipe := rl.redis.Client().Pipeline()
	incr := pipe.Incr(ctx, fullKey)
	pipe.Expire(ctx, fullKey, period)

	_, err := pipe.Exec(ctx)
	if err != nil {
		return true
	}

	return incr.Val() <= int64(rate)
}
