package services

import (
	"context"
	"time"

	"corpsite/internal/observability"

	"github.com/redis/go-redis/v9"
)

// RateLimiter counts hits per key in fixed windows
type RateLimiter interface {
	// Allow records a hit for key and reports whether it is within the limit
	Allow(ctx context.Context, key string) bool
}

// RedisRateLimiter keeps one expiring counter per key and window. The counter
// and its expiry are written in one MULTI so a counter never outlives its
// window. Redis errors let the request through.
type RedisRateLimiter struct {
	client *redis.Client
	prefix string
	limit  int
	window time.Duration
	logger *observability.Logger
}

// NewRedisRateLimiter creates a limiter allowing limit hits per window
func NewRedisRateLimiter(client *redis.Client, prefix string, limit int, window time.Duration, logger *observability.Logger) *RedisRateLimiter {
	return &RedisRateLimiter{client: client, prefix: prefix, limit: limit, window: window, logger: logger}
}

func (r *RedisRateLimiter) Allow(ctx context.Context, key string) bool {
	if r.limit <= 0 {
		return true
	}

	fullKey := r.prefix + "ratelimit:" + key
	var incr *redis.IntCmd
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, fullKey)
		pipe.ExpireNX(ctx, fullKey, r.window)
		return nil
	})
	if err != nil {
		r.logger.Warn(ctx, "Rate limiter unavailable, allowing request", map[string]interface{}{
			"key":   key,
			"error": err.Error(),
		})
		return true
	}
	return incr.Val() <= int64(r.limit)
}
