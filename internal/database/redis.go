package database

import (
	"context"
	"time"

	"corpsite/internal/config"
	"corpsite/internal/observability"
	contextutils "corpsite/internal/utils"

	"github.com/redis/go-redis/v9"
)

const redisPingTimeout = 5 * time.Second

// OpenRedis connects to the configured Redis server. It returns a nil client
// when no URL is configured.
func OpenRedis(ctx context.Context, cfg config.RedisConfig, logger *observability.Logger) (*redis.Client, error) {
	if !cfg.Enabled() {
		return nil, nil
	}

	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, contextutils.WrapErrorf(contextutils.ErrInvalidInput, "invalid redis url: %v", err)
	}
	opts.PoolTimeout = 4 * time.Second
	opts.ConnMaxIdleTime = 5 * time.Minute
	opts.MaxRetries = 3

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, redisPingTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, contextutils.WrapErrorf(contextutils.ErrInternalError, "redis ping failed: %v", err)
	}

	logger.Info(ctx, "Redis connected", map[string]interface{}{"addr": opts.Addr, "db": opts.DB})
	return client, nil
}
