package services

import (
	"context"
	"time"

	contextutils "corpsite/internal/utils"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the lock only while it still holds our token
const releaseScript = `
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
else
	return 0
end`

// Locker grants short-lived exclusive leases across processes
type Locker interface {
	// Acquire returns acquired=false without error when another owner holds key.
	Acquire(ctx context.Context, key string, ttl time.Duration) (release func(context.Context) error, acquired bool, err error)
}

// RedisLocker implements Locker with SET NX and a compare-and-delete release
type RedisLocker struct {
	client *redis.Client
	prefix string
}

// NewRedisLocker creates a locker whose keys are namespaced by prefix
func NewRedisLocker(client *redis.Client, prefix string) *RedisLocker {
	return &RedisLocker{client: client, prefix: prefix}
}

func (l *RedisLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (func(context.Context) error, bool, error) {
	fullKey := l.prefix + "lock:" + key
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, fullKey, token, ttl).Result()
	if err != nil {
		return nil, false, contextutils.WrapErrorf(contextutils.ErrInternalError, "acquire lock %s: %v", key, err)
	}
	if !ok {
		return nil, false, nil
	}

	release := func(ctx context.Context) error {
		n, err := l.client.Eval(ctx, releaseScript, []string{fullKey}, token).Int()
		if err != nil {
			return contextutils.WrapErrorf(contextutils.ErrInternalError, "release lock %s: %v", key, err)
		}
		if n == 0 {
			return contextutils.ErrorWithContextf("lock %s expired before release", key)
		}
		return nil
	}
	return release, true, nil
}
