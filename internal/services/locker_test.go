package services

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMiniRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisLocker_ExclusiveUntilReleased(t *testing.T) {
	mr, client := newMiniRedis(t)
	locker := NewRedisLocker(client, "test:")
	ctx := context.Background()

	release, ok, err := locker.Acquire(ctx, "runner", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, mr.Exists("test:lock:runner"))

	_, ok, err = locker.Acquire(ctx, "runner", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, release(ctx))
	assert.False(t, mr.Exists("test:lock:runner"))

	_, ok, err = locker.Acquire(ctx, "runner", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisLocker_ReleaseAfterExpiryKeepsNewOwner(t *testing.T) {
	mr, client := newMiniRedis(t)
	locker := NewRedisLocker(client, "test:")
	ctx := context.Background()

	release, ok, err := locker.Acquire(ctx, "runner", time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	mr.FastForward(2 * time.Second)
	_, ok, err = locker.Acquire(ctx, "runner", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	assert.Error(t, release(ctx))
	assert.True(t, mr.Exists("test:lock:runner"))
}

func TestRedisLocker_ServerDown(t *testing.T) {
	mr, client := newMiniRedis(t)
	mr.Close()

	_, ok, err := NewRedisLocker(client, "").Acquire(context.Background(), "runner", time.Minute)
	assert.Error(t, err)
	assert.False(t, ok)
}

func TestRedisRateLimiter_Window(t *testing.T) {
	mr, client := newMiniRedis(t)
	limiter := NewRedisRateLimiter(client, "test:", 2, time.Hour, createTestLogger())
	ctx := context.Background()

	assert.True(t, limiter.Allow(ctx, "203.0.113.5"))
	assert.True(t, limiter.Allow(ctx, "203.0.113.5"))
	assert.False(t, limiter.Allow(ctx, "203.0.113.5"))
	assert.True(t, limiter.Allow(ctx, "198.51.100.7"))

	assert.Equal(t, time.Hour, mr.TTL("test:ratelimit:203.0.113.5"))
	mr.FastForward(time.Hour + time.Second)
	assert.True(t, limiter.Allow(ctx, "203.0.113.5"))
}

func TestRedisRateLimiter_CounterWithoutExpiryGetsWindow(t *testing.T) {
	mr, client := newMiniRedis(t)
	limiter := NewRedisRateLimiter(client, "test:", 2, time.Hour, createTestLogger())
	ctx := context.Background()

	// a counter left behind with no TTL must not block the address forever
	require.NoError(t, mr.Set("test:ratelimit:203.0.113.5", "5"))
	assert.Zero(t, mr.TTL("test:ratelimit:203.0.113.5"))

	assert.False(t, limiter.Allow(ctx, "203.0.113.5"))
	assert.Equal(t, time.Hour, mr.TTL("test:ratelimit:203.0.113.5"))

	// later hits in the window keep the original expiry
	mr.FastForward(30 * time.Minute)
	assert.False(t, limiter.Allow(ctx, "203.0.113.5"))
	assert.Equal(t, 30*time.Minute, mr.TTL("test:ratelimit:203.0.113.5"))

	mr.FastForward(31 * time.Minute)
	assert.True(t, limiter.Allow(ctx, "203.0.113.5"))
}

func TestRedisRateLimiter_FailsOpen(t *testing.T) {
	mr, client := newMiniRedis(t)
	limiter := NewRedisRateLimiter(client, "", 1, time.Hour, createTestLogger())
	mr.Close()

	assert.True(t, limiter.Allow(context.Background(), "a"))
	assert.True(t, limiter.Allow(context.Background(), "a"))
}

func TestRedisRateLimiter_ZeroLimitDisables(t *testing.T) {
	_, client := newMiniRedis(t)
	limiter := NewRedisRateLimiter(client, "", 0, time.Hour, createTestLogger())
	for i := 0; i < 5; i++ {
		assert.True(t, limiter.Allow(context.Background(), "a"))
	}
}
