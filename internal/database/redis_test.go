package database

import (
	"context"
	"testing"

	"corpsite/internal/config"
	"corpsite/internal/observability"
	contextutils "corpsite/internal/utils"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenRedis(t *testing.T) {
	logger := observability.NewLogger(&config.OpenTelemetryConfig{EnableLogging: false})
	ctx := context.Background()

	t.Run("disabled", func(t *testing.T) {
		client, err := OpenRedis(ctx, config.RedisConfig{}, logger)
		require.NoError(t, err)
		assert.Nil(t, client)
	})

	t.Run("invalid url", func(t *testing.T) {
		_, err := OpenRedis(ctx, config.RedisConfig{URL: "http://nope"}, logger)
		require.Error(t, err)
		assert.True(t, contextutils.IsError(err, contextutils.ErrInvalidInput))
	})

	t.Run("connects", func(t *testing.T) {
		mr := miniredis.RunT(t)
		client, err := OpenRedis(ctx, config.RedisConfig{URL: "redis://" + mr.Addr() + "/0"}, logger)
		require.NoError(t, err)
		defer func() { _ = client.Close() }()
		require.NoError(t, client.Set(ctx, "k", "v", 0).Err())
		got, err := mr.Get("k")
		require.NoError(t, err)
		assert.Equal(t, "v", got)
	})
}
