// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package limiter_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/minitube/internal/platform/apperr"
	"github.com/taibuivan/minitube/internal/platform/limiter"
)

func newLimiter(t *testing.T, maxAttempts int) (*limiter.Redis, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return limiter.NewRedis(client, limiter.Config{
		Prefix:      "throttle:test:",
		Window:      time.Minute,
		MaxAttempts: maxAttempts,
	}), mr
}

func TestRedis_AllowsUpToMaxAttempts(t *testing.T) {
	throttle, mr := newLimiter(t, 3)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, throttle.Allow(ctx, "ann@x.com"))
	}

	err := throttle.Allow(ctx, "ann@x.com")
	ae := apperr.As(err)
	require.NotNil(t, ae)
	assert.Equal(t, apperr.CodeRateLimited, ae.Code)
	assert.Equal(t, 429, ae.HTTPStatus)

	assert.Equal(t, time.Minute, mr.TTL("throttle:test:ann@x.com"))
}

func TestRedis_IdentifiersAreIndependent(t *testing.T) {
	throttle, _ := newLimiter(t, 1)
	ctx := context.Background()

	require.NoError(t, throttle.Allow(ctx, "a"))
	require.NoError(t, throttle.Allow(ctx, "b"))
	assert.Error(t, throttle.Allow(ctx, "a"))
}

func TestRedis_WindowExpiry(t *testing.T) {
	throttle, mr := newLimiter(t, 1)
	ctx := context.Background()

	require.NoError(t, throttle.Allow(ctx, "a"))
	require.Error(t, throttle.Allow(ctx, "a"))

	mr.FastForward(time.Minute + time.Second)

	assert.NoError(t, throttle.Allow(ctx, "a"))
}

func TestRedis_CounterWithoutExpiryIsHealed(t *testing.T) {
	throttle, mr := newLimiter(t, 2)
	ctx := context.Background()

	require.NoError(t, mr.Set("throttle:test:a", "5"))

	err := throttle.Allow(ctx, "a")
	ae := apperr.As(err)
	require.NotNil(t, ae)
	assert.Equal(t, 60, ae.RetryAfter)
	assert.Equal(t, time.Minute, mr.TTL("throttle:test:a"))

	mr.FastForward(time.Minute + time.Second)
	assert.NoError(t, throttle.Allow(ctx, "a"))
}

func TestRedis_RetryAfterCountsDown(t *testing.T) {
	throttle, mr := newLimiter(t, 1)
	ctx := context.Background()

	require.NoError(t, throttle.Allow(ctx, "a"))
	mr.FastForward(45 * time.Second)

	ae := apperr.As(throttle.Allow(ctx, "a"))
	require.NotNil(t, ae)
	assert.Equal(t, 15, ae.RetryAfter)
	assert.Equal(t, 15*time.Second, mr.TTL("throttle:test:a"))
}

func TestRedis_FailsOpenWhenUnavailable(t *testing.T) {
	throttle, mr := newLimiter(t, 1)
	mr.Close()

	assert.NoError(t, throttle.Allow(context.Background(), "a"))
	assert.NoError(t, throttle.Allow(context.Background(), "a"))
}

func TestUnlimited(t *testing.T) {
	for i := 0; i < 10; i++ {
		assert.NoError(t, limiter.Unlimited{}.Allow(context.Background(), "a"))
	}
}
