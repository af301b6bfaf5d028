// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package limiter provides the fixed-window throttles that guard challenge
// re-issuance, challenge verification and forgot-password requests.
//
// # Algorithm
//
// Each identifier owns a Redis counter. A single script increments the counter
// and gives it the window expiry whenever it has none, so a counter can never
// outlive its window. Every hit past MaxAttempts is rejected until the key expires.
//
// # Availability
//
// A Redis failure never blocks the caller. The hit is allowed and the failure
// is logged, so an outage degrades to unthrottled behaviour.
package limiter

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/taibuivan/minitube/internal/platform/apperr"
	"github.com/taibuivan/minitube/internal/platform/ctxutil"
)

// Limiter decides whether one more attempt is allowed for an identifier.
type Limiter interface {
	// Allow records an attempt and returns an [apperr.RateLimited] error when
	// the identifier has exhausted its window.
	Allow(ctx context.Context, identifier string) error
}

// Config tunes a fixed-window limiter.
type Config struct {
	// Prefix namespaces the Redis keys of this limiter.
	Prefix string
	// Window is the lifetime of a counter.
	Window time.Duration
	// MaxAttempts is the number of attempts allowed per window.
	MaxAttempts int
}

// Redis is a fixed-window [Limiter] backed by Redis.
type Redis struct {
	client redis.UniversalClient
	config Config
}

// NewRedis creates a Redis-backed limiter.
func NewRedis(client redis.UniversalClient, config Config) *Redis {
	return &Redis{client: client, config: config}
}

// hitScript increments KEYS[1] and sets its expiry to ARGV[1] milliseconds when
// it has none. It returns the new count and the remaining milliseconds.
var hitScript = redis.NewScript(`
local count = redis.call("INCR", KEYS[1])
local ttl = redis.call("PTTL", KEYS[1])
if ttl < 0 then
	redis.call("PEXPIRE", KEYS[1], ARGV[1])
	ttl = tonumber(ARGV[1])
end
return {count, ttl}
`)

// Allow implements [Limiter].
func (limiter *Redis) Allow(ctx context.Context, identifier string) error {
	key := limiter.config.Prefix + identifier

	count, remaining, err := limiter.hit(ctx, key)
	if err != nil {
		limiter.degrade(ctx, key, err)
		return nil
	}

	if count > int64(limiter.config.MaxAttempts) {
		return apperr.RateLimited(retryAfterSeconds(remaining, limiter.config.Window))
	}

	return nil
}

func (limiter *Redis) hit(ctx context.Context, key string) (int64, time.Duration, error) {
	values, err := hitScript.Run(ctx, limiter.client, []string{key}, limiter.config.Window.Milliseconds()).Int64Slice()
	if err != nil {
		return 0, 0, err
	}
	if len(values) != 2 {
		return 0, 0, fmt.Errorf("limiter_unexpected_reply: %v", values)
	}
	return values[0], time.Duration(values[1]) * time.Millisecond, nil
}

// retryAfterSeconds rounds remaining up to whole seconds, falling back to window.
func retryAfterSeconds(remaining, window time.Duration) int {
	if remaining <= 0 {
		remaining = window
	}
	return int(math.Ceil(remaining.Seconds()))
}

func (limiter *Redis) degrade(ctx context.Context, key string, err error) {
	ctxutil.GetLogger(ctx).WarnContext(ctx, "throttle_unavailable",
		slog.String("key", key),
		slog.Any("error", err),
	)
}

// Unlimited is a [Limiter] that allows every attempt.
type Unlimited struct{}

// Allow implements [Limiter].
func (Unlimited) Allow(context.Context, string) error { return nil }
