// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package middleware

import (
	"context"
	"math"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/taibuivan/minitube/internal/platform/apperr"
	"github.com/taibuivan/minitube/internal/platform/constants"
	"github.com/taibuivan/minitube/internal/platform/respond"
)

// # Rate Limiting

// RateLimitConfig tunes the per-IP token bucket.
type RateLimitConfig struct {
	// RPS is the sustained rate allowed per IP.
	RPS float64
	// Burst is the bucket size.
	Burst int
	// IdleTTL is how long an idle IP keeps its bucket.
	IdleTTL time.Duration
}

// DefaultRateLimitConfig returns the limits applied to the user API.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		RPS:     constants.DefaultRateLimitRPS,
		Burst:   constants.DefaultRateLimitBurst,
		IdleTTL: constants.RateLimitClientTTL,
	}
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// ipBuckets holds one token bucket per client IP.
type ipBuckets struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	config  RateLimitConfig
}

func (buckets *ipBuckets) get(ip string, now time.Time) *rate.Limiter {
	buckets.mu.Lock()
	defer buckets.mu.Unlock()

	entry, found := buckets.buckets[ip]
	if !found {
		entry = &bucket{limiter: rate.NewLimiter(rate.Limit(buckets.config.RPS), buckets.config.Burst)}
		buckets.buckets[ip] = entry
	}
	entry.lastSeen = now
	return entry.limiter
}

func (buckets *ipBuckets) evictIdle(now time.Time) {
	buckets.mu.Lock()
	defer buckets.mu.Unlock()

	for ip, entry := range buckets.buckets {
		if now.Sub(entry.lastSeen) > buckets.config.IdleTTL {
			delete(buckets.buckets, ip)
		}
	}
}

/*
RateLimit rejects callers that exceed the per-IP token bucket with a 429.

Description: Idle buckets are evicted every [constants.RateLimitCleanupInterval]
until context is cancelled. The rejection carries Retry-After, the whole
seconds until one token is available again.

Parameters:
  - context: context.Context (stops the eviction loop)
  - config: RateLimitConfig
*/
func RateLimit(context context.Context, config RateLimitConfig) func(http.Handler) http.Handler {
	buckets := &ipBuckets{buckets: make(map[string]*bucket), config: config}

	go func() {
		ticker := time.NewTicker(constants.RateLimitCleanupInterval)
		defer ticker.Stop()

		for {
			select {
			case now := <-ticker.C:
				buckets.evictIdle(now)
			case <-context.Done():
				return
			}
		}
	}()

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			now := time.Now()
			reservation := buckets.get(RealIP(request), now).ReserveN(now, 1)

			if delay := reservation.DelayFrom(now); !reservation.OK() || delay > 0 {
				reservation.CancelAt(now)

				retryAfter := int(math.Max(1, math.Ceil(delay.Seconds())))
				respond.Failure(writer, apperr.RateLimited(retryAfter))
				return
			}

			next.ServeHTTP(writer, request)
		})
	}
}
