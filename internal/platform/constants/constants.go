// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package constants provides centralized, immutable values for the entire platform.

It defines default timeouts, rate limits, and cross-cutting keys that are shared
between different layers of the system.

Categories:

  - Server Timing: Read/Write/Idle timeouts for the HTTP server.
  - Rate Limiting: Burst capacities, IP tracking TTLs and throttle key prefixes.
  - Workflow: Reference paths handed out by the password reset flow.

Using this package ensures Magic Strings and Magic Numbers are eliminated
from the business logic.
*/
package constants

import "time"

// # Metadata

const (
	AppName    = "minitube-api"
	AppVersion = "0.1.0-dev"

	// PoweredBy is advertised on every response of the user API.
	PoweredBy = "MiniTube"
)

// # Server Timing

const (
	// DefaultReadTimeout is the maximum duration for reading the entire request.
	DefaultReadTimeout = 5 * time.Second

	// DefaultWriteTimeout is the maximum duration before timing out writes of the response.
	DefaultWriteTimeout = 10 * time.Second

	// DefaultIdleTimeout is the maximum amount of time to wait for the next request.
	DefaultIdleTimeout = 120 * time.Second

	// DefaultReadHeaderTimeout is the amount of time allowed to read request headers.
	DefaultReadHeaderTimeout = 2 * time.Second

	// GlobalRequestTimeout is the deadline for the entire request lifecycle.
	GlobalRequestTimeout = 30 * time.Second

	// ShutdownTimeout is how long we wait for in-flight requests to complete during shutdown.
	ShutdownTimeout = 30 * time.Second
)

// # Rate Limiting

const (
	// DefaultRateLimitRPS is the requests per second allowed per IP.
	DefaultRateLimitRPS = 100.0

	// DefaultRateLimitBurst is the maximum burst allowed for the rate limiter.
	DefaultRateLimitBurst = 150

	// RateLimitCleanupInterval is how often old IP entries are removed from memory.
	RateLimitCleanupInterval = 1 * time.Minute

	// RateLimitClientTTL is how long a client must be idle before its entry is deleted.
	RateLimitClientTTL = 3 * time.Minute
)

// # HTTP Headers

const (
	HeaderAuthorization = "Authorization"
	HeaderXRequestID    = "X-Request-ID"
	HeaderXRealIP       = "X-Real-IP"
	HeaderXForwardedFor = "X-Forwarded-For"
	HeaderOrigin        = "Origin"
	HeaderRetryAfter    = "Retry-After"
	HeaderXPoweredBy    = "X-Powered-By"
	HeaderContentType   = "Content-Type"

	ContentTypeJSON = "application/json; charset=utf-8"

	// BearerScheme is the authorization scheme accepted for session tokens.
	BearerScheme = "Bearer"
)

// # JSON Field Identifiers

const (
	FieldCode    = "code"
	FieldStatus  = "status"
	FieldApp     = "app"
	FieldVersion = "version"
	FieldChecks  = "checks"

	FieldStatusCode    = "statusCode"
	FieldStatusMessage = "statusMessage"
)

// # Database Schemas

const (
	SchemaUsers = "users"
)

// # Redis Prefixes (Throttle Taxonomy)

const (
	RedisPrefixChallengeIssue  = "throttle:challenge_issue:"
	RedisPrefixChallengeVerify = "throttle:challenge_verify:"
	RedisPrefixForgotPassword  = "throttle:forgot_password:"
)

// # Workflow References

const (
	// ResetInitiationPath is formatted with a forgot-password token.
	ResetInitiationPath = "/api/v1/user/request-reset-password/%s"

	// ResetCompletionPath is formatted with a reset-password token.
	ResetCompletionPath = "/api/v1/user/reset-password?resId=%s"
)
