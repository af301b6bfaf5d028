// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package verification owns the email and phone ownership challenges.

A challenge is created once per account and channel, re-armed in place when the
owner asks for a new secret, and flipped to VERIFIED exactly once. Challenges are
never deleted; the table doubles as an audit trail.

# Secrets

  - Email: 32 random bytes, hex encoded.
  - Phone: six-digit OTP drawn uniformly from 100000..999999.

Expiry is evaluated lazily at confirmation time. There is no background sweep.
*/
package verification

import (
	"time"

	"github.com/taibuivan/minitube/internal/platform/apperr"
)

// # Domain Types

// Channel identifies the address type a challenge proves ownership of.
type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelPhone Channel = "phone"
)

// Status is the verification state of a challenge or of an account channel.
type Status string

const (
	StatusNotVerified Status = "NOTVERIFIED"
	StatusVerified    Status = "VERIFIED"
)

// Challenge is the per-channel verification record of an account.
type Challenge struct {
	ID          string     `json:"id"`
	RefID       string     `json:"refId"`
	Channel     Channel    `json:"channel"`
	Address     string     `json:"address"`
	CountryCode string     `json:"countryCode,omitempty"`
	Secret      string     `json:"-"`
	ExpiresAt   time.Time  `json:"expiresAt"`
	Status      Status     `json:"status"`
	VerifiedOn  *time.Time `json:"verifiedOn,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
}

// IsVerified reports whether the challenge has been confirmed.
func (challenge *Challenge) IsVerified() bool {
	return challenge.Status == StatusVerified
}

// # Domain Errors

var (
	// ErrNotFound is returned when no challenge exists for an address or account.
	ErrNotFound = apperr.NotFound("Verification").WithReason("CHALLENGE_NOT_FOUND")

	// ErrAlreadyVerified is returned when the challenge was already confirmed.
	ErrAlreadyVerified = apperr.Conflict("Already verified").WithReason("ALREADY_VERIFIED")

	// ErrExpired is returned when the challenge window has passed.
	ErrExpired = apperr.Expired("Verification token has expired")

	// ErrTokenMismatch is returned when the presented secret differs from the stored one.
	ErrTokenMismatch = apperr.ValidationError("Verification token does not match").WithReason("TOKEN_MISMATCH")
)
