// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package sec provides cryptographic primitives and token management.
//
// # Architecture
//
// This package isolates security-sensitive code (token signing, password
// hashing, secret generation) from the domain logic. The account core receives
// a [*Tokenizer] and a [PasswordHasher] as explicit dependencies.
//
// # Token Format
//
// A bearer token is self-contained: it carries its own signing secret.
//
//	<128 hex chars of secret>_!<HS256 JWT signed with that secret>
//
// The secret is never persisted, so there is no revocation list. A leaked token
// stays valid until it expires.
package sec

import (
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/taibuivan/minitube/internal/platform/apperr"
)

const (
	// TokenSeparator splits the embedded secret from the signed payload.
	TokenSeparator = "_!"

	// DefaultTokenTTL is the lifetime of a bearer token when none is configured.
	DefaultTokenTTL = 7 * 24 * time.Hour

	// tokenSecretBytes is the number of random bytes behind each per-token secret.
	tokenSecretBytes = 64
)

// ErrInvalidToken is returned for any token that cannot be decoded to a subject.
var ErrInvalidToken = apperr.Unauthorized("Invalid or expired token").WithReason("INVALID_TOKEN")

// TokenData is the application payload of a bearer token.
type TokenData struct {
	ID string `json:"id"`
}

// TokenClaims represents the payload embedded inside the signed half of a token.
type TokenClaims struct {
	jwt.RegisteredClaims

	Data TokenData `json:"data"`
}

// Tokenizer mints and decodes self-contained bearer tokens.
//
// # Concurrency
//
// Tokenizer holds no mutable state and is safe for concurrent use.
type Tokenizer struct {
	ttl time.Duration
	now func() time.Time
}

// NewTokenizer creates a Tokenizer whose tokens live for ttl.
// A nil clock falls back to [time.Now].
func NewTokenizer(ttl time.Duration, now func() time.Time) *Tokenizer {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	if now == nil {
		now = time.Now
	}
	return &Tokenizer{ttl: ttl, now: now}
}

// Issue mints a new token carrying subjectID under a freshly generated secret.
func (tokenizer *Tokenizer) Issue(subjectID string) (string, error) {
	secret, err := RandomHex(tokenSecretBytes)
	if err != nil {
		return "", fmt.Errorf("sec: failed to generate token secret: %w", err)
	}

	currentTime := tokenizer.now()
	claims := TokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(currentTime),
			ExpiresAt: jwt.NewNumericDate(currentTime.Add(tokenizer.ttl)),
		},
		Data: TokenData{ID: subjectID},
	}

	signedToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("sec: failed to sign token: %w", err)
	}

	return secret + TokenSeparator + signedToken, nil
}

// Decode verifies token against its embedded secret and returns the subject id.
//
// Every failure (missing separator, bad signature, foreign algorithm, malformed
// payload, expiry, empty subject) is reported as [ErrInvalidToken].
func (tokenizer *Tokenizer) Decode(token string) (string, error) {
	secret, signedToken, found := strings.Cut(token, TokenSeparator)
	if !found || secret == "" || signedToken == "" {
		return "", ErrInvalidToken
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(tokenizer.now),
	)

	claims := &TokenClaims{}
	parsed, err := parser.ParseWithClaims(signedToken, claims, func(*jwt.Token) (any, error) {
		return []byte(secret), nil
	})
	if err != nil || !parsed.Valid {
		return "", ErrInvalidToken
	}

	if claims.Data.ID == "" {
		return "", ErrInvalidToken
	}

	return claims.Data.ID, nil
}

// Refresh decodes token and mints a new one for the same subject.
func (tokenizer *Tokenizer) Refresh(token string) (string, error) {
	subjectID, err := tokenizer.Decode(token)
	if err != nil {
		return "", err
	}
	return tokenizer.Issue(subjectID)
}
