// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package verification

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/taibuivan/minitube/internal/platform/sec"
	"github.com/taibuivan/minitube/pkg/uuid"
)

// DefaultTTL is the lifetime of a challenge secret when none is configured.
const DefaultTTL = 12 * time.Hour

// emailTokenBytes is the entropy behind an email verification token.
const emailTokenBytes = 32

// Config tunes the challenge [Service].
type Config struct {
	// TTL is the lifetime of a freshly issued secret.
	TTL time.Duration
	// Now is the clock used for expiry; nil means [time.Now].
	Now func() time.Time
}

// # Service Layer

// Service implements the challenge lifecycle: provisioning, re-issuance and confirmation.
//
// It holds no per-call state. Every operation re-reads the challenge before
// mutating it and relies on conditional writes for concurrent callers.
type Service struct {
	repository Repository
	ttl        time.Duration
	now        func() time.Time
	logger     *slog.Logger
}

// NewService constructs a new [Service] with its repository dependency.
func NewService(repository Repository, config Config, logger *slog.Logger) *Service {
	if config.TTL <= 0 {
		config.TTL = DefaultTTL
	}
	if config.Now == nil {
		config.Now = time.Now
	}
	return &Service{
		repository: repository,
		ttl:        config.TTL,
		now:        config.Now,
		logger:     logger,
	}
}

/*
EnsureChallenge provisions the challenge of an account for one channel.

Description: If no challenge exists for the address or account a new one is
created with a fresh secret. An existing challenge is returned untouched.

Parameters:
  - context: context.Context
  - channel: Channel
  - address: string (email or phone)
  - countryCode: string (phone only, may be empty)
  - refID: string (account reference)

Returns:
  - *Challenge: The stored challenge
  - bool: true when a new challenge was created
  - error: Persistence failures
*/
func (service *Service) EnsureChallenge(context context.Context, channel Channel, address, countryCode, refID string) (*Challenge, bool, error) {
	secret, err := newSecret(channel)
	if err != nil {
		return nil, false, fmt.Errorf("verification_service_secret_failed: %w", err)
	}

	currentTime := service.now()
	challenge := &Challenge{
		ID:          uuid.New(),
		RefID:       refID,
		Channel:     channel,
		Address:     address,
		CountryCode: countryCode,
		Secret:      secret,
		ExpiresAt:   currentTime.Add(service.ttl),
		Status:      StatusNotVerified,
		CreatedAt:   currentTime,
	}

	stored, created, err := service.repository.InsertIfAbsent(context, challenge)
	if err != nil {
		return nil, false, fmt.Errorf("verification_service_ensure_failed: %w", err)
	}

	if created {
		service.logger.Info("challenge_provisioned",
			slog.String("channel", string(channel)),
			slog.String("ref_id", refID),
		)
	}

	return stored, created, nil
}

/*
Reissue replaces the secret and expiry of an outstanding challenge in place.

Returns:
  - *Challenge: The challenge carrying the new secret
  - error: ErrNotFound, ErrAlreadyVerified or persistence failures
*/
func (service *Service) Reissue(context context.Context, channel Channel, address string) (*Challenge, error) {
	challenge, err := service.repository.FindByAddress(context, channel, address)
	if err != nil {
		return nil, err
	}

	if challenge.IsVerified() {
		return nil, ErrAlreadyVerified
	}

	secret, err := newSecret(channel)
	if err != nil {
		return nil, fmt.Errorf("verification_service_secret_failed: %w", err)
	}
	expiresAt := service.now().Add(service.ttl)

	rearmed, err := service.repository.Rearm(context, channel, challenge.ID, secret, expiresAt)
	if err != nil {
		return nil, fmt.Errorf("verification_service_reissue_failed: %w", err)
	}

	// Lost the race against a confirmation.
	if !rearmed {
		return nil, ErrAlreadyVerified
	}

	challenge.Secret = secret
	challenge.ExpiresAt = expiresAt

	service.logger.Info("challenge_reissued",
		slog.String("channel", string(channel)),
		slog.String("ref_id", challenge.RefID),
	)

	return challenge, nil
}

/*
Confirm checks a presented secret against the challenge of an account.

Description: Checks run in a fixed order (missing, already verified, expired,
mismatch). The final flip is conditional, so replaying a correct secret yields
ErrAlreadyVerified after the first success.

Returns:
  - *Challenge: The verified challenge
  - error: ErrNotFound, ErrAlreadyVerified, ErrExpired, ErrTokenMismatch or persistence failures
*/
func (service *Service) Confirm(context context.Context, channel Channel, refID, presented string) (*Challenge, error) {
	challenge, err := service.repository.FindByRefID(context, channel, refID)
	if err != nil {
		return nil, err
	}

	if challenge.IsVerified() {
		return nil, ErrAlreadyVerified
	}

	currentTime := service.now()
	if currentTime.After(challenge.ExpiresAt) {
		return nil, ErrExpired
	}

	if !sec.SecureCompare(challenge.Secret, presented) {
		return nil, ErrTokenMismatch
	}

	flipped, err := service.repository.MarkVerified(context, channel, challenge.ID, currentTime)
	if err != nil {
		return nil, fmt.Errorf("verification_service_confirm_failed: %w", err)
	}
	if !flipped {
		return nil, ErrAlreadyVerified
	}

	challenge.Status = StatusVerified
	challenge.VerifiedOn = &currentTime

	service.logger.Info("challenge_confirmed",
		slog.String("channel", string(channel)),
		slog.String("ref_id", refID),
	)

	return challenge, nil
}

// newSecret generates the secret format of a channel.
func newSecret(channel Channel) (string, error) {
	if channel == ChannelPhone {
		return sec.RandomOTP()
	}
	return sec.RandomHex(emailTokenBytes)
}
