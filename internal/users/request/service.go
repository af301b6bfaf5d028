// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package request

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/taibuivan/minitube/internal/platform/apperr"
	"github.com/taibuivan/minitube/internal/platform/constants"
	"github.com/taibuivan/minitube/internal/platform/database"
	"github.com/taibuivan/minitube/internal/platform/sec"
	"github.com/taibuivan/minitube/internal/platform/validate"
	"github.com/taibuivan/minitube/internal/users/account"
	"github.com/taibuivan/minitube/pkg/uuid"
)

// tokenBytes is the entropy behind forgot-password and reset-password tokens.
const tokenBytes = 32

// Accounts is the subset of the account service used by the workflows.
type Accounts interface {
	FindByID(context context.Context, id string) (*account.Account, error)
	FindByEmail(context context.Context, email string) (*account.Account, error)
	UpdatePassword(context context.Context, id, password string) error
}

// # Service Layer

// Service drives the request workflows.
type Service struct {
	repository Repository
	accounts   Accounts
	transactor database.Transactor
	logger     *slog.Logger
	now        func() time.Time
}

// NewService constructs a new [Service]. A nil now means [time.Now].
func NewService(repository Repository, accounts Accounts, transactor database.Transactor, logger *slog.Logger, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{
		repository: repository,
		accounts:   accounts,
		transactor: transactor,
		logger:     logger,
		now:        now,
	}
}

// # Authority Upgrade

/*
RequestAuthorityUpgrade records a pending request to raise the authority of an account.

Description: Checks run in a fixed order: an existing request, a downgrade to
CLIENT, an account already at SUPERUSER, then a request that would not raise
the authority. Approval is out of band.

Parameters:
  - context: context.Context
  - refID: string (internal account ID)
  - desired: sec.Authority

Returns:
  - *Request: The pending request
  - error: account.ErrNotFound, ErrDuplicateRequest, ErrInvalidDowngrade,
    ErrAlreadyMaximal, ErrNoOp or persistence failures
*/
func (service *Service) RequestAuthorityUpgrade(context context.Context, refID string, desired sec.Authority) (*Request, error) {
	current, err := service.accounts.FindByID(context, refID)
	if err != nil {
		return nil, err
	}

	_, err = service.repository.FindByRefID(context, refID, TypeAuthorityUpgrade)
	switch {
	case err == nil:
		return nil, ErrDuplicateRequest
	case !errors.Is(err, ErrNotFound):
		return nil, fmt.Errorf("request_service_find_upgrade_failed: %w", err)
	}

	if err := checkUpgrade(current.Authority, desired); err != nil {
		return nil, err
	}

	currentTime := service.now()
	request := &Request{
		ID:                 uuid.New(),
		RefID:              refID,
		Type:               TypeAuthorityUpgrade,
		AuthorityToUpgrade: &desired,
		CreatedAt:          currentTime,
		UpdatedAt:          currentTime,
	}

	inserted, err := service.repository.InsertIfAbsent(context, request)
	if err != nil {
		return nil, fmt.Errorf("request_service_insert_upgrade_failed: %w", err)
	}
	if !inserted {
		return nil, ErrDuplicateRequest
	}

	service.logger.Info("authority_upgrade_requested",
		slog.String("account_id", refID),
		slog.String("from", current.Authority.String()),
		slog.String("to", desired.String()),
	)

	return request, nil
}

// checkUpgrade rejects upgrades that cannot raise current to desired.
func checkUpgrade(current, desired sec.Authority) error {
	switch {
	case desired == sec.AuthorityClient:
		return ErrInvalidDowngrade
	case current == sec.AuthoritySuper:
		return ErrAlreadyMaximal
	case current == sec.AuthorityAdministrator && !desired.AtLeast(sec.AuthoritySuper):
		return ErrNoOp
	case current == sec.AuthorityMidTier && desired == sec.AuthorityMidTier:
		return ErrNoOp
	}
	return nil
}

// # Password Reset

/*
ForgotPassword issues a forgot-password token for the account registered to email.

Returns:
  - *Reference: The token and the path that begins the reset
  - error: account.ErrNotFound or persistence failures
*/
func (service *Service) ForgotPassword(context context.Context, email string) (*Reference, error) {
	owner, err := service.accounts.FindByEmail(context, email)
	if err != nil {
		return nil, err
	}

	token, err := sec.RandomHex(tokenBytes)
	if err != nil {
		return nil, fmt.Errorf("request_service_token_failed: %w", err)
	}

	request, err := service.repository.UpsertForgotToken(context, owner.ID, token, service.now())
	if err != nil {
		return nil, fmt.Errorf("request_service_forgot_failed: %w", err)
	}

	service.logger.Info("password_reset_requested", slog.String("account_id", owner.ID))

	return &Reference{
		Token: request.ForgotPasswordToken,
		Path:  fmt.Sprintf(constants.ResetInitiationPath, request.ForgotPasswordToken),
	}, nil
}

/*
BeginReset exchanges a forgot-password token for a reset-password token.

Description: An outstanding unconsumed reset token is handed back again. A
consumed or missing one is replaced by a fresh token.

Returns:
  - *Reference: The reset token and the path that completes the reset
  - error: ErrNotFound or persistence failures
*/
func (service *Service) BeginReset(context context.Context, forgotToken string) (*Reference, error) {
	if forgotToken == "" {
		return nil, ErrNotFound
	}

	forgot, err := service.repository.FindByForgotToken(context, forgotToken)
	if err != nil {
		return nil, err
	}

	token, err := sec.RandomHex(tokenBytes)
	if err != nil {
		return nil, fmt.Errorf("request_service_token_failed: %w", err)
	}

	reset, err := service.repository.UpsertResetToken(context, forgot.RefID, token, service.now())
	if err != nil {
		return nil, fmt.Errorf("request_service_begin_reset_failed: %w", err)
	}

	return &Reference{
		Token: reset.ResetPasswordToken,
		Path:  fmt.Sprintf(constants.ResetCompletionPath, reset.ResetPasswordToken),
	}, nil
}

/*
CompleteReset consumes a reset-password token and stores the new password.

Description: A consumed token is rejected before the password is looked at.
Consumption and the password write commit together, so a token is spent only
when the password actually changed.

Returns:
  - error: ErrNotFound, ErrAlreadyUsed, ErrWeakPassword or persistence failures
*/
func (service *Service) CompleteReset(ctx context.Context, resetToken, password string) error {
	if resetToken == "" {
		return ErrNotFound
	}

	reset, err := service.repository.FindByResetToken(ctx, resetToken)
	if err != nil {
		return err
	}

	if reset.ResetStatus == ResetSet {
		return ErrAlreadyUsed
	}

	if !validate.IsStrongPassword(password) {
		return ErrWeakPassword
	}

	err = service.transactor.WithinTx(ctx, func(txCtx context.Context) error {
		consumed, err := service.repository.ConsumeReset(txCtx, reset.ID, service.now())
		if err != nil {
			return err
		}
		if !consumed {
			return ErrAlreadyUsed
		}
		return service.accounts.UpdatePassword(txCtx, reset.RefID, password)
	})
	if err != nil {
		if ae := apperr.As(err); ae != nil {
			return ae
		}
		return fmt.Errorf("request_service_complete_reset_failed: %w", err)
	}

	service.logger.Info("password_reset_completed", slog.String("account_id", reset.RefID))

	return nil
}
