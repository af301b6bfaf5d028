// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package account

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/taibuivan/minitube/internal/platform/apperr"
	"github.com/taibuivan/minitube/internal/platform/database"
	"github.com/taibuivan/minitube/internal/platform/sec"
	"github.com/taibuivan/minitube/internal/platform/validate"
	"github.com/taibuivan/minitube/internal/users/verification"
	"github.com/taibuivan/minitube/pkg/uuid"
)

// # Service Layer

// Service orchestrates the account lifecycle.
//
// It owns the account row and its login history, and drives the verification
// service for the two challenges every account carries.
type Service struct {
	accountRepository  Repository
	loginLogRepository LoginLogRepository
	challenges         *verification.Service
	transactor         database.Transactor
	tokenizer          *sec.Tokenizer
	hasher             sec.PasswordHasher
	logger             *slog.Logger
	now                func() time.Time
}

// Dependencies groups the collaborators of [Service].
type Dependencies struct {
	Accounts   Repository
	LoginLogs  LoginLogRepository
	Challenges *verification.Service
	Transactor database.Transactor
	Tokenizer  *sec.Tokenizer
	Hasher     sec.PasswordHasher
	Logger     *slog.Logger
	// Now is the clock; nil means [time.Now].
	Now func() time.Time
}

// NewService constructs a new [Service] with its dependencies.
func NewService(deps Dependencies) *Service {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Service{
		accountRepository:  deps.Accounts,
		loginLogRepository: deps.LoginLogs,
		challenges:         deps.Challenges,
		transactor:         deps.Transactor,
		tokenizer:          deps.Tokenizer,
		hasher:             deps.Hasher,
		logger:             deps.Logger,
		now:                deps.Now,
	}
}

// # Registration

// Registration carries the fields of a new account.
type Registration struct {
	FirstName   string
	LastName    string
	Email       string
	CountryCode string
	Phone       string
	Password    string
}

// Created is the outcome of a successful registration.
type Created struct {
	Account    *Account
	EmailToken string
	OTP        string
}

/*
CheckAvailability reports the first identifier already registered, email first.

Parameters:
  - context: context.Context
  - identifiers: Identifiers

Returns:
  - Availability: FieldNone when both identifiers are free
  - error: Persistence failures
*/
func (service *Service) CheckAvailability(context context.Context, identifiers Identifiers) (Availability, error) {
	if identifiers.Email != "" {
		existing, err := service.accountRepository.FindByEmail(context, identifiers.Email)
		switch {
		case err == nil:
			return Availability{Field: FieldEmail, AccountID: existing.ID}, nil
		case !apperr.IsNotFound(err):
			return Availability{}, fmt.Errorf("account_service_availability_failed: %w", err)
		}
	}

	if identifiers.Phone != "" {
		existing, err := service.accountRepository.FindByPhone(context, identifiers.Phone)
		switch {
		case err == nil:
			return Availability{Field: FieldPhone, AccountID: existing.ID}, nil
		case !apperr.IsNotFound(err):
			return Availability{}, fmt.Errorf("account_service_availability_failed: %w", err)
		}
	}

	return Availability{Field: FieldNone}, nil
}

/*
Create registers a new account with CLIENT authority and both channels unverified.

Description: The account row, the email challenge, the phone challenge and the
provisioning stamp are written in one transaction, so a failure at any step
leaves no partial account behind.

Parameters:
  - ctx: context.Context
  - registration: Registration

Returns:
  - *Created: The account together with the initial email token and OTP
  - error: ErrInvalidInput, ErrEmailTaken, ErrPhoneTaken or persistence failures
*/
func (service *Service) Create(ctx context.Context, registration Registration) (*Created, error) {
	if err := validateRegistration(registration); err != nil {
		return nil, err
	}

	availability, err := service.CheckAvailability(ctx, Identifiers{
		Email: registration.Email,
		Phone: registration.Phone,
	})
	if err != nil {
		return nil, err
	}
	switch availability.Field {
	case FieldEmail:
		return nil, ErrEmailTaken
	case FieldPhone:
		return nil, ErrPhoneTaken
	}

	password, err := service.hasher.Hash(registration.Password)
	if err != nil {
		return nil, fmt.Errorf("account_service_hash_failed: %w", err)
	}

	account := &Account{
		ID:          uuid.New(),
		UID:         uuid.NewRandom(),
		FirstName:   registration.FirstName,
		LastName:    registration.LastName,
		Email:       registration.Email,
		CountryCode: registration.CountryCode,
		Phone:       registration.Phone,
		Password:    password,
		Authority:   sec.AuthorityClient,
		EmailStatus: verification.StatusNotVerified,
		PhoneStatus: verification.StatusNotVerified,
		CreatedAt:   service.now(),
	}

	created := &Created{Account: account}
	err = service.transactor.WithinTx(ctx, func(txCtx context.Context) error {
		if err := service.accountRepository.Create(txCtx, account); err != nil {
			return err
		}

		email, phone, err := service.provision(txCtx, account)
		if err != nil {
			return err
		}

		created.EmailToken = email.Secret
		created.OTP = phone.Secret
		return nil
	})
	if err != nil {
		if apperr.IsAppError(err) {
			return nil, err
		}
		return nil, fmt.Errorf("account_service_create_failed: %w", err)
	}

	service.logger.Info("account_created",
		slog.String("account_id", account.ID),
		slog.String("uid", account.UID),
	)

	return created, nil
}

func validateRegistration(registration Registration) error {
	validator := &validate.Validator{}
	validator.
		Required("firstName", registration.FirstName).
		Required("emailId", registration.Email).
		Required("phone", registration.Phone).
		Required("password", registration.Password).
		Email("emailId", registration.Email).
		Phone("phone", registration.Phone).
		StrongPassword("password", registration.Password).
		CountryCode("countryCode", registration.CountryCode)

	return validator.Err(ErrInvalidInput)
}

// provision ensures both challenges of account exist and stamps it as provisioned.
func (service *Service) provision(context context.Context, account *Account) (*verification.Challenge, *verification.Challenge, error) {
	email, _, err := service.challenges.EnsureChallenge(context, verification.ChannelEmail, account.Email, "", account.ID)
	if err != nil {
		return nil, nil, err
	}

	phone, _, err := service.challenges.EnsureChallenge(context, verification.ChannelPhone, account.Phone, account.CountryCode, account.ID)
	if err != nil {
		return nil, nil, err
	}

	provisionedAt := service.now()
	if err := service.accountRepository.MarkProvisioned(context, account.ID, provisionedAt); err != nil {
		return nil, nil, err
	}
	account.ProvisionedAt = &provisionedAt

	return email, phone, nil
}

// # Login

// Credentials identify an account by email or phone plus its password.
type Credentials struct {
	Email    string
	Phone    string
	Password string
}

// ClientMetadata describes the request a login arrived on.
type ClientMetadata struct {
	Headers map[string]string
	IP      string
}

// Session is the outcome of a successful login.
type Session struct {
	Account *Account
	Token   string
}

/*
Login authenticates an account and issues a bearer token.

Description: The account is looked up by email, or by phone when no email is
given. An unknown account and a wrong password are indistinguishable. Both
channels must be verified before a token is issued, and every successful login
is appended to the login history.

Parameters:
  - context: context.Context
  - credentials: Credentials
  - metadata: ClientMetadata

Returns:
  - *Session: The account and its bearer token
  - error: ErrInvalidInput, ErrNotFound, ErrNotVerified, ErrEmailNotVerified,
    ErrPhoneNotVerified or persistence failures
*/
func (service *Service) Login(context context.Context, credentials Credentials, metadata ClientMetadata) (*Session, error) {
	if (credentials.Email == "" && credentials.Phone == "") || credentials.Password == "" {
		return nil, ErrInvalidInput
	}

	var (
		account *Account
		err     error
	)
	if credentials.Email != "" {
		account, err = service.accountRepository.FindByEmail(context, credentials.Email)
	} else {
		account, err = service.accountRepository.FindByPhone(context, credentials.Phone)
	}
	if err != nil {
		return nil, err
	}

	if credentials.Phone != "" && credentials.Phone != account.Phone {
		return nil, ErrNotFound
	}
	if !service.hasher.Compare(account.Password, credentials.Password) {
		return nil, ErrNotFound
	}

	emailVerified := account.EmailStatus == verification.StatusVerified
	phoneVerified := account.PhoneStatus == verification.StatusVerified
	switch {
	case !emailVerified && !phoneVerified:
		return nil, ErrNotVerified
	case !emailVerified:
		return nil, ErrEmailNotVerified
	case !phoneVerified:
		return nil, ErrPhoneNotVerified
	}

	event := LoginEvent{Headers: metadata.Headers, IP: metadata.IP, At: service.now()}
	if err := service.loginLogRepository.Append(context, account.ID, event); err != nil {
		return nil, fmt.Errorf("account_service_login_log_failed: %w", err)
	}

	token, err := service.tokenizer.Issue(account.ID)
	if err != nil {
		return nil, fmt.Errorf("account_service_issue_token_failed: %w", err)
	}

	service.logger.Info("account_logged_in", slog.String("account_id", account.ID))

	return &Session{Account: account, Token: token}, nil
}

// # Verification

// FindByID retrieves an account by its internal ID.
func (service *Service) FindByID(context context.Context, id string) (*Account, error) {
	return service.accountRepository.FindByID(context, id)
}

// FindByEmail retrieves an account by its email.
func (service *Service) FindByEmail(context context.Context, email string) (*Account, error) {
	return service.accountRepository.FindByEmail(context, email)
}

// FindByPhone retrieves an account by its phone.
func (service *Service) FindByPhone(context context.Context, phone string) (*Account, error) {
	return service.accountRepository.FindByPhone(context, phone)
}

// findByAddress resolves the account registered for an email or phone.
func (service *Service) findByAddress(context context.Context, channel verification.Channel, address string) (*Account, error) {
	if channel == verification.ChannelPhone {
		return service.accountRepository.FindByPhone(context, address)
	}
	return service.accountRepository.FindByEmail(context, address)
}

// MarkVerified sets one channel of an account to VERIFIED. Repeating it is harmless.
func (service *Service) MarkVerified(context context.Context, id string, channel verification.Channel) error {
	return service.accountRepository.SetChannelStatus(context, id, channel, verification.StatusVerified)
}

/*
ReissueChallenge issues a fresh secret for the challenge registered to address.

Description: An account whose challenge is missing is repaired by provisioning
it, and the freshly created challenge is returned.

Returns:
  - *verification.Challenge: The challenge carrying the new secret
  - error: ErrNotFound, verification.ErrAlreadyVerified or persistence failures
*/
func (service *Service) ReissueChallenge(context context.Context, channel verification.Channel, address string) (*verification.Challenge, error) {
	account, err := service.findByAddress(context, channel, address)
	if err != nil {
		return nil, err
	}

	if account.ChannelStatus(channel) == verification.StatusVerified {
		return nil, verification.ErrAlreadyVerified
	}

	challenge, err := service.challenges.Reissue(context, channel, address)
	switch {
	case err == nil:
		return challenge, nil

	case errors.Is(err, verification.ErrNotFound):
		service.logger.Error("account_provisioning_incomplete",
			slog.String("account_id", account.ID),
			slog.String("channel", string(channel)),
		)
		return service.repairChannel(context, account, channel)

	case errors.Is(err, verification.ErrAlreadyVerified):
		if syncErr := service.MarkVerified(context, account.ID, channel); syncErr != nil {
			return nil, syncErr
		}
		return nil, err
	}

	return nil, err
}

// repairChannel provisions the missing challenges of account and returns the one for channel.
func (service *Service) repairChannel(ctx context.Context, account *Account, channel verification.Channel) (*verification.Challenge, error) {
	var email, phone *verification.Challenge
	err := service.transactor.WithinTx(ctx, func(txCtx context.Context) error {
		var err error
		email, phone, err = service.provision(txCtx, account)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("account_service_repair_failed: %w", err)
	}

	if channel == verification.ChannelPhone {
		return phone, nil
	}
	return email, nil
}

/*
Verify confirms the secret presented for the email or phone of an account.

Description: The challenge and the account status are flipped in one
transaction. A challenge found already verified brings the account status back
in line before ErrAlreadyVerified is returned.

Returns:
  - error: ErrNotFound, verification.ErrNotFound, verification.ErrAlreadyVerified,
    verification.ErrExpired, verification.ErrTokenMismatch or persistence failures
*/
func (service *Service) Verify(ctx context.Context, channel verification.Channel, address, presented string) (*Account, error) {
	account, err := service.findByAddress(ctx, channel, address)
	if err != nil {
		return nil, err
	}

	err = service.transactor.WithinTx(ctx, func(txCtx context.Context) error {
		if _, err := service.challenges.Confirm(txCtx, channel, account.ID, presented); err != nil {
			return err
		}
		return service.MarkVerified(txCtx, account.ID, channel)
	})

	if errors.Is(err, verification.ErrAlreadyVerified) && account.ChannelStatus(channel) != verification.StatusVerified {
		if syncErr := service.MarkVerified(ctx, account.ID, channel); syncErr != nil {
			return nil, syncErr
		}
	}
	if err != nil {
		if apperr.IsAppError(err) {
			return nil, apperr.As(err)
		}
		return nil, fmt.Errorf("account_service_verify_failed: %w", err)
	}

	if channel == verification.ChannelPhone {
		account.PhoneStatus = verification.StatusVerified
	} else {
		account.EmailStatus = verification.StatusVerified
	}

	service.logger.Info("account_channel_verified",
		slog.String("account_id", account.ID),
		slog.String("channel", string(channel)),
	)

	return account, nil
}

// # Credentials

// UpdatePassword hashes password and stores it for the account.
func (service *Service) UpdatePassword(context context.Context, id, password string) error {
	hashed, err := service.hasher.Hash(password)
	if err != nil {
		return fmt.Errorf("account_service_hash_failed: %w", err)
	}
	return service.accountRepository.UpdatePassword(context, id, hashed)
}

// # Provisioning Repair

/*
RepairProvisioning provisions accounts older than olderThan that were never
stamped as provisioned.

Parameters:
  - ctx: context.Context
  - olderThan: time.Duration (grace period for in-flight registrations)
  - limit: int (maximum accounts per run)

Returns:
  - int: Number of accounts repaired
  - error: Listing failure; per-account failures are logged and skipped
*/
func (service *Service) RepairProvisioning(ctx context.Context, olderThan time.Duration, limit int) (int, error) {
	accounts, err := service.accountRepository.FindUnprovisioned(ctx, service.now().Add(-olderThan), limit)
	if err != nil {
		return 0, fmt.Errorf("account_service_repair_list_failed: %w", err)
	}

	repaired := 0
	for _, account := range accounts {
		service.logger.Error("account_provisioning_incomplete", slog.String("account_id", account.ID))

		err := service.transactor.WithinTx(ctx, func(txCtx context.Context) error {
			_, _, err := service.provision(txCtx, account)
			return err
		})
		if err != nil {
			service.logger.Error("account_provisioning_repair_failed",
				slog.String("account_id", account.ID),
				slog.Any("error", err),
			)
			continue
		}
		repaired++
	}

	return repaired, nil
}
