// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package account manages user accounts: registration, login, identifier
availability, profile projection and the per-channel verification status.

# Architecture

  - Entities: Account, LoginEvent, Availability.
  - Domain: Registration provisions both verification challenges in the same
    transaction as the account row, through the verification package.
  - Security: Passwords are stored in the form produced by the injected
    [sec.PasswordHasher] and are never serialized.
*/
package account

import (
	"context"
	"time"

	"github.com/taibuivan/minitube/internal/platform/apperr"
	"github.com/taibuivan/minitube/internal/platform/sec"
	"github.com/taibuivan/minitube/internal/users/verification"
)

// # Domain Entities

// Account represents a registered user.
//
// ID is internal and references every dependent row. UID is the public
// identifier returned to clients.
type Account struct {
	ID            string              `json:"-"`
	UID           string              `json:"id"`
	FirstName     string              `json:"firstName"`
	LastName      string              `json:"lastName,omitempty"`
	Email         string              `json:"emailId"`
	CountryCode   string              `json:"countryCode,omitempty"`
	Phone         string              `json:"phone"`
	Password      string              `json:"-"`
	Authority     sec.Authority       `json:"-"`
	EmailStatus   verification.Status `json:"-"`
	PhoneStatus   verification.Status `json:"-"`
	ProvisionedAt *time.Time          `json:"-"`
	CreatedAt     time.Time           `json:"createdAt"`
}

// ChannelStatus returns the verification status of one channel.
func (account *Account) ChannelStatus(channel verification.Channel) verification.Status {
	if channel == verification.ChannelPhone {
		return account.PhoneStatus
	}
	return account.EmailStatus
}

// Address returns the email or phone registered for one channel.
func (account *Account) Address(channel verification.Channel) string {
	if channel == verification.ChannelPhone {
		return account.Phone
	}
	return account.Email
}

// LoginEvent records the request metadata of one successful login.
type LoginEvent struct {
	Headers map[string]string `json:"headers"`
	IP      string            `json:"ip"`
	At      time.Time         `json:"at"`
}

// Identifiers names the unique fields checked by [Service.CheckAvailability].
type Identifiers struct {
	Email string
	Phone string
}

// Field names the first identifier found to be taken.
type Field string

const (
	FieldNone  Field = "none"
	FieldEmail Field = "emailId"
	FieldPhone Field = "phone"
)

// Availability reports which identifier, if any, is already registered.
type Availability struct {
	Field     Field
	AccountID string
}

// Available reports whether no identifier is taken.
func (availability Availability) Available() bool {
	return availability.Field == FieldNone
}

// # Domain Errors

var (
	ErrNotFound         = apperr.NotFound("Account")
	ErrInvalidInput     = apperr.ValidationError("Provided credentials are missing or incorrect")
	ErrEmailTaken       = apperr.Conflict("An account with this email already exists").WithReason("EMAIL_TAKEN")
	ErrPhoneTaken       = apperr.Conflict("An account with this phone already exists").WithReason("PHONE_TAKEN")
	ErrNotVerified      = apperr.Conflict("Email and Phone are not verified").WithReason("NOT_VERIFIED")
	ErrEmailNotVerified = apperr.Conflict("Email is not verified").WithReason("EMAIL_NOT_VERIFIED")
	ErrPhoneNotVerified = apperr.Conflict("Phone number is not verified").WithReason("PHONE_NOT_VERIFIED")
)

// # Repository Contracts

// Repository defines the persistence contract for accounts.
type Repository interface {

	/*
		Create inserts a new account.

		Returns:
		  - error: ErrEmailTaken or ErrPhoneTaken on a unique violation, storage failures
	*/
	Create(context context.Context, account *Account) error

	/*
		FindByID retrieves an account by its internal ID.

		Returns:
		  - error: ErrNotFound when absent
	*/
	FindByID(context context.Context, id string) (*Account, error)

	// FindByEmail retrieves an account by its email.
	FindByEmail(context context.Context, email string) (*Account, error)

	// FindByPhone retrieves an account by its phone.
	FindByPhone(context context.Context, phone string) (*Account, error)

	/*
		SetChannelStatus overwrites the verification status of one channel.
		Setting the status it already has is not an error.

		Returns:
		  - error: ErrNotFound when the account is absent
	*/
	SetChannelStatus(context context.Context, id string, channel verification.Channel, status verification.Status) error

	// UpdatePassword overwrites the stored password.
	UpdatePassword(context context.Context, id, password string) error

	// MarkProvisioned stamps the time both challenges were confirmed to exist.
	MarkProvisioned(context context.Context, id string, at time.Time) error

	/*
		FindUnprovisioned lists accounts created before cutoff that were never
		stamped as provisioned, oldest first.
	*/
	FindUnprovisioned(context context.Context, cutoff time.Time, limit int) ([]*Account, error)
}

// LoginLogRepository defines the persistence contract for the per-account login history.
type LoginLogRepository interface {

	// Append adds an event to the history of an account, creating it on first use.
	Append(context context.Context, refID string, event LoginEvent) error

	// Events returns the history of an account in insertion order.
	Events(context context.Context, refID string) ([]LoginEvent, error)
}
