// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package request implements the durable per-account workflows: authority
upgrade requests and the two-phase password reset.

# Architecture

  - Entities: Request, one record per (account, type).
  - State: The forgot-password token is exchanged for a reset token which is
    single-use (ResetStatus flips UNSET to SET on consumption).
  - Concurrency: Every find-or-create is one atomic upsert on (refid, requesttype).
*/
package request

import (
	"context"
	"time"

	"github.com/taibuivan/minitube/internal/platform/apperr"
	"github.com/taibuivan/minitube/internal/platform/sec"
)

// # Domain Entities

// Type discriminates the workflows sharing the request table.
type Type string

const (
	TypeAuthorityUpgrade Type = "AUTHORITY_UPGRADE"
	TypeForgotPassword   Type = "FORGOT_PASSWORD"
	TypeResetPassword    Type = "RESET_PASSWORD"
)

// ResetStatus tracks consumption of a reset token. The empty value means absent.
type ResetStatus string

const (
	ResetAbsent ResetStatus = ""
	ResetUnset  ResetStatus = "UNSET"
	ResetSet    ResetStatus = "SET"
)

// Request is a workflow record keyed by account reference and type.
//
// Only the fields of its own type are populated.
type Request struct {
	ID                  string
	RefID               string
	Type                Type
	AuthorityToUpgrade  *sec.Authority
	ForgotPasswordToken string
	ResetPasswordToken  string
	ResetStatus         ResetStatus
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// Reference is a token together with the path a client follows to use it.
type Reference struct {
	Token string `json:"token"`
	Path  string `json:"link"`
}

// # Domain Errors

var (
	ErrNotFound         = apperr.NotFound("Request")
	ErrDuplicateRequest = apperr.Conflict("A request of this type is already pending").WithReason("DUPLICATE_REQUEST")
	ErrInvalidDowngrade = apperr.Conflict("Authority cannot be downgraded to CLIENT").WithReason("INVALID_DOWNGRADE")
	ErrAlreadyMaximal   = apperr.Conflict("Account already holds the highest authority").WithReason("ALREADY_MAXIMAL")
	ErrNoOp             = apperr.Conflict("Account already holds the requested authority").WithReason("NO_OP")
	ErrAlreadyUsed      = apperr.Conflict("Reset token has already been used").WithReason("ALREADY_USED")
	ErrWeakPassword     = apperr.ValidationError("Password must be at least 8 characters with upper, lower, digit and one of !@#$%^&*").WithReason("WEAK_PASSWORD")
)

// # Repository Contracts

// Repository defines the persistence contract for workflow records.
type Repository interface {

	/*
		InsertIfAbsent stores request unless a record of the same account and type exists.

		Returns:
		  - bool: true when request was inserted
		  - error: Persistence failures
	*/
	InsertIfAbsent(context context.Context, request *Request) (bool, error)

	/*
		FindByRefID returns the record of an account for one type.

		Returns:
		  - error: ErrNotFound when absent
	*/
	FindByRefID(context context.Context, refID string, requestType Type) (*Request, error)

	/*
		UpsertForgotToken creates the forgot-password record of an account or
		overwrites its token.

		Returns:
		  - *Request: The stored record
	*/
	UpsertForgotToken(context context.Context, refID, token string, at time.Time) (*Request, error)

	// FindByForgotToken returns the forgot-password record holding token.
	FindByForgotToken(context context.Context, token string) (*Request, error)

	/*
		UpsertResetToken creates the reset-password record of an account with
		token and status UNSET. An existing record keeps its outstanding token
		while UNSET, and is re-armed with token otherwise.

		Returns:
		  - *Request: The stored record, carrying the token now in force
	*/
	UpsertResetToken(context context.Context, refID, token string, at time.Time) (*Request, error)

	// FindByResetToken returns the reset-password record holding token.
	FindByResetToken(context context.Context, token string) (*Request, error)

	/*
		ConsumeReset flips an UNSET reset record to SET.

		Returns:
		  - bool: false when the record was not UNSET
	*/
	ConsumeReset(context context.Context, id string, at time.Time) (bool, error)
}
