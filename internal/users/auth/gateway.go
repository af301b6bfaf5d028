// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package auth is the entry point of the account core.

It implements the [Gateway], the façade every external caller goes through,
and the HTTP [Handler] that exposes it under /api/v1/user.

# Architecture

  - Gateway: Validates raw input, applies throttles, decodes bearer tokens and
    delegates to the account and request services. Every entry point returns
    a [Result] and never an error.
  - Handler: Decodes the wire payloads, calls the Gateway and maps the
    [Result] status code onto an HTTP status.
*/
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/taibuivan/minitube/internal/platform/apperr"
	"github.com/taibuivan/minitube/internal/platform/constants"
	"github.com/taibuivan/minitube/internal/platform/limiter"
	"github.com/taibuivan/minitube/internal/platform/sec"
	"github.com/taibuivan/minitube/internal/platform/validate"
	"github.com/taibuivan/minitube/internal/users/account"
	"github.com/taibuivan/minitube/internal/users/request"
	"github.com/taibuivan/minitube/internal/users/verification"
)

// # Result

// Result is the uniform outcome of a [Gateway] entry point.
//
// It serializes flat: statusCode and statusMessage first, then the error
// classification on failure, then every payload entry.
type Result struct {
	StatusCode    int
	StatusMessage string
	Code          string
	Reason        string
	Details       []apperr.FieldError
	RetryAfter    int
	Payload       map[string]any
}

// OK reports whether the result is a success.
func (result Result) OK() bool {
	return result.StatusCode >= 200 && result.StatusCode < 300
}

// MarshalJSON flattens the payload next to the status fields.
func (result Result) MarshalJSON() ([]byte, error) {
	flat := make(map[string]any, len(result.Payload)+5)
	for key, value := range result.Payload {
		flat[key] = value
	}

	flat[constants.FieldStatusCode] = result.StatusCode
	flat[constants.FieldStatusMessage] = result.StatusMessage
	if result.Code != "" {
		flat[constants.FieldCode] = result.Code
	}
	if result.Reason != "" {
		flat["reason"] = result.Reason
	}
	if len(result.Details) > 0 {
		flat["details"] = result.Details
	}

	return json.Marshal(flat)
}

func success(status int, message string, payload map[string]any) Result {
	return Result{StatusCode: status, StatusMessage: message, Payload: payload}
}

// # Gateway

// Throttles bounds how often an address may ask for secrets.
type Throttles struct {
	// ChallengeIssue limits re-issuance per email or phone.
	ChallengeIssue limiter.Limiter
	// ChallengeVerify limits confirmation attempts per email or phone.
	ChallengeVerify limiter.Limiter
	// ForgotPassword limits reset requests per email.
	ForgotPassword limiter.Limiter
}

func (throttles Throttles) withDefaults() Throttles {
	if throttles.ChallengeIssue == nil {
		throttles.ChallengeIssue = limiter.Unlimited{}
	}
	if throttles.ChallengeVerify == nil {
		throttles.ChallengeVerify = limiter.Unlimited{}
	}
	if throttles.ForgotPassword == nil {
		throttles.ForgotPassword = limiter.Unlimited{}
	}
	return throttles
}

// Gateway is the façade over the account core.
type Gateway struct {
	accounts  *account.Service
	requests  *request.Service
	tokenizer *sec.Tokenizer
	throttles Throttles
	logger    *slog.Logger
}

// NewGateway constructs a new [Gateway]. Nil throttles never limit.
func NewGateway(accounts *account.Service, requests *request.Service, tokenizer *sec.Tokenizer, throttles Throttles, logger *slog.Logger) *Gateway {
	return &Gateway{
		accounts:  accounts,
		requests:  requests,
		tokenizer: tokenizer,
		throttles: throttles.withDefaults(),
		logger:    logger,
	}
}

// failure converts err into a [Result]. Unexpected errors are logged and hidden.
func (gateway *Gateway) failure(context context.Context, operation string, err error) Result {
	appError := apperr.As(err)
	if appError == nil {
		appError = apperr.Internal(err)
	}

	if appError.HTTPStatus >= http.StatusInternalServerError {
		gateway.logger.ErrorContext(context, "gateway_operation_failed",
			slog.String("operation", operation),
			slog.Any("error", err),
		)
	}

	return Result{
		StatusCode:    appError.HTTPStatus,
		StatusMessage: appError.Message,
		Code:          appError.Code,
		Reason:        appError.Reason,
		Details:       appError.Details,
		RetryAfter:    appError.RetryAfter,
	}
}

// invalid is the result of malformed input.
func invalid(message string, details ...apperr.FieldError) Result {
	appError := account.ErrInvalidInput.WithMessage(message)
	return Result{
		StatusCode:    appError.HTTPStatus,
		StatusMessage: appError.Message,
		Code:          appError.Code,
		Details:       details,
	}
}

// subject decodes a bearer token into the account ID it was issued for.
func (gateway *Gateway) subject(bearerToken string) (string, error) {
	if bearerToken == "" {
		return "", sec.ErrInvalidToken.WithMessage(MessageMissingBearerToken)
	}
	return gateway.tokenizer.Decode(bearerToken)
}

// # Registration & Login

// AvailabilityInput carries the identifiers to check.
type AvailabilityInput struct {
	Email string
	Phone string
}

/*
CheckAvailability reports whether an email or phone is already registered.

Returns:
  - 200: available, and takenBy naming the first taken field
  - 400: neither identifier given, or one is malformed
*/
func (gateway *Gateway) CheckAvailability(context context.Context, input AvailabilityInput) Result {
	validator := &validate.Validator{}
	validator.
		Custom(FieldEmail, input.Email == "" && input.Phone == "", "Either emailId or phone is required").
		Email(FieldEmail, input.Email).
		Phone(FieldPhone, input.Phone)
	if validator.HasErrors() {
		return invalid(MessageInvalidInput, validator.Details()...)
	}

	availability, err := gateway.accounts.CheckAvailability(context, account.Identifiers{Email: input.Email, Phone: input.Phone})
	if err != nil {
		return gateway.failure(context, "check_availability", err)
	}

	message := MessageAvailable
	if !availability.Available() {
		message = MessageUnavailable
	}

	return success(http.StatusOK, message, map[string]any{
		FieldAvailable: availability.Available(),
		FieldTakenBy:   string(availability.Field),
	})
}

// CreateAccountInput carries the registration fields.
type CreateAccountInput struct {
	FirstName   string
	LastName    string
	Email       string
	CountryCode string
	Phone       string
	Password    string
}

/*
CreateAccount registers a new account.

Returns:
  - 201: AccountId and the initial email token and OTP
  - 400: Invalid input, or email or phone already registered
*/
func (gateway *Gateway) CreateAccount(context context.Context, input CreateAccountInput) Result {
	created, err := gateway.accounts.Create(context, account.Registration{
		FirstName:   strings.TrimSpace(input.FirstName),
		LastName:    strings.TrimSpace(input.LastName),
		Email:       strings.TrimSpace(input.Email),
		CountryCode: strings.TrimSpace(input.CountryCode),
		Phone:       strings.TrimSpace(input.Phone),
		Password:    input.Password,
	})
	if err != nil {
		if errors.Is(err, account.ErrInvalidInput) {
			return invalid(MessageInvalidInput, apperr.As(err).Details...)
		}
		return gateway.failure(context, "create_account", err)
	}

	return success(http.StatusCreated, MessageAccountCreated, map[string]any{
		FieldAccountID: created.Account.UID,
		FieldVerification: map[string]string{
			FieldEmailToken: created.EmailToken,
			FieldOTP:        created.OTP,
		},
	})
}

// LoginInput carries the credentials and the request metadata.
type LoginInput struct {
	Email    string
	Phone    string
	Password string
	Headers  map[string]string
	IP       string
}

/*
Login authenticates an account with email or phone and password.

Returns:
  - 200: authToken
  - 400: Missing credentials, or a channel not verified
  - 404: Unknown account or wrong password
*/
func (gateway *Gateway) Login(context context.Context, input LoginInput) Result {
	if (input.Email == "" && input.Phone == "") || input.Password == "" {
		return invalid(MessageInvalidInput)
	}

	session, err := gateway.accounts.Login(context,
		account.Credentials{Email: input.Email, Phone: input.Phone, Password: input.Password},
		account.ClientMetadata{Headers: input.Headers, IP: input.IP},
	)
	if err != nil {
		if errors.Is(err, account.ErrNotFound) {
			err = account.ErrNotFound.WithMessage(MessageAccountNotFound)
		}
		return gateway.failure(context, "login", err)
	}

	return success(http.StatusOK, MessageLoggedIn, map[string]any{FieldAuthToken: session.Token})
}

// # Verification

// channelMessages holds the per-channel wording of verification results.
type channelMessages struct {
	field    string
	invalid  string
	notFound string
	already  string
	verified string
	issued   string
	secret   string
}

var messagesFor = map[verification.Channel]channelMessages{
	verification.ChannelEmail: {
		field:    FieldEmail,
		invalid:  MessageInvalidEmail,
		notFound: MessageEmailNotFound,
		already:  MessageEmailAlready,
		verified: MessageEmailVerified,
		issued:   MessageEmailTokenSent,
		secret:   FieldEmailToken,
	},
	verification.ChannelPhone: {
		field:    FieldPhone,
		invalid:  MessageInvalidPhone,
		notFound: MessagePhoneNotFound,
		already:  MessagePhoneAlready,
		verified: MessagePhoneVerified,
		issued:   MessageOTPSent,
		secret:   FieldOTP,
	},
}

func validAddress(channel verification.Channel, address string) bool {
	if channel == verification.ChannelPhone {
		return validate.IsPhone(address)
	}
	return validate.IsEmail(address)
}

// reword replaces the message of the errors whose wording depends on the channel.
func (messages channelMessages) reword(err error) error {
	switch {
	case errors.Is(err, verification.ErrNotFound):
		return err
	case errors.Is(err, verification.ErrAlreadyVerified):
		return verification.ErrAlreadyVerified.WithMessage(messages.already)
	case errors.Is(err, account.ErrNotFound):
		return account.ErrNotFound.WithMessage(messages.notFound)
	}
	return err
}

// RequestEmailToken issues a fresh email verification token.
func (gateway *Gateway) RequestEmailToken(context context.Context, email string) Result {
	return gateway.reissue(context, verification.ChannelEmail, email)
}

// RequestOTP issues a fresh phone OTP.
func (gateway *Gateway) RequestOTP(context context.Context, phone string) Result {
	return gateway.reissue(context, verification.ChannelPhone, phone)
}

/*
reissue issues a fresh secret for the challenge of address.

Returns:
  - 200: The new secret under emailVerificationToken or OTP
  - 400: Malformed address, or channel already verified
  - 404: No account registered to address
  - 429: Too many requests for address
*/
func (gateway *Gateway) reissue(context context.Context, channel verification.Channel, address string) Result {
	messages := messagesFor[channel]
	address = strings.TrimSpace(address)
	if !validAddress(channel, address) {
		return invalid(messages.invalid)
	}

	if err := gateway.throttles.ChallengeIssue.Allow(context, address); err != nil {
		return gateway.failure(context, "reissue_throttle", err)
	}

	challenge, err := gateway.accounts.ReissueChallenge(context, channel, address)
	if err != nil {
		return gateway.failure(context, "reissue_challenge", messages.reword(err))
	}

	return success(http.StatusOK, messages.issued, map[string]any{messages.secret: challenge.Secret})
}

// VerifyEmail confirms the email verification token of an account.
func (gateway *Gateway) VerifyEmail(context context.Context, email, token string) Result {
	return gateway.verify(context, verification.ChannelEmail, email, token)
}

// VerifyOTP confirms the phone OTP of an account.
func (gateway *Gateway) VerifyOTP(context context.Context, phone, otp string) Result {
	return gateway.verify(context, verification.ChannelPhone, phone, otp)
}

/*
verify confirms the secret presented for address.

Returns:
  - 200: Channel verified
  - 400: Malformed input, already verified, expired or mismatched secret
  - 404: No account or challenge for address
  - 429: Too many attempts for address
*/
func (gateway *Gateway) verify(context context.Context, channel verification.Channel, address, secret string) Result {
	messages := messagesFor[channel]
	address = strings.TrimSpace(address)
	secret = strings.TrimSpace(secret)
	if !validAddress(channel, address) {
		return invalid(messages.invalid)
	}
	if secret == "" {
		return invalid(MessageInvalidInput)
	}

	if err := gateway.throttles.ChallengeVerify.Allow(context, address); err != nil {
		return gateway.failure(context, "verify_throttle", err)
	}

	if _, err := gateway.accounts.Verify(context, channel, address, secret); err != nil {
		return gateway.failure(context, "verify_challenge", messages.reword(err))
	}

	return success(http.StatusOK, messages.verified, nil)
}

// # Session-bound Operations

/*
UserDetails returns a projection of the account the bearer token was issued for.

Returns:
  - 200: details
  - 401: Missing or invalid bearer token
  - 404: Account no longer exists
*/
func (gateway *Gateway) UserDetails(context context.Context, bearerToken string, fields []string) Result {
	subjectID, err := gateway.subject(bearerToken)
	if err != nil {
		return gateway.failure(context, "bearer", err)
	}

	details, err := gateway.accounts.Details(context, subjectID, fields)
	if err != nil {
		return gateway.failure(context, "user_details", err)
	}

	return success(http.StatusOK, MessageDetails, map[string]any{FieldDetails: details})
}

/*
RefreshToken exchanges a valid bearer token for a new one with a fresh expiry.

Returns:
  - 200: authToken
  - 401: Missing or invalid bearer token
  - 404: Account no longer exists
*/
func (gateway *Gateway) RefreshToken(context context.Context, bearerToken string) Result {
	subjectID, err := gateway.subject(bearerToken)
	if err != nil {
		return gateway.failure(context, "bearer", err)
	}

	if _, err := gateway.accounts.FindByID(context, subjectID); err != nil {
		return gateway.failure(context, "refresh_token", err)
	}

	token, err := gateway.tokenizer.Refresh(bearerToken)
	if err != nil {
		return gateway.failure(context, "refresh_token", err)
	}

	return success(http.StatusOK, MessageTokenRefreshed, map[string]any{FieldAuthToken: token})
}

/*
RequestAuthorityUpgrade records a pending upgrade for the bearer's account.

Returns:
  - 201: authorityRequested
  - 400: Unknown authority name or a rejected upgrade
  - 401: Missing or invalid bearer token
*/
func (gateway *Gateway) RequestAuthorityUpgrade(context context.Context, bearerToken, requested string) Result {
	subjectID, err := gateway.subject(bearerToken)
	if err != nil {
		return gateway.failure(context, "bearer", err)
	}

	desired, ok := sec.ParseRequestedAuthority(requested)
	if !ok {
		return invalid(MessageInvalidAuthority, apperr.FieldError{Field: FieldRequestedAuthority, Message: MessageInvalidAuthority})
	}

	created, err := gateway.requests.RequestAuthorityUpgrade(context, subjectID, desired)
	if err != nil {
		return gateway.failure(context, "request_authority_upgrade", err)
	}

	return success(http.StatusCreated, MessageUpgradeRequested, map[string]any{
		FieldUpgradeRequest: created.AuthorityToUpgrade.String(),
	})
}

// # Password Reset

/*
ForgotPassword starts a password reset for the account registered to email.

Returns:
  - 200: link to begin the reset
  - 400: Malformed email
  - 404: No account registered to email
  - 429: Too many requests for email
*/
func (gateway *Gateway) ForgotPassword(context context.Context, email string) Result {
	email = strings.TrimSpace(email)
	if !validate.IsEmail(email) {
		return invalid(MessageInvalidEmail)
	}

	if err := gateway.throttles.ForgotPassword.Allow(context, email); err != nil {
		return gateway.failure(context, "forgot_password_throttle", err)
	}

	reference, err := gateway.requests.ForgotPassword(context, email)
	if err != nil {
		if errors.Is(err, account.ErrNotFound) {
			err = account.ErrNotFound.WithMessage(MessageEmailNotFound)
		}
		return gateway.failure(context, "forgot_password", err)
	}

	return success(http.StatusOK, MessageResetRequested, map[string]any{FieldResetLink: reference.Path})
}

// BeginReset exchanges a forgot-password token for the link that completes the reset.
func (gateway *Gateway) BeginReset(context context.Context, forgotToken string) Result {
	reference, err := gateway.requests.BeginReset(context, strings.TrimSpace(forgotToken))
	if err != nil {
		return gateway.failure(context, "begin_reset", err)
	}

	return success(http.StatusOK, MessageResetStarted, map[string]any{FieldResetLink: reference.Path})
}

/*
CompleteReset stores a new password against a reset-password token.

Returns:
  - 200: Password updated
  - 400: Token already used, or weak password
  - 404: Unknown token
*/
func (gateway *Gateway) CompleteReset(context context.Context, resetToken, password string) Result {
	if err := gateway.requests.CompleteReset(context, strings.TrimSpace(resetToken), password); err != nil {
		return gateway.failure(context, "complete_reset", err)
	}

	return success(http.StatusOK, MessagePasswordUpdated, nil)
}
