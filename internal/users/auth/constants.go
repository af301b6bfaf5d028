// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

// # Wire Fields

const (
	FieldEmail              = "emailId"
	FieldPhone              = "phone"
	FieldPassword           = "password"
	FieldOTP                = "OTP"
	FieldRequestedAuthority = "requestedAuthority"
	FieldFields             = "fields"

	FieldAccountID      = "AccountId"
	FieldVerification   = "verification"
	FieldEmailToken     = "emailVerificationToken"
	FieldAuthToken      = "authToken"
	FieldAvailable      = "available"
	FieldTakenBy        = "takenBy"
	FieldDetails        = "details"
	FieldResetLink      = "link"
	FieldUpgradeRequest = "authorityRequested"
)

// # Result Messages

const (
	MessageAvailable          = "Available"
	MessageUnavailable        = "Already registered"
	MessageAccountCreated     = "Account Created"
	MessageLoggedIn           = "Logged In"
	MessageAccountNotFound    = "Account Not Found"
	MessageEmailNotFound      = "Account for given Email not found"
	MessagePhoneNotFound      = "Account for given Phone Number not found"
	MessageEmailVerified      = "Email verified"
	MessagePhoneVerified      = "Phone verified"
	MessageEmailAlready       = "Email already verified"
	MessagePhoneAlready       = "Phone already verified"
	MessageEmailTokenSent     = "Verification token issued"
	MessageOTPSent            = "OTP issued"
	MessageInvalidInput       = "Provided credentials are missing or incorrect"
	MessageInvalidEmail       = "Provided email is invalid"
	MessageInvalidPhone       = "Provided Phone Number is invalid"
	MessageDetails            = "Account Details"
	MessageTokenRefreshed     = "Token Refreshed"
	MessageUpgradeRequested   = "Authority upgrade requested"
	MessageInvalidAuthority   = "Requested authority must be one of: client, mid-tier, administrator, super"
	MessageResetRequested     = "Password reset requested"
	MessageResetStarted       = "Password reset started"
	MessagePasswordUpdated    = "Password Updated"
	MessageMissingBearerToken = "Missing bearer token"
)
