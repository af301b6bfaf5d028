// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package validate provides a chainable Validator that collects field-level
// errors before returning a single [apperr.AppError], plus the pure credential
// predicates (email, password strength, phone, country code, date of birth).
//
// # Architecture
//
// The predicates have no side effects and never touch storage. The Validator is
// used by the gateway to reject malformed input before any persistence access.
package validate

import (
	"fmt"
	"slices"
	"strings"

	"github.com/taibuivan/minitube/internal/platform/apperr"
)

var (
	// ErrInvalidJSON is returned when the request body cannot be decoded.
	ErrInvalidJSON = apperr.ValidationError("Invalid JSON payload")
)

// Validator collects field-level failures of one registration or credential
// payload. Each field reports at most its first failure, so a blank email is
// reported as required and not also as malformed.
//
// Validator is not safe for concurrent use. Build one per operation.
type Validator struct {
	errs []apperr.FieldError
}

// Required fails if the trimmed value is empty.
func (v *Validator) Required(field, value string) *Validator {
	if strings.TrimSpace(value) == "" {
		v.add(field, "This field is required")
	}
	return v
}

// Email fails if a non-empty value is not accepted by [IsEmail].
func (v *Validator) Email(field, value string) *Validator {
	if value != "" && !IsEmail(value) {
		v.add(field, "Must be a valid email address")
	}
	return v
}

// Phone fails if a non-empty value is not accepted by [IsPhone].
func (v *Validator) Phone(field, value string) *Validator {
	if value != "" && !IsPhone(value) {
		v.add(field, "Must be a valid phone number")
	}
	return v
}

// StrongPassword fails if a non-empty value does not satisfy [IsStrongPassword].
func (v *Validator) StrongPassword(field, value string) *Validator {
	if value != "" && !IsStrongPassword(value) {
		v.add(field, fmt.Sprintf("Must be at least %d characters with upper, lower, digit and one of %s", MinPasswordLength, passwordSymbols))
	}
	return v
}

// CountryCode fails if a non-empty value is not accepted by [IsCountryCode].
func (v *Validator) CountryCode(field, value string) *Validator {
	if value != "" && !IsCountryCode(value) {
		v.add(field, "Must be a valid country code")
	}
	return v
}

// Custom adds message for field when failed is true.
func (v *Validator) Custom(field string, failed bool, message string) *Validator {
	if failed {
		v.add(field, message)
	}
	return v
}

// Err returns a copy of base carrying every failure, or nil when every rule passed.
func (v *Validator) Err(base *apperr.AppError) error {
	if len(v.errs) == 0 {
		return nil
	}
	failed := *base
	failed.Details = v.Details()
	return &failed
}

// HasErrors reports whether any rule has failed so far.
func (v *Validator) HasErrors() bool {
	return len(v.errs) > 0
}

// Details returns a copy of the failures in the order they were found.
func (v *Validator) Details() []apperr.FieldError {
	return slices.Clone(v.errs)
}

func (v *Validator) add(field, message string) {
	if slices.ContainsFunc(v.errs, func(existing apperr.FieldError) bool { return existing.Field == field }) {
		return
	}
	v.errs = append(v.errs, apperr.FieldError{Field: field, Message: message})
}
