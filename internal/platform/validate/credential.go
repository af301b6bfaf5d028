// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package validate

import (
	"regexp"
	"strings"
	"time"
	"unicode/utf8"
)

// # Credential Predicates

var (
	emailRegex = regexp.MustCompile(`^(([^<>()\[\]\\.,;:\s@"]+(\.[^<>()\[\]\\.,;:\s@"]+)*)|(".+"))@((\[[0-9]{1,3}\.[0-9]{1,3}\.[0-9]{1,3}\.[0-9]{1,3}\])|(([a-zA-Z\-0-9]+\.)+[a-zA-Z]{2,}))$`)
	phoneRegex = regexp.MustCompile(`^\(?([0-9]{3})\)?[-. ]?([0-9]{3})[-. ]?([0-9]{4})$`)

	countryCodeRegex = regexp.MustCompile(`^(\+?\d{1,3}|\d{1,4})$`)
)

const (
	// MinPasswordLength is the minimum number of characters in a strong password.
	MinPasswordLength = 8

	// passwordSymbols is the set of characters that count as a password symbol.
	passwordSymbols = "!@#$%^&*"

	// lineTerminators end the region a password rule is evaluated over.
	lineTerminators = "\n\r\u2028\u2029"
)

// IsEmail reports whether s is a syntactically valid email address.
func IsEmail(s string) bool {
	return emailRegex.MatchString(s)
}

// IsStrongPassword reports whether s has at least [MinPasswordLength] characters
// and contains a lower-case letter, an upper-case letter, a digit and a symbol.
//
// Every rule is evaluated over the text before the first line break.
func IsStrongPassword(s string) bool {
	if i := strings.IndexAny(s, lineTerminators); i >= 0 {
		s = s[:i]
	}

	if utf8.RuneCountInString(s) < MinPasswordLength {
		return false
	}

	var hasLower, hasUpper, hasDigit, hasSymbol bool
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z':
			hasLower = true
		case r >= 'A' && r <= 'Z':
			hasUpper = true
		case r >= '0' && r <= '9':
			hasDigit = true
		case strings.ContainsRune(passwordSymbols, r):
			hasSymbol = true
		}
	}

	return hasLower && hasUpper && hasDigit && hasSymbol
}

// IsPhone reports whether s is a ten-digit phone number, optionally grouped
// as (555) 123-4567, 555.123.4567 or 555 123 4567.
func IsPhone(s string) bool {
	return phoneRegex.MatchString(s)
}

// IsCountryCode reports whether s is a dialling prefix such as "+91" or "1".
func IsCountryCode(s string) bool {
	return countryCodeRegex.MatchString(s)
}

// # Date of Birth

// DOBField names the component of a date of birth that failed validation.
type DOBField int

const (
	// DOBNone means the date of birth is valid.
	DOBNone DOBField = iota
	// DOBDate means the day is today or later in the current month.
	DOBDate
	// DOBMonth means the month lies in the future of the current year.
	DOBMonth
	// DOBYear means the year lies in the future.
	DOBYear
	// DOBAll means a component is out of range or the day does not exist in the month.
	DOBAll
)

// MinBirthYear is the earliest accepted year of birth.
const MinBirthYear = 1950

// String returns the lower-case name of the field.
func (f DOBField) String() string {
	switch f {
	case DOBNone:
		return "none"
	case DOBDate:
		return "date"
	case DOBMonth:
		return "month"
	case DOBYear:
		return "year"
	case DOBAll:
		return "all"
	default:
		return "unknown"
	}
}

// ClassifyDOB reports which component of a date of birth is invalid relative to now.
//
// # Order
//  1. Out of range day/month, or year before [MinBirthYear] → [DOBAll].
//  2. Future year → [DOBYear].
//  3. Current year, future month → [DOBMonth].
//  4. Current year and month, day today or later → [DOBDate].
//  5. Day beyond the length of the month → [DOBAll].
func ClassifyDOB(date, month, year int, now time.Time) DOBField {
	currentYear, currentMonth, currentDay := now.Date()

	switch {
	case date < 1 || date > 31 || month < 1 || month > 12 || year < MinBirthYear:
		return DOBAll
	case year > currentYear:
		return DOBYear
	case year == currentYear && month > int(currentMonth):
		return DOBMonth
	case year == currentYear && month == int(currentMonth) && date >= currentDay:
		return DOBDate
	case date > daysInMonth(month, year):
		return DOBAll
	}

	return DOBNone
}

// daysInMonth returns the number of days in month of year.
//
// Years not divisible by 4 and century years not divisible by 400 have a
// 28-day February. Other months alternate 31/30 with the parity flipping at August.
func daysInMonth(month, year int) int {
	if month == 2 {
		if year&3 != 0 || (year%25 == 0 && year&15 != 0) {
			return 28
		}
		return 29
	}
	return 30 + ((month + month>>3) & 1)
}
