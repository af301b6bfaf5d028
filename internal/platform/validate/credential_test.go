// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package validate_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/taibuivan/minitube/internal/platform/validate"
)

func TestIsStrongPassword(t *testing.T) {
	tests := []struct {
		name     string
		password string
		want     bool
	}{
		{"minimal_valid", "Aa1!aaaa", true},
		{"long_valid", "CorrectHorse9#Battery", true},
		{"too_short", "Aa1!aaa", false},
		{"no_upper", "aa1!aaaa", false},
		{"no_lower", "AA1!AAAA", false},
		{"no_digit", "Aaa!aaaa", false},
		{"no_symbol", "Aa1aaaaa", false},
		{"symbol_outside_set", "Aa1?aaaa", false},
		{"rules_stop_at_line_break", "Aa1!\naaaa", false},
		{"valid_before_line_break", "Aa1!aaaa\nzz", true},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, validate.IsStrongPassword(tt.password))
		})
	}
}

func TestIsPhone(t *testing.T) {
	tests := []struct {
		phone string
		want  bool
	}{
		{"5551234567", true},
		{"(555) 123-4567", true},
		{"555.123.4567", true},
		{"555 123 4567", true},
		{"555123456", false},
		{"55512345678", false},
		{"555-abc-4567", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.phone, func(t *testing.T) {
			assert.Equal(t, tt.want, validate.IsPhone(tt.phone))
		})
	}
}

func TestIsCountryCode(t *testing.T) {
	assert.True(t, validate.IsCountryCode("+91"))
	assert.True(t, validate.IsCountryCode("1"))
	assert.True(t, validate.IsCountryCode("1264"))
	assert.False(t, validate.IsCountryCode("+1264"))
	assert.False(t, validate.IsCountryCode("91a"))
	assert.False(t, validate.IsCountryCode(""))
}

func TestIsEmail(t *testing.T) {
	assert.True(t, validate.IsEmail("ann@x.com"))
	assert.True(t, validate.IsEmail("first.last@sub.example.org"))
	assert.True(t, validate.IsEmail("ann@[10.0.0.1]"))
	assert.False(t, validate.IsEmail("ann@x"))
	assert.False(t, validate.IsEmail("ann x@x.com"))
	assert.False(t, validate.IsEmail("@x.com"))
}

/*
TestClassifyDOB pins the evaluation order against a fixed clock of 2024-06-15.
*/
func TestClassifyDOB(t *testing.T) {
	now := time.Date(2024, time.June, 15, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name              string
		date, month, year int
		want              validate.DOBField
	}{
		{"valid_past_date", 1, 1, 1990, validate.DOBNone},
		{"yesterday", 14, 6, 2024, validate.DOBNone},
		{"earlier_month_this_year", 30, 5, 2024, validate.DOBNone},
		{"today", 15, 6, 2024, validate.DOBDate},
		{"later_this_month", 20, 6, 2024, validate.DOBDate},
		{"future_month", 1, 7, 2024, validate.DOBMonth},
		{"future_year", 1, 1, 2025, validate.DOBYear},
		{"before_floor", 1, 1, 1949, validate.DOBAll},
		{"day_zero", 0, 1, 1990, validate.DOBAll},
		{"day_32", 32, 1, 1990, validate.DOBAll},
		{"month_13", 1, 13, 1990, validate.DOBAll},
		{"april_31", 31, 4, 1990, validate.DOBAll},
		{"august_31", 31, 8, 1990, validate.DOBNone},
		{"september_31", 31, 9, 1990, validate.DOBAll},
		{"leap_day", 29, 2, 1996, validate.DOBNone},
		{"non_leap_day", 29, 2, 1997, validate.DOBAll},
		{"century_leap_day", 29, 2, 2000, validate.DOBNone},
		{"range_checked_before_year", 40, 1, 2030, validate.DOBAll},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := validate.ClassifyDOB(tt.date, tt.month, tt.year, now)
			assert.Equal(t, tt.want, got, "got %s", got)
		})
	}
}
