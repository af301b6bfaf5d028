// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package sec

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// # Password Hashing

// Hashing modes accepted by [NewPasswordHasher].
const (
	HashingBcrypt = "bcrypt"
	HashingPlain  = "plain"
)

// PasswordHasher turns a plain-text password into its stored form and checks
// a candidate against a stored value.
type PasswordHasher interface {
	Hash(plainTextPassword string) (string, error)
	Compare(storedPassword, plainTextPassword string) bool
}

// NewPasswordHasher returns the hasher for mode.
func NewPasswordHasher(mode string) (PasswordHasher, error) {
	switch mode {
	case HashingBcrypt, "":
		return BcryptHasher{Cost: bcrypt.DefaultCost}, nil
	case HashingPlain:
		return PlainHasher{}, nil
	default:
		return nil, fmt.Errorf("sec: unknown password hashing mode %q", mode)
	}
}

// BcryptHasher hashes passwords with bcrypt.
type BcryptHasher struct {
	Cost int
}

// Hash hashes a plain-text password using the bcrypt algorithm.
func (hasher BcryptHasher) Hash(plainTextPassword string) (string, error) {
	cost := hasher.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}

	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(plainTextPassword), cost)
	if err != nil {
		return "", fmt.Errorf("sec: failed to hash password: %w", err)
	}
	return string(hashedBytes), nil
}

// Compare compares a plain-text password with its hashed version.
func (hasher BcryptHasher) Compare(existingHash, plainTextPassword string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(existingHash), []byte(plainTextPassword))
	return err == nil
}

// PlainHasher stores passwords verbatim and compares them by exact equality
// in constant time. Used by tests and by deployments where an upstream
// collaborator has already hashed the value.
type PlainHasher struct{}

// Hash returns the password unchanged.
func (PlainHasher) Hash(plainTextPassword string) (string, error) {
	if plainTextPassword == "" {
		return "", errors.New("sec: empty password")
	}
	return plainTextPassword, nil
}

// Compare reports whether both values are identical.
func (PlainHasher) Compare(storedPassword, plainTextPassword string) bool {
	return SecureCompare(storedPassword, plainTextPassword)
}
