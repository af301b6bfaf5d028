// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package uuid provides the identifiers used by the account core.

Two flavours are exposed:

  - New: Version 7, time-ordered. Used for every primary key so B-tree
    indexes in PostgreSQL stay append-mostly.
  - NewRandom: Version 4, fully random. Used for identifiers handed to
    clients (the public account UID) where creation time must not leak.
*/
package uuid

import "github.com/google/uuid"

// # Generators

// New generates a new UUIDv7 string.
func New() string {
	id, err := uuid.NewV7()

	// entropy failure is an unrecoverable system-level error
	if err != nil {
		panic("uuid: failed to generate v7: " + err.Error())
	}

	return id.String()
}

// NewRandom generates a new UUIDv4 string.
func NewRandom() string {
	return uuid.NewString()
}

// Valid reports whether s parses as a UUID of any version.
func Valid(s string) bool {
	return uuid.Validate(s) == nil
}
