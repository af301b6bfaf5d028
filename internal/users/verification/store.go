// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package verification

import (
	"context"
	"time"
)

// # Challenge Data Access

// Repository defines the data access contract for challenges.
//
// Every method takes the channel because email and phone challenges live in
// separate tables with the same layout.
type Repository interface {

	/*
		InsertIfAbsent stores challenge unless one already exists for its
		address or account reference.

		Parameters:
		  - context: context.Context
		  - challenge: *Challenge

		Returns:
		  - *Challenge: The stored challenge (the new one, or the existing one untouched)
		  - bool: true when challenge was inserted
		  - error: Persistence failures
	*/
	InsertIfAbsent(context context.Context, challenge *Challenge) (*Challenge, bool, error)

	/*
		FindByAddress returns the challenge registered for an email or phone.

		Returns:
		  - error: ErrNotFound when absent
	*/
	FindByAddress(context context.Context, channel Channel, address string) (*Challenge, error)

	/*
		FindByRefID returns the challenge of an account.

		Returns:
		  - error: ErrNotFound when absent
	*/
	FindByRefID(context context.Context, channel Channel, refID string) (*Challenge, error)

	/*
		Rearm overwrites the secret and expiry of a NOTVERIFIED challenge.

		Returns:
		  - bool: false when the challenge is missing or already VERIFIED
		  - error: Persistence failures
	*/
	Rearm(context context.Context, channel Channel, id, secret string, expiresAt time.Time) (bool, error)

	/*
		MarkVerified flips a NOTVERIFIED challenge to VERIFIED and stamps verifiedOn.

		Returns:
		  - bool: false when the challenge is missing or already VERIFIED
		  - error: Persistence failures
	*/
	MarkVerified(context context.Context, channel Channel, id string, verifiedOn time.Time) (bool, error)
}
