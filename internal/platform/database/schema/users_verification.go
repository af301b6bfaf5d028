// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package schema

// UserVerificationTable represents a challenge table. Email and phone
// challenges share one layout in two tables.
type UserVerificationTable struct {
	Table       string
	ID          string
	RefID       string
	Address     string
	CountryCode string
	Secret      string
	ExpiresAt   string
	Status      string
	VerifiedOn  string
	CreatedAt   string
}

// UserEmailVerification is the schema definition for users.emailverification
var UserEmailVerification = UserVerificationTable{
	Table:       "users.emailverification",
	ID:          "id",
	RefID:       "refid",
	Address:     "emailid",
	CountryCode: "countrycode",
	Secret:      "verificationtoken",
	ExpiresAt:   "expiresat",
	Status:      "status",
	VerifiedOn:  "verifiedon",
	CreatedAt:   "createdat",
}

// UserPhoneVerification is the schema definition for users.phoneverification
var UserPhoneVerification = UserVerificationTable{
	Table:       "users.phoneverification",
	ID:          "id",
	RefID:       "refid",
	Address:     "phone",
	CountryCode: "countrycode",
	Secret:      "otp",
	ExpiresAt:   "expiresat",
	Status:      "status",
	VerifiedOn:  "verifiedon",
	CreatedAt:   "createdat",
}

// Columns returns all standard column names
func (t UserVerificationTable) Columns() []string {
	return []string{
		t.ID, t.RefID, t.Address, t.CountryCode, t.Secret, t.ExpiresAt, t.Status, t.VerifiedOn, t.CreatedAt,
	}
}
