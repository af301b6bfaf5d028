// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package schema names the tables and columns of the users schema so that
// queries are assembled from one definition.
package schema

// UserAccountTable represents the 'users.account' table
type UserAccountTable struct {
	Table         string
	ID            string
	UID           string
	FirstName     string
	LastName      string
	Email         string
	CountryCode   string
	Phone         string
	Password      string
	Authority     string
	EmailStatus   string
	PhoneStatus   string
	ProvisionedAt string
	CreatedAt     string
}

// UserAccount is the schema definition for users.account
var UserAccount = UserAccountTable{
	Table:         "users.account",
	ID:            "id",
	UID:           "uid",
	FirstName:     "firstname",
	LastName:      "lastname",
	Email:         "emailid",
	CountryCode:   "countrycode",
	Phone:         "phone",
	Password:      "password",
	Authority:     "authority",
	EmailStatus:   "emailstatus",
	PhoneStatus:   "phonestatus",
	ProvisionedAt: "provisionedat",
	CreatedAt:     "createdat",
}

// Columns returns all standard column names
func (t UserAccountTable) Columns() []string {
	return []string{
		t.ID, t.UID, t.FirstName, t.LastName, t.Email, t.CountryCode, t.Phone,
		t.Password, t.Authority, t.EmailStatus, t.PhoneStatus, t.ProvisionedAt, t.CreatedAt,
	}
}
