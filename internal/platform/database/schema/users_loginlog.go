// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package schema

// UserLoginLogTable represents the 'users.loginlog' table
type UserLoginLogTable struct {
	Table     string
	ID        string
	RefID     string
	Events    string
	CreatedAt string
	UpdatedAt string
}

// UserLoginLog is the schema definition for users.loginlog
var UserLoginLog = UserLoginLogTable{
	Table:     "users.loginlog",
	ID:        "id",
	RefID:     "refid",
	Events:    "events",
	CreatedAt: "createdat",
	UpdatedAt: "updatedat",
}

// Columns returns all standard column names
func (t UserLoginLogTable) Columns() []string {
	return []string{t.ID, t.RefID, t.Events, t.CreatedAt, t.UpdatedAt}
}
