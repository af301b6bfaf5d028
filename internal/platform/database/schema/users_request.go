// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package schema

// UserRequestTable represents the 'users.request' table
type UserRequestTable struct {
	Table               string
	ID                  string
	RefID               string
	Type                string
	AuthorityToUpgrade  string
	ForgotPasswordToken string
	ResetPasswordToken  string
	ResetStatus         string
	CreatedAt           string
	UpdatedAt           string
}

// UserRequest is the schema definition for users.request
var UserRequest = UserRequestTable{
	Table:               "users.request",
	ID:                  "id",
	RefID:               "refid",
	Type:                "requesttype",
	AuthorityToUpgrade:  "authoritytoupgrade",
	ForgotPasswordToken: "forgotpasswordtoken",
	ResetPasswordToken:  "resetpasswordtoken",
	ResetStatus:         "resetstatus",
	CreatedAt:           "createdat",
	UpdatedAt:           "updatedat",
}

// Columns returns all standard column names
func (t UserRequestTable) Columns() []string {
	return []string{
		t.ID, t.RefID, t.Type, t.AuthorityToUpgrade, t.ForgotPasswordToken,
		t.ResetPasswordToken, t.ResetStatus, t.CreatedAt, t.UpdatedAt,
	}
}
