// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package account

import (
	"context"
	"strings"

	"golang.org/x/text/cases"

	"github.com/taibuivan/minitube/internal/users/verification"
)

// # Profile Projection

// Projectable field names, in output order.
const (
	DetailID                 = "id"
	DetailFirstName          = "firstName"
	DetailLastName           = "lastName"
	DetailEmail              = "emailId"
	DetailCountryCode        = "countryCode"
	DetailPhone              = "phone"
	DetailAuthority          = "authority"
	DetailVerificationStatus = "verificationStatus"
	DetailCreatedAt          = "createdAt"
)

var detailFields = []string{
	DetailID,
	DetailFirstName,
	DetailLastName,
	DetailEmail,
	DetailCountryCode,
	DetailPhone,
	DetailAuthority,
	DetailVerificationStatus,
	DetailCreatedAt,
}

// DefaultDetails is the projection returned when no field is requested.
var DefaultDetails = []string{
	DetailID,
	DetailFirstName,
	DetailLastName,
	DetailEmail,
	DetailPhone,
	DetailCreatedAt,
}

// VerificationStatus is the per-channel status exposed by the verificationStatus field.
type VerificationStatus struct {
	Email verification.Status `json:"email"`
	Phone verification.Status `json:"phone"`
}

/*
Details returns a projection of the account identified by id.

Description: With no requested fields the [DefaultDetails] are returned.
Otherwise a field is included when its name contains any requested string,
compared case-insensitively. Requested strings matching nothing are ignored.

Parameters:
  - context: context.Context
  - id: string (internal account ID)
  - requested: []string

Returns:
  - map[string]any: Field name to value
  - error: ErrNotFound or persistence failures
*/
func (service *Service) Details(context context.Context, id string, requested []string) (map[string]any, error) {
	account, err := service.accountRepository.FindByID(context, id)
	if err != nil {
		return nil, err
	}

	fields := DefaultDetails
	if len(requested) > 0 {
		fields = matchFields(requested)
	}

	details := make(map[string]any, len(fields))
	for _, field := range fields {
		details[field] = detailValue(account, field)
	}

	return details, nil
}

// matchFields selects the projectable fields containing any requested string.
func matchFields(requested []string) []string {
	folder := cases.Fold()

	needles := make([]string, len(requested))
	for i, name := range requested {
		needles[i] = folder.String(name)
	}

	var matched []string
	for _, field := range detailFields {
		folded := folder.String(field)
		for _, needle := range needles {
			if strings.Contains(folded, needle) {
				matched = append(matched, field)
				break
			}
		}
	}

	return matched
}

func detailValue(account *Account, field string) any {
	switch field {
	case DetailID:
		return account.UID
	case DetailFirstName:
		return account.FirstName
	case DetailLastName:
		return account.LastName
	case DetailEmail:
		return account.Email
	case DetailCountryCode:
		return account.CountryCode
	case DetailPhone:
		return account.Phone
	case DetailAuthority:
		return account.Authority.String()
	case DetailVerificationStatus:
		return VerificationStatus{Email: account.EmailStatus, Phone: account.PhoneStatus}
	case DetailCreatedAt:
		return account.CreatedAt
	}
	return nil
}
