// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package sec

import (
	"fmt"
	"strings"
)

// # Authority Tiers

// Authority represents the authorization tier granted to an account.
//
// Tiers are ordered: CLIENT < MIDTIERUSER < ADMINISTRATOR < SUPERUSER.
type Authority int

const (
	// Default tier for every newly created account
	AuthorityClient Authority = iota

	// Elevated tier granted through an upgrade request
	AuthorityMidTier

	// Can manage other accounts
	AuthorityAdministrator

	// Unrestricted system access
	AuthoritySuper
)

var authorityNames = map[Authority]string{
	AuthorityClient:        "CLIENT",
	AuthorityMidTier:       "MIDTIERUSER",
	AuthorityAdministrator: "ADMINISTRATOR",
	AuthoritySuper:         "SUPERUSER",
}

// String returns the persisted name of the tier.
func (a Authority) String() string {
	if name, ok := authorityNames[a]; ok {
		return name
	}
	return fmt.Sprintf("Authority(%d)", int(a))
}

// AtLeast checks if the current tier meets or exceeds the target tier.
func (a Authority) AtLeast(target Authority) bool {
	return a >= target
}

// ParseAuthority converts a persisted tier name back into an [Authority].
func ParseAuthority(name string) (Authority, error) {
	for authority, candidate := range authorityNames {
		if strings.EqualFold(candidate, name) {
			return authority, nil
		}
	}
	return AuthorityClient, fmt.Errorf("sec: unknown authority %q", name)
}

// ParseRequestedAuthority maps the inbound upgrade vocabulary
// (super, administrator, mid-tier) onto a tier. "client" is recognised so the
// workflow can reject it as a downgrade.
func ParseRequestedAuthority(requested string) (Authority, bool) {
	switch requested {
	case "client":
		return AuthorityClient, true
	case "super":
		return AuthoritySuper, true
	case "administrator":
		return AuthorityAdministrator, true
	case "mid-tier":
		return AuthorityMidTier, true
	default:
		return AuthorityClient, false
	}
}
