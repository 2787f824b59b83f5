package domain

import "strings"

// Role is the dashboard role carried in the access token.
type Role string

const (
	RoleAuthor    Role = "AUTHOR"
	RoleReader    Role = "READER"
	RoleAffiliate Role = "AFFILIATE"
	RoleCloser    Role = "CLOSER"
	RoleAdmin     Role = "ADMIN"
)

// Roles lists every known role.
var Roles = []Role{RoleAuthor, RoleReader, RoleAffiliate, RoleCloser, RoleAdmin}

// ParseRole normalizes a role string. Unknown values are returned upper-cased
// so that role matching stays exact; callers decide whether to reject them.
func ParseRole(s string) Role {
	return Role(strings.ToUpper(strings.TrimSpace(s)))
}

// IsValid reports whether r is a known role.
func (r Role) IsValid() bool {
	for _, known := range Roles {
		if r == known {
			return true
		}
	}
	return false
}

func (r Role) String() string {
	return string(r)
}
