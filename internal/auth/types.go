package auth

import "errors"

// Role is the authorisation tier carried in a token's "role" claim.
type Role string

const (
	RoleViewer   Role = "viewer"
	RoleOperator Role = "operator"
	RoleAdmin    Role = "admin"
	RoleService  Role = "service"
)

// ValidRoles lists the roles the core accepts.
var ValidRoles = []Role{RoleViewer, RoleOperator, RoleAdmin, RoleService}

// IsValidRole returns true if r is a known role.
func IsValidRole(r Role) bool {
	for _, v := range ValidRoles {
		if r == v {
			return true
		}
	}
	return false
}

// Errors returned by token parsing.
var (
	ErrTokenInvalid = errors.New("invalid token")
	ErrUnknownRole  = errors.New("unknown role")
)
