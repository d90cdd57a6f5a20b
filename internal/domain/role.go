package domain

import "time"

// RoleName enumerates application authorization roles.
type RoleName string

const (
	RoleUser  RoleName = "user"
	RoleAdmin RoleName = "admin"

	// RoleAuthenticated is the identity-provider baseline role used by the
	// claims hook when no role row exists. It is deliberately distinct from
	// RoleUser, which is the application-level default.
	RoleAuthenticated RoleName = "authenticated"
)

// AuthorizationRole maps a user to their single application role. Absence of
// a row implies RoleUser in the application and RoleAuthenticated in claims.
type AuthorizationRole struct {
	UserID    string
	RoleName  RoleName
	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsAdmin reports whether the role grants administrative access.
func (r RoleName) IsAdmin() bool {
	return r == RoleAdmin
}
