package types

import "time"

// Role is the authorization level of a user account.
type Role string

// Supported roles.
const (
	// RoleUser is the default role for registered accounts.
	RoleUser Role = "user"

	// RoleAdmin bypasses ownership-based authorization checks.
	RoleAdmin Role = "admin"
)

// Valid reports whether the role is one of the supported values.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// User represents an account in the system.
// It contains identity, role, and audit metadata.
type User struct {
	// ID is the unique identifier of the user.
	ID int `json:"id" db:"id"`

	// Name is the user's display or full name.
	Name string `json:"name" db:"name"`

	// Email is the user's email address. Unique across accounts and
	// used as the login identifier.
	Email string `json:"email" db:"email"`

	// Role indicates the user's authorization level within the system.
	Role Role `json:"role" db:"role"`

	// PasswordHash stores the bcrypt hash of the user's password.
	// This field is never exposed in API responses.
	PasswordHash string `json:"-" db:"password_hash"`

	// CreatedAt is the timestamp when the user account was created.
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Actor is the authenticated identity performing an operation, as
// recovered from a bearer token. The zero Actor is anonymous.
type Actor struct {
	// ID is the user id of the authenticated subject, or 0 for anonymous.
	ID int

	// Role is the subject's role as carried by the token.
	Role Role
}

// IsAdmin reports whether the actor carries the admin role.
func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// Anonymous reports whether the actor represents an unauthenticated caller.
func (a Actor) Anonymous() bool {
	return a.ID == 0
}
