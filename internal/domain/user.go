package domain

import (
	"slices"
	"time"
)

// Role controls what a user may see and change.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleAgent Role = "agent"
	RoleUser  Role = "user"
)

// Roles lists every assignable role.
var Roles = []Role{RoleAdmin, RoleAgent, RoleUser}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return slices.Contains(Roles, r)
}

// User is an account able to act on tickets.
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Role         Role
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Actor returns the identity used for scoping decisions.
func (u *User) Actor() Actor {
	return Actor{ID: u.ID, Role: u.Role}
}

// Summary strips credentials for embedding in ticket relations.
func (u *User) Summary() *UserSummary {
	return &UserSummary{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role}
}

// UserSummary is the public shape of a related user.
type UserSummary struct {
	ID    string
	Name  string
	Email string
	Role  Role
}

// Actor is the caller every core operation is performed on behalf of.
type Actor struct {
	ID   string
	Role Role
}

// IsAdmin reports whether the actor bypasses ownership checks.
func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}
