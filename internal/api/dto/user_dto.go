package dto

import (
	"time"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// UserRegisterRequest payload for new users.
type UserRegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// UserLoginRequest payload for login.
type UserLoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse standard response for auth endpoints.
type AuthResponse struct {
	User      UserResponse `json:"user"`
	Token     string       `json:"token"`
	TokenType string       `json:"token_type"`
	ExpiresAt time.Time    `json:"expires_at"`
}

// UserResponse is an account without its password hash.
type UserResponse struct {
	ID        string      `json:"id"`
	Name      string      `json:"name"`
	Email     string      `json:"email"`
	Role      domain.Role `json:"role"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// UpdateRoleRequest payload.
type UpdateRoleRequest struct {
	Role domain.Role `json:"role"`
}

// RoleCountResponse is the number of users holding a role.
type RoleCountResponse struct {
	Role  domain.Role `json:"role"`
	Count int         `json:"count"`
}

// DashboardResponse backs the admin dashboard.
type DashboardResponse struct {
	Stats         StatsResponse       `json:"stats"`
	RecentTickets []TicketResponse    `json:"recent_tickets"`
	UsersByRole   []RoleCountResponse `json:"users_by_role"`
}
