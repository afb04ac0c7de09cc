package models

import (
	"time"

	"github.com/google/uuid"
)

// UserRole distinguishes guests from staff accounts.
type UserRole string

const (
	RoleGuest     UserRole = "guest"
	RoleAdmin     UserRole = "admin"
	RoleVolunteer UserRole = "volunteer"
)

// User is a guest or staff account. Guest accounts created implicitly at
// checkout carry no password; staff accounts authenticate with bcrypt
// hashes and JWT.
type User struct {
	ID            uuid.UUID  `json:"id" db:"id"`
	Email         string     `json:"email" db:"email"`
	FullName      string     `json:"full_name" db:"full_name"`
	Phone         *string    `json:"phone,omitempty" db:"phone"`
	Nationality   *string    `json:"nationality,omitempty" db:"nationality"`
	Role          UserRole   `json:"role" db:"role"`
	PasswordHash  *string    `json:"-" db:"password_hash"`
	LoyaltyPoints int        `json:"loyalty_points" db:"loyalty_points"`
	IsActive      bool       `json:"is_active" db:"is_active"`
	LastLoginAt   *time.Time `json:"last_login_at,omitempty" db:"last_login_at"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at" db:"updated_at"`
}

// IsStaff reports whether the account may use the admin surface.
func (u *User) IsStaff() bool {
	return u.Role == RoleAdmin || u.Role == RoleVolunteer
}

// LoginRequest is the admin/volunteer login payload.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse carries the issued token and the authenticated account.
type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	User      User      `json:"user"`
}
