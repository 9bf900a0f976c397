package auth

import (
	"fmt"
	"time"
)

// Role is the closed set of platform roles. Unknown strings never make it
// past ParseRole, so downstream checks compare values, not user input.
type Role string

const (
	RoleAdmin              Role = "ADMIN"
	RoleOffice             Role = "OFFICE"
	RoleDistrictSupervisor Role = "DISTRICT_SUPERVISOR"
)

// ParseRole validates a stored or transmitted role string.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleAdmin, RoleOffice, RoleDistrictSupervisor:
		return Role(s), nil
	}
	return "", fmt.Errorf("auth: unknown role %q", s)
}

// User represents an account in the user directory.
type User struct {
	ID           int64
	Username     string
	PasswordHash string
	Role         Role
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Session binds a user to the single credential that is currently valid.
// At most one row exists per user; creating a new one deletes the old.
type Session struct {
	ID           string
	UserID       int64
	SessionToken string
	ExpiresAt    time.Time
	CreatedAt    time.Time
}
