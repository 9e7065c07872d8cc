package model

import (
	"errors"
	"strings"
	"time"
)

// User represents a registry account. Records are persisted as JSON
// inside the users collection, so the password hash is part of the
// serialized form; API responses must use a sanitized view instead of
// marshaling User directly.
type User struct {
	ID             string    `json:"id"`
	Email          string    `json:"email"`
	Name           string    `json:"name"`
	PasswordHash   string    `json:"password_hash"`
	Role           string    `json:"role"`
	ExtendedAccess bool      `json:"extended_access,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	CreatedBy      string    `json:"created_by,omitempty"`
}

// Roles.
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// ValidRole reports whether role names a known role.
func ValidRole(role string) bool {
	return role == RoleAdmin || role == RoleUser
}

// IsAdmin reports whether the user holds the admin role.
func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// HasExtendedAccess reports whether the user sees the widened view
// window. Admins always do, regardless of the flag.
func (u User) HasExtendedAccess() bool {
	return u.IsAdmin() || u.ExtendedAccess
}

// EmailEquals compares an email against the user's, case-insensitively.
func (u User) EmailEquals(email string) bool {
	return strings.EqualFold(u.Email, email)
}

// ValidatePassword checks password strength requirements.
func ValidatePassword(password string) error {
	if len(password) < 8 {
		return errors.New("password must be at least 8 characters")
	}
	return nil
}
