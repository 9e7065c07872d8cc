package model

import "time"

// Session is the persisted current-identity slot. Exactly one exists at
// a time; it survives restarts so the terminal resumes where it left
// off.
type Session struct {
	UserID     string    `json:"user_id"`
	Email      string    `json:"email"`
	TokenJTI   string    `json:"token_jti,omitempty"`
	LoggedInAt time.Time `json:"logged_in_at"`
}

// Identity is the acting identity resolved from the session slot. It is
// rebuilt from the user record on every evaluation, so role and access
// changes take effect immediately.
type Identity struct {
	UserID         string `json:"user_id"`
	Email          string `json:"email"`
	Name           string `json:"name"`
	Role           string `json:"role"`
	ExtendedAccess bool   `json:"extended_access,omitempty"`
}

// IsAdmin reports whether the identity holds the admin role.
func (id Identity) IsAdmin() bool {
	return id.Role == RoleAdmin
}

// HasExtendedAccess reports whether the identity sees the widened view
// window.
func (id Identity) HasExtendedAccess() bool {
	return id.IsAdmin() || id.ExtendedAccess
}
