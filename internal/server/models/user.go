package models

import "time"

// Role is the authorization level carried in token claims.
type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// ExpiringSecret is a one-time value (verification code or reset token)
// stored together with its expiry. The zero value means "no secret".
type ExpiringSecret struct {
	Value     string
	ExpiresAt time.Time
}

// IsZero reports whether no secret is set.
func (s ExpiringSecret) IsZero() bool {
	return s.Value == ""
}

// Expired reports whether the secret is unusable at now.
func (s ExpiringSecret) Expired(now time.Time) bool {
	return s.IsZero() || !s.ExpiresAt.After(now)
}

// User is an identity record owned by the user directory.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	FirstName    string
	LastName     string
	ProfileImage string
	Role         Role
	IsVerified   bool
	Verification ExpiringSecret
	Reset        ExpiringSecret
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// UserUpdate is a partial update. Nil fields are left untouched; a non-nil
// zero ExpiringSecret clears both the value and its expiry.
type UserUpdate struct {
	PasswordHash *string
	IsVerified   *bool
	Verification *ExpiringSecret
	Reset        *ExpiringSecret
}

// Empty reports whether the update changes nothing.
func (u UserUpdate) Empty() bool {
	return u.PasswordHash == nil && u.IsVerified == nil && u.Verification == nil && u.Reset == nil
}
