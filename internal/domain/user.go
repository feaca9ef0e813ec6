package domain

import "time"

// Auth provider values stored in users.auth_provider.
const (
	ProviderLocal  = "local"
	ProviderGoogle = "google"
)

// User represents an identity in the system. A user always has at least one
// usable authentication method: a local password hash or a linked external
// provider id. Users are never hard-deleted; IsActive=false is terminal.
type User struct {
	ID            string     `json:"id" db:"id"`
	Email         string     `json:"email" db:"email"`
	Username      string     `json:"username" db:"username"`
	PasswordHash  *string    `json:"-" db:"password_hash"`
	DisplayName   string     `json:"display_name" db:"display_name"`
	AvatarURL     *string    `json:"avatar_url" db:"avatar_url"`
	AuthProvider  string     `json:"auth_provider" db:"auth_provider"`
	ProviderID    *string    `json:"-" db:"provider_id"`
	IsActive      bool       `json:"is_active" db:"is_active"`
	IsAdmin       bool       `json:"is_admin" db:"is_admin"`
	EmailVerified bool       `json:"email_verified" db:"email_verified"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at" db:"updated_at"`
	LastLoginAt   *time.Time `json:"last_login_at" db:"last_login_at"`
}

// HasLocalPassword reports whether the user can log in with a password.
func (u *User) HasLocalPassword() bool {
	return u.PasswordHash != nil && *u.PasswordHash != ""
}

// HasProvider reports whether an external provider account is linked.
func (u *User) HasProvider() bool {
	return u.ProviderID != nil && *u.ProviderID != ""
}
