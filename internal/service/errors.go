package service

import "errors"

// Gateway error taxonomy. Validation errors are surfaced as-is; the
// authentication errors deliberately carry no detail about what went wrong
// so callers cannot enumerate identifiers.
var (
	// ErrInvalidEmail is returned for a malformed email address
	ErrInvalidEmail = errors.New("invalid email format")

	// ErrInvalidUsername is returned for a username outside the allowed shape
	ErrInvalidUsername = errors.New("username must be 3-30 letters, digits, or underscores")

	// ErrWeakPassword is returned for a password below the minimum length
	ErrWeakPassword = errors.New("password must be at least 8 characters")

	// ErrEmailTaken is returned when the email is already registered
	ErrEmailTaken = errors.New("email already in use")

	// ErrUsernameTaken is returned when the username is already taken
	ErrUsernameTaken = errors.New("username already taken")

	// ErrInvalidCredentials covers unknown identifier and wrong password alike
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrAccountInactive is returned for a deactivated account
	ErrAccountInactive = errors.New("account is deactivated")

	// ErrInvalidToken covers every way a presented token can fail verification
	ErrInvalidToken = errors.New("invalid or expired token")

	// ErrOAuthNotConfigured is returned when federated login is attempted
	// without provider credentials configured
	ErrOAuthNotConfigured = errors.New("federated login is not configured")
)
