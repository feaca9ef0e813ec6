package repository

import "errors"

// Common repository errors
var (
	// ErrNotFound is returned when a record is not found
	ErrNotFound = errors.New("record not found")

	// ErrDuplicateEmail is returned when the email is already registered
	ErrDuplicateEmail = errors.New("user with this email already exists")

	// ErrDuplicateUsername is returned when the username is already taken
	ErrDuplicateUsername = errors.New("user with this username already exists")

	// ErrDuplicateProvider is returned when the external provider account
	// is already linked to another user
	ErrDuplicateProvider = errors.New("provider account already linked")

	// ErrNoAuthMethod is returned when a user record carries neither a
	// password hash nor a provider id
	ErrNoAuthMethod = errors.New("user has no authentication method")
)
