package utils

import (
	"regexp"
	"strings"
)

var (
	emailRegex    = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	usernameRegex = regexp.MustCompile(`^[a-zA-Z0-9_]{3,30}$`)
)

// ValidateEmail validates an email address
func ValidateEmail(email string) bool {
	return emailRegex.MatchString(email)
}

// ValidateUsername validates a username: 3-30 characters, letters, digits,
// and underscore only.
func ValidateUsername(username string) bool {
	return usernameRegex.MatchString(username)
}

// ValidatePassword validates a password: minimum 8 characters.
func ValidatePassword(password string) bool {
	return len(password) >= 8
}

// SanitizeEmail sanitizes an email address
func SanitizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
