package utils

import "testing"

func TestValidateEmail(t *testing.T) {
	valid := []string{
		"user@example.com",
		"user.name+tag@example.co.uk",
		"user_name@sub.example.com",
	}
	for _, email := range valid {
		if !ValidateEmail(email) {
			t.Errorf("Expected %q to be valid", email)
		}
	}

	invalid := []string{
		"",
		"plainaddress",
		"@example.com",
		"user@",
		"user@example",
		"user @example.com",
	}
	for _, email := range invalid {
		if ValidateEmail(email) {
			t.Errorf("Expected %q to be invalid", email)
		}
	}
}

func TestValidateUsername(t *testing.T) {
	valid := []string{"abc", "alice_99", "ABC123"}
	for _, username := range valid {
		if !ValidateUsername(username) {
			t.Errorf("Expected %q to be valid", username)
		}
	}

	invalid := []string{
		"",
		"ab",
		"has space",
		"has-dash",
		"way_too_long_username_over_thirty_chars",
	}
	for _, username := range invalid {
		if ValidateUsername(username) {
			t.Errorf("Expected %q to be invalid", username)
		}
	}
}

func TestValidatePassword(t *testing.T) {
	// Length is the only requirement.
	if !ValidatePassword("password1") {
		t.Error("Expected 'password1' to be valid")
	}
	if !ValidatePassword("12345678") {
		t.Error("Expected '12345678' to be valid")
	}
	if ValidatePassword("short") {
		t.Error("Expected 'short' to be invalid")
	}
	if ValidatePassword("1234567") {
		t.Error("Expected a 7-character password to be invalid")
	}
}

func TestSanitizeEmail(t *testing.T) {
	got := SanitizeEmail("  Alice@Example.COM ")
	if got != "alice@example.com" {
		t.Errorf("Expected 'alice@example.com', got %q", got)
	}
}
