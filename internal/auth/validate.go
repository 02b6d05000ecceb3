package auth

import (
	"fmt"
	"regexp"
	"strings"
)

// ValidationError reports a malformed username, email or password. It is
// expected control flow: handlers surface the message verbatim to the
// caller with a 400 status.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func validationErrorf(format string, args ...any) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

var (
	usernameRe = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
	emailRe    = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
)

// weakSubstrings are rejected anywhere inside a password, case-insensitively.
var weakSubstrings = []string{
	"password", "123456", "qwerty", "admin", "login",
	"welcome", "letmein", "monkey", "dragon", "master",
}

// ValidateUsername enforces the registration rules for login handles:
// at least three characters from [A-Za-z0-9_-].
func ValidateUsername(username string) error {
	if len(username) < 3 {
		return validationErrorf("username must be at least 3 characters long")
	}
	if !usernameRe.MatchString(username) {
		return validationErrorf("username can only contain letters, numbers, underscore, and dash")
	}
	return nil
}

// ValidateEmail performs a basic structural check; deliverability is not
// verified here.
func ValidateEmail(email string) error {
	if email == "" || !emailRe.MatchString(email) {
		return validationErrorf("please enter a valid email address")
	}
	return nil
}

// ValidatePassword enforces the password strength rules: 8–128 characters
// with at least one uppercase letter, one lowercase letter, one digit and
// one special character, and none of the common weak substrings.
func ValidatePassword(password string) error {
	if len(password) < 8 {
		return validationErrorf("password must be at least 8 characters long")
	}
	if len(password) > 128 {
		return validationErrorf("password must be less than 128 characters")
	}
	var upper, lower, digit, special bool
	for _, r := range password {
		switch {
		case r >= 'A' && r <= 'Z':
			upper = true
		case r >= 'a' && r <= 'z':
			lower = true
		case r >= '0' && r <= '9':
			digit = true
		case strings.ContainsRune(`!@#$%^&*(),.?":{}|<>`, r):
			special = true
		}
	}
	if !upper {
		return validationErrorf("password must contain at least one uppercase letter")
	}
	if !lower {
		return validationErrorf("password must contain at least one lowercase letter")
	}
	if !digit {
		return validationErrorf("password must contain at least one number")
	}
	if !special {
		return validationErrorf("password must contain at least one special character")
	}
	lowered := strings.ToLower(password)
	for _, weak := range weakSubstrings {
		if strings.Contains(lowered, weak) {
			return validationErrorf("password cannot contain common words like %q", weak)
		}
	}
	return nil
}
