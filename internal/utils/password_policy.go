package utils

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// MinPasswordLength is the shortest accepted password, counted in characters.
const MinPasswordLength = 8

const (
	msgTooShort = "Password must be at least 8 characters long"
	msgNoUpper  = "Password must contain at least one uppercase letter"
	msgNoLower  = "Password must contain at least one lowercase letter"
	msgNoNumber = "Password must contain at least one number"
)

// PolicyViolationError lists every strength rule a password failed.
type PolicyViolationError struct {
	Violations []string
}

func (e *PolicyViolationError) Error() string {
	return strings.Join(e.Violations, "; ")
}

// ValidatePassword returns the violated rules; an empty result means the
// password is acceptable.
func ValidatePassword(password string) []string {
	var upper, lower, digit bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		}
	}

	var violations []string
	if utf8.RuneCountInString(password) < MinPasswordLength {
		violations = append(violations, msgTooShort)
	}
	if !upper {
		violations = append(violations, msgNoUpper)
	}
	if !lower {
		violations = append(violations, msgNoLower)
	}
	if !digit {
		violations = append(violations, msgNoNumber)
	}
	return violations
}

// ValidatePasswordOrFail wraps ValidatePassword into a *PolicyViolationError.
func ValidatePasswordOrFail(password string) error {
	if v := ValidatePassword(password); len(v) > 0 {
		return &PolicyViolationError{Violations: v}
	}
	return nil
}
