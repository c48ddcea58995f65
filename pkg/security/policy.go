package security

import (
	"strings"
	"unicode"
)

const (
	// MinPasswordLength is the shortest password accepted at registration.
	MinPasswordLength = 6

	passwordSpecials = "@$!%*?&"
)

// PolicyViolation names the first password policy rule a candidate breaks.
type PolicyViolation string

const (
	PolicyTooShort       PolicyViolation = "too_short"
	PolicyMissingLetter  PolicyViolation = "missing_letter"
	PolicyMissingDigit   PolicyViolation = "missing_digit"
	PolicyMissingSpecial PolicyViolation = "missing_special"
)

// CheckPasswordPolicy validates a candidate password against the account
// policy: minimum length plus at least one letter, one digit and one
// special character from the allowed set.
func CheckPasswordPolicy(password string) (PolicyViolation, bool) {
	if len(password) < MinPasswordLength {
		return PolicyTooShort, false
	}

	var hasLetter, hasDigit, hasSpecial bool
	for _, r := range password {
		switch {
		case unicode.IsLetter(r):
			hasLetter = true
		case unicode.IsDigit(r):
			hasDigit = true
		case strings.ContainsRune(passwordSpecials, r):
			hasSpecial = true
		}
	}

	switch {
	case !hasLetter:
		return PolicyMissingLetter, false
	case !hasDigit:
		return PolicyMissingDigit, false
	case !hasSpecial:
		return PolicyMissingSpecial, false
	}
	return "", true
}

// PolicyDescription is the human-readable policy text surfaced in
// validation errors.
func PolicyDescription() string {
	return "password must be at least 6 characters and include a letter, a digit, and one of @$!%*?&"
}
