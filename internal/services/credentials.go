package services

import (
	"unicode"

	"github.com/you/verifysvc/domain"
)

const minPasswordLength = 8

// ValidatePassword enforces the registration password policy: at least
// eight characters with an upper-case letter, a lower-case letter, a digit
// and a symbol. Checked locally before the provider is contacted.
func ValidatePassword(password string) error {
	if len(password) < minPasswordLength {
		return domain.ErrWeakPassword
	}

	var hasUpper, hasLower, hasDigit, hasSymbol bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		case !unicode.IsSpace(r):
			hasSymbol = true
		}
	}

	if !hasUpper || !hasLower || !hasDigit || !hasSymbol {
		return domain.ErrWeakPassword
	}
	return nil
}
