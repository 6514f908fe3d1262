package services

import (
	"strings"

	"github.com/you/verifysvc/domain"
)

// PhoneNormalizer canonicalizes phone numbers for a single deployment
// region. One normalizer is shared by every call site so the same rules
// apply uniformly.
type PhoneNormalizer struct {
	prefix       string
	prefixDigits string
}

// NewPhoneNormalizer creates a normalizer for the given international
// prefix, e.g. "+1".
func NewPhoneNormalizer(prefix string) *PhoneNormalizer {
	return &PhoneNormalizer{
		prefix:       prefix,
		prefixDigits: digitsOf(prefix),
	}
}

// Normalize returns the canonical form: the region prefix followed by
// exactly ten digits. Inputs already in canonical form pass through
// unchanged. Anything that cannot be reduced to a valid regional number is
// rejected with ErrInvalidInputFormat before it can reach the provider.
func (n *PhoneNormalizer) Normalize(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", domain.ErrInvalidInputFormat
	}

	if strings.HasPrefix(trimmed, n.prefix) {
		// Prefixed input still gets digit-count validation; a bare "+1"
		// or a 9-digit remainder is not trusted verbatim.
		digits := digitsOf(trimmed)
		if len(digits) != len(n.prefixDigits)+10 || !strings.HasPrefix(digits, n.prefixDigits) {
			return "", domain.ErrInvalidInputFormat
		}
		return n.prefix + digits[len(n.prefixDigits):], nil
	}

	digits := digitsOf(trimmed)
	if len(digits) != 10 {
		return "", domain.ErrInvalidInputFormat
	}
	return n.prefix + digits, nil
}

func digitsOf(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
