// Package policy holds the pure predicates the authentication strategies
// consult: biometric template equality, client address denylisting and the
// simulated token recognizers.  None of them perform I/O and all are safe
// for concurrent use.
package policy

import (
	"crypto/subtle"
	"strings"
)

const (
	// ServerTokenPrefix marks a card token the server recognizes.
	ServerTokenPrefix = "TOKEN-"

	// CardTokenPrefix marks a syntactically valid card token when no card
	// record is available.
	CardTokenPrefix = "CARD-"
)

// BiometricMatches reports whether sample equals template byte for byte.
// Either side absent or a length difference is a mismatch.  The comparison
// is constant-time over equal-length inputs.
func BiometricMatches(sample, template []byte) bool {
	if len(sample) == 0 || len(template) == 0 {
		return false
	}
	if len(sample) != len(template) {
		return false
	}
	return subtle.ConstantTimeCompare(sample, template) == 1
}

// IsServerKnownToken reports whether token carries the server prefix,
// ignoring case.
func IsServerKnownToken(token string) bool {
	return hasPrefixFold(strings.TrimSpace(token), ServerTokenPrefix)
}

// IsCardTokenSyntaxValid reports whether token carries the card prefix,
// ignoring case.
func IsCardTokenSyntaxValid(token string) bool {
	return hasPrefixFold(strings.TrimSpace(token), CardTokenPrefix)
}

func hasPrefixFold(s, prefix string) bool {
	return len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix)
}
