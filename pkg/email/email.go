// Package email holds the address checks shared by signup and developer records.
package email

import (
	"regexp"
	"strings"
)

// MaxLength bounds any stored address.
const MaxLength = 254

// pattern is intentionally loose: something, an @, something, a dot, something.
var pattern = regexp.MustCompile(`^\S+@\S+\.\S+$`)

// IsValid reports whether s looks like an address. Surrounding whitespace is
// not trimmed; callers normalize first.
func IsValid(s string) bool {
	if s == "" || len(s) > MaxLength {
		return false
	}
	return pattern.MatchString(s)
}

// Normalize trims whitespace. Use Key for case-insensitive lookups.
func Normalize(s string) string {
	return strings.TrimSpace(s)
}

// Key returns the lookup key for an address: trimmed and lowercased.
func Key(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
