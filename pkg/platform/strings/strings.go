// Package strings provides list helpers for user-entered tags.
package strings

import (
	"strings"
)

// TrimNonEmpty trims every element and drops the ones left empty. Order and
// duplicates are preserved.
//
//	TrimNonEmpty([]string{" React ", "", "Go", "  "})
//	// []string{"React", "Go"}
func TrimNonEmpty(values []string) []string {
	result := make([]string, 0, len(values))
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

// SplitList splits a comma-separated list and applies TrimNonEmpty.
//
//	SplitList("React, TypeScript,, Node.js ")
//	// []string{"React", "TypeScript", "Node.js"}
func SplitList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return []string{}
	}
	return TrimNonEmpty(strings.Split(s, ","))
}

// ContainsFold reports whether any element contains sub, ignoring case.
// sub must already be lowercased.
func ContainsFold(values []string, lowerSub string) bool {
	for _, v := range values {
		if strings.Contains(strings.ToLower(v), lowerSub) {
			return true
		}
	}
	return false
}
