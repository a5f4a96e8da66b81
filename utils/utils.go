package utils

import (
	"strings"
)

func AssertInvariant(condition bool, message string) {
	if !condition {
		panic("invariant violated - " + message)
	}
}

// CollapseWhitespace trims a string and folds any run of whitespace into a
// single space. Mapping phrases are normalized this way before storage so
// that "!invite   {player}" and "!invite {player}" compare equal.
func CollapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// HasFoldPrefix reports whether s starts with prefix under simple
// case-insensitive comparison.
func HasFoldPrefix(s, prefix string) bool {
	if len(s) < len(prefix) {
		return false
	}
	return strings.EqualFold(s[:len(prefix)], prefix)
}
