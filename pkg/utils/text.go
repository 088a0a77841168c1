// Package utils provides shared utilities for text, math, and logging.
package utils

import "strings"

// Truncate returns s cut to maxLen runes, with "..." appended if truncated.
// If maxLen is 0 or negative, returns s unchanged.
func Truncate(s string, maxLen int) string {
	cut := TruncateRunes(s, maxLen)
	if cut == s {
		return s
	}
	return cut + "..."
}

// TruncateRunes returns at most maxLen runes of s without a suffix.
// If maxLen is 0 or negative, returns s unchanged.
func TruncateRunes(s string, maxLen int) string {
	if maxLen <= 0 || len(s) <= maxLen {
		return s
	}
	n := 0
	for i := range s {
		if n == maxLen {
			return s[:i]
		}
		n++
	}
	return s
}

// CollapseWhitespace replaces runs of whitespace with one space and trims.
func CollapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
