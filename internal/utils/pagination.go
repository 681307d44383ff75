// Package utils holds small helpers shared by the HTTP layer: page-size
// parsing and opaque pagination cursors.
package utils

import "strconv"

// AtoiDefault parses s, returning def when s is empty or not an integer.
// Whitespace is not trimmed.
func AtoiDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return def
}

// ClampLimit parses a page-size query value, defaulting to def and bounding
// the result to [1, max].
func ClampLimit(s string, def, max int) int {
	n := AtoiDefault(s, def)
	if n < 1 {
		return 1
	}
	if n > max {
		return max
	}
	return n
}
