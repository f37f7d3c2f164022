// Package util provides small helpers shared across the skirmish packages.
package util

import (
	"strings"
	"unicode"
)

// FirstNonEmpty returns the first argument that is not blank.
func FirstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// SafeName turns a display name into something usable as a file name.
// Runs of anything other than letters, digits, '-' and '_' collapse to a
// single underscore.
func SafeName(s string) string {
	var b strings.Builder
	under := false
	for _, r := range strings.TrimSpace(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '_' {
			b.WriteRune(r)
			under = false
			continue
		}
		if !under {
			b.WriteByte('_')
			under = true
		}
	}
	return strings.Trim(b.String(), "_")
}

// StringPtr returns nil for an empty string, otherwise a pointer to it.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Deref returns the pointed-to string or "".
func Deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
