// Package slug derives and validates URL-safe organization identifiers.
package slug

import (
	"errors"
	"regexp"
	"strings"
)

var (
	// ErrUnusable reports input that yields no slug characters at all.
	ErrUnusable = errors.New("slug: input yields an empty slug")

	validSlug    = regexp.MustCompile(`^[a-z0-9-]+$`)
	nonSlugChars = regexp.MustCompile(`[^a-z0-9]+`)
)

// Valid reports whether s consists solely of lowercase letters, digits and hyphens.
func Valid(s string) bool {
	return validSlug.MatchString(s)
}

// Make derives a slug from name: lowercased, with runs of any other characters
// collapsed into single hyphens and outer hyphens trimmed.
func Make(name string) (string, error) {
	s := strings.ToLower(strings.TrimSpace(name))
	s = nonSlugChars.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")
	if s == "" {
		return "", ErrUnusable
	}
	return s, nil
}
