// Package validation holds pure input validators shared by services and handlers.
package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

var projectSlugRegex = regexp.MustCompile(`^[a-z0-9-]{3,50}$`)

// Slugs that would collide with public routes.
var reservedProjectSlugs = map[string]struct{}{
	"admin":     {},
	"api":       {},
	"auth":      {},
	"c":         {},
	"collect":   {},
	"dashboard": {},
	"health":    {},
	"login":     {},
	"metrics":   {},
	"settings":  {},
	"signup":    {},
	"swagger":   {},
	"widget":    {},
	"widgets":   {},
	"ws":        {},
}

// ValidateProjectSlug validates project slug format and reserved names.
func ValidateProjectSlug(slug string) error {
	if !projectSlugRegex.MatchString(slug) {
		return fmt.Errorf("slug must be 3-50 characters and contain only lowercase letters, numbers, and hyphens")
	}

	if strings.HasPrefix(slug, "-") || strings.HasSuffix(slug, "-") {
		return fmt.Errorf("slug cannot start or end with a hyphen")
	}

	if _, exists := reservedProjectSlugs[slug]; exists {
		return fmt.Errorf("slug is reserved")
	}

	return nil
}

// ValidateProjectName checks the display name length after trimming.
func ValidateProjectName(name string) error {
	n := utf8.RuneCountInString(strings.TrimSpace(name))
	if n < 3 || n > 50 {
		return fmt.Errorf("name must be 3-50 characters")
	}
	return nil
}
