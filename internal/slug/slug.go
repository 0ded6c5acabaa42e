// Package slug derives the unique URL identifier for a store from its
// display name. Derivation is an explicit call made by the repository right
// before a write, with the collision lookup injected; nothing here talks to
// the document store directly.
package slug

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"storedir/internal/domain"
)

// Lookup returns every existing slug in the base's collision family, i.e.
// matching Pattern(base) case-insensitively.
type Lookup func(ctx context.Context, base string) ([]string, error)

// Make normalizes a display name into a lowercase hyphen-separated slug:
// characters outside [a-z0-9] become separators, runs collapse to one
// hyphen, leading/trailing hyphens are trimmed.
func Make(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	hyphen := false
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			if hyphen && b.Len() > 0 {
				b.WriteByte('-')
			}
			hyphen = false
			b.WriteRune(r)
		default:
			hyphen = true
		}
	}
	return b.String()
}

// Pattern is the collision-family regex for a normalized base: the base
// itself or the base with a numeric suffix.
func Pattern(base string) string {
	return "^(" + regexp.QuoteMeta(base) + ")(-[0-9]+)?$"
}

// Generate resolves the final slug for name. With zero existing family
// members the slug is the base itself; with N members it is base-N.
//
// N is the count of family members at lookup time, not the smallest unused
// suffix: after a deletion inside the family a later insert can reuse a
// suffix. That numbering is contractual and must not be "fixed" to
// max-suffix-plus-one.
func Generate(ctx context.Context, name string, lookup Lookup) (string, error) {
	base := Make(name)
	if base == "" {
		ve := &domain.ValidationError{}
		ve.Add("name", "name must contain at least one letter or digit")
		return "", ve
	}
	taken, err := lookup(ctx, base)
	if err != nil {
		return "", err
	}
	if len(taken) == 0 {
		return base, nil
	}
	return base + "-" + strconv.Itoa(len(taken)), nil
}
