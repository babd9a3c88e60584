package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	// Matches spaces, underscores, and slashes (for replacement with dashes).
	wordSeparatorRe = regexp.MustCompile(`[\s_/]+`)
	// Matches non-alphanumeric characters (except dashes).
	nonAlphanumericRe = regexp.MustCompile(`[^a-z0-9-]`)
	multipleDashRe    = regexp.MustCompile(`-+`)
	whitespaceRunRe   = regexp.MustCompile(`\s+`)
)

// Tag limits.
const (
	MaxTags      = 10
	MaxTagLength = 50
)

// NormalizeTagSlug converts user input to a canonical tag slug.
// The slug is the source of truth for tag identity.
//
//	"Slow Burn"   → "slow-burn"
//	"slow_burn"   → "slow-burn"
//	"🐉 Dragons!" → "dragons"
//	"--leading--" → "leading"
func NormalizeTagSlug(input string) string {
	s := strings.ToLower(strings.TrimSpace(input))
	s = wordSeparatorRe.ReplaceAllString(s, "-")
	s = nonAlphanumericRe.ReplaceAllString(s, "")
	s = multipleDashRe.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// NormalizeTagName trims, lowercases and collapses internal whitespace.
func NormalizeTagName(input string) string {
	return whitespaceRunRe.ReplaceAllString(strings.ToLower(strings.TrimSpace(input)), " ")
}

// TagInput is a normalized tag ready for upsert.
type TagInput struct {
	Name string
	Slug string
}

// NormalizeTags validates raw tag names and de-duplicates them by slug, keeping first-seen order.
func NormalizeTags(raw []string) ([]TagInput, error) {
	out := make([]TagInput, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))
	for _, r := range raw {
		name := NormalizeTagName(r)
		if name == "" {
			continue
		}
		if utf8.RuneCountInString(name) > MaxTagLength {
			return nil, fmt.Errorf("tag %q must not exceed %d characters", name, MaxTagLength)
		}
		slug := NormalizeTagSlug(name)
		if slug == "" {
			return nil, fmt.Errorf("tag %q must contain letters or digits", name)
		}
		if _, dup := seen[slug]; dup {
			continue
		}
		seen[slug] = struct{}{}
		out = append(out, TagInput{Name: name, Slug: slug})
	}
	if len(out) > MaxTags {
		return nil, fmt.Errorf("a bookmark can have at most %d tags", MaxTags)
	}
	return out, nil
}
