package ingest

import (
	"context"
	"fmt"
	"strings"
)

const slugPrefix = "thinkpad"

// Slugify derives the url-safe base slug for a model name:
// "X1 Carbon" -> "thinkpad-x1-carbon".
func Slugify(modelName string) string {
	var b strings.Builder
	lastDash := true
	for _, r := range strings.ToLower(modelName) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	slug := strings.Trim(b.String(), "-")
	if slug == "" {
		slug = "unknown"
	}
	if strings.HasPrefix(slug, slugPrefix) {
		return slug
	}
	return slugPrefix + "-" + slug
}

// slugChecker reports whether a slug is already taken.
type slugChecker interface {
	SlugExists(ctx context.Context, slug string) (bool, error)
}

// resolveSlug returns the first free variant of base, suffixing -1, -2, ...
// on collision. The used set covers slugs assigned earlier in the same batch
// that have not reached the store yet.
func resolveSlug(ctx context.Context, store slugChecker, used map[string]bool, base string) (string, error) {
	candidate := base
	for i := 1; ; i++ {
		if !used[candidate] {
			exists, err := store.SlugExists(ctx, candidate)
			if err != nil {
				return "", fmt.Errorf("resolve slug %q: %w", candidate, err)
			}
			if !exists {
				used[candidate] = true
				return candidate, nil
			}
		}
		candidate = fmt.Sprintf("%s-%d", base, i)
	}
}
