package ingest

import (
	"context"
	"testing"
)

func TestSlugify(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"T480", "thinkpad-t480"},
		{"X1 Carbon", "thinkpad-x1-carbon"},
		{"Yoga 370", "thinkpad-yoga-370"},
		{"T14s  (Gen 2)", "thinkpad-t14s-gen-2"},
		{"ThinkPad T480", "thinkpad-t480"},
		{"", "thinkpad-unknown"},
		{"///", "thinkpad-unknown"},
	}
	for _, tc := range cases {
		if got := Slugify(tc.in); got != tc.want {
			t.Fatalf("Slugify(%q): expected %q, got %q", tc.in, tc.want, got)
		}
	}
}

type staticSlugChecker map[string]bool

func (s staticSlugChecker) SlugExists(_ context.Context, slug string) (bool, error) {
	return s[slug], nil
}

func TestResolveSlugNoCollision(t *testing.T) {
	used := make(map[string]bool)
	got, err := resolveSlug(context.Background(), staticSlugChecker{}, used, "thinkpad-t480")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got != "thinkpad-t480" {
		t.Fatalf("expected base slug, got %q", got)
	}
	if !used["thinkpad-t480"] {
		t.Fatal("resolved slug must be marked used")
	}
}

func TestResolveSlugSuffixesOnCollision(t *testing.T) {
	store := staticSlugChecker{"thinkpad-t480": true, "thinkpad-t480-1": true}
	used := make(map[string]bool)

	got, err := resolveSlug(context.Background(), store, used, "thinkpad-t480")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got != "thinkpad-t480-2" {
		t.Fatalf("expected thinkpad-t480-2, got %q", got)
	}
}

func TestResolveSlugRespectsBatchLocalUse(t *testing.T) {
	used := make(map[string]bool)
	store := staticSlugChecker{}

	first, err := resolveSlug(context.Background(), store, used, "thinkpad-t480")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	second, err := resolveSlug(context.Background(), store, used, "thinkpad-t480")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if first != "thinkpad-t480" || second != "thinkpad-t480-1" {
		t.Fatalf("batch-local collision not handled: %q, %q", first, second)
	}
}
