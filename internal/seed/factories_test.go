package seed

import (
	"net/url"
	"testing"
	"time"

	"linkshelf/internal/models"
	"linkshelf/internal/validation"
)

func TestBuildBookmark_TimestampsAndFormats(t *testing.T) {
	opts := Options{DryRun: true, MaxDays: 30, Seed: 42}
	f := NewFactory(nil, opts)
	owner := &models.User{ID: 1, Username: "alice"}

	for i := 0; i < 20; i++ {
		b := f.BuildBookmark(owner)
		if b.ID == 0 {
			t.Fatalf("expected synthetic id in dry-run mode")
		}
		if err := validation.ValidateHTTPURL(b.URL, models.MaxURLLength); err != nil {
			t.Fatalf("invalid bookmark url %q: %v", b.URL, err)
		}
		if _, err := url.ParseRequestURI(b.URL); err != nil {
			t.Fatalf("unparseable url: %v", err)
		}
		if b.Title == "" || len(b.Title) > models.MaxTitleLength {
			t.Fatalf("bad title %q", b.Title)
		}
		if time.Since(b.CreatedAt) > (time.Duration(opts.MaxDays)+1)*24*time.Hour {
			t.Fatalf("created_at too old: %v", b.CreatedAt)
		}
	}
}

func TestBuildUser_PassesValidation(t *testing.T) {
	f := NewFactory(nil, Options{DryRun: true, SkipBcrypt: true, Seed: 7})
	for i := 0; i < 20; i++ {
		u := f.BuildUser()
		if err := validation.ValidateUsername(u.Username); err != nil {
			t.Fatalf("generated username %q rejected: %v", u.Username, err)
		}
		if !u.IsApproved || u.MaxBookmarks != models.FreeTierMaxBookmarks {
			t.Fatalf("expected approved free-tier user, got %+v", u)
		}
	}

	premium := f.BuildUser(AsPremium)
	if !premium.IsPremium || premium.PremiumUntil == nil || premium.MaxBookmarks != models.PremiumTierMaxBookmarks {
		t.Fatalf("expected premium user, got %+v", premium)
	}
}

func TestBuildTags_DistinctAndCapped(t *testing.T) {
	f := NewFactory(nil, Options{DryRun: true, Seed: 1})
	tags := f.BuildTags(5)
	if len(tags) != 5 {
		t.Fatalf("expected 5 tags, got %d", len(tags))
	}
	seen := map[string]bool{}
	for _, tag := range tags {
		if seen[tag] {
			t.Fatalf("duplicate tag %q", tag)
		}
		seen[tag] = true
	}
	if got := len(f.BuildTags(1000)); got != len(tagPool) {
		t.Fatalf("expected cap at %d, got %d", len(tagPool), got)
	}
}
