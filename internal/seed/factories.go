// Package seed provides helpers to create demo data for the application
// database. These helpers are intended for development and testing only.
package seed

import (
	"fmt"
	"log"
	"math/rand"
	"strings"
	"time"

	"linkshelf/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// DefaultPassword is the password of every seeded account.
const DefaultPassword = "password123"

// Options tune how entities are generated.
type Options struct {
	// DryRun builds entities with synthetic IDs and never touches the database.
	DryRun bool
	// SkipBcrypt stores a cheap hash so large seeds finish quickly.
	SkipBcrypt bool
	// MaxDays spreads created_at over this many days back from now.
	MaxDays int
	// Seed makes generation deterministic when non-zero.
	Seed int64
}

// Factory builds domain entities and persists them to the database.
type Factory struct {
	db    *gorm.DB
	opts  Options
	rng   *rand.Rand
	faker *gofakeit.Faker
	// synthetic ID counter when running in DryRun mode
	nextID uint
	hash   string
}

// NewFactory creates a new Factory bound to the provided Gorm DB.
func NewFactory(db *gorm.DB, opts Options) *Factory {
	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	if opts.MaxDays <= 0 {
		opts.MaxDays = 90
	}
	return &Factory{
		db:   db,
		opts: opts,
		// #nosec G404: acceptable for seeding
		rng:    rand.New(rand.NewSource(seed)),
		faker:  gofakeit.New(seed),
		nextID: 1000,
	}
}

func (f *Factory) passwordHash() string {
	if f.hash != "" {
		return f.hash
	}
	cost := bcrypt.DefaultCost
	if f.opts.SkipBcrypt {
		cost = bcrypt.MinCost
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(DefaultPassword), cost)
	if err != nil {
		// bcrypt only fails on oversized input
		panic(err)
	}
	f.hash = string(hashed)
	return f.hash
}

// createdAt returns a realistic timestamp within MaxDays.
func (f *Factory) createdAt() time.Time {
	daysBack := f.rng.Intn(f.opts.MaxDays)
	hoursBack := f.rng.Intn(24)
	minsBack := f.rng.Intn(60)
	return time.Now().Add(-time.Duration(daysBack)*24*time.Hour - time.Duration(hoursBack)*time.Hour - time.Duration(minsBack)*time.Minute)
}

// BuildUser constructs an approved free-tier user without persisting it.
func (f *Factory) BuildUser(overrides ...func(*models.User)) *models.User {
	base := strings.ToLower(f.faker.Username())
	base = strings.Trim(strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' {
			return r
		}
		return -1
	}, base), "_")
	if len(base) > 20 {
		base = base[:20]
	}
	username := fmt.Sprintf("%s%d", base, f.rng.Intn(900)+100)

	user := &models.User{
		Username:     username,
		Email:        username + "@example.com",
		Password:     f.passwordHash(),
		Role:         models.RoleUser,
		IsApproved:   true,
		MaxBookmarks: models.FreeTierMaxBookmarks,
		Bio:          f.faker.Sentence(10),
		Website:      "https://" + f.faker.DomainName(),
		CreatedAt:    f.createdAt(),
	}
	for _, override := range overrides {
		override(user)
	}
	return user
}

// CreateUser constructs and persists a sample user.
func (f *Factory) CreateUser(overrides ...func(*models.User)) (*models.User, error) {
	user := f.BuildUser(overrides...)
	if f.opts.DryRun {
		f.nextID++
		user.ID = f.nextID
		log.Printf("[dry-run] CreateUser: %s", user.Username)
		return user, nil
	}
	if err := f.db.Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// AsPremium upgrades a built user to the premium tier for the default duration.
func AsPremium(u *models.User) {
	until := time.Now().Add(models.DefaultPremiumDuration)
	u.IsPremium = true
	u.PremiumUntil = &until
	u.MaxBookmarks = models.PremiumTierMaxBookmarks
}

// BuildBookmark constructs a bookmark owned by owner. Roughly two in three are public.
func (f *Factory) BuildBookmark(owner *models.User, overrides ...func(*models.Bookmark)) *models.Bookmark {
	host := f.faker.DomainName()
	slug := strings.ReplaceAll(strings.ToLower(f.faker.BuzzWord()), " ", "-")
	title := fmt.Sprintf("%s %s", adjectives[f.rng.Intn(len(adjectives))], f.faker.HipsterWord())

	b := &models.Bookmark{
		UserID:      owner.ID,
		URL:         fmt.Sprintf("https://%s/%s-%d", host, slug, f.rng.Intn(10000)),
		Title:       strings.ToUpper(title[:1]) + title[1:],
		Description: f.faker.Sentence(12),
		IsPublic:    f.rng.Intn(3) != 0,
		IsPinned:    f.rng.Intn(10) == 0,
		CreatedAt:   f.createdAt(),
		Username:    owner.Username,
	}
	for _, override := range overrides {
		override(b)
	}
	if f.opts.DryRun {
		f.nextID++
		b.ID = f.nextID
	}
	return b
}

// BuildTags picks up to n distinct tag names from the curated pool.
func (f *Factory) BuildTags(n int) []string {
	if n > len(tagPool) {
		n = len(tagPool)
	}
	picked := f.rng.Perm(len(tagPool))[:n]
	out := make([]string, 0, n)
	for _, i := range picked {
		out = append(out, tagPool[i])
	}
	return out
}

// BuildComment constructs a comment by author on bookmark.
func (f *Factory) BuildComment(author *models.User, bookmark *models.Bookmark, parentID *uint) *models.Comment {
	return &models.Comment{
		BookmarkID:      bookmark.ID,
		UserID:          author.ID,
		Content:         f.faker.Sentence(f.rng.Intn(12) + 4),
		ParentID:        parentID,
		ClientCommentID: "seed-" + f.faker.UUID(),
	}
}

var (
	tagPool = []string{
		"golang", "rust", "databases", "postgres", "distributed systems", "devops",
		"kubernetes", "frontend", "css", "typescript", "security", "machine learning",
		"career", "design", "productivity", "linux", "networking", "observability",
		"testing", "open source", "homelab", "startups", "writing", "history",
	}

	adjectives = []string{
		"practical", "fascinating", "definitive", "gentle", "illustrated", "annotated",
		"opinionated", "visual", "minimal", "complete", "deep", "friendly", "honest",
	}
)
