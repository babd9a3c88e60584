package seed

import (
	"context"
	"errors"
	"fmt"
	"log"

	"linkshelf/internal/models"
	"linkshelf/internal/repository"
	"linkshelf/internal/validation"

	"gorm.io/gorm"
)

// Counts sizes a seeding run.
type Counts struct {
	Users             int
	BookmarksPerUser  int
	FavoritesPerUser  int
	CommentsPerPublic int
	PremiumEvery      int
}

// DefaultCounts is a small but lively dataset.
var DefaultCounts = Counts{
	Users:             25,
	BookmarksPerUser:  8,
	FavoritesPerUser:  6,
	CommentsPerPublic: 2,
	PremiumEvery:      5,
}

// Report summarizes what a run created.
type Report struct {
	Users     int
	Bookmarks int
	Favorites int
	Comments  int
}

// Seeder fills the database through the repositories so quota, tag and
// favorite counter rules hold for seeded rows too.
type Seeder struct {
	db        *gorm.DB
	factory   *Factory
	bookmarks repository.BookmarkRepository
	favorites repository.FavoriteRepository
	comments  repository.CommentRepository
}

// NewSeeder creates a Seeder. opts.DryRun is ignored; seeding always writes.
func NewSeeder(db *gorm.DB, opts Options) *Seeder {
	opts.DryRun = false
	return &Seeder{
		db:        db,
		factory:   NewFactory(db, opts),
		bookmarks: repository.NewBookmarkRepository(db),
		favorites: repository.NewFavoriteRepository(db),
		comments:  repository.NewCommentRepository(db),
	}
}

// ClearAll removes every seeded table's rows, children first. Settings are kept.
func (s *Seeder) ClearAll(ctx context.Context) error {
	log.Println("🗑️  Clearing existing data...")
	tables := []any{
		&models.Comment{}, &models.Favorite{}, &models.BookmarkTag{},
		&models.Bookmark{}, &models.Tag{}, &models.User{},
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, t := range tables {
			if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(t).Error; err != nil {
				return fmt.Errorf("clear %T: %w", t, err)
			}
		}
		return nil
	})
}

// SeedUsers creates n approved users; every premiumEvery-th one is premium.
func (s *Seeder) SeedUsers(ctx context.Context, n, premiumEvery int) ([]*models.User, error) {
	users := make([]*models.User, 0, n)
	for i := 0; i < n; i++ {
		var overrides []func(*models.User)
		if premiumEvery > 0 && (i+1)%premiumEvery == 0 {
			overrides = append(overrides, AsPremium)
		}
		user := s.factory.BuildUser(overrides...)
		if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				// fake usernames collide now and then
				i--
				continue
			}
			return nil, fmt.Errorf("create user: %w", err)
		}
		users = append(users, user)
	}
	return users, nil
}

// SeedBookmarks creates up to perUser tagged bookmarks for each user, stopping at quota.
func (s *Seeder) SeedBookmarks(ctx context.Context, users []*models.User, perUser int) ([]*models.Bookmark, error) {
	var out []*models.Bookmark
	for _, u := range users {
		for i := 0; i < perUser; i++ {
			b := s.factory.BuildBookmark(u)
			tags, err := validation.NormalizeTags(s.factory.BuildTags(s.factory.rng.Intn(4)))
			if err != nil {
				return nil, err
			}
			if err := s.bookmarks.CreateWithQuota(ctx, b, tags); err != nil {
				var appErr *models.AppError
				if errors.As(err, &appErr) && appErr.Code == models.CodeQuotaExceeded {
					break
				}
				return nil, fmt.Errorf("create bookmark for %s: %w", u.Username, err)
			}
			out = append(out, b)
		}
	}
	return out, nil
}

// SeedEngagement adds favorites and threaded comments on public bookmarks.
func (s *Seeder) SeedEngagement(ctx context.Context, users []*models.User, bookmarks []*models.Bookmark, counts Counts) (favorites, comments int, err error) {
	var public []*models.Bookmark
	for _, b := range bookmarks {
		if b.IsPublic {
			public = append(public, b)
		}
	}
	if len(public) == 0 || len(users) == 0 {
		return 0, 0, nil
	}

	rng := s.factory.rng
	for _, u := range users {
		for _, i := range rng.Perm(len(public))[:min(counts.FavoritesPerUser, len(public))] {
			res, err := s.favorites.Toggle(ctx, u.ID, public[i].ID, false)
			if err != nil {
				return favorites, comments, fmt.Errorf("favorite: %w", err)
			}
			if res.Action == models.FavoriteAdded {
				favorites++
			}
		}
	}

	for _, b := range public {
		var parent *uint
		for i := 0; i < counts.CommentsPerPublic; i++ {
			author := users[rng.Intn(len(users))]
			c := s.factory.BuildComment(author, b, parent)
			if err := s.comments.Create(ctx, c); err != nil {
				return favorites, comments, fmt.Errorf("comment: %w", err)
			}
			comments++
			if parent == nil && rng.Intn(2) == 0 {
				parent = &c.ID
			}
		}
	}
	return favorites, comments, nil
}

// Run seeds users, bookmarks and engagement in order.
func (s *Seeder) Run(ctx context.Context, counts Counts) (*Report, error) {
	log.Printf("🌱 Seeding %d users with up to %d bookmarks each...", counts.Users, counts.BookmarksPerUser)

	users, err := s.SeedUsers(ctx, counts.Users, counts.PremiumEvery)
	if err != nil {
		return nil, err
	}
	log.Printf("✓ %d users created", len(users))

	bookmarks, err := s.SeedBookmarks(ctx, users, counts.BookmarksPerUser)
	if err != nil {
		return nil, err
	}
	log.Printf("✓ %d bookmarks created", len(bookmarks))

	favorites, comments, err := s.SeedEngagement(ctx, users, bookmarks, counts)
	if err != nil {
		return nil, err
	}
	log.Printf("✓ %d favorites and %d comments created", favorites, comments)

	return &Report{Users: len(users), Bookmarks: len(bookmarks), Favorites: favorites, Comments: comments}, nil
}
