package repository

import (
	"context"
	"errors"
	"strings"

	"linkshelf/internal/cache"
	"linkshelf/internal/models"
	"linkshelf/internal/validation"

	"gorm.io/gorm"
)

// BookmarkRepository defines persistence operations for bookmarks.
type BookmarkRepository interface {
	CreateWithQuota(ctx context.Context, bookmark *models.Bookmark, tags []validation.TagInput) error
	GetByID(ctx context.Context, id, viewerID uint) (*models.Bookmark, error)
	List(ctx context.Context, filter models.BookmarkFilter, viewerID uint) ([]*models.Bookmark, int64, error)
	Update(ctx context.Context, id uint, fields map[string]any, tags *[]validation.TagInput, actorID uint) error
	Delete(ctx context.Context, id uint) error
	IncrementViews(ctx context.Context, id uint) error
	ListPublic(ctx context.Context, limit int) ([]models.Bookmark, error)
}

type bookmarkRepository struct {
	db *gorm.DB
}

// NewBookmarkRepository returns a new BookmarkRepository implementation.
func NewBookmarkRepository(db *gorm.DB) BookmarkRepository {
	return &bookmarkRepository{db: db}
}

// CreateWithQuota checks the owner's quota and inserts the bookmark with its tags in one
// transaction. The owner row is locked first so concurrent creates cannot both pass the check.
func (r *bookmarkRepository) CreateWithQuota(ctx context.Context, bookmark *models.Bookmark, tags []validation.TagInput) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		found, err := touchUser(tx, bookmark.UserID)
		if err != nil {
			return err
		}
		if !found {
			return models.NewNotFoundError("User", bookmark.UserID)
		}

		var owner models.User
		if err := tx.Select("id", "max_bookmarks").First(&owner, bookmark.UserID).Error; err != nil {
			return err
		}
		var count int64
		if err := tx.Model(&models.Bookmark{}).Where("user_id = ?", bookmark.UserID).Count(&count).Error; err != nil {
			return err
		}
		if count >= int64(owner.MaxBookmarks) {
			return models.NewQuotaExceededError(owner.MaxBookmarks)
		}

		if err := tx.Omit("User").Create(bookmark).Error; err != nil {
			return err
		}
		attached, err := upsertTags(tx, tags, bookmark.UserID)
		if err != nil {
			return err
		}
		if err := replaceBookmarkTags(tx, bookmark.ID, attached); err != nil {
			return err
		}
		bookmark.Tags = tagSlugs(attached)
		return nil
	})
	if err != nil {
		return dbError(err, "Bookmark")
	}
	cache.InvalidateProfiles(ctx, bookmark.UserID)
	if len(tags) > 0 {
		cache.InvalidateTags(ctx)
	}
	return nil
}

// GetByID loads the denormalized view. Anonymous views are cached.
func (r *bookmarkRepository) GetByID(ctx context.Context, id, viewerID uint) (*models.Bookmark, error) {
	load := func(ctx context.Context) (*models.Bookmark, error) {
		var bookmark models.Bookmark
		err := r.applyBookmarkDetails(r.db.WithContext(ctx), viewerID).
			Where("bookmarks.id = ?", id).
			Take(&bookmark).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, models.NewNotFoundError("Bookmark", id)
			}
			return nil, dbError(err, "Bookmark")
		}
		if err := r.loadTags(ctx, []*models.Bookmark{&bookmark}); err != nil {
			return nil, err
		}
		return &bookmark, nil
	}

	if viewerID == 0 {
		return cache.Aside(ctx, cache.BookmarkKey(id), cache.BookmarkTTL, load)
	}
	return load(ctx)
}

func (r *bookmarkRepository) List(ctx context.Context, filter models.BookmarkFilter, viewerID uint) ([]*models.Bookmark, int64, error) {
	_, limit, offset := normalizePage(filter.Page, filter.Limit)
	scope := bookmarkFilterScope(filter, viewerID)

	var total int64
	if err := r.db.WithContext(ctx).Model(&models.Bookmark{}).Scopes(scope).Count(&total).Error; err != nil {
		return nil, 0, dbError(err, "Bookmark")
	}

	bookmarks := make([]*models.Bookmark, 0, limit)
	err := r.applyBookmarkDetails(r.db.WithContext(ctx), viewerID).
		Scopes(scope).
		Order("bookmarks.is_pinned DESC, bookmarks.created_at DESC, bookmarks.id DESC").
		Limit(limit).
		Offset(offset).
		Find(&bookmarks).Error
	if err != nil {
		return nil, 0, dbError(err, "Bookmark")
	}
	if err := r.loadTags(ctx, bookmarks); err != nil {
		return nil, 0, err
	}
	return bookmarks, total, nil
}

// bookmarkFilterScope applies visibility and the list filters. Visibility holds in every mode.
func bookmarkFilterScope(filter models.BookmarkFilter, viewerID uint) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if viewerID != 0 {
			db = db.Where("(bookmarks.is_public = ? OR bookmarks.user_id = ?)", true, viewerID)
		} else {
			db = db.Where("bookmarks.is_public = ?", true)
		}
		if filter.UserID != 0 {
			db = db.Where("bookmarks.user_id = ?", filter.UserID)
		}
		if filter.TagSlug != "" {
			db = db.Where("EXISTS (SELECT 1 FROM bookmark_tags JOIN tags ON tags.id = bookmark_tags.tag_id "+
				"WHERE bookmark_tags.bookmark_id = bookmarks.id AND tags.slug = ?)", filter.TagSlug)
		}
		if q := strings.TrimSpace(filter.Search); q != "" {
			like := "%" + escapeLike(strings.ToLower(q)) + "%"
			db = db.Where(`(LOWER(bookmarks.title) LIKE ? ESCAPE '\' OR LOWER(bookmarks.description) LIKE ? ESCAPE '\')`, like, like)
		}
		if filter.Favorites {
			db = db.Where("EXISTS (SELECT 1 FROM favorites WHERE favorites.bookmark_id = bookmarks.id AND favorites.user_id = ?)", viewerID)
		}
		return db
	}
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// applyBookmarkDetails selects the owner's username, the comment count and the viewer's
// favorite flag in a single query.
func (r *bookmarkRepository) applyBookmarkDetails(db *gorm.DB, viewerID uint) *gorm.DB {
	selectQuery := "bookmarks.*, users.username AS username, " +
		"(SELECT COUNT(*) FROM comments WHERE comments.bookmark_id = bookmarks.id) AS comment_count"

	db = db.Model(&models.Bookmark{}).Joins("JOIN users ON users.id = bookmarks.user_id")
	if viewerID != 0 {
		return db.Select(selectQuery+", EXISTS(SELECT 1 FROM favorites WHERE favorites.bookmark_id = bookmarks.id AND favorites.user_id = ?) AS is_favorited", viewerID)
	}
	return db.Select(selectQuery + ", false AS is_favorited")
}

// loadTags fills Tags on each bookmark in attach order.
func (r *bookmarkRepository) loadTags(ctx context.Context, bookmarks []*models.Bookmark) error {
	if len(bookmarks) == 0 {
		return nil
	}
	ids := make([]uint, 0, len(bookmarks))
	byID := make(map[uint]*models.Bookmark, len(bookmarks))
	for _, b := range bookmarks {
		b.Tags = []string{}
		ids = append(ids, b.ID)
		byID[b.ID] = b
	}

	var rows []struct {
		BookmarkID uint
		Slug       string
	}
	err := r.db.WithContext(ctx).
		Table("bookmark_tags").
		Select("bookmark_tags.bookmark_id, tags.slug").
		Joins("JOIN tags ON tags.id = bookmark_tags.tag_id").
		Where("bookmark_tags.bookmark_id IN ?", ids).
		Order("bookmark_tags.bookmark_id, bookmark_tags.position").
		Scan(&rows).Error
	if err != nil {
		return dbError(err, "Tag")
	}
	for _, row := range rows {
		if b, ok := byID[row.BookmarkID]; ok {
			b.Tags = append(b.Tags, row.Slug)
		}
	}
	return nil
}

// Update applies sparse column changes. A non-nil tags pointer replaces every tag link.
func (r *bookmarkRepository) Update(ctx context.Context, id uint, fields map[string]any, tags *[]validation.TagInput, actorID uint) error {
	var current models.Bookmark
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Select("id", "user_id").First(&current, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.NewNotFoundError("Bookmark", id)
			}
			return err
		}
		if len(fields) > 0 {
			if err := tx.Model(&models.Bookmark{}).Where("id = ?", id).Updates(fields).Error; err != nil {
				return err
			}
		}
		if tags == nil {
			return nil
		}
		attached, err := upsertTags(tx, *tags, actorID)
		if err != nil {
			return err
		}
		return replaceBookmarkTags(tx, id, attached)
	})
	if err != nil {
		return dbError(err, "Bookmark")
	}
	cache.InvalidateBookmark(ctx, id)
	cache.InvalidateProfiles(ctx, current.UserID)
	// public tag counts follow visibility as well as the links themselves
	if _, visibility := fields["is_public"]; tags != nil || visibility {
		cache.InvalidateTags(ctx)
	}
	return nil
}

// Delete removes the bookmark and everything hanging off it.
func (r *bookmarkRepository) Delete(ctx context.Context, id uint) error {
	// owner, favoriters and commenters all lose profile stats
	var affected []uint
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var owner []uint
		if err := tx.Model(&models.Bookmark{}).Where("id = ?", id).Pluck("user_id", &owner).Error; err != nil {
			return err
		}
		var fans, commenters []uint
		if err := tx.Model(&models.Favorite{}).Where("bookmark_id = ?", id).Pluck("user_id", &fans).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Comment{}).Where("bookmark_id = ?", id).Distinct().Pluck("user_id", &commenters).Error; err != nil {
			return err
		}
		affected = append(append(owner, fans...), commenters...)

		if err := tx.Where("bookmark_id = ?", id).Delete(&models.BookmarkTag{}).Error; err != nil {
			return err
		}
		if err := tx.Where("bookmark_id = ?", id).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("bookmark_id = ?", id).Delete(&models.Favorite{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&models.Bookmark{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return models.NewNotFoundError("Bookmark", id)
		}
		return nil
	})
	if err != nil {
		return dbError(err, "Bookmark")
	}
	cache.InvalidateBookmark(ctx, id)
	cache.InvalidateProfiles(ctx, affected...)
	cache.InvalidateTags(ctx)
	return nil
}

func (r *bookmarkRepository) IncrementViews(ctx context.Context, id uint) error {
	err := r.db.WithContext(ctx).
		Model(&models.Bookmark{}).
		Where("id = ?", id).
		UpdateColumn("view_count", gorm.Expr("view_count + 1")).Error
	if err != nil {
		return dbError(err, "Bookmark")
	}
	cache.InvalidateBookmark(ctx, id)
	return nil
}

// ListPublic returns the newest public bookmarks, ids and timestamps only.
func (r *bookmarkRepository) ListPublic(ctx context.Context, limit int) ([]models.Bookmark, error) {
	var bookmarks []models.Bookmark
	err := r.db.WithContext(ctx).
		Select("id", "updated_at").
		Where("is_public = ?", true).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&bookmarks).Error
	if err != nil {
		return nil, dbError(err, "Bookmark")
	}
	return bookmarks, nil
}

func tagSlugs(tags []models.Tag) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		out = append(out, t.Slug)
	}
	return out
}
