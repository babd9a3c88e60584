package repository

import (
	"context"
	"errors"

	"linkshelf/internal/cache"
	"linkshelf/internal/models"
	"linkshelf/internal/validation"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TagRepository defines persistence operations for tags.
type TagRepository interface {
	Upsert(ctx context.Context, inputs []validation.TagInput, createdBy uint) ([]models.Tag, error)
	List(ctx context.Context) ([]models.Tag, error)
	GetBySlug(ctx context.Context, slug string) (*models.Tag, error)
	UpdateMeta(ctx context.Context, slug, metaTitle, metaDescription string) (*models.Tag, error)
	Delete(ctx context.Context, slug string) error
	PruneOrphans(ctx context.Context) (int64, error)
	ListPublicSlugs(ctx context.Context) ([]string, error)
}

type tagRepository struct {
	db *gorm.DB
}

// NewTagRepository returns a new TagRepository implementation.
func NewTagRepository(db *gorm.DB) TagRepository {
	return &tagRepository{db: db}
}

func (r *tagRepository) Upsert(ctx context.Context, inputs []validation.TagInput, createdBy uint) ([]models.Tag, error) {
	var tags []models.Tag
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		tags, err = upsertTags(tx, inputs, createdBy)
		return err
	})
	if err != nil {
		return nil, dbError(err, "Tag")
	}
	cache.InvalidateTags(ctx)
	return tags, nil
}

// upsertTags inserts missing tags by slug and returns all of them in input order.
// INSERT ... ON CONFLICT DO NOTHING makes concurrent creators converge on one row.
func upsertTags(tx *gorm.DB, inputs []validation.TagInput, createdBy uint) ([]models.Tag, error) {
	if len(inputs) == 0 {
		return nil, nil
	}

	var creator *uint
	if createdBy != 0 {
		creator = &createdBy
	}

	rows := make([]models.Tag, 0, len(inputs))
	slugs := make([]string, 0, len(inputs))
	for _, in := range inputs {
		rows = append(rows, models.Tag{Name: in.Name, Slug: in.Slug, CreatedBy: creator})
		slugs = append(slugs, in.Slug)
	}

	if err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "slug"}},
		DoNothing: true,
	}).Create(&rows).Error; err != nil {
		return nil, err
	}

	var found []models.Tag
	if err := tx.Where("slug IN ?", slugs).Find(&found).Error; err != nil {
		return nil, err
	}

	bySlug := make(map[string]models.Tag, len(found))
	for _, t := range found {
		bySlug[t.Slug] = t
	}
	out := make([]models.Tag, 0, len(slugs))
	for _, s := range slugs {
		t, ok := bySlug[s]
		if !ok {
			return nil, errors.New("tag upsert lost slug " + s)
		}
		out = append(out, t)
	}
	return out, nil
}

// replaceBookmarkTags deletes every link for bookmarkID and attaches tags in order.
func replaceBookmarkTags(tx *gorm.DB, bookmarkID uint, tags []models.Tag) error {
	if err := tx.Where("bookmark_id = ?", bookmarkID).Delete(&models.BookmarkTag{}).Error; err != nil {
		return err
	}
	if len(tags) == 0 {
		return nil
	}
	links := make([]models.BookmarkTag, 0, len(tags))
	for i, t := range tags {
		links = append(links, models.BookmarkTag{BookmarkID: bookmarkID, TagID: t.ID, Position: i})
	}
	return tx.Create(&links).Error
}

func (r *tagRepository) List(ctx context.Context) ([]models.Tag, error) {
	return cache.Aside(ctx, cache.TagListKey, cache.TagListTTL, func(ctx context.Context) ([]models.Tag, error) {
		var tags []models.Tag
		err := r.db.WithContext(ctx).
			Model(&models.Tag{}).
			Select("tags.*, COUNT(bookmarks.id) AS bookmark_count").
			Joins("LEFT JOIN bookmark_tags ON bookmark_tags.tag_id = tags.id").
			Joins("LEFT JOIN bookmarks ON bookmarks.id = bookmark_tags.bookmark_id AND bookmarks.is_public = ?", true).
			Group("tags.id").
			Order("bookmark_count DESC, tags.slug ASC").
			Find(&tags).Error
		if err != nil {
			return nil, dbError(err, "Tag")
		}
		return tags, nil
	})
}

func (r *tagRepository) GetBySlug(ctx context.Context, slug string) (*models.Tag, error) {
	var tag models.Tag
	err := r.db.WithContext(ctx).
		Model(&models.Tag{}).
		Select("tags.*, (SELECT COUNT(*) FROM bookmark_tags JOIN bookmarks ON bookmarks.id = bookmark_tags.bookmark_id WHERE bookmark_tags.tag_id = tags.id AND bookmarks.is_public = ?) AS bookmark_count", true).
		Where("tags.slug = ?", slug).
		First(&tag).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Tag", slug)
		}
		return nil, dbError(err, "Tag")
	}
	return &tag, nil
}

func (r *tagRepository) UpdateMeta(ctx context.Context, slug, metaTitle, metaDescription string) (*models.Tag, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Tag{}).
		Where("slug = ?", slug).
		Updates(map[string]any{"meta_title": metaTitle, "meta_description": metaDescription})
	if res.Error != nil {
		return nil, dbError(res.Error, "Tag")
	}
	if res.RowsAffected == 0 {
		return nil, models.NewNotFoundError("Tag", slug)
	}
	cache.InvalidateTags(ctx)
	return r.GetBySlug(ctx, slug)
}

func (r *tagRepository) Delete(ctx context.Context, slug string) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var tag models.Tag
		if err := tx.Where("slug = ?", slug).First(&tag).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.NewNotFoundError("Tag", slug)
			}
			return err
		}
		if err := tx.Where("tag_id = ?", tag.ID).Delete(&models.BookmarkTag{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Tag{}, tag.ID).Error
	})
	if err != nil {
		return dbError(err, "Tag")
	}
	cache.InvalidateTags(ctx)
	return nil
}

// PruneOrphans deletes tags no bookmark references.
func (r *tagRepository) PruneOrphans(ctx context.Context) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("NOT EXISTS (SELECT 1 FROM bookmark_tags WHERE bookmark_tags.tag_id = tags.id)").
		Delete(&models.Tag{})
	if res.Error != nil {
		return 0, dbError(res.Error, "Tag")
	}
	if res.RowsAffected > 0 {
		cache.InvalidateTags(ctx)
	}
	return res.RowsAffected, nil
}

// ListPublicSlugs returns slugs of tags attached to at least one public bookmark.
func (r *tagRepository) ListPublicSlugs(ctx context.Context) ([]string, error) {
	var slugs []string
	err := r.db.WithContext(ctx).
		Model(&models.Tag{}).
		Distinct("tags.slug").
		Joins("JOIN bookmark_tags ON bookmark_tags.tag_id = tags.id").
		Joins("JOIN bookmarks ON bookmarks.id = bookmark_tags.bookmark_id").
		Where("bookmarks.is_public = ?", true).
		Order("tags.slug").
		Pluck("tags.slug", &slugs).Error
	if err != nil {
		return nil, dbError(err, "Tag")
	}
	return slugs, nil
}
