package repository

import (
	"context"
	"errors"

	"linkshelf/internal/cache"
	"linkshelf/internal/models"

	"gorm.io/gorm"
)

// CommentRepository defines persistence operations for comments.
type CommentRepository interface {
	Create(ctx context.Context, comment *models.Comment) error
	GetByID(ctx context.Context, id uint) (*models.Comment, error)
	GetByClientID(ctx context.Context, userID uint, clientCommentID string) (*models.Comment, error)
	ListByBookmark(ctx context.Context, bookmarkID uint) ([]*models.Comment, error)
	UpdateContent(ctx context.Context, id uint, content string) error
	DeleteWithReplies(ctx context.Context, id uint) error
}

type commentRepository struct {
	db *gorm.DB
}

// NewCommentRepository creates a new CommentRepository
func NewCommentRepository(db *gorm.DB) CommentRepository {
	return &commentRepository{db: db}
}

// Create inserts the comment. A duplicate (user, clientCommentId) pair surfaces as CONFLICT.
func (r *commentRepository) Create(ctx context.Context, comment *models.Comment) error {
	if err := r.db.WithContext(ctx).Omit("User", "Bookmark").Create(comment).Error; err != nil {
		return dbError(err, "Comment")
	}
	cache.InvalidateBookmark(ctx, comment.BookmarkID)
	cache.InvalidateProfiles(ctx, comment.UserID)
	return nil
}

func (r *commentRepository) withUsername(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Model(&models.Comment{}).
		Select("comments.*, users.username AS username").
		Joins("JOIN users ON users.id = comments.user_id")
}

func (r *commentRepository) GetByID(ctx context.Context, id uint) (*models.Comment, error) {
	var comment models.Comment
	if err := r.withUsername(ctx).Where("comments.id = ?", id).Take(&comment).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Comment", id)
		}
		return nil, dbError(err, "Comment")
	}
	return &comment, nil
}

// GetByClientID returns nil, nil when the author has not used clientCommentID yet.
func (r *commentRepository) GetByClientID(ctx context.Context, userID uint, clientCommentID string) (*models.Comment, error) {
	var comment models.Comment
	err := r.withUsername(ctx).
		Where("comments.user_id = ? AND comments.client_comment_id = ?", userID, clientCommentID).
		Take(&comment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, dbError(err, "Comment")
	}
	return &comment, nil
}

func (r *commentRepository) ListByBookmark(ctx context.Context, bookmarkID uint) ([]*models.Comment, error) {
	comments := []*models.Comment{}
	err := r.withUsername(ctx).
		Where("comments.bookmark_id = ?", bookmarkID).
		Order("comments.created_at ASC, comments.id ASC").
		Find(&comments).Error
	if err != nil {
		return nil, dbError(err, "Comment")
	}
	return comments, nil
}

// UpdateContent leaves caches alone: comment bodies are never part of a cached view.
func (r *commentRepository) UpdateContent(ctx context.Context, id uint, content string) error {
	res := r.db.WithContext(ctx).Model(&models.Comment{}).Where("id = ?", id).Update("content", content)
	if res.Error != nil {
		return dbError(res.Error, "Comment")
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Comment", id)
	}
	return nil
}

// DeleteWithReplies removes the comment and its direct replies.
func (r *commentRepository) DeleteWithReplies(ctx context.Context, id uint) error {
	var removed []models.Comment
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Select("id", "user_id", "bookmark_id").
			Where("id = ? OR parent_id = ?", id, id).
			Find(&removed).Error; err != nil {
			return err
		}
		if err := tx.Where("parent_id = ?", id).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&models.Comment{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return models.NewNotFoundError("Comment", id)
		}
		return nil
	})
	if err != nil {
		return dbError(err, "Comment")
	}
	authors := make([]uint, 0, len(removed))
	for _, c := range removed {
		authors = append(authors, c.UserID)
	}
	if len(removed) > 0 {
		cache.InvalidateBookmark(ctx, removed[0].BookmarkID)
	}
	cache.InvalidateProfiles(ctx, authors...)
	return nil
}
