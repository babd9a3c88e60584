package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"linkshelf/internal/cache"
	"linkshelf/internal/models"

	"gorm.io/gorm"
)

// User list status filters.
const (
	UserStatusAll      = "all"
	UserStatusPending  = "pending"
	UserStatusApproved = "approved"
	UserStatusPremium  = "premium"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id uint) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	GetByLogin(ctx context.Context, login string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	UpdateFields(ctx context.Context, id uint, fields map[string]any) (*models.User, error)
	TouchLastLogin(ctx context.Context, id uint, at time.Time) error
	List(ctx context.Context, status string, page, limit int) ([]models.User, int64, error)
	ListAdmins(ctx context.Context) ([]models.User, error)
	ExpirePremium(ctx context.Context, now time.Time) (int64, error)
	Stats(ctx context.Context, userID, viewerID uint) (models.ProfileStats, error)
	ListPublicAuthors(ctx context.Context) ([]string, error)
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository returns a new UserRepository implementation.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

// GetByID is served from the user cache. Cached rows carry no password hash.
func (r *userRepository) GetByID(ctx context.Context, id uint) (*models.User, error) {
	return cache.Aside(ctx, cache.UserKey(id), cache.UserTTL, func(ctx context.Context) (*models.User, error) {
		return r.first(ctx, "User", id, "id = ?", id)
	})
}

// GetByUsername matches case-insensitively through username_key.
func (r *userRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.first(ctx, "User", username, "username_key = ?", models.UsernameKey(username))
}

// GetByLogin resolves an email address or a username.
func (r *userRepository) GetByLogin(ctx context.Context, login string) (*models.User, error) {
	login = strings.TrimSpace(login)
	if strings.Contains(login, "@") {
		return r.first(ctx, "User", login, "email = ?", strings.ToLower(login))
	}
	return r.GetByUsername(ctx, login)
}

func (r *userRepository) first(ctx context.Context, resource string, id any, query string, args ...any) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where(query, args...).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError(resource, id)
		}
		return nil, dbError(err, resource)
	}
	return &user, nil
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		if models.IsUniqueViolation(err) {
			return models.NewConflictError("username or email already registered")
		}
		return dbError(err, "User")
	}
	return nil
}

// UpdateFields applies a column map and returns the fresh row.
func (r *userRepository) UpdateFields(ctx context.Context, id uint, fields map[string]any) (*models.User, error) {
	if len(fields) == 0 {
		return nil, models.NewValidationError("no fields to update")
	}
	res := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return nil, dbError(res.Error, "User")
	}
	if res.RowsAffected == 0 {
		return nil, models.NewNotFoundError("User", id)
	}
	user, err := r.first(ctx, "User", id, "id = ?", id)
	if err != nil {
		return nil, err
	}
	cache.InvalidateUser(ctx, user.ID)
	return user, nil
}

func (r *userRepository) TouchLastLogin(ctx context.Context, id uint, at time.Time) error {
	err := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).UpdateColumn("last_login", at).Error
	return dbError(err, "User")
}

func (r *userRepository) List(ctx context.Context, status string, page, limit int) ([]models.User, int64, error) {
	_, limit, offset := normalizePage(page, limit)

	query := r.db.WithContext(ctx).Model(&models.User{})
	switch status {
	case "", UserStatusAll:
	case UserStatusPending:
		query = query.Where("is_approved = ?", false)
	case UserStatusApproved:
		query = query.Where("is_approved = ?", true)
	case UserStatusPremium:
		query = query.Where("is_premium = ?", true)
	default:
		return nil, 0, models.NewValidationError("status must be one of pending, approved, premium, all")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, dbError(err, "User")
	}

	var users []models.User
	if err := query.Order("created_at DESC, id DESC").Limit(limit).Offset(offset).Find(&users).Error; err != nil {
		return nil, 0, dbError(err, "User")
	}
	return users, total, nil
}

func (r *userRepository) ListAdmins(ctx context.Context) ([]models.User, error) {
	var users []models.User
	if err := r.db.WithContext(ctx).Where("role = ?", models.RoleAdmin).Order("id").Find(&users).Error; err != nil {
		return nil, dbError(err, "User")
	}
	return users, nil
}

// ExpirePremium reverts lapsed premium accounts to the free tier.
func (r *userRepository) ExpirePremium(ctx context.Context, now time.Time) (int64, error) {
	var expired []models.User
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("is_premium = ? AND premium_until IS NOT NULL AND premium_until < ?", true, now).
			Find(&expired).Error; err != nil {
			return err
		}
		if len(expired) == 0 {
			return nil
		}
		ids := make([]uint, 0, len(expired))
		for _, u := range expired {
			ids = append(ids, u.ID)
		}
		return tx.Model(&models.User{}).Where("id IN ?", ids).Updates(map[string]any{
			"is_premium":    false,
			"premium_until": nil,
			"max_bookmarks": models.FreeTierMaxBookmarks,
		}).Error
	})
	if err != nil {
		return 0, dbError(err, "User")
	}
	for _, u := range expired {
		cache.InvalidateUser(ctx, u.ID)
	}
	return int64(len(expired)), nil
}

// Stats aggregates profile counters. viewerID decides whether private bookmarks count.
func (r *userRepository) Stats(ctx context.Context, userID, viewerID uint) (models.ProfileStats, error) {
	var stats models.ProfileStats
	db := r.db.WithContext(ctx)

	visible := db.Model(&models.Bookmark{}).Where("user_id = ?", userID)
	if viewerID != userID {
		visible = visible.Where("is_public = ?", true)
	}
	if err := visible.Count(&stats.BookmarkCount).Error; err != nil {
		return stats, dbError(err, "User")
	}
	if err := db.Model(&models.Bookmark{}).Where("user_id = ? AND is_public = ?", userID, true).
		Count(&stats.PublicBookmarkCount).Error; err != nil {
		return stats, dbError(err, "User")
	}
	if err := db.Model(&models.Bookmark{}).Where("user_id = ? AND is_public = ?", userID, true).
		Select("COALESCE(SUM(favorite_count), 0)").Scan(&stats.FavoritesReceived).Error; err != nil {
		return stats, dbError(err, "User")
	}
	if err := db.Model(&models.Favorite{}).Where("user_id = ?", userID).Count(&stats.FavoritesGiven).Error; err != nil {
		return stats, dbError(err, "User")
	}
	if err := db.Model(&models.Comment{}).Where("user_id = ?", userID).Count(&stats.CommentCount).Error; err != nil {
		return stats, dbError(err, "User")
	}
	return stats, nil
}

// ListPublicAuthors returns usernames owning at least one public bookmark.
func (r *userRepository) ListPublicAuthors(ctx context.Context) ([]string, error) {
	var names []string
	err := r.db.WithContext(ctx).
		Model(&models.User{}).
		Distinct("users.username").
		Joins("JOIN bookmarks ON bookmarks.user_id = users.id").
		Where("bookmarks.is_public = ?", true).
		Order("users.username").
		Pluck("users.username", &names).Error
	if err != nil {
		return nil, dbError(err, "User")
	}
	return names, nil
}
