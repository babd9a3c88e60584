package repository

import (
	"context"
	"errors"

	"linkshelf/internal/cache"
	"linkshelf/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// FavoriteRepository defines persistence operations for favorites.
type FavoriteRepository interface {
	Toggle(ctx context.Context, userID, bookmarkID uint, seePrivate bool) (*models.FavoriteToggleResult, error)
	Reconcile(ctx context.Context) (int64, error)
}

type favoriteRepository struct {
	db *gorm.DB
}

// NewFavoriteRepository returns a new FavoriteRepository implementation.
func NewFavoriteRepository(db *gorm.DB) FavoriteRepository {
	return &favoriteRepository{db: db}
}

// Toggle flips the (user, bookmark) favorite. The counter only moves when a row actually
// changed, so concurrent toggles keep favorite_count equal to the number of rows.
func (r *favoriteRepository) Toggle(ctx context.Context, userID, bookmarkID uint, seePrivate bool) (*models.FavoriteToggleResult, error) {
	result := &models.FavoriteToggleResult{}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var bookmark models.Bookmark
		if err := tx.Select("id", "user_id", "is_public").First(&bookmark, bookmarkID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.NewNotFoundError("Bookmark", bookmarkID)
			}
			return err
		}
		if !bookmark.IsPublic && bookmark.UserID != userID && !seePrivate {
			return models.NewNotFoundError("Bookmark", bookmarkID)
		}
		result.OwnerID = bookmark.UserID

		var existing int64
		if err := tx.Model(&models.Favorite{}).
			Where("user_id = ? AND bookmark_id = ?", userID, bookmarkID).
			Count(&existing).Error; err != nil {
			return err
		}

		counter := tx.Model(&models.Bookmark{}).Where("id = ?", bookmarkID)
		if existing > 0 {
			result.Action = models.FavoriteRemoved
			res := tx.Where("user_id = ? AND bookmark_id = ?", userID, bookmarkID).Delete(&models.Favorite{})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected > 0 {
				if err := counter.UpdateColumn("favorite_count",
					gorm.Expr("CASE WHEN favorite_count > 0 THEN favorite_count - 1 ELSE 0 END")).Error; err != nil {
					return err
				}
			}
		} else {
			result.Action = models.FavoriteAdded
			res := tx.Clauses(clause.OnConflict{DoNothing: true}).
				Omit("User", "Bookmark").
				Create(&models.Favorite{UserID: userID, BookmarkID: bookmarkID})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected > 0 {
				if err := counter.UpdateColumn("favorite_count", gorm.Expr("favorite_count + 1")).Error; err != nil {
					return err
				}
			}
		}

		return tx.Model(&models.Bookmark{}).
			Where("id = ?", bookmarkID).
			Select("favorite_count").
			Scan(&result.FavoriteCount).Error
	})
	if err != nil {
		return nil, dbError(err, "Favorite")
	}
	cache.InvalidateBookmark(ctx, bookmarkID)
	cache.InvalidateProfiles(ctx, result.OwnerID, userID)
	return result, nil
}

// Reconcile rewrites drifted counters from the favorites table and returns how many changed.
func (r *favoriteRepository) Reconcile(ctx context.Context) (int64, error) {
	const count = "(SELECT COUNT(*) FROM favorites WHERE favorites.bookmark_id = bookmarks.id)"
	res := r.db.WithContext(ctx).Exec("UPDATE bookmarks SET favorite_count = " + count +
		" WHERE favorite_count <> " + count)
	if res.Error != nil {
		return 0, dbError(res.Error, "Favorite")
	}
	return res.RowsAffected, nil
}
