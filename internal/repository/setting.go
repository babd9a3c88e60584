package repository

import (
	"context"
	"errors"
	"time"

	"linkshelf/internal/cache"
	"linkshelf/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SettingRepository stores site-wide JSON documents.
type SettingRepository interface {
	Get(ctx context.Context, key string) (*models.Setting, error)
	Put(ctx context.Context, key, value string) (*models.Setting, error)
}

type settingRepository struct {
	db *gorm.DB
}

// NewSettingRepository returns a new SettingRepository implementation.
func NewSettingRepository(db *gorm.DB) SettingRepository {
	return &settingRepository{db: db}
}

// Get returns nil, nil for a key that was never saved.
func (r *settingRepository) Get(ctx context.Context, key string) (*models.Setting, error) {
	return cache.Aside(ctx, cache.SettingKey(key), cache.SettingTTL, func(ctx context.Context) (*models.Setting, error) {
		var setting models.Setting
		if err := r.db.WithContext(ctx).Where("key = ?", key).First(&setting).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, nil
			}
			return nil, dbError(err, "Setting")
		}
		return &setting, nil
	})
}

func (r *settingRepository) Put(ctx context.Context, key, value string) (*models.Setting, error) {
	setting := &models.Setting{Key: key, Value: value, UpdatedAt: time.Now()}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(setting).Error
	if err != nil {
		return nil, dbError(err, "Setting")
	}
	cache.InvalidateSetting(ctx, key)
	return setting, nil
}
