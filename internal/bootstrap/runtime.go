// Package bootstrap connects the runtime dependencies shared by the server and the CLIs.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"linkshelf/internal/cache"
	"linkshelf/internal/config"
	"linkshelf/internal/database"
	"linkshelf/internal/models"
	"linkshelf/internal/seed"

	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Options control runtime initialization behavior.
type Options struct {
	// SkipSchema leaves the schema alone, for tools that manage migrations themselves.
	SkipSchema bool
	// SeedDemo fills an empty development database with demo data.
	SeedDemo bool
}

// InitRuntime connects to DB and Redis, applies the schema and ensures the
// development root admin. The Redis client is nil when Redis is unreachable.
func InitRuntime(ctx context.Context, cfg *config.Config, opts Options) (*gorm.DB, *redis.Client, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("database connection failed: %w", err)
	}

	if !opts.SkipSchema {
		if err := database.ApplySchema(ctx, db, cfg); err != nil {
			return nil, nil, fmt.Errorf("schema setup failed: %w", err)
		}
	}

	cache.InitRedis(cfg.RedisURL)
	r := cache.GetClient()

	if err := ensureDevRootAdmin(ctx, cfg, db); err != nil {
		return nil, nil, fmt.Errorf("failed to bootstrap development root admin: %w", err)
	}

	if opts.SeedDemo {
		if err := seedIfEmpty(ctx, db); err != nil {
			return nil, nil, fmt.Errorf("failed to seed demo data: %w", err)
		}
	}

	return db, r, nil
}

func seedIfEmpty(ctx context.Context, db *gorm.DB) error {
	var n int64
	if err := db.WithContext(ctx).Model(&models.Bookmark{}).Count(&n).Error; err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	_, err := seed.NewSeeder(db, seed.Options{SkipBcrypt: true}).Run(ctx, seed.DefaultCounts)
	return err
}

func ensureDevRootAdmin(ctx context.Context, cfg *config.Config, db *gorm.DB) error {
	if cfg == nil || db == nil {
		return nil
	}
	if !strings.EqualFold(cfg.Env, "development") || !cfg.DevBootstrapRoot {
		return nil
	}

	username := strings.TrimSpace(cfg.DevRootUsername)
	if username == "" {
		username = "linkshelf_root"
	}
	email := strings.TrimSpace(strings.ToLower(cfg.DevRootEmail))
	if email == "" {
		email = "root@linkshelf.local"
	}
	password := cfg.DevRootPassword
	if password == "" {
		return fmt.Errorf("DEV_ROOT_PASSWORD must be set when DEV_BOOTSTRAP_ROOT is enabled")
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash root password: %w", err)
	}

	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var root models.User
		findErr := tx.Where("username_key = ?", models.UsernameKey(username)).First(&root).Error
		switch {
		case errors.Is(findErr, gorm.ErrRecordNotFound):
			now := time.Now()
			root = models.User{
				Username:     username,
				Email:        email,
				Password:     string(hashedPassword),
				Role:         models.RoleAdmin,
				IsApproved:   true,
				MaxBookmarks: models.FreeTierMaxBookmarks,
				CreatedAt:    now,
			}
			return tx.Create(&root).Error
		case findErr != nil:
			return findErr
		default:
			// existing root keeps its password; only the privileges are restored
			return tx.Model(&models.User{}).Where("id = ?", root.ID).Updates(map[string]any{
				"role":        models.RoleAdmin,
				"is_approved": true,
			}).Error
		}
	})
	if err != nil {
		return err
	}

	log.Printf("development root admin ensured (%s)", username)
	return nil
}
