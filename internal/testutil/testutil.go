// Package testutil provides shared fixtures for backend tests.
package testutil

import (
	"fmt"
	"testing"

	"linkshelf/internal/cache"
	"linkshelf/internal/database"
	"linkshelf/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// TestPassword is the plain-text password of every user made by CreateUser.
const TestPassword = "password123"

// NewDB opens a migrated in-memory SQLite database that lives as long as the test.
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:?_foreign_keys=on"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// each pooled connection to :memory: would see its own empty database
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(database.PersistentModels()...))
	return db
}

// NewRedis starts miniredis and installs it as the shared cache client.
func NewRedis(t testing.TB) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	prev := cache.GetClient()
	cache.SetClient(client)
	t.Cleanup(func() {
		cache.SetClient(prev)
		_ = client.Close()
	})
	return mr, client
}

// CreateUser inserts an approved free-tier user. opts adjust the row before insert.
func CreateUser(t testing.TB, db *gorm.DB, username string, opts ...func(*models.User)) *models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(TestPassword), bcrypt.MinCost)
	require.NoError(t, err)

	user := &models.User{
		Username:     username,
		Email:        fmt.Sprintf("%s@example.com", username),
		Password:     string(hash),
		Role:         models.RoleUser,
		IsApproved:   true,
		MaxBookmarks: models.FreeTierMaxBookmarks,
	}
	for _, opt := range opts {
		opt(user)
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

// AsAdmin makes CreateUser insert an admin.
func AsAdmin(u *models.User) { u.Role = models.RoleAdmin }

// Unapproved makes CreateUser insert an account pending approval.
func Unapproved(u *models.User) { u.IsApproved = false }

// CreateBookmark inserts a bookmark directly, bypassing quota and tags.
func CreateBookmark(t testing.TB, db *gorm.DB, owner *models.User, title string, public bool) *models.Bookmark {
	t.Helper()
	b := &models.Bookmark{
		UserID:   owner.ID,
		URL:      "https://example.com/" + title,
		Title:    title,
		IsPublic: public,
	}
	require.NoError(t, db.Omit("User").Create(b).Error)
	return b
}
