package database

import "linkshelf/internal/models"

// PersistentModels returns the authoritative set of schema-managed GORM models.
// Order matters for AutoMigrate: referenced tables come first.
func PersistentModels() []interface{} {
	return []interface{}{
		&models.User{},
		&models.Bookmark{},
		&models.Tag{},
		&models.BookmarkTag{},
		&models.Comment{},
		&models.Favorite{},
		&models.Setting{},
	}
}
