// Package repository implements the data access layer for the application.
package repository

import (
	"linkshelf/internal/models"

	"gorm.io/gorm"
)

// Page bounds shared by list queries.
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// normalizePage clamps page (1-based) and limit and returns the offset.
func normalizePage(page, limit int) (int, int, int) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	return page, limit, (page - 1) * limit
}

// dbError classifies a storage error for resource; nil stays nil.
func dbError(err error, resource string) error {
	if err == nil {
		return nil
	}
	return models.ClassifyDBError(err, resource)
}

// touchUser takes the owner's row lock for the rest of the transaction.
// A no-op UPDATE works on both PostgreSQL and SQLite, unlike SELECT ... FOR UPDATE.
func touchUser(tx *gorm.DB, userID uint) (bool, error) {
	res := tx.Exec("UPDATE users SET updated_at = updated_at WHERE id = ?", userID)
	return res.RowsAffected > 0, res.Error
}
