package models

import "time"

// Tag is a label shared across bookmarks. Slug is the identity.
type Tag struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	Name            string    `gorm:"size:50;not null" json:"name"`
	Slug            string    `gorm:"size:60;not null;uniqueIndex" json:"slug"`
	MetaTitle       string    `gorm:"size:200" json:"metaTitle"`
	MetaDescription string    `gorm:"size:500" json:"metaDescription"`
	CreatedBy       *uint     `json:"createdBy,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`

	// BookmarkCount counts public bookmarks carrying the tag (computed)
	BookmarkCount int64 `gorm:"->;-:migration" json:"bookmarkCount"`
}

// BookmarkTag links a bookmark to a tag.
type BookmarkTag struct {
	BookmarkID uint      `gorm:"primaryKey;autoIncrement:false"`
	TagID      uint      `gorm:"primaryKey;autoIncrement:false;index"`
	Bookmark   *Bookmark `gorm:"foreignKey:BookmarkID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
	Tag        *Tag      `gorm:"foreignKey:TagID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
	// Position keeps the order tags were given in
	Position int `gorm:"not null;default:0"`
}

// TableName specifies the table name for GORM.
func (BookmarkTag) TableName() string {
	return "bookmark_tags"
}
