package models

import "time"

// Field limits for comments.
const (
	MaxCommentLength         = 5000
	MaxClientCommentIDLength = 64
)

// Comment is a remark on a bookmark. Replies reference a top-level comment through ParentID.
type Comment struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	BookmarkID      uint      `gorm:"not null;index" json:"bookmarkId"`
	Bookmark        *Bookmark `gorm:"foreignKey:BookmarkID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
	UserID          uint      `gorm:"not null;uniqueIndex:idx_comments_user_client" json:"userId"`
	User            *User     `gorm:"foreignKey:UserID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
	Content         string    `gorm:"type:text;not null" json:"content"`
	ParentID        *uint     `gorm:"index" json:"parentId"`
	ClientCommentID string    `gorm:"size:64;not null;uniqueIndex:idx_comments_user_client" json:"clientCommentId"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`

	// Username is the author's username (computed)
	Username string `gorm:"->;-:migration" json:"username"`
}
