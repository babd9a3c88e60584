package models

import "time"

// Field limits for bookmarks and tags.
const (
	MaxURLLength         = 2048
	MaxTitleLength       = 300
	MaxDescriptionLength = 2000
	MaxTagsPerBookmark   = 10
	MaxTagLength         = 50
)

// Bookmark is a saved URL owned by a user.
type Bookmark struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	UserID        uint      `gorm:"not null;index" json:"userId"`
	User          *User     `gorm:"foreignKey:UserID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
	URL           string    `gorm:"size:2048;not null" json:"url"`
	Title         string    `gorm:"size:300;not null" json:"title"`
	Description   string    `gorm:"type:text" json:"description"`
	IsPublic      bool      `gorm:"not null;default:false;index" json:"isPublic"`
	IsPinned      bool      `gorm:"not null;default:false" json:"isPinned"`
	FavoriteCount int       `gorm:"not null;default:0" json:"favoriteCount"`
	ViewCount     int       `gorm:"not null;default:0" json:"viewCount"`
	CreatedAt     time.Time `gorm:"index" json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`

	// Username is the owner's username (computed)
	Username string `gorm:"->;-:migration" json:"username"`
	// CommentCount is not persisted; computed at query time
	CommentCount int `gorm:"->;-:migration" json:"commentCount"`
	// IsFavorited indicates whether the requester favorited this bookmark (computed)
	IsFavorited bool `gorm:"->;-:migration" json:"isFavorited"`
	// Tags holds tag slugs loaded separately
	Tags []string `gorm:"-" json:"tags"`
}

// BookmarkDetail is the single-bookmark view including its comments.
type BookmarkDetail struct {
	*Bookmark
	Comments []*Comment `json:"comments"`
}

// BookmarkFilter captures list query parameters.
type BookmarkFilter struct {
	UserID    uint
	TagSlug   string
	Search    string
	Favorites bool
	Page      int
	Limit     int
}

// Pagination describes a page of results.
type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"totalPages"`
}

// NewPagination computes total pages for a result set.
func NewPagination(page, limit int, total int64) Pagination {
	pages := 0
	if limit > 0 {
		pages = int((total + int64(limit) - 1) / int64(limit))
	}
	return Pagination{Page: page, Limit: limit, Total: total, TotalPages: pages}
}

// BookmarkPage is a page of bookmarks.
type BookmarkPage struct {
	Bookmarks  []*Bookmark `json:"bookmarks"`
	Pagination Pagination  `json:"pagination"`
}

// Favorite records that a user favorited a bookmark. Row existence is the source of truth.
type Favorite struct {
	UserID     uint      `gorm:"primaryKey;autoIncrement:false" json:"userId"`
	BookmarkID uint      `gorm:"primaryKey;autoIncrement:false;index" json:"bookmarkId"`
	User       *User     `gorm:"foreignKey:UserID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
	Bookmark   *Bookmark `gorm:"foreignKey:BookmarkID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Favorite toggle outcomes.
const (
	FavoriteAdded   = "added"
	FavoriteRemoved = "removed"
)

// FavoriteToggleResult is returned by a favorite toggle.
type FavoriteToggleResult struct {
	Action        string `json:"action"`
	FavoriteCount int    `json:"favoriteCount"`
	// OwnerID is the bookmark owner, used for notifications
	OwnerID uint `json:"-"`
}
