// Package models contains data structures for the application's domain models.
package models

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

// Role values stored on User.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Quota tiers.
const (
	FreeTierMaxBookmarks    = 10
	PremiumTierMaxBookmarks = 100
	DefaultPremiumDuration  = 30 * 24 * time.Hour
)

// User represents an account that owns bookmarks and comments.
type User struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	Username     string     `gorm:"size:30;not null" json:"username"`
	UsernameKey  string     `gorm:"size:30;uniqueIndex;not null" json:"-"`
	Email        string     `gorm:"size:254;uniqueIndex;not null" json:"email,omitempty"`
	Password     string     `gorm:"not null" json:"-"`
	Role         string     `gorm:"size:16;not null;default:'user'" json:"role"`
	IsApproved   bool       `gorm:"not null;default:false" json:"isApproved"`
	IsPremium    bool       `gorm:"not null;default:false" json:"isPremium"`
	PremiumUntil *time.Time `json:"premiumUntil"`
	MaxBookmarks int        `gorm:"not null;default:10" json:"maxBookmarks"`
	Bio          string     `gorm:"size:500" json:"bio"`
	Website      string     `gorm:"size:200" json:"website"`
	Twitter      string     `gorm:"size:200" json:"twitter"`
	Github       string     `gorm:"size:200" json:"github"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
	LastLogin    *time.Time `json:"lastLogin,omitempty"`
}

// UsernameKey folds a username for uniqueness checks and lookups.
func UsernameKey(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

// BeforeSave keeps username_key in step with the display username.
func (u *User) BeforeSave(_ *gorm.DB) error {
	u.UsernameKey = UsernameKey(u.Username)
	return nil
}

// IsAdmin reports whether the user holds the admin role.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// PublicProfile is the profile view returned to other users.
type PublicProfile struct {
	ID        uint         `json:"id"`
	Username  string       `json:"username"`
	Bio       string       `json:"bio"`
	Website   string       `json:"website"`
	Twitter   string       `json:"twitter"`
	Github    string       `json:"github"`
	IsPremium bool         `json:"isPremium"`
	CreatedAt time.Time    `json:"createdAt"`
	Stats     ProfileStats `json:"stats"`
}

// ProfileStats aggregates a user's activity.
type ProfileStats struct {
	BookmarkCount       int64 `json:"bookmarkCount"`
	PublicBookmarkCount int64 `json:"publicBookmarkCount"`
	FavoritesReceived   int64 `json:"favoritesReceived"`
	FavoritesGiven      int64 `json:"favoritesGiven"`
	CommentCount        int64 `json:"commentCount"`
}

// Principal is the authenticated caller resolved by the auth middleware.
type Principal struct {
	UserID       uint
	Username     string
	Role         string
	IsApproved   bool
	IsPremium    bool
	MaxBookmarks int
}

// IsAdmin reports whether the principal holds the admin role.
func (p *Principal) IsAdmin() bool {
	return p != nil && p.Role == RoleAdmin
}

// PrincipalFromUser builds a Principal from a loaded user row.
func PrincipalFromUser(u *User) *Principal {
	return &Principal{
		UserID:       u.ID,
		Username:     u.Username,
		Role:         u.Role,
		IsApproved:   u.IsApproved,
		IsPremium:    u.IsPremium,
		MaxBookmarks: u.MaxBookmarks,
	}
}
