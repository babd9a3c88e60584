package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

const (
	UserKeyPrefix     = "user:%d"
	ProfileKeyPrefix  = "profile:%d"
	BookmarkKeyPrefix = "bookmark:%d"
	TagListKey        = "tags:list"
	SettingKeyPrefix  = "setting:%s"
	MetadataKeyPrefix = "metadata:%s"
	WSTicketKeyPrefix = "ws_ticket:%s"
	BlacklistPrefix   = "blacklist:%s"
)

const (
	UserTTL     = 5 * time.Minute
	ProfileTTL  = 2 * time.Minute
	BookmarkTTL = 5 * time.Minute
	TagListTTL  = 10 * time.Minute
	SettingTTL  = 10 * time.Minute
	MetadataTTL = time.Hour
	WSTicketTTL = 30 * time.Second
)

func UserKey(userID uint) string {
	return fmt.Sprintf(UserKeyPrefix, userID)
}

// ProfileKey holds the anonymous profile view. It is keyed by id so writes that only
// know the owner id can drop it.
func ProfileKey(userID uint) string {
	return fmt.Sprintf(ProfileKeyPrefix, userID)
}

func BookmarkKey(bookmarkID uint) string {
	return fmt.Sprintf(BookmarkKeyPrefix, bookmarkID)
}

func SettingKey(key string) string {
	return fmt.Sprintf(SettingKeyPrefix, key)
}

// MetadataKey hashes the URL so arbitrary input stays a short, safe key.
func MetadataKey(rawURL string) string {
	sum := sha256.Sum256([]byte(rawURL))
	return fmt.Sprintf(MetadataKeyPrefix, hex.EncodeToString(sum[:]))
}

func WSTicketKey(ticket string) string {
	return fmt.Sprintf(WSTicketKeyPrefix, ticket)
}

func BlacklistKey(jti string) string {
	return fmt.Sprintf(BlacklistPrefix, jti)
}

// Invalidate deletes keys, ignoring errors. A missing client is a no-op.
func Invalidate(ctx context.Context, keys ...string) {
	if client != nil && len(keys) > 0 {
		client.Del(ctx, keys...)
	}
}

func InvalidateUser(ctx context.Context, userID uint) {
	Invalidate(ctx, UserKey(userID), ProfileKey(userID))
}

// InvalidateProfiles drops profile views whose stats a write changed. Zero ids are skipped.
func InvalidateProfiles(ctx context.Context, userIDs ...uint) {
	keys := make([]string, 0, len(userIDs))
	seen := make(map[uint]bool, len(userIDs))
	for _, id := range userIDs {
		if id == 0 || seen[id] {
			continue
		}
		seen[id] = true
		keys = append(keys, ProfileKey(id))
	}
	Invalidate(ctx, keys...)
}

func InvalidateBookmark(ctx context.Context, bookmarkIDs ...uint) {
	keys := make([]string, 0, len(bookmarkIDs))
	for _, id := range bookmarkIDs {
		keys = append(keys, BookmarkKey(id))
	}
	Invalidate(ctx, keys...)
}

func InvalidateTags(ctx context.Context) {
	Invalidate(ctx, TagListKey)
}

func InvalidateSetting(ctx context.Context, key string) {
	Invalidate(ctx, SettingKey(key))
}
