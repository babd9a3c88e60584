package service

import (
	"context"
	"fmt"
	"testing"

	"linkshelf/internal/featureflags"
	"linkshelf/internal/models"
	"linkshelf/internal/notifications"
	"linkshelf/internal/repository"
	"linkshelf/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestScenario_SharingLifecycle drives the services against SQLite: sign-up, approval,
// quota, premium upgrade, favorites, comments and cascade delete.
func TestScenario_SharingLifecycle(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewDB(t)

	users := repository.NewUserRepository(db)
	bookmarkRepo := repository.NewBookmarkRepository(db)
	commentRepo := repository.NewCommentRepository(db)
	tagRepo := repository.NewTagRepository(db)
	pub := &publisherStub{}

	auth := NewAuthService(users, featureflags.NewManager(""), nil, testSecret)
	admin := NewAdminService(users, bookmarkRepo, tagRepo)
	bookmarks := NewBookmarkService(bookmarkRepo, commentRepo)
	favorites := NewFavoriteService(repository.NewFavoriteRepository(db), pub)
	comments := NewCommentService(commentRepo, bookmarkRepo, pub)

	reg, err := auth.Register(ctx, RegisterInput{Username: "alice", Email: "alice@example.com", Password: "password1"})
	require.NoError(t, err)
	alice, err := auth.PrincipalFor(ctx, reg.User.ID)
	require.NoError(t, err)

	_, err = bookmarks.CreateBookmark(ctx, alice, CreateBookmarkInput{URL: "https://go.dev", Title: "Go"})
	assertCode(t, err, models.CodeForbidden)

	_, err = admin.ApproveByUsername(ctx, "alice")
	require.NoError(t, err)
	alice, err = auth.PrincipalFor(ctx, reg.User.ID)
	require.NoError(t, err)
	require.True(t, alice.IsApproved)

	var first *models.BookmarkDetail
	for i := 0; i < models.FreeTierMaxBookmarks; i++ {
		detail, err := bookmarks.CreateBookmark(ctx, alice, CreateBookmarkInput{
			URL:      fmt.Sprintf("https://example.com/%d", i),
			Title:    fmt.Sprintf("Link %d", i),
			IsPublic: true,
			Tags:     []string{"Go", "reading list"},
		})
		require.NoError(t, err)
		if first == nil {
			first = detail
		}
	}
	assert.Equal(t, []string{"go", "reading-list"}, first.Tags)

	_, err = bookmarks.CreateBookmark(ctx, alice, CreateBookmarkInput{URL: "https://example.com/over", Title: "Over"})
	assertCode(t, err, models.CodeQuotaExceeded)

	_, err = admin.UpdateUser(ctx, alice.UserID, AdminUserPatch{IsPremium: ptr(true)})
	require.NoError(t, err)
	_, err = bookmarks.CreateBookmark(ctx, alice, CreateBookmarkInput{URL: "https://example.com/premium", Title: "Premium"})
	require.NoError(t, err)

	bob := models.PrincipalFromUser(testutil.CreateUser(t, db, "bob"))
	bob.Username = "bob"

	toggled, err := favorites.ToggleFavorite(ctx, bob, first.ID)
	require.NoError(t, err)
	assert.Equal(t, models.FavoriteAdded, toggled.Action)
	assert.Equal(t, 1, toggled.FavoriteCount)

	in := CreateCommentInput{BookmarkID: first.ID, Content: "great link", ClientCommentID: "bob-1"}
	c1, created, err := comments.CreateComment(ctx, bob, in)
	require.NoError(t, err)
	assert.True(t, created)
	c2, created, err := comments.CreateComment(ctx, bob, in)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, c1.ID, c2.ID)

	events := pub.published()
	require.Len(t, events, 2)
	assert.Equal(t, notifications.EventBookmarkFavorited, events[0].Type)
	assert.Equal(t, notifications.EventCommentCreated, events[1].Type)
	for _, e := range events {
		assert.Equal(t, alice.UserID, e.UserID)
	}

	detail, err := bookmarks.GetBookmark(ctx, bob, first.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, detail.FavoriteCount)
	assert.Equal(t, 1, detail.CommentCount)
	assert.True(t, detail.IsFavorited)
	require.Len(t, detail.Comments, 1)
	assert.Equal(t, "bob", detail.Comments[0].Username)

	assertCode(t, bookmarks.DeleteBookmark(ctx, bob, first.ID), models.CodeForbidden)
	require.NoError(t, bookmarks.DeleteBookmark(ctx, alice, first.ID))

	_, err = bookmarks.GetBookmark(ctx, alice, first.ID)
	assertCode(t, err, models.CodeNotFound)
	var remaining int64
	require.NoError(t, db.Model(&models.Comment{}).Where("bookmark_id = ?", first.ID).Count(&remaining).Error)
	assert.Zero(t, remaining)
	require.NoError(t, db.Model(&models.Favorite{}).Where("bookmark_id = ?", first.ID).Count(&remaining).Error)
	assert.Zero(t, remaining)
}
