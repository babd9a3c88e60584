package repository

import (
	"context"
	"testing"

	"linkshelf/internal/models"
	"linkshelf/internal/testutil"
	"linkshelf/internal/validation"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tagInputs(t *testing.T, raw ...string) []validation.TagInput {
	t.Helper()
	tags, err := validation.NormalizeTags(raw)
	require.NoError(t, err)
	return tags
}

func newBookmark(owner *models.User, title string, public bool) *models.Bookmark {
	return &models.Bookmark{
		UserID:   owner.ID,
		URL:      "https://example.com/" + title,
		Title:    title,
		IsPublic: public,
	}
}

func TestBookmarkRepository_CreateWithQuota(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewBookmarkRepository(db)
	ctx := context.Background()
	owner := testutil.CreateUser(t, db, "alice", func(u *models.User) { u.MaxBookmarks = 2 })

	first := newBookmark(owner, "one", true)
	require.NoError(t, repo.CreateWithQuota(ctx, first, tagInputs(t, "Rust", "systems")))
	assert.NotZero(t, first.ID)
	assert.Equal(t, []string{"rust", "systems"}, first.Tags)

	require.NoError(t, repo.CreateWithQuota(ctx, newBookmark(owner, "two", true), nil))

	err := repo.CreateWithQuota(ctx, newBookmark(owner, "three", true), nil)
	requireCode(t, err, models.CodeQuotaExceeded)

	// raising the quota lets the next create through
	require.NoError(t, db.Model(&models.User{}).Where("id = ?", owner.ID).Update("max_bookmarks", 3).Error)
	require.NoError(t, repo.CreateWithQuota(ctx, newBookmark(owner, "three", true), nil))

	// deleting frees a slot as well
	require.NoError(t, repo.Delete(ctx, first.ID))
	require.NoError(t, repo.CreateWithQuota(ctx, newBookmark(owner, "four", true), nil))

	var count int64
	require.NoError(t, db.Model(&models.Bookmark{}).Where("user_id = ?", owner.ID).Count(&count).Error)
	assert.EqualValues(t, 3, count)
}

func TestBookmarkRepository_CreateUnknownOwner(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewBookmarkRepository(db)

	err := repo.CreateWithQuota(context.Background(), &models.Bookmark{UserID: 42, URL: "https://x.io", Title: "x"}, nil)
	requireCode(t, err, models.CodeNotFound)
}

func TestBookmarkRepository_GetByIDDetails(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewBookmarkRepository(db)
	ctx := context.Background()
	owner := testutil.CreateUser(t, db, "alice")
	fan := testutil.CreateUser(t, db, "bob")

	b := newBookmark(owner, "go", true)
	require.NoError(t, repo.CreateWithQuota(ctx, b, tagInputs(t, "golang")))
	_, err := NewFavoriteRepository(db).Toggle(ctx, fan.ID, b.ID, false)
	require.NoError(t, err)
	require.NoError(t, db.Create(&models.Comment{BookmarkID: b.ID, UserID: fan.ID, Content: "nice", ClientCommentID: "c1"}).Error)

	got, err := repo.GetByID(ctx, b.ID, fan.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", got.Username)
	assert.Equal(t, 1, got.CommentCount)
	assert.Equal(t, 1, got.FavoriteCount)
	assert.True(t, got.IsFavorited)
	assert.Equal(t, []string{"golang"}, got.Tags)

	anon, err := repo.GetByID(ctx, b.ID, 0)
	require.NoError(t, err)
	assert.False(t, anon.IsFavorited)

	_, err = repo.GetByID(ctx, 999, 0)
	requireCode(t, err, models.CodeNotFound)
}

func TestBookmarkRepository_ListVisibilityAndFilters(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewBookmarkRepository(db)
	ctx := context.Background()
	alice := testutil.CreateUser(t, db, "alice")
	bob := testutil.CreateUser(t, db, "bob")

	rust := &models.Bookmark{UserID: alice.ID, URL: "https://rust-lang.org", Title: "Rust Book", Description: "Learn Rust", IsPublic: true}
	require.NoError(t, repo.CreateWithQuota(ctx, rust, tagInputs(t, "rust")))
	secret := &models.Bookmark{UserID: alice.ID, URL: "https://secret.example", Title: "Secret 100%", IsPublic: false}
	require.NoError(t, repo.CreateWithQuota(ctx, secret, nil))
	bobs := &models.Bookmark{UserID: bob.ID, URL: "https://go.dev", Title: "Go", Description: "The Go language", IsPublic: true}
	require.NoError(t, repo.CreateWithQuota(ctx, bobs, tagInputs(t, "golang")))

	titles := func(list []*models.Bookmark) []string {
		out := make([]string, 0, len(list))
		for _, b := range list {
			out = append(out, b.Title)
		}
		return out
	}

	t.Run("anonymous sees public only", func(t *testing.T) {
		list, total, err := repo.List(ctx, models.BookmarkFilter{}, 0)
		require.NoError(t, err)
		assert.EqualValues(t, 2, total)
		assert.NotContains(t, titles(list), "Secret 100%")
	})

	t.Run("owner sees own private", func(t *testing.T) {
		list, total, err := repo.List(ctx, models.BookmarkFilter{UserID: alice.ID}, alice.ID)
		require.NoError(t, err)
		assert.EqualValues(t, 2, total)
		assert.Contains(t, titles(list), "Secret 100%")
	})

	t.Run("other user does not", func(t *testing.T) {
		_, total, err := repo.List(ctx, models.BookmarkFilter{UserID: alice.ID}, bob.ID)
		require.NoError(t, err)
		assert.EqualValues(t, 1, total)
	})

	t.Run("tag filter", func(t *testing.T) {
		list, _, err := repo.List(ctx, models.BookmarkFilter{TagSlug: "golang"}, 0)
		require.NoError(t, err)
		assert.Equal(t, []string{"Go"}, titles(list))
	})

	t.Run("search is case-insensitive", func(t *testing.T) {
		list, _, err := repo.List(ctx, models.BookmarkFilter{Search: "LEARN"}, 0)
		require.NoError(t, err)
		assert.Equal(t, []string{"Rust Book"}, titles(list))
	})

	t.Run("search ignores url", func(t *testing.T) {
		list, total, err := repo.List(ctx, models.BookmarkFilter{Search: "rust-lang"}, 0)
		require.NoError(t, err)
		assert.Zero(t, total)
		assert.Empty(t, list)
	})

	t.Run("search escapes wildcards", func(t *testing.T) {
		list, _, err := repo.List(ctx, models.BookmarkFilter{Search: "100%"}, alice.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{"Secret 100%"}, titles(list))

		list, _, err = repo.List(ctx, models.BookmarkFilter{Search: "%"}, 0)
		require.NoError(t, err)
		assert.Empty(t, list)
	})

	t.Run("private bookmark becomes visible when made public", func(t *testing.T) {
		require.NoError(t, repo.Update(ctx, secret.ID, map[string]any{"is_public": true}, nil, alice.ID))
		_, total, err := repo.List(ctx, models.BookmarkFilter{UserID: alice.ID}, bob.ID)
		require.NoError(t, err)
		assert.EqualValues(t, 2, total)
		require.NoError(t, repo.Update(ctx, secret.ID, map[string]any{"is_public": false}, nil, alice.ID))
	})
}

func TestBookmarkRepository_ListFavoritesHonoursVisibility(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewBookmarkRepository(db)
	favs := NewFavoriteRepository(db)
	ctx := context.Background()
	alice := testutil.CreateUser(t, db, "alice")
	bob := testutil.CreateUser(t, db, "bob")

	b := testutil.CreateBookmark(t, db, alice, "shared", true)
	testutil.CreateBookmark(t, db, alice, "other", true)
	_, err := favs.Toggle(ctx, bob.ID, b.ID, false)
	require.NoError(t, err)

	list, total, err := repo.List(ctx, models.BookmarkFilter{Favorites: true}, bob.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, list, 1)
	assert.True(t, list[0].IsFavorited)

	require.NoError(t, repo.Update(ctx, b.ID, map[string]any{"is_public": false}, nil, alice.ID))
	_, total, err = repo.List(ctx, models.BookmarkFilter{Favorites: true}, bob.ID)
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestBookmarkRepository_ListOrderAndPaging(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewBookmarkRepository(db)
	ctx := context.Background()
	alice := testutil.CreateUser(t, db, "alice", func(u *models.User) { u.MaxBookmarks = 50 })

	var ids []uint
	for _, title := range []string{"a", "b", "c", "d", "e"} {
		ids = append(ids, testutil.CreateBookmark(t, db, alice, title, true).ID)
	}
	require.NoError(t, repo.Update(ctx, ids[0], map[string]any{"is_pinned": true}, nil, alice.ID))

	page1, total, err := repo.List(ctx, models.BookmarkFilter{Page: 1, Limit: 2}, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 5, total)
	require.Len(t, page1, 2)
	assert.Equal(t, ids[0], page1[0].ID, "pinned first")

	page3, _, err := repo.List(ctx, models.BookmarkFilter{Page: 3, Limit: 2}, 0)
	require.NoError(t, err)
	assert.Len(t, page3, 1)
}

func TestBookmarkRepository_UpdateReplacesTags(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewBookmarkRepository(db)
	ctx := context.Background()
	alice := testutil.CreateUser(t, db, "alice")

	b := newBookmark(alice, "x", true)
	require.NoError(t, repo.CreateWithQuota(ctx, b, tagInputs(t, "one", "two")))

	replacement := tagInputs(t, "three", "one")
	require.NoError(t, repo.Update(ctx, b.ID, map[string]any{"title": "renamed"}, &replacement, alice.ID))

	got, err := repo.GetByID(ctx, b.ID, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, "renamed", got.Title)
	assert.Equal(t, []string{"three", "one"}, got.Tags)

	empty := []validation.TagInput{}
	require.NoError(t, repo.Update(ctx, b.ID, nil, &empty, alice.ID))
	got, err = repo.GetByID(ctx, b.ID, alice.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Tags)

	err = repo.Update(ctx, 999, map[string]any{"title": "nope"}, nil, alice.ID)
	requireCode(t, err, models.CodeNotFound)
}

func TestBookmarkRepository_DeleteCascades(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewBookmarkRepository(db)
	ctx := context.Background()
	alice := testutil.CreateUser(t, db, "alice")
	bob := testutil.CreateUser(t, db, "bob")

	b := newBookmark(alice, "doomed", true)
	require.NoError(t, repo.CreateWithQuota(ctx, b, tagInputs(t, "tmp")))
	_, err := NewFavoriteRepository(db).Toggle(ctx, bob.ID, b.ID, false)
	require.NoError(t, err)
	require.NoError(t, db.Create(&models.Comment{BookmarkID: b.ID, UserID: bob.ID, Content: "bye", ClientCommentID: "c"}).Error)

	require.NoError(t, repo.Delete(ctx, b.ID))

	for _, model := range []any{&models.BookmarkTag{}, &models.Comment{}, &models.Favorite{}} {
		var n int64
		require.NoError(t, db.Model(model).Where("bookmark_id = ?", b.ID).Count(&n).Error)
		assert.Zero(t, n, "%T rows left behind", model)
	}

	requireCode(t, repo.Delete(ctx, b.ID), models.CodeNotFound)
}

func TestBookmarkRepository_IncrementViewsAndListPublic(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewBookmarkRepository(db)
	ctx := context.Background()
	alice := testutil.CreateUser(t, db, "alice")
	b := testutil.CreateBookmark(t, db, alice, "seen", true)
	testutil.CreateBookmark(t, db, alice, "hidden", false)

	require.NoError(t, repo.IncrementViews(ctx, b.ID))
	require.NoError(t, repo.IncrementViews(ctx, b.ID))

	var got models.Bookmark
	require.NoError(t, db.First(&got, b.ID).Error)
	assert.Equal(t, 2, got.ViewCount)

	public, err := repo.ListPublic(ctx, 10)
	require.NoError(t, err)
	require.Len(t, public, 1)
	assert.Equal(t, b.ID, public[0].ID)
}
