package repository

import (
	"context"
	"testing"

	"linkshelf/internal/cache"
	"linkshelf/internal/models"
	"linkshelf/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBookmarkCache_RefreshedByCommentsAndViews(t *testing.T) {
	db := testutil.NewDB(t)
	mr, _ := testutil.NewRedis(t)
	ctx := context.Background()
	alice := testutil.CreateUser(t, db, "alice")
	bob := testutil.CreateUser(t, db, "bob")
	b := testutil.CreateBookmark(t, db, alice, "shared", true)

	bookmarks := NewBookmarkRepository(db)
	comments := NewCommentRepository(db)
	key := cache.BookmarkKey(b.ID)

	anonymous := func() *models.Bookmark {
		t.Helper()
		got, err := bookmarks.GetByID(ctx, b.ID, 0)
		require.NoError(t, err)
		return got
	}

	assert.Zero(t, anonymous().CommentCount)
	require.True(t, mr.Exists(key))

	comment := &models.Comment{BookmarkID: b.ID, UserID: bob.ID, Content: "nice", ClientCommentID: "c-1"}
	require.NoError(t, comments.Create(ctx, comment))
	assert.False(t, mr.Exists(key))
	assert.Equal(t, 1, anonymous().CommentCount)

	require.NoError(t, bookmarks.IncrementViews(ctx, b.ID))
	assert.False(t, mr.Exists(key))
	assert.Equal(t, 1, anonymous().ViewCount)

	require.NoError(t, comments.DeleteWithReplies(ctx, comment.ID))
	assert.False(t, mr.Exists(key))
	assert.Zero(t, anonymous().CommentCount)
}

func TestBookmarkCache_ProfilesAndTagsDropped(t *testing.T) {
	db := testutil.NewDB(t)
	mr, _ := testutil.NewRedis(t)
	ctx := context.Background()
	alice := testutil.CreateUser(t, db, "alice")
	bob := testutil.CreateUser(t, db, "bob")
	carol := testutil.CreateUser(t, db, "carol")

	bookmarks := NewBookmarkRepository(db)
	favorites := NewFavoriteRepository(db)
	comments := NewCommentRepository(db)

	prime := func(keys ...string) {
		t.Helper()
		for _, k := range keys {
			require.NoError(t, mr.Set(k, "{}"))
		}
	}
	aliceKey, bobKey, carolKey := cache.ProfileKey(alice.ID), cache.ProfileKey(bob.ID), cache.ProfileKey(carol.ID)

	t.Run("create drops the owner profile", func(t *testing.T) {
		prime(aliceKey, bobKey)
		b := newBookmark(alice, "fresh", true)
		require.NoError(t, bookmarks.CreateWithQuota(ctx, b, nil))
		assert.False(t, mr.Exists(aliceKey))
		assert.True(t, mr.Exists(bobKey))
	})

	b := testutil.CreateBookmark(t, db, alice, "shared", true)

	t.Run("favorite drops owner and fan", func(t *testing.T) {
		prime(aliceKey, bobKey, carolKey)
		_, err := favorites.Toggle(ctx, bob.ID, b.ID, false)
		require.NoError(t, err)
		assert.False(t, mr.Exists(aliceKey))
		assert.False(t, mr.Exists(bobKey))
		assert.True(t, mr.Exists(carolKey))
	})

	t.Run("comment drops the author", func(t *testing.T) {
		prime(carolKey)
		require.NoError(t, comments.Create(ctx, &models.Comment{
			BookmarkID: b.ID, UserID: carol.ID, Content: "hi", ClientCommentID: "carol-1",
		}))
		assert.False(t, mr.Exists(carolKey))
	})

	t.Run("visibility change drops tag list", func(t *testing.T) {
		prime(cache.TagListKey, aliceKey)
		require.NoError(t, bookmarks.Update(ctx, b.ID, map[string]any{"is_public": false}, nil, alice.ID))
		assert.False(t, mr.Exists(cache.TagListKey))
		assert.False(t, mr.Exists(aliceKey))
	})

	t.Run("title change keeps tag list", func(t *testing.T) {
		prime(cache.TagListKey)
		require.NoError(t, bookmarks.Update(ctx, b.ID, map[string]any{"title": "renamed"}, nil, alice.ID))
		assert.True(t, mr.Exists(cache.TagListKey))
	})

	t.Run("delete drops everyone involved", func(t *testing.T) {
		prime(aliceKey, bobKey, carolKey)
		require.NoError(t, bookmarks.Delete(ctx, b.ID))
		assert.False(t, mr.Exists(aliceKey))
		assert.False(t, mr.Exists(bobKey))
		assert.False(t, mr.Exists(carolKey))
	})
}
