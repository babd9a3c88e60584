package repository

import (
	"context"
	"sync"
	"testing"

	"linkshelf/internal/models"
	"linkshelf/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTagRepository_UpsertIsIdempotent(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewTagRepository(db)
	ctx := context.Background()
	alice := testutil.CreateUser(t, db, "alice")

	first, err := repo.Upsert(ctx, tagInputs(t, "Go Lang", "rust"), alice.ID)
	require.NoError(t, err)
	require.Len(t, first, 2)
	assert.Equal(t, "go-lang", first[0].Slug)
	assert.Equal(t, "go lang", first[0].Name)

	second, err := repo.Upsert(ctx, tagInputs(t, "rust", "GO_LANG"), 0)
	require.NoError(t, err)
	require.Len(t, second, 2)
	assert.Equal(t, first[1].ID, second[0].ID)
	assert.Equal(t, first[0].ID, second[1].ID)

	var n int64
	require.NoError(t, db.Model(&models.Tag{}).Count(&n).Error)
	assert.EqualValues(t, 2, n)
}

func TestTagRepository_ConcurrentUpsertConverges(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewTagRepository(db)
	ctx := context.Background()

	input := tagInputs(t, "shared")
	var wg sync.WaitGroup
	ids := make([]uint, 6)
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tags, err := repo.Upsert(ctx, input, 0)
			if assert.NoError(t, err) && assert.Len(t, tags, 1) {
				ids[i] = tags[0].ID
			}
		}(i)
	}
	wg.Wait()
	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}
}

func TestTagRepository_ListCountsPublicOnly(t *testing.T) {
	db := testutil.NewDB(t)
	tags := NewTagRepository(db)
	bookmarks := NewBookmarkRepository(db)
	ctx := context.Background()
	alice := testutil.CreateUser(t, db, "alice")

	require.NoError(t, bookmarks.CreateWithQuota(ctx, newBookmark(alice, "a", true), tagInputs(t, "go", "db")))
	require.NoError(t, bookmarks.CreateWithQuota(ctx, newBookmark(alice, "b", true), tagInputs(t, "go")))
	require.NoError(t, bookmarks.CreateWithQuota(ctx, newBookmark(alice, "c", false), tagInputs(t, "db", "secret")))

	list, err := tags.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "go", list[0].Slug)
	assert.EqualValues(t, 2, list[0].BookmarkCount)
	assert.Equal(t, "db", list[1].Slug)
	assert.EqualValues(t, 1, list[1].BookmarkCount)
	assert.Equal(t, "secret", list[2].Slug)
	assert.Zero(t, list[2].BookmarkCount)

	slugs, err := tags.ListPublicSlugs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"db", "go"}, slugs)
}

func TestTagRepository_MetaDeleteAndPrune(t *testing.T) {
	db := testutil.NewDB(t)
	tags := NewTagRepository(db)
	bookmarks := NewBookmarkRepository(db)
	ctx := context.Background()
	alice := testutil.CreateUser(t, db, "alice")

	b := newBookmark(alice, "a", true)
	require.NoError(t, bookmarks.CreateWithQuota(ctx, b, tagInputs(t, "keep", "drop")))
	_, err := tags.Upsert(ctx, tagInputs(t, "orphan"), 0)
	require.NoError(t, err)

	updated, err := tags.UpdateMeta(ctx, "keep", "Keep title", "Keep description")
	require.NoError(t, err)
	assert.Equal(t, "Keep title", updated.MetaTitle)
	assert.EqualValues(t, 1, updated.BookmarkCount)

	_, err = tags.UpdateMeta(ctx, "missing", "", "")
	requireCode(t, err, models.CodeNotFound)

	require.NoError(t, tags.Delete(ctx, "drop"))
	got, err := bookmarks.GetByID(ctx, b.ID, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"keep"}, got.Tags)
	requireCode(t, tags.Delete(ctx, "drop"), models.CodeNotFound)

	pruned, err := tags.PruneOrphans(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, pruned)

	_, err = tags.GetBySlug(ctx, "orphan")
	requireCode(t, err, models.CodeNotFound)
}

func TestTagRepository_ListIsCached(t *testing.T) {
	db := testutil.NewDB(t)
	mr, _ := testutil.NewRedis(t)
	repo := NewTagRepository(db)
	ctx := context.Background()

	_, err := repo.Upsert(ctx, tagInputs(t, "cached"), 0)
	require.NoError(t, err)

	list, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.True(t, mr.Exists("tags:list"))

	// a write drops the cached list
	_, err = repo.Upsert(ctx, tagInputs(t, "fresh"), 0)
	require.NoError(t, err)
	assert.False(t, mr.Exists("tags:list"))
}
