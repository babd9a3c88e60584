package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupMiniredis(t *testing.T) *miniredis.Miniredis {
	t.Helper()
	mr := miniredis.RunT(t)
	SetClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { SetClient(nil) })
	return mr
}

type payload struct {
	Title string `json:"title"`
}

func TestAside_LoadsOnceThenHits(t *testing.T) {
	mr := setupMiniredis(t)
	ctx := context.Background()

	calls := 0
	load := func(context.Context) (payload, error) {
		calls++
		return payload{Title: "hello"}, nil
	}

	first, err := Aside(ctx, BookmarkKey(1), BookmarkTTL, load)
	require.NoError(t, err)
	second, err := Aside(ctx, BookmarkKey(1), BookmarkTTL, load)
	require.NoError(t, err)

	assert.Equal(t, "hello", first.Title)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, calls)
	assert.True(t, mr.Exists("bookmark:1"))
	assert.Equal(t, BookmarkTTL, mr.TTL("bookmark:1"))
}

func TestAside_LoadErrorNotCached(t *testing.T) {
	mr := setupMiniredis(t)
	boom := errors.New("boom")

	_, err := Aside(context.Background(), UserKey(3), UserTTL, func(context.Context) (payload, error) {
		return payload{}, boom
	})
	assert.ErrorIs(t, err, boom)
	assert.False(t, mr.Exists("user:3"))
}

func TestAside_DisabledCacheAlwaysLoads(t *testing.T) {
	SetClient(nil)
	calls := 0
	for i := 0; i < 2; i++ {
		_, err := Aside(context.Background(), TagListKey, TagListTTL, func(context.Context) (int, error) {
			calls++
			return 1, nil
		})
		require.NoError(t, err)
	}
	assert.Equal(t, 2, calls)
}

func TestAside_CorruptValueFallsBackToLoad(t *testing.T) {
	mr := setupMiniredis(t)
	require.NoError(t, mr.Set("setting:site", "{not json"))

	v, err := Aside(context.Background(), SettingKey("site"), SettingTTL, func(context.Context) (payload, error) {
		return payload{Title: "fresh"}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, "fresh", v.Title)
}

func TestInvalidateUser_RemovesProfile(t *testing.T) {
	mr := setupMiniredis(t)
	ctx := context.Background()
	require.NoError(t, SetJSON(ctx, UserKey(5), payload{}, time.Minute))
	require.NoError(t, SetJSON(ctx, ProfileKey(5), payload{}, time.Minute))

	InvalidateUser(ctx, 5)

	assert.False(t, mr.Exists("user:5"))
	assert.False(t, mr.Exists("profile:5"))
}

func TestInvalidateProfiles_SkipsZeroAndDuplicates(t *testing.T) {
	mr := setupMiniredis(t)
	ctx := context.Background()
	for _, id := range []uint{1, 2, 3} {
		require.NoError(t, SetJSON(ctx, ProfileKey(id), payload{}, time.Minute))
	}

	InvalidateProfiles(ctx, 0, 1, 2, 1)

	assert.False(t, mr.Exists("profile:1"))
	assert.False(t, mr.Exists("profile:2"))
	assert.True(t, mr.Exists("profile:3"))
}

func TestMetadataKey_IsStable(t *testing.T) {
	a := MetadataKey("https://example.com/a")
	assert.Equal(t, a, MetadataKey("https://example.com/a"))
	assert.NotEqual(t, a, MetadataKey("https://example.com/b"))
	assert.Len(t, a, len("metadata:")+64)
}

func TestKeyFamily(t *testing.T) {
	assert.Equal(t, "bookmark", keyFamily("bookmark:12"))
	assert.Equal(t, "plain", keyFamily("plain"))
}
