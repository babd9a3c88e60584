package server

import (
	"net/http"
	"testing"

	"linkshelf/internal/models"
	"linkshelf/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetMyProfile(t *testing.T) {
	env := newTestEnv(t)
	alice := testutil.CreateUser(t, env.db, "alice")

	assertError(t, env.do(t, http.MethodGet, "/api/users/me", "", nil), http.StatusUnauthorized, models.CodeUnauthorized)

	resp := env.do(t, http.MethodGet, "/api/users/me", token(t, alice), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	me := decode[map[string]any](t, resp)
	assert.Equal(t, "alice", me["username"])
	assert.NotContains(t, me, "password")
}

func TestUpdateMyProfile(t *testing.T) {
	env := newTestEnv(t)
	alice := testutil.CreateUser(t, env.db, "alice")
	tok := token(t, alice)

	resp := env.do(t, http.MethodPut, "/api/users/me", tok, map[string]any{
		"bio":     "I collect links",
		"website": "https://alice.dev",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	user := decode[models.User](t, resp)
	assert.Equal(t, "I collect links", user.Bio)
	assert.Equal(t, "https://alice.dev", user.Website)

	resp = env.do(t, http.MethodPut, "/api/users/me", tok, map[string]any{"website": "javascript:alert(1)"})
	assertError(t, resp, http.StatusBadRequest, models.CodeValidation)

	resp = env.do(t, http.MethodPut, "/api/users/me", tok, map[string]any{})
	assertError(t, resp, http.StatusBadRequest, models.CodeValidation)

	resp = env.do(t, http.MethodGet, "/api/users/me", tok, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "I collect links", decode[models.User](t, resp).Bio)
}

func TestGetUserProfile(t *testing.T) {
	env := newTestEnv(t)
	alice := testutil.CreateUser(t, env.db, "alice")
	bob := testutil.CreateUser(t, env.db, "bob")
	shared := testutil.CreateBookmark(t, env.db, alice, "shared", true)
	testutil.CreateBookmark(t, env.db, alice, "private", false)

	require.Equal(t, http.StatusOK, env.do(t, http.MethodPost, "/api/bookmarks/favorite", token(t, bob),
		map[string]any{"bookmarkId": shared.ID}).StatusCode)

	resp := env.do(t, http.MethodGet, "/api/users/alice", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	profile := decode[models.PublicProfile](t, resp)
	assert.Equal(t, alice.ID, profile.ID)
	assert.Equal(t, int64(1), profile.Stats.PublicBookmarkCount)
	assert.Equal(t, int64(1), profile.Stats.FavoritesReceived)

	raw := decode[map[string]any](t, env.do(t, http.MethodGet, "/api/users/alice", "", nil))
	assert.NotContains(t, raw, "email")

	assertError(t, env.do(t, http.MethodGet, "/api/users/nobody", "", nil), http.StatusNotFound, models.CodeNotFound)
}
