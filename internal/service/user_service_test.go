package service

import (
	"context"
	"strings"
	"testing"

	"linkshelf/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserService_UpdateProfile(t *testing.T) {
	t.Parallel()

	var fields map[string]any
	users := &userRepoStub{
		updateFieldsFn: func(_ context.Context, id uint, f map[string]any) (*models.User, error) {
			fields = f
			return &models.User{ID: id}, nil
		},
	}
	svc := NewUserService(users)

	_, err := svc.UpdateProfile(context.Background(), nil, UpdateProfileInput{Bio: ptr("hi")})
	assertCode(t, err, models.CodeUnauthorized)

	_, err = svc.UpdateProfile(context.Background(), principal(1), UpdateProfileInput{})
	assertCode(t, err, models.CodeValidation)

	_, err = svc.UpdateProfile(context.Background(), principal(1), UpdateProfileInput{Bio: ptr(strings.Repeat("b", MaxBioLength+1))})
	assertCode(t, err, models.CodeValidation)

	_, err = svc.UpdateProfile(context.Background(), principal(1), UpdateProfileInput{Website: ptr("javascript:alert(1)")})
	assertCode(t, err, models.CodeValidation)

	_, err = svc.UpdateProfile(context.Background(), principal(1), UpdateProfileInput{
		Bio:     ptr("  Collector of links  "),
		Website: ptr(""),
		Github:  ptr("alice"),
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"bio": "Collector of links", "website": "", "github": "alice"}, fields)
}

func TestUserService_GetProfilePassesViewer(t *testing.T) {
	t.Parallel()

	users := &userRepoStub{
		getByUsernameFn: func(_ context.Context, name string) (*models.User, error) {
			if name != "alice" {
				return nil, models.NewNotFoundError("User", name)
			}
			return &models.User{ID: 4, Username: "alice", Email: "alice@example.com", Bio: "hello"}, nil
		},
		statsFn: func(_ context.Context, userID, viewer uint) (models.ProfileStats, error) {
			assert.Equal(t, uint(4), userID)
			if viewer == 4 {
				return models.ProfileStats{BookmarkCount: 3, PublicBookmarkCount: 1}, nil
			}
			return models.ProfileStats{BookmarkCount: 1, PublicBookmarkCount: 1}, nil
		},
	}
	svc := NewUserService(users)

	own, err := svc.GetProfile(context.Background(), principal(4), "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(3), own.Stats.BookmarkCount)
	assert.Equal(t, "hello", own.Bio)

	other, err := svc.GetProfile(context.Background(), principal(5), "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(1), other.Stats.BookmarkCount)

	_, err = svc.GetProfile(context.Background(), principal(5), "ghost")
	assertCode(t, err, models.CodeNotFound)

	_, err = svc.GetProfile(context.Background(), principal(5), "  ")
	assertCode(t, err, models.CodeValidation)
}
