package service

import (
	"context"
	"errors"
	"testing"

	"linkshelf/internal/models"
	"linkshelf/internal/notifications"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFavoriteService_ToggleRequiresPrincipal(t *testing.T) {
	t.Parallel()

	svc := NewFavoriteService(&favoriteRepoStub{}, nil)
	_, err := svc.ToggleFavorite(context.Background(), nil, 1)
	assertCode(t, err, models.CodeUnauthorized)

	_, err = svc.ToggleFavorite(context.Background(), principal(1), 0)
	assertCode(t, err, models.CodeValidation)
}

func TestFavoriteService_TogglePassesAdminVisibility(t *testing.T) {
	t.Parallel()

	var seePrivate []bool
	repo := &favoriteRepoStub{
		toggleFn: func(_ context.Context, _, _ uint, see bool) (*models.FavoriteToggleResult, error) {
			seePrivate = append(seePrivate, see)
			return &models.FavoriteToggleResult{Action: models.FavoriteRemoved}, nil
		},
	}
	svc := NewFavoriteService(repo, nil)

	_, err := svc.ToggleFavorite(context.Background(), principal(1), 9)
	require.NoError(t, err)
	_, err = svc.ToggleFavorite(context.Background(), adminPrincipal(2), 9)
	require.NoError(t, err)

	assert.Equal(t, []bool{false, true}, seePrivate)
}

func TestFavoriteService_NotifiesOwnerOnAdd(t *testing.T) {
	t.Parallel()

	action := models.FavoriteAdded
	owner := uint(50)
	repo := &favoriteRepoStub{
		toggleFn: func(context.Context, uint, uint, bool) (*models.FavoriteToggleResult, error) {
			return &models.FavoriteToggleResult{Action: action, FavoriteCount: 4, OwnerID: owner}, nil
		},
	}
	pub := &publisherStub{}
	svc := NewFavoriteService(repo, pub)

	fan := principal(7)
	fan.Username = "fan"
	result, err := svc.ToggleFavorite(context.Background(), fan, 9)
	require.NoError(t, err)
	assert.Equal(t, 4, result.FavoriteCount)

	events := pub.published()
	require.Len(t, events, 1)
	assert.Equal(t, uint(50), events[0].UserID)
	assert.Equal(t, notifications.EventBookmarkFavorited, events[0].Type)
	assert.Equal(t, BookmarkFavoritedPayload{BookmarkID: 9, UserID: 7, Username: "fan", FavoriteCount: 4}, events[0].Payload)

	// removals and self-favorites are silent
	action = models.FavoriteRemoved
	_, err = svc.ToggleFavorite(context.Background(), fan, 9)
	require.NoError(t, err)
	action, owner = models.FavoriteAdded, 7
	_, err = svc.ToggleFavorite(context.Background(), fan, 9)
	require.NoError(t, err)
	assert.Len(t, pub.published(), 1)
}

func TestFavoriteService_PublishFailureDoesNotFailToggle(t *testing.T) {
	t.Parallel()

	repo := &favoriteRepoStub{
		toggleFn: func(context.Context, uint, uint, bool) (*models.FavoriteToggleResult, error) {
			return &models.FavoriteToggleResult{Action: models.FavoriteAdded, FavoriteCount: 1, OwnerID: 2}, nil
		},
	}
	svc := NewFavoriteService(repo, &publisherStub{err: errors.New("redis down")})

	result, err := svc.ToggleFavorite(context.Background(), principal(1), 3)
	require.NoError(t, err)
	assert.Equal(t, models.FavoriteAdded, result.Action)
}

func TestFavoriteService_ToggleHiddenBookmark(t *testing.T) {
	t.Parallel()

	repo := &favoriteRepoStub{
		toggleFn: func(context.Context, uint, uint, bool) (*models.FavoriteToggleResult, error) {
			return nil, models.NewNotFoundError("Bookmark", 3)
		},
	}
	pub := &publisherStub{}
	svc := NewFavoriteService(repo, pub)

	_, err := svc.ToggleFavorite(context.Background(), principal(1), 3)
	assertCode(t, err, models.CodeNotFound)
	assert.Empty(t, pub.published())
}
