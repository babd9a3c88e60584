package service

import (
	"context"

	"linkshelf/internal/models"
	"linkshelf/internal/notifications"
	"linkshelf/internal/observability"
	"linkshelf/internal/repository"
)

type FavoriteService struct {
	favoriteRepo repository.FavoriteRepository
	publisher    EventPublisher
}

// BookmarkFavoritedPayload is sent to the owner when someone favorites their bookmark.
type BookmarkFavoritedPayload struct {
	BookmarkID    uint   `json:"bookmarkId"`
	UserID        uint   `json:"userId"`
	Username      string `json:"username"`
	FavoriteCount int    `json:"favoriteCount"`
}

func NewFavoriteService(favoriteRepo repository.FavoriteRepository, publisher EventPublisher) *FavoriteService {
	return &FavoriteService{favoriteRepo: favoriteRepo, publisher: publisher}
}

func (s *FavoriteService) ToggleFavorite(ctx context.Context, p *models.Principal, bookmarkID uint) (*models.FavoriteToggleResult, error) {
	if err := requirePrincipal(p); err != nil {
		return nil, err
	}
	if bookmarkID == 0 {
		return nil, models.NewValidationError("bookmarkId is required")
	}

	ctx, span := observability.StartServiceSpan(ctx, "favorite", "toggle")
	result, err := s.favoriteRepo.Toggle(ctx, p.UserID, bookmarkID, p.IsAdmin())
	observability.EndSpan(span, err)
	if err != nil {
		return nil, err
	}
	observability.FavoriteToggles.WithLabelValues(result.Action).Inc()

	if result.Action == models.FavoriteAdded && result.OwnerID != p.UserID {
		publish(ctx, s.publisher, result.OwnerID, notifications.EventBookmarkFavorited, BookmarkFavoritedPayload{
			BookmarkID:    bookmarkID,
			UserID:        p.UserID,
			Username:      p.Username,
			FavoriteCount: result.FavoriteCount,
		})
	}
	return result, nil
}

// Reconcile repairs favorite counters that drifted from the favorites table.
func (s *FavoriteService) Reconcile(ctx context.Context) (int64, error) {
	return s.favoriteRepo.Reconcile(ctx)
}
