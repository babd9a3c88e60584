// Package service implements the application's use cases on top of the repositories.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"linkshelf/internal/models"
)

// EventPublisher delivers a realtime event to every connection of a user.
type EventPublisher interface {
	PublishEvent(ctx context.Context, userID uint, eventType string, payload any) error
}

// publish is fire-and-forget: delivery failures never fail the request.
func publish(ctx context.Context, pub EventPublisher, userID uint, eventType string, payload any) {
	if pub == nil || userID == 0 {
		return
	}
	if err := pub.PublishEvent(ctx, userID, eventType, payload); err != nil {
		slog.WarnContext(ctx, "event publish failed", "event", eventType, "user_id", userID, "error", err)
	}
}

func requirePrincipal(p *models.Principal) error {
	if p == nil || p.UserID == 0 {
		return models.NewUnauthorizedError("authentication required")
	}
	return nil
}

func viewerID(p *models.Principal) uint {
	if p == nil {
		return 0
	}
	return p.UserID
}

// canView reports whether p may see b: public, owned, or admin.
func canView(b *models.Bookmark, p *models.Principal) bool {
	return b.IsPublic || (p != nil && (b.UserID == p.UserID || p.IsAdmin()))
}

// canModify reports whether p may edit or delete something owned by ownerID.
func canModify(ownerID uint, p *models.Principal) bool {
	return p != nil && (ownerID == p.UserID || p.IsAdmin())
}

// checkLength trims s and enforces a rune budget. Empty input fails when required.
func checkLength(field, s string, max int, required bool) (string, error) {
	s = strings.TrimSpace(s)
	if required && s == "" {
		return "", models.NewValidationError(field + " is required")
	}
	if utf8.RuneCountInString(s) > max {
		return "", models.NewValidationError(fmt.Sprintf("%s must not exceed %d characters", field, max))
	}
	return s, nil
}
