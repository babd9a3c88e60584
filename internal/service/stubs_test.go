package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"linkshelf/internal/models"
	"linkshelf/internal/validation"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// bookmarkRepoStub is a stub for repository.BookmarkRepository. Nil funcs succeed with zero values.
type bookmarkRepoStub struct {
	createFn    func(context.Context, *models.Bookmark, []validation.TagInput) error
	getByIDFn   func(context.Context, uint, uint) (*models.Bookmark, error)
	listFn      func(context.Context, models.BookmarkFilter, uint) ([]*models.Bookmark, int64, error)
	updateFn    func(context.Context, uint, map[string]any, *[]validation.TagInput, uint) error
	deleteFn    func(context.Context, uint) error
	viewsFn     func(context.Context, uint) error
	listPublicF func(context.Context, int) ([]models.Bookmark, error)
}

func (s *bookmarkRepoStub) CreateWithQuota(ctx context.Context, b *models.Bookmark, tags []validation.TagInput) error {
	if s.createFn == nil {
		return nil
	}
	return s.createFn(ctx, b, tags)
}
func (s *bookmarkRepoStub) GetByID(ctx context.Context, id, viewerID uint) (*models.Bookmark, error) {
	if s.getByIDFn == nil {
		return &models.Bookmark{ID: id, IsPublic: true}, nil
	}
	return s.getByIDFn(ctx, id, viewerID)
}
func (s *bookmarkRepoStub) List(ctx context.Context, f models.BookmarkFilter, viewerID uint) ([]*models.Bookmark, int64, error) {
	if s.listFn == nil {
		return nil, 0, nil
	}
	return s.listFn(ctx, f, viewerID)
}
func (s *bookmarkRepoStub) Update(ctx context.Context, id uint, fields map[string]any, tags *[]validation.TagInput, actorID uint) error {
	if s.updateFn == nil {
		return nil
	}
	return s.updateFn(ctx, id, fields, tags, actorID)
}
func (s *bookmarkRepoStub) Delete(ctx context.Context, id uint) error {
	if s.deleteFn == nil {
		return nil
	}
	return s.deleteFn(ctx, id)
}
func (s *bookmarkRepoStub) IncrementViews(ctx context.Context, id uint) error {
	if s.viewsFn == nil {
		return nil
	}
	return s.viewsFn(ctx, id)
}
func (s *bookmarkRepoStub) ListPublic(ctx context.Context, limit int) ([]models.Bookmark, error) {
	if s.listPublicF == nil {
		return nil, nil
	}
	return s.listPublicF(ctx, limit)
}

// commentRepoStub is a stub for repository.CommentRepository.
type commentRepoStub struct {
	createFn      func(context.Context, *models.Comment) error
	getByIDFn     func(context.Context, uint) (*models.Comment, error)
	getByClientFn func(context.Context, uint, string) (*models.Comment, error)
	listFn        func(context.Context, uint) ([]*models.Comment, error)
	updateFn      func(context.Context, uint, string) error
	deleteFn      func(context.Context, uint) error
}

func (s *commentRepoStub) Create(ctx context.Context, c *models.Comment) error {
	if s.createFn == nil {
		return nil
	}
	return s.createFn(ctx, c)
}
func (s *commentRepoStub) GetByID(ctx context.Context, id uint) (*models.Comment, error) {
	if s.getByIDFn == nil {
		return &models.Comment{ID: id}, nil
	}
	return s.getByIDFn(ctx, id)
}
func (s *commentRepoStub) GetByClientID(ctx context.Context, userID uint, clientID string) (*models.Comment, error) {
	if s.getByClientFn == nil {
		return nil, nil
	}
	return s.getByClientFn(ctx, userID, clientID)
}
func (s *commentRepoStub) ListByBookmark(ctx context.Context, bookmarkID uint) ([]*models.Comment, error) {
	if s.listFn == nil {
		return []*models.Comment{}, nil
	}
	return s.listFn(ctx, bookmarkID)
}
func (s *commentRepoStub) UpdateContent(ctx context.Context, id uint, content string) error {
	if s.updateFn == nil {
		return nil
	}
	return s.updateFn(ctx, id, content)
}
func (s *commentRepoStub) DeleteWithReplies(ctx context.Context, id uint) error {
	if s.deleteFn == nil {
		return nil
	}
	return s.deleteFn(ctx, id)
}

// favoriteRepoStub is a stub for repository.FavoriteRepository.
type favoriteRepoStub struct {
	toggleFn    func(context.Context, uint, uint, bool) (*models.FavoriteToggleResult, error)
	reconcileFn func(context.Context) (int64, error)
}

func (s *favoriteRepoStub) Toggle(ctx context.Context, userID, bookmarkID uint, seePrivate bool) (*models.FavoriteToggleResult, error) {
	return s.toggleFn(ctx, userID, bookmarkID, seePrivate)
}
func (s *favoriteRepoStub) Reconcile(ctx context.Context) (int64, error) {
	return s.reconcileFn(ctx)
}

// userRepoStub is a stub for repository.UserRepository.
type userRepoStub struct {
	getByIDFn       func(context.Context, uint) (*models.User, error)
	getByUsernameFn func(context.Context, string) (*models.User, error)
	getByLoginFn    func(context.Context, string) (*models.User, error)
	createFn        func(context.Context, *models.User) error
	updateFieldsFn  func(context.Context, uint, map[string]any) (*models.User, error)
	listFn          func(context.Context, string, int, int) ([]models.User, int64, error)
	statsFn         func(context.Context, uint, uint) (models.ProfileStats, error)
}

func (s *userRepoStub) GetByID(ctx context.Context, id uint) (*models.User, error) {
	return s.getByIDFn(ctx, id)
}
func (s *userRepoStub) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.getByUsernameFn(ctx, username)
}
func (s *userRepoStub) GetByLogin(ctx context.Context, login string) (*models.User, error) {
	return s.getByLoginFn(ctx, login)
}
func (s *userRepoStub) Create(ctx context.Context, u *models.User) error {
	if s.createFn == nil {
		u.ID = 1
		return nil
	}
	return s.createFn(ctx, u)
}
func (s *userRepoStub) UpdateFields(ctx context.Context, id uint, fields map[string]any) (*models.User, error) {
	return s.updateFieldsFn(ctx, id, fields)
}
func (s *userRepoStub) TouchLastLogin(context.Context, uint, time.Time) error { return nil }
func (s *userRepoStub) List(ctx context.Context, status string, page, limit int) ([]models.User, int64, error) {
	return s.listFn(ctx, status, page, limit)
}
func (s *userRepoStub) ListAdmins(context.Context) ([]models.User, error)       { return nil, nil }
func (s *userRepoStub) ExpirePremium(context.Context, time.Time) (int64, error) { return 0, nil }
func (s *userRepoStub) ListPublicAuthors(context.Context) ([]string, error)     { return nil, nil }
func (s *userRepoStub) Stats(ctx context.Context, userID, viewerID uint) (models.ProfileStats, error) {
	if s.statsFn == nil {
		return models.ProfileStats{}, nil
	}
	return s.statsFn(ctx, userID, viewerID)
}

// publisherStub records published events.
type publisherStub struct {
	mu     sync.Mutex
	events []publishedEvent
	err    error
}

type publishedEvent struct {
	UserID  uint
	Type    string
	Payload any
}

func (p *publisherStub) PublishEvent(_ context.Context, userID uint, eventType string, payload any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{UserID: userID, Type: eventType, Payload: payload})
	return p.err
}

func (p *publisherStub) published() []publishedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]publishedEvent(nil), p.events...)
}

func principal(id uint) *models.Principal {
	return &models.Principal{UserID: id, Username: "user", Role: models.RoleUser, IsApproved: true, MaxBookmarks: 10}
}

func adminPrincipal(id uint) *models.Principal {
	p := principal(id)
	p.Role = models.RoleAdmin
	return p
}

// assertCode asserts that err is an AppError with the given code.
func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %T: %v", err, err)
	assert.Equal(t, code, appErr.Code)
}

func ptr[T any](v T) *T { return &v }
