package service

import (
	"context"
	"time"

	"linkshelf/internal/models"
	"linkshelf/internal/repository"
)

type AdminService struct {
	userRepo     repository.UserRepository
	bookmarkRepo repository.BookmarkRepository
	tagRepo      repository.TagRepository
	now          func() time.Time
}

// AdminUserPatch is a sparse update of moderation and billing fields.
type AdminUserPatch struct {
	IsApproved   *bool      `json:"isApproved"`
	IsPremium    *bool      `json:"isPremium"`
	PremiumUntil *time.Time `json:"premiumUntil"`
	MaxBookmarks *int       `json:"maxBookmarks"`
}

// UserPage is a page of users for the admin list.
type UserPage struct {
	Users      []models.User     `json:"users"`
	Pagination models.Pagination `json:"pagination"`
}

// Snapshot is a point-in-time export of accounts and the public catalogue.
type Snapshot struct {
	GeneratedAt time.Time          `json:"generatedAt" yaml:"generatedAt"`
	Users       []models.User      `json:"users" yaml:"users"`
	Bookmarks   []*models.Bookmark `json:"bookmarks" yaml:"bookmarks"`
	Tags        []models.Tag       `json:"tags" yaml:"tags"`
}

func NewAdminService(
	userRepo repository.UserRepository,
	bookmarkRepo repository.BookmarkRepository,
	tagRepo repository.TagRepository,
) *AdminService {
	return &AdminService{
		userRepo:     userRepo,
		bookmarkRepo: bookmarkRepo,
		tagRepo:      tagRepo,
		now:          time.Now,
	}
}

func (s *AdminService) ListUsers(ctx context.Context, status string, page, limit int) (*UserPage, error) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = repository.DefaultPageSize
	}
	if limit > repository.MaxPageSize {
		limit = repository.MaxPageSize
	}
	users, total, err := s.userRepo.List(ctx, status, page, limit)
	if err != nil {
		return nil, err
	}
	return &UserPage{Users: users, Pagination: models.NewPagination(page, limit, total)}, nil
}

// UpdateUser applies patch with the tier rules: going premium without an expiry grants the
// default period, and switching tier resets the quota unless maxBookmarks is explicit.
func (s *AdminService) UpdateUser(ctx context.Context, id uint, patch AdminUserPatch) (*models.User, error) {
	fields, err := s.patchFields(patch)
	if err != nil {
		return nil, err
	}
	return s.userRepo.UpdateFields(ctx, id, fields)
}

func (s *AdminService) patchFields(patch AdminUserPatch) (map[string]any, error) {
	if patch.IsApproved == nil && patch.IsPremium == nil && patch.PremiumUntil == nil && patch.MaxBookmarks == nil {
		return nil, models.NewValidationError("patch must set at least one field")
	}
	now := s.now()
	fields := make(map[string]any)

	if patch.IsApproved != nil {
		fields["is_approved"] = *patch.IsApproved
	}
	if patch.MaxBookmarks != nil && *patch.MaxBookmarks < 0 {
		return nil, models.NewValidationError("maxBookmarks must not be negative")
	}
	if patch.PremiumUntil != nil && !patch.PremiumUntil.After(now) {
		return nil, models.NewValidationError("premiumUntil must be in the future")
	}

	if patch.IsPremium != nil {
		if *patch.IsPremium {
			until := now.Add(models.DefaultPremiumDuration)
			if patch.PremiumUntil != nil {
				until = *patch.PremiumUntil
			}
			fields["is_premium"] = true
			fields["premium_until"] = until
			fields["max_bookmarks"] = models.PremiumTierMaxBookmarks
		} else {
			if patch.PremiumUntil != nil {
				return nil, models.NewValidationError("premiumUntil requires isPremium")
			}
			fields["is_premium"] = false
			fields["premium_until"] = nil
			fields["max_bookmarks"] = models.FreeTierMaxBookmarks
		}
	} else if patch.PremiumUntil != nil {
		fields["premium_until"] = *patch.PremiumUntil
	}

	if patch.MaxBookmarks != nil {
		fields["max_bookmarks"] = *patch.MaxBookmarks
	}
	return fields, nil
}

// SetRole promotes or demotes a user. actor may be nil for CLI use; admins cannot demote
// themselves.
func (s *AdminService) SetRole(ctx context.Context, actor *models.Principal, id uint, role string) (*models.User, error) {
	if role != models.RoleUser && role != models.RoleAdmin {
		return nil, models.NewValidationError("role must be one of: user admin")
	}
	if actor != nil && actor.UserID == id && role != models.RoleAdmin {
		return nil, models.NewForbiddenError("admins cannot demote themselves")
	}
	return s.userRepo.UpdateFields(ctx, id, map[string]any{"role": role})
}

// UserByUsername resolves the account CLI commands address by name.
func (s *AdminService) UserByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.userRepo.GetByUsername(ctx, username)
}

// ApproveByUsername is the CLI shortcut for approving a pending account.
func (s *AdminService) ApproveByUsername(ctx context.Context, username string) (*models.User, error) {
	user, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	approved := true
	return s.UpdateUser(ctx, user.ID, AdminUserPatch{IsApproved: &approved})
}

func (s *AdminService) ListAdmins(ctx context.Context) ([]models.User, error) {
	return s.userRepo.ListAdmins(ctx)
}

// ExpirePremium reverts every lapsed premium account to the free tier.
func (s *AdminService) ExpirePremium(ctx context.Context) (int64, error) {
	return s.userRepo.ExpirePremium(ctx, s.now())
}

// Export collects all accounts, every public bookmark and all tags.
func (s *AdminService) Export(ctx context.Context) (*Snapshot, error) {
	snap := &Snapshot{GeneratedAt: s.now().UTC()}

	for page := 1; ; page++ {
		users, total, err := s.userRepo.List(ctx, repository.UserStatusAll, page, repository.MaxPageSize)
		if err != nil {
			return nil, err
		}
		snap.Users = append(snap.Users, users...)
		if int64(len(snap.Users)) >= total || len(users) == 0 {
			break
		}
	}

	for page := 1; ; page++ {
		filter := models.BookmarkFilter{Page: page, Limit: repository.MaxPageSize}
		bookmarks, total, err := s.bookmarkRepo.List(ctx, filter, 0)
		if err != nil {
			return nil, err
		}
		snap.Bookmarks = append(snap.Bookmarks, bookmarks...)
		if int64(len(snap.Bookmarks)) >= total || len(bookmarks) == 0 {
			break
		}
	}

	tags, err := s.tagRepo.List(ctx)
	if err != nil {
		return nil, err
	}
	snap.Tags = tags
	return snap, nil
}
