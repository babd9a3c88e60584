package service

import (
	"context"
	"strings"

	"linkshelf/internal/cache"
	"linkshelf/internal/models"
	"linkshelf/internal/repository"
	"linkshelf/internal/validation"
)

// Profile field limits.
const (
	MaxBioLength    = 500
	MaxSocialLength = 200
)

type UserService struct {
	userRepo repository.UserRepository
}

// UpdateProfileInput is a sparse patch of the caller's own profile.
type UpdateProfileInput struct {
	Bio     *string
	Website *string
	Twitter *string
	Github  *string
}

func NewUserService(userRepo repository.UserRepository) *UserService {
	return &UserService{userRepo: userRepo}
}

func (s *UserService) GetMe(ctx context.Context, p *models.Principal) (*models.User, error) {
	if err := requirePrincipal(p); err != nil {
		return nil, err
	}
	return s.userRepo.GetByID(ctx, p.UserID)
}

func (s *UserService) UpdateProfile(ctx context.Context, p *models.Principal, in UpdateProfileInput) (*models.User, error) {
	if err := requirePrincipal(p); err != nil {
		return nil, err
	}

	fields := make(map[string]any)
	if in.Bio != nil {
		bio, err := checkLength("bio", *in.Bio, MaxBioLength, false)
		if err != nil {
			return nil, err
		}
		fields["bio"] = bio
	}
	if in.Website != nil {
		website, err := checkLength("website", *in.Website, MaxSocialLength, false)
		if err != nil {
			return nil, err
		}
		if website != "" {
			if err := validation.ValidateHTTPURL(website, MaxSocialLength); err != nil {
				return nil, models.NewValidationError("website must be a valid http(s) URL")
			}
		}
		fields["website"] = website
	}
	if in.Twitter != nil {
		twitter, err := checkLength("twitter", *in.Twitter, MaxSocialLength, false)
		if err != nil {
			return nil, err
		}
		fields["twitter"] = twitter
	}
	if in.Github != nil {
		github, err := checkLength("github", *in.Github, MaxSocialLength, false)
		if err != nil {
			return nil, err
		}
		fields["github"] = github
	}
	if len(fields) == 0 {
		return nil, models.NewValidationError("no fields to update")
	}
	return s.userRepo.UpdateFields(ctx, p.UserID, fields)
}

// GetProfile returns the public profile. Anonymous views are cached briefly.
func (s *UserService) GetProfile(ctx context.Context, viewer *models.Principal, username string) (*models.PublicProfile, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, models.NewValidationError("username is required")
	}
	user, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	load := func(ctx context.Context) (*models.PublicProfile, error) {
		stats, err := s.userRepo.Stats(ctx, user.ID, viewerID(viewer))
		if err != nil {
			return nil, err
		}
		return &models.PublicProfile{
			ID:        user.ID,
			Username:  user.Username,
			Bio:       user.Bio,
			Website:   user.Website,
			Twitter:   user.Twitter,
			Github:    user.Github,
			IsPremium: user.IsPremium,
			CreatedAt: user.CreatedAt,
			Stats:     stats,
		}, nil
	}
	if viewer == nil {
		return cache.Aside(ctx, cache.ProfileKey(user.ID), cache.ProfileTTL, load)
	}
	return load(ctx)
}
