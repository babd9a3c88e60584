package service

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"linkshelf/internal/cache"
	"linkshelf/internal/featureflags"
	"linkshelf/internal/middleware"
	"linkshelf/internal/models"
	"linkshelf/internal/repository"
	"linkshelf/internal/validation"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
)

// bcryptCost is lowered by tests.
var bcryptCost = bcrypt.DefaultCost

// dummyHash keeps login timing similar whether or not the account exists.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("linkshelf-dummy-password1"), bcrypt.MinCost)

type AuthService struct {
	userRepo repository.UserRepository
	flags    *featureflags.Manager
	rdb      *redis.Client
	secret   string
	now      func() time.Time
}

type RegisterInput struct {
	Username string
	Email    string
	Password string
}

type LoginInput struct {
	Login    string
	Password string
}

// AuthResult is returned by register and login.
type AuthResult struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

func NewAuthService(
	userRepo repository.UserRepository,
	flags *featureflags.Manager,
	rdb *redis.Client,
	secret string,
) *AuthService {
	return &AuthService{
		userRepo: userRepo,
		flags:    flags,
		rdb:      rdb,
		secret:   secret,
		now:      time.Now,
	}
}

func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	if !s.flags.Enabled(featureflags.Registration, 0) {
		return nil, models.NewForbiddenError("registration is closed")
	}

	username := strings.TrimSpace(in.Username)
	if err := validation.ValidateUsername(username); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	email := validation.NormalizeEmail(in.Email)
	if err := validation.ValidateEmail(email); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidatePassword(in.Password); err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcryptCost)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	user := &models.User{
		Username:     username,
		Email:        email,
		Password:     string(hash),
		Role:         models.RoleUser,
		IsApproved:   s.flags.Enabled(featureflags.AutoApprove, 0),
		MaxBookmarks: models.FreeTierMaxBookmarks,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}
	return s.issue(user)
}

func (s *AuthService) Login(ctx context.Context, in LoginInput) (*AuthResult, error) {
	login := strings.TrimSpace(in.Login)
	if login == "" || in.Password == "" {
		return nil, models.NewValidationError("login and password are required")
	}

	user, err := s.userRepo.GetByLogin(ctx, login)
	if err != nil {
		if isNotFound(err) {
			_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(in.Password))
			return nil, models.NewUnauthorizedError("invalid credentials")
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(in.Password)); err != nil {
		return nil, models.NewUnauthorizedError("invalid credentials")
	}

	now := s.now()
	if err := s.userRepo.TouchLastLogin(ctx, user.ID, now); err != nil {
		slog.WarnContext(ctx, "last login update failed", "user_id", user.ID, "error", err)
	} else {
		user.LastLogin = &now
	}
	return s.issue(user)
}

func (s *AuthService) issue(user *models.User) (*AuthResult, error) {
	token, _, err := middleware.IssueToken(s.secret, user, s.now())
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return &AuthResult{Token: token, User: user}, nil
}

// Authenticate validates a bearer token, rejects revoked ones and resolves the principal
// from the current user row.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*models.Principal, *middleware.TokenClaims, error) {
	claims, err := middleware.ParseToken(s.secret, token)
	if err != nil {
		return nil, nil, models.NewUnauthorizedError("invalid or expired token")
	}
	revoked, err := s.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, nil, models.NewUnavailableError(err)
	}
	if revoked {
		return nil, nil, models.NewUnauthorizedError("token has been revoked")
	}
	userID, _ := claims.UserID()
	p, err := s.PrincipalFor(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	return p, claims, nil
}

// PrincipalFor loads the user and builds a Principal. A deleted account is UNAUTHORIZED.
func (s *AuthService) PrincipalFor(ctx context.Context, userID uint) (*models.Principal, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if isNotFound(err) {
			return nil, models.NewUnauthorizedError("account no longer exists")
		}
		return nil, err
	}
	return models.PrincipalFromUser(user), nil
}

// Logout revokes the token until it would have expired anyway.
func (s *AuthService) Logout(ctx context.Context, claims *middleware.TokenClaims) error {
	if claims == nil || claims.ID == "" {
		return models.NewUnauthorizedError("authentication required")
	}
	if s.rdb == nil {
		slog.WarnContext(ctx, "logout without redis; token stays valid until expiry", "jti", claims.ID)
		return nil
	}
	ttl := time.Until(claims.ExpiresAt.Time)
	if ttl <= 0 {
		return nil
	}
	if err := s.rdb.Set(ctx, cache.BlacklistKey(claims.ID), "1", ttl).Err(); err != nil {
		return models.NewUnavailableError(err)
	}
	return nil
}

// IsRevoked reports whether jti was logged out. Without Redis nothing is revoked.
func (s *AuthService) IsRevoked(ctx context.Context, jti string) (bool, error) {
	if s.rdb == nil || jti == "" {
		return false, nil
	}
	n, err := s.rdb.Exists(ctx, cache.BlacklistKey(jti)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// IssueWSTicket returns a single-use ticket that authenticates one websocket upgrade.
func (s *AuthService) IssueWSTicket(ctx context.Context, userID uint) (string, error) {
	if s.rdb == nil {
		return "", models.NewUnavailableError(errors.New("realtime requires redis"))
	}
	ticket, err := gonanoid.New()
	if err != nil {
		return "", models.NewInternalError(err)
	}
	if err := s.rdb.Set(ctx, cache.WSTicketKey(ticket), userID, cache.WSTicketTTL).Err(); err != nil {
		return "", models.NewUnavailableError(err)
	}
	return ticket, nil
}

// ConsumeWSTicket redeems a ticket exactly once.
func (s *AuthService) ConsumeWSTicket(ctx context.Context, ticket string) (uint, error) {
	if ticket == "" {
		return 0, models.NewUnauthorizedError("ticket required")
	}
	if s.rdb == nil {
		return 0, models.NewUnavailableError(errors.New("realtime requires redis"))
	}
	raw, err := s.rdb.GetDel(ctx, cache.WSTicketKey(ticket)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, models.NewUnauthorizedError("invalid or expired ticket")
	}
	if err != nil {
		return 0, models.NewUnavailableError(err)
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, models.NewUnauthorizedError("invalid or expired ticket")
	}
	return uint(id), nil
}
