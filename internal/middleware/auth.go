// Package middleware provides request context, logging, rate limiting, tracing and token helpers.
package middleware

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"linkshelf/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Token identity.
const (
	TokenIssuer   = "linkshelf-api"
	TokenAudience = "linkshelf-client"
	TokenTTL      = 7 * 24 * time.Hour
)

// ErrInvalidToken covers every parse or claim failure; callers map it to 401.
var ErrInvalidToken = errors.New("invalid or expired token")

// TokenClaims are the JWT claims issued at login and registration.
type TokenClaims struct {
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// UserID parses the subject claim.
func (c *TokenClaims) UserID() (uint, error) {
	id, err := strconv.ParseUint(c.Subject, 10, 32)
	if err != nil || id == 0 {
		return 0, ErrInvalidToken
	}
	return uint(id), nil
}

// IssueToken signs an HS256 token for user and returns it with its jti and expiry.
func IssueToken(secret string, user *models.User, now time.Time) (string, *TokenClaims, error) {
	if secret == "" {
		return "", nil, errors.New("JWT secret not configured")
	}
	claims := &TokenClaims{
		Username: user.Username,
		Role:     user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(user.ID), 10),
			Issuer:    TokenIssuer,
			Audience:  jwt.ClaimStrings{TokenAudience},
			ExpiresAt: jwt.NewNumericDate(now.Add(TokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ID:        uuid.NewString(),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", nil, err
	}
	return signed, claims, nil
}

// ParseToken validates signature, expiry, issuer and audience.
func ParseToken(secret, tokenString string) (*TokenClaims, error) {
	claims := &TokenClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return []byte(secret), nil
	},
		jwt.WithIssuer(TokenIssuer),
		jwt.WithAudience(TokenAudience),
		jwt.WithExpirationRequired(),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	if _, err := claims.UserID(); err != nil {
		return nil, err
	}
	return claims, nil
}

// BearerToken extracts the token from an "Authorization: Bearer <token>" header.
func BearerToken(c *fiber.Ctx) string {
	parts := strings.SplitN(c.Get(fiber.HeaderAuthorization), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

const principalLocal = "principal"

// SetPrincipal stores p in fiber locals and the request context.
func SetPrincipal(c *fiber.Ctx, p *models.Principal) {
	c.Locals(principalLocal, p)
	c.Locals("userID", p.UserID)
	ctx := context.WithValue(c.UserContext(), PrincipalKey, p)
	ctx = context.WithValue(ctx, UserIDKey, p.UserID)
	c.SetUserContext(ctx)
}

// PrincipalFrom returns the authenticated principal, or nil for anonymous requests.
func PrincipalFrom(c *fiber.Ctx) *models.Principal {
	p, _ := c.Locals(principalLocal).(*models.Principal)
	return p
}

// PrincipalFromContext returns the principal stored by SetPrincipal.
func PrincipalFromContext(ctx context.Context) *models.Principal {
	p, _ := ctx.Value(PrincipalKey).(*models.Principal)
	return p
}
