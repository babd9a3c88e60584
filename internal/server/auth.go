package server

import (
	"linkshelf/internal/middleware"
	"linkshelf/internal/models"

	"github.com/gofiber/fiber/v2"
)

const claimsLocal = "tokenClaims"

// AuthRequired resolves the bearer token into a principal or rejects the request with 401.
func (s *Server) AuthRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := middleware.BearerToken(c)
		if token == "" {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Missing or malformed authorization header"))
		}
		if err := s.authenticate(c, token); err != nil {
			return models.RespondWithAppError(c, err)
		}
		return c.Next()
	}
}

// OptionalAuth attaches a principal when a valid token is present and otherwise continues
// anonymously. A token that is present but invalid is still rejected.
func (s *Server) OptionalAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := middleware.BearerToken(c)
		if token == "" {
			return c.Next()
		}
		if err := s.authenticate(c, token); err != nil {
			return models.RespondWithAppError(c, err)
		}
		return c.Next()
	}
}

func (s *Server) authenticate(c *fiber.Ctx, token string) error {
	p, claims, err := s.authService.Authenticate(c.UserContext(), token)
	if err != nil {
		return err
	}
	middleware.SetPrincipal(c, p)
	c.Locals(claimsLocal, claims)
	return nil
}

// AdminRequired must run after AuthRequired.
func (s *Server) AdminRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		p := middleware.PrincipalFrom(c)
		if p == nil {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("authentication required"))
		}
		if !p.IsAdmin() {
			return models.RespondWithError(c, fiber.StatusForbidden,
				models.NewForbiddenError("admin access required"))
		}
		return c.Next()
	}
}
