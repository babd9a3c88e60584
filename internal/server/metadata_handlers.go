package server

import (
	"linkshelf/internal/featureflags"
	"linkshelf/internal/middleware"
	"linkshelf/internal/models"

	"github.com/gofiber/fiber/v2"
)

// GetMetadata handles GET /api/metadata?url=
// @Summary Link preview
// @Description Fetches title, description, image and site name for a URL. Results are cached for an hour.
// @Tags metadata
// @Security BearerAuth
// @Produce json
// @Param url query string true "Page URL"
// @Success 200 {object} metadata.Preview
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse "Link previews disabled"
// @Failure 429 {object} models.ErrorResponse
// @Failure 502 {object} models.ErrorResponse
// @Router /metadata [get]
func (s *Server) GetMetadata(c *fiber.Ctx) error {
	p := middleware.PrincipalFrom(c)
	if !s.featureFlags.Enabled(featureflags.LinkPreviews, p.UserID) {
		return models.RespondWithError(c, fiber.StatusForbidden,
			models.NewForbiddenError("link previews are disabled"))
	}

	raw := c.Query("url")
	if raw == "" {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("url query parameter is required"))
	}

	preview, err := s.previewer.Fetch(c.UserContext(), raw)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(preview)
}
