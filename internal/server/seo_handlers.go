package server

import (
	"linkshelf/internal/models"

	"github.com/gofiber/fiber/v2"
)

// GetSiteSettings handles GET /api/settings/site
// @Summary Site settings
// @Description Public site title and tagline.
// @Tags settings
// @Produce json
// @Success 200 {object} models.SiteSettings
// @Router /settings/site [get]
func (s *Server) GetSiteSettings(c *fiber.Ctx) error {
	site, err := s.settingsService.Site(c.UserContext())
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(site)
}

// Sitemap handles GET /sitemap.xml
func (s *Server) Sitemap(c *fiber.Ctx) error {
	body, err := s.seoService.Sitemap(c.UserContext())
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	c.Set(fiber.HeaderContentType, "application/xml; charset=utf-8")
	c.Set(fiber.HeaderCacheControl, "public, max-age=3600")
	return c.Send(body)
}

// Robots handles GET /robots.txt
func (s *Server) Robots(c *fiber.Ctx) error {
	body, err := s.seoService.Robots(c.UserContext())
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	c.Set(fiber.HeaderContentType, fiber.MIMETextPlainCharsetUTF8)
	return c.SendString(body)
}
