package server

import (
	"linkshelf/internal/models"
	"linkshelf/internal/service"

	"github.com/gofiber/fiber/v2"
)

type updateTagRequest struct {
	MetaTitle       string `json:"metaTitle"`
	MetaDescription string `json:"metaDescription"`
}

// ListTags handles GET /api/tags
// @Summary List tags
// @Description Tags with public bookmark counts, most used first.
// @Tags tags
// @Produce json
// @Success 200 {array} models.Tag
// @Router /tags [get]
func (s *Server) ListTags(c *fiber.Ctx) error {
	tags, err := s.tagService.ListTags(c.UserContext())
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(tags)
}

// GetTag handles GET /api/tags/:slug
// @Summary Get tag
// @Tags tags
// @Produce json
// @Param slug path string true "Tag slug"
// @Success 200 {object} models.Tag
// @Failure 404 {object} models.ErrorResponse
// @Router /tags/{slug} [get]
func (s *Server) GetTag(c *fiber.Ctx) error {
	tag, err := s.tagService.GetTag(c.UserContext(), c.Params("slug"))
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(tag)
}

// AdminUpdateTag handles PATCH /api/admin/tags/:slug
// @Summary Update tag SEO metadata
// @Tags admin
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param slug path string true "Tag slug"
// @Param request body updateTagRequest true "Metadata"
// @Success 200 {object} models.Tag
// @Failure 404 {object} models.ErrorResponse
// @Router /admin/tags/{slug} [patch]
func (s *Server) AdminUpdateTag(c *fiber.Ctx) error {
	var req updateTagRequest
	if err := s.parseBody(c, &req); err != nil {
		return nil
	}

	tag, err := s.tagService.UpdateTagMeta(c.UserContext(), c.Params("slug"), service.UpdateTagMetaInput{
		MetaTitle:       req.MetaTitle,
		MetaDescription: req.MetaDescription,
	})
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(tag)
}

// AdminDeleteTag handles DELETE /api/admin/tags/:slug
// @Summary Delete tag
// @Description Detaches the tag from every bookmark.
// @Tags admin
// @Security BearerAuth
// @Param slug path string true "Tag slug"
// @Success 204
// @Failure 404 {object} models.ErrorResponse
// @Router /admin/tags/{slug} [delete]
func (s *Server) AdminDeleteTag(c *fiber.Ctx) error {
	if err := s.tagService.DeleteTag(c.UserContext(), c.Params("slug")); err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
