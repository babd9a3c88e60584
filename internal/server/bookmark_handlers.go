package server

import (
	"linkshelf/internal/middleware"
	"linkshelf/internal/models"
	"linkshelf/internal/service"

	"github.com/gofiber/fiber/v2"
)

type createBookmarkRequest struct {
	URL         string   `json:"url"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	IsPublic    bool     `json:"isPublic"`
	Tags        []string `json:"tags"`
}

type updateBookmarkRequest struct {
	URL         *string   `json:"url"`
	Title       *string   `json:"title"`
	Description *string   `json:"description"`
	IsPublic    *bool     `json:"isPublic"`
	IsPinned    *bool     `json:"isPinned"`
	Tags        *[]string `json:"tags"`
}

type toggleFavoriteRequest struct {
	BookmarkID uint `json:"bookmarkId" validate:"required,gt=0"`
}

// ListBookmarks handles GET /api/bookmarks
// @Summary List bookmarks
// @Description Newest first. Anonymous callers only see public bookmarks.
// @Tags bookmarks
// @Produce json
// @Param userId query int false "Owner filter"
// @Param tag query string false "Tag slug"
// @Param search query string false "Case-insensitive match on title or description"
// @Param favorites query bool false "Only bookmarks the caller favorited"
// @Param page query int false "Page (default 1)"
// @Param limit query int false "Page size (default 20, max 100)"
// @Success 200 {object} models.BookmarkPage
// @Failure 400 {object} models.ErrorResponse
// @Router /bookmarks [get]
func (s *Server) ListBookmarks(c *fiber.Ctx) error {
	userID := c.QueryInt("userId", 0)
	if userID < 0 {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid user ID"))
	}

	page, err := s.bookmarkService.ListBookmarks(c.UserContext(), middleware.PrincipalFrom(c), service.ListBookmarksInput{
		UserID:    uint(userID),
		Tag:       c.Query("tag"),
		Search:    c.Query("search"),
		Favorites: c.QueryBool("favorites", false),
		Page:      c.QueryInt("page", 1),
		Limit:     c.QueryInt("limit", 20),
	})
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(page)
}

// CreateBookmark handles POST /api/bookmarks
// @Summary Create bookmark
// @Tags bookmarks
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body createBookmarkRequest true "Bookmark"
// @Success 201 {object} models.BookmarkDetail
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse "Pending approval or quota exceeded"
// @Router /bookmarks [post]
func (s *Server) CreateBookmark(c *fiber.Ctx) error {
	var req createBookmarkRequest
	if err := s.parseBody(c, &req); err != nil {
		return nil
	}

	detail, err := s.bookmarkService.CreateBookmark(c.UserContext(), middleware.PrincipalFrom(c), service.CreateBookmarkInput{
		URL:         req.URL,
		Title:       req.Title,
		Description: req.Description,
		IsPublic:    req.IsPublic,
		Tags:        req.Tags,
	})
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(detail)
}

// GetBookmark handles GET /api/bookmarks/:id
// @Summary Get bookmark
// @Description Returns the bookmark with its comments and counts view.
// @Tags bookmarks
// @Produce json
// @Param id path int true "Bookmark ID"
// @Success 200 {object} models.BookmarkDetail
// @Failure 404 {object} models.ErrorResponse
// @Router /bookmarks/{id} [get]
func (s *Server) GetBookmark(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	detail, err := s.bookmarkService.GetBookmark(c.UserContext(), middleware.PrincipalFrom(c), id)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(detail)
}

// UpdateBookmark handles PUT /api/bookmarks/:id
// @Summary Update bookmark
// @Description Sparse update; omitted fields are unchanged. Owner or admin only.
// @Tags bookmarks
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path int true "Bookmark ID"
// @Param request body updateBookmarkRequest true "Patch"
// @Success 200 {object} models.BookmarkDetail
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /bookmarks/{id} [put]
func (s *Server) UpdateBookmark(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	var req updateBookmarkRequest
	if err := s.parseBody(c, &req); err != nil {
		return nil
	}

	detail, err := s.bookmarkService.UpdateBookmark(c.UserContext(), middleware.PrincipalFrom(c), id, service.UpdateBookmarkInput{
		URL:         req.URL,
		Title:       req.Title,
		Description: req.Description,
		IsPublic:    req.IsPublic,
		IsPinned:    req.IsPinned,
		Tags:        req.Tags,
	})
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(detail)
}

// DeleteBookmark handles DELETE /api/bookmarks/:id
// @Summary Delete bookmark
// @Description Removes the bookmark with its tag links, comments and favorites.
// @Tags bookmarks
// @Security BearerAuth
// @Param id path int true "Bookmark ID"
// @Success 204
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /bookmarks/{id} [delete]
func (s *Server) DeleteBookmark(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	if err := s.bookmarkService.DeleteBookmark(c.UserContext(), middleware.PrincipalFrom(c), id); err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ToggleFavorite handles POST /api/bookmarks/favorite
// @Summary Toggle favorite
// @Tags bookmarks
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body toggleFavoriteRequest true "Bookmark to toggle"
// @Success 200 {object} models.FavoriteToggleResult
// @Failure 404 {object} models.ErrorResponse
// @Router /bookmarks/favorite [post]
func (s *Server) ToggleFavorite(c *fiber.Ctx) error {
	var req toggleFavoriteRequest
	if err := s.parseBody(c, &req); err != nil {
		return nil
	}

	result, err := s.favoriteService.ToggleFavorite(c.UserContext(), middleware.PrincipalFrom(c), req.BookmarkID)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(result)
}
