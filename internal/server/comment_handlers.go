package server

import (
	"linkshelf/internal/middleware"
	"linkshelf/internal/models"
	"linkshelf/internal/service"

	"github.com/gofiber/fiber/v2"
)

type createCommentRequest struct {
	BookmarkID      uint   `json:"bookmarkId" validate:"required,gt=0"`
	Content         string `json:"content"`
	ParentID        *uint  `json:"parentId"`
	ClientCommentID string `json:"clientCommentId"`
}

type updateCommentRequest struct {
	Content string `json:"content"`
}

// GetComments handles GET /api/comments?bookmarkId=
// @Summary List comments
// @Description Oldest first. Hidden bookmarks answer 404.
// @Tags comments
// @Produce json
// @Param bookmarkId query int true "Bookmark ID"
// @Success 200 {array} models.Comment
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /comments [get]
func (s *Server) GetComments(c *fiber.Ctx) error {
	bookmarkID, err := s.parseQueryID(c, "bookmarkId")
	if err != nil {
		return nil
	}

	comments, err := s.commentService.ListComments(c.UserContext(), middleware.PrincipalFrom(c), bookmarkID)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(comments)
}

// CreateComment handles POST /api/comments
// @Summary Create comment
// @Description Idempotent per clientCommentId: a retry returns the stored comment with 200.
// @Tags comments
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body createCommentRequest true "Comment"
// @Success 201 {object} models.Comment "Created"
// @Success 200 {object} models.Comment "Already created by an earlier attempt"
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /comments [post]
func (s *Server) CreateComment(c *fiber.Ctx) error {
	var req createCommentRequest
	if err := s.parseBody(c, &req); err != nil {
		return nil
	}

	comment, created, err := s.commentService.CreateComment(c.UserContext(), middleware.PrincipalFrom(c), service.CreateCommentInput{
		BookmarkID:      req.BookmarkID,
		Content:         req.Content,
		ParentID:        req.ParentID,
		ClientCommentID: req.ClientCommentID,
	})
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	status := fiber.StatusOK
	if created {
		status = fiber.StatusCreated
	}
	return c.Status(status).JSON(comment)
}

// UpdateComment handles PUT /api/comments/:id
// @Summary Edit comment
// @Description Author only.
// @Tags comments
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path int true "Comment ID"
// @Param request body updateCommentRequest true "New content"
// @Success 200 {object} models.Comment
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /comments/{id} [put]
func (s *Server) UpdateComment(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	var req updateCommentRequest
	if err := s.parseBody(c, &req); err != nil {
		return nil
	}

	comment, err := s.commentService.UpdateComment(c.UserContext(), middleware.PrincipalFrom(c), id, req.Content)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(comment)
}

// DeleteComment handles DELETE /api/comments/:id
// @Summary Delete comment
// @Description Author or admin. Replies are removed with their parent.
// @Tags comments
// @Security BearerAuth
// @Param id path int true "Comment ID"
// @Success 204
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /comments/{id} [delete]
func (s *Server) DeleteComment(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	if err := s.commentService.DeleteComment(c.UserContext(), middleware.PrincipalFrom(c), id); err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
