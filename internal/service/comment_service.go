package service

import (
	"context"
	"errors"

	"linkshelf/internal/models"
	"linkshelf/internal/notifications"
	"linkshelf/internal/repository"
)

type CommentService struct {
	commentRepo  repository.CommentRepository
	bookmarkRepo repository.BookmarkRepository
	publisher    EventPublisher
}

type CreateCommentInput struct {
	BookmarkID      uint
	Content         string
	ParentID        *uint
	ClientCommentID string
}

// CommentCreatedPayload is sent to the bookmark owner for each new comment.
type CommentCreatedPayload struct {
	BookmarkID uint   `json:"bookmarkId"`
	CommentID  uint   `json:"commentId"`
	ParentID   *uint  `json:"parentId,omitempty"`
	UserID     uint   `json:"userId"`
	Username   string `json:"username"`
}

func NewCommentService(
	commentRepo repository.CommentRepository,
	bookmarkRepo repository.BookmarkRepository,
	publisher EventPublisher,
) *CommentService {
	return &CommentService{
		commentRepo:  commentRepo,
		bookmarkRepo: bookmarkRepo,
		publisher:    publisher,
	}
}

// CreateComment is idempotent on (author, clientCommentId). created is false when an
// earlier comment with the same token is returned instead of inserting.
func (s *CommentService) CreateComment(ctx context.Context, p *models.Principal, in CreateCommentInput) (comment *models.Comment, created bool, err error) {
	if err := requirePrincipal(p); err != nil {
		return nil, false, err
	}
	content, err := checkLength("content", in.Content, models.MaxCommentLength, true)
	if err != nil {
		return nil, false, err
	}
	clientID, err := checkLength("clientCommentId", in.ClientCommentID, models.MaxClientCommentIDLength, true)
	if err != nil {
		return nil, false, err
	}
	if in.BookmarkID == 0 {
		return nil, false, models.NewValidationError("bookmarkId is required")
	}

	existing, err := s.commentRepo.GetByClientID(ctx, p.UserID, clientID)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		return existing, false, nil
	}

	bookmark, err := s.bookmarkRepo.GetByID(ctx, in.BookmarkID, p.UserID)
	if err != nil {
		return nil, false, err
	}
	if !canView(bookmark, p) {
		return nil, false, models.NewNotFoundError("Bookmark", in.BookmarkID)
	}

	if in.ParentID != nil {
		parent, err := s.commentRepo.GetByID(ctx, *in.ParentID)
		if err != nil {
			if isNotFound(err) {
				return nil, false, models.NewValidationError("parent comment does not exist")
			}
			return nil, false, err
		}
		if parent.BookmarkID != in.BookmarkID {
			return nil, false, models.NewValidationError("parent comment belongs to another bookmark")
		}
		if parent.ParentID != nil {
			return nil, false, models.NewValidationError("replies can only target top-level comments")
		}
	}

	comment = &models.Comment{
		BookmarkID:      in.BookmarkID,
		UserID:          p.UserID,
		Content:         content,
		ParentID:        in.ParentID,
		ClientCommentID: clientID,
	}
	if err := s.commentRepo.Create(ctx, comment); err != nil {
		// a concurrent request with the same token won the insert
		if hasCode(err, models.CodeConflict) {
			if existing, getErr := s.commentRepo.GetByClientID(ctx, p.UserID, clientID); getErr == nil && existing != nil {
				return existing, false, nil
			}
		}
		return nil, false, err
	}

	comment, err = s.commentRepo.GetByID(ctx, comment.ID)
	if err != nil {
		return nil, false, err
	}

	if bookmark.UserID != p.UserID {
		publish(ctx, s.publisher, bookmark.UserID, notifications.EventCommentCreated, CommentCreatedPayload{
			BookmarkID: bookmark.ID,
			CommentID:  comment.ID,
			ParentID:   comment.ParentID,
			UserID:     p.UserID,
			Username:   p.Username,
		})
	}
	return comment, true, nil
}

func (s *CommentService) ListComments(ctx context.Context, viewer *models.Principal, bookmarkID uint) ([]*models.Comment, error) {
	if bookmarkID == 0 {
		return nil, models.NewValidationError("bookmarkId is required")
	}
	bookmark, err := s.bookmarkRepo.GetByID(ctx, bookmarkID, viewerID(viewer))
	if err != nil {
		return nil, err
	}
	if !canView(bookmark, viewer) {
		return nil, models.NewNotFoundError("Bookmark", bookmarkID)
	}
	return s.commentRepo.ListByBookmark(ctx, bookmarkID)
}

// UpdateComment lets the author edit the content. Admins cannot rewrite other people's words.
func (s *CommentService) UpdateComment(ctx context.Context, p *models.Principal, id uint, content string) (*models.Comment, error) {
	if err := requirePrincipal(p); err != nil {
		return nil, err
	}
	comment, err := s.commentRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if comment.UserID != p.UserID {
		return nil, models.NewForbiddenError("not the author of this comment")
	}
	content, err = checkLength("content", content, models.MaxCommentLength, true)
	if err != nil {
		return nil, err
	}
	if err := s.commentRepo.UpdateContent(ctx, id, content); err != nil {
		return nil, err
	}
	return s.commentRepo.GetByID(ctx, id)
}

func (s *CommentService) DeleteComment(ctx context.Context, p *models.Principal, id uint) error {
	if err := requirePrincipal(p); err != nil {
		return err
	}
	comment, err := s.commentRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !canModify(comment.UserID, p) {
		return models.NewForbiddenError("not the author of this comment")
	}
	return s.commentRepo.DeleteWithReplies(ctx, id)
}

func hasCode(err error, code string) bool {
	var appErr *models.AppError
	return errors.As(err, &appErr) && appErr.Code == code
}

func isNotFound(err error) bool {
	return hasCode(err, models.CodeNotFound)
}
