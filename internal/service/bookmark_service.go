package service

import (
	"context"
	"log/slog"
	"strings"

	"linkshelf/internal/models"
	"linkshelf/internal/observability"
	"linkshelf/internal/repository"
	"linkshelf/internal/validation"
)

type BookmarkService struct {
	bookmarkRepo repository.BookmarkRepository
	commentRepo  repository.CommentRepository
}

type CreateBookmarkInput struct {
	URL         string
	Title       string
	Description string
	IsPublic    bool
	Tags        []string
}

// UpdateBookmarkInput is a sparse patch; nil fields are left unchanged.
type UpdateBookmarkInput struct {
	URL         *string
	Title       *string
	Description *string
	IsPublic    *bool
	IsPinned    *bool
	Tags        *[]string
}

type ListBookmarksInput struct {
	UserID    uint
	Tag       string
	Search    string
	Favorites bool
	Page      int
	Limit     int
}

func NewBookmarkService(
	bookmarkRepo repository.BookmarkRepository,
	commentRepo repository.CommentRepository,
) *BookmarkService {
	return &BookmarkService{
		bookmarkRepo: bookmarkRepo,
		commentRepo:  commentRepo,
	}
}

func (s *BookmarkService) CreateBookmark(ctx context.Context, p *models.Principal, in CreateBookmarkInput) (*models.BookmarkDetail, error) {
	ctx, span := observability.StartServiceSpan(ctx, "bookmark", "create")
	var err error
	defer func() { observability.EndSpan(span, err) }()

	if err = requirePrincipal(p); err != nil {
		return nil, err
	}
	if !p.IsApproved {
		err = models.NewForbiddenError("account pending approval")
		return nil, err
	}

	bookmark := &models.Bookmark{UserID: p.UserID, IsPublic: in.IsPublic}
	if bookmark.URL, err = validateBookmarkURL(in.URL); err != nil {
		return nil, err
	}
	if bookmark.Title, err = checkLength("title", in.Title, models.MaxTitleLength, true); err != nil {
		return nil, err
	}
	if bookmark.Description, err = checkLength("description", in.Description, models.MaxDescriptionLength, false); err != nil {
		return nil, err
	}
	tags, tagErr := validation.NormalizeTags(in.Tags)
	if tagErr != nil {
		err = models.NewValidationError(tagErr.Error())
		return nil, err
	}

	if err = s.bookmarkRepo.CreateWithQuota(ctx, bookmark, tags); err != nil {
		return nil, err
	}

	created, err := s.bookmarkRepo.GetByID(ctx, bookmark.ID, p.UserID)
	if err != nil {
		return nil, err
	}
	return &models.BookmarkDetail{Bookmark: created, Comments: []*models.Comment{}}, nil
}

func validateBookmarkURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if err := validation.ValidateHTTPURL(raw, models.MaxURLLength); err != nil {
		return "", models.NewValidationError(err.Error())
	}
	return raw, nil
}

func (s *BookmarkService) ListBookmarks(ctx context.Context, viewer *models.Principal, in ListBookmarksInput) (*models.BookmarkPage, error) {
	if in.Favorites {
		if err := requirePrincipal(viewer); err != nil {
			return nil, err
		}
	}
	page, limit := in.Page, in.Limit
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = repository.DefaultPageSize
	}
	if limit > repository.MaxPageSize {
		limit = repository.MaxPageSize
	}

	filter := models.BookmarkFilter{
		UserID:    in.UserID,
		TagSlug:   validation.NormalizeTagSlug(in.Tag),
		Search:    strings.TrimSpace(in.Search),
		Favorites: in.Favorites,
		Page:      page,
		Limit:     limit,
	}
	bookmarks, total, err := s.bookmarkRepo.List(ctx, filter, viewerID(viewer))
	if err != nil {
		return nil, err
	}
	return &models.BookmarkPage{
		Bookmarks:  bookmarks,
		Pagination: models.NewPagination(page, limit, total),
	}, nil
}

// GetBookmark returns the bookmark with its comments. Hidden bookmarks are NOT_FOUND so
// their existence does not leak. Views by anyone but the owner bump view_count.
func (s *BookmarkService) GetBookmark(ctx context.Context, viewer *models.Principal, id uint) (*models.BookmarkDetail, error) {
	bookmark, err := s.visibleBookmark(ctx, viewer, id)
	if err != nil {
		return nil, err
	}

	if viewer == nil || viewer.UserID != bookmark.UserID {
		if err := s.bookmarkRepo.IncrementViews(ctx, id); err != nil {
			slog.WarnContext(ctx, "view count increment failed", "bookmark_id", id, "error", err)
		} else {
			bookmark.ViewCount++
		}
	}

	comments, err := s.commentRepo.ListByBookmark(ctx, id)
	if err != nil {
		return nil, err
	}
	return &models.BookmarkDetail{Bookmark: bookmark, Comments: comments}, nil
}

func (s *BookmarkService) visibleBookmark(ctx context.Context, viewer *models.Principal, id uint) (*models.Bookmark, error) {
	bookmark, err := s.bookmarkRepo.GetByID(ctx, id, viewerID(viewer))
	if err != nil {
		return nil, err
	}
	if !canView(bookmark, viewer) {
		return nil, models.NewNotFoundError("Bookmark", id)
	}
	return bookmark, nil
}

// ownedBookmark loads a bookmark for a write. Strangers get NOT_FOUND for hidden bookmarks
// and FORBIDDEN for visible ones.
func (s *BookmarkService) ownedBookmark(ctx context.Context, p *models.Principal, id uint) (*models.Bookmark, error) {
	if err := requirePrincipal(p); err != nil {
		return nil, err
	}
	bookmark, err := s.visibleBookmark(ctx, p, id)
	if err != nil {
		return nil, err
	}
	if !canModify(bookmark.UserID, p) {
		return nil, models.NewForbiddenError("not the owner of this bookmark")
	}
	return bookmark, nil
}

func (s *BookmarkService) UpdateBookmark(ctx context.Context, p *models.Principal, id uint, in UpdateBookmarkInput) (*models.BookmarkDetail, error) {
	if _, err := s.ownedBookmark(ctx, p, id); err != nil {
		return nil, err
	}

	fields := make(map[string]any)
	if in.URL != nil {
		u, err := validateBookmarkURL(*in.URL)
		if err != nil {
			return nil, err
		}
		fields["url"] = u
	}
	if in.Title != nil {
		title, err := checkLength("title", *in.Title, models.MaxTitleLength, true)
		if err != nil {
			return nil, err
		}
		fields["title"] = title
	}
	if in.Description != nil {
		desc, err := checkLength("description", *in.Description, models.MaxDescriptionLength, false)
		if err != nil {
			return nil, err
		}
		fields["description"] = desc
	}
	if in.IsPublic != nil {
		fields["is_public"] = *in.IsPublic
	}
	if in.IsPinned != nil {
		fields["is_pinned"] = *in.IsPinned
	}

	var tags *[]validation.TagInput
	if in.Tags != nil {
		normalized, err := validation.NormalizeTags(*in.Tags)
		if err != nil {
			return nil, models.NewValidationError(err.Error())
		}
		tags = &normalized
	}

	if len(fields) == 0 && tags == nil {
		return nil, models.NewValidationError("no fields to update")
	}
	if err := s.bookmarkRepo.Update(ctx, id, fields, tags, p.UserID); err != nil {
		return nil, err
	}

	updated, err := s.bookmarkRepo.GetByID(ctx, id, p.UserID)
	if err != nil {
		return nil, err
	}
	comments, err := s.commentRepo.ListByBookmark(ctx, id)
	if err != nil {
		return nil, err
	}
	return &models.BookmarkDetail{Bookmark: updated, Comments: comments}, nil
}

func (s *BookmarkService) DeleteBookmark(ctx context.Context, p *models.Principal, id uint) error {
	if _, err := s.ownedBookmark(ctx, p, id); err != nil {
		return err
	}
	return s.bookmarkRepo.Delete(ctx, id)
}
