package service

import (
	"context"

	"linkshelf/internal/models"
	"linkshelf/internal/repository"
	"linkshelf/internal/validation"
)

// Tag SEO field limits.
const (
	MaxTagMetaTitleLength       = 200
	MaxTagMetaDescriptionLength = 500
)

type TagService struct {
	tagRepo repository.TagRepository
}

type UpdateTagMetaInput struct {
	MetaTitle       string
	MetaDescription string
}

func NewTagService(tagRepo repository.TagRepository) *TagService {
	return &TagService{tagRepo: tagRepo}
}

func (s *TagService) ListTags(ctx context.Context) ([]models.Tag, error) {
	return s.tagRepo.List(ctx)
}

func (s *TagService) GetTag(ctx context.Context, slug string) (*models.Tag, error) {
	normalized := validation.NormalizeTagSlug(slug)
	if normalized == "" {
		return nil, models.NewNotFoundError("Tag", slug)
	}
	return s.tagRepo.GetBySlug(ctx, normalized)
}

func (s *TagService) UpdateTagMeta(ctx context.Context, slug string, in UpdateTagMetaInput) (*models.Tag, error) {
	title, err := checkLength("metaTitle", in.MetaTitle, MaxTagMetaTitleLength, false)
	if err != nil {
		return nil, err
	}
	desc, err := checkLength("metaDescription", in.MetaDescription, MaxTagMetaDescriptionLength, false)
	if err != nil {
		return nil, err
	}
	return s.tagRepo.UpdateMeta(ctx, validation.NormalizeTagSlug(slug), title, desc)
}

func (s *TagService) DeleteTag(ctx context.Context, slug string) error {
	return s.tagRepo.Delete(ctx, validation.NormalizeTagSlug(slug))
}

// PruneOrphans deletes tags no bookmark uses any more.
func (s *TagService) PruneOrphans(ctx context.Context) (int64, error) {
	return s.tagRepo.PruneOrphans(ctx)
}
