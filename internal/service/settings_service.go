package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"linkshelf/internal/models"
	"linkshelf/internal/repository"
)

// Setting field limits.
const (
	MaxSettingTextLength = 300
	MaxRobotsRules       = 50
)

type SettingsService struct {
	settingRepo repository.SettingRepository
}

func NewSettingsService(settingRepo repository.SettingRepository) *SettingsService {
	return &SettingsService{settingRepo: settingRepo}
}

func knownSetting(key string) error {
	if models.DefaultSettings(key) == nil {
		return models.NewNotFoundError("Setting", key)
	}
	return nil
}

// Get returns the stored document for key, or its default.
func (s *SettingsService) Get(ctx context.Context, key string) (any, error) {
	switch key {
	case models.SettingSite:
		return s.Site(ctx)
	case models.SettingSEO:
		return s.SEO(ctx)
	}
	return nil, knownSetting(key)
}

func (s *SettingsService) Site(ctx context.Context) (*models.SiteSettings, error) {
	site := models.DefaultSettings(models.SettingSite).(models.SiteSettings)
	if err := s.load(ctx, models.SettingSite, &site); err != nil {
		return nil, err
	}
	return &site, nil
}

func (s *SettingsService) SEO(ctx context.Context) (*models.SEOSettings, error) {
	seo := models.DefaultSettings(models.SettingSEO).(models.SEOSettings)
	if err := s.load(ctx, models.SettingSEO, &seo); err != nil {
		return nil, err
	}
	return &seo, nil
}

func (s *SettingsService) load(ctx context.Context, key string, dst any) error {
	stored, err := s.settingRepo.Get(ctx, key)
	if err != nil {
		return err
	}
	if stored == nil {
		return nil
	}
	if err := stored.Decode(dst); err != nil {
		return models.NewInternalError(fmt.Errorf("decode setting %s: %w", key, err))
	}
	return nil
}

// Put validates raw against the document shape for key and stores it whole.
func (s *SettingsService) Put(ctx context.Context, key string, raw []byte) (any, error) {
	if err := knownSetting(key); err != nil {
		return nil, err
	}

	var doc any
	switch key {
	case models.SettingSite:
		var site models.SiteSettings
		if err := decodeStrict(raw, &site); err != nil {
			return nil, err
		}
		var err error
		if site.Title, err = checkLength("title", site.Title, MaxSettingTextLength, true); err != nil {
			return nil, err
		}
		if site.Tagline, err = checkLength("tagline", site.Tagline, MaxSettingTextLength, false); err != nil {
			return nil, err
		}
		doc = site
	case models.SettingSEO:
		var seo models.SEOSettings
		if err := decodeStrict(raw, &seo); err != nil {
			return nil, err
		}
		var err error
		if seo.DefaultTitle, err = checkLength("defaultTitle", seo.DefaultTitle, MaxSettingTextLength, false); err != nil {
			return nil, err
		}
		if seo.DefaultDescription, err = checkLength("defaultDescription", seo.DefaultDescription, MaxSettingTextLength, false); err != nil {
			return nil, err
		}
		if len(seo.RobotsDisallow) > MaxRobotsRules {
			return nil, models.NewValidationError(fmt.Sprintf("robotsDisallow allows at most %d rules", MaxRobotsRules))
		}
		for i, rule := range seo.RobotsDisallow {
			rule = strings.TrimSpace(rule)
			if !strings.HasPrefix(rule, "/") || strings.ContainsAny(rule, "\r\n") {
				return nil, models.NewValidationError("robotsDisallow entries must be paths starting with /")
			}
			seo.RobotsDisallow[i] = rule
		}
		doc = seo
	}

	canonical, err := json.Marshal(doc)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	if _, err := s.settingRepo.Put(ctx, key, string(canonical)); err != nil {
		return nil, err
	}
	return doc, nil
}

func decodeStrict(raw []byte, dst any) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return models.NewValidationError("invalid settings document: " + err.Error())
	}
	return nil
}
