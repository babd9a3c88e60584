package service

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/url"
	"strings"

	"linkshelf/internal/repository"
)

// MaxSitemapBookmarks caps bookmark entries in the sitemap.
const MaxSitemapBookmarks = 5000

type SEOService struct {
	bookmarkRepo repository.BookmarkRepository
	tagRepo      repository.TagRepository
	userRepo     repository.UserRepository
	settings     *SettingsService
	baseURL      string
}

type sitemapURLSet struct {
	XMLName xml.Name     `xml:"urlset"`
	XMLNS   string       `xml:"xmlns,attr"`
	URLs    []sitemapURL `xml:"url"`
}

type sitemapURL struct {
	Loc     string `xml:"loc"`
	LastMod string `xml:"lastmod,omitempty"`
}

func NewSEOService(
	bookmarkRepo repository.BookmarkRepository,
	tagRepo repository.TagRepository,
	userRepo repository.UserRepository,
	settings *SettingsService,
	baseURL string,
) *SEOService {
	return &SEOService{
		bookmarkRepo: bookmarkRepo,
		tagRepo:      tagRepo,
		userRepo:     userRepo,
		settings:     settings,
		baseURL:      strings.TrimRight(baseURL, "/"),
	}
}

// Sitemap renders the XML sitemap of public pages.
func (s *SEOService) Sitemap(ctx context.Context) ([]byte, error) {
	set := sitemapURLSet{
		XMLNS: "http://www.sitemaps.org/schemas/sitemap/0.9",
		URLs:  []sitemapURL{{Loc: s.baseURL + "/"}},
	}

	slugs, err := s.tagRepo.ListPublicSlugs(ctx)
	if err != nil {
		return nil, err
	}
	for _, slug := range slugs {
		set.URLs = append(set.URLs, sitemapURL{Loc: s.baseURL + "/tags/" + url.PathEscape(slug)})
	}

	authors, err := s.userRepo.ListPublicAuthors(ctx)
	if err != nil {
		return nil, err
	}
	for _, name := range authors {
		set.URLs = append(set.URLs, sitemapURL{Loc: s.baseURL + "/users/" + url.PathEscape(name)})
	}

	bookmarks, err := s.bookmarkRepo.ListPublic(ctx, MaxSitemapBookmarks)
	if err != nil {
		return nil, err
	}
	for _, b := range bookmarks {
		set.URLs = append(set.URLs, sitemapURL{
			Loc:     fmt.Sprintf("%s/bookmarks/%d", s.baseURL, b.ID),
			LastMod: b.UpdatedAt.UTC().Format("2006-01-02"),
		})
	}

	body, err := xml.MarshalIndent(set, "", "  ")
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), body...), nil
}

// Robots renders robots.txt from the seo setting. The Sitemap line is always last.
func (s *SEOService) Robots(ctx context.Context) (string, error) {
	seo, err := s.settings.SEO(ctx)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	b.WriteString("User-agent: *\n")
	if len(seo.RobotsDisallow) == 0 {
		b.WriteString("Disallow:\n")
	}
	for _, rule := range seo.RobotsDisallow {
		b.WriteString("Disallow: " + rule + "\n")
	}
	b.WriteString("\nSitemap: " + s.baseURL + "/sitemap.xml\n")
	return b.String(), nil
}
