package models

import (
	"encoding/json"
	"time"
)

// Known setting keys.
const (
	SettingSite = "site"
	SettingSEO  = "seo"
)

// Setting is a site-wide JSON document addressed by key.
type Setting struct {
	Key       string    `gorm:"primaryKey;size:64" json:"key"`
	Value     string    `gorm:"type:text;not null" json:"value"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// SiteSettings is the payload stored under SettingSite.
type SiteSettings struct {
	Title   string `json:"title"`
	Tagline string `json:"tagline"`
}

// SEOSettings is the payload stored under SettingSEO.
type SEOSettings struct {
	DefaultTitle       string   `json:"defaultTitle"`
	DefaultDescription string   `json:"defaultDescription"`
	RobotsDisallow     []string `json:"robotsDisallow"`
}

// DefaultSettings returns the document served before an admin saves one.
func DefaultSettings(key string) any {
	switch key {
	case SettingSite:
		return SiteSettings{Title: "linkshelf", Tagline: "Share the links worth keeping"}
	case SettingSEO:
		return SEOSettings{
			DefaultTitle:       "linkshelf",
			DefaultDescription: "Public bookmarks, tagged and curated.",
			RobotsDisallow:     []string{"/api/", "/admin"},
		}
	}
	return nil
}

// Decode unmarshals the stored value into dst.
func (s *Setting) Decode(dst any) error {
	return json.Unmarshal([]byte(s.Value), dst)
}
