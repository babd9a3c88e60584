package validation

import "strings"

// Usernames that would shadow routes under /api/users or the web app.
var reservedUsernames = map[string]struct{}{
	"me":        {},
	"admin":     {},
	"api":       {},
	"auth":      {},
	"settings":  {},
	"bookmarks": {},
	"tags":      {},
	"users":     {},
	"login":     {},
	"register":  {},
	"logout":    {},
	"metrics":   {},
	"swagger":   {},
	"sitemap":   {},
	"robots":    {},
}

// IsReservedUsername reports whether name (case-insensitive) is reserved.
func IsReservedUsername(name string) bool {
	_, ok := reservedUsernames[strings.ToLower(name)]
	return ok
}
