package domain

import (
	"regexp"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Category groups tickets by subject.
type Category struct {
	ID           string
	Name         string
	Slug         string
	Description  string
	Color        string
	IsActive     bool
	TicketsCount int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// DefaultCategoryColor is used when no colour is supplied.
const DefaultCategoryColor = "#6B7280"

var (
	colorPattern   = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)
	slugSeparators = regexp.MustCompile(`[^a-z0-9]+`)
)

// ValidColor reports whether c is a #RRGGBB hex colour.
func ValidColor(c string) bool {
	return colorPattern.MatchString(c)
}

// Slugify derives a URL-safe slug from a category name.
func Slugify(name string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, name)
	if err != nil {
		folded = name
	}
	folded = strings.ReplaceAll(strings.ToLower(folded), "&", " and ")
	return strings.Trim(slugSeparators.ReplaceAllString(folded, "-"), "-")
}
