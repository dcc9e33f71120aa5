// Package domain defines the category tree and tag models.
package domain

import (
	"regexp"
	"strings"
	"time"

	apperrors "github.com/meridianpress/meridian/internal/platform/errors"
)

// MaxDepth is the deepest level a category may sit at. Roots are depth 1.
const MaxDepth = 3

// Category is one node of the section tree. Names holds per-locale
// display names keyed by BCP 47 tag; Name is the canonical fallback.
// Position orders siblings in navigation.
type Category struct {
	ID          string
	Slug        string
	Name        string
	Names       map[string]string
	Description string
	ParentID    string
	Position    int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Validate checks the category's own fields.
func (c Category) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return apperrors.New(apperrors.CodeCategoryNameEmpty, "category name is required")
	}
	for locale, name := range c.Names {
		if strings.TrimSpace(locale) == "" || strings.TrimSpace(name) == "" {
			return apperrors.New(apperrors.CodeCategoryNameEmpty, "localized category names must not be blank")
		}
	}
	return nil
}

// NameIn returns the category name for a locale, falling back to the
// canonical name.
func (c Category) NameIn(locale string) string {
	if name, ok := c.Names[locale]; ok {
		return name
	}
	return c.Name
}

// Tag is a free-form label attached to articles.
type Tag struct {
	ID        string
	Slug      string
	Name      string
	CreatedAt time.Time
}

// Validate checks the tag's own fields.
func (t Tag) Validate() error {
	if strings.TrimSpace(t.Slug) == "" {
		return apperrors.New(apperrors.CodeTagSlugEmpty, "tag slug is required")
	}
	return nil
}

var slugStrip = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify derives a URL slug from a name.
func Slugify(name string) string {
	slug := strings.ToLower(strings.TrimSpace(name))
	slug = slugStrip.ReplaceAllString(slug, "-")
	slug = strings.Trim(slug, "-")
	if len(slug) > 60 {
		slug = strings.Trim(slug[:60], "-")
	}
	return slug
}
