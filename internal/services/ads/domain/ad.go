// Package domain defines the ad model: placements, scheduling windows
// and targeting.
package domain

import (
	"strings"
	"time"

	apperrors "github.com/meridianpress/meridian/internal/platform/errors"
)

// Placement is a slot on the site where an ad can render.
type Placement string

const (
	PlacementBanner  Placement = "banner"
	PlacementSidebar Placement = "sidebar"
	PlacementInline  Placement = "inline"
)

// ParsePlacement converts a wire value into a Placement.
func ParsePlacement(value string) (Placement, bool) {
	switch Placement(strings.ToLower(strings.TrimSpace(value))) {
	case PlacementBanner:
		return PlacementBanner, true
	case PlacementSidebar:
		return PlacementSidebar, true
	case PlacementInline:
		return PlacementInline, true
	}
	return "", false
}

// Ad is one campaign creative. Languages and CategoryIDs are optional
// targeting filters; empty means any. Inactive ads are never served
// regardless of their window.
type Ad struct {
	ID          string
	Name        string
	Placement   Placement
	TargetURL   string
	ImageURL    string
	Active      bool
	Languages   []string
	CategoryIDs []string
	Weight      int
	StartAt     time.Time
	EndAt       time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Validate checks the ad's own fields.
func (a Ad) Validate() error {
	if _, ok := ParsePlacement(string(a.Placement)); !ok {
		return apperrors.WithMetadata(
			apperrors.CodeAdInvalidPlacement,
			"unknown placement",
			map[string]string{"Placement": string(a.Placement)},
		)
	}
	if a.StartAt.IsZero() || a.EndAt.IsZero() || !a.StartAt.Before(a.EndAt) {
		return apperrors.New(apperrors.CodeAdInvalidWindow, "ad window must start before it ends")
	}
	if a.Weight < 1 {
		return apperrors.New(apperrors.CodeAdInvalidWeight, "ad weight must be at least 1")
	}
	if strings.TrimSpace(a.TargetURL) == "" {
		return apperrors.New(apperrors.CodeInvalidArgument, "ad target url is required")
	}
	return nil
}

// RunsAt reports whether the ad's window contains the given instant.
func (a Ad) RunsAt(at time.Time) bool {
	return !at.Before(a.StartAt) && at.Before(a.EndAt)
}

// TargetsLanguage reports whether the ad may serve to the language.
func (a Ad) TargetsLanguage(language string) bool {
	if len(a.Languages) == 0 {
		return true
	}
	for _, candidate := range a.Languages {
		if strings.EqualFold(candidate, language) {
			return true
		}
	}
	return false
}

// TargetsCategory reports whether the ad may serve on the category.
func (a Ad) TargetsCategory(categoryID string) bool {
	if len(a.CategoryIDs) == 0 {
		return true
	}
	for _, candidate := range a.CategoryIDs {
		if candidate == categoryID {
			return true
		}
	}
	return false
}
