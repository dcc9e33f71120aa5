// Package storage defines persistence for ads and impression counts.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/meridianpress/meridian/internal/services/ads/domain"
)

// ErrNotFound is returned when an ad does not exist.
var ErrNotFound = errors.New("ad not found")

// Targeting narrows ad selection to one request's context.
type Targeting struct {
	Placement  domain.Placement
	Language   string
	CategoryID string
	At         time.Time
}

// AdStore persists ads.
type AdStore interface {
	CreateAd(ctx context.Context, ad domain.Ad) error
	GetAd(ctx context.Context, adID string) (domain.Ad, error)
	UpdateAd(ctx context.Context, ad domain.Ad) error
	DeleteAd(ctx context.Context, adID string) error
	ListAds(ctx context.Context) ([]domain.Ad, error)
	ListEligible(ctx context.Context, target Targeting) ([]domain.Ad, error)
	RecordImpression(ctx context.Context, adID string) error
	ImpressionCounts(ctx context.Context) (map[string]int64, error)
}
