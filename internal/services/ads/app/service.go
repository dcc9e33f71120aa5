// Package app manages ad campaigns and serves weighted-random creatives.
package app

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	apperrors "github.com/meridianpress/meridian/internal/platform/errors"
	"github.com/meridianpress/meridian/internal/platform/id"
	"github.com/meridianpress/meridian/internal/services/ads/domain"
	"github.com/meridianpress/meridian/internal/services/ads/storage"
	"github.com/meridianpress/meridian/internal/services/shared/authctx"
)

// Service manages ads.
type Service struct {
	store storage.AdStore
	now   func() time.Time
	pick  func(total int) int
}

// New creates an ads service.
func New(store storage.AdStore) *Service {
	return &Service{
		store: store,
		now:   time.Now,
		pick:  rand.IntN,
	}
}

// AdInput carries the editable fields of an ad.
type AdInput struct {
	Name        string
	Placement   string
	TargetURL   string
	ImageURL    string
	Active      bool
	Languages   []string
	CategoryIDs []string
	Weight      int
	StartAt     time.Time
	EndAt       time.Time
}

func trimAll(values []string) []string {
	var trimmed []string
	for _, value := range values {
		if value = strings.TrimSpace(value); value != "" {
			trimmed = append(trimmed, value)
		}
	}
	return trimmed
}

func (s *Service) adFromInput(input AdInput) domain.Ad {
	return domain.Ad{
		Name:        strings.TrimSpace(input.Name),
		Placement:   domain.Placement(strings.ToLower(strings.TrimSpace(input.Placement))),
		TargetURL:   strings.TrimSpace(input.TargetURL),
		ImageURL:    strings.TrimSpace(input.ImageURL),
		Active:      input.Active,
		Languages:   trimAll(input.Languages),
		CategoryIDs: trimAll(input.CategoryIDs),
		Weight:      input.Weight,
		StartAt:     input.StartAt.UTC(),
		EndAt:       input.EndAt.UTC(),
	}
}

// Create adds a new ad campaign. Admin role required.
func (s *Service) Create(ctx context.Context, actor authctx.Identity, input AdInput) (domain.Ad, error) {
	if !actor.Role.CanAdminister() {
		return domain.Ad{}, apperrors.New(apperrors.CodePermissionDenied, "managing ads requires the admin role")
	}
	ad := s.adFromInput(input)
	ad.ID = id.New()
	now := s.now().UTC()
	ad.CreatedAt = now
	ad.UpdatedAt = now
	if err := ad.Validate(); err != nil {
		return domain.Ad{}, err
	}
	if err := s.store.CreateAd(ctx, ad); err != nil {
		return domain.Ad{}, fmt.Errorf("create ad: %w", err)
	}
	return ad, nil
}

// Update replaces an ad's fields. Admin role required.
func (s *Service) Update(ctx context.Context, actor authctx.Identity, adID string, input AdInput) (domain.Ad, error) {
	if !actor.Role.CanAdminister() {
		return domain.Ad{}, apperrors.New(apperrors.CodePermissionDenied, "managing ads requires the admin role")
	}
	existing, err := s.load(ctx, adID)
	if err != nil {
		return domain.Ad{}, err
	}
	ad := s.adFromInput(input)
	ad.ID = existing.ID
	ad.CreatedAt = existing.CreatedAt
	ad.UpdatedAt = s.now().UTC()
	if err := ad.Validate(); err != nil {
		return domain.Ad{}, err
	}
	if err := s.store.UpdateAd(ctx, ad); err != nil {
		return domain.Ad{}, fmt.Errorf("update ad: %w", err)
	}
	return ad, nil
}

// Delete removes an ad campaign. Admin role required.
func (s *Service) Delete(ctx context.Context, actor authctx.Identity, adID string) error {
	if !actor.Role.CanAdminister() {
		return apperrors.New(apperrors.CodePermissionDenied, "managing ads requires the admin role")
	}
	if err := s.store.DeleteAd(ctx, adID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return apperrors.New(apperrors.CodeNotFound, "ad not found")
		}
		return fmt.Errorf("delete ad: %w", err)
	}
	return nil
}

// List returns every ad campaign. Admin role required.
func (s *Service) List(ctx context.Context, actor authctx.Identity) ([]domain.Ad, error) {
	if !actor.Role.CanAdminister() {
		return nil, apperrors.New(apperrors.CodePermissionDenied, "listing ads requires the admin role")
	}
	ads, err := s.store.ListAds(ctx)
	if err != nil {
		return nil, fmt.Errorf("list ads: %w", err)
	}
	return ads, nil
}

// Serve picks one eligible ad by weighted random selection and records
// the impression. A nil ad with nil error means no campaign matched.
func (s *Service) Serve(ctx context.Context, placement, language, categoryID string) (*domain.Ad, error) {
	parsed, ok := domain.ParsePlacement(placement)
	if !ok {
		return nil, apperrors.WithMetadata(
			apperrors.CodeAdInvalidPlacement,
			"unknown placement",
			map[string]string{"Placement": placement},
		)
	}
	eligible, err := s.store.ListEligible(ctx, storage.Targeting{
		Placement:  parsed,
		Language:   strings.TrimSpace(language),
		CategoryID: strings.TrimSpace(categoryID),
		At:         s.now(),
	})
	if err != nil {
		return nil, fmt.Errorf("list eligible ads: %w", err)
	}
	if len(eligible) == 0 {
		return nil, nil
	}

	total := 0
	for _, ad := range eligible {
		total += ad.Weight
	}
	roll := s.pick(total)
	var chosen domain.Ad
	for _, ad := range eligible {
		roll -= ad.Weight
		if roll < 0 {
			chosen = ad
			break
		}
	}

	if err := s.store.RecordImpression(ctx, chosen.ID); err != nil {
		return nil, fmt.Errorf("record impression: %w", err)
	}
	return &chosen, nil
}

// Stats returns impression counts per ad for the dashboard. Editor role
// required.
func (s *Service) Stats(ctx context.Context, actor authctx.Identity) (map[string]int64, error) {
	if !actor.Role.CanModerate() {
		return nil, apperrors.New(apperrors.CodePermissionDenied, "stats require the editor role")
	}
	counts, err := s.store.ImpressionCounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("impression counts: %w", err)
	}
	return counts, nil
}

func (s *Service) load(ctx context.Context, adID string) (domain.Ad, error) {
	ad, err := s.store.GetAd(ctx, adID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return domain.Ad{}, apperrors.New(apperrors.CodeNotFound, "ad not found")
		}
		return domain.Ad{}, fmt.Errorf("load ad: %w", err)
	}
	return ad, nil
}
