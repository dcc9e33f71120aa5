// Package sqlite provides a SQLite-backed ad store.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/meridianpress/meridian/internal/platform/storage/sqlitemigrate"
	"github.com/meridianpress/meridian/internal/services/ads/domain"
	"github.com/meridianpress/meridian/internal/services/ads/storage"
	"github.com/meridianpress/meridian/internal/services/ads/storage/sqlite/migrations"

	_ "modernc.org/sqlite"
)

// Store persists ads in SQLite.
type Store struct {
	sqlDB *sql.DB
}

func toMillis(value time.Time) int64 {
	if value.IsZero() {
		return 0
	}
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	if value == 0 {
		return time.Time{}
	}
	return time.UnixMilli(value).UTC()
}

// Open opens a SQLite ad store and applies embedded migrations.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := sqlitemigrate.Apply(context.Background(), sqlDB, migrations.FS); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

const adColumns = `id, name, placement, target_url, image_url, active, languages, category_ids,
	weight, start_at, end_at, created_at, updated_at`

// encodeList stores a string slice as a JSON array; nil becomes [].
func encodeList(values []string) string {
	if len(values) == 0 {
		return "[]"
	}
	payload, err := json.Marshal(values)
	if err != nil {
		return "[]"
	}
	return string(payload)
}

func decodeList(payload string) []string {
	if payload == "" || payload == "[]" {
		return nil
	}
	var values []string
	if err := json.Unmarshal([]byte(payload), &values); err != nil {
		return nil
	}
	return values
}

// CreateAd inserts one ad record.
func (s *Store) CreateAd(ctx context.Context, ad domain.Ad) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(ad.ID) == "" {
		return fmt.Errorf("ad id is required")
	}
	createdAt := ad.CreatedAt.UTC()
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	updatedAt := ad.UpdatedAt.UTC()
	if updatedAt.IsZero() {
		updatedAt = createdAt
	}

	_, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO ads (`+adColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ad.ID,
		ad.Name,
		string(ad.Placement),
		ad.TargetURL,
		ad.ImageURL,
		ad.Active,
		encodeList(ad.Languages),
		encodeList(ad.CategoryIDs),
		ad.Weight,
		toMillis(ad.StartAt),
		toMillis(ad.EndAt),
		toMillis(createdAt),
		toMillis(updatedAt),
	)
	if err != nil {
		return fmt.Errorf("create ad: %w", err)
	}
	return nil
}

// GetAd returns one ad by ID.
func (s *Store) GetAd(ctx context.Context, adID string) (domain.Ad, error) {
	if err := ctx.Err(); err != nil {
		return domain.Ad{}, err
	}
	if s == nil || s.sqlDB == nil {
		return domain.Ad{}, fmt.Errorf("storage is not configured")
	}
	row := s.sqlDB.QueryRowContext(
		ctx, `SELECT `+adColumns+` FROM ads WHERE id = ?`, strings.TrimSpace(adID),
	)
	return scanAd(row)
}

// UpdateAd overwrites one ad record.
func (s *Store) UpdateAd(ctx context.Context, ad domain.Ad) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	result, err := s.sqlDB.ExecContext(
		ctx,
		`UPDATE ads SET name = ?, placement = ?, target_url = ?, image_url = ?, active = ?,
		   languages = ?, category_ids = ?, weight = ?, start_at = ?, end_at = ?, updated_at = ?
		 WHERE id = ?`,
		ad.Name,
		string(ad.Placement),
		ad.TargetURL,
		ad.ImageURL,
		ad.Active,
		encodeList(ad.Languages),
		encodeList(ad.CategoryIDs),
		ad.Weight,
		toMillis(ad.StartAt),
		toMillis(ad.EndAt),
		toMillis(time.Now()),
		ad.ID,
	)
	if err != nil {
		return fmt.Errorf("update ad: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update ad rows affected: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// DeleteAd removes one ad and its impression row.
func (s *Store) DeleteAd(ctx context.Context, adID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	adID = strings.TrimSpace(adID)
	result, err := s.sqlDB.ExecContext(ctx, `DELETE FROM ads WHERE id = ?`, adID)
	if err != nil {
		return fmt.Errorf("delete ad: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete ad rows affected: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	if _, err := s.sqlDB.ExecContext(ctx, `DELETE FROM ad_impressions WHERE ad_id = ?`, adID); err != nil {
		return fmt.Errorf("delete ad impressions: %w", err)
	}
	return nil
}

// ListAds returns every ad, newest first.
func (s *Store) ListAds(ctx context.Context) ([]domain.Ad, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	rows, err := s.sqlDB.QueryContext(
		ctx, `SELECT `+adColumns+` FROM ads ORDER BY created_at DESC, id DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("list ads: %w", err)
	}
	defer rows.Close()
	return collectAds(rows)
}

// ListEligible returns ads matching the targeting context. Placement,
// the scheduling window and the active flag filter in SQL; language and
// category lists are JSON columns, so they filter after scanning.
func (s *Store) ListEligible(ctx context.Context, target storage.Targeting) ([]domain.Ad, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	at := target.At
	if at.IsZero() {
		at = time.Now()
	}
	atMillis := at.UTC().UnixMilli()

	rows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT `+adColumns+` FROM ads
		 WHERE placement = ?
		   AND active = 1
		   AND start_at <= ? AND end_at > ?`,
		string(target.Placement),
		atMillis, atMillis,
	)
	if err != nil {
		return nil, fmt.Errorf("list eligible ads: %w", err)
	}
	defer rows.Close()
	ads, err := collectAds(rows)
	if err != nil {
		return nil, err
	}
	eligible := ads[:0]
	for _, ad := range ads {
		if ad.TargetsLanguage(target.Language) && ad.TargetsCategory(target.CategoryID) {
			eligible = append(eligible, ad)
		}
	}
	return eligible, nil
}

// RecordImpression increments the ad's impression count.
func (s *Store) RecordImpression(ctx context.Context, adID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	_, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO ad_impressions (ad_id, impressions, updated_at) VALUES (?, 1, ?)
		 ON CONFLICT(ad_id) DO UPDATE SET
		   impressions = impressions + 1,
		   updated_at = excluded.updated_at`,
		strings.TrimSpace(adID), time.Now().UTC().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("record impression: %w", err)
	}
	return nil
}

// ImpressionCounts returns impressions per ad.
func (s *Store) ImpressionCounts(ctx context.Context) (map[string]int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	rows, err := s.sqlDB.QueryContext(ctx, "SELECT ad_id, impressions FROM ad_impressions")
	if err != nil {
		return nil, fmt.Errorf("impression counts: %w", err)
	}
	defer rows.Close()

	counts := map[string]int64{}
	for rows.Next() {
		var adID string
		var impressions int64
		if err := rows.Scan(&adID, &impressions); err != nil {
			return nil, fmt.Errorf("scan impression count: %w", err)
		}
		counts[adID] = impressions
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate impression counts: %w", err)
	}
	return counts, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAd(row rowScanner) (domain.Ad, error) {
	var ad domain.Ad
	var placement, languages, categoryIDs string
	var startAt, endAt, createdAt, updatedAt int64
	err := row.Scan(
		&ad.ID,
		&ad.Name,
		&placement,
		&ad.TargetURL,
		&ad.ImageURL,
		&ad.Active,
		&languages,
		&categoryIDs,
		&ad.Weight,
		&startAt,
		&endAt,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Ad{}, storage.ErrNotFound
		}
		return domain.Ad{}, fmt.Errorf("scan ad: %w", err)
	}
	ad.Placement = domain.Placement(placement)
	ad.Languages = decodeList(languages)
	ad.CategoryIDs = decodeList(categoryIDs)
	ad.StartAt = fromMillis(startAt)
	ad.EndAt = fromMillis(endAt)
	ad.CreatedAt = fromMillis(createdAt)
	ad.UpdatedAt = fromMillis(updatedAt)
	return ad, nil
}

func collectAds(rows *sql.Rows) ([]domain.Ad, error) {
	var ads []domain.Ad
	for rows.Next() {
		ad, err := scanAd(rows)
		if err != nil {
			return nil, err
		}
		ads = append(ads, ad)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ads: %w", err)
	}
	return ads, nil
}
