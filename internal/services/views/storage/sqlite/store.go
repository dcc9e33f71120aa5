// Package sqlite provides a SQLite-backed view count store.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/meridianpress/meridian/internal/platform/storage/sqlitemigrate"
	"github.com/meridianpress/meridian/internal/services/views/storage"
	"github.com/meridianpress/meridian/internal/services/views/storage/sqlite/migrations"

	_ "modernc.org/sqlite"
)

// Store persists view counts in SQLite.
type Store struct {
	sqlDB *sql.DB
}

// Open opens a SQLite view store and applies embedded migrations.
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

// AddViews increments the stored totals by the given deltas inside one
// transaction.
func (s *Store) AddViews(ctx context.Context, deltas map[string]int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if len(deltas) == 0 {
		return nil
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin add views: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC().UnixMilli()
	for articleID, delta := range deltas {
		if strings.TrimSpace(articleID) == "" || delta == 0 {
			continue
		}
		_, err := tx.ExecContext(
			ctx,
			`INSERT INTO article_views (article_id, views, updated_at) VALUES (?, ?, ?)
			 ON CONFLICT(article_id) DO UPDATE SET
			   views = views + excluded.views,
			   updated_at = excluded.updated_at`,
			articleID, delta, now,
		)
		if err != nil {
			return fmt.Errorf("add views for %s: %w", articleID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit add views: %w", err)
	}
	return nil
}

// GetViews returns the persisted total for one article.
func (s *Store) GetViews(ctx context.Context, articleID string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if s == nil || s.sqlDB == nil {
		return 0, fmt.Errorf("storage is not configured")
	}
	var views int64
	row := s.sqlDB.QueryRowContext(
		ctx, "SELECT views FROM article_views WHERE article_id = ?", strings.TrimSpace(articleID),
	)
	if err := row.Scan(&views); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, storage.ErrNotFound
		}
		return 0, fmt.Errorf("get views: %w", err)
	}
	return views, nil
}

// TopViewed returns the most viewed articles in descending order.
func (s *Store) TopViewed(ctx context.Context, limit int) ([]storage.ArticleViews, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	if limit <= 0 || limit > 100 {
		limit = 10
	}
	rows, err := s.sqlDB.QueryContext(
		ctx,
		"SELECT article_id, views FROM article_views ORDER BY views DESC, article_id ASC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("top viewed: %w", err)
	}
	defer rows.Close()

	var result []storage.ArticleViews
	for rows.Next() {
		var entry storage.ArticleViews
		if err := rows.Scan(&entry.ArticleID, &entry.Views); err != nil {
			return nil, fmt.Errorf("scan viewed article: %w", err)
		}
		result = append(result, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate viewed articles: %w", err)
	}
	return result, nil
}

// DeleteViews removes the stored total for one article.
func (s *Store) DeleteViews(ctx context.Context, articleID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	_, err := s.sqlDB.ExecContext(
		ctx, "DELETE FROM article_views WHERE article_id = ?", strings.TrimSpace(articleID),
	)
	if err != nil {
		return fmt.Errorf("delete views: %w", err)
	}
	return nil
}
