// Package sqlite provides a SQLite-backed taxonomy store.
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
	"github.com/meridianpress/meridian/internal/services/taxonomy/domain"
	"github.com/meridianpress/meridian/internal/services/taxonomy/storage"
	"github.com/meridianpress/meridian/internal/services/taxonomy/storage/sqlite/migrations"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"
)

// Store persists categories and tags in SQLite.
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

// Open opens a SQLite taxonomy store and applies embedded migrations.
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

// CreateCategory inserts one category record.
func (s *Store) CreateCategory(ctx context.Context, category domain.Category) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(category.ID) == "" {
		return fmt.Errorf("category id is required")
	}
	createdAt := category.CreatedAt.UTC()
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	updatedAt := category.UpdatedAt.UTC()
	if updatedAt.IsZero() {
		updatedAt = createdAt
	}

	_, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO categories (id, slug, name, names, description, parent_id, position, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		category.ID,
		category.Slug,
		category.Name,
		encodeNames(category.Names),
		category.Description,
		category.ParentID,
		category.Position,
		toMillis(createdAt),
		toMillis(updatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return storage.ErrAlreadyExists
		}
		return fmt.Errorf("create category: %w", err)
	}
	return nil
}

// GetCategory returns one category by ID.
func (s *Store) GetCategory(ctx context.Context, categoryID string) (domain.Category, error) {
	if err := ctx.Err(); err != nil {
		return domain.Category{}, err
	}
	if s == nil || s.sqlDB == nil {
		return domain.Category{}, fmt.Errorf("storage is not configured")
	}
	row := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT id, slug, name, names, description, parent_id, position, created_at, updated_at
		 FROM categories WHERE id = ?`,
		strings.TrimSpace(categoryID),
	)
	return scanCategory(row)
}

// GetCategoryBySlug returns one category by slug.
func (s *Store) GetCategoryBySlug(ctx context.Context, slug string) (domain.Category, error) {
	if err := ctx.Err(); err != nil {
		return domain.Category{}, err
	}
	if s == nil || s.sqlDB == nil {
		return domain.Category{}, fmt.Errorf("storage is not configured")
	}
	row := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT id, slug, name, names, description, parent_id, position, created_at, updated_at
		 FROM categories WHERE slug = ?`,
		strings.TrimSpace(slug),
	)
	return scanCategory(row)
}

// UpdateCategory overwrites one category record.
func (s *Store) UpdateCategory(ctx context.Context, category domain.Category) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	result, err := s.sqlDB.ExecContext(
		ctx,
		`UPDATE categories SET slug = ?, name = ?, names = ?, description = ?, parent_id = ?,
		   position = ?, updated_at = ?
		 WHERE id = ?`,
		category.Slug,
		category.Name,
		encodeNames(category.Names),
		category.Description,
		category.ParentID,
		category.Position,
		toMillis(time.Now()),
		category.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return storage.ErrAlreadyExists
		}
		return fmt.Errorf("update category: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update category rows affected: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// DeleteCategory removes one category record.
func (s *Store) DeleteCategory(ctx context.Context, categoryID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	result, err := s.sqlDB.ExecContext(ctx, `DELETE FROM categories WHERE id = ?`, strings.TrimSpace(categoryID))
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete category rows affected: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// ListCategories returns every category ordered by position, then name.
func (s *Store) ListCategories(ctx context.Context) ([]domain.Category, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	rows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT id, slug, name, names, description, parent_id, position, created_at, updated_at
		 FROM categories ORDER BY position ASC, name ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var categories []domain.Category
	for rows.Next() {
		category, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		categories = append(categories, category)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate categories: %w", err)
	}
	return categories, nil
}

// CountChildren returns how many categories name the given one as parent.
func (s *Store) CountChildren(ctx context.Context, categoryID string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if s == nil || s.sqlDB == nil {
		return 0, fmt.Errorf("storage is not configured")
	}
	var count int
	row := s.sqlDB.QueryRowContext(
		ctx, "SELECT COUNT(*) FROM categories WHERE parent_id = ?", strings.TrimSpace(categoryID),
	)
	if err := row.Scan(&count); err != nil {
		return 0, fmt.Errorf("count children: %w", err)
	}
	return count, nil
}

// CreateTag inserts one tag record.
func (s *Store) CreateTag(ctx context.Context, tag domain.Tag) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(tag.ID) == "" {
		return fmt.Errorf("tag id is required")
	}
	createdAt := tag.CreatedAt.UTC()
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO tags (id, slug, name, created_at) VALUES (?, ?, ?, ?)`,
		tag.ID, tag.Slug, tag.Name, toMillis(createdAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return storage.ErrAlreadyExists
		}
		return fmt.Errorf("create tag: %w", err)
	}
	return nil
}

// GetTag returns one tag by ID.
func (s *Store) GetTag(ctx context.Context, tagID string) (domain.Tag, error) {
	if err := ctx.Err(); err != nil {
		return domain.Tag{}, err
	}
	if s == nil || s.sqlDB == nil {
		return domain.Tag{}, fmt.Errorf("storage is not configured")
	}
	row := s.sqlDB.QueryRowContext(
		ctx, "SELECT id, slug, name, created_at FROM tags WHERE id = ?", strings.TrimSpace(tagID),
	)
	return scanTag(row)
}

// GetTagBySlug returns one tag by slug.
func (s *Store) GetTagBySlug(ctx context.Context, slug string) (domain.Tag, error) {
	if err := ctx.Err(); err != nil {
		return domain.Tag{}, err
	}
	if s == nil || s.sqlDB == nil {
		return domain.Tag{}, fmt.Errorf("storage is not configured")
	}
	row := s.sqlDB.QueryRowContext(
		ctx, "SELECT id, slug, name, created_at FROM tags WHERE slug = ?", strings.TrimSpace(slug),
	)
	return scanTag(row)
}

// ListTags returns every tag ordered by slug.
func (s *Store) ListTags(ctx context.Context) ([]domain.Tag, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	rows, err := s.sqlDB.QueryContext(ctx, "SELECT id, slug, name, created_at FROM tags ORDER BY slug ASC")
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	defer rows.Close()

	var tags []domain.Tag
	for rows.Next() {
		tag, err := scanTag(rows)
		if err != nil {
			return nil, err
		}
		tags = append(tags, tag)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tags: %w", err)
	}
	return tags, nil
}

// DeleteTag removes one tag record.
func (s *Store) DeleteTag(ctx context.Context, tagID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	result, err := s.sqlDB.ExecContext(ctx, `DELETE FROM tags WHERE id = ?`, strings.TrimSpace(tagID))
	if err != nil {
		return fmt.Errorf("delete tag: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete tag rows affected: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCategory(row rowScanner) (domain.Category, error) {
	var category domain.Category
	var names string
	var createdAt, updatedAt int64
	err := row.Scan(
		&category.ID,
		&category.Slug,
		&category.Name,
		&names,
		&category.Description,
		&category.ParentID,
		&category.Position,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Category{}, storage.ErrNotFound
		}
		return domain.Category{}, fmt.Errorf("scan category: %w", err)
	}
	category.Names = decodeNames(names)
	category.CreatedAt = fromMillis(createdAt)
	category.UpdatedAt = fromMillis(updatedAt)
	return category, nil
}

// encodeNames stores the locale map as a JSON object; nil becomes {}.
func encodeNames(names map[string]string) string {
	if len(names) == 0 {
		return "{}"
	}
	payload, err := json.Marshal(names)
	if err != nil {
		return "{}"
	}
	return string(payload)
}

func decodeNames(payload string) map[string]string {
	if payload == "" || payload == "{}" {
		return nil
	}
	var names map[string]string
	if err := json.Unmarshal([]byte(payload), &names); err != nil {
		return nil
	}
	return names
}

func scanTag(row rowScanner) (domain.Tag, error) {
	var tag domain.Tag
	var createdAt int64
	err := row.Scan(&tag.ID, &tag.Slug, &tag.Name, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Tag{}, storage.ErrNotFound
		}
		return domain.Tag{}, fmt.Errorf("scan tag: %w", err)
	}
	tag.CreatedAt = fromMillis(createdAt)
	return tag, nil
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}
