// Package sqlite provides a SQLite-backed article storage implementation.
// Block content and tag references are stored as JSON document columns.
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
	"github.com/meridianpress/meridian/internal/services/content/domain"
	"github.com/meridianpress/meridian/internal/services/content/storage"
	"github.com/meridianpress/meridian/internal/services/content/storage/sqlite/migrations"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"
)

// Store persists articles in SQLite.
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

// Open opens a SQLite article store and applies embedded migrations.
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

const articleColumns = `id, slug, language, translation_group_id, title, summary, blocks,
	author_id, category_id, tag_ids, premium, status, review_note,
	published_at, created_at, updated_at`

// CreateArticle inserts one article record.
func (s *Store) CreateArticle(ctx context.Context, article domain.Article) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(article.ID) == "" {
		return fmt.Errorf("article id is required")
	}
	blocks, tags, err := encodeDocuments(article)
	if err != nil {
		return err
	}
	createdAt := article.CreatedAt.UTC()
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	updatedAt := article.UpdatedAt.UTC()
	if updatedAt.IsZero() {
		updatedAt = createdAt
	}

	_, err = s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO articles (`+articleColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		article.ID,
		article.Slug,
		article.Language,
		article.TranslationGroupID,
		article.Title,
		article.Summary,
		blocks,
		article.AuthorID,
		article.CategoryID,
		tags,
		boolToInt(article.Premium),
		string(article.Status),
		article.ReviewNote,
		toMillis(article.PublishedAt),
		toMillis(createdAt),
		toMillis(updatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return storage.ErrAlreadyExists
		}
		return fmt.Errorf("create article: %w", err)
	}
	return nil
}

// GetArticle returns one article by ID.
func (s *Store) GetArticle(ctx context.Context, articleID string) (domain.Article, error) {
	if err := ctx.Err(); err != nil {
		return domain.Article{}, err
	}
	if s == nil || s.sqlDB == nil {
		return domain.Article{}, fmt.Errorf("storage is not configured")
	}
	articleID = strings.TrimSpace(articleID)
	if articleID == "" {
		return domain.Article{}, fmt.Errorf("article id is required")
	}
	row := s.sqlDB.QueryRowContext(
		ctx, `SELECT `+articleColumns+` FROM articles WHERE id = ?`, articleID,
	)
	return scanArticle(row)
}

// GetArticleBySlug returns one article by language and slug.
func (s *Store) GetArticleBySlug(ctx context.Context, language, slug string) (domain.Article, error) {
	if err := ctx.Err(); err != nil {
		return domain.Article{}, err
	}
	if s == nil || s.sqlDB == nil {
		return domain.Article{}, fmt.Errorf("storage is not configured")
	}
	row := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT `+articleColumns+` FROM articles WHERE language = ? AND slug = ?`,
		strings.TrimSpace(language), strings.TrimSpace(slug),
	)
	return scanArticle(row)
}

// UpdateArticle overwrites one article record.
func (s *Store) UpdateArticle(ctx context.Context, article domain.Article) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(article.ID) == "" {
		return fmt.Errorf("article id is required")
	}
	blocks, tags, err := encodeDocuments(article)
	if err != nil {
		return err
	}

	result, err := s.sqlDB.ExecContext(
		ctx,
		`UPDATE articles SET
		   slug = ?, language = ?, translation_group_id = ?, title = ?, summary = ?,
		   blocks = ?, author_id = ?, category_id = ?, tag_ids = ?, premium = ?,
		   status = ?, review_note = ?, published_at = ?, updated_at = ?
		 WHERE id = ?`,
		article.Slug,
		article.Language,
		article.TranslationGroupID,
		article.Title,
		article.Summary,
		blocks,
		article.AuthorID,
		article.CategoryID,
		tags,
		boolToInt(article.Premium),
		string(article.Status),
		article.ReviewNote,
		toMillis(article.PublishedAt),
		toMillis(time.Now()),
		article.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return storage.ErrAlreadyExists
		}
		return fmt.Errorf("update article: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update article rows affected: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// DeleteArticle removes one article record.
func (s *Store) DeleteArticle(ctx context.Context, articleID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	result, err := s.sqlDB.ExecContext(ctx, `DELETE FROM articles WHERE id = ?`, strings.TrimSpace(articleID))
	if err != nil {
		return fmt.Errorf("delete article: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete article rows affected: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// ListArticles returns articles matching the filter, newest first. Published
// articles order by publication time, everything else by creation time.
func (s *Store) ListArticles(ctx context.Context, filter storage.Filter) ([]domain.Article, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}

	where := []string{"1=1"}
	var args []any
	if filter.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(filter.Status))
	}
	if filter.Language != "" {
		where = append(where, "language = ?")
		args = append(args, filter.Language)
	}
	if filter.CategoryID != "" {
		where = append(where, "category_id = ?")
		args = append(args, filter.CategoryID)
	}
	if filter.AuthorID != "" {
		where = append(where, "author_id = ?")
		args = append(args, filter.AuthorID)
	}
	if filter.TagID != "" {
		// tag_ids is a JSON array of strings; EXISTS over json_each keeps
		// the filter sargable enough for this table's size.
		where = append(where, "EXISTS (SELECT 1 FROM json_each(articles.tag_ids) WHERE json_each.value = ?)")
		args = append(args, filter.TagID)
	}

	limit := filter.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	order := "created_at DESC, id DESC"
	if filter.Status == domain.StatusPublished {
		order = "published_at DESC, id DESC"
	}

	query := `SELECT ` + articleColumns + ` FROM articles WHERE ` +
		strings.Join(where, " AND ") + ` ORDER BY ` + order + ` LIMIT ? OFFSET ?`
	args = append(args, limit, offset)

	rows, err := s.sqlDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list articles: %w", err)
	}
	defer rows.Close()
	return collectArticles(rows)
}

// ListTranslations returns all language variants in a translation group.
func (s *Store) ListTranslations(ctx context.Context, translationGroupID string) ([]domain.Article, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	translationGroupID = strings.TrimSpace(translationGroupID)
	if translationGroupID == "" {
		return nil, fmt.Errorf("translation group id is required")
	}
	rows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT `+articleColumns+` FROM articles WHERE translation_group_id = ? ORDER BY language ASC`,
		translationGroupID,
	)
	if err != nil {
		return nil, fmt.Errorf("list translations: %w", err)
	}
	defer rows.Close()
	return collectArticles(rows)
}

// SlugExists reports whether a slug is taken within a language.
func (s *Store) SlugExists(ctx context.Context, language, slug string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if s == nil || s.sqlDB == nil {
		return false, fmt.Errorf("storage is not configured")
	}
	var found int
	row := s.sqlDB.QueryRowContext(
		ctx, "SELECT 1 FROM articles WHERE language = ? AND slug = ?", language, slug,
	)
	if err := row.Scan(&found); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("check slug: %w", err)
	}
	return true, nil
}

// SearchTitles performs a LIKE search over published titles. This is the
// degraded path used when the search index is unavailable.
func (s *Store) SearchTitles(ctx context.Context, query, language string, limit int) ([]domain.Article, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	if limit <= 0 || limit > 50 {
		limit = 20
	}
	pattern := "%" + strings.TrimSpace(query) + "%"
	where := "status = ? AND title LIKE ?"
	args := []any{string(domain.StatusPublished), pattern}
	if language != "" {
		where += " AND language = ?"
		args = append(args, language)
	}
	args = append(args, limit)

	rows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT `+articleColumns+` FROM articles WHERE `+where+` ORDER BY published_at DESC LIMIT ?`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("search titles: %w", err)
	}
	defer rows.Close()
	return collectArticles(rows)
}

// CountByStatus returns article counts per workflow status.
func (s *Store) CountByStatus(ctx context.Context) (map[domain.Status]int, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	rows, err := s.sqlDB.QueryContext(ctx, "SELECT status, COUNT(*) FROM articles GROUP BY status")
	if err != nil {
		return nil, fmt.Errorf("count by status: %w", err)
	}
	defer rows.Close()

	counts := map[domain.Status]int{}
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scan status count: %w", err)
		}
		counts[domain.Status(status)] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate status counts: %w", err)
	}
	return counts, nil
}

func encodeDocuments(article domain.Article) (blocks string, tags string, err error) {
	blockList := article.Blocks
	if blockList == nil {
		blockList = []domain.Block{}
	}
	blockJSON, err := json.Marshal(blockList)
	if err != nil {
		return "", "", fmt.Errorf("encode blocks: %w", err)
	}
	tagList := article.TagIDs
	if tagList == nil {
		tagList = []string{}
	}
	tagJSON, err := json.Marshal(tagList)
	if err != nil {
		return "", "", fmt.Errorf("encode tag ids: %w", err)
	}
	return string(blockJSON), string(tagJSON), nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanArticle(row rowScanner) (domain.Article, error) {
	var article domain.Article
	var blocks, tags, status string
	var premium int
	var publishedAt, createdAt, updatedAt int64
	err := row.Scan(
		&article.ID,
		&article.Slug,
		&article.Language,
		&article.TranslationGroupID,
		&article.Title,
		&article.Summary,
		&blocks,
		&article.AuthorID,
		&article.CategoryID,
		&tags,
		&premium,
		&status,
		&article.ReviewNote,
		&publishedAt,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Article{}, storage.ErrNotFound
		}
		return domain.Article{}, fmt.Errorf("scan article: %w", err)
	}
	if err := json.Unmarshal([]byte(blocks), &article.Blocks); err != nil {
		return domain.Article{}, fmt.Errorf("decode blocks: %w", err)
	}
	if err := json.Unmarshal([]byte(tags), &article.TagIDs); err != nil {
		return domain.Article{}, fmt.Errorf("decode tag ids: %w", err)
	}
	article.Premium = premium != 0
	article.Status = domain.Status(status)
	article.PublishedAt = fromMillis(publishedAt)
	article.CreatedAt = fromMillis(createdAt)
	article.UpdatedAt = fromMillis(updatedAt)
	return article, nil
}

func collectArticles(rows *sql.Rows) ([]domain.Article, error) {
	var articles []domain.Article
	for rows.Next() {
		article, err := scanArticle(rows)
		if err != nil {
			return nil, err
		}
		articles = append(articles, article)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate articles: %w", err)
	}
	return articles, nil
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
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
