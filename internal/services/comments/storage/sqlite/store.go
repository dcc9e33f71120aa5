// Package sqlite provides a SQLite-backed comment store.
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
	"github.com/meridianpress/meridian/internal/services/comments/domain"
	"github.com/meridianpress/meridian/internal/services/comments/storage"
	"github.com/meridianpress/meridian/internal/services/comments/storage/sqlite/migrations"

	_ "modernc.org/sqlite"
)

// Store persists comments in SQLite.
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

// Open opens a SQLite comment store and applies embedded migrations.
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

const commentColumns = `id, article_id, author_id, parent_id, body, status, created_at, updated_at`

// CreateComment inserts one comment record.
func (s *Store) CreateComment(ctx context.Context, comment domain.Comment) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(comment.ID) == "" {
		return fmt.Errorf("comment id is required")
	}
	createdAt := comment.CreatedAt.UTC()
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	updatedAt := comment.UpdatedAt.UTC()
	if updatedAt.IsZero() {
		updatedAt = createdAt
	}

	_, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO comments (`+commentColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		comment.ID,
		comment.ArticleID,
		comment.AuthorID,
		comment.ParentID,
		comment.Body,
		string(comment.Status),
		toMillis(createdAt),
		toMillis(updatedAt),
	)
	if err != nil {
		return fmt.Errorf("create comment: %w", err)
	}
	return nil
}

// GetComment returns one comment by ID.
func (s *Store) GetComment(ctx context.Context, commentID string) (domain.Comment, error) {
	if err := ctx.Err(); err != nil {
		return domain.Comment{}, err
	}
	if s == nil || s.sqlDB == nil {
		return domain.Comment{}, fmt.Errorf("storage is not configured")
	}
	row := s.sqlDB.QueryRowContext(
		ctx, `SELECT `+commentColumns+` FROM comments WHERE id = ?`, strings.TrimSpace(commentID),
	)
	return scanComment(row)
}

// UpdateComment overwrites one comment record.
func (s *Store) UpdateComment(ctx context.Context, comment domain.Comment) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	result, err := s.sqlDB.ExecContext(
		ctx,
		`UPDATE comments SET body = ?, status = ?, updated_at = ? WHERE id = ?`,
		comment.Body,
		string(comment.Status),
		toMillis(time.Now()),
		comment.ID,
	)
	if err != nil {
		return fmt.Errorf("update comment: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update comment rows affected: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// ListByArticle returns every comment on an article, oldest first.
func (s *Store) ListByArticle(ctx context.Context, articleID string) ([]domain.Comment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	rows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT `+commentColumns+` FROM comments WHERE article_id = ? ORDER BY created_at ASC, id ASC`,
		strings.TrimSpace(articleID),
	)
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	defer rows.Close()
	return collectComments(rows)
}

// ListByStatus returns comments in one moderation state, oldest first.
func (s *Store) ListByStatus(ctx context.Context, status domain.Status, limit int) ([]domain.Comment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	rows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT `+commentColumns+` FROM comments WHERE status = ? ORDER BY created_at ASC, id ASC LIMIT ?`,
		string(status), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list comments by status: %w", err)
	}
	defer rows.Close()
	return collectComments(rows)
}

// DeleteByArticle removes every comment on an article.
func (s *Store) DeleteByArticle(ctx context.Context, articleID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	_, err := s.sqlDB.ExecContext(
		ctx, `DELETE FROM comments WHERE article_id = ?`, strings.TrimSpace(articleID),
	)
	if err != nil {
		return fmt.Errorf("delete comments: %w", err)
	}
	return nil
}

// CountByStatus returns comment counts per moderation state.
func (s *Store) CountByStatus(ctx context.Context) (map[domain.Status]int, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	rows, err := s.sqlDB.QueryContext(ctx, "SELECT status, COUNT(*) FROM comments GROUP BY status")
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

type rowScanner interface {
	Scan(dest ...any) error
}

func scanComment(row rowScanner) (domain.Comment, error) {
	var comment domain.Comment
	var status string
	var createdAt, updatedAt int64
	err := row.Scan(
		&comment.ID,
		&comment.ArticleID,
		&comment.AuthorID,
		&comment.ParentID,
		&comment.Body,
		&status,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Comment{}, storage.ErrNotFound
		}
		return domain.Comment{}, fmt.Errorf("scan comment: %w", err)
	}
	comment.Status = domain.Status(status)
	comment.CreatedAt = fromMillis(createdAt)
	comment.UpdatedAt = fromMillis(updatedAt)
	return comment, nil
}

func collectComments(rows *sql.Rows) ([]domain.Comment, error) {
	var comments []domain.Comment
	for rows.Next() {
		comment, err := scanComment(rows)
		if err != nil {
			return nil, err
		}
		comments = append(comments, comment)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate comments: %w", err)
	}
	return comments, nil
}
