// Package storage defines persistence for comments.
package storage

import (
	"context"
	"errors"

	"github.com/meridianpress/meridian/internal/services/comments/domain"
)

// ErrNotFound is returned when a comment does not exist.
var ErrNotFound = errors.New("comment not found")

// CommentStore persists comments.
type CommentStore interface {
	CreateComment(ctx context.Context, comment domain.Comment) error
	GetComment(ctx context.Context, commentID string) (domain.Comment, error)
	UpdateComment(ctx context.Context, comment domain.Comment) error
	ListByArticle(ctx context.Context, articleID string) ([]domain.Comment, error)
	ListByStatus(ctx context.Context, status domain.Status, limit int) ([]domain.Comment, error)
	DeleteByArticle(ctx context.Context, articleID string) error
	CountByStatus(ctx context.Context) (map[domain.Status]int, error)
}
