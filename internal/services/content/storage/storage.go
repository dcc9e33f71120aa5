// Package storage defines persistence contracts for article state.
package storage

import (
	"context"
	"errors"

	"github.com/meridianpress/meridian/internal/services/content/domain"
)

var (
	// ErrNotFound indicates a requested article record is missing.
	ErrNotFound = errors.New("record not found")
	// ErrAlreadyExists indicates a uniqueness-constrained article already exists.
	ErrAlreadyExists = errors.New("record already exists")
)

// Filter narrows article listings. Zero values mean "any".
type Filter struct {
	Status     domain.Status
	Language   string
	CategoryID string
	TagID      string
	AuthorID   string
	Limit      int
	Offset     int
}

// ArticleStore persists articles.
type ArticleStore interface {
	CreateArticle(ctx context.Context, article domain.Article) error
	GetArticle(ctx context.Context, articleID string) (domain.Article, error)
	GetArticleBySlug(ctx context.Context, language, slug string) (domain.Article, error)
	UpdateArticle(ctx context.Context, article domain.Article) error
	DeleteArticle(ctx context.Context, articleID string) error
	ListArticles(ctx context.Context, filter Filter) ([]domain.Article, error)
	ListTranslations(ctx context.Context, translationGroupID string) ([]domain.Article, error)
	SlugExists(ctx context.Context, language, slug string) (bool, error)
	SearchTitles(ctx context.Context, query, language string, limit int) ([]domain.Article, error)
	CountByStatus(ctx context.Context) (map[domain.Status]int, error)
}
