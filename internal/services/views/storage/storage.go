// Package storage defines persistence for article view counts.
package storage

import (
	"context"
	"errors"
)

// ErrNotFound is returned when no view row exists for an article.
var ErrNotFound = errors.New("view count not found")

// ViewStore persists accumulated view counts. AddViews is additive so a
// flush of in-memory deltas never overwrites counts written by another
// process.
type ViewStore interface {
	AddViews(ctx context.Context, deltas map[string]int64) error
	GetViews(ctx context.Context, articleID string) (int64, error)
	TopViewed(ctx context.Context, limit int) ([]ArticleViews, error)
	DeleteViews(ctx context.Context, articleID string) error
}

// ArticleViews pairs an article with its persisted view total.
type ArticleViews struct {
	ArticleID string
	Views     int64
}
