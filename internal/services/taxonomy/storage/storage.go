// Package storage defines persistence for categories and tags.
package storage

import (
	"context"
	"errors"

	"github.com/meridianpress/meridian/internal/services/taxonomy/domain"
)

// Sentinel errors shared by taxonomy store implementations.
var (
	ErrNotFound      = errors.New("taxonomy record not found")
	ErrAlreadyExists = errors.New("taxonomy record already exists")
)

// TaxonomyStore persists the category tree and the tag set.
type TaxonomyStore interface {
	CreateCategory(ctx context.Context, category domain.Category) error
	GetCategory(ctx context.Context, categoryID string) (domain.Category, error)
	GetCategoryBySlug(ctx context.Context, slug string) (domain.Category, error)
	UpdateCategory(ctx context.Context, category domain.Category) error
	DeleteCategory(ctx context.Context, categoryID string) error
	ListCategories(ctx context.Context) ([]domain.Category, error)
	CountChildren(ctx context.Context, categoryID string) (int, error)

	CreateTag(ctx context.Context, tag domain.Tag) error
	GetTag(ctx context.Context, tagID string) (domain.Tag, error)
	GetTagBySlug(ctx context.Context, slug string) (domain.Tag, error)
	ListTags(ctx context.Context) ([]domain.Tag, error)
	DeleteTag(ctx context.Context, tagID string) error
}
