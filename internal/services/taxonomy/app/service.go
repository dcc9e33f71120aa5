// Package app manages the category tree and the tag set.
package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	apperrors "github.com/meridianpress/meridian/internal/platform/errors"
	"github.com/meridianpress/meridian/internal/platform/id"
	"github.com/meridianpress/meridian/internal/services/shared/authctx"
	"github.com/meridianpress/meridian/internal/services/taxonomy/domain"
	"github.com/meridianpress/meridian/internal/services/taxonomy/storage"
)

// UsageChecker reports whether articles still reference a category or tag.
// Hooked up to the content store at composition time.
type UsageChecker interface {
	CategoryInUse(ctx context.Context, categoryID string) (bool, error)
	TagInUse(ctx context.Context, tagID string) (bool, error)
}

// Service manages categories and tags.
type Service struct {
	store storage.TaxonomyStore
	usage UsageChecker
	now   func() time.Time
}

// New creates a taxonomy service. usage may be nil, in which case delete
// guards only consider child categories.
func New(store storage.TaxonomyStore, usage UsageChecker) *Service {
	return &Service{store: store, usage: usage, now: time.Now}
}

// CategoryInput carries the editable fields of a category. Names maps
// BCP 47 locale tags to display names; Position orders siblings.
type CategoryInput struct {
	Name        string
	Names       map[string]string
	Description string
	ParentID    string
	Position    int
}

func trimNames(names map[string]string) map[string]string {
	if len(names) == 0 {
		return nil
	}
	trimmed := make(map[string]string, len(names))
	for locale, name := range names {
		trimmed[strings.TrimSpace(locale)] = strings.TrimSpace(name)
	}
	return trimmed
}

// CategoryNode is a category with its children, for tree rendering.
type CategoryNode struct {
	Category domain.Category
	Children []*CategoryNode
}

// CreateCategory adds a node to the section tree.
func (s *Service) CreateCategory(ctx context.Context, actor authctx.Identity, input CategoryInput) (domain.Category, error) {
	if !actor.Role.CanModerate() {
		return domain.Category{}, apperrors.New(apperrors.CodePermissionDenied, "managing categories requires the editor role")
	}

	now := s.now().UTC()
	category := domain.Category{
		ID:          id.New(),
		Name:        strings.TrimSpace(input.Name),
		Names:       trimNames(input.Names),
		Description: strings.TrimSpace(input.Description),
		ParentID:    strings.TrimSpace(input.ParentID),
		Position:    input.Position,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := category.Validate(); err != nil {
		return domain.Category{}, err
	}
	category.Slug = domain.Slugify(category.Name)
	if category.Slug == "" {
		return domain.Category{}, apperrors.New(apperrors.CodeCategoryNameEmpty, "category name yields no slug")
	}

	if category.ParentID != "" {
		depth, err := s.depthOf(ctx, category.ParentID)
		if err != nil {
			return domain.Category{}, err
		}
		if depth+1 > domain.MaxDepth {
			return domain.Category{}, apperrors.WithMetadata(
				apperrors.CodeCategoryTooDeep,
				"category tree is limited in depth",
				map[string]string{"MaxDepth": fmt.Sprintf("%d", domain.MaxDepth)},
			)
		}
	}

	if err := s.store.CreateCategory(ctx, category); err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			return domain.Category{}, apperrors.New(apperrors.CodeCategorySlugConflict, "category slug already in use")
		}
		return domain.Category{}, fmt.Errorf("create category: %w", err)
	}
	return category, nil
}

// UpdateCategory renames or reparents a category. The slug is fixed at
// creation so published URLs stay stable.
func (s *Service) UpdateCategory(ctx context.Context, actor authctx.Identity, categoryID string, input CategoryInput) (domain.Category, error) {
	if !actor.Role.CanModerate() {
		return domain.Category{}, apperrors.New(apperrors.CodePermissionDenied, "managing categories requires the editor role")
	}
	category, err := s.loadCategory(ctx, categoryID)
	if err != nil {
		return domain.Category{}, err
	}

	category.Name = strings.TrimSpace(input.Name)
	category.Names = trimNames(input.Names)
	category.Description = strings.TrimSpace(input.Description)
	category.Position = input.Position
	newParent := strings.TrimSpace(input.ParentID)
	if err := category.Validate(); err != nil {
		return domain.Category{}, err
	}

	if newParent != category.ParentID {
		if newParent != "" {
			if err := s.checkReparent(ctx, category.ID, newParent); err != nil {
				return domain.Category{}, err
			}
		}
		category.ParentID = newParent
	}
	category.UpdatedAt = s.now().UTC()

	if err := s.store.UpdateCategory(ctx, category); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return domain.Category{}, apperrors.New(apperrors.CodeNotFound, "category not found")
		}
		return domain.Category{}, fmt.Errorf("update category: %w", err)
	}
	return category, nil
}

// DeleteCategory removes an empty leaf category. Categories with child
// nodes or referencing articles are protected.
func (s *Service) DeleteCategory(ctx context.Context, actor authctx.Identity, categoryID string) error {
	if !actor.Role.CanModerate() {
		return apperrors.New(apperrors.CodePermissionDenied, "managing categories requires the editor role")
	}
	category, err := s.loadCategory(ctx, categoryID)
	if err != nil {
		return err
	}

	children, err := s.store.CountChildren(ctx, category.ID)
	if err != nil {
		return fmt.Errorf("count children: %w", err)
	}
	if children > 0 {
		return apperrors.New(apperrors.CodeCategoryNotEmpty, "category has child categories")
	}
	if s.usage != nil {
		inUse, err := s.usage.CategoryInUse(ctx, category.ID)
		if err != nil {
			return fmt.Errorf("check category usage: %w", err)
		}
		if inUse {
			return apperrors.New(apperrors.CodeCategoryNotEmpty, "category still has articles")
		}
	}

	if err := s.store.DeleteCategory(ctx, category.ID); err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	return nil
}

// GetCategory loads one category by ID.
func (s *Service) GetCategory(ctx context.Context, categoryID string) (domain.Category, error) {
	return s.loadCategory(ctx, categoryID)
}

// GetCategoryBySlug loads one category by slug.
func (s *Service) GetCategoryBySlug(ctx context.Context, slug string) (domain.Category, error) {
	category, err := s.store.GetCategoryBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return domain.Category{}, apperrors.New(apperrors.CodeNotFound, "category not found")
		}
		return domain.Category{}, fmt.Errorf("load category: %w", err)
	}
	return category, nil
}

// Tree returns the full category tree. Siblings keep the store order:
// position first, then name.
func (s *Service) Tree(ctx context.Context) ([]*CategoryNode, error) {
	categories, err := s.store.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}

	nodes := make(map[string]*CategoryNode, len(categories))
	for _, category := range categories {
		nodes[category.ID] = &CategoryNode{Category: category}
	}
	var roots []*CategoryNode
	for _, category := range categories {
		node := nodes[category.ID]
		if parent, ok := nodes[category.ParentID]; ok {
			parent.Children = append(parent.Children, node)
		} else {
			roots = append(roots, node)
		}
	}
	return roots, nil
}

// EnsureTag finds a tag by its slugified name, creating it on first use.
func (s *Service) EnsureTag(ctx context.Context, actor authctx.Identity, name string) (domain.Tag, error) {
	if !actor.Role.CanAuthor() {
		return domain.Tag{}, apperrors.New(apperrors.CodePermissionDenied, "tagging requires the author role")
	}
	slug := domain.Slugify(name)
	if slug == "" {
		return domain.Tag{}, apperrors.New(apperrors.CodeTagSlugEmpty, "tag name yields no slug")
	}

	tag, err := s.store.GetTagBySlug(ctx, slug)
	if err == nil {
		return tag, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return domain.Tag{}, fmt.Errorf("load tag: %w", err)
	}

	tag = domain.Tag{
		ID:        id.New(),
		Slug:      slug,
		Name:      strings.TrimSpace(name),
		CreatedAt: s.now().UTC(),
	}
	if err := s.store.CreateTag(ctx, tag); err != nil {
		// Lost a race to another request creating the same tag.
		if errors.Is(err, storage.ErrAlreadyExists) {
			return s.store.GetTagBySlug(ctx, slug)
		}
		return domain.Tag{}, fmt.Errorf("create tag: %w", err)
	}
	return tag, nil
}

// GetTag loads one tag by ID.
func (s *Service) GetTag(ctx context.Context, tagID string) (domain.Tag, error) {
	tag, err := s.store.GetTag(ctx, tagID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return domain.Tag{}, apperrors.New(apperrors.CodeNotFound, "tag not found")
		}
		return domain.Tag{}, fmt.Errorf("load tag: %w", err)
	}
	return tag, nil
}

// ListTags returns every tag.
func (s *Service) ListTags(ctx context.Context) ([]domain.Tag, error) {
	tags, err := s.store.ListTags(ctx)
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	return tags, nil
}

// DeleteTag removes a tag not referenced by any article.
func (s *Service) DeleteTag(ctx context.Context, actor authctx.Identity, tagID string) error {
	if !actor.Role.CanModerate() {
		return apperrors.New(apperrors.CodePermissionDenied, "removing tags requires the editor role")
	}
	if s.usage != nil {
		inUse, err := s.usage.TagInUse(ctx, tagID)
		if err != nil {
			return fmt.Errorf("check tag usage: %w", err)
		}
		if inUse {
			return apperrors.New(apperrors.CodeCategoryNotEmpty, "tag still has articles")
		}
	}
	if err := s.store.DeleteTag(ctx, tagID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return apperrors.New(apperrors.CodeNotFound, "tag not found")
		}
		return fmt.Errorf("delete tag: %w", err)
	}
	return nil
}

func (s *Service) loadCategory(ctx context.Context, categoryID string) (domain.Category, error) {
	category, err := s.store.GetCategory(ctx, categoryID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return domain.Category{}, apperrors.New(apperrors.CodeNotFound, "category not found")
		}
		return domain.Category{}, fmt.Errorf("load category: %w", err)
	}
	return category, nil
}

// depthOf walks the parent chain and returns the node's depth, roots
// being depth 1.
func (s *Service) depthOf(ctx context.Context, categoryID string) (int, error) {
	depth := 0
	current := categoryID
	for current != "" {
		depth++
		if depth > domain.MaxDepth {
			return depth, nil
		}
		category, err := s.loadCategory(ctx, current)
		if err != nil {
			return 0, err
		}
		current = category.ParentID
	}
	return depth, nil
}

// checkReparent rejects moves that would create a cycle or push a
// subtree past the depth limit.
func (s *Service) checkReparent(ctx context.Context, categoryID, newParentID string) error {
	current := newParentID
	for current != "" {
		if current == categoryID {
			return apperrors.New(apperrors.CodeCategoryParentCycle, "category cannot contain itself")
		}
		category, err := s.loadCategory(ctx, current)
		if err != nil {
			return err
		}
		current = category.ParentID
	}

	parentDepth, err := s.depthOf(ctx, newParentID)
	if err != nil {
		return err
	}
	subtree, err := s.subtreeHeight(ctx, categoryID)
	if err != nil {
		return err
	}
	if parentDepth+subtree > domain.MaxDepth {
		return apperrors.WithMetadata(
			apperrors.CodeCategoryTooDeep,
			"move would exceed the category depth limit",
			map[string]string{"MaxDepth": fmt.Sprintf("%d", domain.MaxDepth)},
		)
	}
	return nil
}

// subtreeHeight returns the height of the subtree rooted at categoryID,
// a leaf having height 1.
func (s *Service) subtreeHeight(ctx context.Context, categoryID string) (int, error) {
	categories, err := s.store.ListCategories(ctx)
	if err != nil {
		return 0, fmt.Errorf("list categories: %w", err)
	}
	children := make(map[string][]string)
	for _, category := range categories {
		if category.ParentID != "" {
			children[category.ParentID] = append(children[category.ParentID], category.ID)
		}
	}
	var height func(string) int
	height = func(nodeID string) int {
		max := 0
		for _, child := range children[nodeID] {
			if h := height(child); h > max {
				max = h
			}
		}
		return max + 1
	}
	return height(categoryID), nil
}
