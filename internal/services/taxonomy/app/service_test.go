package app

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	apperrors "github.com/meridianpress/meridian/internal/platform/errors"
	"github.com/meridianpress/meridian/internal/services/shared/authctx"
	"github.com/meridianpress/meridian/internal/services/taxonomy/domain"
	"github.com/meridianpress/meridian/internal/services/taxonomy/storage/sqlite"
	userdomain "github.com/meridianpress/meridian/internal/services/userhub/domain"
)

var (
	author = authctx.Identity{UserID: "user-author", Role: userdomain.RoleAuthor}
	editor = authctx.Identity{UserID: "user-editor", Role: userdomain.RoleEditor}
	reader = authctx.Identity{UserID: "user-reader", Role: userdomain.RoleReader}
)

type fakeUsage struct {
	categories map[string]bool
	tags       map[string]bool
}

func (f *fakeUsage) CategoryInUse(_ context.Context, categoryID string) (bool, error) {
	return f.categories[categoryID], nil
}

func (f *fakeUsage) TagInUse(_ context.Context, tagID string) (bool, error) {
	return f.tags[tagID], nil
}

func newTestService(t *testing.T, usage UsageChecker) *Service {
	t.Helper()
	store, err := sqlite.Open(filepath.Join(t.TempDir(), "taxonomy.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("close store: %v", err)
		}
	})
	return New(store, usage)
}

func hasCode(err error, code apperrors.Code) bool {
	return errors.Is(err, apperrors.New(code, ""))
}

func TestCreateCategory(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, nil)
	ctx := context.Background()

	category, err := svc.CreateCategory(ctx, editor, CategoryInput{Name: "World News"})
	if err != nil {
		t.Fatalf("CreateCategory() error = %v", err)
	}
	if category.Slug != "world-news" {
		t.Fatalf("slug = %q, want world-news", category.Slug)
	}

	if _, err := svc.CreateCategory(ctx, author, CategoryInput{Name: "Tech"}); !hasCode(err, apperrors.CodePermissionDenied) {
		t.Fatalf("CreateCategory() as author error = %v, want permission denied", err)
	}

	if _, err := svc.CreateCategory(ctx, editor, CategoryInput{Name: "World News"}); !hasCode(err, apperrors.CodeCategorySlugConflict) {
		t.Fatalf("CreateCategory() duplicate error = %v, want slug conflict", err)
	}
}

func TestCategoryDepthLimit(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, nil)
	ctx := context.Background()

	root, err := svc.CreateCategory(ctx, editor, CategoryInput{Name: "Sports"})
	if err != nil {
		t.Fatalf("CreateCategory() root error = %v", err)
	}
	child, err := svc.CreateCategory(ctx, editor, CategoryInput{Name: "Football", ParentID: root.ID})
	if err != nil {
		t.Fatalf("CreateCategory() child error = %v", err)
	}
	leaf, err := svc.CreateCategory(ctx, editor, CategoryInput{Name: "Premier League", ParentID: child.ID})
	if err != nil {
		t.Fatalf("CreateCategory() leaf error = %v", err)
	}

	if _, err := svc.CreateCategory(ctx, editor, CategoryInput{Name: "Transfers", ParentID: leaf.ID}); !hasCode(err, apperrors.CodeCategoryTooDeep) {
		t.Fatalf("CreateCategory() too deep error = %v, want too deep", err)
	}
}

func TestCategoryReparent(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, nil)
	ctx := context.Background()

	parent, err := svc.CreateCategory(ctx, editor, CategoryInput{Name: "Culture"})
	if err != nil {
		t.Fatalf("CreateCategory() error = %v", err)
	}
	child, err := svc.CreateCategory(ctx, editor, CategoryInput{Name: "Film", ParentID: parent.ID})
	if err != nil {
		t.Fatalf("CreateCategory() error = %v", err)
	}

	// Moving a parent under its own child must fail.
	if _, err := svc.UpdateCategory(ctx, editor, parent.ID, CategoryInput{Name: "Culture", ParentID: child.ID}); !hasCode(err, apperrors.CodeCategoryParentCycle) {
		t.Fatalf("UpdateCategory() cycle error = %v, want cycle", err)
	}

	other, err := svc.CreateCategory(ctx, editor, CategoryInput{Name: "Lifestyle"})
	if err != nil {
		t.Fatalf("CreateCategory() error = %v", err)
	}
	moved, err := svc.UpdateCategory(ctx, editor, child.ID, CategoryInput{Name: "Film", ParentID: other.ID})
	if err != nil {
		t.Fatalf("UpdateCategory() move error = %v", err)
	}
	if moved.ParentID != other.ID {
		t.Fatalf("parent = %q, want %q", moved.ParentID, other.ID)
	}
}

func TestDeleteCategoryGuards(t *testing.T) {
	t.Parallel()

	usage := &fakeUsage{categories: map[string]bool{}, tags: map[string]bool{}}
	svc := newTestService(t, usage)
	ctx := context.Background()

	parent, err := svc.CreateCategory(ctx, editor, CategoryInput{Name: "Business"})
	if err != nil {
		t.Fatalf("CreateCategory() error = %v", err)
	}
	child, err := svc.CreateCategory(ctx, editor, CategoryInput{Name: "Markets", ParentID: parent.ID})
	if err != nil {
		t.Fatalf("CreateCategory() error = %v", err)
	}

	if err := svc.DeleteCategory(ctx, editor, parent.ID); !hasCode(err, apperrors.CodeCategoryNotEmpty) {
		t.Fatalf("DeleteCategory() with children error = %v, want not empty", err)
	}

	usage.categories[child.ID] = true
	if err := svc.DeleteCategory(ctx, editor, child.ID); !hasCode(err, apperrors.CodeCategoryNotEmpty) {
		t.Fatalf("DeleteCategory() in use error = %v, want not empty", err)
	}

	usage.categories[child.ID] = false
	if err := svc.DeleteCategory(ctx, editor, child.ID); err != nil {
		t.Fatalf("DeleteCategory() error = %v", err)
	}
	if err := svc.DeleteCategory(ctx, editor, parent.ID); err != nil {
		t.Fatalf("DeleteCategory() parent error = %v", err)
	}
}

func TestTree(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, nil)
	ctx := context.Background()

	root, err := svc.CreateCategory(ctx, editor, CategoryInput{Name: "Science"})
	if err != nil {
		t.Fatalf("CreateCategory() error = %v", err)
	}
	if _, err := svc.CreateCategory(ctx, editor, CategoryInput{Name: "Physics", ParentID: root.ID}); err != nil {
		t.Fatalf("CreateCategory() error = %v", err)
	}
	if _, err := svc.CreateCategory(ctx, editor, CategoryInput{Name: "Biology", ParentID: root.ID}); err != nil {
		t.Fatalf("CreateCategory() error = %v", err)
	}

	tree, err := svc.Tree(ctx)
	if err != nil {
		t.Fatalf("Tree() error = %v", err)
	}
	if len(tree) != 1 || tree[0].Category.ID != root.ID {
		t.Fatalf("tree roots = %+v, want single science root", tree)
	}
	if len(tree[0].Children) != 2 {
		t.Fatalf("children = %d, want 2", len(tree[0].Children))
	}
}

func TestCategoryLocalizedNames(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, nil)
	ctx := context.Background()

	category, err := svc.CreateCategory(ctx, editor, CategoryInput{
		Name:  "Economy",
		Names: map[string]string{"pt-BR": "Economia", "es-ES": "Economía"},
	})
	if err != nil {
		t.Fatalf("CreateCategory() error = %v", err)
	}

	loaded, err := svc.GetCategory(ctx, category.ID)
	if err != nil {
		t.Fatalf("GetCategory() error = %v", err)
	}
	if loaded.NameIn("pt-BR") != "Economia" {
		t.Fatalf("pt-BR name = %q, want Economia", loaded.NameIn("pt-BR"))
	}
	if loaded.NameIn("en-US") != "Economy" {
		t.Fatalf("fallback name = %q, want Economy", loaded.NameIn("en-US"))
	}

	blank := CategoryInput{Name: "Travel", Names: map[string]string{"pt-BR": "  "}}
	if _, err := svc.CreateCategory(ctx, editor, blank); !hasCode(err, apperrors.CodeCategoryNameEmpty) {
		t.Fatalf("CreateCategory() blank localized name error = %v, want name empty", err)
	}
}

func TestTreeOrdersByPosition(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, nil)
	ctx := context.Background()

	// Created out of order on purpose; position controls navigation.
	if _, err := svc.CreateCategory(ctx, editor, CategoryInput{Name: "Opinion", Position: 3}); err != nil {
		t.Fatalf("CreateCategory() error = %v", err)
	}
	if _, err := svc.CreateCategory(ctx, editor, CategoryInput{Name: "Politics", Position: 1}); err != nil {
		t.Fatalf("CreateCategory() error = %v", err)
	}
	sports, err := svc.CreateCategory(ctx, editor, CategoryInput{Name: "Sports", Position: 2})
	if err != nil {
		t.Fatalf("CreateCategory() error = %v", err)
	}

	tree, err := svc.Tree(ctx)
	if err != nil {
		t.Fatalf("Tree() error = %v", err)
	}
	got := make([]string, 0, len(tree))
	for _, node := range tree {
		got = append(got, node.Category.Name)
	}
	if len(got) != 3 || got[0] != "Politics" || got[1] != "Sports" || got[2] != "Opinion" {
		t.Fatalf("root order = %v, want [Politics Sports Opinion]", got)
	}

	// Repositioning moves the node.
	if _, err := svc.UpdateCategory(ctx, editor, sports.ID, CategoryInput{Name: "Sports", Position: 0}); err != nil {
		t.Fatalf("UpdateCategory() error = %v", err)
	}
	tree, err = svc.Tree(ctx)
	if err != nil {
		t.Fatalf("Tree() error = %v", err)
	}
	if tree[0].Category.Name != "Sports" {
		t.Fatalf("first root = %q, want Sports", tree[0].Category.Name)
	}
}

func TestEnsureTag(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, nil)
	ctx := context.Background()

	first, err := svc.EnsureTag(ctx, author, "Climate Change")
	if err != nil {
		t.Fatalf("EnsureTag() error = %v", err)
	}
	if first.Slug != "climate-change" {
		t.Fatalf("slug = %q, want climate-change", first.Slug)
	}

	second, err := svc.EnsureTag(ctx, author, "  climate  change ")
	if err != nil {
		t.Fatalf("EnsureTag() repeat error = %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("EnsureTag() created duplicate: %q vs %q", second.ID, first.ID)
	}

	if _, err := svc.EnsureTag(ctx, reader, "Politics"); !hasCode(err, apperrors.CodePermissionDenied) {
		t.Fatalf("EnsureTag() as reader error = %v, want permission denied", err)
	}
	if _, err := svc.EnsureTag(ctx, author, "!!!"); !hasCode(err, apperrors.CodeTagSlugEmpty) {
		t.Fatalf("EnsureTag() empty slug error = %v, want tag slug empty", err)
	}
}

func TestDeleteTag(t *testing.T) {
	t.Parallel()

	usage := &fakeUsage{categories: map[string]bool{}, tags: map[string]bool{}}
	svc := newTestService(t, usage)
	ctx := context.Background()

	tag, err := svc.EnsureTag(ctx, author, "Elections")
	if err != nil {
		t.Fatalf("EnsureTag() error = %v", err)
	}

	usage.tags[tag.ID] = true
	if err := svc.DeleteTag(ctx, editor, tag.ID); !hasCode(err, apperrors.CodeCategoryNotEmpty) {
		t.Fatalf("DeleteTag() in use error = %v, want not empty", err)
	}

	usage.tags[tag.ID] = false
	if err := svc.DeleteTag(ctx, editor, tag.ID); err != nil {
		t.Fatalf("DeleteTag() error = %v", err)
	}

	tags, err := svc.ListTags(ctx)
	if err != nil {
		t.Fatalf("ListTags() error = %v", err)
	}
	if len(tags) != 0 {
		t.Fatalf("tags = %+v, want empty", tags)
	}
}

func TestTagSlugNormalization(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		want string
	}{
		{"Hello World", "hello-world"},
		{"  Trim Me  ", "trim-me"},
		{"CamelCase", "camelcase"},
		{"a--b", "a-b"},
	}
	for _, tt := range tests {
		if got := domain.Slugify(tt.name); got != tt.want {
			t.Errorf("Slugify(%q) = %q, want %q", tt.name, got, tt.want)
		}
	}
}
