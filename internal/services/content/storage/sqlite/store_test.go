package sqlite

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/meridianpress/meridian/internal/services/content/domain"
	"github.com/meridianpress/meridian/internal/services/content/storage"
)

func openTempStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "content.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func sampleArticle(id, slug string) domain.Article {
	return domain.Article{
		ID:                 id,
		Slug:               slug,
		Language:           "en-US",
		TranslationGroupID: "group-" + id,
		Title:              "Title " + id,
		Summary:            "Summary",
		Blocks: []domain.Block{
			{Type: domain.BlockParagraph, Data: json.RawMessage(`{"text":"body"}`)},
		},
		AuthorID:   "author-1",
		CategoryID: "cat-1",
		TagIDs:     []string{"tag-1", "tag-2"},
		Status:     domain.StatusDraft,
	}
}

func TestCreateGetArticleRoundTrip(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	input := sampleArticle("art-1", "title-art-1")
	if err := store.CreateArticle(context.Background(), input); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := store.GetArticle(context.Background(), "art-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Title != input.Title || got.Slug != input.Slug {
		t.Fatalf("round trip mismatch: %+v", got)
	}
	if len(got.Blocks) != 1 || got.Blocks[0].Type != domain.BlockParagraph {
		t.Fatalf("blocks mismatch: %+v", got.Blocks)
	}
	if len(got.TagIDs) != 2 {
		t.Fatalf("tag ids = %v", got.TagIDs)
	}

	bySlug, err := store.GetArticleBySlug(context.Background(), "en-US", "title-art-1")
	if err != nil {
		t.Fatalf("get by slug: %v", err)
	}
	if bySlug.ID != "art-1" {
		t.Fatalf("by slug id = %q", bySlug.ID)
	}
}

func TestCreateArticleSlugConflictPerLanguage(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	if err := store.CreateArticle(context.Background(), sampleArticle("art-1", "shared")); err != nil {
		t.Fatalf("create: %v", err)
	}
	dup := sampleArticle("art-2", "shared")
	if err := store.CreateArticle(context.Background(), dup); !errors.Is(err, storage.ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}

	// Same slug in another language is fine.
	other := sampleArticle("art-3", "shared")
	other.Language = "pt-BR"
	if err := store.CreateArticle(context.Background(), other); err != nil {
		t.Fatalf("create other language: %v", err)
	}
}

func TestListArticlesFilters(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	published := sampleArticle("art-1", "one")
	published.Status = domain.StatusPublished
	published.PublishedAt = time.Now().UTC()
	draft := sampleArticle("art-2", "two")
	draft.AuthorID = "author-2"
	draft.TagIDs = []string{"tag-9"}
	for _, a := range []domain.Article{published, draft} {
		if err := store.CreateArticle(context.Background(), a); err != nil {
			t.Fatalf("create %s: %v", a.ID, err)
		}
	}

	got, err := store.ListArticles(context.Background(), storage.Filter{Status: domain.StatusPublished})
	if err != nil {
		t.Fatalf("list published: %v", err)
	}
	if len(got) != 1 || got[0].ID != "art-1" {
		t.Fatalf("published = %+v", got)
	}

	got, err = store.ListArticles(context.Background(), storage.Filter{AuthorID: "author-2"})
	if err != nil {
		t.Fatalf("list by author: %v", err)
	}
	if len(got) != 1 || got[0].ID != "art-2" {
		t.Fatalf("by author = %+v", got)
	}

	got, err = store.ListArticles(context.Background(), storage.Filter{TagID: "tag-9"})
	if err != nil {
		t.Fatalf("list by tag: %v", err)
	}
	if len(got) != 1 || got[0].ID != "art-2" {
		t.Fatalf("by tag = %+v", got)
	}
}

func TestListTranslations(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	en := sampleArticle("art-1", "story")
	en.TranslationGroupID = "group-x"
	pt := sampleArticle("art-2", "historia")
	pt.TranslationGroupID = "group-x"
	pt.Language = "pt-BR"
	for _, a := range []domain.Article{en, pt} {
		if err := store.CreateArticle(context.Background(), a); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	got, err := store.ListTranslations(context.Background(), "group-x")
	if err != nil {
		t.Fatalf("translations: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
}

func TestUpdateAndDeleteArticle(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	article := sampleArticle("art-1", "one")
	if err := store.CreateArticle(context.Background(), article); err != nil {
		t.Fatalf("create: %v", err)
	}

	article.Title = "Updated"
	article.Status = domain.StatusPending
	if err := store.UpdateArticle(context.Background(), article); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, err := store.GetArticle(context.Background(), "art-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Title != "Updated" || got.Status != domain.StatusPending {
		t.Fatalf("update mismatch: %+v", got)
	}

	if err := store.DeleteArticle(context.Background(), "art-1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.GetArticle(context.Background(), "art-1"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := store.DeleteArticle(context.Background(), "art-1"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("double delete should be ErrNotFound, got %v", err)
	}
}

func TestSlugExists(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	if err := store.CreateArticle(context.Background(), sampleArticle("art-1", "taken")); err != nil {
		t.Fatalf("create: %v", err)
	}
	exists, err := store.SlugExists(context.Background(), "en-US", "taken")
	if err != nil {
		t.Fatalf("slug exists: %v", err)
	}
	if !exists {
		t.Fatal("expected slug to exist")
	}
	exists, err = store.SlugExists(context.Background(), "en-US", "free")
	if err != nil {
		t.Fatalf("slug exists: %v", err)
	}
	if exists {
		t.Fatal("expected slug to be free")
	}
}

func TestSearchTitlesPublishedOnly(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	published := sampleArticle("art-1", "election-night")
	published.Title = "Election night results"
	published.Status = domain.StatusPublished
	published.PublishedAt = time.Now().UTC()
	draft := sampleArticle("art-2", "election-draft")
	draft.Title = "Election draft"
	for _, a := range []domain.Article{published, draft} {
		if err := store.CreateArticle(context.Background(), a); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	got, err := store.SearchTitles(context.Background(), "Election", "en-US", 10)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(got) != 1 || got[0].ID != "art-1" {
		t.Fatalf("search results = %+v", got)
	}
}

func TestCountByStatus(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	a := sampleArticle("art-1", "one")
	b := sampleArticle("art-2", "two")
	b.Status = domain.StatusPublished
	for _, article := range []domain.Article{a, b} {
		if err := store.CreateArticle(context.Background(), article); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	counts, err := store.CountByStatus(context.Background())
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if counts[domain.StatusDraft] != 1 || counts[domain.StatusPublished] != 1 {
		t.Fatalf("counts = %v", counts)
	}
}
