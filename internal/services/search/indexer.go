// Package search maintains a full-text index of published articles in
// Weaviate and serves BM25 queries against it. Indexing is best effort:
// publish and archive paths call the indexer without blocking on it, and
// readers fall back to title search when the index is unreachable.
package search

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-openapi/strfmt"
	"github.com/google/uuid"
	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/filters"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/graphql"
	"github.com/weaviate/weaviate/entities/models"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/meridianpress/meridian/internal/services/content/domain"
)

var tracer = otel.Tracer("meridianpress/search")

// ClassName is the Weaviate class holding indexed articles.
const ClassName = "Article"

// idNamespace seeds deterministic object IDs so re-indexing an article
// overwrites its previous document instead of duplicating it.
var idNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("meridian/articles"))

// Hit is one search result.
type Hit struct {
	ArticleID string
	Slug      string
	Language  string
	Title     string
	Summary   string
}

// Indexer talks to a Weaviate instance.
type Indexer struct {
	client *weaviate.Client
	logger *slog.Logger
}

// New builds an Indexer from a host like "localhost:8080".
func New(host, scheme string, logger *slog.Logger) (*Indexer, error) {
	if strings.TrimSpace(host) == "" {
		return nil, fmt.Errorf("search host is required")
	}
	if scheme == "" {
		scheme = "http"
	}
	if logger == nil {
		logger = slog.Default()
	}
	client, err := weaviate.NewClient(weaviate.Config{Host: host, Scheme: scheme})
	if err != nil {
		return nil, fmt.Errorf("create search client: %w", err)
	}
	return &Indexer{client: client, logger: logger}, nil
}

func articleSchema() *models.Class {
	indexFilterable := new(bool)
	*indexFilterable = true

	return &models.Class{
		Class:      ClassName,
		Vectorizer: "none",
		Properties: []*models.Property{
			{
				Name:            "articleId",
				DataType:        []string{"text"},
				IndexFilterable: indexFilterable,
				Tokenization:    "field",
			},
			{
				Name:            "slug",
				DataType:        []string{"text"},
				IndexFilterable: indexFilterable,
				Tokenization:    "field",
			},
			{
				Name:            "language",
				DataType:        []string{"text"},
				IndexFilterable: indexFilterable,
				Tokenization:    "field",
			},
			{
				Name:         "title",
				DataType:     []string{"text"},
				Tokenization: "word",
			},
			{
				Name:         "summary",
				DataType:     []string{"text"},
				Tokenization: "word",
			},
			{
				Name:         "body",
				DataType:     []string{"text"},
				Tokenization: "word",
			},
			{
				Name:            "categoryId",
				DataType:        []string{"text"},
				IndexFilterable: indexFilterable,
				Tokenization:    "field",
			},
		},
	}
}

// EnsureSchema creates the Article class if it does not exist yet.
func (ix *Indexer) EnsureSchema(ctx context.Context) error {
	_, err := ix.client.Schema().ClassGetter().WithClassName(ClassName).Do(ctx)
	if err == nil {
		return nil
	}
	if err := ix.client.Schema().ClassCreator().WithClass(articleSchema()).Do(ctx); err != nil {
		return fmt.Errorf("create search schema: %w", err)
	}
	ix.logger.Info("search schema created", "class", ClassName)
	return nil
}

// ObjectID returns the deterministic Weaviate object ID for an article.
func ObjectID(articleID string) string {
	return uuid.NewSHA1(idNamespace, []byte(articleID)).String()
}

// Properties maps an article onto the indexed document fields.
func Properties(article domain.Article) map[string]interface{} {
	return map[string]interface{}{
		"articleId":  article.ID,
		"slug":       article.Slug,
		"language":   article.Language,
		"title":      article.Title,
		"summary":    article.Summary,
		"body":       article.PlainText(),
		"categoryId": article.CategoryID,
	}
}

// Upsert indexes one published article, replacing any previous document
// for the same article.
func (ix *Indexer) Upsert(ctx context.Context, article domain.Article) error {
	ctx, span := tracer.Start(ctx, "search.upsert")
	defer span.End()
	span.SetAttributes(attribute.String("article.id", article.ID))

	objects := []*models.Object{{
		Class:      ClassName,
		ID:         strfmt.UUID(ObjectID(article.ID)),
		Properties: Properties(article),
	}}
	result, err := ix.client.Batch().ObjectsBatcher().WithObjects(objects...).Do(ctx)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("index article: %w", err)
	}
	for _, obj := range result {
		if obj.Result != nil && obj.Result.Errors != nil && len(obj.Result.Errors.Error) > 0 {
			return fmt.Errorf("index article: %s", obj.Result.Errors.Error[0].Message)
		}
	}
	return nil
}

// Delete removes an article's document from the index. Deleting an
// unindexed article is not an error.
func (ix *Indexer) Delete(ctx context.Context, articleID string) error {
	ctx, span := tracer.Start(ctx, "search.delete")
	defer span.End()
	span.SetAttributes(attribute.String("article.id", articleID))

	err := ix.client.Data().Deleter().
		WithClassName(ClassName).
		WithID(ObjectID(articleID)).
		Do(ctx)
	if err != nil {
		if strings.Contains(err.Error(), "404") {
			return nil
		}
		span.RecordError(err)
		return fmt.Errorf("remove article from index: %w", err)
	}
	return nil
}

// Query runs a BM25 search, optionally scoped to a language.
func (ix *Indexer) Query(ctx context.Context, query, language string, limit int) ([]Hit, error) {
	if limit <= 0 || limit > 50 {
		limit = 20
	}
	ctx, span := tracer.Start(ctx, "search.query")
	defer span.End()
	span.SetAttributes(
		attribute.String("search.language", language),
		attribute.Int("search.limit", limit),
	)

	fields := []graphql.Field{
		{Name: "articleId"},
		{Name: "slug"},
		{Name: "language"},
		{Name: "title"},
		{Name: "summary"},
	}

	builder := ix.client.GraphQL().Get().
		WithClassName(ClassName).
		WithFields(fields...).
		WithBM25(ix.client.GraphQL().Bm25ArgBuilder().WithQuery(query)).
		WithLimit(limit)

	if language != "" {
		builder = builder.WithWhere(filters.Where().
			WithPath([]string{"language"}).
			WithOperator(filters.Equal).
			WithValueString(language))
	}

	result, err := builder.Do(ctx)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("search query: %w", err)
	}
	if len(result.Errors) > 0 {
		return nil, fmt.Errorf("search query: %s", result.Errors[0].Message)
	}

	data, ok := result.Data["Get"].(map[string]interface{})
	if !ok {
		return nil, nil
	}
	objects, ok := data[ClassName].([]interface{})
	if !ok {
		return nil, nil
	}

	hits := make([]Hit, 0, len(objects))
	for _, obj := range objects {
		fields, ok := obj.(map[string]interface{})
		if !ok {
			continue
		}
		hits = append(hits, Hit{
			ArticleID: stringField(fields, "articleId"),
			Slug:      stringField(fields, "slug"),
			Language:  stringField(fields, "language"),
			Title:     stringField(fields, "title"),
			Summary:   stringField(fields, "summary"),
		})
	}
	return hits, nil
}

// Healthy reports whether the index answers within the given timeout.
func (ix *Indexer) Healthy(ctx context.Context, timeout time.Duration) bool {
	checkCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	ready, err := ix.client.Misc().ReadyChecker().Do(checkCtx)
	return err == nil && ready
}

func stringField(fields map[string]interface{}, key string) string {
	if value, ok := fields[key].(string); ok {
		return value
	}
	return ""
}
