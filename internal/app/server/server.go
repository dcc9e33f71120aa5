// Package server assembles the full platform runtime: storage, the
// application services, their cross-service adapters and the HTTP
// gateway.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/meridianpress/meridian/internal/platform/timeouts"
	adsapp "github.com/meridianpress/meridian/internal/services/ads/app"
	adsqlite "github.com/meridianpress/meridian/internal/services/ads/storage/sqlite"
	"github.com/meridianpress/meridian/internal/services/admin"
	"github.com/meridianpress/meridian/internal/services/cache"
	commentsapp "github.com/meridianpress/meridian/internal/services/comments/app"
	commentsqlite "github.com/meridianpress/meridian/internal/services/comments/storage/sqlite"
	contentapp "github.com/meridianpress/meridian/internal/services/content/app"
	contentdomain "github.com/meridianpress/meridian/internal/services/content/domain"
	contentstorage "github.com/meridianpress/meridian/internal/services/content/storage"
	contentsqlite "github.com/meridianpress/meridian/internal/services/content/storage/sqlite"
	"github.com/meridianpress/meridian/internal/services/gateway"
	"github.com/meridianpress/meridian/internal/services/search"
	subsapp "github.com/meridianpress/meridian/internal/services/subscription/app"
	subsqlite "github.com/meridianpress/meridian/internal/services/subscription/storage/sqlite"
	taxonomyapp "github.com/meridianpress/meridian/internal/services/taxonomy/app"
	taxonomysqlite "github.com/meridianpress/meridian/internal/services/taxonomy/storage/sqlite"
	userapp "github.com/meridianpress/meridian/internal/services/userhub/app"
	usersqlite "github.com/meridianpress/meridian/internal/services/userhub/storage/sqlite"
	"github.com/meridianpress/meridian/internal/services/userhub/token"
	"github.com/meridianpress/meridian/internal/services/views"
	viewsqlite "github.com/meridianpress/meridian/internal/services/views/storage/sqlite"
)

// RuntimeConfig carries everything Run needs to assemble the platform.
type RuntimeConfig struct {
	Port          int
	DataDir       string
	CacheDir      string
	SearchHost    string
	SearchScheme  string
	TokenIssuer   string
	TokenAudience string
	TokenSeed     string
	AdminEmail    string
	AdminPassword string
	CORSOrigins   []string
	FlushInterval time.Duration
	Logger        *slog.Logger
}

// searchAdapter bridges the Weaviate indexer to the content service's
// index interface.
type searchAdapter struct {
	indexer *search.Indexer
}

func (a searchAdapter) Upsert(ctx context.Context, article contentdomain.Article) error {
	return a.indexer.Upsert(ctx, article)
}

func (a searchAdapter) Delete(ctx context.Context, articleID string) error {
	return a.indexer.Delete(ctx, articleID)
}

func (a searchAdapter) Query(ctx context.Context, query, language string, limit int) ([]contentapp.SearchHit, error) {
	hits, err := a.indexer.Query(ctx, query, language, limit)
	if err != nil {
		return nil, err
	}
	converted := make([]contentapp.SearchHit, 0, len(hits))
	for _, hit := range hits {
		converted = append(converted, contentapp.SearchHit{
			ArticleID: hit.ArticleID,
			Slug:      hit.Slug,
			Language:  hit.Language,
			Title:     hit.Title,
			Summary:   hit.Summary,
		})
	}
	return converted, nil
}

// publishedChecker answers the comment service's article lookups from
// the content store.
type publishedChecker struct {
	store contentstorage.ArticleStore
}

func (c publishedChecker) ArticlePublished(ctx context.Context, articleID string) (bool, error) {
	article, err := c.store.GetArticle(ctx, articleID)
	if errors.Is(err, contentstorage.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return article.Status == contentdomain.StatusPublished, nil
}

// articleUsage guards taxonomy deletion against categories and tags
// still referenced by articles.
type articleUsage struct {
	store contentstorage.ArticleStore
}

func (u articleUsage) CategoryInUse(ctx context.Context, categoryID string) (bool, error) {
	articles, err := u.store.ListArticles(ctx, contentstorage.Filter{CategoryID: categoryID, Limit: 1})
	if err != nil {
		return false, err
	}
	return len(articles) > 0, nil
}

func (u articleUsage) TagInUse(ctx context.Context, tagID string) (bool, error) {
	articles, err := u.store.ListArticles(ctx, contentstorage.Filter{TagID: tagID, Limit: 1})
	if err != nil {
		return false, err
	}
	return len(articles) > 0, nil
}

type closer interface {
	Close() error
}

// Run assembles the platform and serves HTTP until ctx is canceled.
func Run(ctx context.Context, cfg RuntimeConfig) error {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(os.Stdout, nil))
	}

	if cfg.DataDir == "" {
		cfg.DataDir = "data"
	}
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	var closers []closer
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i].Close(); err != nil {
				logger.Error("close store", "error", err)
			}
		}
	}()

	userStore, err := usersqlite.Open(filepath.Join(cfg.DataDir, "users.db"))
	if err != nil {
		return fmt.Errorf("open user store: %w", err)
	}
	closers = append(closers, userStore)

	contentStore, err := contentsqlite.Open(filepath.Join(cfg.DataDir, "content.db"))
	if err != nil {
		return fmt.Errorf("open content store: %w", err)
	}
	closers = append(closers, contentStore)

	taxonomyStore, err := taxonomysqlite.Open(filepath.Join(cfg.DataDir, "taxonomy.db"))
	if err != nil {
		return fmt.Errorf("open taxonomy store: %w", err)
	}
	closers = append(closers, taxonomyStore)

	commentStore, err := commentsqlite.Open(filepath.Join(cfg.DataDir, "comments.db"))
	if err != nil {
		return fmt.Errorf("open comment store: %w", err)
	}
	closers = append(closers, commentStore)

	subStore, err := subsqlite.Open(filepath.Join(cfg.DataDir, "subscriptions.db"))
	if err != nil {
		return fmt.Errorf("open subscription store: %w", err)
	}
	closers = append(closers, subStore)

	adStore, err := adsqlite.Open(filepath.Join(cfg.DataDir, "ads.db"))
	if err != nil {
		return fmt.Errorf("open ad store: %w", err)
	}
	closers = append(closers, adStore)

	viewStore, err := viewsqlite.Open(filepath.Join(cfg.DataDir, "views.db"))
	if err != nil {
		return fmt.Errorf("open view store: %w", err)
	}
	closers = append(closers, viewStore)

	articleCache, err := cache.Open(cfg.CacheDir)
	if err != nil {
		return fmt.Errorf("open cache: %w", err)
	}
	closers = append(closers, articleCache)

	tokens, err := token.NewConfig(cfg.TokenIssuer, cfg.TokenAudience, cfg.TokenSeed)
	if err != nil {
		return fmt.Errorf("token config: %w", err)
	}

	counterOpts := []views.Option{}
	if cfg.FlushInterval > 0 {
		counterOpts = append(counterOpts, views.WithFlushInterval(cfg.FlushInterval))
	}
	counter := views.NewCounter(viewStore, logger, counterOpts...)
	go counter.Run(ctx)

	usersSvc := userapp.New(userStore, tokens)
	subsSvc := subsapp.New(subStore)
	commentsSvc := commentsapp.New(commentStore, publishedChecker{store: contentStore})

	contentOpts := []contentapp.Option{
		contentapp.WithCache(articleCache),
		contentapp.WithViews(counter),
		contentapp.WithCommentPurger(commentsSvc),
		contentapp.WithAccessChecker(subsSvc),
	}
	if cfg.SearchHost != "" {
		indexer, err := search.New(cfg.SearchHost, cfg.SearchScheme, logger)
		if err != nil {
			return fmt.Errorf("search indexer: %w", err)
		}
		schemaCtx, cancel := context.WithTimeout(ctx, timeouts.SearchIndex)
		if err := indexer.EnsureSchema(schemaCtx); err != nil {
			logger.Warn("search schema unavailable, title search fallback active", "error", err)
		} else {
			contentOpts = append(contentOpts, contentapp.WithSearchIndex(searchAdapter{indexer: indexer}))
		}
		cancel()
	}
	contentSvc := contentapp.New(contentStore, logger, contentOpts...)

	taxonomySvc := taxonomyapp.New(taxonomyStore, articleUsage{store: contentStore})
	adsSvc := adsapp.New(adStore)
	adminSvc := admin.New(contentSvc, commentsSvc, subsSvc, adsSvc, userStore, counter)

	if err := usersSvc.EnsureAdmin(ctx, cfg.AdminEmail, cfg.AdminPassword); err != nil {
		return fmt.Errorf("ensure admin: %w", err)
	}

	addr := net.JoinHostPort("", strconv.Itoa(cfg.Port))
	srv := gateway.New(addr, gateway.Services{
		Users:         usersSvc,
		Content:       contentSvc,
		Taxonomy:      taxonomySvc,
		Comments:      commentsSvc,
		Subscriptions: subsSvc,
		Ads:           adsSvc,
		Admin:         adminSvc,
	}, tokens, logger, gateway.WithCORSOrigins(cfg.CORSOrigins))

	return srv.Run(ctx)
}
