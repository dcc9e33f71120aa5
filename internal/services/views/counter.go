// Package views counts article page views. Increments accumulate in
// memory and a background loop flushes them to storage, so the read path
// never writes to the database.
package views

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/meridianpress/meridian/internal/platform/timeouts"
	"github.com/meridianpress/meridian/internal/services/views/storage"
)

// DefaultFlushInterval is how often pending counts are written out.
const DefaultFlushInterval = 30 * time.Second

// Counter accumulates view increments in memory and periodically flushes
// them to the backing store.
type Counter struct {
	store    storage.ViewStore
	logger   *slog.Logger
	interval time.Duration

	mu      sync.Mutex
	pending map[string]int64
}

// Option configures a Counter.
type Option func(*Counter)

// WithFlushInterval overrides the flush cadence.
func WithFlushInterval(interval time.Duration) Option {
	return func(c *Counter) {
		if interval > 0 {
			c.interval = interval
		}
	}
}

// NewCounter builds a Counter over the given store.
func NewCounter(store storage.ViewStore, logger *slog.Logger, opts ...Option) *Counter {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Counter{
		store:    store,
		logger:   logger,
		interval: DefaultFlushInterval,
		pending:  make(map[string]int64),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Record notes one view of an article. It never blocks on storage.
func (c *Counter) Record(articleID string) {
	if articleID == "" {
		return
	}
	c.mu.Lock()
	c.pending[articleID]++
	c.mu.Unlock()
}

// Views returns the persisted total plus any pending in-memory delta for
// an article. A missing row counts as zero.
func (c *Counter) Views(ctx context.Context, articleID string) (int64, error) {
	stored, err := c.store.GetViews(ctx, articleID)
	if err != nil && err != storage.ErrNotFound {
		return 0, err
	}
	c.mu.Lock()
	delta := c.pending[articleID]
	c.mu.Unlock()
	return stored + delta, nil
}

// TopViewed returns the most viewed articles from storage. Pending deltas
// are ignored, which keeps the dashboard query cheap and at most one
// flush interval stale.
func (c *Counter) TopViewed(ctx context.Context, limit int) ([]storage.ArticleViews, error) {
	return c.store.TopViewed(ctx, limit)
}

// Forget drops pending and persisted counts for an article, used when the
// article itself is deleted.
func (c *Counter) Forget(ctx context.Context, articleID string) error {
	c.mu.Lock()
	delete(c.pending, articleID)
	c.mu.Unlock()
	return c.store.DeleteViews(ctx, articleID)
}

// Flush writes all pending deltas to storage. On failure the deltas are
// restored so no view is lost.
func (c *Counter) Flush(ctx context.Context) error {
	c.mu.Lock()
	if len(c.pending) == 0 {
		c.mu.Unlock()
		return nil
	}
	batch := c.pending
	c.pending = make(map[string]int64)
	c.mu.Unlock()

	if err := c.store.AddViews(ctx, batch); err != nil {
		c.mu.Lock()
		for articleID, delta := range batch {
			c.pending[articleID] += delta
		}
		c.mu.Unlock()
		return err
	}
	return nil
}

// Run flushes on a ticker until ctx is cancelled, then performs one final
// flush with a fresh timeout so shutdown does not drop counts.
func (c *Counter) Run(ctx context.Context) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			flushCtx, cancel := context.WithTimeout(context.Background(), timeouts.ViewFlush)
			if err := c.Flush(flushCtx); err != nil {
				c.logger.Error("final view flush failed", "error", err)
			}
			cancel()
			return
		case <-ticker.C:
			flushCtx, cancel := context.WithTimeout(ctx, timeouts.ViewFlush)
			if err := c.Flush(flushCtx); err != nil {
				c.logger.Error("view flush failed", "error", err)
			}
			cancel()
		}
	}
}
