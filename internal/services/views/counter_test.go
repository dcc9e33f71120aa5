package views

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/meridianpress/meridian/internal/services/views/storage"
)

type fakeStore struct {
	mu     sync.Mutex
	counts map[string]int64
	fail   bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{counts: make(map[string]int64)}
}

func (f *fakeStore) AddViews(_ context.Context, deltas map[string]int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return fmt.Errorf("store unavailable")
	}
	for id, delta := range deltas {
		f.counts[id] += delta
	}
	return nil
}

func (f *fakeStore) GetViews(_ context.Context, articleID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	views, ok := f.counts[articleID]
	if !ok {
		return 0, storage.ErrNotFound
	}
	return views, nil
}

func (f *fakeStore) TopViewed(_ context.Context, limit int) ([]storage.ArticleViews, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []storage.ArticleViews
	for id, views := range f.counts {
		result = append(result, storage.ArticleViews{ArticleID: id, Views: views})
	}
	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (f *fakeStore) DeleteViews(_ context.Context, articleID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.counts, articleID)
	return nil
}

func TestCounterRecordAndFlush(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	counter := NewCounter(store, nil)

	for i := 0; i < 5; i++ {
		counter.Record("art-1")
	}
	counter.Record("art-2")

	views, err := counter.Views(context.Background(), "art-1")
	if err != nil {
		t.Fatalf("Views() error = %v", err)
	}
	if views != 5 {
		t.Fatalf("Views() before flush = %d, want 5", views)
	}

	if err := counter.Flush(context.Background()); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}
	if got := store.counts["art-1"]; got != 5 {
		t.Fatalf("stored views = %d, want 5", got)
	}
	if got := store.counts["art-2"]; got != 1 {
		t.Fatalf("stored views = %d, want 1", got)
	}

	views, err = counter.Views(context.Background(), "art-1")
	if err != nil {
		t.Fatalf("Views() error = %v", err)
	}
	if views != 5 {
		t.Fatalf("Views() after flush = %d, want 5", views)
	}
}

func TestCounterFlushFailureKeepsDeltas(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	counter := NewCounter(store, nil)

	counter.Record("art-1")
	counter.Record("art-1")

	store.mu.Lock()
	store.fail = true
	store.mu.Unlock()

	if err := counter.Flush(context.Background()); err == nil {
		t.Fatal("Flush() expected error when store fails")
	}

	store.mu.Lock()
	store.fail = false
	store.mu.Unlock()

	if err := counter.Flush(context.Background()); err != nil {
		t.Fatalf("Flush() retry error = %v", err)
	}
	if got := store.counts["art-1"]; got != 2 {
		t.Fatalf("stored views after retry = %d, want 2", got)
	}
}

func TestCounterConcurrentRecord(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	counter := NewCounter(store, nil)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				counter.Record("art-1")
			}
		}()
	}
	wg.Wait()

	if err := counter.Flush(context.Background()); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}
	if got := store.counts["art-1"]; got != 1000 {
		t.Fatalf("stored views = %d, want 1000", got)
	}
}

func TestCounterForget(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	counter := NewCounter(store, nil)

	counter.Record("art-1")
	if err := counter.Flush(context.Background()); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}
	counter.Record("art-1")

	if err := counter.Forget(context.Background(), "art-1"); err != nil {
		t.Fatalf("Forget() error = %v", err)
	}
	views, err := counter.Views(context.Background(), "art-1")
	if err != nil {
		t.Fatalf("Views() error = %v", err)
	}
	if views != 0 {
		t.Fatalf("Views() after Forget = %d, want 0", views)
	}
}
