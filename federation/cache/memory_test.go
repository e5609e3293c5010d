package cache_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/n9te9/federation-core/federation/cache"
)

func TestMemoryCache_SetGet(t *testing.T) {
	c := cache.NewMemoryCache()
	ctx := context.Background()

	entry := cache.Entry{Body: []byte(`{"id":"1"}`)}
	if err := c.Set(ctx, 42, entry, time.Minute); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	got, ok, err := c.Get(ctx, 42)
	if err != nil || !ok {
		t.Fatalf("expected cache hit, got ok=%v err=%v", ok, err)
	}
	if string(got.Body) != `{"id":"1"}` {
		t.Errorf("unexpected body: %s", got.Body)
	}
}

func TestMemoryCache_Expiry(t *testing.T) {
	c := cache.NewMemoryCache()
	ctx := context.Background()

	entry := cache.Entry{Body: []byte("x"), StoredAt: time.Now().Add(-time.Hour)}
	if err := c.Set(ctx, 1, entry, time.Millisecond); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	if _, ok, _ := c.Get(ctx, 1); ok {
		t.Error("expected expired entry not to be returned")
	}
}

func TestMemoryCache_GetOrFetch_Dedup(t *testing.T) {
	c := cache.NewMemoryCache()
	ctx := context.Background()

	var calls int64
	fetch := func(ctx context.Context) (cache.Entry, error) {
		atomic.AddInt64(&calls, 1)
		time.Sleep(10 * time.Millisecond)
		return cache.Entry{
			Body:         []byte("fetched"),
			CacheControl: cache.CacheControl{},
		}, nil
	}

	results := make(chan cache.Entry, 5)
	for i := 0; i < 5; i++ {
		go func() {
			entry, err := c.GetOrFetch(ctx, 7, fetch)
			if err != nil {
				t.Error(err)
				return
			}
			results <- entry
		}()
	}
	for i := 0; i < 5; i++ {
		<-results
	}

	if got := atomic.LoadInt64(&calls); got != 1 {
		t.Errorf("expected exactly 1 underlying fetch, got %d", got)
	}
}
