package rawcache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kitbuilder587/imgsearch/internal/domain"
)

func testSet(query string) *RawResultSet {
	return &RawResultSet{
		Results: []domain.ImageResult{
			{ImageURL: "https://cdn.example.com/1.jpg", Width: 800, Height: 600},
		},
		Total:     1,
		Query:     query,
		FetchedAt: time.Now(),
	}
}

func TestCache_GetOrFetch(t *testing.T) {
	c := New(time.Hour)
	calls := 0

	fetch := func(ctx context.Context) (*RawResultSet, error) {
		calls++
		return testSet("mountains"), nil
	}

	key := Key("mountains", domain.OrientationAny)

	set, cached, err := c.GetOrFetch(context.Background(), key, fetch)
	if err != nil {
		t.Fatalf("GetOrFetch() error = %v", err)
	}
	if cached {
		t.Error("first call should be a miss")
	}
	if set.Total != 1 {
		t.Errorf("Total = %d, want 1", set.Total)
	}

	set2, cached, err := c.GetOrFetch(context.Background(), key, fetch)
	if err != nil {
		t.Fatalf("GetOrFetch() error = %v", err)
	}
	if !cached {
		t.Error("second call should hit the cache")
	}
	if set2 != set {
		t.Error("cached set should be the same instance")
	}
	if calls != 1 {
		t.Errorf("fetch called %d times, want 1", calls)
	}
}

func TestCache_FetchError(t *testing.T) {
	c := New(time.Hour)
	wantErr := errors.New("upstream down")

	_, _, err := c.GetOrFetch(context.Background(), "key", func(ctx context.Context) (*RawResultSet, error) {
		return nil, wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Errorf("GetOrFetch() error = %v, want %v", err, wantErr)
	}

	// ошибка не должна отравить кеш
	if c.Len() != 0 {
		t.Errorf("Len() = %d, want 0 after failed fetch", c.Len())
	}
}

func TestCache_TTLEviction(t *testing.T) {
	c := New(30 * time.Millisecond)
	calls := 0

	fetch := func(ctx context.Context) (*RawResultSet, error) {
		calls++
		return testSet("q"), nil
	}

	c.GetOrFetch(context.Background(), "key", fetch)
	time.Sleep(60 * time.Millisecond)
	c.GetOrFetch(context.Background(), "key", fetch)

	if calls != 2 {
		t.Errorf("fetch called %d times, want 2 after TTL expiry", calls)
	}
}

func TestCache_SingleFlight(t *testing.T) {
	c := New(time.Hour)
	var calls int64
	started := make(chan struct{})
	release := make(chan struct{})

	fetch := func(ctx context.Context) (*RawResultSet, error) {
		atomic.AddInt64(&calls, 1)
		close(started)
		<-release
		return testSet("q"), nil
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, cached, _ := c.GetOrFetch(context.Background(), "key", fetch)
		if cached {
			t.Error("fetch owner must not report a cache hit")
		}
	}()

	<-started

	// пока первый фетч висит, остальные должны ждать его результат;
	// дождавшиеся чужого фетча - тоже не попадание в кеш
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			set, cached, err := c.GetOrFetch(context.Background(), "key", fetch)
			if err != nil {
				t.Errorf("GetOrFetch() error = %v", err)
			}
			if set == nil {
				t.Error("GetOrFetch() returned nil set")
			}
			if cached {
				t.Error("joined caller must not report a cache hit")
			}
		}()
	}

	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	if got := atomic.LoadInt64(&calls); got != 1 {
		t.Errorf("fetch called %d times, want 1 (single-flight)", got)
	}

	// а вот следующий вызов после завершения фетча - уже попадание
	_, cached, err := c.GetOrFetch(context.Background(), "key", fetch)
	if err != nil {
		t.Fatalf("GetOrFetch() error = %v", err)
	}
	if !cached {
		t.Error("call after completed fetch should hit the cache")
	}
}

func TestKey(t *testing.T) {
	if Key("Mountains", domain.OrientationLandscape) != Key("mountains", domain.OrientationLandscape) {
		t.Error("Key() should be case-insensitive on query")
	}
	if Key("mountains", domain.OrientationLandscape) == Key("mountains", domain.OrientationPortrait) {
		t.Error("Key() should differ by orientation")
	}
}
