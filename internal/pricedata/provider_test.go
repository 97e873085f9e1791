package pricedata

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"rankback/internal/config"
	"rankback/internal/types"
)

// fakeSource serves synthetic daily bars and counts queries per ticker
type fakeSource struct {
	mu      sync.Mutex
	queries map[string]int
	failing map[string]error
	empty   map[string]bool
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		queries: make(map[string]int),
		failing: make(map[string]error),
		empty:   make(map[string]bool),
	}
}

func (s *fakeSource) Query(ctx context.Context, ticker string, start, end time.Time) ([]types.PriceBar, error) {
	s.mu.Lock()
	s.queries[ticker]++
	s.mu.Unlock()

	if err, ok := s.failing[ticker]; ok {
		return nil, err
	}
	if s.empty[ticker] {
		return nil, nil
	}

	var bars []types.PriceBar
	price := 100.0
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		bars = append(bars, types.PriceBar{
			Ticker: ticker,
			Date:   d,
			Open:   price,
			High:   price + 1,
			Low:    price - 1,
			Close:  price + 0.5,
			Volume: 1000,
		})
		price++
	}
	return bars, nil
}

func (s *fakeSource) queryCount(ticker string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queries[ticker]
}

func newTestProvider(source Source) *Provider {
	return NewProvider(source, NewMemoryCache(), config.PriceDataConfig{
		RequestTimeout: 5 * time.Second,
		MaxParallel:    4,
	})
}

func TestProviderGetAndCache(t *testing.T) {
	source := newFakeSource()
	provider := newTestProvider(source)

	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 10)

	first, err := provider.Get(context.Background(), "AAA", start, end)
	if err != nil {
		t.Fatalf("first get: %v", err)
	}
	if len(first) != 11 {
		t.Fatalf("expected 11 bars, got %d", len(first))
	}

	second, err := provider.Get(context.Background(), "AAA", start, end)
	if err != nil {
		t.Fatalf("second get: %v", err)
	}
	if len(second) != len(first) {
		t.Fatalf("warm cache returned %d bars, expected %d", len(second), len(first))
	}
	for i := range first {
		if !first[i].Date.Equal(second[i].Date) || first[i].Close != second[i].Close {
			t.Fatalf("warm cache series differs at index %d", i)
		}
	}

	if got := source.queryCount("AAA"); got != 1 {
		t.Errorf("repeated identical request hit the source %d times, expected 1", got)
	}
}

func TestProviderOrdersBars(t *testing.T) {
	source := newFakeSource()
	provider := newTestProvider(source)

	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	bars, err := provider.Get(context.Background(), "AAA", start, start.AddDate(0, 0, 5))
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	for i := 1; i < len(bars); i++ {
		if bars[i].Date.Before(bars[i-1].Date) {
			t.Fatal("bars not ordered by date")
		}
	}
}

func TestProviderSourceErrorIsUnavailable(t *testing.T) {
	source := newFakeSource()
	source.failing["BAD"] = fmt.Errorf("connection refused")
	provider := newTestProvider(source)

	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	_, err := provider.Get(context.Background(), "BAD", start, start.AddDate(0, 0, 5))
	if !errors.Is(err, ErrDataUnavailable) {
		t.Errorf("source failure must surface as ErrDataUnavailable, got %v", err)
	}
	if !strings.Contains(err.Error(), "connection refused") {
		t.Errorf("underlying source error lost from the message: %v", err)
	}
}

func TestProviderEmptySeriesIsUnavailable(t *testing.T) {
	source := newFakeSource()
	source.empty["EMPTY"] = true
	provider := newTestProvider(source)

	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	_, err := provider.Get(context.Background(), "EMPTY", start, start.AddDate(0, 0, 5))
	if !errors.Is(err, ErrDataUnavailable) {
		t.Errorf("empty series must surface as ErrDataUnavailable, got %v", err)
	}
}

// stallingSource blocks until the caller's context expires
type stallingSource struct{}

func (s *stallingSource) Query(ctx context.Context, ticker string, start, end time.Time) ([]types.PriceBar, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestProviderTimeoutIsUnavailable(t *testing.T) {
	provider := NewProvider(&stallingSource{}, NewMemoryCache(), config.PriceDataConfig{
		RequestTimeout: 10 * time.Millisecond,
		MaxParallel:    1,
	})

	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	_, err := provider.Get(context.Background(), "SLOW", start, start.AddDate(0, 0, 5))
	if !errors.Is(err, ErrDataUnavailable) {
		t.Errorf("request timeout must surface as ErrDataUnavailable, got %v", err)
	}
}

func TestProviderPrefetchSkipsFailures(t *testing.T) {
	source := newFakeSource()
	source.failing["BAD"] = fmt.Errorf("connection refused")
	provider := newTestProvider(source)

	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 5)

	// Must not panic or abort; good tickers end up cached
	provider.Prefetch(context.Background(), []string{"AAA", "BAD", "BBB"}, start, end)

	if _, err := provider.Get(context.Background(), "AAA", start, end); err != nil {
		t.Errorf("AAA should be served after prefetch: %v", err)
	}
	if got := source.queryCount("AAA"); got != 1 {
		t.Errorf("AAA fetched %d times, expected prefetch to warm the cache once", got)
	}
}

func TestKey(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	if got := Key("AAA", start, end); got != "AAA_2026-01-01_2026-03-01" {
		t.Errorf("unexpected key %q", got)
	}
}

func TestMemoryCacheWriteOnce(t *testing.T) {
	cache := NewMemoryCache()
	day := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	original := []types.PriceBar{{Ticker: "AAA", Date: day, Close: 100}}
	cache.Put("k", original)
	cache.Put("k", []types.PriceBar{{Ticker: "AAA", Date: day, Close: 999}})

	bars, ok := cache.Get("k")
	if !ok {
		t.Fatal("expected cache hit")
	}
	if bars[0].Close != 100 {
		t.Errorf("cache entry was overwritten: close = %v", bars[0].Close)
	}
	if cache.Len() != 1 {
		t.Errorf("cache size = %d, expected 1", cache.Len())
	}
}

func TestMemoryCacheGetReturnsCopy(t *testing.T) {
	cache := NewMemoryCache()
	day := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cache.Put("k", []types.PriceBar{{Ticker: "AAA", Date: day, Close: 100}})

	bars, _ := cache.Get("k")
	bars[0].Close = 999

	again, _ := cache.Get("k")
	if again[0].Close != 100 {
		t.Error("mutating a Get result leaked into the cache")
	}
}
