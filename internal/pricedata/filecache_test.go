package pricedata

import (
	"testing"
	"time"

	"rankback/internal/types"
)

func TestFileCacheRoundTrip(t *testing.T) {
	cache, err := NewFileCache(t.TempDir())
	if err != nil {
		t.Fatalf("new cache: %v", err)
	}

	day := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := []types.PriceBar{
		{Ticker: "AAA", Date: day, Open: 100, High: 102, Low: 99, Close: 101, Volume: 5000},
		{Ticker: "AAA", Date: day.AddDate(0, 0, 1), Open: 101, High: 103, Low: 100, Close: 102, Volume: 5100},
	}
	key := Key("AAA", day, day.AddDate(0, 0, 1))
	cache.Put(key, bars)

	got, ok := cache.Get(key)
	if !ok {
		t.Fatal("expected cache hit")
	}
	if len(got) != 2 || got[0].Close != 101 || !got[1].Date.Equal(bars[1].Date) {
		t.Errorf("round trip changed the series: %+v", got)
	}
}

func TestFileCacheMiss(t *testing.T) {
	cache, err := NewFileCache(t.TempDir())
	if err != nil {
		t.Fatalf("new cache: %v", err)
	}
	if _, ok := cache.Get("missing"); ok {
		t.Error("expected cache miss")
	}
}

func TestFileCacheWriteOnce(t *testing.T) {
	cache, err := NewFileCache(t.TempDir())
	if err != nil {
		t.Fatalf("new cache: %v", err)
	}

	day := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cache.Put("k", []types.PriceBar{{Ticker: "AAA", Date: day, Close: 100}})
	cache.Put("k", []types.PriceBar{{Ticker: "AAA", Date: day, Close: 999}})

	bars, ok := cache.Get("k")
	if !ok {
		t.Fatal("expected cache hit")
	}
	if bars[0].Close != 100 {
		t.Errorf("cache entry was overwritten: close = %v", bars[0].Close)
	}
}
