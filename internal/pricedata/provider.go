// Package pricedata fetches and caches ordered daily OHLCV history per
// ticker. Cache entries are keyed by (ticker, start, end) and are immutable
// after write: an identical key returns an identical series for the lifetime
// of the cache.
package pricedata

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"rankback/internal/config"
	"rankback/internal/logging"
	"rankback/internal/types"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// ErrDataUnavailable marks a ticker whose price history could not be
// fetched (empty result, source error, or per-request timeout). Callers
// must treat it as "skip this ticker", never as fatal.
var ErrDataUnavailable = errors.New("price data unavailable")

// Source queries an external market-data provider for an ordered OHLCV
// sequence
type Source interface {
	Query(ctx context.Context, ticker string, start, end time.Time) ([]types.PriceBar, error)
}

// Cache stores immutable price series under a (ticker, start, end) key
type Cache interface {
	Get(key string) ([]types.PriceBar, bool)
	Put(key string, bars []types.PriceBar)
}

// Key builds the cache key for a (ticker, start, end) request
func Key(ticker string, start, end time.Time) string {
	return fmt.Sprintf("%s_%s_%s", ticker, start.Format("2006-01-02"), end.Format("2006-01-02"))
}

// Provider serves price history from the cache, falling back to the source
// on a miss. Concurrent fetches of the same key are collapsed to at most
// one in-flight request.
type Provider struct {
	source      Source
	cache       Cache
	timeout     time.Duration
	maxParallel int
	logger      *logging.Logger
	group       singleflight.Group
}

// NewProvider creates a new price history provider
func NewProvider(source Source, cache Cache, cfg config.PriceDataConfig) *Provider {
	maxParallel := cfg.MaxParallel
	if maxParallel <= 0 {
		maxParallel = 1
	}
	return &Provider{
		source:      source,
		cache:       cache,
		timeout:     cfg.RequestTimeout,
		maxParallel: maxParallel,
		logger:      logging.NewComponentLogger("pricedata"),
	}
}

// Get returns the ordered price series for the ticker and date range.
// A warm cache is served without touching the source.
func (p *Provider) Get(ctx context.Context, ticker string, start, end time.Time) ([]types.PriceBar, error) {
	key := Key(ticker, start, end)

	if bars, ok := p.cache.Get(key); ok {
		return bars, nil
	}

	value, err, _ := p.group.Do(key, func() (interface{}, error) {
		// Another caller may have filled the cache while we queued
		if bars, ok := p.cache.Get(key); ok {
			return bars, nil
		}
		return p.fetch(ctx, key, ticker, start, end)
	})
	if err != nil {
		return nil, err
	}
	return value.([]types.PriceBar), nil
}

// fetch queries the source under the per-request timeout and writes the
// cache entry before returning
func (p *Provider) fetch(ctx context.Context, key, ticker string, start, end time.Time) ([]types.PriceBar, error) {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	bars, err := p.source.Query(ctx, ticker, start, end)
	if err != nil {
		return nil, fmt.Errorf("%s %s to %s: %v: %w", ticker,
			start.Format("2006-01-02"), end.Format("2006-01-02"), err, ErrDataUnavailable)
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("%s: empty series: %w", ticker, ErrDataUnavailable)
	}

	sort.SliceStable(bars, func(i, j int) bool {
		return bars[i].Date.Before(bars[j].Date)
	})

	p.cache.Put(key, bars)
	return bars, nil
}

// Prefetch warms the cache for a set of tickers with a bounded worker pool.
// Unavailable tickers are logged and skipped; Prefetch never fails the batch.
func (p *Provider) Prefetch(ctx context.Context, tickers []string, start, end time.Time) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.maxParallel)

	for _, ticker := range tickers {
		ticker := ticker
		g.Go(func() error {
			if _, err := p.Get(gctx, ticker, start, end); err != nil {
				p.logger.Warnf("Prefetch skipped %s: %v", ticker, err)
			}
			return nil
		})
	}

	_ = g.Wait()
}
