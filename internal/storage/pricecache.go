package storage

import (
	"encoding/json"
	"errors"

	"rankback/internal/logging"
	"rankback/internal/types"

	"gorm.io/gorm"
)

// PriceCache is a Postgres-backed price series cache. It implements the
// provider's Cache contract; entries are write-once and immutable.
type PriceCache struct {
	db     *gorm.DB
	logger *logging.Logger
}

// NewPriceCache creates a database-backed price cache
func NewPriceCache(db *gorm.DB) *PriceCache {
	return &PriceCache{
		db:     db,
		logger: logging.NewComponentLogger("pricecache"),
	}
}

// Get returns the cached series for the key
func (c *PriceCache) Get(key string) ([]types.PriceBar, bool) {
	var record PriceSeries
	err := c.db.Where("cache_key = ?", key).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false
	}
	if err != nil {
		c.logger.Warnf("Cache lookup failed for %s: %v", key, err)
		return nil, false
	}

	var bars []types.PriceBar
	if err := json.Unmarshal(record.Payload, &bars); err != nil {
		c.logger.Warnf("Discarding unreadable cache entry %s: %v", key, err)
		return nil, false
	}
	return bars, true
}

// Put stores the series under the key. An existing entry is never
// overwritten.
func (c *PriceCache) Put(key string, bars []types.PriceBar) {
	if len(bars) == 0 {
		return
	}

	payload, err := json.Marshal(bars)
	if err != nil {
		c.logger.Warnf("Failed to encode cache entry %s: %v", key, err)
		return
	}

	record := PriceSeries{
		CacheKey:  key,
		Ticker:    bars[0].Ticker,
		StartDate: bars[0].Date,
		EndDate:   bars[len(bars)-1].Date,
		Payload:   payload,
	}

	var existing PriceSeries
	err = c.db.Where("cache_key = ?", key).First(&existing).Error
	if err == nil {
		return
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		c.logger.Warnf("Cache probe failed for %s: %v", key, err)
		return
	}

	if err := c.db.Create(&record).Error; err != nil {
		c.logger.Warnf("Failed to write cache entry %s: %v", key, err)
	}
}
