package pricedata

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"rankback/internal/logging"
	"rankback/internal/types"
)

// FileCache persists price series as JSON files in a directory, one file
// per key. It survives across runs, which is the only persistence the
// pipeline keeps besides the written reports.
type FileCache struct {
	dir    string
	logger *logging.Logger
	mu     sync.Mutex
}

// NewFileCache creates a file-backed cache rooted at dir
func NewFileCache(dir string) (*FileCache, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	return &FileCache{
		dir:    dir,
		logger: logging.NewComponentLogger("pricecache"),
	}, nil
}

// Get returns the cached series for the key
func (c *FileCache) Get(key string) ([]types.PriceBar, bool) {
	data, err := os.ReadFile(c.path(key))
	if err != nil {
		return nil, false
	}

	var bars []types.PriceBar
	if err := json.Unmarshal(data, &bars); err != nil {
		c.logger.Warnf("Discarding unreadable cache entry %s: %v", key, err)
		return nil, false
	}
	return bars, true
}

// Put stores the series under the key. An existing entry is never
// overwritten.
func (c *FileCache) Put(key string, bars []types.PriceBar) {
	c.mu.Lock()
	defer c.mu.Unlock()

	path := c.path(key)
	if _, err := os.Stat(path); err == nil {
		return
	}

	data, err := json.Marshal(bars)
	if err != nil {
		c.logger.Warnf("Failed to encode cache entry %s: %v", key, err)
		return
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		c.logger.Warnf("Failed to write cache entry %s: %v", key, err)
	}
}

// path maps a cache key onto a filename
func (c *FileCache) path(key string) string {
	safe := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			return r
		default:
			return '_'
		}
	}, key)
	return filepath.Join(c.dir, safe+".json")
}
