package version

import (
	"context"
	"errors"
	"sync"

	"github.com/leapstack-labs/sdkproj/pkg/core"
)

var errNoFetcher = errors.New("no registry fetcher configured")

// MemoryCache is a process-local core.VersionCache.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]core.VersionCacheEntry
}

// NewMemoryCache returns an empty MemoryCache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]core.VersionCacheEntry)}
}

func (c *MemoryCache) GetVersionCache(_ context.Context, packageID string) (core.VersionCacheEntry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[packageID]; ok {
		return e, nil
	}
	return core.VersionCacheEntry{PackageID: packageID}, nil
}

func (c *MemoryCache) SaveVersionCache(_ context.Context, entry core.VersionCacheEntry) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[entry.PackageID] = entry
	return nil
}
