package core

import (
	"context"
	"time"
)

// VersionCacheEntry is the persisted throttle state for one registry package.
type VersionCacheEntry struct {
	PackageID string
	// LastFetchEpochSeconds is written when a fetch is dispatched, not when it completes.
	LastFetchEpochSeconds int64
	// CachedVersion is empty when the last attempt failed or nothing was ever fetched.
	CachedVersion string
}

// LastFetch returns the dispatch time of the last fetch attempt.
func (e VersionCacheEntry) LastFetch() time.Time {
	return time.Unix(e.LastFetchEpochSeconds, 0).UTC()
}

// FreshAt reports whether a fetch is still suppressed at now.
func (e VersionCacheEntry) FreshAt(now time.Time, window time.Duration) bool {
	return now.Sub(e.LastFetch()) < window
}

// VersionCache reads and writes VersionCacheEntry records.
// GetVersionCache returns a zero entry (with PackageID set) when nothing is stored.
type VersionCache interface {
	GetVersionCache(ctx context.Context, packageID string) (VersionCacheEntry, error)
	SaveVersionCache(ctx context.Context, entry VersionCacheEntry) error
}

// ConversionLog records descriptor conversions.
type ConversionLog interface {
	RecordConversion(ctx context.Context, c *Conversion) error
}

// Store is the full state store used by the CLI.
type Store interface {
	VersionCache
	ConversionLog

	Open(path string) error
	Close() error
	Migrate() error

	ResetVersionCache(ctx context.Context, packageID string) error
	ListConversions(ctx context.Context, limit int) ([]*Conversion, error)
}
