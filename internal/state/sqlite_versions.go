package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// GetVersionCache returns the cached entry for packageID.
// A missing row yields a zero entry, which is never fresh.
func (s *SQLiteStore) GetVersionCache(ctx context.Context, packageID string) (VersionCacheEntry, error) {
	entry := VersionCacheEntry{PackageID: packageID}
	if s.db == nil {
		return entry, errNotOpened
	}

	var cached sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT last_fetch_epoch, cached_version FROM version_cache WHERE package_id = ?`,
		packageID,
	).Scan(&entry.LastFetchEpochSeconds, &cached)

	if errors.Is(err, sql.ErrNoRows) {
		return entry, nil
	}
	if err != nil {
		return entry, fmt.Errorf("failed to get version cache: %w", err)
	}

	entry.CachedVersion = cached.String
	return entry, nil
}

// SaveVersionCache upserts entry. An empty CachedVersion is stored as NULL.
func (s *SQLiteStore) SaveVersionCache(ctx context.Context, entry VersionCacheEntry) error {
	if s.db == nil {
		return errNotOpened
	}

	var cached sql.NullString
	if entry.CachedVersion != "" {
		cached = sql.NullString{String: entry.CachedVersion, Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO version_cache (package_id, last_fetch_epoch, cached_version)
		VALUES (?, ?, ?)
		ON CONFLICT (package_id) DO UPDATE SET
			last_fetch_epoch = excluded.last_fetch_epoch,
			cached_version = excluded.cached_version`,
		entry.PackageID, entry.LastFetchEpochSeconds, cached,
	)
	if err != nil {
		return fmt.Errorf("failed to save version cache: %w", err)
	}
	return nil
}

// ResetVersionCache deletes the entry for packageID, or every entry when
// packageID is empty.
func (s *SQLiteStore) ResetVersionCache(ctx context.Context, packageID string) error {
	if s.db == nil {
		return errNotOpened
	}

	var err error
	if packageID == "" {
		_, err = s.db.ExecContext(ctx, `DELETE FROM version_cache`)
	} else {
		_, err = s.db.ExecContext(ctx, `DELETE FROM version_cache WHERE package_id = ?`, packageID)
	}
	if err != nil {
		return fmt.Errorf("failed to reset version cache: %w", err)
	}
	return nil
}

// ListVersionCache returns every cached entry ordered by package id.
func (s *SQLiteStore) ListVersionCache(ctx context.Context) ([]VersionCacheEntry, error) {
	if s.db == nil {
		return nil, errNotOpened
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT package_id, last_fetch_epoch, cached_version FROM version_cache ORDER BY package_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list version cache: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []VersionCacheEntry
	for rows.Next() {
		var e VersionCacheEntry
		var cached sql.NullString
		if err := rows.Scan(&e.PackageID, &e.LastFetchEpochSeconds, &cached); err != nil {
			return nil, fmt.Errorf("failed to scan version cache: %w", err)
		}
		e.CachedVersion = cached.String
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
