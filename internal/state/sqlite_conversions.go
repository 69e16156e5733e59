package state

import (
	"context"
	"fmt"
	"time"
)

// DefaultHistoryLimit bounds ListConversions when limit is not positive.
const DefaultHistoryLimit = 50

// RecordConversion stores c, assigning an ID and timestamp when missing.
func (s *SQLiteStore) RecordConversion(ctx context.Context, c *Conversion) error {
	if s.db == nil {
		return errNotOpened
	}

	if c.ID == "" {
		c.ID = generateID()
	}
	if c.At.IsZero() {
		c.At = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO conversions (id, path, mode, sdk, changed, skipped, reason, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.Path, c.Mode, c.Sdk, boolToInt(c.Changed), boolToInt(c.Skipped), c.Reason, c.At.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("failed to record conversion: %w", err)
	}
	return nil
}

// ListConversions returns the most recent conversions, newest first.
func (s *SQLiteStore) ListConversions(ctx context.Context, limit int) ([]*Conversion, error) {
	if s.db == nil {
		return nil, errNotOpened
	}
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, path, mode, sdk, changed, skipped, reason, created_at
		FROM conversions
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*Conversion
	for rows.Next() {
		c := &Conversion{}
		var changed, skipped int
		var createdAt int64
		if err := rows.Scan(&c.ID, &c.Path, &c.Mode, &c.Sdk, &changed, &skipped, &c.Reason, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan conversion: %w", err)
		}
		c.Changed = changed != 0
		c.Skipped = skipped != 0
		c.At = time.UnixMilli(createdAt).UTC()
		out = append(out, c)
	}
	return out, rows.Err()
}
