// Package state persists the version throttle cache and the conversion history
// in a single-file SQLite database.
//
// Core types are defined in pkg/core and re-exported here.
package state

import (
	"github.com/leapstack-labs/sdkproj/pkg/core"
)

type (
	// Store is an alias for core.Store.
	Store = core.Store

	// VersionCacheEntry is an alias for core.VersionCacheEntry.
	VersionCacheEntry = core.VersionCacheEntry

	// Conversion is an alias for core.Conversion.
	Conversion = core.Conversion
)

// Compile-time check.
var _ Store = (*SQLiteStore)(nil)
