// Package core defines the shared language of the sdkproj system.
//
// This package contains:
//   - Persisted state entities (VersionCacheEntry, Conversion)
//   - Service interfaces (VersionCache, ConversionLog, Store)
//
// The Golden Rule: pkg/core imports ONLY stdlib.
// All other packages depend on core, not the reverse.
package core
