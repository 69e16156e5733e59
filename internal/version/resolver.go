// Package version resolves the void SDK version stamped into descriptors.
//
// The registry is consulted at most once per process and at most once per
// ThrottleWindow across processes. Every failure degrades to DefaultVersion.
package version

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/leapstack-labs/sdkproj/internal/future"
	"github.com/leapstack-labs/sdkproj/pkg/core"
)

const (
	// SdkName is the void SDK package name used in identifiers.
	SdkName = "Csproj.Sdk.Void"

	// DefaultVersion is used when no version could be resolved.
	DefaultVersion = "1.1.0"

	// DefaultTimeout bounds a registry fetch.
	DefaultTimeout = 5 * time.Second

	// ThrottleWindow is the minimum time between registry fetches.
	ThrottleWindow = 24 * time.Hour
)

// Fetcher returns the latest published version of a package.
type Fetcher interface {
	FetchLatest(ctx context.Context, packageID string) (string, error)
}

// State is the resolver lifecycle.
type State int

const (
	StateCold State = iota
	StateCachedFresh
	StateFetching
	StateResolved
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateCold:
		return "cold"
	case StateCachedFresh:
		return "cached"
	case StateFetching:
		return "fetching"
	case StateResolved:
		return "resolved"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Config configures a Resolver.
type Config struct {
	PackageID string
	Timeout   time.Duration
	Fetcher   Fetcher
	// Cache persists the throttle state. Nil keeps it in memory.
	Cache  core.VersionCache
	Logger *slog.Logger
	// Now overrides the clock in tests.
	Now func() time.Time
}

// Resolver memoizes the first resolution for its lifetime.
type Resolver struct {
	cfg Config

	once    sync.Once
	mu      sync.Mutex
	state   State
	version string
	ok      bool
}

// NewResolver creates a Resolver, filling defaults for empty fields.
func NewResolver(cfg Config) *Resolver {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Cache == nil {
		cfg.Cache = NewMemoryCache()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Resolver{cfg: cfg}
}

// State returns the current lifecycle state.
func (r *Resolver) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

func (r *Resolver) setState(s State) {
	r.mu.Lock()
	r.state = s
	r.mu.Unlock()
}

// ResolveVersion returns the resolved version and whether one was found.
// Only the first call does any work; later calls return the memoized result.
func (r *Resolver) ResolveVersion(ctx context.Context) (string, bool) {
	r.once.Do(func() {
		r.version, r.ok = r.resolve(ctx)
	})
	return r.version, r.ok
}

// Identifier returns SdkName/<version>, falling back to DefaultVersion.
func (r *Resolver) Identifier(ctx context.Context) string {
	v, ok := r.ResolveVersion(ctx)
	if !ok {
		v = DefaultVersion
	}
	return SdkName + "/" + v
}

func (r *Resolver) resolve(ctx context.Context) (string, bool) {
	log := r.cfg.Logger.With("package", r.cfg.PackageID)
	now := r.cfg.Now()

	entry, err := r.cfg.Cache.GetVersionCache(ctx, r.cfg.PackageID)
	if err != nil {
		log.Warn("unable to read version cache, treating it as stale", "error", err)
		entry = core.VersionCacheEntry{PackageID: r.cfg.PackageID}
	} else if entry.FreshAt(now, ThrottleWindow) {
		r.setState(StateCachedFresh)
		log.Debug("using cached version", "version", entry.CachedVersion, "last_fetch", entry.LastFetch())
		return entry.CachedVersion, entry.CachedVersion != ""
	}

	// The dispatch time is persisted before fetching, so a failure also
	// suppresses retries for the rest of the window.
	entry.PackageID = r.cfg.PackageID
	entry.LastFetchEpochSeconds = now.Unix()
	r.save(ctx, log, entry)

	if r.cfg.Fetcher == nil {
		return r.fail(ctx, log, entry, errNoFetcher)
	}

	r.setState(StateFetching)
	// Only the timeout cancels the fetch; a caller going away must not
	// record a failure for the whole window.
	fut := future.Go(context.WithoutCancel(ctx), func(ctx context.Context) (string, error) {
		return r.cfg.Fetcher.FetchLatest(ctx, r.cfg.PackageID)
	})

	v, err := fut.Wait(r.cfg.Timeout)
	if err != nil {
		return r.fail(ctx, log, entry, err)
	}

	entry.CachedVersion = v
	r.save(ctx, log, entry)
	r.setState(StateResolved)
	log.Debug("resolved version from registry", "version", v)
	return v, true
}

func (r *Resolver) fail(ctx context.Context, log *slog.Logger, entry core.VersionCacheEntry, err error) (string, bool) {
	log.Warn("registry unavailable, falling back to default version",
		"error", err, "default", DefaultVersion, "timeout", r.cfg.Timeout)
	entry.CachedVersion = ""
	r.save(ctx, log, entry)
	r.setState(StateFailed)
	return "", false
}

func (r *Resolver) save(ctx context.Context, log *slog.Logger, entry core.VersionCacheEntry) {
	// The fetch may have consumed the caller's deadline; the write must still land.
	if err := r.cfg.Cache.SaveVersionCache(context.WithoutCancel(ctx), entry); err != nil {
		log.Warn("unable to save version cache", "error", err)
	}
}
