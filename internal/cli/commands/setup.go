package commands

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/sdkproj/internal/cli/config"
	"github.com/leapstack-labs/sdkproj/internal/cli/output"
	"github.com/leapstack-labs/sdkproj/internal/pipeline"
	"github.com/leapstack-labs/sdkproj/internal/registry"
	"github.com/leapstack-labs/sdkproj/internal/sdk"
	"github.com/leapstack-labs/sdkproj/internal/state"
	"github.com/leapstack-labs/sdkproj/internal/version"
	"github.com/leapstack-labs/sdkproj/pkg/core"
)

// Version is stamped into the registry User-Agent. Set by the root command.
var Version = "dev"

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Store    *state.SQLiteStore
	Renderer *output.Renderer
}

// NewCommandContext creates a CommandContext with an open, migrated state store.
// Returns the context and a cleanup function that must be called (typically via defer).
func NewCommandContext(cmd *cobra.Command) (*CommandContext, func(), error) {
	cc := NewCommandContextWithoutStore(cmd)

	store := state.NewSQLiteStore(cc.Logger)
	if err := store.Open(cc.Cfg.StatePath); err != nil {
		return nil, nil, err
	}
	if err := store.Migrate(); err != nil {
		_ = store.Close()
		return nil, nil, err
	}
	cc.Store = store

	cleanup := func() {
		_ = store.Close()
	}
	return cc, cleanup, nil
}

// NewCommandContextWithoutStore creates a CommandContext without a state store.
func NewCommandContextWithoutStore(cmd *cobra.Command) *CommandContext {
	cfg := config.FromContext(cmd.Context())
	return &CommandContext{
		Cfg:      cfg,
		Logger:   config.GetLogger(cmd.Context()),
		Renderer: output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.Mode(cfg.OutputFormat)),
	}
}

// versionCache returns the store, or nil so the resolver keeps state in memory.
func (c *CommandContext) versionCache() core.VersionCache {
	if c.Store == nil {
		return nil
	}
	return c.Store
}

// NewResolver builds a version resolver backed by the registry and the state store.
func (c *CommandContext) NewResolver() *version.Resolver {
	client := registry.NewClient(c.Cfg.Registry.BaseURL,
		registry.WithHTTPClient(&http.Client{}),
		registry.WithUserAgent("sdkproj/"+Version),
		registry.WithLogger(c.Logger),
	)
	return version.NewResolver(version.Config{
		PackageID: c.Cfg.Registry.PackageID,
		Timeout:   c.Cfg.Registry.Timeout(),
		Fetcher:   client,
		Cache:     c.versionCache(),
		Logger:    c.Logger,
	})
}

// NewStrategy builds the configured sdk strategy. The resolver is returned
// for callers that report its state; it is nil for non-void strategies.
func (c *CommandContext) NewStrategy() (sdk.Strategy, *version.Resolver, error) {
	deps := sdk.Deps{CustomSdk: c.Cfg.Generator.CustomSdk}
	var resolver *version.Resolver
	if c.Cfg.Generator.Strategy == sdk.StrategyVoid {
		resolver = c.NewResolver()
		deps.Resolver = resolver
	}
	s, err := sdk.New(c.Cfg.Generator.Strategy, deps)
	if err != nil {
		return nil, nil, err
	}
	return s, resolver, nil
}

// ConverterOptions are per-invocation pipeline settings not held in config.
type ConverterOptions struct {
	Debug  bool
	DryRun bool
}

// NewConverter builds a pipeline converter from the configuration.
func (c *CommandContext) NewConverter(opts ConverterOptions) (*pipeline.Converter, error) {
	strategy, _, err := c.NewStrategy()
	if err != nil {
		return nil, err
	}

	var history core.ConversionLog
	if c.Store != nil {
		history = c.Store
	}

	g := c.Cfg.Generator
	conv, err := pipeline.New(pipeline.Config{
		Options: pipeline.Options{
			Enabled:        g.Enabled,
			DisableOnBuild: g.DisableOnBuild,
			DisableInDebug: g.DisableInDebug,
			Debug:          opts.Debug,
			SdkStyle:       g.SdkStyle,
			Kinds:          c.Cfg.Imports.Kinds,
			ProjectDir:     c.Cfg.ProjectDir,
			DirectoryBuild: c.Cfg.Scaffold.DirectoryBuild,
			Concurrency:    c.Cfg.Concurrency,
			DryRun:         opts.DryRun,
		},
		Strategy: strategy,
		History:  history,
		Logger:   c.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create converter: %w", err)
	}
	return conv, nil
}
