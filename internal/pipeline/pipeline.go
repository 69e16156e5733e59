// Package pipeline feeds generated descriptors through the rewriter and
// persists the result.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/leapstack-labs/sdkproj/internal/descriptor"
	"github.com/leapstack-labs/sdkproj/internal/scaffold"
	"github.com/leapstack-labs/sdkproj/internal/sdk"
	"github.com/leapstack-labs/sdkproj/pkg/core"
)

// Skip reasons reported in Result.Reason.
const (
	ReasonDisabled         = "generator disabled"
	ReasonDisabledOnBuild  = "disabled on build"
	ReasonDisabledInDebug  = "disabled in debug mode"
	ReasonAlreadyConverted = "already converted"
	ReasonMalformed        = "malformed descriptor"
)

// Options mirrors the generator preferences.
type Options struct {
	Enabled        bool
	DisableOnBuild bool
	DisableInDebug bool
	// Debug is true when the host compiles with debug code optimization.
	Debug    bool
	SdkStyle bool
	// Kinds lists import kind names in order; empty means shared then editor.
	Kinds []string
	// ProjectDir holds the descriptors and companion files. Its base name
	// prefixes every companion file.
	ProjectDir     string
	DirectoryBuild bool
	Concurrency    int
	DryRun         bool
}

// Config configures a Converter.
type Config struct {
	Options
	// Strategy supplies the SDK identifier. Required when SdkStyle is set.
	Strategy sdk.Strategy
	// History records each conversion. Optional.
	History core.ConversionLog
	Logger  *slog.Logger
}

// Result describes one descriptor pass.
type Result struct {
	Path    string
	Mode    descriptor.Mode
	Changed bool
	Skipped bool
	Reason  string
	// Sdk is the identifier stamped into the root; empty when the descriptor
	// already declared one or sdk style is off.
	Sdk string
	// Scaffolded lists companion files created by this pass.
	Scaffolded []string
}

// Converter runs descriptors through the rewriter.
type Converter struct {
	opts     Options
	spec     descriptor.ImportSpec
	rewriter *descriptor.Rewriter
	strategy sdk.Strategy
	history  core.ConversionLog
	logger   *slog.Logger
}

// New creates a Converter.
func New(cfg Config) (*Converter, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	dir := cfg.ProjectDir
	if dir == "" {
		dir = "."
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve project dir: %w", err)
	}
	cfg.ProjectDir = abs

	spec := descriptor.DefaultImportSpec(filepath.Base(abs))
	if len(cfg.Kinds) > 0 {
		spec, err = descriptor.NewImportSpec(filepath.Base(abs), cfg.Kinds)
		if err != nil {
			return nil, err
		}
	}

	if cfg.SdkStyle && cfg.Strategy == nil {
		return nil, fmt.Errorf("sdk style requires an sdk strategy")
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}

	return &Converter{
		opts:     cfg.Options,
		spec:     spec,
		rewriter: descriptor.NewRewriter(spec, logger),
		strategy: cfg.Strategy,
		history:  cfg.History,
		logger:   logger,
	}, nil
}

// Spec returns the import spec derived from the project directory.
func (c *Converter) Spec() descriptor.ImportSpec {
	return c.spec
}

// ProjectDir returns the absolute project directory.
func (c *Converter) ProjectDir() string {
	return c.opts.ProjectDir
}

// IsFresh reports whether raw already carries the tool marker.
func IsFresh(raw string) bool {
	return strings.Contains(raw, descriptor.MarkerComment())
}

// skipReason returns why a pass-through applies, or "".
func (c *Converter) skipReason(mode descriptor.Mode) string {
	switch {
	case !c.opts.Enabled:
		return ReasonDisabled
	case mode == descriptor.ModeBuild && c.opts.DisableOnBuild:
		return ReasonDisabledOnBuild
	case c.opts.Debug && c.opts.DisableInDebug:
		return ReasonDisabledInDebug
	}
	return ""
}

// Convert is the in-memory boundary: the descriptor text at path in, the new
// text out. It may scaffold companion files but never writes the descriptor.
func (c *Converter) Convert(ctx context.Context, path, raw string, mode descriptor.Mode) (string, Result, error) {
	res := Result{Path: path, Mode: mode}

	if reason := c.skipReason(mode); reason != "" {
		res.Skipped, res.Reason = true, reason
		return raw, res, nil
	}
	if IsFresh(raw) {
		res.Skipped, res.Reason = true, ReasonAlreadyConverted
		return raw, res, nil
	}

	if !c.opts.DryRun {
		created, err := scaffold.EnsureCompanions(c.opts.ProjectDir, c.spec, c.opts.DirectoryBuild)
		res.Scaffolded = created
		if err != nil {
			return raw, res, fmt.Errorf("scaffold companions: %w", err)
		}
		for _, p := range created {
			c.logger.Info("created companion file", "path", p)
		}
	}

	// The identifier is only resolved when it will be stamped.
	if c.opts.SdkStyle && !descriptor.DeclaresSdk(raw) {
		id, err := c.strategy.Identifier(ctx)
		if err != nil {
			return raw, res, fmt.Errorf("resolve sdk identifier: %w", err)
		}
		res.Sdk = id
	}

	out := c.rewriter.Rewrite(raw, mode, c.opts.SdkStyle, res.Sdk)
	if out == raw {
		res.Skipped, res.Reason = true, ReasonMalformed
		return raw, res, nil
	}
	res.Changed = true
	return out, res, nil
}

// ConvertFile rewrites the descriptor at path in place.
func (c *Converter) ConvertFile(ctx context.Context, path string, mode descriptor.Mode) (Result, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Result{Path: path, Mode: mode}, fmt.Errorf("stat descriptor: %w", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Result{Path: path, Mode: mode}, fmt.Errorf("read descriptor: %w", err)
	}

	out, res, err := c.Convert(ctx, path, string(data), mode)
	if err != nil {
		return res, err
	}

	log := c.logger.With("path", path, "mode", mode.String())
	switch {
	case res.Skipped:
		log.Debug("descriptor left unchanged", "reason", res.Reason)
	case c.opts.DryRun:
		log.Info("descriptor would be rewritten", "sdk", res.Sdk)
	default:
		if err := os.WriteFile(path, []byte(out), info.Mode().Perm()); err != nil {
			return res, fmt.Errorf("write descriptor: %w", err)
		}
		log.Info("descriptor rewritten", "sdk", res.Sdk)
	}

	c.record(ctx, res)
	return res, nil
}

func (c *Converter) record(ctx context.Context, res Result) {
	if c.history == nil || c.opts.DryRun {
		return
	}
	err := c.history.RecordConversion(ctx, &core.Conversion{
		Path:    res.Path,
		Mode:    res.Mode.String(),
		Sdk:     res.Sdk,
		Changed: res.Changed,
		Skipped: res.Skipped,
		Reason:  res.Reason,
		At:      time.Now().UTC(),
	})
	if err != nil {
		c.logger.Warn("failed to record conversion", "path", res.Path, "error", err)
	}
}
