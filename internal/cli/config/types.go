// Package config loads sdkproj settings from defaults, sdkproj.yaml,
// SDKPROJ_ environment variables and command-line flags.
package config

import (
	"time"

	"github.com/leapstack-labs/sdkproj/internal/registry"
	"github.com/leapstack-labs/sdkproj/internal/sdk"
	"github.com/leapstack-labs/sdkproj/internal/version"
)

// Config holds all CLI configuration options.
type Config struct {
	ProjectDir   string          `koanf:"project_dir" yaml:"project_dir,omitempty"`
	StatePath    string          `koanf:"state_path" yaml:"state_path"`
	Verbose      bool            `koanf:"verbose" yaml:"verbose"`
	OutputFormat string          `koanf:"output" yaml:"output"`
	Concurrency  int             `koanf:"concurrency" yaml:"concurrency"`
	Generator    GeneratorConfig `koanf:"generator" yaml:"generator"`
	Imports      ImportsConfig   `koanf:"imports" yaml:"imports"`
	Registry     RegistryConfig  `koanf:"registry" yaml:"registry"`
	Scaffold     ScaffoldConfig  `koanf:"scaffold" yaml:"scaffold"`
	Watch        WatchConfig     `koanf:"watch" yaml:"watch"`

	// ConfigFile is the file that was loaded, if any.
	ConfigFile string `koanf:"-" yaml:"-"`
}

// GeneratorConfig holds the generator toggles.
type GeneratorConfig struct {
	Enabled        bool   `koanf:"enabled" yaml:"enabled"`
	DisableOnBuild bool   `koanf:"disable_on_build" yaml:"disable_on_build"`
	DisableInDebug bool   `koanf:"disable_in_debug" yaml:"disable_in_debug"`
	SdkStyle       bool   `koanf:"sdk_style" yaml:"sdk_style"`
	Strategy       string `koanf:"strategy" yaml:"strategy"`
	CustomSdk      string `koanf:"custom_sdk" yaml:"custom_sdk,omitempty"`
}

// ImportsConfig lists companion import kinds in order.
type ImportsConfig struct {
	Kinds []string `koanf:"kinds" yaml:"kinds"`
}

// RegistryConfig points at the NuGet flat-container feed.
type RegistryConfig struct {
	BaseURL   string `koanf:"base_url" yaml:"base_url"`
	PackageID string `koanf:"package_id" yaml:"package_id"`
	TimeoutMs int    `koanf:"timeout_ms" yaml:"timeout_ms"`
}

// Timeout returns the request timeout.
func (r RegistryConfig) Timeout() time.Duration {
	return time.Duration(r.TimeoutMs) * time.Millisecond
}

// ScaffoldConfig controls companion file creation.
type ScaffoldConfig struct {
	DirectoryBuild bool `koanf:"directory_build" yaml:"directory_build"`
}

// WatchConfig controls the watch command.
type WatchConfig struct {
	DebounceMs int `koanf:"debounce_ms" yaml:"debounce_ms"`
}

// Debounce returns the debounce window.
func (w WatchConfig) Debounce() time.Duration {
	return time.Duration(w.DebounceMs) * time.Millisecond
}

// Default configuration values.
const (
	DefaultStateFile   = ".sdkproj/state.db"
	DefaultOutput      = "auto" // Auto-detect: TTY=text, non-TTY=markdown
	DefaultConcurrency = 4
	DefaultTimeoutMs   = int(version.DefaultTimeout / time.Millisecond)
	DefaultDebounceMs  = 250
	DefaultStrategy    = sdk.StrategyVoid
	DefaultBaseURL     = registry.DefaultBaseURL
	DefaultPackageID   = registry.DefaultPackageID
)

// ConfigFileNames are searched, in order, in the project root.
var ConfigFileNames = []string{"sdkproj.yaml", "sdkproj.yml"}

// DefaultKinds is the default import kind order.
func DefaultKinds() []string {
	return []string{"shared", "editor"}
}

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	return &Config{
		StatePath:    DefaultStateFile,
		OutputFormat: DefaultOutput,
		Concurrency:  DefaultConcurrency,
		Generator: GeneratorConfig{
			Enabled:  true,
			SdkStyle: true,
			Strategy: DefaultStrategy,
		},
		Imports: ImportsConfig{Kinds: DefaultKinds()},
		Registry: RegistryConfig{
			BaseURL:   DefaultBaseURL,
			PackageID: DefaultPackageID,
			TimeoutMs: DefaultTimeoutMs,
		},
		Scaffold: ScaffoldConfig{DirectoryBuild: true},
		Watch:    WatchConfig{DebounceMs: DefaultDebounceMs},
	}
}

// defaultMap is Default flattened into koanf keys.
func defaultMap() map[string]any {
	d := Default()
	return map[string]any{
		"state_path":                 d.StatePath,
		"verbose":                    d.Verbose,
		"output":                     d.OutputFormat,
		"concurrency":                d.Concurrency,
		"generator.enabled":          d.Generator.Enabled,
		"generator.disable_on_build": d.Generator.DisableOnBuild,
		"generator.disable_in_debug": d.Generator.DisableInDebug,
		"generator.sdk_style":        d.Generator.SdkStyle,
		"generator.strategy":         d.Generator.Strategy,
		"generator.custom_sdk":       d.Generator.CustomSdk,
		"imports.kinds":              d.Imports.Kinds,
		"registry.base_url":          d.Registry.BaseURL,
		"registry.package_id":        d.Registry.PackageID,
		"registry.timeout_ms":        d.Registry.TimeoutMs,
		"scaffold.directory_build":   d.Scaffold.DirectoryBuild,
		"watch.debounce_ms":          d.Watch.DebounceMs,
	}
}
