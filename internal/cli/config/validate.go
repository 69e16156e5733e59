package config

import (
	"fmt"
	"net/url"

	"github.com/leapstack-labs/sdkproj/internal/cli/output"
	"github.com/leapstack-labs/sdkproj/internal/descriptor"
	"github.com/leapstack-labs/sdkproj/internal/sdk"
)

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if !sdk.IsRegistered(c.Generator.Strategy) {
		return &sdk.UnknownStrategyError{Name: c.Generator.Strategy, Available: sdk.Names()}
	}
	if c.Generator.Strategy == sdk.StrategyCustom {
		if err := sdk.ValidateCustom(c.Generator.CustomSdk); err != nil {
			return fmt.Errorf("generator.custom_sdk: %w\nHint: Set generator.custom_sdk to name/version, e.g. My.Sdk/1.0.0", err)
		}
	}
	if c.Registry.TimeoutMs <= 0 {
		return fmt.Errorf("registry.timeout_ms must be positive, got %d", c.Registry.TimeoutMs)
	}
	if c.Registry.PackageID == "" {
		return fmt.Errorf("registry.package_id is required")
	}
	if u, err := url.Parse(c.Registry.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("registry.base_url %q is not an absolute URL", c.Registry.BaseURL)
	}
	if c.Concurrency < 1 {
		return fmt.Errorf("concurrency must be at least 1, got %d", c.Concurrency)
	}
	if c.Watch.DebounceMs < 0 {
		return fmt.Errorf("watch.debounce_ms must not be negative, got %d", c.Watch.DebounceMs)
	}
	if !output.IsValidMode(c.OutputFormat) {
		return fmt.Errorf("unknown output format %q (expected one of %v)", c.OutputFormat, output.Modes())
	}
	if _, err := descriptor.NewImportSpec("", c.Imports.Kinds); err != nil {
		return fmt.Errorf("imports.kinds: %w", err)
	}
	return nil
}
