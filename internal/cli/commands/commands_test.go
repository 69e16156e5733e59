package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/sdkproj/internal/cli/config"
	"github.com/leapstack-labs/sdkproj/internal/cli/testutil"
	"github.com/leapstack-labs/sdkproj/internal/sdk"
)

// testProject creates <tmp>/Game with one legacy descriptor and returns a
// JSON-mode config rooted there.
func testProject(t *testing.T) *config.Config {
	t.Helper()
	dir := testutil.SetupTestProject(t, "Game")

	cfg := config.Default()
	cfg.ProjectDir = dir
	cfg.StatePath = filepath.Join(dir, config.DefaultStateFile)
	cfg.OutputFormat = "json"
	cfg.Generator.Strategy = sdk.StrategyCustom
	cfg.Generator.CustomSdk = "My.Sdk/1.0.0"
	return cfg
}

func execute(t *testing.T, cmd *cobra.Command, cfg *config.Config, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(config.NewContext(context.Background(), cfg))
	return out.String(), err
}

func TestCommandMetadata(t *testing.T) {
	tests := []struct {
		cmd   *cobra.Command
		use   string
		flags []string
	}{
		{NewConvertCommand(), "convert [paths...]", []string{"mode", "optimization", "dry-run", "directory-build"}},
		{NewWatchCommand(), "watch [directory]", []string{"mode", "optimization", "debounce-ms", "directory-build"}},
		{NewResolveCommand(), "resolve", []string{"refresh"}},
		{NewCacheCommand(), "cache", nil},
		{NewHistoryCommand(), "history", []string{"limit"}},
		{NewInitCommand(), "init [directory]", []string{"force", "no-scaffold"}},
	}

	for _, tt := range tests {
		t.Run(tt.use, func(t *testing.T) {
			assert.Equal(t, tt.use, tt.cmd.Use)
			assert.NotEmpty(t, tt.cmd.Short, "Short should not be empty")
			for _, flag := range tt.flags {
				assert.NotNil(t, tt.cmd.Flags().Lookup(flag), "flag %q should exist", flag)
			}
		})
	}
}

func TestCacheSubcommands(t *testing.T) {
	cmd := NewCacheCommand()
	names := make([]string, 0, len(cmd.Commands()))
	for _, c := range cmd.Commands() {
		names = append(names, c.Name())
	}
	assert.ElementsMatch(t, []string{"show", "reset"}, names)
}

func TestConvertCommand(t *testing.T) {
	cfg := testProject(t)

	out, err := execute(t, NewConvertCommand(), cfg)
	require.NoError(t, err)

	var doc ConvertOutput
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	assert.False(t, doc.DryRun)
	assert.Equal(t, ConvertSummary{Total: 1, Changed: 1}, doc.Summary)
	require.Len(t, doc.Conversions, 1)
	assert.Equal(t, "My.Sdk/1.0.0", doc.Conversions[0].Sdk)
	assert.Equal(t, "edit", doc.Conversions[0].Mode)

	data, err := os.ReadFile(filepath.Join(cfg.ProjectDir, testutil.DescriptorName))
	require.NoError(t, err)
	assert.Contains(t, string(data), `<Project Sdk="My.Sdk/1.0.0">`)
	assert.Contains(t, string(data), `<Import Project="Game.UnityEditor.props"`)

	assert.FileExists(t, filepath.Join(cfg.ProjectDir, "Game.UnityShared.props"))
	assert.FileExists(t, filepath.Join(cfg.ProjectDir, "Directory.Build.props"))

	t.Run("second run skips converted descriptor", func(t *testing.T) {
		out, err := execute(t, NewConvertCommand(), cfg)
		require.NoError(t, err)

		var doc ConvertOutput
		require.NoError(t, json.Unmarshal([]byte(out), &doc))
		assert.Equal(t, ConvertSummary{Total: 1, Skipped: 1}, doc.Summary)
	})

	t.Run("history lists both runs", func(t *testing.T) {
		out, err := execute(t, NewHistoryCommand(), cfg)
		require.NoError(t, err)

		var entries []HistoryEntryOutput
		require.NoError(t, json.Unmarshal([]byte(out), &entries))
		require.Len(t, entries, 2)
		assert.True(t, entries[0].Skipped, "newest first")
		assert.True(t, entries[1].Changed)
	})
}

func TestConvertCommand_DryRun(t *testing.T) {
	cfg := testProject(t)
	path := filepath.Join(cfg.ProjectDir, testutil.DescriptorName)

	out, err := execute(t, NewConvertCommand(), cfg, "--dry-run", "--mode", "build", path)
	require.NoError(t, err)

	var doc ConvertOutput
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	assert.True(t, doc.DryRun)
	require.Len(t, doc.Conversions, 1)
	assert.Equal(t, "build", doc.Conversions[0].Mode)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, testutil.LegacyDescriptor, string(data), "dry run must not write")
	assert.NoFileExists(t, filepath.Join(cfg.ProjectDir, "Game.UnityShared.props"))
}

func TestConvertCommand_InvalidFlags(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{name: "mode", args: []string{"--mode", "release"}},
		{name: "optimization", args: []string{"--optimization", "fast"}},
		{name: "missing path", args: []string{"does-not-exist.csproj"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, NewConvertCommand(), testProject(t), tt.args...)
			assert.Error(t, err)
		})
	}
}

func registryServer(t *testing.T, body string) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func TestResolveCommand_Void(t *testing.T) {
	srv, calls := registryServer(t, `{"versions":["1.0.0","1.2.0"]}`)
	cfg := testProject(t)
	cfg.Generator.Strategy = sdk.StrategyVoid
	cfg.Registry.BaseURL = srv.URL

	out, err := execute(t, NewResolveCommand(), cfg)
	require.NoError(t, err)

	var doc ResolveOutput
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	assert.Equal(t, "Csproj.Sdk.Void/1.2.0", doc.Identifier)
	assert.Equal(t, sdk.StrategyVoid, doc.Strategy)
	assert.Equal(t, "resolved", doc.State)
	assert.Equal(t, int32(1), calls.Load())

	t.Run("second run is served from the cache", func(t *testing.T) {
		out, err := execute(t, NewResolveCommand(), cfg)
		require.NoError(t, err)

		var doc ResolveOutput
		require.NoError(t, json.Unmarshal([]byte(out), &doc))
		assert.Equal(t, "Csproj.Sdk.Void/1.2.0", doc.Identifier)
		assert.Equal(t, "cached", doc.State)
		assert.Equal(t, int32(1), calls.Load())
	})

	t.Run("refresh queries again", func(t *testing.T) {
		_, err := execute(t, NewResolveCommand(), cfg, "--refresh")
		require.NoError(t, err)
		assert.Equal(t, int32(2), calls.Load())
	})

	t.Run("cache show lists the entry", func(t *testing.T) {
		out, err := execute(t, NewCacheCommand(), cfg, "show")
		require.NoError(t, err)

		var rows []CacheEntryOutput
		require.NoError(t, json.Unmarshal([]byte(out), &rows))
		require.Len(t, rows, 1)
		assert.Equal(t, "Csproj.Sdk.Void", rows[0].PackageID)
		assert.Equal(t, "1.2.0", rows[0].CachedVersion)
		assert.True(t, rows[0].Fresh)
	})

	t.Run("cache reset empties the cache", func(t *testing.T) {
		_, err := execute(t, NewCacheCommand(), cfg, "reset")
		require.NoError(t, err)

		out, err := execute(t, NewCacheCommand(), cfg, "show")
		require.NoError(t, err)
		var rows []CacheEntryOutput
		require.NoError(t, json.Unmarshal([]byte(out), &rows))
		assert.Empty(t, rows)
	})
}

func TestResolveCommand_RegistryFailureFallsBack(t *testing.T) {
	srv, _ := registryServer(t, `not json`)
	cfg := testProject(t)
	cfg.Generator.Strategy = sdk.StrategyVoid
	cfg.Registry.BaseURL = srv.URL

	out, err := execute(t, NewResolveCommand(), cfg)
	require.NoError(t, err)

	var doc ResolveOutput
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	assert.Equal(t, "Csproj.Sdk.Void/1.1.0", doc.Identifier)
	assert.Equal(t, "failed", doc.State)
}

func TestResolveCommand_Custom(t *testing.T) {
	cfg := testProject(t)

	out, err := execute(t, NewResolveCommand(), cfg)
	require.NoError(t, err)

	var doc ResolveOutput
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	assert.Equal(t, ResolveOutput{Identifier: "My.Sdk/1.0.0", Strategy: sdk.StrategyCustom}, doc)
}

func TestConvertCommand_MarkdownOutput(t *testing.T) {
	cfg := testProject(t)
	cfg.OutputFormat = "markdown"

	out, err := execute(t, NewConvertCommand(), cfg)
	require.NoError(t, err)
	assert.Contains(t, out, "# Conversions")
	assert.Contains(t, out, "`Assembly-CSharp.csproj`")
	assert.Contains(t, out, "1 total, 1 changed, 0 skipped")
	testutil.AssertNoANSI(t, out)
	testutil.AssertValidMarkdown(t, out)
}
