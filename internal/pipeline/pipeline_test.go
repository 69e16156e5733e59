package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/sdkproj/internal/descriptor"
	"github.com/leapstack-labs/sdkproj/internal/sdk"
	"github.com/leapstack-labs/sdkproj/internal/state"
	"github.com/leapstack-labs/sdkproj/internal/testutil"
	"github.com/leapstack-labs/sdkproj/pkg/core"
)

const testSdk = "Csproj.Sdk.Void/1.2.3"

type memoryLog struct {
	mu    sync.Mutex
	items []*core.Conversion
	err   error
}

func (m *memoryLog) RecordConversion(_ context.Context, c *core.Conversion) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = append(m.items, c)
	return m.err
}

type failingStrategy struct{}

func (failingStrategy) Name() string { return "failing" }
func (failingStrategy) Identifier(context.Context) (string, error) {
	return "", errors.New("no identifier")
}

// setupProject copies the fixture descriptor into a fresh "Game" project directory.
func setupProject(t *testing.T, names ...string) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "Game")
	require.NoError(t, os.MkdirAll(dir, 0o755))

	data, err := os.ReadFile(filepath.Join("testdata", "Game.csproj"))
	require.NoError(t, err)
	if len(names) == 0 {
		names = []string{"Game.csproj"}
	}
	for _, name := range names {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), data, 0o644))
	}
	return dir
}

func enabledOptions(dir string) Options {
	return Options{Enabled: true, SdkStyle: true, ProjectDir: dir}
}

func newConverter(t *testing.T, opts Options, history core.ConversionLog) *Converter {
	t.Helper()
	strategy, err := sdk.New(sdk.StrategyCustom, sdk.Deps{CustomSdk: testSdk})
	require.NoError(t, err)

	c, err := New(Config{Options: opts, Strategy: strategy, History: history, Logger: testutil.NewTestLogger(t)})
	require.NoError(t, err)
	return c
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestNew(t *testing.T) {
	t.Run("import spec follows project directory", func(t *testing.T) {
		dir := setupProject(t)
		c := newConverter(t, enabledOptions(dir), nil)
		assert.Equal(t, "Game", c.Spec().ProjectName)
		assert.Equal(t, dir, c.ProjectDir())
		assert.Len(t, c.Spec().Kinds, 2)
	})

	t.Run("custom kinds", func(t *testing.T) {
		opts := enabledOptions(setupProject(t))
		opts.Kinds = []string{"editor"}
		c := newConverter(t, opts, nil)
		require.Len(t, c.Spec().Kinds, 1)
		assert.Equal(t, descriptor.KindEditor, c.Spec().Kinds[0])
	})

	t.Run("unknown kind", func(t *testing.T) {
		opts := enabledOptions(setupProject(t))
		opts.Kinds = []string{"runtime"}
		_, err := New(Config{Options: opts, Strategy: failingStrategy{}})
		assert.ErrorContains(t, err, "unknown import kind")
	})

	t.Run("sdk style without strategy", func(t *testing.T) {
		_, err := New(Config{Options: enabledOptions(setupProject(t))})
		assert.ErrorContains(t, err, "requires an sdk strategy")
	})
}

func TestConvertFile_Rewrites(t *testing.T) {
	dir := setupProject(t)
	history := &memoryLog{}
	c := newConverter(t, enabledOptions(dir), history)
	path := filepath.Join(dir, "Game.csproj")

	res, err := c.ConvertFile(context.Background(), path, descriptor.ModeEdit)
	require.NoError(t, err)

	assert.True(t, res.Changed)
	assert.False(t, res.Skipped)
	assert.Equal(t, testSdk, res.Sdk)
	assert.Len(t, res.Scaffolded, 4)

	out := readFile(t, path)
	assert.Contains(t, out, `<Project Sdk="`+testSdk+`">`)
	assert.Contains(t, out, `<Import Project="Game.UnityEditor.props"/>`)
	assert.Contains(t, out, "Package-sdkproj")

	for _, name := range c.Spec().Files() {
		assert.FileExists(t, filepath.Join(dir, name))
	}

	require.Len(t, history.items, 1)
	assert.Equal(t, path, history.items[0].Path)
	assert.Equal(t, "edit", history.items[0].Mode)
	assert.True(t, history.items[0].Changed)
}

func TestConvertFile_SkipRules(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Options)
		mode   descriptor.Mode
		reason string
	}{
		{
			name:   "generator disabled",
			mutate: func(o *Options) { o.Enabled = false },
			mode:   descriptor.ModeEdit,
			reason: ReasonDisabled,
		},
		{
			name:   "disabled on build",
			mutate: func(o *Options) { o.DisableOnBuild = true },
			mode:   descriptor.ModeBuild,
			reason: ReasonDisabledOnBuild,
		},
		{
			name:   "disabled in debug",
			mutate: func(o *Options) { o.DisableInDebug, o.Debug = true, true },
			mode:   descriptor.ModeEdit,
			reason: ReasonDisabledInDebug,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := setupProject(t)
			opts := enabledOptions(dir)
			tt.mutate(&opts)
			path := filepath.Join(dir, "Game.csproj")
			before := readFile(t, path)

			res, err := newConverter(t, opts, nil).ConvertFile(context.Background(), path, tt.mode)
			require.NoError(t, err)

			assert.True(t, res.Skipped)
			assert.Equal(t, tt.reason, res.Reason)
			assert.Equal(t, before, readFile(t, path))
			assert.NoFileExists(t, filepath.Join(dir, "Game.UnityShared.props"), "skipped passes do not scaffold")
		})
	}
}

func TestConvertFile_DisableOnBuildKeepsEditMode(t *testing.T) {
	dir := setupProject(t)
	opts := enabledOptions(dir)
	opts.DisableOnBuild = true

	res, err := newConverter(t, opts, nil).ConvertFile(context.Background(), filepath.Join(dir, "Game.csproj"), descriptor.ModeEdit)
	require.NoError(t, err)
	assert.True(t, res.Changed)
}

func TestConvertFile_DebugWithoutDisableConverts(t *testing.T) {
	dir := setupProject(t)
	opts := enabledOptions(dir)
	opts.Debug = true

	res, err := newConverter(t, opts, nil).ConvertFile(context.Background(), filepath.Join(dir, "Game.csproj"), descriptor.ModeEdit)
	require.NoError(t, err)
	assert.True(t, res.Changed)
}

func TestConvertFile_AlreadyConverted(t *testing.T) {
	dir := setupProject(t)
	c := newConverter(t, enabledOptions(dir), nil)
	path := filepath.Join(dir, "Game.csproj")

	_, err := c.ConvertFile(context.Background(), path, descriptor.ModeEdit)
	require.NoError(t, err)
	once := readFile(t, path)

	res, err := c.ConvertFile(context.Background(), path, descriptor.ModeEdit)
	require.NoError(t, err)
	assert.True(t, res.Skipped)
	assert.Equal(t, ReasonAlreadyConverted, res.Reason)
	assert.Equal(t, once, readFile(t, path))
	assert.Equal(t, 2, strings.Count(once, descriptor.MarkerComment()))
}

func TestConvertFile_BuildModeSkipsEditorImports(t *testing.T) {
	dir := setupProject(t)
	path := filepath.Join(dir, "Game.csproj")

	res, err := newConverter(t, enabledOptions(dir), nil).ConvertFile(context.Background(), path, descriptor.ModeBuild)
	require.NoError(t, err)
	assert.True(t, res.Changed)

	out := readFile(t, path)
	assert.Contains(t, out, "Game.UnityShared.targets")
	assert.NotContains(t, out, "Game.UnityEditor")
	assert.FileExists(t, filepath.Join(dir, "Game.UnityEditor.props"), "every companion is scaffolded regardless of mode")
}

func TestConvertFile_SdkStyleOffSkipsResolution(t *testing.T) {
	dir := setupProject(t)
	opts := enabledOptions(dir)
	opts.SdkStyle = false

	c, err := New(Config{Options: opts, Strategy: failingStrategy{}})
	require.NoError(t, err)

	res, err := c.ConvertFile(context.Background(), filepath.Join(dir, "Game.csproj"), descriptor.ModeEdit)
	require.NoError(t, err)
	assert.True(t, res.Changed)
	assert.Empty(t, res.Sdk)
	assert.Contains(t, readFile(t, filepath.Join(dir, "Game.csproj")), `xmlns="`+descriptor.MSBuildNamespace+`"`)
}

func TestConvertFile_StrategyError(t *testing.T) {
	dir := setupProject(t)
	c, err := New(Config{Options: enabledOptions(dir), Strategy: failingStrategy{}})
	require.NoError(t, err)

	_, err = c.ConvertFile(context.Background(), filepath.Join(dir, "Game.csproj"), descriptor.ModeEdit)
	assert.ErrorContains(t, err, "resolve sdk identifier")
}

func TestConvertFile_Malformed(t *testing.T) {
	dir := setupProject(t)
	path := filepath.Join(dir, "Broken.csproj")
	require.NoError(t, os.WriteFile(path, []byte("<Project />"), 0o644))

	res, err := newConverter(t, enabledOptions(dir), nil).ConvertFile(context.Background(), path, descriptor.ModeEdit)
	require.NoError(t, err, "malformed descriptors are a diagnostic, not an error")
	assert.True(t, res.Skipped)
	assert.Equal(t, ReasonMalformed, res.Reason)
	assert.Equal(t, "<Project />", readFile(t, path))
}

func TestConvertFile_DryRun(t *testing.T) {
	dir := setupProject(t)
	opts := enabledOptions(dir)
	opts.DryRun = true
	history := &memoryLog{}
	path := filepath.Join(dir, "Game.csproj")
	before := readFile(t, path)

	res, err := newConverter(t, opts, history).ConvertFile(context.Background(), path, descriptor.ModeEdit)
	require.NoError(t, err)
	assert.True(t, res.Changed)
	assert.Equal(t, before, readFile(t, path))
	assert.NoFileExists(t, filepath.Join(dir, "Game.UnityShared.props"))
	assert.Empty(t, history.items)
}

func TestConvertFile_HistoryErrorIsLogged(t *testing.T) {
	dir := setupProject(t)
	history := &memoryLog{err: errors.New("disk full")}

	res, err := newConverter(t, enabledOptions(dir), history).ConvertFile(context.Background(), filepath.Join(dir, "Game.csproj"), descriptor.ModeEdit)
	require.NoError(t, err)
	assert.True(t, res.Changed)
}

func TestConvertFile_Missing(t *testing.T) {
	dir := setupProject(t)
	_, err := newConverter(t, enabledOptions(dir), nil).ConvertFile(context.Background(), filepath.Join(dir, "Nope.csproj"), descriptor.ModeEdit)
	assert.Error(t, err)
}

func TestConvertFile_RecordsToSQLite(t *testing.T) {
	store := state.NewSQLiteStore(nil)
	require.NoError(t, store.Open(":memory:"))
	require.NoError(t, store.Migrate())
	t.Cleanup(func() { _ = store.Close() })

	dir := setupProject(t)
	_, err := newConverter(t, enabledOptions(dir), store).ConvertFile(context.Background(), filepath.Join(dir, "Game.csproj"), descriptor.ModeBuild)
	require.NoError(t, err)

	got, err := store.ListConversions(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "build", got[0].Mode)
	assert.Equal(t, testSdk, got[0].Sdk)
	assert.NotEmpty(t, got[0].ID)
}

func TestConvert_InMemory(t *testing.T) {
	dir := setupProject(t)
	c := newConverter(t, enabledOptions(dir), nil)
	raw := readFile(t, filepath.Join(dir, "Game.csproj"))

	out, res, err := c.Convert(context.Background(), "virtual.csproj", raw, descriptor.ModeEdit)
	require.NoError(t, err)
	assert.True(t, res.Changed)
	assert.Equal(t, "virtual.csproj", res.Path)
	assert.True(t, IsFresh(out))
	assert.False(t, IsFresh(raw))
	assert.Equal(t, raw, readFile(t, filepath.Join(dir, "Game.csproj")), "Convert never writes the descriptor")
}

func TestConvert_ExistingSdkAttributeIsNotResolved(t *testing.T) {
	dir := setupProject(t)
	history := &memoryLog{}
	c, err := New(Config{
		Options:  enabledOptions(dir),
		Strategy: failingStrategy{},
		History:  history,
		Logger:   testutil.NewTestLogger(t),
	})
	require.NoError(t, err)

	path := filepath.Join(dir, "Custom.csproj")
	raw := `<?xml version="1.0" encoding="utf-8"?>
<Project Sdk="Studio.Sdk/2.0.0">
  <PropertyGroup />
</Project>
`
	require.NoError(t, os.WriteFile(path, []byte(raw), 0o644))

	res, err := c.ConvertFile(context.Background(), path, descriptor.ModeEdit)
	require.NoError(t, err, "the strategy must not be consulted")
	assert.True(t, res.Changed)
	assert.Empty(t, res.Sdk)
	assert.Contains(t, readFile(t, path), `Sdk="Studio.Sdk/2.0.0"`)

	require.Len(t, history.items, 1)
	assert.Empty(t, history.items[0].Sdk)
}
