package descriptor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMode(t *testing.T) {
	tests := []struct {
		in      string
		want    Mode
		wantErr bool
	}{
		{in: "edit", want: ModeEdit},
		{in: "", want: ModeEdit},
		{in: "BUILD", want: ModeBuild},
		{in: " build ", want: ModeBuild},
		{in: "release", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseMode(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, mustParse(t, got.String()))
		})
	}
}

func mustParse(t *testing.T, s string) Mode {
	t.Helper()
	m, err := ParseMode(s)
	require.NoError(t, err)
	return m
}

func TestImportSpec_Active(t *testing.T) {
	spec := DefaultImportSpec("Game")

	assert.Equal(t, []ImportKind{KindShared, KindEditor}, spec.Active(ModeEdit))
	assert.Equal(t, []ImportKind{KindShared}, spec.Active(ModeBuild))
}

func TestImportSpec_Files(t *testing.T) {
	spec := DefaultImportSpec("Game")

	assert.Equal(t, "Game.UnityShared.props", spec.FileName(KindShared, GroupProps))
	assert.Equal(t, []string{
		"Game.UnityShared.props",
		"Game.UnityEditor.props",
		"Game.UnityShared.targets",
		"Game.UnityEditor.targets",
	}, spec.Files())
}

func TestNewImportSpec(t *testing.T) {
	spec, err := NewImportSpec("Game", []string{"editor", "Shared", "editor"})
	require.NoError(t, err)
	assert.Equal(t, []ImportKind{KindEditor, KindShared}, spec.Kinds, "order kept, duplicates dropped")

	_, err = NewImportSpec("Game", []string{"tests"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "shared, editor")
}
