package effect_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/skirmish/internal/game/effect"
)

func TestRegistry_Get(t *testing.T) {
	reg := effect.NewRegistry()
	def := poison()
	reg.Register(def)
	got, ok := reg.Get("poison")
	require.True(t, ok)
	assert.Same(t, def, got)
	_, ok = reg.Get("missing")
	assert.False(t, ok)
}

func TestDefaultRegistry_AllValid(t *testing.T) {
	reg := effect.DefaultRegistry()
	require.NotZero(t, reg.Len())
	for _, d := range reg.All() {
		assert.NoError(t, d.Validate(), d.ID)
	}
}

func TestDef_Validate(t *testing.T) {
	assert.Error(t, (&effect.Def{Type: effect.Poison, Duration: 1}).Validate())
	assert.Error(t, (&effect.Def{ID: "x", Type: "sparkle", Duration: 1}).Validate())
	assert.Error(t, (&effect.Def{ID: "x", Type: effect.Poison, Duration: 0}).Validate())
	assert.Error(t, (&effect.Def{ID: "x", Type: effect.Poison, Magnitude: -1, Duration: 1}).Validate())
	assert.NoError(t, (&effect.Def{ID: "x", Type: effect.Poison, Duration: effect.Permanent}).Validate())
}

func TestLoadDirectory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "poison.yaml"), []byte(`
id: poison
name: Poison
type: poison
magnitude: 5
duration: 3
`), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("ignored"), 0644))

	reg, err := effect.LoadDirectory(dir)
	require.NoError(t, err)
	def, ok := reg.Get("poison")
	require.True(t, ok)
	assert.Equal(t, 5, def.Magnitude)
	assert.False(t, def.Stackable)
}

func TestLoadDirectory_UnknownField(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.yaml"), []byte(`
id: poison
type: poison
duration: 3
potency: 9
`), 0644))
	_, err := effect.LoadDirectory(dir)
	assert.Error(t, err)
}

func TestLoadDirectory_Missing(t *testing.T) {
	_, err := effect.LoadDirectory("/nonexistent/effects")
	assert.Error(t, err)
}
