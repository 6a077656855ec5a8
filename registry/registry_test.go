package registry

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantview/quantview/model"
)

func TestBuiltinCatalog(t *testing.T) {
	registry := New()

	for _, id := range []string{"sma", "ema", "rsi", "macd", "bbands", "stoch", "willr"} {
		definition, ok := registry.Get(id)
		require.True(t, ok, "missing definition %s", id)
		assert.Equal(t, id, definition.ID)
		assert.NotEmpty(t, definition.Name)
		assert.NotEmpty(t, definition.Params)
	}

	macd, _ := registry.Get("macd")
	assert.Equal(t, model.PaneSub, macd.DefaultPane)
	assert.Equal(t, model.KindOscillator, macd.Kind)

	sma, _ := registry.Get("sma")
	assert.Equal(t, model.PaneMain, sma.DefaultPane)
}

func TestListOrderIsStable(t *testing.T) {
	first := New().List()
	second := New().List()
	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].ID, second[i].ID)
	}
}

func TestDirectoryDefinitions(t *testing.T) {
	dir := t.TempDir()

	custom := `{
		"id": "vwap",
		"name": "VWAP",
		"kind": "overlay",
		"defaultPane": "main",
		"parameterSchema": {"period": {"type": "number", "default": 14}}
	}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "vwap.json"), []byte(custom), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.json"), []byte("{nope"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "noid.json"), []byte("{}"), 0o644))

	registry := New(WithDirectory(dir))

	definition, ok := registry.Get("vwap")
	require.True(t, ok)
	assert.Equal(t, "VWAP", definition.Name)
	assert.Equal(t, model.KindOverlay, definition.Kind)

	// malformed files are skipped, built-ins still present
	_, ok = registry.Get("sma")
	assert.True(t, ok)
}

func TestMissingDirectoryIsNotFatal(t *testing.T) {
	registry := New(WithDirectory("/does/not/exist"))
	_, ok := registry.Get("sma")
	assert.True(t, ok)
}
