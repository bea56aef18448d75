package engine

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultCatalog(t *testing.T) {
	c := DefaultCatalog()
	require.Len(t, c.Products, 3)

	engine, ok := c.First(CategoryEngine)
	require.True(t, ok)
	assert.Equal(t, 12.0, engine.Spec("nominal_power_mw", 0))
	assert.Equal(t, 800.0, engine.Spec("capex_per_kw", 0))
	assert.Equal(t, 42.0, engine.Spec("missing", 42))

	_, ok = c.First("wind")
	assert.False(t, ok)
}

func TestParseCatalog(t *testing.T) {
	t.Run("Valid", func(t *testing.T) {
		c, err := ParseCatalog([]byte(`
products:
  - name: Small Engine
    category: engine
    specs:
      nominal_power_mw: 4
`))
		require.NoError(t, err)
		p, ok := c.First(CategoryEngine)
		require.True(t, ok)
		assert.Equal(t, "Small Engine", p.Name)
	})

	t.Run("No Engine", func(t *testing.T) {
		_, err := ParseCatalog([]byte("products:\n  - name: PV\n    category: solar\n"))
		assert.ErrorContains(t, err, "no engine")
	})

	t.Run("No Nominal Power", func(t *testing.T) {
		_, err := ParseCatalog([]byte("products:\n  - name: E\n    category: engine\n"))
		assert.ErrorContains(t, err, "nominal_power_mw")
	})

	t.Run("Bad YAML", func(t *testing.T) {
		_, err := ParseCatalog([]byte("products: [:"))
		assert.Error(t, err)
	})
}

func TestLoadCatalog(t *testing.T) {
	c, err := LoadCatalog("")
	require.NoError(t, err)
	assert.Equal(t, DefaultCatalog(), c)

	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
products:
  - name: Big Engine
    category: engine
    specs:
      nominal_power_mw: 20
      capex_per_kw: 900
`), 0o600))
	c, err = LoadCatalog(path)
	require.NoError(t, err)
	p, _ := c.First(CategoryEngine)
	assert.Equal(t, 20.0, p.Spec("nominal_power_mw", 0))

	_, err = LoadCatalog(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
