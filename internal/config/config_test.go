package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "https://nominatim.openstreetmap.org", cfg.Geocode.BaseURL)
	assert.Equal(t, 1.0, cfg.Geocode.RateLimit)
	assert.Equal(t, "memory", cfg.Geocode.Cache.Backend)
	assert.Equal(t, 4, cfg.Resolve.Workers)
	assert.Equal(t, "latitude", cfg.Resolve.LatField)
	assert.Equal(t, "osm", cfg.Render.Basemap)
	assert.Equal(t, "html", cfg.Render.Format)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 512, cfg.Server.TileCacheCap)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("MAPCLI_RESOLVE_WORKERS", "16")
	t.Setenv("MAPCLI_GEOCODE_CACHE_BACKEND", "sqlite")
	t.Setenv("MAPCLI_LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 16, cfg.Resolve.Workers)
	assert.Equal(t, "sqlite", cfg.Geocode.Cache.Backend)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	yaml := []byte("render:\n  basemap: carto-dark\n  zoom: 9\nserver:\n  port: 9090\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), yaml, 0o644))
	t.Chdir(dir)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "carto-dark", cfg.Render.Basemap)
	assert.Equal(t, 9, cfg.Render.Zoom)
	assert.Equal(t, 9090, cfg.Server.Port)
	// untouched defaults survive
	assert.Equal(t, "html", cfg.Render.Format)
}

func TestInitLoggerBadLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "shouting", Format: "json"})
	assert.Error(t, err)
}

func TestInitLogger(t *testing.T) {
	require.NoError(t, InitLogger(LogConfig{Level: "debug", Format: "console"}))
}
