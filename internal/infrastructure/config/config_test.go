package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "8000", cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)

	assert.Equal(t, 50, cfg.Navigation.MaxEntryCount)
	assert.False(t, cfg.Navigation.SubframeHistoryNavigation)
	assert.True(t, cfg.Navigation.SubframeEntryTracking)

	assert.Equal(t, 2, cfg.Renderer.RetryMax)
	assert.Equal(t, int64(5<<20), cfg.Renderer.MaxDocumentSize)

	assert.Equal(t, "info", cfg.Logging.Level)
	assert.False(t, cfg.Logging.Development)

	assert.Equal(t, 100, cfg.RateLimit.RequestsPerSecond)
	assert.Equal(t, 200, cfg.RateLimit.Burst)
	assert.True(t, cfg.RateLimit.Enabled)
}

func TestLoadMatchesDefault(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadWithEnvironmentVariables(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("HOST", "127.0.0.1")
	t.Setenv("NAV_MAX_ENTRIES", "10")
	t.Setenv("NAV_SUBFRAME_HISTORY", "true")
	t.Setenv("RENDERER_TIMEOUT", "2s")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("RATE_LIMIT_ENABLED", "false")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Server.Port)
	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, 10, cfg.Navigation.MaxEntryCount)
	assert.True(t, cfg.Navigation.SubframeHistoryNavigation)
	assert.Equal(t, 2*time.Second, cfg.Renderer.Timeout)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.False(t, cfg.RateLimit.Enabled)
}

func TestLoadWithInvalidEnvironment(t *testing.T) {
	t.Setenv("NAV_MAX_ENTRIES", "lots")

	_, err := Load()
	assert.Error(t, err)

	cfg := LoadOrDefault()
	assert.Equal(t, 50, cfg.Navigation.MaxEntryCount)
}

func TestLoadWithFileOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "framenav.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[navigation]
max_entry_count = 5
subframe_history_navigation = true

[session]
dir = "/var/lib/framenav"
`), 0o600))
	t.Setenv(FileEnv, path)
	t.Setenv("PORT", "7000")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.Navigation.MaxEntryCount)
	assert.True(t, cfg.Navigation.SubframeHistoryNavigation)
	assert.True(t, cfg.Navigation.SubframeEntryTracking, "keys absent from the file keep their values")
	assert.Equal(t, "/var/lib/framenav", cfg.Session.Dir)
	assert.Equal(t, "7000", cfg.Server.Port)
}

func TestLoadFileErrors(t *testing.T) {
	var cfg Config
	assert.Error(t, LoadFile(filepath.Join(t.TempDir(), "missing.toml"), &cfg))

	bad := filepath.Join(t.TempDir(), "bad.toml")
	require.NoError(t, os.WriteFile(bad, []byte("[navigation\n"), 0o600))
	assert.Error(t, LoadFile(bad, &cfg))
}
