package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadRequiresAPIKey(t *testing.T) {
	t.Setenv("OTD_API_KEY", "")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("OTD_API_KEY", "test-key")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "test-key", cfg.OTDAPIKey)
	assert.Equal(t, time.Minute, cfg.SnapshotMaxAge)
	assert.Equal(t, time.Hour, cfg.SweepInterval)
	assert.Equal(t, []float64{2.0, 4.0}, cfg.SearchRadiiKm)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("OTD_API_KEY", "test-key")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("SNAPSHOT_MAX_AGE", "30s")
	t.Setenv("SEARCH_RADII_KM", "1.5, 3, 6")
	t.Setenv("RATE_LIMIT_WHITELIST", "10.0.0.1, 10.0.0.2")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
	assert.Equal(t, 30*time.Second, cfg.SnapshotMaxAge)
	assert.Equal(t, []float64{1.5, 3, 6}, cfg.SearchRadiiKm)
	assert.Equal(t, []string{"10.0.0.1", "10.0.0.2"}, cfg.RateLimitWhitelist)
}

func TestLoadBadValuesFallBack(t *testing.T) {
	t.Setenv("OTD_API_KEY", "test-key")
	t.Setenv("SNAPSHOT_MAX_AGE", "not-a-duration")
	t.Setenv("SEARCH_RADII_KM", "wide")
	t.Setenv("LOG_LEVEL", "loud")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, time.Minute, cfg.SnapshotMaxAge)
	assert.Equal(t, []float64{2.0, 4.0}, cfg.SearchRadiiKm)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
}
