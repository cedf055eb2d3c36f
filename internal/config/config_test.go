package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir()) // no config.yaml present

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "data/landsync.db", cfg.Store.DatabaseURL)
	assert.Equal(t, "data/ko_register.json", cfg.Catalog.Path)
	assert.Equal(t, "data/offers.json", cfg.Dataset.Path)
	assert.Contains(t, cfg.Feed.RSSURL, "e-uprava.gov.si")
	assert.Equal(t, 2, cfg.Enrich.Workers)
	assert.Equal(t, 2*time.Second, cfg.Enrich.MinInterval())
	assert.Equal(t, 500*time.Millisecond, cfg.Geometry.MinInterval())
	assert.Equal(t, "local", cfg.OCR.Provider)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("LANDSYNC_STORE_DRIVER", "postgres")
	t.Setenv("LANDSYNC_ENRICH_WORKERS", "8")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, 8, cfg.Enrich.Workers)
}

func TestInitLoggerRejectsBadLevel(t *testing.T) {
	require.Error(t, InitLogger(LogConfig{Level: "shout"}))
	require.NoError(t, InitLogger(LogConfig{Level: "debug", Format: "console"}))
}
