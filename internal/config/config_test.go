package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	// Run from a directory with no config file so defaults apply.
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { os.Chdir(wd) }) //nolint:errcheck

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.InDelta(t, 0.70, cfg.Scoring.StreetWeight, 0.001)
	assert.InDelta(t, 0.30, cfg.Scoring.CityStateZipWeight, 0.001)
	assert.InDelta(t, 60, cfg.Scoring.NoStreetFallback, 0.001)
	assert.Equal(t, 500, cfg.Scoring.ChunkSize)
	assert.Equal(t, 4, cfg.Scoring.Concurrency)
	assert.InDelta(t, 85, cfg.Classify.MatchThreshold, 0.001)
	assert.InDelta(t, 60, cfg.Classify.WeakThreshold, 0.001)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoad_EnvOverride(t *testing.T) {
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { os.Chdir(wd) }) //nolint:errcheck

	t.Setenv("LICVERIFY_CLASSIFY_MATCH_THRESHOLD", "90")
	t.Setenv("LICVERIFY_STORE_DRIVER", "sqlite")

	cfg, err := Load()
	require.NoError(t, err)
	assert.InDelta(t, 90, cfg.Classify.MatchThreshold, 0.001)
	assert.Equal(t, "sqlite", cfg.Store.Driver)
}

func TestLoadProfiles(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profiles.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
profiles:
  default:
    match_threshold: 85
    weak_threshold: 60
  strict:
    match_threshold: 95
    weak_threshold: 80
`), 0o644))

	profiles, err := LoadProfiles(path)
	require.NoError(t, err)
	require.Len(t, profiles, 2)
	assert.InDelta(t, 95, profiles["strict"].MatchThreshold, 0.001)
	assert.InDelta(t, 60, profiles["default"].WeakThreshold, 0.001)
}

func TestLoadProfiles_InvalidThresholds(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profiles.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
profiles:
  inverted:
    match_threshold: 50
    weak_threshold: 60
`), 0o644))

	_, err := LoadProfiles(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must exceed")
}

func TestLoadProfiles_MissingFile(t *testing.T) {
	_, err := LoadProfiles(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
