package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig_PassesValidation(t *testing.T) {
	cfg := DefaultConfig()
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfig_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadConfig_EmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestSaveThenLoadConfig_RoundTrips(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Stats.NumPerms = 1234
	cfg.Stats.Nonstationary = true
	cfg.Logging.Level = "debug"

	path := filepath.Join(t.TempDir(), "nested", "cfg.yaml")
	require.NoError(t, SaveConfig(cfg, path))

	_, err := os.Stat(path)
	require.NoError(t, err)

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 1234, loaded.Stats.NumPerms)
	assert.True(t, loaded.Stats.Nonstationary)
	assert.Equal(t, "debug", loaded.Logging.Level)
}

func TestValidate_RejectsOutOfRangeNumPerms(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Stats.NumPerms = 0
	assert.Error(t, cfg.Validate())

	cfg.Stats.NumPerms = 100001
	assert.Error(t, cfg.Validate())
}

func TestValidate_RejectsOutOfRangeAngle(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Stats.AngleDegrees = 0
	assert.Error(t, cfg.Validate())

	cfg.Stats.AngleDegrees = 91
	assert.Error(t, cfg.Validate())
}

func TestValidate_RejectsNegativeSmoothFWHM(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Stats.SmoothFWHM = -1
	assert.Error(t, cfg.Validate())
}

func TestValidate_ZeroSmoothFWHMIsAllowed(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Stats.SmoothFWHM = 0
	assert.NoError(t, cfg.Validate())
}
