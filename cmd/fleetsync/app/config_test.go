package app

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("HOME", t.TempDir())

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "config.yaml", cfg.ConfigFile)
	assert.Equal(t, "auto", cfg.LogFormat)
	assert.Equal(t, "stderr", cfg.LogOutput)
	assert.Empty(t, cfg.SettingsFile)
}

func TestLoadConfigEnvironment(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("HOME", t.TempDir())
	t.Setenv("FLEETSYNC_CONFIG_FILE", "fleet.yaml")
	t.Setenv("FLEETSYNC_FORMAT", "json")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "fleet.yaml", cfg.ConfigFile)
	assert.Equal(t, "json", cfg.Format)
	assert.Equal(t, "debug", cfg.EnvLogLevel)
	assert.Empty(t, cfg.LogLevel)
}

func TestLoadConfigSettingsFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("HOME", t.TempDir())
	settings := "config_file: fleets/main.yaml\nno_color: true\nlog_format: console\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".fleetsync.yaml"), []byte(settings), 0o644))

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "fleets/main.yaml", cfg.ConfigFile)
	assert.True(t, cfg.NoColor)
	assert.Equal(t, "console", cfg.LogFormat)
	assert.Equal(t, ".fleetsync.yaml", filepath.Base(cfg.SettingsFile))
}

func TestLoadConfigDotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("HOME", t.TempDir())
	// Registered so the value loaded from .env is cleared after the test.
	t.Setenv("FLEETSYNC_LOG_OUTPUT", "")
	require.NoError(t, os.Unsetenv("FLEETSYNC_LOG_OUTPUT"))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("FLEETSYNC_LOG_OUTPUT=stdout\n"), 0o644))

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "stdout", cfg.LogOutput)
}

func TestUpdateFromFlags(t *testing.T) {
	cfg := &Config{Format: "yaml"}
	cfg.UpdateFromFlags(true, false, true, "", "trace")
	assert.True(t, cfg.Verbose)
	assert.True(t, cfg.NoColor)
	assert.Equal(t, "yaml", cfg.Format)
	assert.Equal(t, "trace", cfg.LogLevel)

	cfg.UpdateFromFlags(false, true, false, "json", "")
	assert.Equal(t, "json", cfg.Format)
	assert.True(t, cfg.Quiet)
}
