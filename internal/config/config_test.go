package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/diskvigil/diskvigil/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resetArgs(t *testing.T, args ...string) {
	t.Helper()
	oldArgs := os.Args
	os.Args = append([]string{"diskvigild"}, args...)
	t.Cleanup(func() { os.Args = oldArgs })
}

func TestLoad(t *testing.T) {
	resetArgs(t)
	tempDir := t.TempDir()

	configContent := []byte(`
interval = 12
history_days = 14
data_source = "simulated"
scan_paths = ["/srv/data", "/var/log"]
database = "/path/to/diskvigil.db"
log_level = "debug"
monitor = true
`)
	configPath := filepath.Join(tempDir, "diskvigil.toml")
	err := os.WriteFile(configPath, configContent, 0o600)
	require.NoError(t, err)

	t.Setenv("DISKVIGIL_CONFIG", configPath)

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, 12, cfg.Interval, "Expected Interval 12")
	assert.Equal(t, 14, cfg.HistoryDays, "Expected HistoryDays 14")
	assert.Equal(t, "simulated", cfg.DataSource, "Expected DataSource simulated")
	assert.Equal(t, []string{"/srv/data", "/var/log"}, cfg.ScanPaths)
	assert.Equal(t, "/path/to/diskvigil.db", cfg.Database)
	assert.Equal(t, "debug", cfg.LogLevel, "Expected LogLevel debug")
	assert.True(t, cfg.Monitor, "Expected Monitor true")
}

func TestLoadDefaults(t *testing.T) {
	resetArgs(t)
	t.Setenv("DISKVIGIL_CONFIG", "")

	cfg, err := config.Load()
	require.NoError(t, err, "Failed to load config")

	assert.Equal(t, config.DefaultInterval, cfg.Interval)
	assert.Equal(t, config.DefaultHistoryDays, cfg.HistoryDays)
	assert.Equal(t, config.DefaultDataSource, cfg.DataSource)
	assert.Equal(t, config.DefaultLogLevel, cfg.LogLevel)
	assert.False(t, cfg.Monitor, "Expected default Monitor false")
}

func TestLoadConfigFileInvalidFormat(t *testing.T) {
	resetArgs(t)
	tempDir := t.TempDir()

	configContent := []byte(`
This is not a valid TOML file
`)
	configPath := filepath.Join(tempDir, "diskvigil.toml")
	err := os.WriteFile(configPath, configContent, 0o600)
	require.NoError(t, err)

	t.Setenv("DISKVIGIL_CONFIG", configPath)

	_, err = config.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Failed to read config file")
}

func TestInvalidLogLevel(t *testing.T) {
	resetArgs(t)
	tempDir := t.TempDir()

	configContent := []byte(`
log_level = "invalid"
`)
	configPath := filepath.Join(tempDir, "diskvigil.toml")
	err := os.WriteFile(configPath, configContent, 0o600)
	require.NoError(t, err)

	t.Setenv("DISKVIGIL_CONFIG", configPath)

	_, err = config.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid_log_level")
}

func TestInvalidDataSource(t *testing.T) {
	resetArgs(t, "--data-source", "telepathy")
	t.Setenv("DISKVIGIL_CONFIG", "")

	_, err := config.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "data_source")
}

func TestLogLevelFlag(t *testing.T) {
	resetArgs(t, "--log-level", "debug")
	t.Setenv("DISKVIGIL_CONFIG", "")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel, "Expected LogLevel to be set by flag")
}

func TestInvalidInterval(t *testing.T) {
	resetArgs(t, "--interval", "0")
	t.Setenv("DISKVIGIL_CONFIG", "")

	_, err := config.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "interval")
}
