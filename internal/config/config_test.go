package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadAppliesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`data_path = "/var/lib/qtable"`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/qtable", cfg.DataPath)
	assert.Equal(t, defaultPort, cfg.Port)
	assert.Equal(t, defaultWorkers, cfg.Workers)
	assert.Equal(t, defaultAdminAddr, cfg.AdminAddr)
}

func TestLoadMissingDataPathIsError(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`port = 9999`), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestEnvOverridesConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`data_path = "/var/lib/qtable"
port = 8080`), 0o644))

	t.Setenv("QTABLE_PORT", "9999")
	t.Setenv("QTABLE_DATA_PATH", "/override/path")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9999, cfg.Port)
	assert.Equal(t, "/override/path", cfg.DataPath)
}

func TestEnvOverrideRejectsInvalidInt(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`data_path = "/var/lib/qtable"`), 0o644))

	t.Setenv("QTABLE_WORKERS", "not-a-number")

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadMissingFileStillHonorsEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "does-not-exist.toml")

	t.Setenv("QTABLE_DATA_PATH", "/from/env")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/from/env", cfg.DataPath)
}
