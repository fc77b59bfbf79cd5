package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Empty(t, cfg.RemoteURL)
	assert.Equal(t, 60, cfg.PollSecs)
	assert.Equal(t, "INFO", cfg.LogLevel)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("TASKTIDE_REMOTE_URL", "https://api.example.com")
	t.Setenv("TASKTIDE_REMOTE_KEY", "key-123")
	t.Setenv("TASKTIDE_POLL_SECS", "15")
	t.Setenv("TASKTIDE_LOG_LEVEL", "DEBUG")

	cfg := DefaultConfig()
	assert.Equal(t, "https://api.example.com", cfg.RemoteURL)
	assert.Equal(t, "key-123", cfg.RemoteKey)
	assert.Equal(t, 15, cfg.PollSecs)
	assert.Equal(t, "DEBUG", cfg.LogLevel)
}

func TestLoadMissingFileFallsBack(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 60, cfg.PollSecs)
}

func TestSaveAndLoad(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg := DefaultConfig()
	cfg.RemoteURL = "https://sync.example.com"
	cfg.PollSecs = 30
	require.NoError(t, cfg.Save())

	loaded, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "https://sync.example.com", loaded.RemoteURL)
	assert.Equal(t, 30, loaded.PollSecs)
}

func TestPartialFileKeepsDefaults(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	path := filepath.Join(home, ".tasktide", "config.yaml")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	data, err := yaml.Marshal(map[string]any{"remote_url": "https://only.example.com"})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0600))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "https://only.example.com", cfg.RemoteURL)
	assert.Equal(t, 60, cfg.PollSecs, "unset keys keep their defaults")
}
