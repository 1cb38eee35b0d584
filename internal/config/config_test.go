package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0600))
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, ""))
	require.NoError(t, err)

	assert.Equal(t, "https://api.themoviedb.org/3", cfg.TMDB.BaseURL)
	assert.Equal(t, 24*time.Hour, cfg.Cache.TTL)
	assert.Equal(t, "en-US", cfg.Preferences.Language)
	assert.Equal(t, 3, cfg.TMDB.MaxRetries)
	assert.False(t, cfg.IsConfigured())
	assert.False(t, cfg.HasAccount())
}

func TestLoadConfig_File(t *testing.T) {
	path := writeConfig(t, `
tmdb:
  api_key: abc123
  account_id: "42"
  timeout: 5s
preferences:
  language: fr-FR
  include_adult: true
cache:
  ttl: 2h
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "abc123", cfg.TMDB.APIKey)
	assert.Equal(t, "42", cfg.TMDB.AccountID)
	assert.Equal(t, 5*time.Second, cfg.TMDB.Timeout)
	assert.Equal(t, "fr-FR", cfg.Preferences.Language)
	assert.True(t, cfg.Preferences.IncludeAdult)
	assert.Equal(t, 2*time.Hour, cfg.Cache.TTL)
	assert.True(t, cfg.IsConfigured())
	assert.True(t, cfg.HasAccount())

	// Unset keys keep their defaults
	assert.Equal(t, 20.0, cfg.TMDB.RequestsPerSecond)
}

func TestLoadConfig_EnvOverride(t *testing.T) {
	t.Setenv("MARQUEE_TMDB_API_KEY", "from-env")
	t.Setenv("MARQUEE_CACHE_TTL", "1h")

	cfg, err := LoadConfig(writeConfig(t, "tmdb:\n  api_key: from-file\n"))
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.TMDB.APIKey)
	assert.Equal(t, time.Hour, cfg.Cache.TTL)
}

func TestLoadConfig_MissingExplicitFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(home, "cache"), expandHome("~/cache"))
	assert.Equal(t, "/tmp/cache", expandHome("/tmp/cache"))
}

func TestClearCache(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "cache")
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "scope"), 0755))

	require.NoError(t, ClearCache(&Config{Cache: CacheConfig{Dir: dir}}))
	_, err := os.Stat(dir)
	assert.True(t, os.IsNotExist(err))
}
