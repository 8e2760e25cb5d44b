package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/darkomike/bloggie-sub001/eviction"
)

func missingFile(t *testing.T) string {
	return filepath.Join(t.TempDir(), "absent.env")
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(missingFile(t))
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, 4, cfg.Shards)
	assert.Equal(t, 24*time.Hour, cfg.SessionMaxAge)
	assert.Equal(t, 5*time.Minute, cfg.RefreshWindow)
	assert.Equal(t, 50, cfg.DebugMaxEntries)
	assert.False(t, cfg.DebugCache)
	assert.Empty(t, cfg.ValkeyAddr)

	policy, err := cfg.EvictionPolicy()
	require.NoError(t, err)
	assert.Equal(t, eviction.LRU, policy)

	lvl, err := cfg.Level()
	require.NoError(t, err)
	assert.Equal(t, logrus.InfoLevel, lvl)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("BLOGGIE_SESSION_MAX_AGE", "2h")
	t.Setenv("BLOGGIE_DEBUG_CACHE", "true")
	t.Setenv("BLOGGIE_DEBUG_MAX_ENTRIES", "2")
	t.Setenv("BLOGGIE_CACHE_EVICTION", "fifo")
	t.Setenv("BLOGGIE_VALKEY_ADDR", "localhost:6379")

	cfg, err := Load(missingFile(t))
	require.NoError(t, err)

	assert.Equal(t, 2*time.Hour, cfg.SessionMaxAge)
	assert.True(t, cfg.DebugCache)
	assert.Equal(t, 2, cfg.DebugMaxEntries)
	assert.Equal(t, "localhost:6379", cfg.ValkeyAddr)
	policy, _ := cfg.EvictionPolicy()
	assert.Equal(t, eviction.FIFO, policy)
}

func TestLoadDotEnv(t *testing.T) {
	// registers cleanup for the variable godotenv is about to set
	t.Setenv("BLOGGIE_TOKEN_ISSUER", "")
	require.NoError(t, os.Unsetenv("BLOGGIE_TOKEN_ISSUER"))
	t.Setenv("BLOGGIE_LISTEN_ADDR", ":9999")

	file := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(file, []byte("BLOGGIE_TOKEN_ISSUER=from-file\nBLOGGIE_LISTEN_ADDR=:1111\n"), 0o600))

	cfg, err := Load(file)
	require.NoError(t, err)
	assert.Equal(t, "from-file", cfg.TokenIssuer)
	assert.Equal(t, ":9999", cfg.ListenAddr, "environment wins over the file")
}

func TestLoadParseError(t *testing.T) {
	t.Setenv("BLOGGIE_CACHE_SHARDS", "many")

	_, err := Load(missingFile(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse env:")
}

func TestValidate(t *testing.T) {
	t.Setenv("BLOGGIE_CACHE_SHARDS", "0")
	t.Setenv("BLOGGIE_CACHE_WRITE_POLICY", "sideways")
	t.Setenv("BLOGGIE_SESSION_REFRESH_WINDOW", "48h")
	t.Setenv("BLOGGIE_LOG_LEVEL", "loud")

	_, err := Load(missingFile(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BLOGGIE_CACHE_SHARDS")
	assert.Contains(t, err.Error(), "BLOGGIE_CACHE_WRITE_POLICY")
	assert.Contains(t, err.Error(), "BLOGGIE_SESSION_REFRESH_WINDOW")
	assert.Contains(t, err.Error(), "BLOGGIE_LOG_LEVEL")
}
