package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  address: ":8080"
database:
  driver: postgres
  url: postgres://bot@localhost/bot
redis:
  addr: localhost:6379
  db: 2
log:
  level: debug
  format: console
`), 0o600))

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Server.Address)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "postgres://bot@localhost/bot", cfg.Database.URL)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, 2, cfg.Redis.DB)
	assert.Equal(t, LogConfig{Level: "debug", Format: "console"}, cfg.Log)
}

func TestLoadFileMissingUsesDefaults(t *testing.T) {
	cfg, err := LoadFile(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, ":4001", cfg.Server.Address)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.NotEmpty(t, cfg.Database.URL)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadFileInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [unclosed"), 0o600))
	_, err := LoadFile(path)
	assert.Error(t, err)
}

func TestLoadConfigReadsEnvPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  address: \":9000\"\n"), 0o600))
	t.Setenv("CONFIG_PATH", path)

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.Server.Address)
}

func TestInitLogger(t *testing.T) {
	logger, err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, logger)
	assert.Equal(t, logger, zap.L())

	_, err = InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)

	_, err = InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}
