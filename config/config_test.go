package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestLoadConfigFile verifies a yaml file replaces the built in
// defaults.
func TestLoadConfigFile(t *testing.T) {
	cfile := filepath.Join(t.TempDir(), "zestcart.yml")
	require.NoError(t, os.WriteFile(cfile, []byte(`
system:
  appid: zestcart
  workdir: /tmp/zestcart-test
web:
  host: 127.0.0.1
  port: 2980
  secret: unit-test-secret
  jwt_expire: 8
database:
  type: sqlite
storage:
  type: local
  max_size_mb: 4
`), 0644))

	cfg := LoadConfig(cfile)
	assert.Equal(t, "/tmp/zestcart-test", cfg.System.Workdir)
	assert.Equal(t, 2980, cfg.Web.Port)
	assert.Equal(t, "unit-test-secret", cfg.Web.Secret)
	assert.Equal(t, 8, cfg.Web.JwtExpire)
	assert.Equal(t, "sqlite", cfg.Database.Type)
	assert.Equal(t, int64(4), cfg.Storage.MaxSizeMB)
	assert.Equal(t, "/tmp/zestcart-test/data", cfg.GetDataDir())
	assert.Equal(t, "/tmp/zestcart-test/logs", cfg.GetLogDir())
}

// TestLoadConfigMissingFileFallsBack verifies an absent file keeps the
// defaults usable.
func TestLoadConfigMissingFileFallsBack(t *testing.T) {
	cfg := LoadConfig(filepath.Join(t.TempDir(), "does-not-exist.yml"))
	assert.Equal(t, DefaultAppConfig.Web.Port, cfg.Web.Port)
	assert.Equal(t, DefaultAppConfig.Database.Type, cfg.Database.Type)
}

// TestLoadConfigEnvOverrides verifies environment variables win over
// the file values.
func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv("ZESTCART_WEB_PORT", "3980")
	t.Setenv("ZESTCART_DB_TYPE", "sqlite")
	t.Setenv("ZESTCART_SYSTEM_DEBUG", "off")
	t.Setenv("ZESTCART_REDIS_ADDR", "10.0.0.9:6379")

	cfile := filepath.Join(t.TempDir(), "zestcart.yml")
	require.NoError(t, os.WriteFile(cfile, []byte(`
web:
  port: 2980
database:
  type: postgres
system:
  debug: true
`), 0644))

	cfg := LoadConfig(cfile)
	assert.Equal(t, 3980, cfg.Web.Port)
	assert.Equal(t, "sqlite", cfg.Database.Type)
	assert.False(t, cfg.System.Debug)
	assert.Equal(t, "10.0.0.9:6379", cfg.Redis.Addr)
}
