package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeYAML(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	return p
}

func TestLoadE_DefaultsAndFile(t *testing.T) {
	p := writeYAML(t, `
app:
  http:
    port: 9090
jwt:
  secret: abc
db:
  driver: postgres
  dsn: postgres://x
`)
	c, err := LoadE(p)
	require.NoError(t, err)

	assert.Equal(t, 9090, c.App.HTTP.Port)
	assert.Equal(t, "abc", c.JWT.Secret)
	assert.Equal(t, "postgres", c.DB.Driver)
	// 未配置的走默认
	assert.Equal(t, 43200, c.JWT.AccessTokenTTLMin)
	assert.Equal(t, "papervault", c.JWT.Issuer)
	assert.Equal(t, 10, c.Upload.MaxSizeMB)
	assert.Equal(t, int64(10<<20), c.MaxUploadBytes())
	assert.Equal(t, "local", c.Storage.Driver)
	assert.Equal(t, 300, c.Cache.FilterOptionsTTLSec)
}

func TestLoadE_EnvOverride(t *testing.T) {
	p := writeYAML(t, "jwt:\n  secret: abc\n")
	t.Setenv("APP_DB_DSN", "file::memory:")
	t.Setenv("APP_UPLOAD_MAXSIZEMB", "3")

	c, err := LoadE(p)
	require.NoError(t, err)
	assert.Equal(t, "file::memory:", c.DB.DSN)
	assert.Equal(t, 3, c.Upload.MaxSizeMB)
}

func TestLoadE_Errors(t *testing.T) {
	_, err := LoadE(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	p := writeYAML(t, "app:\n  name: x\n")
	_, err = LoadE(p)
	assert.ErrorContains(t, err, "jwt.secret")
}

func TestLoadE_ShippedLocalConfig(t *testing.T) {
	c, err := LoadE(filepath.Join("..", "..", "..", "configs", "config.local.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "sqlite", c.DB.Driver)
	assert.Equal(t, "/uploads/", c.Upload.URLPrefix)
	assert.Equal(t, []string{"http://localhost:3000"}, c.CORS.AllowOrigins)
	assert.Equal(t, int64(300), c.Limits.MaxConcurrent)
}
