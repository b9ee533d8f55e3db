package app

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"papervault/internal/core/config"
	"papervault/internal/service"
)

func testConfig(t *testing.T) *config.Config {
	return &config.Config{
		DB:      config.DB{Driver: "sqlite", DSN: ":memory:", AutoMigrate: true, LogLevel: "silent"},
		JWT:     config.JWT{Secret: "s", Issuer: "papervault", AccessTokenTTLMin: 60},
		Upload:  config.Upload{Dir: t.TempDir(), MaxSizeMB: 10, URLPrefix: "/uploads/"},
		Storage: config.Storage{Driver: "local"},
		Cache:   config.Cache{FilterOptionsTTLSec: 60},
	}
}

func registerInput() service.RegisterInput {
	return service.RegisterInput{Name: "Ann", Email: "ann@example.com", Password: "secret1"}
}

func TestNew_LocalSQLite(t *testing.T) {
	a, err := New(context.Background(), testConfig(t), zap.NewNop())
	require.NoError(t, err)
	defer a.Close()

	assert.Nil(t, a.Cache)
	res, err := a.Auth.Register(context.Background(), registerInput())
	require.NoError(t, err)
	id, err := a.Auth.VerifySession(res.Token)
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, id.UserID)

	st, err := a.Admin.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), st.Users)
}

func TestNew_WithRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig(t)
	cfg.Redis = config.Redis{Enable: true, Addr: mr.Addr()}

	a, err := New(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	defer a.Close()
	require.NotNil(t, a.Cache)

	_, err = a.Papers.ListFilterOptions(context.Background())
	require.NoError(t, err)
	assert.Len(t, mr.Keys(), 1)
}

func TestNew_RedisDownDegrades(t *testing.T) {
	cfg := testConfig(t)
	cfg.Redis = config.Redis{Enable: true, Addr: "127.0.0.1:1"}
	a, err := New(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	defer a.Close()
	assert.Nil(t, a.Cache)
}

func TestNew_BadStorageDriver(t *testing.T) {
	cfg := testConfig(t)
	cfg.Storage.Driver = "ftp"
	_, err := New(context.Background(), cfg, zap.NewNop())
	assert.ErrorContains(t, err, "unsupported storage driver")
}
