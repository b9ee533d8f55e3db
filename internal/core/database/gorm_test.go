package database

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func TestNormalizeMySQLDSN(t *testing.T) {
	cases := []struct {
		name, in, user, pass, want string
	}{
		{"empty", "", "", "", ""},
		{"native dsn untouched", "u:p@tcp(db:3306)/app?parseTime=true", "", "", "u:p@tcp(db:3306)/app?parseTime=true"},
		{"url form", "mysql://u:p@db:3306/app", "", "", "u:p@tcp(db:3306)/app?charset=utf8mb4&parseTime=true"},
		{"jdbc with override", "jdbc:mysql://db:3306/app?useSSL=false", "root", "pw", "root:pw@tcp(db:3306)/app?charset=utf8mb4&parseTime=true&tls=false"},
		{"characterEncoding", "mysql://db:3306/app?characterEncoding=latin1&useUnicode=true", "", "", "tcp(db:3306)/app?charset=latin1&parseTime=true"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, normalizeMySQLDSN(tc.in, tc.user, tc.pass))
		})
	}
}

func TestMaskDSN(t *testing.T) {
	assert.Equal(t, "root:****@tcp(db:3306)/app", maskDSN("root:pw@tcp(db:3306)/app"))
	assert.Equal(t, "tcp(db:3306)/app", maskDSN("tcp(db:3306)/app"))
}

func TestNewGorm_SQLite(t *testing.T) {
	db, err := NewGorm(Opts{Driver: "sqlite", DSN: ":memory:", LogLevel: "silent", Logger: zap.NewNop()})
	require.NoError(t, err)
	require.NoError(t, Ping(context.Background(), db))

	type probe struct {
		ID   int
		Name string
	}
	require.NoError(t, db.AutoMigrate(&probe{}))
	require.NoError(t, db.Create(&probe{ID: 1, Name: "a"}).Error)
	var got probe
	require.NoError(t, db.First(&got, 1).Error)
	assert.Equal(t, "a", got.Name)
}

func TestNewGorm_Unsupported(t *testing.T) {
	_, err := NewGorm(Opts{Driver: "oracle"})
	assert.ErrorIs(t, err, gorm.ErrInvalidDB)
	assert.ErrorIs(t, err, ErrUnsupportedDriver)
}
