package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "s")
	t.Setenv("DB_USER", "root")
	t.Setenv("DB_PASSWORD", "pw")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.AppPort)
	assert.Equal(t, "mysql", cfg.DBDriver)
	assert.Equal(t, 24*time.Hour, cfg.JWTTTL)
	assert.Equal(t, "0.15", cfg.PlatformFeeRate.String())
	assert.Equal(t, "2", cfg.EditionTax.String())
	assert.Equal(t, 2, cfg.WithdrawalTimes)
	assert.Equal(t, int64(50<<20), cfg.MaxUploadBytes())
	assert.Equal(t, "root:pw@tcp(localhost:3306)/notes?parseTime=true&loc=UTC", cfg.DSN())
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.AllowedOrigins())
	assert.True(t, cfg.AllowCredentials())
}

func TestWildcardOriginDisablesCredentials(t *testing.T) {
	t.Setenv("JWT_SECRET", "s")
	t.Setenv("CORS_ORIGINS", "*")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, []string{"*"}, cfg.AllowedOrigins())
	assert.False(t, cfg.AllowCredentials())
}

func TestLoadConfigPostgres(t *testing.T) {
	t.Setenv("JWT_SECRET", "s")
	t.Setenv("DB_DRIVER", "postgres")
	t.Setenv("DB_USER", "app")
	t.Setenv("DB_PASSWORD", "pw")
	t.Setenv("DB_HOST", "db")
	t.Setenv("CORS_ORIGINS", "https://a.test, ,https://b.test")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "host=db port=5432 user=app password=pw dbname=notes sslmode=disable TimeZone=UTC", cfg.DSN())
	assert.Equal(t, []string{"https://a.test", "https://b.test"}, cfg.AllowedOrigins())
}

func TestLoadConfigRejectsUnknownDriver(t *testing.T) {
	t.Setenv("JWT_SECRET", "s")
	t.Setenv("DB_DRIVER", "oracle")
	_, err := LoadConfig()
	assert.Error(t, err)
}

func TestLoadConfigRequiresSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	require.NoError(t, os.Unsetenv("JWT_SECRET"))
	_, err := LoadConfig()
	assert.Error(t, err)
}
