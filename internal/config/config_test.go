package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDefaults(t *testing.T) {
	cfg, err := parse(map[string]string{})
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Env)
	assert.Equal(t, "8080", cfg.HTTPPort)
	assert.Equal(t, devJWTSecret, cfg.JWTSecret)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 24*time.Hour, cfg.AccessTokenTTL)
	assert.Equal(t, int64(10), cfg.MaxUploadSizeMB)
	assert.True(t, cfg.Policy.RefundOnCancel)
	assert.True(t, cfg.Policy.PayoutOnComplete)
	assert.True(t, cfg.Policy.StrictDeliveryCheck)
	assert.Equal(t, "100000", cfg.Policy.DepositMax.String())
	assert.Contains(t, cfg.DatabaseURL, "localhost:5432")
	assert.NotEmpty(t, cfg.AllowedOrigins)
}

func TestParseOverrides(t *testing.T) {
	cfg, err := parse(map[string]string{
		"HTTP_PORT":         "9090",
		"REFUND_ON_CANCEL":  "false",
		"DEPOSIT_MAX":       "500.50",
		"ALLOWED_ORIGINS":   "https://a.example,https://b.example",
		"LIST_CACHE_TTL":    "5s",
		"POSTGRESQL_HOST":   "db",
		"POSTGRESQL_USER":   "app",
		"POSTGRESQL_DBNAME": "market",
	})
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.HTTPPort)
	assert.False(t, cfg.Policy.RefundOnCancel)
	assert.Equal(t, "500.5", cfg.Policy.DepositMax.String())
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
	assert.Equal(t, 5*time.Second, cfg.ListCacheTTL)
	assert.Equal(t, "postgres://app:@db:5432/market?sslmode=disable", cfg.DatabaseURL)
}

func TestParseProductionRequiresSecret(t *testing.T) {
	_, err := parse(map[string]string{"APP_ENV": "production", "JWT_SECRET": "short"})
	assert.Error(t, err)

	cfg, err := parse(map[string]string{
		"APP_ENV":         "production",
		"JWT_SECRET":      "0123456789abcdef0123456789abcdef",
		"ALLOWED_ORIGINS": "https://market.example",
	})
	require.NoError(t, err)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestParseRejectsBadValues(t *testing.T) {
	_, err := parse(map[string]string{"MAX_UPLOAD_SIZE_MB": "0"})
	assert.Error(t, err)

	_, err = parse(map[string]string{"ACCESS_TOKEN_TTL": "soon"})
	assert.Error(t, err)
}
