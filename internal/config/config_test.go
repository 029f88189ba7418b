package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("JWT_SECRET", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "fitclub.events", cfg.EventsExchange)
	assert.Equal(t, 2*time.Second, cfg.OutboxPollInterval)
	assert.Equal(t, 50, cfg.OutboxBatchSize)
	assert.Equal(t, cfg.JWTSecret, cfg.JWTRefreshSecret)
	assert.Equal(t, time.UTC, cfg.Location)
	assert.True(t, cfg.IsDevelopment())
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("PORT", "9090")
	t.Setenv("JWT_SECRET", "access-secret")
	t.Setenv("JWT_REFRESH_SECRET", "refresh-secret")
	t.Setenv("OUTBOX_POLL_INTERVAL", "500ms")
	t.Setenv("RATE_LIMIT_RPS", "2.5")
	t.Setenv("APP_TIMEZONE", "Asia/Almaty")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "refresh-secret", cfg.JWTRefreshSecret)
	assert.Equal(t, 500*time.Millisecond, cfg.OutboxPollInterval)
	assert.Equal(t, 2.5, cfg.RateLimitRPS)
	assert.Equal(t, "Asia/Almaty", cfg.Location.String())
	assert.False(t, cfg.IsDevelopment())
}

func TestLoad_RejectsDefaultSecretOutsideDevelopment(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("JWT_SECRET", "")

	_, err := Load()
	assert.ErrorIs(t, err, ErrWeakJWTSecret)
}

func TestLoad_InvalidTimezone(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("APP_TIMEZONE", "Mars/Olympus")

	_, err := Load()
	assert.Error(t, err)
}
