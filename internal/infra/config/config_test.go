package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	for _, key := range []string{
		"HTTP_PORT", "STORE", "DATABASE_URL", "RABBITMQ_URL", "REDIS_URL", "RATE_LIMIT_PER_MINUTE",
		"CORS_ALLOWED_ORIGINS", "LOG_LEVEL", "LOG_FORMAT", "MAIL_HOST", "MAIL_PORT", "MAIL_USER",
		"MAIL_PASS", "MAIL_FROM", "FOLLOWUP_DIGEST_CRON", "KOMMO_API_TOKEN", "KOMMO_BASE_URL", "TIMEZONE",
	} {
		t.Setenv(key, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("STORE", "memory")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.HTTPPort)
	assert.Equal(t, StoreMemory, cfg.Store)
	assert.Equal(t, 120, cfg.RateLimitPerMinute)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 587, cfg.Mail.Port)
	assert.False(t, cfg.Mail.Enabled())
	assert.Equal(t, "0 8 * * *", cfg.FollowUpDigestCron)
	assert.Equal(t, "UTC", cfg.Location.String())
}

func TestLoad_EnvironmentVariables(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATABASE_URL", "postgres://crm@localhost/crm?sslmode=disable")
	t.Setenv("RATE_LIMIT_PER_MINUTE", "30")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://app.example.com, https://admin.example.com")
	t.Setenv("MAIL_HOST", "smtp.example.com")
	t.Setenv("MAIL_PORT", "2525")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, StorePostgres, cfg.Store)
	assert.Equal(t, 30, cfg.RateLimitPerMinute)
	assert.Equal(t, []string{"https://app.example.com", "https://admin.example.com"}, cfg.CORSAllowedOrigins)
	assert.Equal(t, 2525, cfg.Mail.Port)
	assert.True(t, cfg.Mail.Enabled())
}

func TestLoad_Errors(t *testing.T) {
	clearEnv(t)
	_, err := Load()
	assert.ErrorContains(t, err, "DATABASE_URL")

	t.Setenv("STORE", "mongo")
	_, err = Load()
	assert.ErrorContains(t, err, "STORE")

	t.Setenv("STORE", "memory")
	t.Setenv("TIMEZONE", "Mars/Olympus")
	_, err = Load()
	assert.ErrorContains(t, err, "TIMEZONE")
}
