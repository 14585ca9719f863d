package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

type Config struct {
	HTTPPort string

	// Store selects the lead store: postgres or memory.
	Store       string
	DatabaseURL string

	// Optional collaborators. Empty URLs disable them.
	RabbitMQURL string
	RedisURL    string

	RateLimitPerMinute int
	CORSAllowedOrigins []string

	LogLevel  string
	LogFormat string

	Mail MailConfig
	// FollowUpDigestCron is a standard five-field cron spec.
	FollowUpDigestCron string

	KommoAPIToken string
	KommoBaseURL  string

	// Location is used for calendar math: follow-up windows, monthly
	// buckets and export dates.
	Location *time.Location
}

type MailConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
}

// Enabled reports whether enough is configured to send mail.
func (m MailConfig) Enabled() bool {
	return m.Host != "" && m.From != ""
}

// Load reads .env when present, then the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		HTTPPort:           getEnv("HTTP_PORT", "8080"),
		Store:              getEnv("STORE", StorePostgres),
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		RabbitMQURL:        os.Getenv("RABBITMQ_URL"),
		RedisURL:           os.Getenv("REDIS_URL"),
		RateLimitPerMinute: getEnvAsInt("RATE_LIMIT_PER_MINUTE", 120),
		CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:5173"}),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		LogFormat:          getEnv("LOG_FORMAT", "json"),
		Mail: MailConfig{
			Host:     os.Getenv("MAIL_HOST"),
			Port:     getEnvAsInt("MAIL_PORT", 587),
			User:     os.Getenv("MAIL_USER"),
			Password: os.Getenv("MAIL_PASS"),
			From:     getEnv("MAIL_FROM", "nao-responda@liguemedicina.com"),
		},
		FollowUpDigestCron: getEnv("FOLLOWUP_DIGEST_CRON", "0 8 * * *"),
		KommoAPIToken:      os.Getenv("KOMMO_API_TOKEN"),
		KommoBaseURL:       getEnv("KOMMO_BASE_URL", "https://liguemedicina.kommo.com/api/v4"),
	}

	switch cfg.Store {
	case StorePostgres:
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required when STORE=%s", StorePostgres)
		}
	case StoreMemory:
	default:
		return nil, fmt.Errorf("STORE must be %s or %s, got %q", StorePostgres, StoreMemory, cfg.Store)
	}

	loc, err := time.LoadLocation(getEnv("TIMEZONE", "UTC"))
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE: %w", err)
	}
	cfg.Location = loc

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	value, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsList(key string, defaultValue []string) []string {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
