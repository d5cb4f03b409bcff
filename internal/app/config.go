package app

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
)

// Config holds runtime configuration for the application.
type Config struct {
	AppEnv            string        `envconfig:"APP_ENV" default:"development"`
	AppAddr           string        `envconfig:"APP_ADDR" default:":8080"`
	AppReadTimeout    time.Duration `envconfig:"APP_READ_TIMEOUT" default:"15s"`
	AppWriteTimeout   time.Duration `envconfig:"APP_WRITE_TIMEOUT" default:"15s"`
	AppRequestTimeout time.Duration `envconfig:"APP_REQUEST_TIMEOUT" default:"30s"`

	LogFormat string `envconfig:"LOG_FORMAT" default:"pretty"`
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`

	// Empty disables snapshot persistence; the store then lives only in memory.
	PGDSN         string `envconfig:"PG_DSN"`
	SnapshotsKept int    `envconfig:"SNAPSHOTS_KEPT" default:"10"`

	RedisAddr      string        `envconfig:"REDIS_ADDR" default:"127.0.0.1:6379"`
	IdempotencyTTL time.Duration `envconfig:"IDEMPOTENCY_TTL" default:"24h"`

	APITokenHash       string `envconfig:"API_TOKEN_HASH"`
	RateLimitPerMinute int    `envconfig:"RATE_LIMIT_PER_MINUTE" default:"120"`

	Currency string `envconfig:"CURRENCY" default:"BRL"`
	Locale   string `envconfig:"LOCALE" default:"pt-BR"`

	SeedDemo          bool   `envconfig:"SEED_DEMO" default:"false"`
	PayablesSweepCron string `envconfig:"PAYABLES_SWEEP_CRON" default:"0 3 * * *"`
	WorkerConcurrency int    `envconfig:"WORKER_CONCURRENCY" default:"5"`
}

// LoadConfig reads configuration from environment variables.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values envconfig cannot.
func (c *Config) Validate() error {
	if len(c.Currency) != 3 {
		return fmt.Errorf("config: CURRENCY must be a three letter ISO code, got %q", c.Currency)
	}
	if _, err := currency.ParseISO(c.Currency); err != nil {
		return fmt.Errorf("config: CURRENCY: %w", err)
	}
	if _, err := language.Parse(c.Locale); err != nil {
		return fmt.Errorf("config: LOCALE: %w", err)
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("config: LOG_LEVEL: %w", err)
	}
	if c.RateLimitPerMinute <= 0 {
		return fmt.Errorf("config: RATE_LIMIT_PER_MINUTE must be positive")
	}
	return nil
}

// IsProduction returns true when the application runs in production.
func (c *Config) IsProduction() bool {
	return c != nil && c.AppEnv == "production"
}
