package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config application configuration
type Config struct {
	// Database
	DatabasePath string `env:"DATABASE_PATH" envDefault:"./data/mailnotify.db"`
	DatabaseURL  string `env:"DATABASE_URL"` // postgres://... overrides DatabasePath

	// Worker
	PollInterval time.Duration `env:"POLL_INTERVAL" envDefault:"60s"` // Seeds the control state
	MailTimeout  time.Duration `env:"MAIL_TIMEOUT" envDefault:"30s"`

	// Status endpoint (empty disables)
	StatusAddr string `env:"STATUS_ADDR" envDefault:":8080"`

	// Security (optional, 32 bytes for AES-256)
	EncryptionKey string `env:"ENCRYPTION_KEY"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"` // "json" or "text"
}

// UsePostgres returns true if a PostgreSQL DSN is configured
func (c *Config) UsePostgres() bool {
	return strings.HasPrefix(c.DatabaseURL, "postgres://") || strings.HasPrefix(c.DatabaseURL, "postgresql://")
}

// EncryptionEnabled returns true if password encryption is configured
func (c *Config) EncryptionEnabled() bool {
	return c.EncryptionKey != ""
}

// PollIntervalSeconds returns the configured poll interval in whole seconds
func (c *Config) PollIntervalSeconds() int {
	return int(c.PollInterval / time.Second)
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if exists (ignore error if not found)
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if cfg.DatabaseURL != "" && !cfg.UsePostgres() {
		return nil, fmt.Errorf("DATABASE_URL must be a postgres:// DSN, got %q", cfg.DatabaseURL)
	}

	// Validate encryption key length (32 bytes for AES-256)
	if cfg.EncryptionEnabled() && len(cfg.EncryptionKey) != 32 {
		return nil, fmt.Errorf("ENCRYPTION_KEY must be exactly 32 bytes, got %d", len(cfg.EncryptionKey))
	}

	if cfg.MailTimeout <= 0 {
		return nil, fmt.Errorf("MAIL_TIMEOUT must be positive, got %s", cfg.MailTimeout)
	}

	return cfg, nil
}
