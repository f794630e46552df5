package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config application configuration
type Config struct {
	// Database
	DatabasePath string `env:"DATABASE_PATH" envDefault:"./data/mailsync.db"`

	// Polling
	PollInterval      time.Duration `env:"POLL_INTERVAL" envDefault:"300s"`
	RateLimitInterval time.Duration `env:"RATE_LIMIT_INTERVAL" envDefault:"60s"`
	MaxFetchPerPoll   int           `env:"MAX_FETCH_PER_POLL" envDefault:"50"`
	MaxProcessPerRun  int           `env:"MAX_PROCESS_PER_CYCLE" envDefault:"100"`
	FetchTimeout      time.Duration `env:"FETCH_TIMEOUT" envDefault:"2m"`

	// IMAP
	IMAPDialTimeout time.Duration `env:"IMAP_DIAL_TIMEOUT" envDefault:"30s"`

	// Gmail OAuth application credentials (required only for gmail accounts)
	GoogleClientID     string `env:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret string `env:"GOOGLE_CLIENT_SECRET"`

	// Archive queue
	ArchiveQueueDir     string        `env:"ARCHIVE_QUEUE_DIR" envDefault:"./data/archive-queue"`
	ArchiveScanInterval time.Duration `env:"ARCHIVE_SCAN_INTERVAL" envDefault:"60s"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"` // "json" or "text"
}

// GmailEnabled returns true if Gmail OAuth credentials are configured
func (c *Config) GmailEnabled() bool {
	return c.GoogleClientID != "" && c.GoogleClientSecret != ""
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if exists (ignore error if not found)
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if cfg.PollInterval <= 0 {
		return nil, fmt.Errorf("POLL_INTERVAL must be positive, got %s", cfg.PollInterval)
	}
	if cfg.MaxFetchPerPoll <= 0 {
		return nil, fmt.Errorf("MAX_FETCH_PER_POLL must be positive, got %d", cfg.MaxFetchPerPoll)
	}

	return cfg, nil
}
