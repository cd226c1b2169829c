package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/shopspring/decimal"
)

// Config holds all application configuration.
type Config struct {
	// Storage
	DataDir        string        `env:"DATA_DIR"         envDefault:"./data/players"`
	SaveMaxRetries int           `env:"SAVE_MAX_RETRIES" envDefault:"3"`
	SaveTimeout    time.Duration `env:"SAVE_TIMEOUT"     envDefault:"5s"`

	// Ledger
	StartingBankBalance string `env:"STARTING_BANK_BALANCE" envDefault:"100"`
	RoundingPlaces      int32  `env:"ROUNDING_PLACES"       envDefault:"2"`

	// Session workers
	WorkerCount      int           `env:"WORKER_COUNT"      envDefault:"4"`
	QueueSize        int           `env:"QUEUE_SIZE"        envDefault:"256"`
	AutosaveInterval time.Duration `env:"AUTOSAVE_INTERVAL" envDefault:"60s"`

	// HTTP Server
	HTTPPort            string        `env:"HTTP_PORT"             envDefault:"8080"`
	HTTPReadTimeout     time.Duration `env:"HTTP_READ_TIMEOUT"     envDefault:"30s"`
	HTTPWriteTimeout    time.Duration `env:"HTTP_WRITE_TIMEOUT"    envDefault:"30s"`
	HTTPShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"10s"`

	// Rate limiting (per client IP)
	RateLimitRPS   float64 `env:"RATE_LIMIT_RPS"   envDefault:"100"`
	RateLimitBurst int     `env:"RATE_LIMIT_BURST" envDefault:"200"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL"  envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	// Idempotency (optional - leave REDIS_URL empty to disable)
	RedisURL       string        `env:"REDIS_URL"       envDefault:""`
	IdempotencyTTL time.Duration `env:"IDEMPOTENCY_TTL" envDefault:"24h"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	err := env.Parse(cfg)
	if err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks values that env tags alone cannot express.
func (c *Config) Validate() error {
	if _, err := decimal.NewFromString(c.StartingBankBalance); err != nil {
		return fmt.Errorf("invalid STARTING_BANK_BALANCE %q: %w", c.StartingBankBalance, err)
	}

	if c.RoundingPlaces < 0 {
		return fmt.Errorf("ROUNDING_PLACES must be >= 0, got %d", c.RoundingPlaces)
	}

	if c.WorkerCount < 1 {
		return fmt.Errorf("WORKER_COUNT must be >= 1, got %d", c.WorkerCount)
	}

	if c.RateLimitRPS <= 0 {
		return fmt.Errorf("RATE_LIMIT_RPS must be > 0, got %v", c.RateLimitRPS)
	}

	return nil
}

// StartingBank returns the configured starting bank balance as a decimal.
// Validate must have passed.
func (c *Config) StartingBank() decimal.Decimal {
	return decimal.RequireFromString(c.StartingBankBalance)
}
