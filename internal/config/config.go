// Package config loads server configuration from environment variables.
//
// All knobs live on one struct parsed by caarlos0/env. Defaults are in the
// struct tags, so `go run ./cmd/server` works locally with only JWT_SECRET
// and GOOGLE_CLIENT_ID set. Nothing reads os.Getenv outside this package —
// every component receives its settings through injection.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	Port   int    `env:"PORT" envDefault:"8080"`
	DBPath string `env:"DB_PATH" envDefault:"data/advisor.db"`

	// JWTSecret signs session tokens. Required; at least 16 characters.
	// Generate with: openssl rand -hex 32
	JWTSecret string `env:"JWT_SECRET"`

	// GoogleClientID is the OAuth client ID tokens must be issued for.
	// It is the expected audience during ID token verification.
	GoogleClientID     string `env:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret string `env:"GOOGLE_CLIENT_SECRET"`
	GoogleCallbackURL  string `env:"GOOGLE_CALLBACK_URL"`

	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envDefault:"http://localhost:3000"`

	// DailyQueryLimit is the per-user daily quota on agent queries.
	DailyQueryLimit int `env:"DAILY_QUERY_LIMIT" envDefault:"3"`

	// RateLimitPerMinute is the per-client-IP request cap applied to the
	// auth and chat endpoints. Independent of the daily quota.
	RateLimitPerMinute int `env:"RATE_LIMIT_PER_MINUTE" envDefault:"10"`

	// AgentURL points at the upstream advisor agent. When empty, a local
	// canned agent is used instead.
	AgentURL     string        `env:"AGENT_URL"`
	AgentTimeout time.Duration `env:"AGENT_TIMEOUT" envDefault:"60s"`
}

// Load parses the environment into a Config.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: parsing environment: %w", err)
	}
	return cfg, nil
}

// Validate checks the settings the server cannot start without.
func (c Config) Validate() error {
	if c.JWTSecret == "" {
		return errors.New("config: JWT_SECRET is required")
	}
	if c.GoogleClientID == "" {
		return errors.New("config: GOOGLE_CLIENT_ID is required")
	}
	if c.DailyQueryLimit < 1 {
		return fmt.Errorf("config: DAILY_QUERY_LIMIT must be at least 1, got %d", c.DailyQueryLimit)
	}
	if c.RateLimitPerMinute < 1 {
		return fmt.Errorf("config: RATE_LIMIT_PER_MINUTE must be at least 1, got %d", c.RateLimitPerMinute)
	}
	return nil
}
