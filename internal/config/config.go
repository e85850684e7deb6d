// Package config holds the process-wide configuration, parsed once at
// startup and injected as an immutable value.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config is the environment-derived configuration for the service.
type Config struct {
	ListenAddr string `env:"LISTEN_ADDR" envDefault:":9000"`

	// DatabaseURL is the Postgres system of record. Required outside of
	// tests; nonces, attempts, and the blacklist live here.
	DatabaseURL string `env:"DATABASE_URL"`

	// RedisURL backs the rate limiter and the event stream. Optional; when
	// unset the limiter runs in-process and events are dropped.
	RedisURL string `env:"REDIS_URL"`

	// SessionSigningKeyPEM is a PEM-encoded EC P-256 private key for session
	// credentials. When empty an ephemeral key is generated, which
	// invalidates sessions on restart.
	SessionSigningKeyPEM string `env:"SESSION_SIGNING_KEY_PEM"`

	// ChallengeDomain is the origin identifier bound into every challenge
	// message to prevent cross-site signature replay.
	ChallengeDomain string `env:"CHALLENGE_DOMAIN" envDefault:"walletgate"`

	ChallengeTTL time.Duration `env:"CHALLENGE_TTL" envDefault:"5m"`
	SessionTTL   time.Duration `env:"SESSION_TTL" envDefault:"72h"`

	// RootAdminAddress is the environment-configured administrator wallet,
	// compared case-insensitively as a final authorization path. Empty
	// disables the path.
	RootAdminAddress string `env:"ROOT_ADMIN_ADDRESS"`

	// OAuthHMACSecret verifies OAuth-issued subject tokens presented on the
	// authorization path. Empty disables the path.
	OAuthHMACSecret string `env:"OAUTH_HMAC_SECRET"`

	// CleanupSecret authenticates the operational cleanup endpoint. Empty
	// disables the endpoint entirely.
	CleanupSecret   string        `env:"CLEANUP_SECRET"`
	CleanupInterval time.Duration `env:"CLEANUP_INTERVAL" envDefault:"1h"`

	UsedNonceRetention time.Duration `env:"USED_NONCE_RETENTION" envDefault:"168h"` // 7 days
	AttemptRetention   time.Duration `env:"ATTEMPT_RETENTION" envDefault:"720h"`    // 30 days

	RateLimit       int           `env:"RATE_LIMIT" envDefault:"10"`
	RateLimitWindow time.Duration `env:"RATE_LIMIT_WINDOW" envDefault:"1m"`

	SessionCookieName   string `env:"SESSION_COOKIE_NAME" envDefault:"walletgate_session"`
	SessionCookieSecure bool   `env:"SESSION_COOKIE_SECURE" envDefault:"true"`
}

// Load reads an optional .env file and parses the environment.
func Load() (*Config, error) {
	// Missing .env is fine; containers inject the environment directly.
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	if cfg.ChallengeTTL <= 0 || cfg.SessionTTL <= 0 {
		return nil, fmt.Errorf("challenge and session TTLs must be positive")
	}

	return cfg, nil
}
