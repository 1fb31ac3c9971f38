// Package config handles application configuration from environment variables
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Cache backends.
const (
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

// Config holds all application configuration
type Config struct {
	Port string `env:"PORT" envDefault:"8080"`

	Cache   CacheConfig
	Redis   RedisConfig
	Headers HeadersConfig
	Log     LogConfig
	Auth    AuthConfig
}

// CacheConfig holds response cache configuration
type CacheConfig struct {
	Backend     string        `env:"CACHE_BACKEND" envDefault:"redis"`
	Prefix      string        `env:"CACHE_PREFIX" envDefault:"respcache"`
	RulesFile   string        `env:"CACHE_RULES_FILE"` // empty: built-in rules
	FallbackTTL time.Duration `env:"CACHE_FALLBACK_TTL" envDefault:"0s"`
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Addr string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	DB   int    `env:"REDIS_DB" envDefault:"0"`
}

// HeadersConfig holds cache header settings
type HeadersConfig struct {
	// ExpiresIn is added to the current time for the Expires header
	ExpiresIn time.Duration `env:"HEADERS_EXPIRES_IN" envDefault:"1h"`
}

// LogConfig holds logging settings
type LogConfig struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Pretty bool   `env:"LOG_PRETTY" envDefault:"false"`
}

// AuthConfig holds API credentials
type AuthConfig struct {
	// Tokens maps bearer tokens to customer ids, e.g. "tok1:1,tok2:2"
	Tokens map[string]int64 `env:"API_TOKENS" envKeyValSeparator:":" envSeparator:","`

	// AdminToken grants access to every customer
	AdminToken string `env:"ADMIN_TOKEN"`
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values the environment parser cannot
func (c *Config) Validate() error {
	var errs []error

	switch c.Cache.Backend {
	case BackendRedis, BackendMemory:
	default:
		errs = append(errs, fmt.Errorf("CACHE_BACKEND must be %q or %q, got %q", BackendRedis, BackendMemory, c.Cache.Backend))
	}
	if c.Cache.FallbackTTL < 0 {
		errs = append(errs, fmt.Errorf("CACHE_FALLBACK_TTL must not be negative, got %s", c.Cache.FallbackTTL))
	}
	if c.Headers.ExpiresIn <= 0 {
		errs = append(errs, fmt.Errorf("HEADERS_EXPIRES_IN must be positive, got %s", c.Headers.ExpiresIn))
	}
	if c.Port == "" {
		errs = append(errs, errors.New("PORT must not be empty"))
	}

	return errors.Join(errs...)
}

// UsesRedis returns true if the cache is backed by Redis
func (c *Config) UsesRedis() bool {
	return c.Cache.Backend == BackendRedis
}
