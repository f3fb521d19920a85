package config

import (
	"errors"
	"fmt"
	"strings"

	libconfig "greenhouse/libs/config"
)

// HTTPConfig holds listener settings.
type HTTPConfig struct {
	Port string `yaml:"port" env:"HTTP_PORT"`
}

// DatabaseConfig holds Postgres settings.
type DatabaseConfig struct {
	DSN string `yaml:"dsn" env:"DATABASE_DSN"`
}

// AuthConfig holds the shared API token.
type AuthConfig struct {
	Token string `yaml:"token" env:"API_TOKEN"`
}

// CORSConfig holds allowed origins.
type CORSConfig struct {
	Origins []string `yaml:"origins" env:"CORS_ORIGINS"`
}

// RateLimitConfig holds per-client request budget settings.
type RateLimitConfig struct {
	Enabled   bool `yaml:"enabled" env:"RATE_LIMIT_ENABLED"`
	PerMinute int  `yaml:"perMinute" env:"RATE_LIMIT_PER_MINUTE"`
}

// RedisConfig holds the optional rate limit counter store address.
type RedisConfig struct {
	Addr     string `yaml:"addr" env:"REDIS_ADDR"`
	Password string `yaml:"password" env:"REDIS_PASSWORD"`
}

// Config defines greenhouse API configuration.
type Config struct {
	HTTP           HTTPConfig      `yaml:"http"`
	Database       DatabaseConfig  `yaml:"database"`
	Auth           AuthConfig      `yaml:"auth"`
	CORS           CORSConfig      `yaml:"cors"`
	RateLimit      RateLimitConfig `yaml:"rateLimit"`
	Redis          RedisConfig     `yaml:"redis"`
	MaxRequestSize int64           `yaml:"maxRequestSize" env:"MAX_REQUEST_SIZE"`
}

// Load configuration using the shared helper. The API token and database DSN
// are required; startup fails without them.
func Load() (*Config, error) {
	cfg := &Config{
		HTTP:           HTTPConfig{Port: "8080"},
		CORS:           CORSConfig{Origins: []string{"*"}},
		RateLimit:      RateLimitConfig{Enabled: true, PerMinute: 60},
		MaxRequestSize: 1024 * 1024,
	}

	if err := libconfig.LoadConfig(cfg); err != nil {
		return nil, err
	}

	if strings.TrimSpace(cfg.Auth.Token) == "" {
		return nil, errors.New("config: api token required")
	}
	if strings.TrimSpace(cfg.Database.DSN) == "" {
		return nil, errors.New("config: database dsn required")
	}
	if cfg.RateLimit.PerMinute <= 0 {
		return nil, errors.New("config: rate limit per minute must be positive")
	}
	if cfg.MaxRequestSize <= 0 {
		return nil, errors.New("config: max request size must be positive")
	}
	return cfg, nil
}

// HTTPAddress returns :port style.
func (c *Config) HTTPAddress() string {
	port := strings.TrimSpace(c.HTTP.Port)
	if port == "" {
		port = "8080"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return fmt.Sprintf(":%s", port)
}
