// Package config provides application configuration.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Port         string
	FrontendURL  string
	DBPath       string
	AttemptTTL   time.Duration
	ReplyTimeout time.Duration
	ReplyModel   string // short model alias passed to the Claude generator
	MaxTurns     int    // turn count at which a session is forced terminal
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		Port:         getEnv("PORT", "8080"),
		FrontendURL:  getEnv("FRONTEND_URL", ""),
		DBPath:       getEnv("DB_PATH", "./data/simserver.db"),
		AttemptTTL:   getEnvDuration("ATTEMPT_TTL", 2*time.Hour),
		ReplyTimeout: getEnvDuration("REPLY_TIMEOUT", 10*time.Second),
		ReplyModel:   getEnv("REPLY_MODEL", "haiku"),
		MaxTurns:     getEnvInt("MAX_TURNS", 12),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	if c.DBPath == "" {
		return fmt.Errorf("DB_PATH cannot be empty")
	}
	if c.AttemptTTL <= 0 {
		return fmt.Errorf("ATTEMPT_TTL must be > 0")
	}
	if c.ReplyTimeout <= 0 {
		return fmt.Errorf("REPLY_TIMEOUT must be > 0")
	}
	if c.MaxTurns <= 0 {
		return fmt.Errorf("MAX_TURNS must be > 0")
	}
	return nil
}

// ReplyAPIConfigured reports whether a model API key is available.
// Without one the server falls back to the scripted reply generator.
func (c *Config) ReplyAPIConfigured() bool {
	return os.Getenv("ANTHROPIC_API_KEY") != ""
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.FrontendURL == "" ||
		strings.Contains(c.FrontendURL, "localhost") ||
		strings.Contains(c.FrontendURL, "127.0.0.1")
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}
