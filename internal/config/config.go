// Package config provides application configuration.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Port            string
	UpstreamBaseURL string // base URL of the product/identity API, no trailing slash
	AppEnv          string // "development" or "production"
	ShellPath       string // path to the HTML shell template, watched in development
	RenderTimeout   time.Duration
	UpstreamTimeout time.Duration
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		Port:            getEnv("PORT", "5173"),
		UpstreamBaseURL: strings.TrimSuffix(getEnv("API_BASE_URL", ""), "/"),
		AppEnv:          getEnv("APP_ENV", "development"),
		ShellPath:       getEnv("SHELL_PATH", "./web/dist/index.html"),
		RenderTimeout:   getEnvDuration("RENDER_TIMEOUT", 10*time.Second),
		UpstreamTimeout: getEnvDuration("UPSTREAM_TIMEOUT", 15*time.Second),
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
	if c.UpstreamBaseURL == "" {
		return fmt.Errorf("API_BASE_URL cannot be empty")
	}
	if u, err := url.Parse(c.UpstreamBaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("API_BASE_URL must be an absolute URL: %q", c.UpstreamBaseURL)
	}
	if c.AppEnv != "development" && c.AppEnv != "production" {
		return fmt.Errorf("APP_ENV must be \"development\" or \"production\", got %q", c.AppEnv)
	}
	if c.ShellPath == "" {
		return fmt.Errorf("SHELL_PATH cannot be empty")
	}
	if c.RenderTimeout <= 0 {
		return fmt.Errorf("RENDER_TIMEOUT must be > 0")
	}
	if c.UpstreamTimeout <= 0 {
		return fmt.Errorf("UPSTREAM_TIMEOUT must be > 0")
	}
	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv != "production"
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
	if err != nil {
		return fallback
	}
	return d
}
