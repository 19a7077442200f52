// Package config loads configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all client configuration.
type Config struct {
	// Repository endpoint
	RepositoryHost string
	RepositoryPort int
	RepositoryTLS  bool
	ContentPath    string
	AssetAPIPath   string
	AssetRoot      string

	// Credentials
	Username string
	Password string

	// Local staging
	StagingDir string

	// HTTP
	RequestTimeout time.Duration

	// Logging
	LogLevel  string
	LogFormat string

	// Metrics (empty = disabled)
	MetricsAddr string
}

// Load reads configuration from environment variables with defaults.
func Load() (*Config, error) {
	cfg := &Config{
		RepositoryHost: envOr("DAM_HOST", ""),
		RepositoryPort: envInt("DAM_PORT", 4502),
		RepositoryTLS:  envBool("DAM_TLS", false),
		ContentPath:    envOr("DAM_CONTENT_PATH", ""),
		AssetAPIPath:   envOr("DAM_ASSET_API_PATH", "/api/assets"),
		AssetRoot:      envOr("DAM_ASSET_ROOT", "/content/dam"),
		Username:       envOr("DAM_USER", "admin"),
		Password:       envOr("DAM_PASSWORD", ""),
		StagingDir:     envOr("DAM_STAGING_DIR", os.TempDir()),
		RequestTimeout: envDuration("DAM_REQUEST_TIMEOUT", 30*time.Second),
		LogLevel:       envOr("LOG_LEVEL", "info"),
		LogFormat:      envOr("LOG_FORMAT", "console"),
		MetricsAddr:    envOr("METRICS_ADDR", ""),
	}

	if cfg.RepositoryHost == "" {
		return nil, fmt.Errorf("DAM_HOST is required")
	}

	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return i
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
