package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/dmaytorres/trackvault/internal/constants"
)

// Config holds all application configuration
type Config struct {
	Port              string
	DBPath            string
	CacheDir          string
	ProviderURL       string
	FallbackURL       string
	RemoteAPIURL      string
	Quality           string
	CacheLimitBytes   int64
	MaxConcurrent     int
	ProbeInterval     time.Duration
	ScrobbleRetention time.Duration
	LogLevel          string
	LogFormat         string
}

// Load loads configuration from environment variables with defaults
func Load() *Config {
	home, _ := os.UserHomeDir()
	defaultCacheDir := filepath.Join(home, ".cache", constants.DefaultCacheDirName)

	return &Config{
		Port:              getEnv("PORT", constants.DefaultPort),
		DBPath:            getEnv("DB_PATH", constants.DefaultDBPath),
		CacheDir:          getEnv("CACHE_DIR", defaultCacheDir),
		ProviderURL:       getEnv("PROVIDER_URL", constants.DefaultProviderURL),
		FallbackURL:       getEnv("FALLBACK_PROVIDER_URL", ""),
		RemoteAPIURL:      getEnv("REMOTE_API_URL", constants.DefaultProviderURL),
		Quality:           getEnv("QUALITY", constants.DefaultQuality),
		CacheLimitBytes:   getEnvInt64("CACHE_LIMIT_BYTES", constants.DefaultCacheLimitBytes),
		MaxConcurrent:     getEnvInt("MAX_CONCURRENT", constants.DefaultConcurrency),
		ProbeInterval:     getEnvDuration("PROBE_INTERVAL", constants.DefaultProbeInterval),
		ScrobbleRetention: getEnvDuration("SCROBBLE_RETENTION", constants.DefaultScrobbleRetention),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		LogFormat:         getEnv("LOG_FORMAT", "text"),
	}
}

// Validate validates the configuration and returns detailed errors
func (c *Config) Validate() error {
	var errors []string

	if c.Port == "" {
		errors = append(errors, "PORT cannot be empty")
	} else {
		port, err := strconv.Atoi(c.Port)
		if err != nil {
			errors = append(errors, fmt.Sprintf("PORT must be a valid number, got: %s", c.Port))
		} else if port < 1 || port > 65535 {
			errors = append(errors, fmt.Sprintf("PORT must be between 1 and 65535, got: %d", port))
		}
	}

	if c.DBPath == "" {
		errors = append(errors, "DB_PATH cannot be empty")
	}

	if c.CacheDir == "" {
		errors = append(errors, "CACHE_DIR cannot be empty")
	}

	if c.ProviderURL == "" {
		errors = append(errors, "PROVIDER_URL cannot be empty")
	} else if _, err := url.Parse(c.ProviderURL); err != nil {
		errors = append(errors, fmt.Sprintf("PROVIDER_URL is not a valid URL: %s", c.ProviderURL))
	}

	if c.FallbackURL != "" {
		if _, err := url.Parse(c.FallbackURL); err != nil {
			errors = append(errors, fmt.Sprintf("FALLBACK_PROVIDER_URL is not a valid URL: %s", c.FallbackURL))
		}
	}

	if c.RemoteAPIURL == "" {
		errors = append(errors, "REMOTE_API_URL cannot be empty")
	} else if _, err := url.Parse(c.RemoteAPIURL); err != nil {
		errors = append(errors, fmt.Sprintf("REMOTE_API_URL is not a valid URL: %s", c.RemoteAPIURL))
	}

	validQualities := map[string]bool{
		constants.QualityLossless:      true,
		constants.QualityHiResLossless: true,
		constants.QualityHigh:          true,
		constants.QualityLow:           true,
	}
	if !validQualities[c.Quality] {
		errors = append(errors, fmt.Sprintf("QUALITY must be one of: LOSSLESS, HI_RES_LOSSLESS, HIGH, LOW, got: %s", c.Quality))
	}

	if c.MaxConcurrent < 1 {
		errors = append(errors, fmt.Sprintf("MAX_CONCURRENT must be at least 1, got: %d", c.MaxConcurrent))
	}

	if c.CacheLimitBytes < -1 {
		errors = append(errors, fmt.Sprintf("CACHE_LIMIT_BYTES must be -1 (unbounded) or >= 0, got: %d", c.CacheLimitBytes))
	}

	if c.ProbeInterval <= 0 {
		errors = append(errors, "PROBE_INTERVAL must be positive")
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		errors = append(errors, fmt.Sprintf("LOG_LEVEL must be one of: debug, info, warn, error, got: %s", c.LogLevel))
	}

	validLogFormats := map[string]bool{
		"text": true,
		"json": true,
	}
	if !validLogFormats[c.LogFormat] {
		errors = append(errors, fmt.Sprintf("LOG_FORMAT must be one of: text, json, got: %s", c.LogFormat))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(errors, "\n  - "))
	}

	return nil
}

// getEnv retrieves an environment variable with a fallback default
func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvInt64(key string, fallback int64) int64 {
	if value, ok := os.LookupEnv(key); ok {
		if n, err := strconv.ParseInt(value, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}
