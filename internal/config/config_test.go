package config

import (
	"strings"
	"testing"
	"time"

	"github.com/dmaytorres/trackvault/internal/constants"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	if cfg.Port != constants.DefaultPort {
		t.Errorf("Expected default port %s, got %s", constants.DefaultPort, cfg.Port)
	}
	if cfg.MaxConcurrent != constants.DefaultConcurrency {
		t.Errorf("Expected default concurrency %d, got %d", constants.DefaultConcurrency, cfg.MaxConcurrent)
	}
	if cfg.CacheLimitBytes != constants.DefaultCacheLimitBytes {
		t.Errorf("Expected default cache limit %d, got %d", constants.DefaultCacheLimitBytes, cfg.CacheLimitBytes)
	}
	if cfg.Quality != constants.DefaultQuality {
		t.Errorf("Expected default quality %s, got %s", constants.DefaultQuality, cfg.Quality)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("Default configuration should validate: %v", err)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9999")
	t.Setenv("MAX_CONCURRENT", "5")
	t.Setenv("CACHE_LIMIT_BYTES", "1073741824")
	t.Setenv("PROBE_INTERVAL", "45s")
	t.Setenv("QUALITY", constants.QualityHigh)

	cfg := Load()

	if cfg.Port != "9999" {
		t.Errorf("Expected port 9999, got %s", cfg.Port)
	}
	if cfg.MaxConcurrent != 5 {
		t.Errorf("Expected concurrency 5, got %d", cfg.MaxConcurrent)
	}
	if cfg.CacheLimitBytes != 1073741824 {
		t.Errorf("Expected 1 GiB limit, got %d", cfg.CacheLimitBytes)
	}
	if cfg.ProbeInterval != 45*time.Second {
		t.Errorf("Expected 45s probe interval, got %v", cfg.ProbeInterval)
	}
	if cfg.Quality != constants.QualityHigh {
		t.Errorf("Expected quality %s, got %s", constants.QualityHigh, cfg.Quality)
	}
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	cfg := Load()
	cfg.Port = "not-a-port"
	cfg.Quality = "ULTRA"
	cfg.MaxConcurrent = 0
	cfg.CacheLimitBytes = -2

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Expected validation to fail")
	}

	msg := err.Error()
	for _, want := range []string{"PORT", "QUALITY", "MAX_CONCURRENT", "CACHE_LIMIT_BYTES"} {
		if !strings.Contains(msg, want) {
			t.Errorf("Expected error to mention %s, got: %s", want, msg)
		}
	}
}

func TestValidate_LogSettings(t *testing.T) {
	cfg := Load()
	cfg.LogLevel = "verbose"
	if err := cfg.Validate(); err == nil {
		t.Error("Expected invalid log level to fail validation")
	}

	cfg = Load()
	cfg.LogFormat = "xml"
	if err := cfg.Validate(); err == nil {
		t.Error("Expected invalid log format to fail validation")
	}
}
