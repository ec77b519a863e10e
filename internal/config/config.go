package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/avelinn/mediadeck/internal/constants"
)

// Config represents the application configuration
type Config struct {
	DatabasePath      string `yaml:"database_path"`
	ListenAddr        string `yaml:"listen_addr"`
	CORSAllowedOrigin string `yaml:"cors_allowed_origin"`

	LogLevel  string `yaml:"log_level"`
	LogPretty bool   `yaml:"log_pretty"`

	// Health aggregation tuning
	ProbeTimeout     time.Duration `yaml:"probe_timeout"`
	LatencyThreshold time.Duration `yaml:"latency_threshold"`
	StatusCacheTTL   time.Duration `yaml:"status_cache_ttl"`

	// API rate limiting
	RateLimitPerSecond float64 `yaml:"rate_limit_per_second"`
	RateLimitBurst     int     `yaml:"rate_limit_burst"`

	// Database connection pool settings
	DBMaxOpenConns    int           `yaml:"db_max_open_conns"`
	DBMaxIdleConns    int           `yaml:"db_max_idle_conns"`
	DBConnMaxLifetime time.Duration `yaml:"db_conn_max_lifetime"`
}

// Default returns a default configuration
func Default() *Config {
	return &Config{
		DatabasePath:       "/appdata/data/mediadeck.db",
		ListenAddr:         constants.DefaultListenAddr,
		CORSAllowedOrigin:  "",
		LogLevel:           "info",
		LogPretty:          false,
		ProbeTimeout:       constants.DefaultProbeTimeoutMS * time.Millisecond,
		LatencyThreshold:   constants.DefaultLatencyThresholdMS * time.Millisecond,
		StatusCacheTTL:     constants.DefaultStatusCacheTTLMS * time.Millisecond,
		RateLimitPerSecond: constants.DefaultRequestsPerSecond,
		RateLimitBurst:     constants.DefaultBurstSize,
		DBMaxOpenConns:     25,
		DBMaxIdleConns:     5,
		DBConnMaxLifetime:  5 * time.Minute,
	}
}

// Load loads configuration from a YAML file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// Return default config if file doesn't exist
			return Default(), nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return cfg, nil
}

// Save saves the configuration to a YAML file
func (c *Config) Save(path string) error {
	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.DatabasePath == "" {
		return fmt.Errorf("database_path is required")
	}

	if c.ListenAddr == "" {
		return fmt.Errorf("listen_addr is required")
	}

	if c.ProbeTimeout < 100*time.Millisecond {
		return fmt.Errorf("probe_timeout must be at least 100ms")
	}

	if c.LatencyThreshold <= 0 {
		return fmt.Errorf("latency_threshold must be positive")
	}

	if c.StatusCacheTTL < 0 {
		return fmt.Errorf("status_cache_ttl cannot be negative")
	}

	if c.RateLimitPerSecond <= 0 {
		return fmt.Errorf("rate_limit_per_second must be positive")
	}

	if c.RateLimitBurst < 1 {
		return fmt.Errorf("rate_limit_burst must be at least 1")
	}

	if c.DBMaxOpenConns < 1 {
		return fmt.Errorf("db_max_open_conns must be at least 1")
	}

	if c.DBMaxIdleConns < 0 {
		return fmt.Errorf("db_max_idle_conns cannot be negative")
	}

	// Validate CORS origin if provided
	if c.CORSAllowedOrigin != "" && c.CORSAllowedOrigin != "*" {
		if !strings.HasPrefix(c.CORSAllowedOrigin, "http://") && !strings.HasPrefix(c.CORSAllowedOrigin, "https://") {
			return fmt.Errorf("cors_allowed_origin must start with http:// or https:// (or be * for all origins)")
		}
	}

	return nil
}
