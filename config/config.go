package config

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"chronoutil/internal/logger"
	"chronoutil/pkg/chrono"
)

// Config holds the chronod service configuration. Values are built from
// defaults, then an optional YAML file named by CHRONOD_CONFIG, then
// environment variables.
type Config struct {
	Service  string `yaml:"service" env:"CHRONOD_SERVICE"`
	LogLevel string `yaml:"log_level" env:"LOG_LEVEL"`

	// Listeners
	HTTPAddr    string `yaml:"http_addr" env:"HTTP_ADDR"`
	MetricsAddr string `yaml:"metrics_addr" env:"METRICS_ADDR"`

	// Infrastructure. An empty RedisAddr disables the instant cache.
	RedisAddr     string `yaml:"redis_addr" env:"REDIS_ADDR"`
	RedisPassword string `yaml:"redis_password" env:"REDIS_PASSWORD"`
	SQLitePath    string `yaml:"sqlite_path" env:"SQLITE_PATH"`

	// Clock stream
	BroadcastIntervalMS int    `yaml:"broadcast_interval_ms" env:"BROADCAST_INTERVAL_MS"`
	DefaultFormat       string `yaml:"default_format" env:"DEFAULT_FORMAT"`
	RingSize            int    `yaml:"ring_size" env:"RING_SIZE"`
	JournalSamples      bool   `yaml:"journal_samples" env:"JOURNAL_SAMPLES"`

	// Business days
	HolidayFile string `yaml:"holiday_file" env:"HOLIDAY_FILE"`

	// API
	TOTPSecret        string  `yaml:"totp_secret" env:"TOTP_SECRET"`
	RateLimit         float64 `yaml:"rate_limit" env:"RATE_LIMIT"`
	RateBurst         int     `yaml:"rate_burst" env:"RATE_BURST"`
	ParseCacheTTLSecs int     `yaml:"parse_cache_ttl_secs" env:"PARSE_CACHE_TTL_SECS"`
}

// Defaults returns the built-in configuration.
func Defaults() *Config {
	return &Config{
		Service:  "chronod",
		LogLevel: "info",

		HTTPAddr:    ":8080",
		MetricsAddr: ":9090",

		SQLitePath: "data/instants.db",

		BroadcastIntervalMS: 1000,
		DefaultFormat:       chrono.DateAndTime.String(),
		RingSize:            1024,

		RateLimit:         20,
		RateBurst:         40,
		ParseCacheTTLSecs: 300,
	}
}

// Load layers the YAML file named by CHRONOD_CONFIG and the environment
// over Defaults and validates the result.
func Load() (*Config, error) {
	cfg := Defaults()
	if path := os.Getenv("CHRONOD_CONFIG"); path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return nil, err
		}
	}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// Validate checks values that would otherwise fail deep inside a component.
func (c *Config) Validate() error {
	if c.BroadcastIntervalMS <= 0 {
		return fmt.Errorf("broadcast_interval_ms must be positive, got %d", c.BroadcastIntervalMS)
	}
	if c.RingSize < 2 {
		return fmt.Errorf("ring_size must be at least 2, got %d", c.RingSize)
	}
	if _, err := chrono.ParseOutputFormat(c.DefaultFormat); err != nil {
		return fmt.Errorf("default_format: %w", err)
	}
	if c.RateLimit < 0 || c.RateBurst < 0 {
		return fmt.Errorf("rate limit values must not be negative")
	}
	return nil
}

// BroadcastInterval returns the clock stream period.
func (c *Config) BroadcastInterval() chrono.TimeSpan {
	return chrono.TimeSpan(c.BroadcastIntervalMS) * chrono.Millisecond
}

// OutputFormat returns the parsed DefaultFormat.
func (c *Config) OutputFormat() chrono.DateTimeOutputFormat {
	f, err := chrono.ParseOutputFormat(c.DefaultFormat)
	if err != nil {
		return chrono.DateAndTime
	}
	return f
}

// ParseCacheTTL returns how long parse results stay cached.
func (c *Config) ParseCacheTTL() chrono.TimeSpan {
	return chrono.TimeSpan(c.ParseCacheTTLSecs) * chrono.Second
}

// Level maps LogLevel to a slog level.
func (c *Config) Level() slog.Level { return logger.ParseLevel(c.LogLevel) }
