// Package config handles configuration loading.
//
// Values are resolved in order: built-in defaults, an optional YAML file,
// a .env file in the working directory, then process environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Storage drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Config holds all configuration values for the application.
type Config struct {
	Port        string `yaml:"port"`
	Environment string `yaml:"env"`
	LogLevel    string `yaml:"log_level"`

	StorageDriver string `yaml:"storage_driver"`
	DBUrl         string `yaml:"db_url"`
	SQLitePath    string `yaml:"sqlite_path"`

	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`

	OTLPEndpoint string `yaml:"otlp_endpoint"`

	EnforceReferences bool          `yaml:"enforce_references"`
	RateLimitRequests int           `yaml:"rate_limit_requests"`
	RateLimitWindow   time.Duration `yaml:"rate_limit_window"`
	CacheTTL          time.Duration `yaml:"cache_ttl"`
}

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	return &Config{
		Port:              "8080",
		Environment:       "dev",
		LogLevel:          "info",
		StorageDriver:     DriverSQLite,
		SQLitePath:        "data/ledger.db",
		EnforceReferences: true,
		RateLimitRequests: 100,
		RateLimitWindow:   time.Minute,
		CacheTTL:          5 * time.Minute,
	}
}

// Load builds the configuration. path names an optional YAML file; an empty
// path skips it, a missing explicit path is an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config file: %w", err)
		}
	}

	// .env never overrides variables already set in the environment.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) applyEnv() error {
	c.Port = getEnv("PORT", c.Port)
	c.Environment = getEnv("ENV", c.Environment)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.StorageDriver = getEnv("STORAGE_DRIVER", c.StorageDriver)
	c.DBUrl = getEnv("DB_URL", c.DBUrl)
	c.SQLitePath = getEnv("SQLITE_PATH", c.SQLitePath)
	c.RedisAddr = getEnv("REDIS_ADDR", c.RedisAddr)
	c.RedisPassword = getEnv("REDIS_PASSWORD", c.RedisPassword)
	c.OTLPEndpoint = getEnv("OTLP_ENDPOINT", c.OTLPEndpoint)

	var err error
	if c.RedisDB, err = getEnvInt("REDIS_DB", c.RedisDB); err != nil {
		return err
	}
	if c.EnforceReferences, err = getEnvBool("ENFORCE_REFERENCES", c.EnforceReferences); err != nil {
		return err
	}
	if c.RateLimitRequests, err = getEnvInt("RATE_LIMIT_REQUESTS", c.RateLimitRequests); err != nil {
		return err
	}
	if c.RateLimitWindow, err = getEnvDuration("RATE_LIMIT_WINDOW", c.RateLimitWindow); err != nil {
		return err
	}
	if c.CacheTTL, err = getEnvDuration("CACHE_TTL", c.CacheTTL); err != nil {
		return err
	}

	return nil
}

// Validate checks the resolved configuration.
func (c *Config) Validate() error {
	switch c.StorageDriver {
	case DriverPostgres:
		if c.DBUrl == "" {
			return fmt.Errorf("DB_URL is required for the %s driver", DriverPostgres)
		}
	case DriverSQLite:
		if c.SQLitePath == "" {
			return fmt.Errorf("SQLITE_PATH is required for the %s driver", DriverSQLite)
		}
	default:
		return fmt.Errorf("unknown STORAGE_DRIVER %q", c.StorageDriver)
	}

	if c.RateLimitRequests <= 0 {
		return fmt.Errorf("RATE_LIMIT_REQUESTS must be positive")
	}
	if c.RateLimitWindow <= 0 {
		return fmt.Errorf("RATE_LIMIT_WINDOW must be positive")
	}

	return nil
}

// getEnv reads an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return n, nil
}

func getEnvBool(key string, defaultValue bool) (bool, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return b, nil
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return d, nil
}

// GetAddr returns the full address string for the server.
func (c *Config) GetAddr() string {
	return ":" + c.Port
}
