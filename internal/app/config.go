package app

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/aussiebroadwan/sessionkit/internal/store"
	"github.com/aussiebroadwan/sessionkit/pkg/authsdk"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds everything needed to wire a session client. Values come from,
// in increasing priority: defaults, the YAML file named by SESSIONKIT_CONFIG,
// a .env file in the working directory, and the process environment.
type Config struct {
	BaseURL     string        `yaml:"base_url"`     // Required: auth backend origin
	Locale      string        `yaml:"locale"`       // Accept-Language sent on every call (default: ru-RU)
	UserAgent   string        `yaml:"user_agent"`   // User-Agent header (default: sessionkit/1.0)
	HTTPTimeout time.Duration `yaml:"http_timeout"` // Per-request timeout (default: 10s)
	Fingerprint string        `yaml:"fingerprint"`  // Optional: static device fingerprint, overrides hardware id

	// The store holds the session records and, under transport.cookies, the
	// backend cookies in plaintext, refresh credential included. Restrict
	// access to the database file or Redis instance accordingly.
	StoreDriver   string `yaml:"store_driver"`   // memory, sqlite or redis (default: sqlite)
	DatabaseFile  string `yaml:"database_file"`  // SQLite file (default: ./session.db)
	RedisAddr     string `yaml:"redis_addr"`     // Redis address (default: localhost:6379)
	RedisPassword string `yaml:"redis_password"` // Optional
	RedisDB       int    `yaml:"redis_db"`       // Redis database number (default: 0)
	RedisPrefix   string `yaml:"redis_prefix"`   // Key prefix (default: sessionkit:)

	SharedRefresh      bool    `yaml:"shared_refresh"`        // One in-flight refresh for concurrent 401s (default: true)
	MaxProbeAttempts   int     `yaml:"max_probe_attempts"`    // Busy probe attempts (default: 3)
	ProbeRatePerSecond float64 `yaml:"probe_rate_per_second"` // Probe pacing (default: 4)

	Env       string `yaml:"env"`        // Environment (dev, staging, prod) (default: dev)
	LogLevel  string `yaml:"log_level"`  // Log level (debug, info, warn, error) (default: info)
	LogFormat string `yaml:"log_format"` // Log format (json, text) (default: text)
}

// DefaultConfig returns the configuration used when nothing is set.
func DefaultConfig() Config {
	return Config{
		Locale:             authsdk.DefaultLocale,
		UserAgent:          authsdk.DefaultUserAgent,
		HTTPTimeout:        10 * time.Second,
		StoreDriver:        store.DriverSQLite,
		DatabaseFile:       "session.db",
		RedisAddr:          "localhost:6379",
		RedisPrefix:        "sessionkit:",
		SharedRefresh:      true,
		MaxProbeAttempts:   3,
		ProbeRatePerSecond: 4,
		Env:                "dev",
		LogLevel:           "info",
		LogFormat:          "text",
	}
}

func LoadConfig() (Config, error) {
	// A missing .env is normal; the process environment still applies.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("failed to read .env: %w", err)
	}

	cfg := DefaultConfig()
	if path := os.Getenv("SESSIONKIT_CONFIG"); path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	cfg.BaseURL = getEnvOrDefault("SESSIONKIT_BASE_URL", cfg.BaseURL)
	cfg.Locale = getEnvOrDefault("SESSIONKIT_LOCALE", cfg.Locale)
	cfg.UserAgent = getEnvOrDefault("SESSIONKIT_USER_AGENT", cfg.UserAgent)
	cfg.HTTPTimeout = getEnvDurationOrDefault("SESSIONKIT_HTTP_TIMEOUT", cfg.HTTPTimeout)
	cfg.Fingerprint = getEnvOrDefault("SESSIONKIT_FINGERPRINT", cfg.Fingerprint)

	cfg.StoreDriver = getEnvOrDefault("SESSIONKIT_STORE_DRIVER", cfg.StoreDriver)
	cfg.DatabaseFile = getEnvOrDefault("SESSIONKIT_DATABASE_FILE", cfg.DatabaseFile)
	cfg.RedisAddr = getEnvOrDefault("SESSIONKIT_REDIS_ADDR", cfg.RedisAddr)
	cfg.RedisPassword = getEnvOrDefault("SESSIONKIT_REDIS_PASSWORD", cfg.RedisPassword)
	cfg.RedisDB = getEnvIntOrDefault("SESSIONKIT_REDIS_DB", cfg.RedisDB)
	cfg.RedisPrefix = getEnvOrDefault("SESSIONKIT_REDIS_PREFIX", cfg.RedisPrefix)

	cfg.SharedRefresh = getEnvBoolOrDefault("SESSIONKIT_SHARED_REFRESH", cfg.SharedRefresh)
	cfg.MaxProbeAttempts = getEnvIntOrDefault("SESSIONKIT_MAX_PROBE_ATTEMPTS", cfg.MaxProbeAttempts)
	cfg.ProbeRatePerSecond = getEnvFloatOrDefault("SESSIONKIT_PROBE_RATE", cfg.ProbeRatePerSecond)

	cfg.Env = getEnvOrDefault("ENV", cfg.Env)
	cfg.LogLevel = getEnvOrDefault("LOG_LEVEL", cfg.LogLevel)
	cfg.LogFormat = getEnvOrDefault("LOG_FORMAT", cfg.LogFormat)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports the first setting that cannot work.
func (c Config) Validate() error {
	if c.BaseURL == "" {
		return errors.New("config: SESSIONKIT_BASE_URL is required")
	}
	switch c.StoreDriver {
	case store.DriverMemory, store.DriverSQLite, store.DriverRedis:
	default:
		return fmt.Errorf("config: unsupported store driver %q", c.StoreDriver)
	}
	if c.HTTPTimeout <= 0 {
		return errors.New("config: http timeout must be positive")
	}
	if c.ProbeRatePerSecond <= 0 {
		return errors.New("config: probe rate must be positive")
	}
	return nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if f, err := strconv.ParseFloat(os.Getenv(key), 64); err == nil {
		return f
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if b, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return b
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	// Try parsing as duration (e.g., "10s", "1m")
	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Bare integers are seconds
	if seconds, err := strconv.Atoi(value); err == nil {
		return time.Duration(seconds) * time.Second
	}

	return defaultValue
}
