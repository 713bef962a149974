package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/pagegate/pagegate/pkg/observability"
)

// Config holds all application configuration
type Config struct {
	// Backend API configuration
	Backend BackendConfig `yaml:"backend"`

	// Session storage and lifecycle configuration
	Session SessionConfig `yaml:"session"`

	// Observability configuration
	Observability ObservabilityConfig `yaml:"observability"`
}

// BackendConfig holds the console API endpoint settings
type BackendConfig struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

// SessionConfig holds session persistence and lifecycle settings
type SessionConfig struct {
	// StoreType selects the token store: memory, file, or redis
	StoreType string `yaml:"store_type"`

	// File store
	FilePath string `yaml:"file_path"`

	// Redis store
	RedisURL      string `yaml:"redis_url"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`
	SessionID     string `yaml:"session_id"`

	// Lifecycle timers
	IdleTimeout      time.Duration `yaml:"idle_timeout"`
	RefreshThreshold time.Duration `yaml:"refresh_threshold"`
}

// ObservabilityConfig holds logging and metrics settings
type ObservabilityConfig struct {
	LogLevel       observability.LogLevel `yaml:"-"`
	LogLevelName   string                 `yaml:"log_level"`
	MetricsEnabled bool                   `yaml:"metrics_enabled"`
}

// DefaultConfig returns the built-in defaults
func DefaultConfig() *Config {
	return &Config{
		Backend: BackendConfig{
			BaseURL: "http://localhost:8000/api",
			Timeout: 30 * time.Second,
		},
		Session: SessionConfig{
			StoreType:        "file",
			FilePath:         defaultSessionPath(),
			RedisURL:         "redis://localhost:6379",
			SessionID:        "default",
			IdleTimeout:      time.Hour,
			RefreshThreshold: 30 * time.Minute,
		},
		Observability: ObservabilityConfig{
			LogLevel:       observability.InfoLevel,
			LogLevelName:   "info",
			MetricsEnabled: true,
		},
	}
}

// LoadConfig builds the configuration: defaults, then an optional YAML file
// named by PAGEGATE_CONFIG_FILE, then environment overrides
func LoadConfig() (*Config, error) {
	cfg := DefaultConfig()

	if path := getEnv("PAGEGATE_CONFIG_FILE", ""); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	cfg.loadEnv()
	cfg.Observability.LogLevel = parseLogLevel(cfg.Observability.LogLevelName)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	return nil
}

func (c *Config) loadEnv() {
	c.Backend.BaseURL = getEnv("PAGEGATE_API_URL", c.Backend.BaseURL)
	c.Backend.Timeout = getEnvDuration("PAGEGATE_API_TIMEOUT", c.Backend.Timeout)

	c.Session.StoreType = getEnv("PAGEGATE_STORE_TYPE", c.Session.StoreType)
	c.Session.FilePath = getEnv("PAGEGATE_SESSION_FILE", c.Session.FilePath)
	c.Session.RedisURL = getEnv("PAGEGATE_REDIS_URL", c.Session.RedisURL)
	c.Session.RedisPassword = getEnv("PAGEGATE_REDIS_PASSWORD", c.Session.RedisPassword)
	c.Session.RedisDB = getEnvInt("PAGEGATE_REDIS_DB", c.Session.RedisDB)
	c.Session.SessionID = getEnv("PAGEGATE_SESSION_ID", c.Session.SessionID)
	c.Session.IdleTimeout = getEnvDuration("PAGEGATE_IDLE_TIMEOUT", c.Session.IdleTimeout)
	c.Session.RefreshThreshold = getEnvDuration("PAGEGATE_REFRESH_THRESHOLD", c.Session.RefreshThreshold)

	c.Observability.LogLevelName = getEnv("PAGEGATE_LOG_LEVEL", c.Observability.LogLevelName)
	c.Observability.MetricsEnabled = getEnvBool("PAGEGATE_METRICS_ENABLED", c.Observability.MetricsEnabled)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Backend.BaseURL == "" {
		return fmt.Errorf("backend base URL is required")
	}
	if !strings.HasPrefix(c.Backend.BaseURL, "http://") && !strings.HasPrefix(c.Backend.BaseURL, "https://") {
		return fmt.Errorf("backend base URL must be http or https: %s", c.Backend.BaseURL)
	}

	switch c.Session.StoreType {
	case "memory":
	case "file":
		if c.Session.FilePath == "" {
			return fmt.Errorf("session file path is required for file storage")
		}
	case "redis":
		if c.Session.RedisURL == "" {
			return fmt.Errorf("redis URL is required for redis storage")
		}
		if c.Session.SessionID == "" {
			return fmt.Errorf("session ID is required for redis storage")
		}
	default:
		return fmt.Errorf("invalid store type: %s (must be memory, file, or redis)", c.Session.StoreType)
	}

	if c.Session.IdleTimeout <= 0 {
		return fmt.Errorf("idle timeout must be positive")
	}
	if c.Session.RefreshThreshold <= 0 {
		return fmt.Errorf("refresh threshold must be positive")
	}
	if c.Session.RefreshThreshold >= c.Session.IdleTimeout {
		return fmt.Errorf("refresh threshold must be below the idle timeout")
	}

	return nil
}

func defaultSessionPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "pagegate-session.json"
	}
	return home + "/.pagegate/session.json"
}

// parseLogLevel parses a log level string
func parseLogLevel(level string) observability.LogLevel {
	switch strings.ToLower(level) {
	case "debug":
		return observability.DebugLevel
	case "info":
		return observability.InfoLevel
	case "warn", "warning":
		return observability.WarnLevel
	case "error":
		return observability.ErrorLevel
	default:
		return observability.InfoLevel
	}
}

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
