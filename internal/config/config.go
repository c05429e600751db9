package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the application configuration
type Config struct {
	// Storage
	StorageType  string // "sqlite" or "postgres"
	SQLitePath   string
	SQLiteDriver string // "sqlite3" (cgo) or "sqlite" (pure Go)
	PostgresURL  string

	// API Server
	APIPort  string
	APIHost  string
	APIToken string

	// CLI
	APIEndpoint   string
	WatchInterval time.Duration

	// Reporting
	Timezone string

	// Observability
	LogLevel     string
	OTELEndpoint string
	ServiceName  string
	OTELInsecure bool
}

// Load loads the configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not found)
	_ = godotenv.Load()

	cfg := &Config{
		StorageType:  getEnv("STORAGE_TYPE", "sqlite"),
		SQLitePath:   getEnv("SQLITE_PATH", "./worktime.db"),
		SQLiteDriver: getEnv("SQLITE_DRIVER", "sqlite3"),
		PostgresURL:  getEnv("POSTGRES_URL", ""),
		APIPort:      getEnv("API_PORT", "8080"),
		APIHost:      getEnv("API_HOST", "localhost"),
		APIToken:     getEnv("API_TOKEN", ""),
		APIEndpoint:  getEnv("API_ENDPOINT", "http://localhost:8080"),
		Timezone:     getEnv("TIMEZONE", "Local"),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
		OTELEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		ServiceName:  getEnv("OTEL_SERVICE_NAME", "worktime-metrics"),
	}

	var err error
	if cfg.OTELInsecure, err = strconv.ParseBool(getEnv("OTEL_INSECURE", "false")); err != nil {
		return nil, &ConfigError{Field: "OTEL_INSECURE", Message: "must be a boolean"}
	}
	if cfg.WatchInterval, err = time.ParseDuration(getEnv("WATCH_INTERVAL", "30s")); err != nil {
		return nil, &ConfigError{Field: "WATCH_INTERVAL", Message: "must be a duration such as 30s or 1m"}
	}

	return cfg, nil
}

// getEnv returns the value of an environment variable or a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.StorageType != "sqlite" && c.StorageType != "postgres" {
		return &ConfigError{Field: "STORAGE_TYPE", Message: "must be 'sqlite' or 'postgres'"}
	}
	if c.StorageType == "postgres" && c.PostgresURL == "" {
		return &ConfigError{Field: "POSTGRES_URL", Message: "PostgreSQL URL is required when STORAGE_TYPE is 'postgres'"}
	}
	if c.StorageType == "sqlite" && c.SQLiteDriver != "sqlite3" && c.SQLiteDriver != "sqlite" {
		return &ConfigError{Field: "SQLITE_DRIVER", Message: "must be 'sqlite3' or 'sqlite'"}
	}
	if _, err := c.Location(); err != nil {
		return &ConfigError{Field: "TIMEZONE", Message: "unknown time zone " + c.Timezone}
	}
	if c.WatchInterval <= 0 {
		return &ConfigError{Field: "WATCH_INTERVAL", Message: "must be positive"}
	}
	return nil
}

// Location resolves the reporting time zone
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" || c.Timezone == "Local" {
		return time.Local, nil
	}
	return time.LoadLocation(c.Timezone)
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return e.Field + ": " + e.Message
}
