package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application. It is loaded once
// at startup and passed into constructors as an immutable snapshot;
// components never share a mutable settings object.
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	CORS      CORSConfig
	Market    MarketConfig
	Scheduler SchedulerConfig
	SMTP      SMTPConfig
	Settings  SettingsConfig
	// Location is the market-local timezone used for calendar-day and
	// time-of-day decisions (NAV publish cutoff, digest times).
	Location *time.Location
}

// ServerConfig holds server-specific configuration
type ServerConfig struct {
	Port string
	Host string
	Addr string // Combined host:port for convenience
}

// DatabaseConfig holds database-specific configuration
type DatabaseConfig struct {
	Path string
}

// CORSConfig holds CORS-specific configuration
type CORSConfig struct {
	AllowedOrigins []string
}

// MarketConfig controls the valuation providers and the local NAV cache.
type MarketConfig struct {
	// FetchTimeout bounds each provider HTTP request.
	FetchTimeout time.Duration
	// RateLimit is the maximum provider requests per second.
	RateLimit float64
	// CacheTTL is how long cached NAV history stays fresh.
	CacheTTL time.Duration
	// PublishHour is the local hour after which the day's NAV is expected
	// to be published; past it, a cache whose newest row predates today is
	// considered stale.
	PublishHour int
	// FanoutWidth bounds the concurrent valuation fetches of the
	// position aggregator.
	FanoutWidth int
}

// SchedulerConfig controls the background reconciliation loop.
type SchedulerConfig struct {
	// Interval between reconciliation passes.
	Interval time.Duration
	// SnapshotRetention is how long intraday snapshots are kept.
	SnapshotRetention time.Duration
}

// SMTPConfig holds the email transport configuration. Password may be
// empty here and resolved from the encrypted settings store instead.
type SMTPConfig struct {
	Host     string
	Port     string
	From     string
	Username string
	Password string
}

// SettingsConfig holds the key material for the encrypted settings store.
type SettingsConfig struct {
	// FernetKey is a base64-encoded fernet key; empty disables encryption
	// of secret settings values.
	FernetKey string
}

// Load reads configuration from environment variables and .env file
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	tzName := getEnv("MARKET_TIMEZONE", "Asia/Shanghai")
	loc, err := time.LoadLocation(tzName)
	if err != nil {
		return nil, fmt.Errorf("invalid MARKET_TIMEZONE %q: %w", tzName, err)
	}

	config := &Config{
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "5001"),
			Host: getEnv("SERVER_HOST", "localhost"),
		},
		Database: DatabaseConfig{
			Path: getEnv("DB_PATH", "./data/fundval.db"),
		},
		CORS: CORSConfig{
			AllowedOrigins: []string{
				"http://localhost:3000",
				"http://localhost",
			},
		},
		Market: MarketConfig{
			FetchTimeout: time.Duration(getEnvInt("MARKET_FETCH_TIMEOUT_SECONDS", 5)) * time.Second,
			RateLimit:    float64(getEnvInt("MARKET_RATE_LIMIT_PER_SECOND", 5)),
			CacheTTL:     time.Duration(getEnvInt("NAV_CACHE_TTL_HOURS", 24)) * time.Hour,
			PublishHour:  getEnvInt("NAV_PUBLISH_HOUR", 16),
			FanoutWidth:  getEnvInt("VALUATION_FANOUT_WIDTH", 10),
		},
		Scheduler: SchedulerConfig{
			Interval:          time.Duration(getEnvInt("SCHEDULER_INTERVAL_MINUTES", 5)) * time.Minute,
			SnapshotRetention: time.Duration(getEnvInt("SNAPSHOT_RETENTION_DAYS", 30)) * 24 * time.Hour,
		},
		SMTP: SMTPConfig{
			Host:     getEnv("SMTP_HOST", ""),
			Port:     getEnv("SMTP_PORT", "587"),
			From:     getEnv("SMTP_FROM", ""),
			Username: getEnv("SMTP_USERNAME", ""),
			Password: getEnv("SMTP_PASSWORD", ""),
		},
		Settings: SettingsConfig{
			FernetKey: getEnv("SETTINGS_FERNET_KEY", ""),
		},
		Location: loc,
	}

	// Combine host and port
	config.Server.Addr = fmt.Sprintf("%s:%s", config.Server.Host, config.Server.Port)

	return config, nil
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvInt gets an integer environment variable or returns a default value.
func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return n
}
