package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	// HTTP server configuration
	Server ServerConfig

	// Database Configuration
	Database DatabaseConfig

	// Redis Configuration
	Redis RedisConfig

	// Logging Configuration
	Logging LoggingConfig

	// Session and cookie configuration
	Auth AuthConfig

	// Activity log configuration
	Activity ActivityConfig
}

// ServerConfig holds HTTP listener configuration
type ServerConfig struct {
	ListenAddr  string
	CORSOrigins []string
	// RoutesFile optionally overrides the built-in page declarations
	RoutesFile string
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	URL string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Address string // Redis address (host:port)
}

// LoggingConfig holds logging-related configuration
type LoggingConfig struct {
	Level  string
	Format string // json, console
}

// AuthConfig holds session token configuration
type AuthConfig struct {
	TokenTTL     time.Duration
	CookieSecure bool
}

// ActivityConfig holds user activity retention settings
type ActivityConfig struct {
	Retention     time.Duration
	PurgeSchedule string // Cron expression (5 fields)
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env files (fails silently if files don't exist)
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	tokenTTL, err := durationEnv("TOKEN_TTL", 24*time.Hour)
	if err != nil {
		return nil, err
	}

	retention, err := durationEnv("ACTIVITY_RETENTION", 30*24*time.Hour)
	if err != nil {
		return nil, err
	}

	cookieSecure := false
	if v := os.Getenv("COOKIE_SECURE"); v != "" {
		cookieSecure, err = strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("invalid COOKIE_SECURE %q: %w", v, err)
		}
	}

	return &Config{
		Server: ServerConfig{
			ListenAddr:  stringEnv("LISTEN_ADDR", ":8080"),
			CORSOrigins: listEnv("CORS_ORIGINS", []string{"http://localhost:5173"}),
			RoutesFile:  os.Getenv("ROUTES_FILE"),
		},
		Database: DatabaseConfig{
			// Database URL - default to sendwave.sqlite, allow override for dev
			URL: stringEnv("DATABASE_URL", "sendwave.sqlite"),
		},
		Redis: RedisConfig{
			Address: stringEnv("REDIS_ADDRESS", "localhost:6379"),
		},
		Logging: LoggingConfig{
			// Defaults suitable for production
			Level:  stringEnv("LOG_LEVEL", "info"),
			Format: stringEnv("LOG_FORMAT", "json"),
		},
		Auth: AuthConfig{
			TokenTTL:     tokenTTL,
			CookieSecure: cookieSecure,
		},
		Activity: ActivityConfig{
			Retention:     retention,
			PurgeSchedule: stringEnv("ACTIVITY_PURGE_SCHEDULE", "0 3 * * *"),
		},
	}, nil
}

func stringEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func listEnv(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}

	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}

	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("invalid %s %q: must be positive", key, v)
	}
	return d, nil
}
