package app

import (
	"errors"
	"os"
	"strconv"
	"time"
)

type Config struct {
	APIBaseURL    string // Required: base URL of the account API
	SessionSecret string // Required: key material for sealing session cookies (min 32 bytes)

	CookieSecure        bool          // Optional: mark the session cookie Secure (default: true)
	DatabaseFile        string        // Optional: path to SQLite database file for CSP reports (default: ./web.db)
	Env                 string        // Environment (dev, staging, prod) (default: dev)
	LogLevel            string        // Log level (debug, info, warn, error) (default: info)
	LogFormat           string        // Log format (json, text) (default: json)
	Port                int           // HTTP server port (default: 8080)
	RequestTimeout      time.Duration // Per-request upstream call budget (default: 10s)
	ShutdownGracePeriod time.Duration // Graceful shutdown timeout (default: 10s)
}

func LoadConfig() Config {
	return Config{
		APIBaseURL:    os.Getenv("WEB_API_URL"),
		SessionSecret: os.Getenv("WEB_SESSION_SECRET"),

		CookieSecure:        getEnvBoolOrDefault("WEB_COOKIE_SECURE", true),
		DatabaseFile:        getEnvOrDefault("WEB_DATABASE_FILE", "web.db"),
		Env:                 getEnvOrDefault("ENV", "dev"),
		LogLevel:            getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:           getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                getEnvIntOrDefault("PORT", 8080),
		RequestTimeout:      getEnvDurationOrDefault("WEB_REQUEST_TIMEOUT", 10*time.Second),
		ShutdownGracePeriod: getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
	}
}

// Validate rejects configurations the application cannot start with. The
// session secret's length is enforced again by the session manager; failing
// here just gives a clearer startup error.
func (cfg Config) Validate() error {
	if cfg.APIBaseURL == "" {
		return errors.New("WEB_API_URL is required")
	}
	if len(cfg.SessionSecret) < 32 {
		return errors.New("WEB_SESSION_SECRET must be at least 32 bytes")
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if parsed, err := strconv.ParseBool(value); err == nil {
		return parsed
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

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}
	return defaultValue
}
