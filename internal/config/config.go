package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// API configuration (REST backend consumed by the client)
	API APIConfig

	// Realtime configuration (socket channel)
	Realtime RealtimeConfig

	// DevServer configuration (local in-memory server)
	DevServer DevServerConfig

	// Logging configuration
	Logging LoggingConfig

	// Application metadata
	App AppConfig
}

// APIConfig holds REST backend configuration
type APIConfig struct {
	BaseURL string
}

// RealtimeConfig holds socket channel configuration
type RealtimeConfig struct {
	URL             string
	TypingPerSecond float64
	TypingBurst     int
}

// DevServerConfig holds the local dev server configuration
type DevServerConfig struct {
	Port              string
	JWTSecret         string
	TokenTTL          time.Duration
	AllowedOrigins    []string
	RequestsPerSecond float64
	BurstSize         int
	ShutdownTimeout   time.Duration
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, text
}

// AppConfig holds application metadata
type AppConfig struct {
	Name        string
	Version     string
	Environment string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists (for local development)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	cfg := &Config{
		API: APIConfig{
			BaseURL: getEnvOrDefault("API_BASE_URL", "http://localhost:8080/api/v1"),
		},
		Realtime: RealtimeConfig{
			URL:             getEnvOrDefault("REALTIME_URL", "ws://localhost:8080/api/v1/ws"),
			TypingPerSecond: getFloatOrDefault("REALTIME_TYPING_RPS", 1),
			TypingBurst:     getIntOrDefault("REALTIME_TYPING_BURST", 2),
		},
		DevServer: DevServerConfig{
			Port:              getEnvOrDefault("DEVSERVER_PORT", ":8080"),
			JWTSecret:         getEnvOrDefault("DEVSERVER_JWT_SECRET", "local-dev-secret-do-not-use-in-prod"),
			TokenTTL:          getDurationOrDefault("DEVSERVER_TOKEN_TTL", 12*time.Hour),
			AllowedOrigins:    getStringSliceOrDefault("DEVSERVER_ALLOWED_ORIGINS", []string{"http://localhost:5173"}),
			RequestsPerSecond: getFloatOrDefault("DEVSERVER_RATE_LIMIT_RPS", 20),
			BurstSize:         getIntOrDefault("DEVSERVER_RATE_LIMIT_BURST", 40),
			ShutdownTimeout:   getDurationOrDefault("DEVSERVER_SHUTDOWN_TIMEOUT", 15*time.Second),
		},
		Logging: LoggingConfig{
			Level:  getEnvOrDefault("LOG_LEVEL", "info"),
			Format: getEnvOrDefault("LOG_FORMAT", "json"),
		},
		App: AppConfig{
			Name:        getEnvOrDefault("APP_NAME", "marketplace-client"),
			Version:     getEnvOrDefault("APP_VERSION", "dev"),
			Environment: getEnvOrDefault("APP_ENV", "development"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	var errs []string

	if c.API.BaseURL == "" {
		errs = append(errs, "API_BASE_URL is required")
	}

	if c.Realtime.URL == "" {
		errs = append(errs, "REALTIME_URL is required")
	} else if !strings.HasPrefix(c.Realtime.URL, "ws://") && !strings.HasPrefix(c.Realtime.URL, "wss://") {
		errs = append(errs, "REALTIME_URL must use the ws or wss scheme")
	}

	if c.App.Environment == "production" && c.DevServer.JWTSecret == "local-dev-secret-do-not-use-in-prod" {
		errs = append(errs, "DEVSERVER_JWT_SECRET must be overridden outside development")
	}

	if len(errs) > 0 {
		return errors.New("configuration errors:\n  - " + strings.Join(errs, "\n  - "))
	}

	return nil
}

// IsDevelopment returns true if running in development environment
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}

// Helper functions

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getStringSliceOrDefault(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		result := make([]string, 0, len(parts))
		for _, part := range parts {
			trimmed := strings.TrimSpace(part)
			if trimmed != "" {
				result = append(result, trimmed)
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return defaultValue
}

// String returns a redacted string representation of the config (safe for logging)
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{API: %s, Realtime: %s, DevServer: %s, JWT: [REDACTED], Environment: %s}",
		c.API.BaseURL,
		c.Realtime.URL,
		c.DevServer.Port,
		c.App.Environment,
	)
}
