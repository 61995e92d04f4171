package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

// Config holds all configuration for deploywizard
type Config struct {
	// Per-query budget for read-type node calls
	Timeout time.Duration

	// Receipt polling
	ReceiptTimeout time.Duration
	Confirmations  uint64

	// Workspace for credentials and deployment records
	Workspace string

	// Logging
	Verbose bool
}

// Load creates a new config from environment variables. A project-local
// .env file is picked up first when present.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Timeout:        getDuration("DEPLOYWIZARD_TIMEOUT", 30*time.Second),
		ReceiptTimeout: getDuration("DEPLOYWIZARD_RECEIPT_TIMEOUT", 90*time.Second),
		Confirmations:  uint64(getInt64("DEPLOYWIZARD_CONFIRMATIONS", 1)),
		Workspace:      getEnv("DEPLOYWIZARD_WORKSPACE", "./.deploywizard"),
		Verbose:        getBool("VERBOSE", false),
	}
}

// Logger builds the process logger according to the configured verbosity.
func (c *Config) Logger() zerolog.Logger {
	level := zerolog.InfoLevel
	if c.Verbose {
		level = zerolog.DebugLevel
	}
	writer := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}
	return zerolog.New(writer).Level(level).With().Timestamp().Logger()
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getInt64(key string, fallback int64) int64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseInt(value, 10, 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return fallback
}
