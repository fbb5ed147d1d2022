package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config captures environment driven configuration values for the booking service.
type Config struct {
	HTTPPort        int
	SQLitePath      string
	LogLevel        slog.Level
	ShutdownTimeout time.Duration
}

// Load parses configuration values from the current process environment. A
// `.env` file in the working directory is merged in first when present;
// real environment variables win over file entries.
//
// The loader applies sensible defaults for optional fields while collecting
// every invalid value into a single error.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		HTTPPort:        8080,
		SQLitePath:      "booking.db",
		LogLevel:        slog.LevelInfo,
		ShutdownTimeout: 10 * time.Second,
	}

	invalid := make([]string, 0, 2)

	if portValue := strings.TrimSpace(os.Getenv("BOOKING_HTTP_PORT")); portValue != "" {
		port, err := strconv.Atoi(portValue)
		if err != nil || port <= 0 {
			invalid = append(invalid, "BOOKING_HTTP_PORT")
		} else {
			cfg.HTTPPort = port
		}
	}

	if path := strings.TrimSpace(os.Getenv("BOOKING_SQLITE_PATH")); path != "" {
		cfg.SQLitePath = path
	}

	if levelValue := strings.TrimSpace(os.Getenv("BOOKING_LOG_LEVEL")); levelValue != "" {
		level, ok := parseLogLevel(levelValue)
		if !ok {
			invalid = append(invalid, "BOOKING_LOG_LEVEL")
		} else {
			cfg.LogLevel = level
		}
	}

	if timeoutValue := strings.TrimSpace(os.Getenv("BOOKING_SHUTDOWN_TIMEOUT")); timeoutValue != "" {
		timeout, err := time.ParseDuration(timeoutValue)
		if err != nil || timeout <= 0 {
			invalid = append(invalid, "BOOKING_SHUTDOWN_TIMEOUT")
		} else {
			cfg.ShutdownTimeout = timeout
		}
	}

	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("invalid environment variable values: %s", strings.Join(invalid, ", "))
	}

	return cfg, nil
}

func parseLogLevel(value string) (slog.Level, bool) {
	switch strings.ToLower(value) {
	case "debug":
		return slog.LevelDebug, true
	case "info":
		return slog.LevelInfo, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	default:
		return slog.LevelInfo, false
	}
}
