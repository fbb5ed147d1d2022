package config

import (
	"log/slog"
	"os"
	"testing"
	"time"
)

func TestLoader_ParseEnvironment(t *testing.T) {

	t.Run("applies defaults when variables are missing", func(t *testing.T) {
		unset := []string{
			"BOOKING_HTTP_PORT",
			"BOOKING_SQLITE_PATH",
			"BOOKING_LOG_LEVEL",
			"BOOKING_SHUTDOWN_TIMEOUT",
		}
		for _, key := range unset {
			if err := os.Unsetenv(key); err != nil {
				t.Fatalf("failed to unset %s: %v", key, err)
			}
		}

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load returned error: %v", err)
		}

		if cfg.HTTPPort != 8080 {
			t.Fatalf("expected default HTTP port 8080, got %d", cfg.HTTPPort)
		}
		if cfg.SQLitePath != "booking.db" {
			t.Fatalf("unexpected default database path: %q", cfg.SQLitePath)
		}
		if cfg.LogLevel != slog.LevelInfo {
			t.Fatalf("expected default log level info, got %v", cfg.LogLevel)
		}
		if cfg.ShutdownTimeout != 10*time.Second {
			t.Fatalf("expected default shutdown timeout 10s, got %s", cfg.ShutdownTimeout)
		}
	})

	t.Run("parses duration and numeric fields", func(t *testing.T) {
		t.Setenv("BOOKING_HTTP_PORT", "9090")
		t.Setenv("BOOKING_SQLITE_PATH", "/tmp/booking.db")
		t.Setenv("BOOKING_LOG_LEVEL", "debug")
		t.Setenv("BOOKING_SHUTDOWN_TIMEOUT", "30s")

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load returned error: %v", err)
		}

		if cfg.HTTPPort != 9090 {
			t.Fatalf("expected HTTP port 9090, got %d", cfg.HTTPPort)
		}
		if cfg.SQLitePath != "/tmp/booking.db" {
			t.Fatalf("unexpected database path: %q", cfg.SQLitePath)
		}
		if cfg.LogLevel != slog.LevelDebug {
			t.Fatalf("expected log level debug, got %v", cfg.LogLevel)
		}
		if cfg.ShutdownTimeout != 30*time.Second {
			t.Fatalf("expected shutdown timeout 30s, got %s", cfg.ShutdownTimeout)
		}
	})

	t.Run("aggregates invalid values into one error", func(t *testing.T) {
		t.Setenv("BOOKING_HTTP_PORT", "not-a-port")
		t.Setenv("BOOKING_LOG_LEVEL", "verbose")
		t.Setenv("BOOKING_SHUTDOWN_TIMEOUT", "-5s")

		_, err := Load()
		if err == nil {
			t.Fatalf("expected error for invalid values")
		}
		expected := "invalid environment variable values: BOOKING_HTTP_PORT, BOOKING_LOG_LEVEL, BOOKING_SHUTDOWN_TIMEOUT"
		if err.Error() != expected {
			t.Fatalf("unexpected error message: %q", err.Error())
		}
	})

	t.Run("accepts warn alias for warning", func(t *testing.T) {
		t.Setenv("BOOKING_LOG_LEVEL", "warning")

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load returned error: %v", err)
		}
		if cfg.LogLevel != slog.LevelWarn {
			t.Fatalf("expected log level warn, got %v", cfg.LogLevel)
		}
	})
}
