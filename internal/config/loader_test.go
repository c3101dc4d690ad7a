package config

import (
	"log/slog"
	"os"
	"testing"
)

var allKeys = []string{
	"BOOKER_STORE_DRIVER",
	"BOOKER_DATA_DIR",
	"BOOKER_SQLITE_DSN",
	"BOOKER_POSTGRES_DSN",
	"BOOKER_S3_BUCKET",
	"BOOKER_S3_REGION",
	"BOOKER_S3_ENDPOINT",
	"BOOKER_S3_PATH_STYLE",
	"BOOKER_S3_PREFIX",
	"BOOKER_S3_ACCESS_KEY_ID",
	"BOOKER_S3_SECRET_ACCESS_KEY",
	"BOOKER_MAX_AUTH_ATTEMPTS",
	"BOOKER_TIMEZONE",
	"BOOKER_HASH_SECRETS",
	"BOOKER_LOG_LEVEL",
	"BOOKER_LOG_FORMAT",
	"BOOKER_METRICS_TEXTFILE",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range allKeys {
		// Setenv first so the original value is restored after the test.
		t.Setenv(key, "")
		if err := os.Unsetenv(key); err != nil {
			t.Fatalf("failed to unset %s: %v", key, err)
		}
	}
}

func TestLoader_ParseEnvironment(t *testing.T) {

	t.Run("applies defaults when variables are missing", func(t *testing.T) {
		clearEnv(t)

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load returned error: %v", err)
		}

		if cfg.StoreDriver != DriverJSON {
			t.Fatalf("expected default driver json, got %q", cfg.StoreDriver)
		}
		if cfg.DataDir != "." {
			t.Fatalf("expected default data dir '.', got %q", cfg.DataDir)
		}
		if cfg.SQLiteDSN != "file:booker.db" {
			t.Fatalf("unexpected default DSN: %q", cfg.SQLiteDSN)
		}
		if cfg.MaxAuthAttempts != 3 {
			t.Fatalf("expected 3 auth attempts, got %d", cfg.MaxAuthAttempts)
		}
		if cfg.LogLevel != slog.LevelInfo || cfg.LogFormat != "text" {
			t.Fatalf("unexpected log defaults: %v %q", cfg.LogLevel, cfg.LogFormat)
		}
		if cfg.S3.Region != "us-east-1" {
			t.Fatalf("expected default region, got %q", cfg.S3.Region)
		}
	})

	t.Run("errors when driver specific values are missing", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("BOOKER_STORE_DRIVER", "postgres")

		_, err := Load()
		if err == nil {
			t.Fatalf("expected error when required values are missing")
		}
		expected := "required environment variables are not set: BOOKER_POSTGRES_DSN"
		if err.Error() != expected {
			t.Fatalf("unexpected error message: %q", err.Error())
		}
	})

	t.Run("collects every invalid value", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("BOOKER_STORE_DRIVER", "floppy")
		t.Setenv("BOOKER_MAX_AUTH_ATTEMPTS", "0")
		t.Setenv("BOOKER_LOG_FORMAT", "xml")

		_, err := Load()
		if err == nil {
			t.Fatalf("expected error for invalid values")
		}
		expected := "environment variables have invalid values: BOOKER_STORE_DRIVER, BOOKER_MAX_AUTH_ATTEMPTS, BOOKER_LOG_FORMAT"
		if err.Error() != expected {
			t.Fatalf("unexpected error message: %q", err.Error())
		}
	})

	t.Run("parses s3 and numeric fields", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("BOOKER_STORE_DRIVER", "S3")
		t.Setenv("BOOKER_S3_BUCKET", "bookings")
		t.Setenv("BOOKER_S3_ENDPOINT", "http://localhost:9000")
		t.Setenv("BOOKER_S3_PATH_STYLE", "true")
		t.Setenv("BOOKER_S3_ACCESS_KEY_ID", "key")
		t.Setenv("BOOKER_S3_SECRET_ACCESS_KEY", "secret")
		t.Setenv("BOOKER_MAX_AUTH_ATTEMPTS", "5")
		t.Setenv("BOOKER_TIMEZONE", "UTC")
		t.Setenv("BOOKER_HASH_SECRETS", "1")
		t.Setenv("BOOKER_LOG_LEVEL", "debug")
		t.Setenv("BOOKER_METRICS_TEXTFILE", "/var/lib/node_exporter/booker.prom")

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load returned error: %v", err)
		}

		if cfg.StoreDriver != DriverS3 || cfg.S3.Bucket != "bookings" || !cfg.S3.PathStyle {
			t.Fatalf("unexpected s3 config: %+v", cfg.S3)
		}
		if cfg.MaxAuthAttempts != 5 {
			t.Fatalf("expected 5 auth attempts, got %d", cfg.MaxAuthAttempts)
		}
		if cfg.Location.String() != "UTC" {
			t.Fatalf("expected UTC location, got %s", cfg.Location)
		}
		if !cfg.HashSecrets || cfg.LogLevel != slog.LevelDebug {
			t.Fatalf("unexpected flags: hash=%v level=%v", cfg.HashSecrets, cfg.LogLevel)
		}
		if cfg.MetricsTextfile != "/var/lib/node_exporter/booker.prom" {
			t.Fatalf("unexpected metrics path %q", cfg.MetricsTextfile)
		}
	})

	t.Run("s3 credentials come in pairs", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("BOOKER_S3_ACCESS_KEY_ID", "key")

		if _, err := Load(); err == nil {
			t.Fatalf("expected error for half a credential pair")
		}
	})
}
