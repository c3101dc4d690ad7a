package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Store drivers understood by the CLI.
const (
	DriverJSON     = "json"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	// DriverS3 keeps one object per collection. A commit spanning several
	// collections is not atomic; a failed put can leave it partly applied.
	DriverS3       = "s3"
	DriverMemory   = "memory"
)

// Config captures environment driven configuration values for the booker CLI.
type Config struct {
	StoreDriver     string
	DataDir         string
	SQLiteDSN       string
	PostgresDSN     string
	S3              S3Config
	MaxAuthAttempts int
	Location        *time.Location
	HashSecrets     bool
	LogLevel        slog.Level
	LogFormat       string
	MetricsTextfile string
}

// S3Config holds the object store settings used by the s3 driver.
type S3Config struct {
	Bucket          string
	Region          string
	Endpoint        string
	Prefix          string
	PathStyle       bool
	AccessKeyID     string
	SecretAccessKey string
}

// Load parses configuration values from the current process environment.
//
// Optional fields fall back to defaults. Every missing or malformed variable
// is collected and reported in a single error.
func Load() (Config, error) {
	cfg := Config{
		StoreDriver:     DriverJSON,
		DataDir:         ".",
		SQLiteDSN:       "file:booker.db",
		S3:              S3Config{Region: "us-east-1"},
		MaxAuthAttempts: 3,
		Location:        time.Local,
		LogLevel:        slog.LevelInfo,
		LogFormat:       "text",
	}

	missing := make([]string, 0, 1)
	invalid := make([]string, 0, 2)

	if driver := strings.ToLower(env("BOOKER_STORE_DRIVER")); driver != "" {
		switch driver {
		case DriverJSON, DriverSQLite, DriverPostgres, DriverS3, DriverMemory:
			cfg.StoreDriver = driver
		default:
			invalid = append(invalid, "BOOKER_STORE_DRIVER")
		}
	}

	if dir := env("BOOKER_DATA_DIR"); dir != "" {
		cfg.DataDir = dir
	}
	if dsn := env("BOOKER_SQLITE_DSN"); dsn != "" {
		cfg.SQLiteDSN = dsn
	}

	cfg.PostgresDSN = env("BOOKER_POSTGRES_DSN")
	if cfg.StoreDriver == DriverPostgres && cfg.PostgresDSN == "" {
		missing = append(missing, "BOOKER_POSTGRES_DSN")
	}

	cfg.S3.Bucket = env("BOOKER_S3_BUCKET")
	if cfg.StoreDriver == DriverS3 && cfg.S3.Bucket == "" {
		missing = append(missing, "BOOKER_S3_BUCKET")
	}
	if region := env("BOOKER_S3_REGION"); region != "" {
		cfg.S3.Region = region
	}
	cfg.S3.Endpoint = env("BOOKER_S3_ENDPOINT")
	cfg.S3.Prefix = env("BOOKER_S3_PREFIX")
	cfg.S3.AccessKeyID = env("BOOKER_S3_ACCESS_KEY_ID")
	cfg.S3.SecretAccessKey = env("BOOKER_S3_SECRET_ACCESS_KEY")
	if value := env("BOOKER_S3_PATH_STYLE"); value != "" {
		pathStyle, err := strconv.ParseBool(value)
		if err != nil {
			invalid = append(invalid, "BOOKER_S3_PATH_STYLE")
		} else {
			cfg.S3.PathStyle = pathStyle
		}
	}
	if (cfg.S3.AccessKeyID == "") != (cfg.S3.SecretAccessKey == "") {
		invalid = append(invalid, "BOOKER_S3_ACCESS_KEY_ID/BOOKER_S3_SECRET_ACCESS_KEY")
	}

	if value := env("BOOKER_MAX_AUTH_ATTEMPTS"); value != "" {
		attempts, err := strconv.Atoi(value)
		if err != nil || attempts <= 0 {
			invalid = append(invalid, "BOOKER_MAX_AUTH_ATTEMPTS")
		} else {
			cfg.MaxAuthAttempts = attempts
		}
	}

	if name := env("BOOKER_TIMEZONE"); name != "" {
		loc, err := time.LoadLocation(name)
		if err != nil {
			invalid = append(invalid, "BOOKER_TIMEZONE")
		} else {
			cfg.Location = loc
		}
	}

	if value := env("BOOKER_HASH_SECRETS"); value != "" {
		hash, err := strconv.ParseBool(value)
		if err != nil {
			invalid = append(invalid, "BOOKER_HASH_SECRETS")
		} else {
			cfg.HashSecrets = hash
		}
	}

	if value := env("BOOKER_LOG_LEVEL"); value != "" {
		if err := cfg.LogLevel.UnmarshalText([]byte(value)); err != nil {
			invalid = append(invalid, "BOOKER_LOG_LEVEL")
		}
	}

	if format := strings.ToLower(env("BOOKER_LOG_FORMAT")); format != "" {
		if format != "text" && format != "json" {
			invalid = append(invalid, "BOOKER_LOG_FORMAT")
		} else {
			cfg.LogFormat = format
		}
	}

	cfg.MetricsTextfile = env("BOOKER_METRICS_TEXTFILE")

	if len(missing) > 0 {
		return Config{}, fmt.Errorf("required environment variables are not set: %s", strings.Join(missing, ", "))
	}
	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("environment variables have invalid values: %s", strings.Join(invalid, ", "))
	}

	return cfg, nil
}

func env(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}
