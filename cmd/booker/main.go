package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/example/resource-booker/internal/application"
	"github.com/example/resource-booker/internal/config"
	"github.com/example/resource-booker/internal/logging"
	"github.com/example/resource-booker/internal/metrics"
	"github.com/example/resource-booker/internal/persistence"
	"github.com/example/resource-booker/internal/persistence/blobstore"
	"github.com/example/resource-booker/internal/persistence/jsonfile"
	"github.com/example/resource-booker/internal/persistence/postgres"
	"github.com/example/resource-booker/internal/persistence/sqlite"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run executes one command and returns the process exit code.
func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(stderr, "configuration error: %v\n", err)
		return 1
	}
	logger := logging.NewLogger(stderr, cfg.LogLevel, cfg.LogFormat)
	ctx = logging.ContextWithLogger(ctx, logger)

	backend, err := openBackend(ctx, cfg)
	if err != nil {
		logger.Error("failed to open storage", "driver", cfg.StoreDriver, "error", err)
		fmt.Fprintf(stderr, "cannot open %s storage: %v\n", cfg.StoreDriver, err)
		return 1
	}
	store := persistence.NewStoreWithLogger(backend, logger)
	defer func() {
		if cerr := store.Close(); cerr != nil {
			logger.Error("failed to close storage", "error", cerr)
		}
	}()

	registry := metrics.NewRegistry()
	cli := newCLI(store, cfg, logger, registry, stdin, stdout, stderr)
	err = cli.dispatch(ctx, args)
	cli.prompter.stop()

	if cfg.MetricsTextfile != "" {
		writeMetrics(context.WithoutCancel(ctx), store, registry, cfg.MetricsTextfile, logger)
	}

	if err != nil {
		fmt.Fprintln(stderr, describe(err))
		return 1
	}
	return 0
}

func openBackend(ctx context.Context, cfg config.Config) (persistence.Backend, error) {
	switch cfg.StoreDriver {
	case config.DriverMemory:
		return persistence.NewMemoryBackend(), nil
	case config.DriverSQLite:
		return sqlite.Open(ctx, cfg.SQLiteDSN)
	case config.DriverPostgres:
		return postgres.Open(ctx, cfg.PostgresDSN)
	case config.DriverS3:
		return blobstore.New(ctx, blobstore.Config{
			Bucket:          cfg.S3.Bucket,
			Region:          cfg.S3.Region,
			Endpoint:        cfg.S3.Endpoint,
			Prefix:          cfg.S3.Prefix,
			PathStyle:       cfg.S3.PathStyle,
			AccessKeyID:     cfg.S3.AccessKeyID,
			SecretAccessKey: cfg.S3.SecretAccessKey,
		})
	default:
		return jsonfile.Open(cfg.DataDir)
	}
}

// services bundles the application layer wired over one store.
type services struct {
	users        *application.UserService
	resources    *application.ResourceService
	reservations *application.ReservationService
	cascade      *application.CascadeService
}

func newServices(store application.EntityStore, cfg config.Config, logger *slog.Logger, recorder application.MetricsRecorder) services {
	auth := application.NewAuthenticator(cfg.MaxAuthAttempts).
		WithHashing(cfg.HashSecrets, application.DefaultArgon2idParams)
	idGenerator := uuid.NewString
	loc := cfg.Location
	if loc == nil {
		loc = time.Local
	}
	now := func() time.Time { return time.Now().In(loc) }

	return services{
		users:        application.NewUserServiceWithLogger(store, auth, idGenerator, logger).WithMetrics(recorder),
		resources:    application.NewResourceServiceWithLogger(store, auth, idGenerator, logger).WithMetrics(recorder),
		reservations: application.NewReservationServiceWithLogger(store, auth, idGenerator, now, logger).WithMetrics(recorder),
		cascade:      application.NewCascadeServiceWithLogger(store, auth, idGenerator, logger).WithMetrics(recorder),
	}
}

func writeMetrics(ctx context.Context, store *persistence.Store, registry *metrics.Registry, path string, logger *slog.Logger) {
	if state, err := store.Load(ctx); err == nil {
		registry.ObserveState(state)
	} else {
		logger.Warn("failed to load state for metrics", "error", err)
	}
	if err := registry.WriteTextfile(path); err != nil {
		logger.Warn("failed to write metrics textfile", "path", path, "error", err)
	}
}
