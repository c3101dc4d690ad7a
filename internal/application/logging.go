package application

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/example/resource-booker/internal/logging"
)

func defaultLogger(logger *slog.Logger) *slog.Logger {
	if logger != nil {
		return logger
	}
	return slog.Default()
}

func serviceLogger(ctx context.Context, base *slog.Logger, serviceName, operation string, attrs ...any) *slog.Logger {
	logger := logging.FromContext(ctx)
	if logger == nil {
		logger = base
	}
	if logger == nil {
		logger = slog.Default()
	}

	pairs := []any{"service", serviceName}
	if operation != "" {
		pairs = append(pairs, "operation", operation)
	}
	if len(attrs) > 0 {
		pairs = append(pairs, attrs...)
	}
	return logger.With(pairs...)
}

// ErrorKind maps sentinel and validation errors to a stable logging label.
func ErrorKind(err error) string {
	if err == nil {
		return ""
	}
	switch {
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrDuplicateName):
		return "duplicate_name"
	case errors.Is(err, ErrUnknownUser):
		return "unknown_user"
	case errors.Is(err, ErrUnknownResource):
		return "unknown_resource"
	case errors.Is(err, ErrAuthFailed):
		return "auth_failed"
	case errors.Is(err, ErrResourceUnavailable):
		return "resource_unavailable"
	case errors.Is(err, ErrInvalidRange):
		return "invalid_range"
	case errors.Is(err, ErrPastDate):
		return "past_date"
	case errors.Is(err, ErrDateConflict):
		return "date_conflict"
	case errors.Is(err, ErrAbandoned), errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "abandoned"
	}

	var vErr *ValidationError
	if errors.As(err, &vErr) {
		return "validation"
	}

	return "unexpected"
}

// MetricsRecorder receives one observation per service operation.
type MetricsRecorder interface {
	Observe(service, operation, outcome string, elapsed time.Duration)
}

// outcome is "ok" for success and the error kind otherwise.
func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	return ErrorKind(err)
}

// instrument carries the logging and metrics dependencies every service shares.
type instrument struct {
	service     string
	logger      *slog.Logger
	metrics     MetricsRecorder
	idGenerator func() string
}

func (in instrument) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if id := in.idGenerator(); id != "" {
		attrs = append([]any{"operation_id", id}, attrs...)
	}
	return serviceLogger(ctx, in.logger, in.service, operation, attrs...)
}

func (in instrument) observe(operation string, started time.Time, err error) {
	if in.metrics == nil {
		return
	}
	in.metrics.Observe(in.service, operation, outcome(err), time.Since(started))
}
