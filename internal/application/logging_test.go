package application

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/example/resource-booker/internal/logging"
)

func TestDefaultLogger(t *testing.T) {
	t.Parallel()

	custom := slog.New(slog.NewTextHandler(io.Discard, nil))
	if got := defaultLogger(custom); got != custom {
		t.Fatalf("expected custom logger to be returned")
	}

	if got := defaultLogger(nil); got != slog.Default() {
		t.Fatalf("expected default logger when none provided")
	}
}

func TestServiceLoggerPrefersContextLogger(t *testing.T) {
	t.Parallel()

	var base, scoped bytes.Buffer
	baseLogger := slog.New(slog.NewTextHandler(&base, nil))
	ctx := logging.ContextWithLogger(context.Background(), slog.New(slog.NewTextHandler(&scoped, nil)))

	serviceLogger(ctx, baseLogger, "UserService", "CreateUser", "user", "alice").Info("hello")

	if base.Len() != 0 {
		t.Fatalf("expected base logger to stay silent, got %q", base.String())
	}
	for _, want := range []string{"service=UserService", "operation=CreateUser", "user=alice"} {
		if !strings.Contains(scoped.String(), want) {
			t.Fatalf("expected %q in %q", want, scoped.String())
		}
	}
}

func TestErrorKind(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{ErrNotFound, "not_found"},
		{fmt.Errorf("wrap: %w", ErrDuplicateName), "duplicate_name"},
		{ErrUnknownUser, "unknown_user"},
		{ErrUnknownResource, "unknown_resource"},
		{ErrAuthFailed, "auth_failed"},
		{ErrResourceUnavailable, "resource_unavailable"},
		{ErrInvalidRange, "invalid_range"},
		{ErrPastDate, "past_date"},
		{&DateConflictError{Resource: "Room1"}, "date_conflict"},
		{context.Canceled, "abandoned"},
		{fmt.Errorf("%w: %w", ErrAbandoned, context.DeadlineExceeded), "abandoned"},
		{&ValidationError{FieldErrors: map[string]string{"name": "bad"}}, "validation"},
		{errors.New("boom"), "unexpected"},
	}

	for _, tc := range tests {
		if got := ErrorKind(tc.err); got != tc.want {
			t.Fatalf("ErrorKind(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}

type recordingMetrics struct {
	observations []string
}

func (r *recordingMetrics) Observe(service, operation, outcome string, elapsed time.Duration) {
	r.observations = append(r.observations, service+"/"+operation+"/"+outcome)
}

func TestInstrumentObserveAndOperationID(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	metrics := &recordingMetrics{}
	in := instrument{
		service:     "ReservationService",
		logger:      slog.New(slog.NewTextHandler(&buf, nil)),
		metrics:     metrics,
		idGenerator: func() string { return "op-7" },
	}

	in.loggerWith(context.Background(), "CreateBooking").Info("done")
	if !strings.Contains(buf.String(), "operation_id=op-7") {
		t.Fatalf("expected operation id in %q", buf.String())
	}

	in.observe("CreateBooking", time.Now(), nil)
	in.observe("CreateBooking", time.Now(), ErrPastDate)
	want := []string{"ReservationService/CreateBooking/ok", "ReservationService/CreateBooking/past_date"}
	if len(metrics.observations) != len(want) {
		t.Fatalf("expected %v, got %v", want, metrics.observations)
	}
	for i := range want {
		if metrics.observations[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, metrics.observations)
		}
	}

	(instrument{idGenerator: func() string { return "" }}).observe("noop", time.Now(), nil)
}
