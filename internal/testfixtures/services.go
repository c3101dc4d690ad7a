package testfixtures

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/example/resource-booker/internal/application"
	"github.com/example/resource-booker/internal/persistence"
)

// ServiceFactory assists tests with constructing application services using
// deterministic identifiers and clocks.
type ServiceFactory struct {
	Clock       *Clock
	IDGenerator *IDGenerator
	Auth        *application.Authenticator
	Logger      *slog.Logger
}

// ServiceFactoryOption configures a ServiceFactory instance.
type ServiceFactoryOption func(*ServiceFactory)

// NewServiceFactory constructs a ServiceFactory with defaults.
func NewServiceFactory(opts ...ServiceFactoryOption) *ServiceFactory {
	factory := &ServiceFactory{
		Clock:       NewClock(time.Time{}),
		IDGenerator: NewIDGenerator("op"),
		Auth:        application.NewAuthenticator(application.DefaultMaxAuthAttempts),
		Logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(factory)
	}
	if factory.Clock == nil {
		factory.Clock = NewClock(time.Time{})
	}
	if factory.IDGenerator == nil {
		factory.IDGenerator = NewIDGenerator("op")
	}
	if factory.Auth == nil {
		factory.Auth = application.NewAuthenticator(application.DefaultMaxAuthAttempts)
	}
	return factory
}

// WithClock overrides the clock used by the factory.
func WithClock(clock *Clock) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.Clock = clock
	}
}

// WithIDGenerator overrides the identifier generator used by the factory.
func WithIDGenerator(generator *IDGenerator) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.IDGenerator = generator
	}
}

// WithAuthenticator overrides the authenticator shared by every service.
func WithAuthenticator(auth *application.Authenticator) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.Auth = auth
	}
}

// WithLogger sets the logger handed to every service.
func WithLogger(logger *slog.Logger) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.Logger = logger
	}
}

// NewUserService builds a user service over store.
func (f *ServiceFactory) NewUserService(store application.EntityStore) *application.UserService {
	return application.NewUserServiceWithLogger(store, f.Auth, f.IDGenerator.NextFunc(), f.Logger)
}

// NewResourceService builds a resource service over store.
func (f *ServiceFactory) NewResourceService(store application.EntityStore) *application.ResourceService {
	return application.NewResourceServiceWithLogger(store, f.Auth, f.IDGenerator.NextFunc(), f.Logger)
}

// NewReservationService builds a reservation service over store.
func (f *ServiceFactory) NewReservationService(store application.EntityStore) *application.ReservationService {
	return application.NewReservationServiceWithLogger(store, f.Auth, f.IDGenerator.NextFunc(), f.Clock.NowFunc(), f.Logger)
}

// NewCascadeService builds a cascade service over store.
func (f *ServiceFactory) NewCascadeService(store application.EntityStore) *application.CascadeService {
	return application.NewCascadeServiceWithLogger(store, f.Auth, f.IDGenerator.NextFunc(), f.Logger)
}

// Harness bundles an in-memory store with every service wired over it.
type Harness struct {
	Factory      *ServiceFactory
	Backend      *persistence.MemoryBackend
	Store        *persistence.Store
	Users        *application.UserService
	Resources    *application.ResourceService
	Reservations *application.ReservationService
	Cascade      *application.CascadeService
}

// NewHarness wires all services over a fresh MemoryBackend.
func NewHarness(tb testing.TB, opts ...ServiceFactoryOption) *Harness {
	tb.Helper()

	factory := NewServiceFactory(opts...)
	backend := persistence.NewMemoryBackend()
	store := persistence.NewStoreWithLogger(backend, factory.Logger)
	tb.Cleanup(func() { _ = store.Close() })

	return &Harness{
		Factory:      factory,
		Backend:      backend,
		Store:        store,
		Users:        factory.NewUserService(store),
		Resources:    factory.NewResourceService(store),
		Reservations: factory.NewReservationService(store),
		Cascade:      factory.NewCascadeService(store),
	}
}

// Seed commits d into the harness store.
func (h *Harness) Seed(tb testing.TB, d Dataset) {
	tb.Helper()
	Seed(tb, h.Store, d)
}

// Snapshots returns a copy of every stored payload, keyed by collection.
func (h *Harness) Snapshots() map[persistence.Collection]string {
	out := make(map[persistence.Collection]string)
	for _, c := range persistence.Collections() {
		if payload, ok := h.Backend.Snapshot(c); ok {
			out[c] = string(payload)
		}
	}
	return out
}
