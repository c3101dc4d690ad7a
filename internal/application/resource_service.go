package application

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/example/resource-booker/internal/calendar"
	"github.com/example/resource-booker/internal/persistence"
)

// ResourceService registers resources and maintains their descriptive fields,
// availability flag, and owner.
type ResourceService struct {
	store EntityStore
	auth  *Authenticator
	instrument
}

// NewResourceService constructs a resource service with the provided dependencies.
func NewResourceService(store EntityStore, auth *Authenticator, idGenerator func() string) *ResourceService {
	return NewResourceServiceWithLogger(store, auth, idGenerator, nil)
}

// NewResourceServiceWithLogger constructs a resource service with a specified logger.
func NewResourceServiceWithLogger(store EntityStore, auth *Authenticator, idGenerator func() string, logger *slog.Logger) *ResourceService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if auth == nil {
		auth = NewAuthenticator(DefaultMaxAuthAttempts)
	}
	return &ResourceService{
		store: store,
		auth:  auth,
		instrument: instrument{
			service:     "ResourceService",
			logger:      defaultLogger(logger),
			idGenerator: idGenerator,
		},
	}
}

// WithMetrics attaches a metrics recorder.
func (s *ResourceService) WithMetrics(metrics MetricsRecorder) *ResourceService {
	s.metrics = metrics
	return s
}

// CreateResource registers a new resource with no booked dates.
func (s *ResourceService) CreateResource(ctx context.Context, params CreateResourceParams) (resource Resource, err error) {
	if s == nil {
		return Resource{}, fmt.Errorf("ResourceService is nil")
	}

	started := time.Now()
	logger := s.loggerWith(ctx, "CreateResource", "resource", params.Name)
	defer func() {
		s.observe("CreateResource", started, err)
		if err != nil {
			logger.ErrorContext(ctx, "failed to create resource", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "resource created", "available", resource.Available)
	}()

	vErr := &ValidationError{}
	requireName(vErr, "name", params.Name)
	if params.Owner != nil {
		requireName(vErr, "owner", *params.Owner)
	}
	if vErr.HasErrors() {
		err = vErr
		return
	}

	var state persistence.State
	if state, err = loadState(ctx, s.store); err != nil {
		return
	}
	if _, exists := state.Resources[params.Name]; exists {
		err = ErrDuplicateName
		return
	}
	if params.Owner != nil {
		owner, ok := state.Users[*params.Owner]
		if !ok {
			err = ErrUnknownUser
			return
		}
		if err = s.auth.Verify(ctx, *params.Owner, owner.Password, params.Secret); err != nil {
			return
		}
	}

	record := persistence.Resource{
		Description: params.Description,
		Available:   params.Available,
		Owner:       params.Owner,
		DaysBooked:  []calendar.Date{},
	}
	state.Resources[params.Name] = record

	if err = commitState(ctx, s.store, state, persistence.CollectionResources); err != nil {
		return
	}
	resource = toResource(params.Name, record)
	return
}

// UpdateResource changes description, availability, or owner. An owned
// resource requires its owner's secret; claiming an unowned one requires the
// new owner's secret. Turning availability off blocks only new bookings.
func (s *ResourceService) UpdateResource(ctx context.Context, params UpdateResourceParams) (resource Resource, err error) {
	if s == nil {
		return Resource{}, fmt.Errorf("ResourceService is nil")
	}

	started := time.Now()
	logger := s.loggerWith(ctx, "UpdateResource", "resource", params.Name)
	defer func() {
		s.observe("UpdateResource", started, err)
		if err != nil {
			logger.ErrorContext(ctx, "failed to update resource", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "resource updated", "available", resource.Available)
	}()

	var state persistence.State
	if state, err = loadState(ctx, s.store); err != nil {
		return
	}
	record, ok := state.Resources[params.Name]
	if !ok {
		err = ErrNotFound
		return
	}
	if params.Owner != nil && !params.ClearOwner {
		if _, known := state.Users[*params.Owner]; !known {
			err = ErrUnknownUser
			return
		}
	}

	if subject := resourceAuthSubject(record, params); subject != "" {
		user, known := state.Users[subject]
		if !known {
			err = ErrUnknownUser
			return
		}
		if err = s.auth.Verify(ctx, subject, user.Password, params.Secret); err != nil {
			return
		}
	}

	switch {
	case params.ClearDescription:
		record.Description = nil
	case params.Description != nil:
		record.Description = params.Description
	}
	if params.Available != nil {
		record.Available = *params.Available
	}
	switch {
	case params.ClearOwner:
		record.Owner = nil
	case params.Owner != nil:
		record.Owner = params.Owner
	}
	state.Resources[params.Name] = record

	if err = commitState(ctx, s.store, state, persistence.CollectionResources); err != nil {
		return
	}
	resource = toResource(params.Name, record)
	return
}

// resourceAuthSubject names the user whose secret an update needs, or "" for none.
func resourceAuthSubject(current persistence.Resource, params UpdateResourceParams) string {
	if current.Owner != nil {
		return *current.Owner
	}
	if params.Owner != nil && !params.ClearOwner {
		return *params.Owner
	}
	return ""
}

// GetResource returns a registered resource.
func (s *ResourceService) GetResource(ctx context.Context, name string) (Resource, error) {
	if s == nil {
		return Resource{}, fmt.Errorf("ResourceService is nil")
	}
	state, err := loadState(ctx, s.store)
	if err != nil {
		return Resource{}, err
	}
	record, ok := state.Resources[name]
	if !ok {
		return Resource{}, ErrNotFound
	}
	return toResource(name, record), nil
}

// ListResources returns every resource ordered by name.
func (s *ResourceService) ListResources(ctx context.Context) ([]Resource, error) {
	if s == nil {
		return nil, fmt.Errorf("ResourceService is nil")
	}
	state, err := loadState(ctx, s.store)
	if err != nil {
		s.loggerWith(ctx, "ListResources").ErrorContext(ctx, "failed to list resources", "error", err, "error_kind", ErrorKind(err))
		return nil, err
	}

	out := make([]Resource, 0, len(state.Resources))
	for name, record := range state.Resources {
		out = append(out, toResource(name, record))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// OccupiedDates derives the resource's committed dates from its bookings.
func (s *ResourceService) OccupiedDates(ctx context.Context, name string) ([]calendar.Date, error) {
	if s == nil {
		return nil, fmt.Errorf("ResourceService is nil")
	}
	state, err := loadState(ctx, s.store)
	if err != nil {
		return nil, err
	}
	if _, ok := state.Resources[name]; !ok {
		return nil, ErrNotFound
	}
	return bookingIndex(state.Bookings).Occupied(name).Sorted(), nil
}
