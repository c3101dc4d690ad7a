package application

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/example/resource-booker/internal/persistence"
)

// CascadeService renames and deletes users and resources, carrying every
// change through the resources and bookings that reference them.
type CascadeService struct {
	store EntityStore
	auth  *Authenticator
	instrument
}

// NewCascadeService wires dependencies for the cascade service.
func NewCascadeService(store EntityStore, auth *Authenticator, idGenerator func() string) *CascadeService {
	return NewCascadeServiceWithLogger(store, auth, idGenerator, nil)
}

// NewCascadeServiceWithLogger wires dependencies for the cascade service with a specific logger.
func NewCascadeServiceWithLogger(store EntityStore, auth *Authenticator, idGenerator func() string, logger *slog.Logger) *CascadeService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if auth == nil {
		auth = NewAuthenticator(DefaultMaxAuthAttempts)
	}
	return &CascadeService{
		store: store,
		auth:  auth,
		instrument: instrument{
			service:     "CascadeService",
			logger:      defaultLogger(logger),
			idGenerator: idGenerator,
		},
	}
}

// WithMetrics attaches a metrics recorder.
func (s *CascadeService) WithMetrics(metrics MetricsRecorder) *CascadeService {
	s.metrics = metrics
	return s
}

// RenameUser moves a user to a new name and rewrites the owner of every
// resource and booking that referenced the old name.
func (s *CascadeService) RenameUser(ctx context.Context, params RenameUserParams) (result RenameResult, err error) {
	if s == nil {
		return RenameResult{}, fmt.Errorf("CascadeService is nil")
	}

	started := time.Now()
	logger := s.loggerWith(ctx, "RenameUser", "user", params.Name, "new_name", params.NewName)
	defer func() {
		s.observe("RenameUser", started, err)
		if err != nil {
			logger.ErrorContext(ctx, "failed to rename user", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "user renamed",
			"resources_updated", result.ResourcesUpdated,
			"bookings_updated", result.BookingsUpdated,
		)
	}()

	vErr := &ValidationError{}
	requireName(vErr, "new_name", params.NewName)
	if vErr.HasErrors() {
		err = vErr
		return
	}

	var state persistence.State
	if state, err = loadState(ctx, s.store); err != nil {
		return
	}
	record, ok := state.Users[params.Name]
	if !ok {
		err = ErrNotFound
		return
	}
	if _, taken := state.Users[params.NewName]; taken {
		err = ErrDuplicateName
		return
	}
	if err = s.auth.Verify(ctx, params.Name, record.Password, params.Secret); err != nil {
		return
	}

	delete(state.Users, params.Name)
	state.Users[params.NewName] = record
	for name, r := range state.Resources {
		if sameOwner(r.Owner, params.Name) {
			r.Owner = strPtr(params.NewName)
			state.Resources[name] = r
			result.ResourcesUpdated++
		}
	}
	for name, b := range state.Bookings {
		if b.Owner == params.Name {
			b.Owner = params.NewName
			state.Bookings[name] = b
			result.BookingsUpdated++
		}
	}

	err = commitState(ctx, s.store, state, persistence.Collections()...)
	return
}

// DeleteUser removes a user, every booking the user owns, and the user's
// ownership of resources. Owned resources pass to params.Replacement when it
// is set and otherwise become unowned.
func (s *CascadeService) DeleteUser(ctx context.Context, params DeleteUserParams) (result DeleteUserResult, err error) {
	if s == nil {
		return DeleteUserResult{}, fmt.Errorf("CascadeService is nil")
	}

	started := time.Now()
	logger := s.loggerWith(ctx, "DeleteUser", "user", params.Name)
	defer func() {
		s.observe("DeleteUser", started, err)
		if err != nil {
			logger.ErrorContext(ctx, "failed to delete user", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "user deleted",
			"reassigned_resources", len(result.ReassignedResources),
			"removed_bookings", len(result.RemovedBookings),
		)
	}()

	var state persistence.State
	if state, err = loadState(ctx, s.store); err != nil {
		return
	}
	record, ok := state.Users[params.Name]
	if !ok {
		err = ErrNotFound
		return
	}
	if params.Replacement != nil {
		if *params.Replacement == params.Name {
			err = ErrUnknownUser
			return
		}
		if _, known := state.Users[*params.Replacement]; !known {
			err = ErrUnknownUser
			return
		}
	}
	if err = s.auth.Verify(ctx, params.Name, record.Password, params.Secret); err != nil {
		return
	}

	for name, r := range state.Resources {
		if !sameOwner(r.Owner, params.Name) {
			continue
		}
		if params.Replacement != nil {
			r.Owner = strPtr(*params.Replacement)
		} else {
			r.Owner = nil
		}
		state.Resources[name] = r
		result.ReassignedResources = append(result.ReassignedResources, name)
	}
	sort.Strings(result.ReassignedResources)

	result.RemovedBookings = bookingsWhere(state.Bookings, func(b persistence.Booking) bool {
		return b.Owner == params.Name
	})
	removeBookings(state, result.RemovedBookings...)
	delete(state.Users, params.Name)

	err = commitState(ctx, s.store, state, persistence.Collections()...)
	return
}

// RenameResource moves a resource, with its booked dates, to a new name and
// rewrites every booking that referenced the old name.
func (s *CascadeService) RenameResource(ctx context.Context, params RenameResourceParams) (result RenameResult, err error) {
	if s == nil {
		return RenameResult{}, fmt.Errorf("CascadeService is nil")
	}

	started := time.Now()
	logger := s.loggerWith(ctx, "RenameResource", "resource", params.Name, "new_name", params.NewName)
	defer func() {
		s.observe("RenameResource", started, err)
		if err != nil {
			logger.ErrorContext(ctx, "failed to rename resource", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "resource renamed", "bookings_updated", result.BookingsUpdated)
	}()

	vErr := &ValidationError{}
	requireName(vErr, "new_name", params.NewName)
	if vErr.HasErrors() {
		err = vErr
		return
	}

	var state persistence.State
	if state, err = loadState(ctx, s.store); err != nil {
		return
	}
	record, ok := state.Resources[params.Name]
	if !ok {
		err = ErrNotFound
		return
	}
	if _, taken := state.Resources[params.NewName]; taken {
		err = ErrDuplicateName
		return
	}
	if err = s.verifyOwner(ctx, state, record, params.Secret); err != nil {
		return
	}

	delete(state.Resources, params.Name)
	state.Resources[params.NewName] = record
	result.ResourcesUpdated = 1
	for name, b := range state.Bookings {
		if b.Resource == params.Name {
			b.Resource = params.NewName
			state.Bookings[name] = b
			result.BookingsUpdated++
		}
	}

	err = commitState(ctx, s.store, state, persistence.CollectionResources, persistence.CollectionBookings)
	return
}

// DeleteResource removes a resource and every booking that referenced it.
func (s *CascadeService) DeleteResource(ctx context.Context, params DeleteResourceParams) (result DeleteResourceResult, err error) {
	if s == nil {
		return DeleteResourceResult{}, fmt.Errorf("CascadeService is nil")
	}

	started := time.Now()
	logger := s.loggerWith(ctx, "DeleteResource", "resource", params.Name)
	defer func() {
		s.observe("DeleteResource", started, err)
		if err != nil {
			logger.ErrorContext(ctx, "failed to delete resource", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "resource deleted", "removed_bookings", len(result.RemovedBookings))
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
	if err = s.verifyOwner(ctx, state, record, params.Secret); err != nil {
		return
	}

	result.RemovedBookings = bookingsWhere(state.Bookings, func(b persistence.Booking) bool {
		return b.Resource == params.Name
	})
	for _, name := range result.RemovedBookings {
		delete(state.Bookings, name)
	}
	delete(state.Resources, params.Name)

	err = commitState(ctx, s.store, state, persistence.CollectionResources, persistence.CollectionBookings)
	return
}

// verifyOwner authenticates the owner of an owned resource. Unowned resources need no secret.
func (s *CascadeService) verifyOwner(ctx context.Context, state persistence.State, r persistence.Resource, prompt SecretPrompt) error {
	if r.Owner == nil {
		return nil
	}
	owner, ok := state.Users[*r.Owner]
	if !ok {
		return ErrUnknownUser
	}
	return s.auth.Verify(ctx, *r.Owner, owner.Password, prompt)
}
