package application

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/example/resource-booker/internal/persistence"
)

// UserService registers users and maintains their descriptive fields and secrets.
type UserService struct {
	store EntityStore
	auth  *Authenticator
	instrument
}

// NewUserService wires dependencies for the user service.
func NewUserService(store EntityStore, auth *Authenticator, idGenerator func() string) *UserService {
	return NewUserServiceWithLogger(store, auth, idGenerator, nil)
}

// NewUserServiceWithLogger wires dependencies for the user service with a specific logger.
func NewUserServiceWithLogger(store EntityStore, auth *Authenticator, idGenerator func() string, logger *slog.Logger) *UserService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if auth == nil {
		auth = NewAuthenticator(DefaultMaxAuthAttempts)
	}
	return &UserService{
		store: store,
		auth:  auth,
		instrument: instrument{
			service:     "UserService",
			logger:      defaultLogger(logger),
			idGenerator: idGenerator,
		},
	}
}

// WithMetrics attaches a metrics recorder.
func (s *UserService) WithMetrics(metrics MetricsRecorder) *UserService {
	s.metrics = metrics
	return s
}

// CreateUser registers a new user.
func (s *UserService) CreateUser(ctx context.Context, params CreateUserParams) (user User, err error) {
	if s == nil {
		return User{}, fmt.Errorf("UserService is nil")
	}

	started := time.Now()
	logger := s.loggerWith(ctx, "CreateUser", "user", params.Name)
	defer func() {
		s.observe("CreateUser", started, err)
		if err != nil {
			logger.ErrorContext(ctx, "failed to create user", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "user created")
	}()

	vErr := &ValidationError{}
	requireName(vErr, "name", params.Name)
	if params.Password == "" {
		vErr.add("password", "must not be empty")
	}
	if vErr.HasErrors() {
		err = vErr
		return
	}

	var state persistence.State
	if state, err = loadState(ctx, s.store); err != nil {
		return
	}
	if _, exists := state.Users[params.Name]; exists {
		err = ErrDuplicateName
		return
	}

	var sealed string
	if sealed, err = s.auth.Seal(params.Password); err != nil {
		return
	}
	record := persistence.User{FullName: params.FullName, Password: sealed}
	state.Users[params.Name] = record

	if err = commitState(ctx, s.store, state, persistence.CollectionUsers); err != nil {
		return
	}
	user = toUser(params.Name, record)
	return
}

// UpdateUser changes a user's full name or secret after authenticating the user.
func (s *UserService) UpdateUser(ctx context.Context, params UpdateUserParams) (user User, err error) {
	if s == nil {
		return User{}, fmt.Errorf("UserService is nil")
	}

	started := time.Now()
	logger := s.loggerWith(ctx, "UpdateUser", "user", params.Name)
	defer func() {
		s.observe("UpdateUser", started, err)
		if err != nil {
			logger.ErrorContext(ctx, "failed to update user", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "user updated")
	}()

	if params.NewPassword != nil && *params.NewPassword == "" {
		err = &ValidationError{FieldErrors: map[string]string{"password": "must not be empty"}}
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
	if err = s.auth.Verify(ctx, params.Name, record.Password, params.Secret); err != nil {
		return
	}

	switch {
	case params.ClearFullName:
		record.FullName = nil
	case params.FullName != nil:
		record.FullName = params.FullName
	}
	if params.NewPassword != nil {
		if record.Password, err = s.auth.Seal(*params.NewPassword); err != nil {
			return
		}
	}
	state.Users[params.Name] = record

	if err = commitState(ctx, s.store, state, persistence.CollectionUsers); err != nil {
		return
	}
	user = toUser(params.Name, record)
	return
}

// GetUser returns a registered user.
func (s *UserService) GetUser(ctx context.Context, name string) (User, error) {
	if s == nil {
		return User{}, fmt.Errorf("UserService is nil")
	}
	state, err := loadState(ctx, s.store)
	if err != nil {
		return User{}, err
	}
	record, ok := state.Users[name]
	if !ok {
		return User{}, ErrNotFound
	}
	return toUser(name, record), nil
}

// ListUsers returns every user ordered by name.
func (s *UserService) ListUsers(ctx context.Context) ([]User, error) {
	if s == nil {
		return nil, fmt.Errorf("UserService is nil")
	}
	state, err := loadState(ctx, s.store)
	if err != nil {
		s.loggerWith(ctx, "ListUsers").ErrorContext(ctx, "failed to list users", "error", err, "error_kind", ErrorKind(err))
		return nil, err
	}

	out := make([]User, 0, len(state.Users))
	for name, record := range state.Users {
		out = append(out, toUser(name, record))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}
