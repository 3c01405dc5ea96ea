// Package session owns the signed-in state of the client: the token, the current user and the
// loading flag that tells callers when the user may be read. It is constructed with its
// collaborators and installs the token on the API client it was given.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"

	"reciclo/internal/api"
	"reciclo/internal/models"
	"reciclo/internal/pkg/auth"
	"reciclo/internal/pkg/events"
	"reciclo/internal/pkg/logger"
	"reciclo/internal/pkg/notify"
	"reciclo/internal/pkg/report"
	"reciclo/internal/storage"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

const (
	loginPath        = "/api/auth/login/"
	registrationPath = "/api/auth/registration/"
	userPath         = "/api/auth/user/"
)

// State is the lifecycle state of a Service.
type State int

const (
	StateInit State = iota
	StateAuthenticated
	StateUnauthenticated
	StateDisposed
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateAuthenticated:
		return "authenticated"
	case StateUnauthenticated:
		return "unauthenticated"
	case StateDisposed:
		return "disposed"
	}
	return "unknown"
}

var (
	// ErrDisposed is returned by every operation after Close.
	ErrDisposed = errors.New("session: disposed")
	// ErrMissingCredentials indicates an empty email or password.
	ErrMissingCredentials = errors.New("session: missing email or password")
	// ErrPasswordMismatch indicates that the two registration passwords differ.
	ErrPasswordMismatch = errors.New("session: passwords do not match")
	// ErrNoToken indicates the login answer carried no token.
	ErrNoToken = errors.New("session: login response has no token")
)

// Service is the session of one client.
type Service struct {
	client   *api.Client
	store    storage.Storage
	notifier notify.Notifier
	log      *logger.Logger
	reporter *report.Reporter
	clock    clockwork.Clock

	mu          sync.RWMutex
	user        *models.User
	cachedLevel int
	state       State
	loading     bool
	pending     int
	idle        chan struct{}
	bus         events.Publisher
	unsubscribe func()
}

// Option configures a Service.
type Option func(*Service)

// WithClock replaces the clock used to check token expiry.
func WithClock(c clockwork.Clock) Option {
	return func(s *Service) { s.clock = c }
}

// WithReporter sets the reporter of unexpected failures.
func WithReporter(r *report.Reporter) Option {
	return func(s *Service) { s.reporter = r }
}

// WithEvents refetches the user whenever coins or the profile change.
func WithEvents(bus *events.Bus) Option {
	return func(s *Service) {
		s.bus = bus
		s.unsubscribe = bus.Subscribe(s.onChange,
			events.BalanceChanged, events.RecyclingSubmitted, events.ProfileUpdated)
	}
}

// New creates a Service in the init state with the loading flag set until Start completes.
func New(client *api.Client, store storage.Storage, notifier notify.Notifier, l *logger.Logger, opts ...Option) *Service {
	s := &Service{
		client:   client,
		store:    store,
		notifier: notifier,
		log:      l,
		clock:    clockwork.NewRealClock(),
		state:    StateInit,
		loading:  true,
		idle:     make(chan struct{}),
		bus:      events.Nop{},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.reporter == nil {
		s.reporter = report.Nop(l)
	}
	return s
}

// User returns the current user, or nil. Read it only once IsLoading is false.
func (s *Service) User() *models.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

// IsLoading reports whether the session is being resolved.
func (s *Service) IsLoading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

// State returns the lifecycle state.
func (s *Service) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Token returns the token in use, or "".
func (s *Service) Token() string {
	return s.client.Token()
}

// WaitReady blocks until the loading flag is cleared or ctx is done.
func (s *Service) WaitReady(ctx context.Context) error {
	s.mu.RLock()
	idle := s.idle
	s.mu.RUnlock()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Start restores the persisted session. Without a stored token it settles immediately without
// touching the network. A stored token is verified by fetching the current user; if that fails
// the token and the cached profile are discarded.
func (s *Service) Start(ctx context.Context) error {
	if err := s.begin(); err != nil {
		return err
	}
	defer s.end()

	sess, err := s.store.LoadSession(ctx)
	if err != nil {
		s.reporter.Capture("load session", err)
		s.settle(nil, StateUnauthenticated)
		return err
	}
	if sess == nil {
		s.client.SetToken("")
		s.settle(nil, StateUnauthenticated)
		return nil
	}

	if err := auth.CheckExpiry(sess.Token, s.clock.Now()); err != nil {
		s.log.Info("stored token expired, discarding")
		s.discard(ctx)
		return nil
	}

	if len(sess.User) > 0 {
		var cached models.User
		if err := json.Unmarshal(sess.User, &cached); err == nil {
			s.mu.Lock()
			s.cachedLevel = cached.Level
			s.mu.Unlock()
		} else {
			s.log.Warn("ignoring unreadable cached profile", zap.Error(err))
		}
	}

	s.client.SetToken(sess.Token)
	return s.fetch(ctx)
}

// Login exchanges credentials for a token, persists it and loads the user.
func (s *Service) Login(ctx context.Context, creds models.Credentials) error {
	if creds.Email == "" || creds.Password == "" {
		return ErrMissingCredentials
	}
	if err := s.begin(); err != nil {
		return err
	}
	defer s.end()

	var resp models.LoginResponse
	if err := s.client.Post(ctx, loginPath, creds, &resp, api.Anonymous()); err != nil {
		return err
	}
	if resp.Key == "" {
		return ErrNoToken
	}
	return s.adopt(ctx, resp.Key)
}

// Register creates an account and signs in to it.
func (s *Service) Register(ctx context.Context, reg models.Registration) error {
	if reg.Email == "" || reg.Password1 == "" {
		return ErrMissingCredentials
	}
	if reg.Password1 != reg.Password2 {
		return ErrPasswordMismatch
	}
	if err := s.begin(); err != nil {
		return err
	}

	var resp models.LoginResponse
	if err := s.client.Post(ctx, registrationPath, reg, &resp, api.Anonymous()); err != nil {
		s.end()
		return err
	}
	if resp.Key != "" {
		defer s.end()
		return s.adopt(ctx, resp.Key)
	}
	s.end()
	return s.Login(ctx, models.Credentials{Email: reg.Email, Password: reg.Password1})
}

// Logout forgets the token and the cached user. It does not call the API.
func (s *Service) Logout() error {
	if s.State() == StateDisposed {
		return ErrDisposed
	}
	err := s.discard(context.Background())
	s.mu.Lock()
	s.release()
	s.mu.Unlock()
	return err
}

// RefetchUser reloads the current user, e.g. after an action that changed coins or level.
func (s *Service) RefetchUser(ctx context.Context) error {
	if err := s.begin(); err != nil {
		return err
	}
	defer s.end()

	if !s.client.HasToken() {
		s.settle(nil, StateUnauthenticated)
		return nil
	}
	return s.fetch(ctx)
}

// UpdateProfile edits the username, email or profile image of the current user.
// Empty fields are left unchanged.
func (s *Service) UpdateProfile(ctx context.Context, edit models.ProfileEdit) bool {
	if s.State() == StateDisposed {
		return false
	}

	form := api.Form{Fields: map[string]string{}}
	if edit.Username != "" {
		form.Fields["username"] = edit.Username
	}
	if edit.Email != "" {
		form.Fields["email"] = edit.Email
	}
	if edit.ImagePath != "" {
		form.Files = append(form.Files, api.FormFile{Field: "profile_image", Path: edit.ImagePath})
	}

	var updated models.User
	if err := s.client.Upload(ctx, http.MethodPatch, userPath, form, &updated); err != nil {
		s.reporter.Failure(s.notifier, "update profile", err, "Failed to update the profile.")
		return false
	}

	s.notifier.Success("Profile updated successfully!")
	s.bus.Publish(events.ProfileUpdated)
	return true
}

// Close stops listening for changes. Every later call fails with ErrDisposed.
func (s *Service) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateDisposed {
		return
	}
	if s.unsubscribe != nil {
		s.unsubscribe()
	}
	s.state = StateDisposed
	s.pending = 0
	s.release()
}

func (s *Service) onChange(topic events.Topic) {
	if err := s.RefetchUser(context.Background()); err != nil && !errors.Is(err, ErrDisposed) {
		s.log.Debug("refetch after change failed", zap.String("topic", string(topic)), zap.Error(err))
	}
}

// adopt persists token and loads the user it belongs to.
func (s *Service) adopt(ctx context.Context, token string) error {
	if err := s.store.SaveToken(ctx, token); err != nil {
		s.reporter.Capture("save token", err)
		return err
	}
	s.mu.Lock()
	s.user = nil
	s.cachedLevel = 0
	s.mu.Unlock()

	s.client.SetToken(token)
	return s.fetch(ctx)
}

// fetch loads the current user and announces a level increase over the previously known level.
func (s *Service) fetch(ctx context.Context) error {
	var u models.User
	if err := s.client.Get(ctx, userPath, &u); err != nil {
		if !api.IsUnauthorized(err) && !errors.Is(err, context.Canceled) {
			s.reporter.Capture("fetch current user", err)
		}
		s.log.Warn("invalid session, clearing token", zap.Error(err))
		s.discard(ctx)
		return err
	}

	s.mu.Lock()
	previous := s.cachedLevel
	if s.user != nil {
		previous = s.user.Level
	}
	s.cachedLevel = u.Level
	s.mu.Unlock()
	s.settle(&u, StateAuthenticated)

	if previous > 0 && u.Level > previous {
		s.notifier.LevelUp(u.Level)
	}

	data, err := json.Marshal(u)
	if err == nil {
		err = s.store.SaveUser(ctx, data)
	}
	if err != nil {
		s.log.Sugar().Errorf("Failed to cache the user profile: %s", err)
	}
	return nil
}

// discard clears the token and the cached user together.
func (s *Service) discard(ctx context.Context) error {
	s.client.SetToken("")
	s.mu.Lock()
	s.cachedLevel = 0
	s.mu.Unlock()
	s.settle(nil, StateUnauthenticated)

	if err := s.store.ClearSession(ctx); err != nil {
		s.log.Sugar().Errorf("Failed to clear the stored session: %s", err)
		return err
	}
	return nil
}

func (s *Service) settle(u *models.User, state State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateDisposed {
		return
	}
	s.user = u
	s.state = state
}

// begin sets the loading flag for one more operation.
func (s *Service) begin() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateDisposed {
		return ErrDisposed
	}
	s.pending++
	if !s.loading {
		s.loading = true
		s.idle = make(chan struct{})
	}
	return nil
}

// end finishes an operation started with begin.
func (s *Service) end() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending > 0 {
		s.pending--
	}
	s.release()
}

// release clears the loading flag once nothing is pending and wakes WaitReady callers.
func (s *Service) release() {
	if s.loading && s.pending == 0 {
		s.loading = false
		close(s.idle)
	}
}
