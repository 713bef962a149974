package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/pagegate/pagegate/pkg/api"
	"github.com/pagegate/pagegate/pkg/observability"
	"github.com/pagegate/pagegate/pkg/permissions"
	"github.com/pagegate/pagegate/pkg/session"
)

// State is the authentication lifecycle phase
type State int

const (
	// StateUnauthenticated means no usable session exists; the store is empty
	StateUnauthenticated State = iota
	// StateChecking means stored tokens are being validated against the backend
	StateChecking
	// StateAuthenticated means the backend confirmed the session
	StateAuthenticated
	// StateError means validation hit a non-auth failure (network, 5xx); the
	// stored tokens are kept so a later check can succeed
	StateError
)

func (s State) String() string {
	switch s {
	case StateUnauthenticated:
		return "unauthenticated"
	case StateChecking:
		return "checking"
	case StateAuthenticated:
		return "authenticated"
	case StateError:
		return "error"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Destinations after a successful login, by role
const (
	DestinationManagement = "/management-console"
	DestinationDashboard  = "/dashboard"
)

// Session drives the authentication state machine: startup validation of
// persisted tokens, login against the role-specific endpoints, and logout.
// On every transition into StateAuthenticated it rehydrates the permission
// resolver; on every transition out it invalidates it.
//
// All methods are safe for concurrent use. A generation counter guards
// against interleavings such as a logout landing while a startup check is in
// flight: results from a superseded operation are discarded.
type Session struct {
	client   *api.Client
	resolver *permissions.Resolver
	logger   *observability.Logger

	mu         sync.Mutex
	state      State
	identity   *session.Identity
	lastErr    error
	generation uint64
}

// SessionOption configures a Session
type SessionOption func(*Session)

// WithSessionLogger sets the structured logger
func WithSessionLogger(logger *observability.Logger) SessionOption {
	return func(s *Session) { s.logger = logger }
}

// NewSession creates a Session in StateUnauthenticated. The resolver may be
// nil when the caller manages permissions itself.
func NewSession(client *api.Client, resolver *permissions.Resolver, opts ...SessionOption) *Session {
	s := &Session{
		client:   client,
		resolver: resolver,
		logger:   observability.NewLogger(observability.InfoLevel, nil),
		state:    StateUnauthenticated,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// State returns the current lifecycle phase
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Identity returns the confirmed identity, nil unless StateAuthenticated
func (s *Session) Identity() *session.Identity {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.identity
}

// Err returns the failure behind StateError, nil otherwise
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// Destination returns the landing route for the current identity
func (s *Session) Destination() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.identity.IsSuperAdmin() {
		return DestinationManagement
	}
	return DestinationDashboard
}

// begin marks the start of an operation and returns its generation
func (s *Session) begin(state State) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generation++
	s.state = state
	s.lastErr = nil
	return s.generation
}

// commit applies a state transition unless a newer operation superseded gen
func (s *Session) commit(gen uint64, state State, identity *session.Identity, err error) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generation != gen {
		return false
	}
	s.state = state
	s.identity = identity
	s.lastErr = err
	return true
}

// CheckAuthStatus validates any persisted tokens on startup. An empty store
// resolves to StateUnauthenticated without touching the network. A terminal
// auth failure lands in StateUnauthenticated with the store already purged;
// any other failure lands in StateError with the tokens kept.
func (s *Session) CheckAuthStatus(ctx context.Context) (State, error) {
	creds, err := s.client.Store().Credentials()
	if err != nil {
		return s.State(), fmt.Errorf("failed to read credentials: %w", err)
	}
	if creds.Empty() {
		s.commit(s.begin(StateChecking), StateUnauthenticated, nil, nil)
		return StateUnauthenticated, nil
	}

	gen := s.begin(StateChecking)

	identity, err := s.client.Profile(ctx)
	if err != nil {
		if api.IsTerminal(err) {
			s.logger.Debug("stored session rejected, signing out")
			if s.commit(gen, StateUnauthenticated, nil, nil) && s.resolver != nil {
				s.resolver.Invalidate()
			}
			return StateUnauthenticated, nil
		}
		s.logger.WithError(err).Warn("auth status check failed")
		s.commit(gen, StateError, nil, err)
		return StateError, err
	}

	if err := s.client.Store().SetIdentity(identity); err != nil {
		s.commit(gen, StateError, nil, err)
		return StateError, err
	}
	if !s.commit(gen, StateAuthenticated, identity, nil) {
		return s.State(), nil
	}
	s.hydrate(ctx)
	s.logger.WithField("email", identity.Email).Info("session restored")
	return StateAuthenticated, nil
}

// Login authenticates the credentials, trying the superadmin endpoint first
// and falling back to the user endpoint when the account is not a superadmin.
// Invalid credentials from both endpoints surface as ErrInvalidCredentials.
func (s *Session) Login(ctx context.Context, email, password string) (*session.Identity, error) {
	gen := s.begin(StateChecking)

	resp, err := s.client.LoginSuperAdmin(ctx, email, password)
	if err != nil && recoverable(err) {
		resp, err = s.client.LoginUser(ctx, email, password)
	}
	if err != nil {
		if recoverable(err) {
			err = api.ErrInvalidCredentials
		}
		s.commit(gen, StateUnauthenticated, nil, nil)
		return nil, err
	}

	identity := resp.User
	if !s.commit(gen, StateAuthenticated, &identity, nil) {
		// a logout raced the login; drop the session we just created
		if clearErr := s.client.Store().Clear(); clearErr != nil {
			s.logger.WithError(clearErr).Error("failed to clear superseded login")
		}
		return nil, fmt.Errorf("login superseded")
	}
	s.hydrate(ctx)
	s.logger.WithField("email", identity.Email).
		WithField("role", string(identity.Role)).
		Info("login succeeded")
	return &identity, nil
}

// Logout ends the session unconditionally: the store is purged and the
// resolver invalidated regardless of the current state
func (s *Session) Logout() error {
	s.mu.Lock()
	s.generation++
	s.state = StateUnauthenticated
	s.identity = nil
	s.lastErr = nil
	s.mu.Unlock()

	if s.resolver != nil {
		s.resolver.Invalidate()
	}
	if err := s.client.Store().Clear(); err != nil {
		return fmt.Errorf("failed to clear session store: %w", err)
	}
	s.logger.Info("logged out")
	return nil
}

// HandleSessionEnd is the client's session-end callback: the store is
// already purged, so only local state needs resetting. Wire it via
// api.WithSessionEndHandler.
func (s *Session) HandleSessionEnd(reason string) {
	s.mu.Lock()
	s.generation++
	s.state = StateUnauthenticated
	s.identity = nil
	s.lastErr = nil
	s.mu.Unlock()

	if s.resolver != nil {
		s.resolver.Invalidate()
	}
	s.logger.WithField("reason", reason).Info("session ended")
}

func (s *Session) hydrate(ctx context.Context) {
	if s.resolver == nil {
		return
	}
	if err := s.resolver.Refresh(ctx); err != nil {
		// grants stay deny-by-default until a later refresh succeeds
		s.logger.WithError(err).Warn("failed to load permissions")
	}
}

// recoverable reports whether a login rejection leaves room to try the other
// endpoint: wrong credentials or wrong role, but not network or 5xx failures
func recoverable(err error) bool {
	var verr *api.ValidationError
	return errors.Is(err, api.ErrInvalidCredentials) ||
		errors.Is(err, api.ErrPermissionDenied) ||
		errors.As(err, &verr)
}
