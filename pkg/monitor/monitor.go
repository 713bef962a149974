package monitor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/pagegate/pagegate/pkg/api"
	"github.com/pagegate/pagegate/pkg/observability"
)

// Defaults for the session lifecycle timers
const (
	DefaultCheckInterval    = time.Minute
	DefaultIdleTimeout      = time.Hour
	DefaultRefreshThreshold = 30 * time.Minute
)

// Monitor enforces the session lifecycle in the background. Once a minute it
// compares the recorded last activity against two thresholds: past the idle
// timeout the session is terminated, past the refresh threshold the access
// token is refreshed proactively so an active-again user never sees a 401.
//
// Callers report user activity through Touch. The monitor never extends a
// session on its own; only Touch moves the idle clock.
type Monitor struct {
	client *api.Client
	logger *observability.Logger

	idleTimeout      time.Duration
	refreshThreshold time.Duration
	now              func() time.Time

	mu   sync.Mutex
	cron *cron.Cron
}

// MonitorOption configures a Monitor
type MonitorOption func(*Monitor)

// WithIdleTimeout overrides the one hour idle limit
func WithIdleTimeout(d time.Duration) MonitorOption {
	return func(m *Monitor) { m.idleTimeout = d }
}

// WithRefreshThreshold overrides the thirty minute proactive refresh point
func WithRefreshThreshold(d time.Duration) MonitorOption {
	return func(m *Monitor) { m.refreshThreshold = d }
}

// WithClock injects the time source, for tests
func WithClock(now func() time.Time) MonitorOption {
	return func(m *Monitor) { m.now = now }
}

// WithMonitorLogger sets the structured logger
func WithMonitorLogger(logger *observability.Logger) MonitorOption {
	return func(m *Monitor) { m.logger = logger }
}

// New creates a stopped Monitor; call Start to begin ticking
func New(client *api.Client, opts ...MonitorOption) *Monitor {
	m := &Monitor{
		client:           client,
		logger:           observability.NewLogger(observability.InfoLevel, nil),
		idleTimeout:      DefaultIdleTimeout,
		refreshThreshold: DefaultRefreshThreshold,
		now:              time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Touch records user activity now. Call it on every user-initiated request
// or interaction; it is what keeps a session alive.
func (m *Monitor) Touch() error {
	if err := m.client.Store().SetLastActivity(m.now()); err != nil {
		return fmt.Errorf("failed to record activity: %w", err)
	}
	return nil
}

// Start begins the once-a-minute lifecycle check. Idempotent.
func (m *Monitor) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cron != nil {
		return nil
	}

	c := cron.New()
	_, err := c.AddFunc("@every 1m", func() {
		m.Tick(context.Background())
	})
	if err != nil {
		return fmt.Errorf("failed to schedule session check: %w", err)
	}
	c.Start()
	m.cron = c
	m.logger.WithField("idle_timeout", m.idleTimeout.String()).
		WithField("refresh_threshold", m.refreshThreshold.String()).
		Info("session monitor started")
	return nil
}

// Stop halts the background checks; in-flight ticks run to completion
func (m *Monitor) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cron == nil {
		return
	}
	<-m.cron.Stop().Done()
	m.cron = nil
	m.logger.Info("session monitor stopped")
}

// Tick runs one lifecycle check. Exposed so callers can force a check
// outside the schedule, e.g. when the process wakes from suspend.
func (m *Monitor) Tick(ctx context.Context) {
	creds, err := m.client.Store().Credentials()
	if err != nil {
		m.logger.WithError(err).Warn("session check failed to read store")
		return
	}
	if creds.Empty() {
		return
	}

	last, err := m.client.Store().LastActivity()
	if err != nil {
		m.logger.WithError(err).Warn("session check failed to read activity")
		return
	}
	if last.IsZero() {
		// a session without recorded activity starts its idle clock now
		if err := m.Touch(); err != nil {
			m.logger.WithError(err).Warn("failed to start idle clock")
		}
		return
	}

	idle := m.now().Sub(last)
	switch {
	case idle >= m.idleTimeout:
		m.logger.WithField("idle", idle.String()).Info("idle timeout exceeded")
		m.client.Terminate(api.TerminationExpired)
	case idle >= m.refreshThreshold:
		// keep the token fresh so the next interaction does not 401; a
		// failed refresh terminates inside the client
		if err := m.client.Refresh(ctx, api.TriggerProactive); err != nil {
			m.logger.WithError(err).Warn("proactive refresh failed")
		}
	}
}
