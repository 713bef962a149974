package cli

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/pagegate/pagegate/pkg/api"
	"github.com/pagegate/pagegate/pkg/auth"
	"github.com/pagegate/pagegate/pkg/config"
	"github.com/pagegate/pagegate/pkg/monitor"
	"github.com/pagegate/pagegate/pkg/observability"
	"github.com/pagegate/pagegate/pkg/permissions"
	"github.com/pagegate/pagegate/pkg/session"
)

// appEnv wires the session stack for one CLI invocation
type appEnv struct {
	cfg      *config.Config
	store    session.Store
	client   *api.Client
	session  *auth.Session
	resolver *permissions.Resolver
	monitor  *monitor.Monitor
	logger   *observability.Logger
	metrics  *observability.Metrics

	closers []io.Closer
}

// newAppEnv loads configuration and assembles the client, session state
// machine, permission resolver, and monitor on top of the configured store
func newAppEnv() (*appEnv, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}

	logger := observability.NewLogger(cfg.Observability.LogLevel, os.Stderr)

	env := &appEnv{cfg: cfg, logger: logger}
	if err := env.openStore(); err != nil {
		return nil, err
	}
	if cfg.Observability.MetricsEnabled {
		env.metrics = observability.NewMetrics(prometheus.NewRegistry())
	}

	env.client = api.New(cfg.Backend.BaseURL, env.store,
		api.WithHTTPClient(&http.Client{Timeout: cfg.Backend.Timeout}),
		api.WithLogger(logger),
		api.WithMetrics(env.metrics),
		api.WithSessionEndHandler(func(reason string) {
			if reason != api.TerminationExpired {
				return
			}
			fmt.Fprintln(os.Stderr, "session expired after inactivity, please log in again")
		}),
	)
	env.resolver = permissions.NewResolver(env.client,
		permissions.WithResolverLogger(logger),
		permissions.WithResolverMetrics(env.metrics))
	env.session = auth.NewSession(env.client, env.resolver,
		auth.WithSessionLogger(logger))
	env.monitor = monitor.New(env.client,
		monitor.WithIdleTimeout(cfg.Session.IdleTimeout),
		monitor.WithRefreshThreshold(cfg.Session.RefreshThreshold),
		monitor.WithMonitorLogger(logger))

	return env, nil
}

func (e *appEnv) openStore() error {
	switch e.cfg.Session.StoreType {
	case "memory":
		e.store = session.NewMemoryStore()
	case "file":
		if err := os.MkdirAll(filepath.Dir(e.cfg.Session.FilePath), 0o700); err != nil {
			return fmt.Errorf("failed to create session directory: %w", err)
		}
		store, err := session.NewFileStore(e.cfg.Session.FilePath)
		if err != nil {
			return fmt.Errorf("failed to open session file: %w", err)
		}
		e.store = store
		e.closers = append(e.closers, store)
	case "redis":
		store, err := session.NewRedisStore(session.RedisConfig{
			URL:       e.cfg.Session.RedisURL,
			Password:  e.cfg.Session.RedisPassword,
			DB:        e.cfg.Session.RedisDB,
			SessionID: e.cfg.Session.SessionID,
		})
		if err != nil {
			return fmt.Errorf("failed to open redis session store: %w", err)
		}
		e.store = store
		e.closers = append(e.closers, store)
	default:
		return fmt.Errorf("unknown store type: %s", e.cfg.Session.StoreType)
	}
	return nil
}

// Close releases store resources
func (e *appEnv) Close() {
	for _, c := range e.closers {
		if err := c.Close(); err != nil {
			e.logger.WithError(err).Warn("failed to close session store")
		}
	}
}

// requireAuth validates the persisted session, runs one lifecycle check, and
// records activity. Commands that talk to the backend call this first.
func (e *appEnv) requireAuth(ctx context.Context) error {
	e.monitor.Tick(ctx)

	state, err := e.session.CheckAuthStatus(ctx)
	if err != nil {
		return fmt.Errorf("failed to validate session: %w", err)
	}
	if state != auth.StateAuthenticated {
		return fmt.Errorf("not logged in, run: pagegate login")
	}

	if err := e.monitor.Touch(); err != nil {
		return err
	}
	return nil
}
