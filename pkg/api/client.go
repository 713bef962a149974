package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/pagegate/pagegate/pkg/observability"
	"github.com/pagegate/pagegate/pkg/session"
)

// Refresh triggers, used as metric labels and log fields
const (
	TriggerReactive  = "reactive"  // a request came back 401
	TriggerProactive = "proactive" // the session monitor refreshed ahead of expiry
)

// Termination reasons passed to the session-end handler
const (
	TerminationExpired         = "expired"         // idle timeout exceeded
	TerminationRefreshFailed   = "refresh_failed"  // refresh call rejected or unreachable
	TerminationUnauthenticated = "unauthenticated" // 401 with no refresh token to fall back on
	TerminationRejected        = "rejected"        // still 401 after a successful refresh
)

var (
	errNoRefreshToken = errors.New("no refresh token")
	errLoggedOut      = errors.New("session cleared during refresh")
)

// Client speaks the console backend's HTTP contract. It attaches the bearer
// token from the session store to every request and, on a 401, performs
// exactly one silent refresh before retrying the original request once.
// Failed refreshes purge the store and surface ErrSessionExpired.
//
// Safe for concurrent use; concurrent refresh attempts (a proactive tick
// racing an in-flight 401) collapse into one call via singleflight.
type Client struct {
	baseURL    string
	httpClient *http.Client
	store      session.Store
	logger     *observability.Logger
	metrics    *observability.Metrics

	refreshGroup singleflight.Group
	onSessionEnd func(reason string)
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient sets the underlying http.Client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithLogger sets the structured logger
func WithLogger(logger *observability.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// WithMetrics enables Prometheus metrics
func WithMetrics(metrics *observability.Metrics) Option {
	return func(c *Client) { c.metrics = metrics }
}

// WithSessionEndHandler registers the callback invoked after the client
// terminates the session (the caller's login boundary). The store is already
// purged when the handler runs.
func WithSessionEndHandler(fn func(reason string)) Option {
	return func(c *Client) { c.onSessionEnd = fn }
}

// New creates a Client for the backend at baseURL
func New(baseURL string, store session.Store, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		store:      store,
		logger:     observability.NewLogger(observability.InfoLevel, nil),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Store exposes the session store backing this client
func (c *Client) Store() session.Store {
	return c.store
}

// Terminate purges the session store and notifies the session-end handler.
// Used by the client itself on refresh failure and by the session monitor on
// idle timeout.
func (c *Client) Terminate(reason string) {
	if err := c.store.Clear(); err != nil {
		c.logger.WithError(err).Error("failed to clear session store")
	}
	c.metrics.ObserveTermination(reason)
	c.logger.WithField("reason", reason).Info("session terminated")
	if c.onSessionEnd != nil {
		c.onSessionEnd(reason)
	}
}

// Refresh exchanges the stored refresh token for a new access token and
// persists it. On any failure the session is terminated and ErrSessionExpired
// is returned. Concurrent calls share one backend round trip.
func (c *Client) Refresh(ctx context.Context, trigger string) error {
	_, err := c.refresh(ctx, trigger)
	return err
}

func (c *Client) refresh(ctx context.Context, trigger string) (string, error) {
	v, err, _ := c.refreshGroup.Do("token-refresh", func() (interface{}, error) {
		// Re-read the refresh token inside the flight: a concurrent logout
		// may have cleared it since the caller observed the 401.
		creds, err := c.store.Credentials()
		if err != nil {
			return "", fmt.Errorf("failed to read credentials: %w", err)
		}
		if creds.RefreshToken == "" {
			return "", errNoRefreshToken
		}

		payload, err := json.Marshal(map[string]string{"refresh": creds.RefreshToken})
		if err != nil {
			return "", fmt.Errorf("failed to encode refresh request: %w", err)
		}

		status, body, err := c.send(ctx, http.MethodPost, "/token/refresh", payload, "")
		if err != nil {
			return "", fmt.Errorf("refresh request failed: %w", err)
		}
		if status < 200 || status >= 300 {
			return "", fmt.Errorf("refresh rejected with status %d", status)
		}

		var resp struct {
			Access string `json:"access"`
		}
		if err := json.Unmarshal(body, &resp); err != nil {
			return "", fmt.Errorf("failed to decode refresh response: %w", err)
		}
		if resp.Access == "" {
			return "", fmt.Errorf("refresh response missing access token")
		}

		// A logout may have cleared the store while the call was on the
		// wire; persisting now would resurrect a lone access token.
		current, err := c.store.Credentials()
		if err != nil {
			return "", fmt.Errorf("failed to re-read credentials: %w", err)
		}
		if current.RefreshToken != creds.RefreshToken {
			return "", errLoggedOut
		}

		if err := c.store.SetAccessToken(resp.Access); err != nil {
			return "", fmt.Errorf("failed to persist access token: %w", err)
		}
		return resp.Access, nil
	})

	c.metrics.ObserveRefresh(trigger, err)
	if err != nil {
		c.logger.WithError(err).WithField("trigger", trigger).Warn("token refresh failed")
		if errors.Is(err, errLoggedOut) {
			// the store was cleared by a logout; nothing to terminate again
			return "", fmt.Errorf("token refresh abandoned: %w", ErrSessionExpired)
		}
		reason := TerminationRefreshFailed
		if errors.Is(err, errNoRefreshToken) {
			reason = TerminationUnauthenticated
		}
		c.Terminate(reason)
		return "", fmt.Errorf("token refresh failed: %w", ErrSessionExpired)
	}

	c.logger.WithField("trigger", trigger).Debug("access token refreshed")
	return v.(string), nil
}

// do performs an authenticated request with the one-refresh-one-retry policy
func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	payload, err := encodeBody(body)
	if err != nil {
		return err
	}

	creds, err := c.store.Credentials()
	if err != nil {
		return fmt.Errorf("failed to read credentials: %w", err)
	}

	status, respBody, err := c.send(ctx, method, path, payload, creds.AccessToken)
	if err != nil {
		return err
	}

	if status == http.StatusUnauthorized {
		token, refreshErr := c.refresh(ctx, TriggerReactive)
		if refreshErr != nil {
			return refreshErr
		}

		// Exactly one retry with the fresh token. A second 401 terminates;
		// it never triggers another refresh.
		status, respBody, err = c.send(ctx, method, path, payload, token)
		if err != nil {
			return err
		}
		if status == http.StatusUnauthorized {
			c.Terminate(TerminationRejected)
			return fmt.Errorf("request rejected after refresh: %w", ErrSessionExpired)
		}
	}

	if status < 200 || status >= 300 {
		return errorFromResponse(status, respBody, false)
	}
	return decodeBody(respBody, out)
}

// doAnon performs an unauthenticated request: no bearer token, no refresh
func (c *Client) doAnon(ctx context.Context, method, path string, body, out interface{}) error {
	payload, err := encodeBody(body)
	if err != nil {
		return err
	}

	status, respBody, err := c.send(ctx, method, path, payload, "")
	if err != nil {
		return err
	}
	if status < 200 || status >= 300 {
		return errorFromResponse(status, respBody, true)
	}
	return decodeBody(respBody, out)
}

// send performs one HTTP round trip and drains the response
func (c *Client) send(ctx context.Context, method, path string, payload []byte, token string) (int, []byte, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to build request: %w", err)
	}

	requestID := observability.GetRequestID(ctx)
	if requestID == "" {
		requestID = uuid.NewString()
	}
	req.Header.Set("X-Request-ID", requestID)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.WithError(err).
			WithField("method", method).
			WithField("path", path).
			Warn("request failed")
		return 0, nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to read response: %w", err)
	}

	c.metrics.ObserveRequest(method, path, resp.StatusCode, time.Since(start).Seconds())
	c.logger.WithField("method", method).
		WithField("path", path).
		WithField("status", resp.StatusCode).
		WithField("request_id", requestID).
		Debug("request completed")

	return resp.StatusCode, body, nil
}

func encodeBody(body interface{}) ([]byte, error) {
	if body == nil {
		return nil, nil
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request body: %w", err)
	}
	return payload, nil
}

func decodeBody(body []byte, out interface{}) error {
	if out == nil || len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// errorFromResponse maps a non-2xx response to the error taxonomy
func errorFromResponse(status int, body []byte, anon bool) error {
	message := errorMessage(body)

	switch status {
	case http.StatusBadRequest:
		if message == "" {
			message = "invalid request"
		}
		return &ValidationError{Message: message}
	case http.StatusUnauthorized:
		// Authenticated 401s are handled by the refresh path before this
		// runs; an anonymous 401 means the credentials were wrong.
		if anon {
			if message != "" {
				return fmt.Errorf("%w: %s", ErrInvalidCredentials, message)
			}
			return ErrInvalidCredentials
		}
		return &StatusError{StatusCode: status, Message: message}
	case http.StatusForbidden:
		if message != "" {
			return fmt.Errorf("%w: %s", ErrPermissionDenied, message)
		}
		return ErrPermissionDenied
	case http.StatusNotFound:
		if message != "" {
			return fmt.Errorf("%w: %s", ErrNotFound, message)
		}
		return ErrNotFound
	default:
		return &StatusError{StatusCode: status, Message: message}
	}
}

func errorMessage(body []byte) string {
	var resp struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &resp); err == nil && resp.Error != "" {
		return resp.Error
	}
	return ""
}
