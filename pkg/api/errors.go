package api

import (
	"errors"
	"fmt"
)

// Sentinel errors forming the client's error taxonomy. Callers branch with
// errors.Is; only ErrSessionExpired mutates session state (the client purges
// the store before returning it).
var (
	// ErrInvalidCredentials is returned when a login attempt is rejected.
	// Recoverable: the user retries with different credentials.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrSessionExpired is returned when the session has been terminated:
	// refresh failed, no refresh token was available, or a retried request
	// was rejected again. The token store has already been purged.
	ErrSessionExpired = errors.New("session expired")

	// ErrPermissionDenied is returned on a 403. Gated consumers should have
	// hidden the affordance before ever reaching this.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrNotFound is returned on a 404
	ErrNotFound = errors.New("not found")
)

// ValidationError is a 400 from the backend: the request was understood but
// rejected. Local, recoverable, no session state touched.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// StatusError is any other non-2xx response: 5xx, unexpected 4xx. Transient
// from the session's point of view; the client never retries these.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("request failed with status %d", e.StatusCode)
	}
	return fmt.Sprintf("request failed with status %d: %s", e.StatusCode, e.Message)
}

// IsTerminal reports whether err ended the session. Terminal errors require
// redirecting to the login boundary; everything else is shown in place.
func IsTerminal(err error) bool {
	return errors.Is(err, ErrSessionExpired)
}
