// Package api implements the HTTP client for the console backend.
//
// The client owns the token lifecycle on the request path: every
// authenticated request carries the current access token from the session
// store, and a 401 triggers exactly one refresh followed by exactly one
// retry of the original request. A refresh failure, a missing refresh token,
// or a second 401 terminates the session (the store is purged and the
// session-end handler fires) and surfaces ErrSessionExpired.
//
// Non-2xx responses map to a small error taxonomy: ValidationError (400),
// ErrInvalidCredentials (anonymous 401), ErrPermissionDenied (403),
// ErrNotFound (404) and StatusError for the rest. Callers branch with
// errors.Is / errors.As.
package api
