// Package session provides durable client-side storage for the console's
// session state: the access/refresh token pair, the last-activity marker,
// and the cached identity of the signed-in user.
//
// # Overview
//
// The Store interface is deliberately dumb — get, set, clear, no validation.
// Liveness semantics (idle timeout, proactive refresh) belong to pkg/monitor,
// and refresh/retry policy belongs to pkg/api. Three implementations are
// provided:
//
//   - MemoryStore: process-local, used in tests and short-lived tools
//   - FileStore: JSON credentials file with atomic writes; an fsnotify
//     watcher picks up tokens written by another process sharing the file
//   - RedisStore: shared session state for console gateways, cleared with a
//     single multi-key DEL
//
// # Clearing
//
// Clear removes the access token, refresh token, last-activity marker, and
// cached identity together. Partial clears leave the client able to present
// a token for an identity it no longer holds, so every implementation is
// tested against that failure mode explicitly.
package session
