// Package observability provides structured logging and Prometheus metrics
// for the console client.
//
// Logging is JSON via stdlib slog; loggers travel on the context together
// with the outbound request ID. Metrics cover outbound requests, token
// refresh attempts by trigger (reactive/proactive) and outcome, forced
// session terminations by reason, and permission-check cache behavior.
// All Metrics methods tolerate a nil receiver so metrics stay optional.
package observability
