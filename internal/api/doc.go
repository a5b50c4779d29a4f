// Package api is the HTTP surface of the dashboard.
//
// It carries three groups of routes: the Google consent flow under
// /auth, the session-authenticated JSON API under /api, and health
// probes at the root. Provider-backed handlers follow one shape: resolve
// the session, validate parameters, obtain a pooled client through the
// auth manager, make exactly one provider call, map the result through
// the shared error taxonomy.
//
// Errors use a single envelope. Authentication failures come back as 401
// with a reconnect hint so the frontend knows to restart the consent
// flow; provider failures come back as 502 with the provider's reason.
//
// Prometheus metrics are served by a separate MetricsServer on a
// dedicated port.
package api
