// Package app wires the shareholding web service together.
//
// NewApplication loads configuration, initializes logging and telemetry,
// opens the SQLite store and connects the reconciler to a Chrome-backed
// portal session factory. New does the same from explicit dependencies and
// is what tests use with a fake portal.
//
// # Routes
//
//	GET /api/health              liveness summary
//	GET /api/health/ready        store reachability
//	GET /api/health/live         process liveness
//	GET /api/version             build information
//	GET /api/shareholding/{code} trend and transaction finder views
//	GET /api/shareholding/{code}/export
//	GET /api/unavailable         codes skipped this run
//	GET /metrics                 Prometheus exposition
//
// # Graceful Shutdown
//
// Run blocks until SIGINT or SIGTERM, then drains in-flight requests within
// Server.ShutdownTimeout before closing the store and flushing telemetry.
package app
