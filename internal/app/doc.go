// Package app wires configuration, logging, telemetry, the dashboard and
// health services, the WebSocket hub and the dataset watcher into one
// Application and manages its lifecycle.
//
// Start loads the dataset and fails when it cannot be read or does not match
// a known schema; the server never runs without data. Run adds the HTTP
// listener and blocks until the context is cancelled or SIGINT/SIGTERM
// arrives, then calls Stop.
package app
