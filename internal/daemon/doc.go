// Package daemon coordinates the long-running picker process.
//
// It wires configuration, the workflow manager, the batch journal, and the
// HTTP API into a single lifecycle with flock-based locking to prevent
// multiple instances. The API server routes with gorilla/mux and wraps
// every request with request-id, access-log, metrics and CORS middleware.
//
// Keep orchestration logic here: queue and store semantics live in their
// own packages while the daemon focuses on startup, shutdown, and high level
// coordination.
package daemon
