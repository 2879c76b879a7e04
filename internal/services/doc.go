// Package services defines shared request plumbing consumed by the API
// server, the IPC service, and the batch dispatcher.
//
// Key responsibilities:
//   - Context helpers that stamp request correlation ids, lanes, batch ids,
//     and operation types for logging and tracing.
//   - Structured error markers plus the Wrap helper so boundary failures map
//     onto consistent HTTP statuses and RPC errors.
//
// Use these helpers when wiring new entry points so validation failures and
// log fields stay uniform across transports.
package services
