// Package ipc exposes the daemon over JSON-RPC on a Unix socket and ships the
// matching client used by the CLI.
//
// The RPC surface reuses the HTTP DTOs from package api so both transports
// validate and render item operations identically. The socket is local only,
// which lets the CLI stop the daemon and tail its log file even when the HTTP
// API is disabled.
package ipc
