// Package logs tails daemon log files and reads the daemon's in-memory log
// stream over HTTP.
//
// File tailing supports negative offsets for "last N lines" reads and a
// bounded follow wait so IPC calls return even when the daemon is idle.
// The stream client talks to /api/logs and carries the lane, batch and
// component filters the daemon understands.
package logs
