// Package logging assembles structured slog loggers and formatting helpers used
// across picker.
//
// It owns the console and JSON handlers, writes a per-run JSON log file next to
// human-facing console output, and exposes context-aware helpers so queue and
// API code can tag log lines with lanes, batch ids, operation types, and
// correlation ids. A StreamHub keeps recent events in memory for the log tail
// endpoints, and PruneRunLogs prunes run logs past their retention window.
//
// Prefer these constructors over hand-rolled slog setup so new components emit
// data with the same shape as the rest of the daemon.
package logging
