// Command picker controls the picker daemon and queues item operations
// against it.
//
// Lifecycle commands (start, stop, restart, status) manage a detached daemon
// process. Item commands (available, selected, select, deselect, add,
// reorder, flush) talk to it over the IPC socket, so they work even when the
// HTTP API is disabled. Mutations are queued, not applied: run `picker flush`
// or wait for the lane window before reading them back.
package main
