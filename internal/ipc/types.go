package ipc

import "picker/internal/api"

// StatusRequest fetches daemon status.
type StatusRequest struct{}

// StatusResponse mirrors the HTTP status payload.
type StatusResponse = api.DaemonStatus

// ShutdownRequest asks the daemon process to exit.
type ShutdownRequest struct{}

// ShutdownResponse acknowledges a shutdown request.
type ShutdownResponse struct {
	Accepted bool `json:"accepted"`
}

// ListRequest pages through the available or selected view.
type ListRequest struct {
	Offset int    `json:"offset"`
	Limit  int    `json:"limit"`
	Filter string `json:"filter"`
}

// ListResponse mirrors the HTTP items payload.
type ListResponse = api.ItemsResponse

// EnqueueRequest queues one operation. Order is only read for reorder.
type EnqueueRequest struct {
	Type  string  `json:"type"`
	ID    int64   `json:"id"`
	Order []int64 `json:"order"`
}

// EnqueueResponse mirrors the HTTP mutation payload.
type EnqueueResponse = api.MutationResponse

// FlushRequest applies one lane's pending operations now.
type FlushRequest struct {
	Lane string `json:"lane"`
}

// FlushResponse reports how many operations were handed to the lane.
type FlushResponse = api.FlushResponse

// BatchesRequest lists journaled batches, or describes one when ID is set.
type BatchesRequest struct {
	ID    string `json:"id"`
	Lane  string `json:"lane"`
	Limit int    `json:"limit"`
}

// BatchesResponse carries journaled batches, newest first.
type BatchesResponse = api.BatchListResponse

// LogTailRequest fetches log lines based on offset and follow semantics.
type LogTailRequest struct {
	Offset     int64 `json:"offset"`
	Limit      int   `json:"limit"`
	Follow     bool  `json:"follow"`
	WaitMillis int   `json:"wait_millis"`
}

// LogTailResponse returns log lines and the next offset.
type LogTailResponse struct {
	Lines  []string `json:"lines"`
	Offset int64    `json:"offset"`
}

// DebugStateRequest fetches an internal state dump.
type DebugStateRequest struct{}

// DebugStateResponse carries a human-readable dump of daemon internals.
type DebugStateResponse struct {
	Dump string `json:"dump"`
}
