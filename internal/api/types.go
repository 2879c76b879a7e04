package api

import "time"

// ItemsResponse is one page of the available or selected view.
type ItemsResponse struct {
	Items  []int64 `json:"items"`
	Total  int     `json:"total"`
	Offset int     `json:"offset"`
	Limit  int     `json:"limit"`
	// Filter is null when no filter was supplied.
	Filter *string `json:"filter"`
}

// MutationResponse acknowledges a queued mutation.
type MutationResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// ErrorResponse is the body of every non-2xx API reply.
type ErrorResponse struct {
	Error string `json:"error"`
}

// PageQuery is a validated view request.
type PageQuery struct {
	Offset int
	Limit  int
	Filter string
}

// ItemStats mirrors items.Stats.
type ItemStats struct {
	Universe  int `json:"universe"`
	Selected  int `json:"selected"`
	Available int `json:"available"`
}

// LaneStatus describes one queue lane.
type LaneStatus struct {
	Name      string      `json:"name"`
	Pending   int         `json:"pending"`
	Interval  string      `json:"interval"`
	LastBatch *BatchEvent `json:"lastBatch,omitempty"`
}

// WorkflowStatus summarizes the dispatcher.
type WorkflowStatus struct {
	Running      bool         `json:"running"`
	Items        ItemStats    `json:"items"`
	Lanes        []LaneStatus `json:"lanes"`
	FeedSequence uint64       `json:"feedSequence"`
}

// DirectoryStatus reports whether a daemon directory is usable.
type DirectoryStatus struct {
	Name   string `json:"name"`
	Ready  bool   `json:"ready"`
	Detail string `json:"detail,omitempty"`
}

// DaemonStatus aggregates daemon runtime information for API consumers.
type DaemonStatus struct {
	Running        bool              `json:"running"`
	PID            int               `json:"pid"`
	StartedAt      string            `json:"startedAt,omitempty"`
	APIBind        string            `json:"apiBind"`
	JournalPath    string            `json:"journalPath,omitempty"`
	JournalEnabled bool              `json:"journalEnabled"`
	LockFilePath   string            `json:"lockFilePath"`
	LogPath        string            `json:"logPath,omitempty"`
	Workflow       WorkflowStatus    `json:"workflow"`
	Directories    []DirectoryStatus `json:"directories"`
}

// BatchEvent is the wire form of a workflow batch event.
type BatchEvent struct {
	Sequence   uint64 `json:"seq"`
	BatchID    string `json:"batchId"`
	Lane       string `json:"lane"`
	Size       int    `json:"size"`
	Applied    int    `json:"applied"`
	Skipped    int    `json:"skipped"`
	Universe   int    `json:"universe"`
	Selected   int    `json:"selected"`
	Available  int    `json:"available"`
	FlushedAt  string `json:"flushedAt"`
	DurationUS int64  `json:"durationUs"`
}

// BatchOperation is one journaled operation.
type BatchOperation struct {
	Position   int     `json:"position"`
	Type       string  `json:"type"`
	ItemID     int64   `json:"itemId,omitempty"`
	Order      []int64 `json:"order,omitempty"`
	Outcome    string  `json:"outcome"`
	Reason     string  `json:"reason,omitempty"`
	Dropped    int     `json:"dropped,omitempty"`
	RequestID  string  `json:"requestId,omitempty"`
	EnqueuedAt string  `json:"enqueuedAt"`
}

// Batch is a journaled batch. Operations are only present on detail reads.
type Batch struct {
	ID         string           `json:"id"`
	Lane       string           `json:"lane"`
	Size       int              `json:"size"`
	Applied    int              `json:"applied"`
	Skipped    int              `json:"skipped"`
	StartedAt  string           `json:"startedAt"`
	DurationUS int64            `json:"durationUs"`
	Operations []BatchOperation `json:"operations,omitempty"`
}

// BatchListResponse wraps recent batches.
type BatchListResponse struct {
	Batches []Batch `json:"batches"`
}

// FlushResponse reports how many operations a manual flush handed over.
type FlushResponse struct {
	Lane    string `json:"lane"`
	Flushed int    `json:"flushed"`
}

// LogEvent is the wire form of a structured log line.
type LogEvent struct {
	Sequence      uint64            `json:"seq"`
	Timestamp     time.Time         `json:"ts"`
	Level         string            `json:"level"`
	Message       string            `json:"msg"`
	Component     string            `json:"component,omitempty"`
	Lane          string            `json:"lane,omitempty"`
	BatchID       string            `json:"batchId,omitempty"`
	ItemID        int64             `json:"itemId,omitempty"`
	CorrelationID string            `json:"correlationId,omitempty"`
	Fields        map[string]string `json:"fields,omitempty"`
	Details       []DetailField     `json:"details,omitempty"`
}

// DetailField mirrors the console handler's info bullet lines.
type DetailField struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// LogStreamResponse carries a page of log events and the cursor for the
// next request.
type LogStreamResponse struct {
	Events []LogEvent `json:"events"`
	Next   uint64     `json:"next"`
}

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

func formatTime(ts time.Time) string {
	if ts.IsZero() {
		return ""
	}
	return ts.UTC().Format(dateTimeFormat)
}
