package journal

import "time"

// Batch is one applied flush as recorded in the journal.
type Batch struct {
	ID        string        `json:"id"`
	Lane      string        `json:"lane"`
	Size      int           `json:"size"`
	Applied   int           `json:"applied"`
	Skipped   int           `json:"skipped"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
	// Operations is only populated by Get.
	Operations []Operation `json:"operations,omitempty"`
}

// Operation is one entry of a recorded batch.
type Operation struct {
	Position   int       `json:"position"`
	Type       string    `json:"type"`
	ItemID     int64     `json:"item_id,omitempty"`
	Order      []int64   `json:"order,omitempty"`
	Outcome    string    `json:"outcome"`
	Reason     string    `json:"reason,omitempty"`
	Dropped    int       `json:"dropped,omitempty"`
	RequestID  string    `json:"request_id,omitempty"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}

const (
	OutcomeApplied = "applied"
	OutcomeSkipped = "skipped"
)
