package queue

import (
	"strconv"
	"strings"
	"time"
)

// OpType identifies the kind of mutation an Operation carries.
type OpType string

const (
	OpSelect   OpType = "select"
	OpDeselect OpType = "deselect"
	OpReorder  OpType = "reorder"
	OpAdd      OpType = "add"
)

var allOpTypes = []OpType{OpSelect, OpDeselect, OpReorder, OpAdd}

// OpTypes returns every supported operation type.
func OpTypes() []OpType {
	out := make([]OpType, len(allOpTypes))
	copy(out, allOpTypes)
	return out
}

// ParseOpType normalizes a string into an OpType.
func ParseOpType(value string) (OpType, bool) {
	candidate := OpType(strings.ToLower(strings.TrimSpace(value)))
	for _, t := range allOpTypes {
		if t == candidate {
			return t, true
		}
	}
	return "", false
}

// Lane returns the buffer the operation type is routed to.
func (t OpType) Lane() Lane {
	if t == OpAdd {
		return LaneSlow
	}
	return LaneFast
}

// Lane names one of the two independently timed buffers.
type Lane string

const (
	// LaneFast carries select, deselect, and reorder.
	LaneFast Lane = "fast"
	// LaneSlow carries add.
	LaneSlow Lane = "slow"
)

// Lanes lists the lanes in flush-priority order.
func Lanes() []Lane {
	return []Lane{LaneFast, LaneSlow}
}

// ParseLane normalizes a string into a Lane.
func ParseLane(value string) (Lane, bool) {
	switch Lane(strings.ToLower(strings.TrimSpace(value))) {
	case LaneFast:
		return LaneFast, true
	case LaneSlow:
		return LaneSlow, true
	default:
		return "", false
	}
}

// Operation is a pending mutation intent.
type Operation struct {
	Type OpType `json:"type"`
	// ID targets select, deselect, and add. Zero for reorder.
	ID int64 `json:"id,omitempty"`
	// Order is the requested selected sequence for reorder.
	Order      []int64   `json:"order,omitempty"`
	EnqueuedAt time.Time `json:"enqueued_at"`
	RequestID  string    `json:"request_id,omitempty"`
}

// Key returns the dedup key for the operation. Reorder ignores its payload so
// every reorder in a window collapses onto the same entry.
func (op Operation) Key() string {
	if op.Type == OpReorder {
		return string(OpReorder)
	}
	return string(op.Type) + ":" + strconv.FormatInt(op.ID, 10)
}

// Lane returns the lane the operation is routed to.
func (op Operation) Lane() Lane {
	return op.Type.Lane()
}

// Batch is the detached contents of one lane buffer at flush time, in the
// insertion order of the surviving keys.
type Batch struct {
	Lane       Lane
	Operations []Operation
	FlushedAt  time.Time
}

// Len reports the number of operations in the batch.
func (b Batch) Len() int {
	return len(b.Operations)
}
