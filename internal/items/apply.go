package items

import (
	"slices"

	mapset "github.com/deckarep/golang-set/v2"

	"picker/internal/queue"
)

// SkipReason explains why an operation left the store unchanged.
type SkipReason string

const (
	SkipAlreadyPresent  SkipReason = "already_present"
	SkipUnknownID       SkipReason = "unknown_id"
	SkipAlreadySelected SkipReason = "already_selected"
	SkipNotSelected     SkipReason = "not_selected"
	SkipWrongLane       SkipReason = "wrong_lane"
)

// Outcome records what happened to one operation of a batch.
type Outcome struct {
	Op      queue.Operation
	Applied bool
	Reason  SkipReason
	// Dropped counts reorder ids discarded because they were not selected
	// or were repeated.
	Dropped int
}

// Result summarizes a batch application.
type Result struct {
	Outcomes []Outcome
	Applied  int
	Skipped  int
	// Stats is the store state right after this batch, read under the
	// same lock as the apply.
	Stats Stats
}

func (r *Result) record(outcome Outcome) {
	r.Outcomes = append(r.Outcomes, outcome)
	if outcome.Applied {
		r.Applied++
	} else {
		r.Skipped++
	}
}

// ApplySlow applies a slow-lane batch. Each add inserts its id when absent;
// re-adding a known id is a silent skip.
func (s *Store) ApplySlow(batch queue.Batch) Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := Result{Outcomes: make([]Outcome, 0, batch.Len())}
	for _, op := range batch.Operations {
		if op.Type != queue.OpAdd {
			result.record(Outcome{Op: op, Reason: SkipWrongLane})
			continue
		}
		if !s.universeSet.Add(op.ID) {
			result.record(Outcome{Op: op, Reason: SkipAlreadyPresent})
			continue
		}
		s.universe = append(s.universe, op.ID)
		result.record(Outcome{Op: op, Applied: true})
	}
	result.Stats = s.statsLocked()
	return result
}

// ApplyFast applies a fast-lane batch in batch order.
func (s *Store) ApplyFast(batch queue.Batch) Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := Result{Outcomes: make([]Outcome, 0, batch.Len())}
	for _, op := range batch.Operations {
		switch op.Type {
		case queue.OpSelect:
			result.record(s.selectLocked(op))
		case queue.OpDeselect:
			result.record(s.deselectLocked(op))
		case queue.OpReorder:
			result.record(s.reorderLocked(op))
		default:
			result.record(Outcome{Op: op, Reason: SkipWrongLane})
		}
	}
	result.Stats = s.statsLocked()
	return result
}

func (s *Store) selectLocked(op queue.Operation) Outcome {
	if !s.universeSet.Contains(op.ID) {
		return Outcome{Op: op, Reason: SkipUnknownID}
	}
	if !s.selectedSet.Add(op.ID) {
		return Outcome{Op: op, Reason: SkipAlreadySelected}
	}
	s.selected = append(s.selected, op.ID)
	return Outcome{Op: op, Applied: true}
}

func (s *Store) deselectLocked(op queue.Operation) Outcome {
	if !s.selectedSet.Contains(op.ID) {
		return Outcome{Op: op, Reason: SkipNotSelected}
	}
	s.selectedSet.Remove(op.ID)
	if i := slices.Index(s.selected, op.ID); i >= 0 {
		s.selected = slices.Delete(s.selected, i, i+1)
	}
	return Outcome{Op: op, Applied: true}
}

// reorderLocked replaces the selection with the selected members of op.Order,
// in the caller's order. Selected ids missing from op.Order become available.
func (s *Store) reorderLocked(op queue.Operation) Outcome {
	next := make([]int64, 0, min(len(op.Order), len(s.selected)))
	nextSet := mapset.NewThreadUnsafeSetWithSize[int64](cap(next))
	for _, id := range op.Order {
		if !s.selectedSet.Contains(id) {
			continue
		}
		if !nextSet.Add(id) {
			continue
		}
		next = append(next, id)
	}
	s.selected = next
	s.selectedSet = nextSet
	return Outcome{Op: op, Applied: true, Dropped: len(op.Order) - len(next)}
}
