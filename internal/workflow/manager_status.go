package workflow

import (
	"time"

	"picker/internal/items"
	"picker/internal/observability"
	"picker/internal/queue"
)

// StatusSummary represents lightweight workflow diagnostics.
type StatusSummary struct {
	Running      bool
	Items        items.Stats
	Pending      queue.PendingCounts
	FastInterval time.Duration
	SlowInterval time.Duration
	LastBatch    map[string]BatchEvent
	FeedSequence uint64
}

// Status returns the latest workflow information.
func (m *Manager) Status() StatusSummary {
	m.mu.RLock()
	running := m.running
	last := make(map[string]BatchEvent, len(m.lastBatch))
	for lane, evt := range m.lastBatch {
		last[string(lane)] = evt
	}
	m.mu.RUnlock()

	return StatusSummary{
		Running:      running,
		Items:        m.store.Stats(),
		Pending:      m.queue.Pending(),
		FastInterval: m.cfg.FastInterval(),
		SlowInterval: m.cfg.SlowInterval(),
		LastBatch:    last,
		FeedSequence: m.feed.Latest(),
	}
}

// PendingOperations returns the operations buffered in lane.
func (m *Manager) PendingOperations(lane queue.Lane) []queue.Operation {
	return m.queue.PendingOperations(lane)
}

func (m *Manager) publishCounts() {
	stats := m.store.Stats()
	observability.RecordItemCounts(stats.Universe, stats.Selected, stats.Available)
}
