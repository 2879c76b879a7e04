package api

import (
	"picker/internal/journal"
	"picker/internal/logging"
	"picker/internal/queue"
	"picker/internal/workflow"
)

// FromBatchEvent converts a workflow event into its wire form.
func FromBatchEvent(evt workflow.BatchEvent) BatchEvent {
	return BatchEvent{
		Sequence:   evt.Sequence,
		BatchID:    evt.BatchID,
		Lane:       evt.Lane,
		Size:       evt.Size,
		Applied:    evt.Applied,
		Skipped:    evt.Skipped,
		Universe:   evt.Universe,
		Selected:   evt.Selected,
		Available:  evt.Available,
		FlushedAt:  formatTime(evt.FlushedAt),
		DurationUS: evt.Duration.Microseconds(),
	}
}

// FromBatchEvents converts a slice of workflow events.
func FromBatchEvents(events []workflow.BatchEvent) []BatchEvent {
	out := make([]BatchEvent, 0, len(events))
	for _, evt := range events {
		out = append(out, FromBatchEvent(evt))
	}
	return out
}

// FromStatusSummary converts workflow diagnostics. Lanes are listed fast
// first.
func FromStatusSummary(summary workflow.StatusSummary) WorkflowStatus {
	pending := map[queue.Lane]int{
		queue.LaneFast: summary.Pending.Fast,
		queue.LaneSlow: summary.Pending.Slow,
	}
	intervals := map[queue.Lane]string{
		queue.LaneFast: summary.FastInterval.String(),
		queue.LaneSlow: summary.SlowInterval.String(),
	}
	lanes := make([]LaneStatus, 0, 2)
	for _, lane := range queue.Lanes() {
		status := LaneStatus{
			Name:     string(lane),
			Pending:  pending[lane],
			Interval: intervals[lane],
		}
		if evt, ok := summary.LastBatch[string(lane)]; ok {
			dto := FromBatchEvent(evt)
			status.LastBatch = &dto
		}
		lanes = append(lanes, status)
	}
	return WorkflowStatus{
		Running: summary.Running,
		Items: ItemStats{
			Universe:  summary.Items.Universe,
			Selected:  summary.Items.Selected,
			Available: summary.Items.Available,
		},
		Lanes:        lanes,
		FeedSequence: summary.FeedSequence,
	}
}

// FromJournalBatch converts a journal row, including any operations.
func FromJournalBatch(batch journal.Batch) Batch {
	dto := Batch{
		ID:         batch.ID,
		Lane:       batch.Lane,
		Size:       batch.Size,
		Applied:    batch.Applied,
		Skipped:    batch.Skipped,
		StartedAt:  formatTime(batch.StartedAt),
		DurationUS: batch.Duration.Microseconds(),
	}
	if len(batch.Operations) > 0 {
		dto.Operations = make([]BatchOperation, 0, len(batch.Operations))
		for _, op := range batch.Operations {
			dto.Operations = append(dto.Operations, BatchOperation{
				Position:   op.Position,
				Type:       op.Type,
				ItemID:     op.ItemID,
				Order:      op.Order,
				Outcome:    op.Outcome,
				Reason:     op.Reason,
				Dropped:    op.Dropped,
				RequestID:  op.RequestID,
				EnqueuedAt: formatTime(op.EnqueuedAt),
			})
		}
	}
	return dto
}

// FromJournalBatches converts journal rows.
func FromJournalBatches(batches []journal.Batch) []Batch {
	out := make([]Batch, 0, len(batches))
	for _, batch := range batches {
		out = append(out, FromJournalBatch(batch))
	}
	return out
}

// FromLogEvents converts log hub events into their wire form.
func FromLogEvents(events []logging.LogEvent) []LogEvent {
	out := make([]LogEvent, 0, len(events))
	for _, evt := range events {
		var details []DetailField
		if len(evt.Details) > 0 {
			details = make([]DetailField, 0, len(evt.Details))
			for _, detail := range evt.Details {
				details = append(details, DetailField{Label: detail.Label, Value: detail.Value})
			}
		}
		out = append(out, LogEvent{
			Sequence:      evt.Sequence,
			Timestamp:     evt.Timestamp,
			Level:         evt.Level,
			Message:       evt.Message,
			Component:     evt.Component,
			Lane:          evt.Lane,
			BatchID:       evt.BatchID,
			ItemID:        evt.ItemID,
			CorrelationID: evt.CorrelationID,
			Fields:        evt.Fields,
			Details:       details,
		})
	}
	return out
}
