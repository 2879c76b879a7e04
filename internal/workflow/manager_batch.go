package workflow

import (
	"context"
	"log/slog"
	"time"

	"picker/internal/items"
	"picker/internal/journal"
	"picker/internal/logging"
	"picker/internal/observability"
	"picker/internal/queue"
	"picker/internal/services"
)

func (m *Manager) laneHandler(lane queue.Lane) queue.Handler {
	return func(ctx context.Context, batch queue.Batch) {
		m.applyBatch(ctx, lane, batch)
	}
}

func (m *Manager) applyBatch(ctx context.Context, lane queue.Lane, batch queue.Batch) {
	batchID := m.newID()
	ctx = services.WithLane(ctx, string(lane))
	ctx = services.WithBatchID(ctx, batchID)
	logger := logging.WithContext(ctx, m.logger)

	started := m.now()
	var result items.Result
	switch lane {
	case queue.LaneSlow:
		result = m.store.ApplySlow(batch)
	default:
		result = m.store.ApplyFast(batch)
	}
	duration := m.now().Sub(started)
	stats := result.Stats

	logger.Info("batch applied",
		logging.Int("batch_size", batch.Len()),
		logging.Int("applied", result.Applied),
		logging.Int("skipped", result.Skipped),
		logging.Duration("flush_duration", duration),
		logging.Int("selected", stats.Selected),
		logging.Int("available", stats.Available),
	)
	m.logSkipped(logger, result)

	observability.RecordFlush(string(lane), duration)
	for _, outcome := range result.Outcomes {
		observability.RecordOutcome(string(outcome.Op.Type), outcome.Applied)
	}
	observability.RecordItemCounts(stats.Universe, stats.Selected, stats.Available)

	m.recordBatch(ctx, logger, journalBatch(batchID, lane, batch, result, started, duration))

	evt := m.feed.Publish(BatchEvent{
		BatchID:   batchID,
		Lane:      string(lane),
		Size:      batch.Len(),
		Applied:   result.Applied,
		Skipped:   result.Skipped,
		Universe:  stats.Universe,
		Selected:  stats.Selected,
		Available: stats.Available,
		FlushedAt: batch.FlushedAt,
		Duration:  duration,
	})
	m.setLastBatch(lane, evt)
}

func (m *Manager) logSkipped(logger *slog.Logger, result items.Result) {
	if !logger.Enabled(context.Background(), slog.LevelDebug) {
		return
	}
	for _, outcome := range result.Outcomes {
		if outcome.Applied {
			continue
		}
		attrs := []logging.Attr{
			logging.OpType(string(outcome.Op.Type)),
			logging.String(logging.FieldReason, string(outcome.Reason)),
			logging.ItemID(outcome.Op.ID),
		}
		if outcome.Op.RequestID != "" {
			attrs = append(attrs, logging.String(logging.FieldCorrelationID, outcome.Op.RequestID))
		}
		logger.Debug("operation skipped", logging.Args(attrs...)...)
	}
	for _, outcome := range result.Outcomes {
		if outcome.Op.Type == queue.OpReorder && outcome.Dropped > 0 {
			logger.Debug("reorder dropped ids",
				logging.Int("dropped", outcome.Dropped),
				logging.Int("requested", len(outcome.Op.Order)),
			)
		}
	}
}

func (m *Manager) recordBatch(ctx context.Context, logger *slog.Logger, batch journal.Batch) {
	if m.recorder == nil {
		return
	}
	if err := m.recorder.Record(ctx, batch); err != nil {
		logging.WarnWithContext(logger, "journal write failed; batch applied without history", "journal_write_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check free space and permissions on the state directory"),
			logging.String(logging.FieldImpact, "batch missing from picker batches output"),
		)
	}
}

func journalBatch(id string, lane queue.Lane, batch queue.Batch, result items.Result, started time.Time, duration time.Duration) journal.Batch {
	ops := make([]journal.Operation, 0, len(result.Outcomes))
	for i, outcome := range result.Outcomes {
		op := journal.Operation{
			Position:   i,
			Type:       string(outcome.Op.Type),
			ItemID:     outcome.Op.ID,
			Order:      outcome.Op.Order,
			Outcome:    journal.OutcomeApplied,
			Dropped:    outcome.Dropped,
			RequestID:  outcome.Op.RequestID,
			EnqueuedAt: outcome.Op.EnqueuedAt,
		}
		if !outcome.Applied {
			op.Outcome = journal.OutcomeSkipped
			op.Reason = string(outcome.Reason)
		}
		ops = append(ops, op)
	}
	return journal.Batch{
		ID:         id,
		Lane:       string(lane),
		Size:       batch.Len(),
		Applied:    result.Applied,
		Skipped:    result.Skipped,
		StartedAt:  started,
		Duration:   duration,
		Operations: ops,
	}
}
