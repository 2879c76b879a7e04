package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"picker/internal/services"
)

// Record stores a batch with its operations and prunes old batches.
func (s *Store) Record(ctx context.Context, batch Batch) error {
	ctx = ensureContext(ctx)
	return retryOnBusy(ctx, func() error {
		return s.recordOnce(ctx, batch)
	})
}

func (s *Store) recordOnce(ctx context.Context, batch Batch) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin record tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO batches (id, lane, size, applied, skipped, started_at, duration_us)
         VALUES (?, ?, ?, ?, ?, ?, ?)`,
		batch.ID,
		batch.Lane,
		batch.Size,
		batch.Applied,
		batch.Skipped,
		batch.StartedAt.UTC().Format(time.RFC3339Nano),
		batch.Duration.Microseconds(),
	)
	if err != nil {
		return fmt.Errorf("insert batch: %w", err)
	}
	seq, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO batch_ops (
            batch_seq, position, op_type, item_id, order_json, order_len,
            outcome, reason, dropped, request_id, enqueued_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare op insert: %w", err)
	}
	defer stmt.Close()

	for _, op := range batch.Operations {
		orderJSON, err := encodeOrder(op.Order)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx,
			seq,
			op.Position,
			op.Type,
			nullableInt(op.ItemID),
			orderJSON,
			len(op.Order),
			op.Outcome,
			nullableString(op.Reason),
			op.Dropped,
			nullableString(op.RequestID),
			op.EnqueuedAt.UTC().Format(time.RFC3339Nano),
		); err != nil {
			return fmt.Errorf("insert batch op: %w", err)
		}
	}

	if s.maxBatches > 0 {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM batches WHERE seq <= (SELECT MAX(seq) FROM batches) - ?`,
			s.maxBatches,
		); err != nil {
			return fmt.Errorf("prune batches: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit record tx: %w", err)
	}
	return nil
}

// Recent returns up to limit batches, newest first, without operations. An
// empty lane matches both lanes.
func (s *Store) Recent(ctx context.Context, lane string, limit int) ([]Batch, error) {
	ctx = ensureContext(ctx)
	if limit <= 0 {
		limit = 20
	}
	query := `SELECT id, lane, size, applied, skipped, started_at, duration_us
        FROM batches`
	args := make([]any, 0, 2)
	if lane != "" {
		query += " WHERE lane = ?"
		args = append(args, lane)
	}
	query += " ORDER BY seq DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query batches: %w", err)
	}
	defer rows.Close()

	var out []Batch
	for rows.Next() {
		batch, err := scanBatch(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, batch)
	}
	return out, rows.Err()
}

// Get returns a batch with its operations in batch order.
func (s *Store) Get(ctx context.Context, id string) (*Batch, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx,
		`SELECT seq, id, lane, size, applied, skipped, started_at, duration_us
         FROM batches WHERE id = ?`, id)

	var (
		seq        int64
		startedAt  string
		durationUS int64
		batch      Batch
	)
	if err := row.Scan(&seq, &batch.ID, &batch.Lane, &batch.Size, &batch.Applied, &batch.Skipped, &startedAt, &durationUS); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, services.Wrap(services.ErrNotFound, "journal", "get batch", id, nil)
		}
		return nil, fmt.Errorf("get batch: %w", err)
	}
	batch.StartedAt = parseTime(startedAt)
	batch.Duration = time.Duration(durationUS) * time.Microsecond

	rows, err := s.db.QueryContext(ctx,
		`SELECT position, op_type, item_id, order_json, outcome, reason, dropped, request_id, enqueued_at
         FROM batch_ops WHERE batch_seq = ? ORDER BY position`, seq)
	if err != nil {
		return nil, fmt.Errorf("query batch ops: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			op         Operation
			itemID     sql.NullInt64
			orderJSON  sql.NullString
			reason     sql.NullString
			requestID  sql.NullString
			enqueuedAt string
		)
		if err := rows.Scan(&op.Position, &op.Type, &itemID, &orderJSON, &op.Outcome, &reason, &op.Dropped, &requestID, &enqueuedAt); err != nil {
			return nil, fmt.Errorf("scan batch op: %w", err)
		}
		op.ItemID = itemID.Int64
		op.Reason = reason.String
		op.RequestID = requestID.String
		op.EnqueuedAt = parseTime(enqueuedAt)
		if orderJSON.Valid && orderJSON.String != "" {
			if err := json.Unmarshal([]byte(orderJSON.String), &op.Order); err != nil {
				return nil, fmt.Errorf("decode reorder payload: %w", err)
			}
		}
		batch.Operations = append(batch.Operations, op)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &batch, nil
}

// Count returns the number of retained batches.
func (s *Store) Count(ctx context.Context) (int, error) {
	ctx = ensureContext(ctx)
	var count int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(1) FROM batches").Scan(&count); err != nil {
		return 0, fmt.Errorf("count batches: %w", err)
	}
	return count, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBatch(row rowScanner) (Batch, error) {
	var (
		batch      Batch
		startedAt  string
		durationUS int64
	)
	if err := row.Scan(&batch.ID, &batch.Lane, &batch.Size, &batch.Applied, &batch.Skipped, &startedAt, &durationUS); err != nil {
		return Batch{}, fmt.Errorf("scan batch: %w", err)
	}
	batch.StartedAt = parseTime(startedAt)
	batch.Duration = time.Duration(durationUS) * time.Microsecond
	return batch, nil
}

func encodeOrder(order []int64) (any, error) {
	if len(order) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(order)
	if err != nil {
		return nil, fmt.Errorf("encode reorder payload: %w", err)
	}
	return string(data), nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableInt(value int64) any {
	if value == 0 {
		return nil
	}
	return value
}

func parseTime(value string) time.Time {
	ts, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}
	}
	return ts
}
