package journal_test

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"picker/internal/journal"
	"picker/internal/services"
	"picker/internal/testsupport"
)

func sampleBatch(id, lane string) journal.Batch {
	started := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return journal.Batch{
		ID:        id,
		Lane:      lane,
		Size:      2,
		Applied:   1,
		Skipped:   1,
		StartedAt: started,
		Duration:  1500 * time.Microsecond,
		Operations: []journal.Operation{
			{Position: 0, Type: "select", ItemID: 7, Outcome: journal.OutcomeApplied, RequestID: "req-1", EnqueuedAt: started.Add(-time.Second)},
			{Position: 1, Type: "reorder", Order: []int64{7, 3}, Outcome: journal.OutcomeSkipped, Reason: "unknown_id", Dropped: 1, EnqueuedAt: started.Add(-time.Millisecond)},
		},
	}
}

func TestRecordAndGetRoundTripsOperations(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenJournal(t, cfg)
	ctx := context.Background()

	want := sampleBatch("batch-1", "fast")
	if err := store.Record(ctx, want); err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	got, err := store.Get(ctx, "batch-1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Lane != "fast" || got.Size != 2 || got.Applied != 1 || got.Skipped != 1 {
		t.Fatalf("unexpected batch header: %+v", got)
	}
	if !got.StartedAt.Equal(want.StartedAt) {
		t.Fatalf("started_at = %v, want %v", got.StartedAt, want.StartedAt)
	}
	if got.Duration != want.Duration {
		t.Fatalf("duration = %v, want %v", got.Duration, want.Duration)
	}
	if len(got.Operations) != 2 {
		t.Fatalf("expected 2 operations, got %d", len(got.Operations))
	}
	first, second := got.Operations[0], got.Operations[1]
	if first.Type != "select" || first.ItemID != 7 || first.RequestID != "req-1" || first.Outcome != journal.OutcomeApplied {
		t.Fatalf("unexpected first op: %+v", first)
	}
	if second.Type != "reorder" || !slices.Equal(second.Order, []int64{7, 3}) || second.Reason != "unknown_id" || second.Dropped != 1 {
		t.Fatalf("unexpected second op: %+v", second)
	}
}

func TestGetMissingBatchReturnsNotFound(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenJournal(t, cfg)

	_, err := store.Get(context.Background(), "missing")
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRecentOrdersNewestFirstAndFiltersLane(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenJournal(t, cfg)
	ctx := context.Background()

	for i, lane := range []string{"fast", "slow", "fast"} {
		if err := store.Record(ctx, sampleBatch(fmt.Sprintf("b%d", i), lane)); err != nil {
			t.Fatalf("Record %d failed: %v", i, err)
		}
	}

	all, err := store.Recent(ctx, "", 10)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	ids := make([]string, 0, len(all))
	for _, batch := range all {
		if len(batch.Operations) != 0 {
			t.Fatalf("Recent should not load operations: %+v", batch)
		}
		ids = append(ids, batch.ID)
	}
	if !slices.Equal(ids, []string{"b2", "b1", "b0"}) {
		t.Fatalf("unexpected order: %v", ids)
	}

	fast, err := store.Recent(ctx, "fast", 1)
	if err != nil {
		t.Fatalf("Recent fast failed: %v", err)
	}
	if len(fast) != 1 || fast[0].ID != "b2" {
		t.Fatalf("unexpected fast batches: %+v", fast)
	}
}

func TestRecordPrunesBeyondMaxBatches(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")
	store, err := journal.OpenPath(path, journal.Options{MaxBatches: 3})
	if err != nil {
		t.Fatalf("OpenPath failed: %v", err)
	}
	defer store.Close()
	ctx := context.Background()

	for i := range 5 {
		if err := store.Record(ctx, sampleBatch(fmt.Sprintf("b%d", i), "slow")); err != nil {
			t.Fatalf("Record %d failed: %v", i, err)
		}
	}

	count, err := store.Count(ctx)
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 3 {
		t.Fatalf("expected 3 retained batches, got %d", count)
	}
	if _, err := store.Get(ctx, "b1"); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected b1 pruned, got %v", err)
	}
	got, err := store.Get(ctx, "b4")
	if err != nil {
		t.Fatalf("Get newest failed: %v", err)
	}
	if len(got.Operations) != 2 {
		t.Fatalf("expected newest batch operations kept, got %d", len(got.Operations))
	}
}

func TestOpenResetsExistingJournal(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	ctx := context.Background()

	first, err := journal.Open(cfg)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if err := first.Record(ctx, sampleBatch("stale", "fast")); err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	second := testsupport.MustOpenJournal(t, cfg)
	count, err := second.Count(ctx)
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected fresh journal, got %d batches", count)
	}
	if second.Path() != cfg.JournalPath() {
		t.Fatalf("path = %q, want %q", second.Path(), cfg.JournalPath())
	}
}

func TestOpenPathKeepsJournalWithoutReset(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")
	ctx := context.Background()

	first, err := journal.OpenPath(path, journal.Options{})
	if err != nil {
		t.Fatalf("OpenPath failed: %v", err)
	}
	if err := first.Record(ctx, sampleBatch("kept", "slow")); err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	first.Close()

	second, err := journal.OpenPath(path, journal.Options{})
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer second.Close()
	if _, err := second.Get(ctx, "kept"); err != nil {
		t.Fatalf("expected batch to survive reopen: %v", err)
	}
}

func TestOpenPathRejectsForeignSchemaVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")
	store, err := journal.OpenPath(path, journal.Options{})
	if err != nil {
		t.Fatalf("OpenPath failed: %v", err)
	}
	if err := store.SetSchemaVersionForTest(99); err != nil {
		t.Fatalf("set version: %v", err)
	}
	store.Close()

	if _, err := journal.OpenPath(path, journal.Options{}); !errors.Is(err, journal.ErrSchemaMismatch) {
		t.Fatalf("expected ErrSchemaMismatch, got %v", err)
	}

	reset, err := journal.OpenPath(path, journal.Options{Reset: true})
	if err != nil {
		t.Fatalf("reset open failed: %v", err)
	}
	reset.Close()
}
