package queue_test

import (
	"context"
	"reflect"
	"sync"
	"testing"
	"time"

	"picker/internal/queue"
)

type manualTicker struct {
	ch      chan time.Time
	mu      sync.Mutex
	stopped bool
}

func (t *manualTicker) C() <-chan time.Time { return t.ch }

func (t *manualTicker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopped = true
}

type tickerSet struct {
	mu      sync.Mutex
	tickers map[time.Duration]*manualTicker
}

func newTickerSet() *tickerSet {
	return &tickerSet{tickers: make(map[time.Duration]*manualTicker)}
}

func (s *tickerSet) factory(d time.Duration) queue.Ticker {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &manualTicker{ch: make(chan time.Time)}
	s.tickers[d] = t
	return t
}

func (s *tickerSet) tick(t *testing.T, d time.Duration) {
	t.Helper()
	s.mu.Lock()
	ticker := s.tickers[d]
	s.mu.Unlock()
	if ticker == nil {
		t.Fatalf("no ticker registered for %s", d)
	}
	select {
	case ticker.ch <- time.Now():
	case <-time.After(time.Second):
		t.Fatalf("ticker for %s not consumed", d)
	}
}

const (
	fastEvery = time.Second
	slowEvery = 10 * time.Second
)

type batchRecorder struct {
	batches chan queue.Batch
}

func newRecorder() *batchRecorder {
	return &batchRecorder{batches: make(chan queue.Batch, 16)}
}

func (r *batchRecorder) handle(_ context.Context, batch queue.Batch) {
	r.batches <- batch
}

func (r *batchRecorder) next(t *testing.T) queue.Batch {
	t.Helper()
	select {
	case b := <-r.batches:
		return b
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for batch")
		return queue.Batch{}
	}
}

func (r *batchRecorder) expectNone(t *testing.T) {
	t.Helper()
	select {
	case b := <-r.batches:
		t.Fatalf("unexpected batch: %+v", b)
	case <-time.After(20 * time.Millisecond):
	}
}

func startQueue(t *testing.T, opts queue.Options) (*queue.Queue, *tickerSet, *batchRecorder, *batchRecorder) {
	t.Helper()
	tickers := newTickerSet()
	opts.FastInterval = fastEvery
	opts.SlowInterval = slowEvery
	opts.NewTicker = tickers.factory
	q := queue.New(opts)
	fast := newRecorder()
	slow := newRecorder()
	q.Handle(queue.LaneFast, fast.handle)
	q.Handle(queue.LaneSlow, slow.handle)
	if err := q.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(q.Stop)
	return q, tickers, fast, slow
}

func keys(batch queue.Batch) []string {
	out := make([]string, 0, batch.Len())
	for _, op := range batch.Operations {
		out = append(out, op.Key())
	}
	return out
}

func TestOperationKeys(t *testing.T) {
	tests := []struct {
		op   queue.Operation
		key  string
		lane queue.Lane
	}{
		{queue.Operation{Type: queue.OpSelect, ID: 5}, "select:5", queue.LaneFast},
		{queue.Operation{Type: queue.OpDeselect, ID: 5}, "deselect:5", queue.LaneFast},
		{queue.Operation{Type: queue.OpReorder, Order: []int64{3, 1}}, "reorder", queue.LaneFast},
		{queue.Operation{Type: queue.OpReorder, Order: []int64{9}}, "reorder", queue.LaneFast},
		{queue.Operation{Type: queue.OpAdd, ID: 42}, "add:42", queue.LaneSlow},
	}
	for _, tc := range tests {
		if got := tc.op.Key(); got != tc.key {
			t.Fatalf("Key() = %q, want %q", got, tc.key)
		}
		if got := tc.op.Lane(); got != tc.lane {
			t.Fatalf("Lane() for %q = %q, want %q", tc.key, got, tc.lane)
		}
	}
}

func TestEnqueueDeduplicatesSameKey(t *testing.T) {
	q, tickers, fast, _ := startQueue(t, queue.Options{})

	q.Enqueue(queue.Operation{Type: queue.OpSelect, ID: 5})
	q.Enqueue(queue.Operation{Type: queue.OpSelect, ID: 5})
	if got := q.Pending().Fast; got != 1 {
		t.Fatalf("expected 1 pending fast key, got %d", got)
	}

	tickers.tick(t, fastEvery)
	batch := fast.next(t)
	if !reflect.DeepEqual(keys(batch), []string{"select:5"}) {
		t.Fatalf("unexpected batch keys: %v", keys(batch))
	}
}

func TestReplacedKeyKeepsFirstPosition(t *testing.T) {
	q, tickers, fast, _ := startQueue(t, queue.Options{})

	q.Enqueue(queue.Operation{Type: queue.OpSelect, ID: 1, RequestID: "first"})
	q.Enqueue(queue.Operation{Type: queue.OpSelect, ID: 2})
	q.Enqueue(queue.Operation{Type: queue.OpSelect, ID: 1, RequestID: "second"})

	tickers.tick(t, fastEvery)
	batch := fast.next(t)
	if !reflect.DeepEqual(keys(batch), []string{"select:1", "select:2"}) {
		t.Fatalf("unexpected batch order: %v", keys(batch))
	}
	if got := batch.Operations[0].RequestID; got != "second" {
		t.Fatalf("expected latest payload in first slot, got request %q", got)
	}
}

func TestSelectThenDeselectBothSurviveInOrder(t *testing.T) {
	q, tickers, fast, _ := startQueue(t, queue.Options{})

	q.Enqueue(queue.Operation{Type: queue.OpSelect, ID: 5})
	q.Enqueue(queue.Operation{Type: queue.OpDeselect, ID: 5})

	tickers.tick(t, fastEvery)
	batch := fast.next(t)
	if !reflect.DeepEqual(keys(batch), []string{"select:5", "deselect:5"}) {
		t.Fatalf("unexpected batch keys: %v", keys(batch))
	}
}

func TestLatestReorderWins(t *testing.T) {
	q, tickers, fast, _ := startQueue(t, queue.Options{})

	q.Enqueue(queue.Operation{Type: queue.OpReorder, Order: []int64{1, 2}})
	q.Enqueue(queue.Operation{Type: queue.OpReorder, Order: []int64{2, 1}})

	tickers.tick(t, fastEvery)
	batch := fast.next(t)
	if batch.Len() != 1 {
		t.Fatalf("expected single reorder, got %d ops", batch.Len())
	}
	if !reflect.DeepEqual(batch.Operations[0].Order, []int64{2, 1}) {
		t.Fatalf("expected latest order, got %v", batch.Operations[0].Order)
	}
}

func TestLanesFlushIndependently(t *testing.T) {
	q, tickers, fast, slow := startQueue(t, queue.Options{})

	q.Enqueue(queue.Operation{Type: queue.OpAdd, ID: 7})
	q.Enqueue(queue.Operation{Type: queue.OpAdd, ID: 7})
	q.Enqueue(queue.Operation{Type: queue.OpSelect, ID: 3})

	tickers.tick(t, fastEvery)
	fastBatch := fast.next(t)
	if fastBatch.Lane != queue.LaneFast || !reflect.DeepEqual(keys(fastBatch), []string{"select:3"}) {
		t.Fatalf("unexpected fast batch: %+v", fastBatch)
	}
	slow.expectNone(t)
	if got := q.Pending(); got.Slow != 1 || got.Fast != 0 {
		t.Fatalf("unexpected pending counts: %+v", got)
	}

	tickers.tick(t, slowEvery)
	slowBatch := slow.next(t)
	if slowBatch.Lane != queue.LaneSlow || !reflect.DeepEqual(keys(slowBatch), []string{"add:7"}) {
		t.Fatalf("unexpected slow batch: %+v", slowBatch)
	}
}

func TestEmptyLaneDoesNotFlush(t *testing.T) {
	_, tickers, fast, _ := startQueue(t, queue.Options{})

	tickers.tick(t, fastEvery)
	fast.expectNone(t)
}

func TestOperationsDuringHandlerLandInNextWindow(t *testing.T) {
	tickers := newTickerSet()
	q := queue.New(queue.Options{
		FastInterval: fastEvery,
		SlowInterval: slowEvery,
		NewTicker:    tickers.factory,
	})
	entered := make(chan struct{})
	release := make(chan struct{})
	batches := make(chan queue.Batch, 4)
	var once sync.Once
	q.Handle(queue.LaneFast, func(_ context.Context, batch queue.Batch) {
		once.Do(func() {
			close(entered)
			<-release
		})
		batches <- batch
	})
	if err := q.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(q.Stop)

	q.Enqueue(queue.Operation{Type: queue.OpSelect, ID: 1})
	tickers.tick(t, fastEvery)
	<-entered

	q.Enqueue(queue.Operation{Type: queue.OpSelect, ID: 2})
	if got := q.Pending().Fast; got != 1 {
		t.Fatalf("expected new window to hold 1 key, got %d", got)
	}
	close(release)

	first := <-batches
	if !reflect.DeepEqual(keys(first), []string{"select:1"}) {
		t.Fatalf("first batch leaked later operation: %v", keys(first))
	}
	if n := q.Flush(context.Background(), queue.LaneFast); n != 1 {
		t.Fatalf("expected manual flush of 1 op, got %d", n)
	}
	second := <-batches
	if !reflect.DeepEqual(keys(second), []string{"select:2"}) {
		t.Fatalf("unexpected second batch: %v", keys(second))
	}
}

func TestStopDiscardsBufferedAndIsIdempotent(t *testing.T) {
	q, _, fast, slow := startQueue(t, queue.Options{})

	q.Enqueue(queue.Operation{Type: queue.OpSelect, ID: 1})
	q.Enqueue(queue.Operation{Type: queue.OpAdd, ID: 2})
	q.Stop()
	q.Stop()

	if got := q.Pending(); got.Total() != 0 {
		t.Fatalf("expected buffers cleared, got %+v", got)
	}
	q.Enqueue(queue.Operation{Type: queue.OpSelect, ID: 3})
	if got := q.Pending(); got.Total() != 0 {
		t.Fatalf("expected enqueue after stop to be dropped, got %+v", got)
	}
	if n := q.Flush(context.Background(), queue.LaneFast); n != 0 {
		t.Fatalf("expected no flush after stop, got %d", n)
	}
	fast.expectNone(t)
	slow.expectNone(t)
}

func TestStopWaitsForInFlightFlush(t *testing.T) {
	tickers := newTickerSet()
	q := queue.New(queue.Options{
		FastInterval: fastEvery,
		SlowInterval: slowEvery,
		NewTicker:    tickers.factory,
	})
	entered := make(chan struct{})
	release := make(chan struct{})
	var finished bool
	var mu sync.Mutex
	q.Handle(queue.LaneFast, func(ctx context.Context, _ queue.Batch) {
		close(entered)
		<-release
		if ctx.Err() != nil {
			t.Errorf("handler context cancelled mid-flush: %v", ctx.Err())
		}
		mu.Lock()
		finished = true
		mu.Unlock()
	})
	if err := q.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	q.Enqueue(queue.Operation{Type: queue.OpSelect, ID: 1})
	tickers.tick(t, fastEvery)
	<-entered

	stopped := make(chan struct{})
	go func() {
		q.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
		t.Fatal("Stop returned before in-flight flush finished")
	case <-time.After(20 * time.Millisecond):
	}
	close(release)
	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("Stop did not return")
	}
	mu.Lock()
	defer mu.Unlock()
	if !finished {
		t.Fatal("expected handler to complete before Stop returned")
	}
}

func TestStartRejectsNonPositiveIntervals(t *testing.T) {
	q := queue.New(queue.Options{FastInterval: time.Second})
	if err := q.Start(context.Background()); err == nil {
		t.Fatal("expected error for missing slow interval")
	}
}

type countingObserver struct {
	mu       sync.Mutex
	total    int
	replaced int
}

func (o *countingObserver) OperationEnqueued(_ queue.Operation, replaced bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.total++
	if replaced {
		o.replaced++
	}
}

func TestObserverSeesReplacements(t *testing.T) {
	observer := &countingObserver{}
	q, _, _, _ := startQueue(t, queue.Options{Observer: observer})

	q.Enqueue(queue.Operation{Type: queue.OpAdd, ID: 1})
	q.Enqueue(queue.Operation{Type: queue.OpAdd, ID: 1})
	q.Enqueue(queue.Operation{Type: queue.OpAdd, ID: 2})

	observer.mu.Lock()
	defer observer.mu.Unlock()
	if observer.total != 3 || observer.replaced != 1 {
		t.Fatalf("unexpected observer counts: total=%d replaced=%d", observer.total, observer.replaced)
	}
}

func TestEnqueueStampsTime(t *testing.T) {
	fixed := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	q, tickers, fast, _ := startQueue(t, queue.Options{Now: func() time.Time { return fixed }})

	q.Enqueue(queue.Operation{Type: queue.OpSelect, ID: 9})
	tickers.tick(t, fastEvery)
	batch := fast.next(t)
	if !batch.Operations[0].EnqueuedAt.Equal(fixed) || !batch.FlushedAt.Equal(fixed) {
		t.Fatalf("unexpected timestamps: %+v", batch)
	}
}

func TestParseHelpers(t *testing.T) {
	if got, ok := queue.ParseOpType(" Select "); !ok || got != queue.OpSelect {
		t.Fatalf("ParseOpType = %q, %v", got, ok)
	}
	if _, ok := queue.ParseOpType("merge"); ok {
		t.Fatal("expected unknown type to be rejected")
	}
	if got, ok := queue.ParseLane("SLOW"); !ok || got != queue.LaneSlow {
		t.Fatalf("ParseLane = %q, %v", got, ok)
	}
}

func TestPendingOperationsReturnsFlushOrder(t *testing.T) {
	q, _, _, _ := startQueue(t, queue.Options{})

	q.Enqueue(queue.Operation{Type: queue.OpSelect, ID: 1})
	q.Enqueue(queue.Operation{Type: queue.OpDeselect, ID: 2})
	q.Enqueue(queue.Operation{Type: queue.OpSelect, ID: 1})
	q.Enqueue(queue.Operation{Type: queue.OpAdd, ID: 9})

	fast := q.PendingOperations(queue.LaneFast)
	if !reflect.DeepEqual(keys(queue.Batch{Operations: fast}), []string{"deselect:2", "select:1"}) {
		t.Fatalf("unexpected fast pending: %v", fast)
	}
	slow := q.PendingOperations(queue.LaneSlow)
	if len(slow) != 1 || slow[0].ID != 9 {
		t.Fatalf("unexpected slow pending: %v", slow)
	}
}
