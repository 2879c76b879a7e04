package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"picker/internal/logging"
)

// Handler applies one flushed batch. It runs outside the queue lock.
type Handler func(ctx context.Context, batch Batch)

// Ticker is the subset of time.Ticker the queue depends on.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// TickerFunc builds a Ticker firing every d.
type TickerFunc func(d time.Duration) Ticker

// Observer receives enqueue notifications. Implementations must not call
// back into the queue.
type Observer interface {
	OperationEnqueued(op Operation, replaced bool)
}

// Options configures a Queue.
type Options struct {
	FastInterval time.Duration
	SlowInterval time.Duration
	// NewTicker overrides ticker construction, mostly for tests.
	NewTicker TickerFunc
	// Now overrides the clock used for enqueue and flush timestamps.
	Now      func() time.Time
	Logger   *slog.Logger
	Observer Observer
}

// Queue buffers operations per lane and flushes each lane on its own ticker.
type Queue struct {
	fastInterval time.Duration
	slowInterval time.Duration
	newTicker    TickerFunc
	now          func() time.Time
	logger       *slog.Logger
	observer     Observer

	mu       sync.Mutex
	buffers  map[Lane]*buffer
	handlers map[Lane]Handler
	started  bool
	stopped  bool
	cancel   context.CancelFunc

	laneMu   map[Lane]*sync.Mutex
	loops    sync.WaitGroup
	inflight sync.WaitGroup
}

// PendingCounts reports buffered key counts per lane.
type PendingCounts struct {
	Fast int `json:"fast"`
	Slow int `json:"slow"`
}

// Total returns the number of buffered keys across both lanes.
func (p PendingCounts) Total() int {
	return p.Fast + p.Slow
}

// New constructs a stopped queue. Register handlers with Handle, then Start.
func New(opts Options) *Queue {
	if opts.NewTicker == nil {
		opts.NewTicker = newSystemTicker
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Queue{
		fastInterval: opts.FastInterval,
		slowInterval: opts.SlowInterval,
		newTicker:    opts.NewTicker,
		now:          opts.Now,
		logger:       logging.NewComponentLogger(opts.Logger, "queue"),
		observer:     opts.Observer,
		buffers: map[Lane]*buffer{
			LaneFast: newBuffer(),
			LaneSlow: newBuffer(),
		},
		handlers: make(map[Lane]Handler, 2),
		laneMu: map[Lane]*sync.Mutex{
			LaneFast: {},
			LaneSlow: {},
		},
	}
}

// Handle registers the flush handler for a lane, replacing any earlier one.
func (q *Queue) Handle(lane Lane, handler Handler) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.handlers[lane] = handler
}

// Start launches one flush loop per lane.
func (q *Queue) Start(ctx context.Context) error {
	q.mu.Lock()
	if q.stopped {
		q.mu.Unlock()
		return errors.New("queue already stopped")
	}
	if q.started {
		q.mu.Unlock()
		return errors.New("queue already running")
	}
	intervals := map[Lane]time.Duration{
		LaneFast: q.fastInterval,
		LaneSlow: q.slowInterval,
	}
	for _, lane := range Lanes() {
		if intervals[lane] <= 0 {
			q.mu.Unlock()
			return fmt.Errorf("%s lane interval must be positive", lane)
		}
	}
	runCtx, cancel := context.WithCancel(ctx)
	q.cancel = cancel
	q.started = true
	q.loops.Add(len(intervals))
	q.mu.Unlock()

	for _, lane := range Lanes() {
		ticker := q.newTicker(intervals[lane])
		go q.runLane(runCtx, lane, ticker)
	}

	q.logger.Info("queue started",
		logging.Duration("fast_interval", q.fastInterval),
		logging.Duration("slow_interval", q.slowInterval),
	)
	return nil
}

// Enqueue buffers op in its lane. Operations sharing a key replace each
// other. After Stop the operation is dropped.
func (q *Queue) Enqueue(op Operation) {
	if op.EnqueuedAt.IsZero() {
		op.EnqueuedAt = q.now()
	}
	lane := op.Lane()

	q.mu.Lock()
	if q.stopped {
		q.mu.Unlock()
		q.logger.Debug("operation dropped after stop",
			logging.Args(logging.OpType(string(op.Type)), logging.ItemID(op.ID))...)
		return
	}
	replaced := q.buffers[lane].put(op)
	q.mu.Unlock()

	if q.observer != nil {
		q.observer.OperationEnqueued(op, replaced)
	}
}

// Pending reports the number of buffered keys per lane.
func (q *Queue) Pending() PendingCounts {
	q.mu.Lock()
	defer q.mu.Unlock()
	return PendingCounts{
		Fast: q.buffers[LaneFast].len(),
		Slow: q.buffers[LaneSlow].len(),
	}
}

// PendingOperations returns a copy of lane's buffered operations in flush
// order.
func (q *Queue) PendingOperations(lane Lane) []Operation {
	q.mu.Lock()
	defer q.mu.Unlock()
	buf, ok := q.buffers[lane]
	if !ok {
		return nil
	}
	return buf.operations()
}

// Flush hands the current contents of lane to its handler immediately and
// returns the batch size. Empty lanes and stopped queues flush nothing.
func (q *Queue) Flush(ctx context.Context, lane Lane) int {
	return q.flush(ctx, lane)
}

// Stop cancels both tickers, waits for any in-flight flush, and discards
// buffered operations. Safe to call more than once. Must not be called from
// a Handler.
func (q *Queue) Stop() {
	q.mu.Lock()
	if q.stopped {
		q.mu.Unlock()
		return
	}
	q.stopped = true
	cancel := q.cancel
	q.cancel = nil
	dropped := PendingCounts{
		Fast: q.buffers[LaneFast].len(),
		Slow: q.buffers[LaneSlow].len(),
	}
	q.buffers[LaneFast] = newBuffer()
	q.buffers[LaneSlow] = newBuffer()
	q.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	q.loops.Wait()
	q.inflight.Wait()

	if dropped.Total() > 0 {
		q.logger.Info("queue stopped with pending operations discarded",
			logging.Int("fast_dropped", dropped.Fast),
			logging.Int("slow_dropped", dropped.Slow),
		)
		return
	}
	q.logger.Info("queue stopped")
}

func (q *Queue) runLane(ctx context.Context, lane Lane, ticker Ticker) {
	defer q.loops.Done()
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C():
			q.flush(ctx, lane)
		}
	}
}

func (q *Queue) flush(ctx context.Context, lane Lane) int {
	laneMu, ok := q.laneMu[lane]
	if !ok {
		return 0
	}
	laneMu.Lock()
	defer laneMu.Unlock()

	q.mu.Lock()
	if q.stopped {
		q.mu.Unlock()
		return 0
	}
	current := q.buffers[lane]
	if current.len() == 0 {
		q.mu.Unlock()
		return 0
	}
	handler := q.handlers[lane]
	q.buffers[lane] = newBuffer()
	q.inflight.Add(1)
	q.mu.Unlock()
	defer q.inflight.Done()

	batch := Batch{
		Lane:       lane,
		Operations: current.operations(),
		FlushedAt:  q.now(),
	}
	if handler == nil {
		logging.WarnWithContext(q.logger, "no handler registered; batch discarded", "queue_handler_missing",
			logging.Lane(string(lane)),
			logging.Int("batch_size", batch.Len()),
			logging.String(logging.FieldErrorHint, "register a handler before starting the queue"),
			logging.String(logging.FieldImpact, "buffered operations were not applied"),
		)
		return batch.Len()
	}

	// In-flight batches finish even when the run context is cancelled.
	handler(context.WithoutCancel(ctx), batch)
	return batch.Len()
}

type systemTicker struct {
	ticker *time.Ticker
}

func newSystemTicker(d time.Duration) Ticker {
	return systemTicker{ticker: time.NewTicker(d)}
}

func (t systemTicker) C() <-chan time.Time { return t.ticker.C }

func (t systemTicker) Stop() { t.ticker.Stop() }
