package workflow

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"picker/internal/config"
	"picker/internal/items"
	"picker/internal/journal"
	"picker/internal/logging"
	"picker/internal/queue"
)

// BatchRecorder persists applied batches. *journal.Store satisfies it.
type BatchRecorder interface {
	Record(ctx context.Context, batch journal.Batch) error
}

// Manager coordinates the queue, the item store, and batch bookkeeping.
type Manager struct {
	cfg      *config.Config
	store    *items.Store
	recorder BatchRecorder
	logger   *slog.Logger
	queue    *queue.Queue
	feed     *Feed
	now      func() time.Time
	newID    func() string

	mu        sync.RWMutex
	running   bool
	lastBatch map[queue.Lane]BatchEvent
}

// ManagerOption configures optional Manager behavior.
type ManagerOption func(*managerOptions)

type managerOptions struct {
	newTicker queue.TickerFunc
	now       func() time.Time
	newID     func() string
	feed      *Feed
}

// WithTicker overrides the ticker used by both queue lanes.
func WithTicker(fn queue.TickerFunc) ManagerOption {
	return func(o *managerOptions) {
		o.newTicker = fn
	}
}

// WithClock overrides the clock used for batch timestamps.
func WithClock(now func() time.Time) ManagerOption {
	return func(o *managerOptions) {
		o.now = now
	}
}

// WithBatchIDs overrides batch identifier generation.
func WithBatchIDs(fn func() string) ManagerOption {
	return func(o *managerOptions) {
		o.newID = fn
	}
}

// WithFeed shares an existing event feed.
func WithFeed(feed *Feed) ManagerOption {
	return func(o *managerOptions) {
		o.feed = feed
	}
}

// NewManager constructs a manager. recorder may be nil when the journal is
// disabled.
func NewManager(cfg *config.Config, store *items.Store, recorder BatchRecorder, logger *slog.Logger, opts ...ManagerOption) *Manager {
	options := &managerOptions{}
	for _, opt := range opts {
		opt(options)
	}
	if options.now == nil {
		options.now = time.Now
	}
	if options.newID == nil {
		options.newID = uuid.NewString
	}
	if options.feed == nil {
		options.feed = NewFeed(0)
	}
	logger = logging.NewComponentLogger(logger, "workflow")

	m := &Manager{
		cfg:       cfg,
		store:     store,
		recorder:  recorder,
		logger:    logger,
		feed:      options.feed,
		now:       options.now,
		newID:     options.newID,
		lastBatch: make(map[queue.Lane]BatchEvent, 2),
	}
	m.queue = queue.New(queue.Options{
		FastInterval: cfg.FastInterval(),
		SlowInterval: cfg.SlowInterval(),
		NewTicker:    options.newTicker,
		Now:          options.now,
		Logger:       logger,
		Observer:     metricsObserver{},
	})
	m.queue.Handle(queue.LaneFast, m.laneHandler(queue.LaneFast))
	m.queue.Handle(queue.LaneSlow, m.laneHandler(queue.LaneSlow))
	return m
}

// Start begins flushing both lanes.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return errors.New("workflow already running")
	}
	m.running = true
	m.mu.Unlock()

	if err := m.queue.Start(ctx); err != nil {
		m.mu.Lock()
		m.running = false
		m.mu.Unlock()
		return err
	}
	m.publishCounts()
	return nil
}

// Stop halts both lanes, waits for an in-flight batch, and discards anything
// still buffered.
func (m *Manager) Stop() {
	m.mu.Lock()
	m.running = false
	m.mu.Unlock()
	m.queue.Stop()
}

// Enqueue buffers an operation for the next window of its lane.
func (m *Manager) Enqueue(op queue.Operation) {
	m.queue.Enqueue(op)
}

// Flush applies the pending operations of lane immediately and returns how
// many were flushed.
func (m *Manager) Flush(ctx context.Context, lane queue.Lane) int {
	return m.queue.Flush(ctx, lane)
}

// Store exposes the item store for read paths.
func (m *Manager) Store() *items.Store {
	return m.store
}

// Feed exposes the batch event feed.
func (m *Manager) Feed() *Feed {
	return m.feed
}

func (m *Manager) setLastBatch(lane queue.Lane, evt BatchEvent) {
	m.mu.Lock()
	m.lastBatch[lane] = evt
	m.mu.Unlock()
}
