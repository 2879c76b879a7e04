package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"picker/internal/api"
	"picker/internal/config"
	"picker/internal/journal"
	"picker/internal/logging"
	"picker/internal/preflight"
	"picker/internal/queue"
	"picker/internal/services"
	"picker/internal/workflow"
)

// Daemon owns the workflow manager and enforces single-instance execution.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	workflow *workflow.Manager
	journal  *journal.Store
	items    *api.ItemService
	logHub   *logging.StreamHub
	logPath  string

	lockPath string
	lock     *flock.Flock

	mu        sync.Mutex
	running   atomic.Bool
	startedAt time.Time
	cancel    context.CancelFunc
	api       *apiServer
}

// Option configures optional daemon behavior.
type Option func(*Daemon)

// WithLogStream exposes the in-memory log hub through the API.
func WithLogStream(hub *logging.StreamHub) Option {
	return func(d *Daemon) {
		d.logHub = hub
	}
}

// WithLogPath records the current run's log file for status output.
func WithLogPath(path string) Option {
	return func(d *Daemon) {
		d.logPath = path
	}
}

// Status represents daemon runtime information.
type Status struct {
	Running        bool
	PID            int
	StartedAt      time.Time
	APIAddress     string
	Workflow       workflow.StatusSummary
	JournalPath    string
	JournalEnabled bool
	LockFilePath   string
	LogPath        string
	Directories    []preflight.Result
}

// New constructs a daemon. store may be nil when the journal is disabled.
func New(cfg *config.Config, mgr *workflow.Manager, store *journal.Store, logger *slog.Logger, opts ...Option) (*Daemon, error) {
	if cfg == nil || mgr == nil {
		return nil, errors.New("daemon requires config and workflow manager")
	}
	lockPath := cfg.LockPath()
	d := &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		workflow: mgr,
		journal:  store,
		items:    api.NewItemService(mgr.Store(), mgr, cfg.Items),
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Start acquires the daemon lock, launches the workflow, and starts the API
// server.
func (d *Daemon) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another picker daemon instance is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	if err := d.workflow.Start(runCtx); err != nil {
		_ = d.lock.Unlock()
		cancel()
		return fmt.Errorf("start workflow: %w", err)
	}

	srv := newAPIServer(d.cfg, d, d.logger)
	if err := srv.start(runCtx); err != nil {
		d.workflow.Stop()
		_ = d.lock.Unlock()
		cancel()
		return err
	}

	d.cancel = cancel
	d.api = srv
	d.startedAt = time.Now()
	d.running.Store(true)
	d.logger.Info("picker daemon started",
		logging.String("lock_path", d.lockPath),
		logging.String("api_address", srv.address()),
		logging.Int("universe", d.workflow.Store().Stats().Universe),
	)
	return nil
}

// Stop shuts down the API, stops the workflow (discarding pending
// operations), and releases the daemon lock.
func (d *Daemon) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.running.Load() {
		return
	}

	d.api.stop()
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.workflow.Stop()
	if err := d.lock.Unlock(); err != nil {
		logging.WarnWithContext(d.logger, "failed to release daemon lock", "lock_release_failed",
			logging.Error(err),
			logging.String("lock_path", d.lockPath),
			logging.String(logging.FieldErrorHint, "remove the lock file if no daemon is running"),
			logging.String(logging.FieldImpact, "next start may report another instance"),
		)
	}
	d.running.Store(false)
	d.logger.Info("picker daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.journal != nil {
		return d.journal.Close()
	}
	return nil
}

// Config returns the daemon configuration.
func (d *Daemon) Config() *config.Config {
	return d.cfg
}

// Items returns the validated item service shared by HTTP and IPC.
func (d *Daemon) Items() *api.ItemService {
	return d.items
}

// Flush applies lane's pending operations immediately.
func (d *Daemon) Flush(ctx context.Context, lane queue.Lane) int {
	return d.workflow.Flush(ctx, lane)
}

// Feed returns the batch event feed.
func (d *Daemon) Feed() *workflow.Feed {
	return d.workflow.Feed()
}

// Batches returns recent journaled batches, newest first.
func (d *Daemon) Batches(ctx context.Context, lane string, limit int) ([]journal.Batch, error) {
	if d.journal == nil {
		return nil, services.Wrap(services.ErrUnavailable, "daemon", "list batches", "journal disabled", nil)
	}
	return d.journal.Recent(ctx, lane, limit)
}

// Batch returns one journaled batch with its operations.
func (d *Daemon) Batch(ctx context.Context, id string) (*journal.Batch, error) {
	if d.journal == nil {
		return nil, services.Wrap(services.ErrUnavailable, "daemon", "get batch", "journal disabled", nil)
	}
	return d.journal.Get(ctx, id)
}

// LogStream returns the in-memory log hub, if any.
func (d *Daemon) LogStream() *logging.StreamHub {
	return d.logHub
}

// LogPath returns the path to the current run's log file.
func (d *Daemon) LogPath() string {
	return d.logPath
}

// APIAddress returns the address the HTTP API listens on, or "" when stopped.
func (d *Daemon) APIAddress() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.api.address()
}

// Status returns the current daemon status.
func (d *Daemon) Status(context.Context) Status {
	d.mu.Lock()
	startedAt := d.startedAt
	address := d.api.address()
	d.mu.Unlock()

	status := Status{
		Running:        d.running.Load(),
		PID:            os.Getpid(),
		StartedAt:      startedAt,
		APIAddress:     address,
		Workflow:       d.workflow.Status(),
		JournalEnabled: d.journal != nil,
		LockFilePath:   d.lockPath,
		LogPath:        d.logPath,
		Directories:    preflight.Directories(d.cfg),
	}
	if d.journal != nil {
		status.JournalPath = d.journal.Path()
	}
	return status
}

// StatusDTO converts Status into its wire form.
func StatusDTO(status Status) api.DaemonStatus {
	dirs := make([]api.DirectoryStatus, 0, len(status.Directories))
	for _, r := range status.Directories {
		dirs = append(dirs, api.DirectoryStatus{Name: r.Name, Ready: r.Passed, Detail: r.Detail})
	}
	payload := api.DaemonStatus{
		Running:        status.Running,
		PID:            status.PID,
		APIBind:        status.APIAddress,
		JournalPath:    status.JournalPath,
		JournalEnabled: status.JournalEnabled,
		LockFilePath:   status.LockFilePath,
		LogPath:        status.LogPath,
		Workflow:       api.FromStatusSummary(status.Workflow),
		Directories:    dirs,
	}
	if !status.StartedAt.IsZero() {
		payload.StartedAt = status.StartedAt.UTC().Format(time.RFC3339)
	}
	return payload
}

// DebugSnapshot captures daemon internals for diagnostics.
type DebugSnapshot struct {
	Status  Status
	Pending map[queue.Lane][]queue.Operation
	Config  config.Config
}

// DebugSnapshot returns the current status, buffered operations and
// effective configuration.
func (d *Daemon) DebugSnapshot(ctx context.Context) DebugSnapshot {
	pending := make(map[queue.Lane][]queue.Operation, 2)
	for _, lane := range queue.Lanes() {
		pending[lane] = d.workflow.PendingOperations(lane)
	}
	return DebugSnapshot{
		Status:  d.Status(ctx),
		Pending: pending,
		Config:  *d.cfg,
	}
}
