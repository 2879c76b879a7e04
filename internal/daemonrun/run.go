package daemonrun

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"picker/internal/config"
	"picker/internal/daemon"
	"picker/internal/ipc"
	"picker/internal/items"
	"picker/internal/journal"
	"picker/internal/logging"
	"picker/internal/preflight"
	"picker/internal/workflow"
)

// Options configures daemon process runtime behavior.
type Options struct {
	// LogLevel overrides logging.level from the config file.
	LogLevel string
}

// Run starts the picker daemon and blocks until a signal, the context, or an
// IPC shutdown request ends it. Pending operations are discarded on exit.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}

	signalCtx, stopSignals := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer stopSignals()
	runCtx, shutdown := context.WithCancel(signalCtx)
	defer shutdown()

	runID := time.Now().UTC().Format("20060102T150405.000Z")
	logPath := filepath.Join(cfg.Paths.LogDir, fmt.Sprintf("pickerd-%s.log", runID))
	logHub := logging.NewStreamHub(4096)

	logCfg := *cfg
	if level := strings.TrimSpace(opts.LogLevel); level != "" {
		logCfg.Logging.Level = level
	}
	logger, err := logging.NewFromConfig(&logCfg, logPath, logHub)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	if err := ensureCurrentLogPointer(cfg.Paths.LogDir, logPath); err != nil {
		fmt.Fprintf(os.Stderr, "warn: unable to update pickerd.log link: %v\n", err)
	}
	logging.PruneRunLogs(logger, cfg.Paths.LogDir, logging.RunLogPattern, cfg.Logging.RetentionDays, logPath)
	logPreflight(runCtx, logger, cfg)

	pidPath := cfg.PIDPath()
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	var (
		store    *journal.Store
		recorder workflow.BatchRecorder
	)
	if cfg.Journal.Enabled {
		store, err = journal.Open(cfg)
		if err != nil {
			logging.ErrorWithContext(logger, "open batch journal", "journal_open_failed",
				logging.Error(err),
				logging.String("journal_path", cfg.JournalPath()),
				logging.String(logging.FieldErrorHint, "check state_dir permissions or set journal.enabled = false"),
			)
			return err
		}
		recorder = store
	}

	universe := items.New(cfg.Items.InitialSize)
	manager := workflow.NewManager(cfg, universe, recorder, logger)

	d, err := daemon.New(cfg, manager, store, logger,
		daemon.WithLogStream(logHub),
		daemon.WithLogPath(logPath),
	)
	if err != nil {
		_ = store.Close()
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()

	if err := d.Start(runCtx); err != nil {
		logging.ErrorWithContext(logger, "daemon start failed", "daemon_start_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check api_bind and whether another daemon holds the lock"),
			logging.String(logging.FieldImpact, "no operations will be accepted"),
		)
		return err
	}

	ipcServer, err := ipc.NewServer(runCtx, cfg.Paths.SocketPath, d, logger, ipc.WithShutdown(shutdown))
	if err != nil {
		return fmt.Errorf("start IPC server: %w", err)
	}
	defer ipcServer.Close()
	ipcServer.Serve()

	<-runCtx.Done()
	logger.Info("picker daemon shutting down",
		logging.String(logging.FieldEventType, "daemon_shutdown"),
		logging.Bool("signal", signalCtx.Err() != nil),
	)
	return nil
}

func logPreflight(ctx context.Context, logger *slog.Logger, cfg *config.Config) {
	results := preflight.RunAll(ctx, cfg)
	for _, failed := range preflight.Failed(results) {
		logging.WarnWithContext(logger, "preflight check failed", "preflight_failed",
			logging.String("check", failed.Name),
			logging.String(logging.FieldReason, failed.Detail),
			logging.String(logging.FieldErrorHint, "fix the reported path or address in the config file"),
		)
	}
	logger.Debug("preflight complete",
		logging.Int("checks", len(results)),
		logging.Int("failed", len(preflight.Failed(results))),
	)
}

func ensureCurrentLogPointer(logDir, target string) error {
	if logDir == "" || target == "" {
		return nil
	}
	current := filepath.Join(logDir, "pickerd.log")
	if err := os.Remove(current); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove existing log pointer: %w", err)
	}
	if err := os.Symlink(target, current); err == nil {
		return nil
	}
	if err := os.Link(target, current); err != nil {
		return fmt.Errorf("link log pointer: %w", err)
	}
	return nil
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}
