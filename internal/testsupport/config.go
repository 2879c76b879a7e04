package testsupport

import (
	"path/filepath"
	"testing"

	"picker/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults to a small universe and millisecond windows, then applies any
// provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.SocketPath = filepath.Join(base, "state", "picker.sock")
	cfgVal.Paths.APIBind = "127.0.0.1:0"
	cfgVal.Items.InitialSize = 100
	cfgVal.Queue.TimeUnitMillis = 5

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	if err := builder.cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return builder.cfg
}

// WithInitialSize overrides the universe size on the test config.
func WithInitialSize(n int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Items.InitialSize = n
	}
}

// WithTimeUnit overrides the queue window unit in milliseconds.
func WithTimeUnit(ms int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Queue.TimeUnitMillis = ms
	}
}

// WithJournal toggles the batch journal.
func WithJournal(enabled bool) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Journal.Enabled = enabled
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.StateDir)
}
