package testsupport

import (
	"testing"

	"picker/internal/config"
	"picker/internal/items"
	"picker/internal/journal"
)

// MustOpenJournal opens a journal.Store for tests and registers cleanup.
func MustOpenJournal(t testing.TB, cfg *config.Config) *journal.Store {
	t.Helper()

	store, err := journal.Open(cfg)
	if err != nil {
		t.Fatalf("journal.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// NewStore returns an item store seeded from the config's initial size.
func NewStore(t testing.TB, cfg *config.Config) *items.Store {
	t.Helper()

	return items.New(cfg.Items.InitialSize)
}
