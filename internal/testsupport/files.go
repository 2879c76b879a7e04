package testsupport

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// WriteAgedFile writes content to path and backdates its modification time
// by age. A zero age leaves the file fresh.
func WriteAgedFile(t testing.TB, path, content string, age time.Duration) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	if age <= 0 {
		return
	}
	past := time.Now().Add(-age)
	if err := os.Chtimes(path, past, past); err != nil {
		t.Fatalf("chtimes %s: %v", path, err)
	}
}
