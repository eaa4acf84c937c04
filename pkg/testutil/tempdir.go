package testutil

import (
	"os"
	"testing"
)

// TempDir creates a temp directory with the given pattern and removes it
// when the test finishes. Unlike t.TempDir, the pattern makes leftover
// directories identifiable when a test is killed mid-run.
func TempDir(t *testing.T, pattern string) string {
	t.Helper()

	dir, err := os.MkdirTemp("", pattern)
	if err != nil {
		t.Fatalf("failed to create temp directory: %v", err)
	}
	t.Cleanup(func() {
		os.RemoveAll(dir)
	})
	return dir
}
