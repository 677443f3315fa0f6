package dbutil

import (
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"testing"
)

// CreateTempFile returns a path inside a fresh per-test temp directory
// and a cleanup closure, mirroring the helper the rest of the test suite
// already relies on.
func CreateTempFile(t *testing.T) (string, func()) {
	t.Helper()
	tempDir := t.TempDir()
	tempFile := filepath.Join(tempDir, fmt.Sprintf("latticedb-test-%d.dat", rand.Intn(1_000_000)))
	return tempFile, func() {
		os.Remove(tempFile)
	}
}
