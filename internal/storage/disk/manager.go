// Package disk is the block device (L0) and the disk scheduler (L1):
// the two layers beneath the buffer pool. Manager talks to a single
// backing file with fixed-size pages; Scheduler serializes read/write
// requests onto one background worker so the rest of the core never
// calls into the file directly.
package disk

import (
	"fmt"
	"os"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/arrayql/latticedb/internal/dbutil"
)

// Manager is the block device: fixed-size page read/write on a file,
// plus a size accessor used for bounds-checking reads. It has no
// notion of pinning, dirtiness, or caching — that is the buffer pool's
// job two layers up.
type Manager struct {
	mu   sync.Mutex
	file *os.File
	log  logrus.FieldLogger
}

// NewManager opens (creating if necessary) the backing file at path.
func NewManager(path string, log logrus.FieldLogger) (*Manager, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o666)
	if err != nil {
		return nil, fmt.Errorf("disk: open %s: %w", path, err)
	}
	return &Manager{file: f, log: log.WithField("component", "disk")}, nil
}

// ReadPage reads exactly dbutil.PageSize bytes for id into dst. Reading
// a page beyond the current file length zero-fills dst rather than
// failing: a page allocated by NewPage but never flushed must read
// back as the zeroed bytes the buffer pool handed the caller.
func (m *Manager) ReadPage(id dbutil.PageID, dst []byte) error {
	if len(dst) != dbutil.PageSize {
		return fmt.Errorf("disk: ReadPage buffer must be %d bytes, got %d", dbutil.PageSize, len(dst))
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	offset := int64(id) * dbutil.PageSize
	n, err := m.file.ReadAt(dst, offset)
	if err != nil {
		if n == 0 {
			for i := range dst {
				dst[i] = 0
			}
			return nil
		}
		m.log.WithError(err).WithField("page_id", id).Error("short read")
		for i := n; i < len(dst); i++ {
			dst[i] = 0
		}
		return nil
	}
	return nil
}

// WritePage writes exactly dbutil.PageSize bytes from src for id,
// growing the file as needed.
func (m *Manager) WritePage(id dbutil.PageID, src []byte) error {
	if len(src) != dbutil.PageSize {
		return fmt.Errorf("disk: WritePage buffer must be %d bytes, got %d", dbutil.PageSize, len(src))
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	offset := int64(id) * dbutil.PageSize
	if _, err := m.file.WriteAt(src, offset); err != nil {
		m.log.WithError(err).WithField("page_id", id).Error("write failed")
		return fmt.Errorf("disk: write page %d: %w", id, err)
	}
	return nil
}

// Size returns the current length of the backing file, used by higher
// layers to bounds-check reads against pages that were never written.
func (m *Manager) Size() (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	info, err := m.file.Stat()
	if err != nil {
		return 0, fmt.Errorf("disk: stat: %w", err)
	}
	return info.Size(), nil
}

// Close flushes and releases the backing file.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.file == nil {
		return nil
	}
	syncErr := m.file.Sync()
	closeErr := m.file.Close()
	m.file = nil
	if syncErr != nil {
		return fmt.Errorf("disk: sync: %w", syncErr)
	}
	if closeErr != nil {
		return fmt.Errorf("disk: close: %w", closeErr)
	}
	return nil
}
