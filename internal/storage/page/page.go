// Package page defines the raw, fixed-size byte buffer that is the
// unit of I/O between the disk manager and the buffer pool. The buffer
// carries no metadata at all: pin count, dirty flag, and page
// identifier are frame-level state owned by the buffer pool (see
// internal/storage/buffer), never serialized to disk.
package page

import "github.com/arrayql/latticedb/internal/dbutil"

// Data is one page-sized, in-memory byte buffer. It is always exactly
// dbutil.PageSize bytes; NewData returns a zeroed one.
type Data [dbutil.PageSize]byte

// NewData returns a zero-filled page buffer.
func NewData() *Data {
	return &Data{}
}

// Bytes returns the buffer as a slice for use with encoding/binary or
// the disk manager's ReadPage/WritePage.
func (d *Data) Bytes() []byte {
	return d[:]
}

// Reset zeroes the buffer in place, used when a frame is recycled for
// a freshly allocated page.
func (d *Data) Reset() {
	*d = Data{}
}
