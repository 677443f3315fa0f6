package hash

import (
	"encoding/binary"

	"github.com/arrayql/latticedb/internal/dbutil"
)

// headerDirectorySlots is the fixed array width baked into the on-disk
// layout (512 entries * 4 bytes = 2048 bytes).
const headerDirectorySlots = 512

const (
	headerOffMaxDepth     = 0
	headerOffDirectoryIDs = 4
	headerSize            = headerOffDirectoryIDs + headerDirectorySlots*4
)

// HeaderPage is a thin, typed view over a page guard's raw bytes: a
// max-depth and an array of directory page identifiers. Unused slots
// hold dbutil.InvalidPageID.
type HeaderPage struct {
	buf []byte
}

// WrapHeaderPage views buf (which must be at least headerSize bytes,
// i.e. one full page) as a HeaderPage.
func WrapHeaderPage(buf []byte) *HeaderPage {
	return &HeaderPage{buf: buf}
}

// Init sets max-depth and fills every directory-id slot with
// dbutil.InvalidPageID, so an unused slot is distinguishable from one
// that holds page 0.
func (h *HeaderPage) Init(maxDepth uint32) {
	binary.LittleEndian.PutUint32(h.buf[headerOffMaxDepth:], maxDepth)
	for i := 0; i < headerDirectorySlots; i++ {
		h.SetDirectoryPageID(uint32(i), dbutil.InvalidPageID)
	}
}

// MaxDepth returns the number of high-order hash bits this header uses
// to select a directory slot.
func (h *HeaderPage) MaxDepth() uint32 {
	return binary.LittleEndian.Uint32(h.buf[headerOffMaxDepth:])
}

// MaxSize is the number of directory slots, 2^MaxDepth.
func (h *HeaderPage) MaxSize() uint32 {
	return 1 << h.MaxDepth()
}

// HashToDirectoryIndex selects a header slot from the high MaxDepth
// bits of hash: HashToDirectoryIndex(h) = h >> (32 - MaxDepth), or 0 if
// MaxDepth is 0.
func (h *HeaderPage) HashToDirectoryIndex(hashVal uint32) uint32 {
	maxDepth := h.MaxDepth()
	if maxDepth == 0 {
		return 0
	}
	return hashVal >> (32 - maxDepth)
}

func (h *HeaderPage) slotOffset(idx uint32) int {
	return headerOffDirectoryIDs + int(idx)*4
}

// DirectoryPageID returns the directory page mapped at idx, or
// dbutil.InvalidPageID if none has been allocated yet.
func (h *HeaderPage) DirectoryPageID(idx uint32) dbutil.PageID {
	off := h.slotOffset(idx)
	return dbutil.PageID(int32(binary.LittleEndian.Uint32(h.buf[off:])))
}

// SetDirectoryPageID records the directory page id at idx.
func (h *HeaderPage) SetDirectoryPageID(idx uint32, id dbutil.PageID) {
	off := h.slotOffset(idx)
	binary.LittleEndian.PutUint32(h.buf[off:], uint32(int32(id)))
}
