// Package dbutil holds the small cross-cutting types and configuration
// shared by every layer of the storage core: page identifiers, frame
// identifiers, the build-time page size, and the knobs used to construct
// a buffer pool or hash table.
package dbutil

// PageID identifies a page durably allocated by the buffer pool. It is
// the width used by the on-disk directory/header pointer arrays, so it
// stays a 4-byte signed integer (512 entries * 4 bytes = 2048 bytes,
// matching the header and directory layouts).
type PageID int32

// InvalidPageID is the sentinel meaning "no page".
const InvalidPageID PageID = -1

// FrameID identifies a slot in the buffer pool, in [0, PoolSize).
type FrameID int

// PageSize is the fixed size, in bytes, of every page and frame buffer.
const PageSize = 4096

// Options collects every configuration knob named in the storage core:
// pool size, LRU-K's K, and the extendible hash table's depth/capacity
// limits. PageSize is a build-time constant, not part of Options.
type Options struct {
	PoolSize          int
	ReplacerK         int
	HeaderMaxDepth    uint32
	DirectoryMaxDepth uint32
	BucketMaxSize     uint32
}

// DefaultOptions returns sane defaults for a small instructional
// deployment: a modest pool, LRU-2, and a directory that can grow to
// 512 buckets.
func DefaultOptions() Options {
	return Options{
		PoolSize:          64,
		ReplacerK:         2,
		HeaderMaxDepth:    9,
		DirectoryMaxDepth: 9,
		BucketMaxSize:     0, // 0 means "derive from codec sizes"
	}
}
