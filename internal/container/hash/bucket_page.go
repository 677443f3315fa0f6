package hash

import (
	"encoding/binary"

	"github.com/arrayql/latticedb/internal/dbutil"
)

const (
	bucketOffSize    = 0
	bucketOffMaxSize = 4
	bucketOffEntries = 8
)

// BucketPage is a thin, typed view over a page guard's raw bytes: a
// size, a max-size, and a packed (K, V) array up to max-size entries.
// Keys are unique within a bucket.
type BucketPage[K comparable, V any] struct {
	buf       []byte
	keyCodec  Codec[K]
	valCodec  Codec[V]
	entrySize int
}

// WrapBucketPage views buf as a BucketPage using the given key/value codecs.
func WrapBucketPage[K comparable, V any](buf []byte, keyCodec Codec[K], valCodec Codec[V]) *BucketPage[K, V] {
	return &BucketPage[K, V]{
		buf:       buf,
		keyCodec:  keyCodec,
		valCodec:  valCodec,
		entrySize: keyCodec.Size + valCodec.Size,
	}
}

// MaxEntriesFor returns how many (K, V) entries fit in one page given
// the two codecs' fixed widths, so bucket capacity is chosen to fit
// the page exactly.
func MaxEntriesFor[K comparable, V any](keyCodec Codec[K], valCodec Codec[V], pageSize int) uint32 {
	entrySize := keyCodec.Size + valCodec.Size
	return uint32((pageSize - bucketOffEntries) / entrySize)
}

// Init resets the bucket to empty with capacity maxSize.
func (b *BucketPage[K, V]) Init(maxSize uint32) {
	binary.LittleEndian.PutUint32(b.buf[bucketOffSize:], 0)
	binary.LittleEndian.PutUint32(b.buf[bucketOffMaxSize:], maxSize)
}

func (b *BucketPage[K, V]) Size() uint32 {
	return binary.LittleEndian.Uint32(b.buf[bucketOffSize:])
}

func (b *BucketPage[K, V]) setSize(v uint32) {
	binary.LittleEndian.PutUint32(b.buf[bucketOffSize:], v)
}

func (b *BucketPage[K, V]) MaxSize() uint32 {
	return binary.LittleEndian.Uint32(b.buf[bucketOffMaxSize:])
}

func (b *BucketPage[K, V]) IsFull() bool { return b.Size() == b.MaxSize() }

func (b *BucketPage[K, V]) IsEmpty() bool { return b.Size() == 0 }

func (b *BucketPage[K, V]) entryOffset(idx uint32) int {
	return bucketOffEntries + int(idx)*b.entrySize
}

// KeyAt returns the key stored at idx, with idx < Size.
func (b *BucketPage[K, V]) KeyAt(idx uint32) K {
	off := b.entryOffset(idx)
	return b.keyCodec.Get(b.buf[off : off+b.keyCodec.Size])
}

// ValueAt returns the value stored at idx, with idx < Size.
func (b *BucketPage[K, V]) ValueAt(idx uint32) V {
	off := b.entryOffset(idx) + b.keyCodec.Size
	return b.valCodec.Get(b.buf[off : off+b.valCodec.Size])
}

// EntryAt returns the (key, value) pair stored at idx.
func (b *BucketPage[K, V]) EntryAt(idx uint32) (K, V) {
	return b.KeyAt(idx), b.ValueAt(idx)
}

func (b *BucketPage[K, V]) putEntryAt(idx uint32, key K, value V) {
	off := b.entryOffset(idx)
	b.keyCodec.Put(b.buf[off:off+b.keyCodec.Size], key)
	b.valCodec.Put(b.buf[off+b.keyCodec.Size:off+b.entrySize], value)
}

// Lookup scans linearly for key using equal, returning the first match.
func (b *BucketPage[K, V]) Lookup(key K, equal func(K, K) bool) (V, bool) {
	n := b.Size()
	for i := uint32(0); i < n; i++ {
		k := b.KeyAt(i)
		if equal(key, k) {
			return b.ValueAt(i), true
		}
	}
	var zero V
	return zero, false
}

// Insert appends (key, value) at index Size and increments Size.
// Returns dbutil.ErrBucketFull if the bucket has no room, or
// dbutil.ErrKeyExists if key is already present.
func (b *BucketPage[K, V]) Insert(key K, value V, equal func(K, K) bool) error {
	if b.IsFull() {
		return dbutil.ErrBucketFull
	}
	n := b.Size()
	for i := uint32(0); i < n; i++ {
		if equal(key, b.KeyAt(i)) {
			return dbutil.ErrKeyExists
		}
	}
	b.putEntryAt(n, key, value)
	b.setSize(n + 1)
	return nil
}

// Remove scans linearly for key; on a match it swaps that entry with
// the last live entry and decrements Size.
func (b *BucketPage[K, V]) Remove(key K, equal func(K, K) bool) bool {
	n := b.Size()
	for i := uint32(0); i < n; i++ {
		if equal(key, b.KeyAt(i)) {
			b.RemoveAt(i)
			return true
		}
	}
	return false
}

// RemoveAt swaps the entry at idx with the last live entry and
// decrements Size, avoiding a shift of every entry after idx.
func (b *BucketPage[K, V]) RemoveAt(idx uint32) {
	last := b.Size() - 1
	if idx != last {
		k, v := b.EntryAt(last)
		b.putEntryAt(idx, k, v)
	}
	b.setSize(last)
}
