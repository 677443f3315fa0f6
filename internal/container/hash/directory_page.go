package hash

import (
	"encoding/binary"
	"fmt"

	"github.com/arrayql/latticedb/internal/dbutil"
)

// directorySlots is the fixed array width baked into the on-disk
// layout: 512 local depths (1 byte each) and 512 bucket page ids
// (4 bytes each).
const directorySlots = 512

const (
	dirOffMaxDepth    = 0
	dirOffGlobalDepth = 4
	dirOffLocalDepths = 8
	dirOffBucketIDs   = dirOffLocalDepths + directorySlots // 520
	dirSize           = dirOffBucketIDs + directorySlots*4 // 2568
)

// DirectoryPage is a thin, typed view over a page guard's raw bytes:
// max/global depth plus parallel local-depth and bucket-page-id arrays.
type DirectoryPage struct {
	buf []byte
}

// WrapDirectoryPage views buf as a DirectoryPage.
func WrapDirectoryPage(buf []byte) *DirectoryPage {
	return &DirectoryPage{buf: buf}
}

// Init sets max-depth and resets global depth to 0.
func (d *DirectoryPage) Init(maxDepth uint32) {
	binary.LittleEndian.PutUint32(d.buf[dirOffMaxDepth:], maxDepth)
	binary.LittleEndian.PutUint32(d.buf[dirOffGlobalDepth:], 0)
}

func (d *DirectoryPage) MaxDepth() uint32 {
	return binary.LittleEndian.Uint32(d.buf[dirOffMaxDepth:])
}

func (d *DirectoryPage) GlobalDepth() uint32 {
	return binary.LittleEndian.Uint32(d.buf[dirOffGlobalDepth:])
}

func (d *DirectoryPage) setGlobalDepth(v uint32) {
	binary.LittleEndian.PutUint32(d.buf[dirOffGlobalDepth:], v)
}

// Size is the number of in-use directory slots, 2^GlobalDepth.
func (d *DirectoryPage) Size() uint32 { return 1 << d.GlobalDepth() }

// MaxSize is the largest the directory could ever grow to, 2^MaxDepth.
func (d *DirectoryPage) MaxSize() uint32 { return 1 << d.MaxDepth() }

// GlobalDepthMask is (1<<GlobalDepth)-1.
func (d *DirectoryPage) GlobalDepthMask() uint32 { return (1 << d.GlobalDepth()) - 1 }

// LocalDepthMask is (1<<LocalDepth(bucketIdx))-1, read from the
// local-depths array.
func (d *DirectoryPage) LocalDepthMask(bucketIdx uint32) uint32 {
	return (1 << d.LocalDepth(bucketIdx)) - 1
}

// HashToBucketIndex selects a directory slot from the low GlobalDepth
// bits of hash.
func (d *DirectoryPage) HashToBucketIndex(hashVal uint32) uint32 {
	return hashVal & d.GlobalDepthMask()
}

func (d *DirectoryPage) LocalDepth(bucketIdx uint32) uint8 {
	return d.buf[dirOffLocalDepths+int(bucketIdx)]
}

func (d *DirectoryPage) SetLocalDepth(bucketIdx uint32, depth uint8) {
	d.buf[dirOffLocalDepths+int(bucketIdx)] = depth
}

func (d *DirectoryPage) IncrLocalDepth(bucketIdx uint32) {
	d.SetLocalDepth(bucketIdx, d.LocalDepth(bucketIdx)+1)
}

func (d *DirectoryPage) DecrLocalDepth(bucketIdx uint32) {
	d.SetLocalDepth(bucketIdx, d.LocalDepth(bucketIdx)-1)
}

func (d *DirectoryPage) bucketIDOffset(idx uint32) int {
	return dirOffBucketIDs + int(idx)*4
}

func (d *DirectoryPage) BucketPageID(bucketIdx uint32) dbutil.PageID {
	off := d.bucketIDOffset(bucketIdx)
	return dbutil.PageID(int32(binary.LittleEndian.Uint32(d.buf[off:])))
}

func (d *DirectoryPage) SetBucketPageID(bucketIdx uint32, id dbutil.PageID) {
	off := d.bucketIDOffset(bucketIdx)
	binary.LittleEndian.PutUint32(d.buf[off:], uint32(int32(id)))
}

// GetSplitImageIndex returns the sibling index of bucketIdx at its
// current local depth: bucketIdx XOR (1 << LocalDepth(bucketIdx)).
func (d *DirectoryPage) GetSplitImageIndex(bucketIdx uint32) uint32 {
	return bucketIdx ^ (1 << d.LocalDepth(bucketIdx))
}

// IncrGlobalDepth doubles the directory: every slot in [0, oldSize)
// is mirrored into [oldSize, 2*oldSize), copying both the bucket page
// id and the local depth, in one pass after bumping GlobalDepth.
func (d *DirectoryPage) IncrGlobalDepth() {
	oldSize := d.Size()
	d.setGlobalDepth(d.GlobalDepth() + 1)
	for i := uint32(0); i < oldSize; i++ {
		d.SetBucketPageID(oldSize+i, d.BucketPageID(i))
		d.SetLocalDepth(oldSize+i, d.LocalDepth(i))
	}
}

// DecrGlobalDepth halves the directory by decrementing the bit count.
// Present for API completeness; the table never drives it since
// shrink-on-delete is treated as a non-goal.
func (d *DirectoryPage) DecrGlobalDepth() {
	d.setGlobalDepth(d.GlobalDepth() - 1)
}

// CanShrink reports whether every local depth is strictly less than
// the global depth.
func (d *DirectoryPage) CanShrink() bool {
	for i := uint32(0); i < d.Size(); i++ {
		if d.LocalDepth(i) >= uint8(d.GlobalDepth()) {
			return false
		}
	}
	return true
}

// UpdateDirectoryMapping fans newBucketPageID and newLocalDepth out to
// every directory slot whose low newLocalDepth bits equal newBucketIdx's
// — not just the single slot at newBucketIdx, which would leave slots
// stale whenever a split happens at local_depth < global_depth.
func (d *DirectoryPage) UpdateDirectoryMapping(newBucketIdx uint32, newBucketPageID dbutil.PageID, newLocalDepth uint8) {
	mask := uint32(1<<newLocalDepth) - 1
	want := newBucketIdx & mask
	for i := uint32(0); i < d.Size(); i++ {
		if i&mask == want {
			d.SetBucketPageID(i, newBucketPageID)
			d.SetLocalDepth(i, newLocalDepth)
		}
	}
}

// VerifyIntegrity checks that every local depth is at most the global
// depth, that each bucket id is pointed to by exactly
// 2^(global_depth-local_depth) slots, and that all slots sharing a
// bucket id agree on local depth.
func (d *DirectoryPage) VerifyIntegrity() error {
	global := d.GlobalDepth()
	pointerCount := make(map[dbutil.PageID]uint32)
	localDepthOf := make(map[dbutil.PageID]uint8)

	for i := uint32(0); i < d.Size(); i++ {
		ld := d.LocalDepth(i)
		if uint32(ld) > global {
			return fmt.Errorf("hash: slot %d has local depth %d > global depth %d", i, ld, global)
		}
		id := d.BucketPageID(i)
		pointerCount[id]++
		if seen, ok := localDepthOf[id]; ok && seen != ld {
			return fmt.Errorf("hash: bucket %d referenced with local depths %d and %d", id, seen, ld)
		}
		localDepthOf[id] = ld
	}
	for id, count := range pointerCount {
		ld := localDepthOf[id]
		want := uint32(1) << (global - uint32(ld))
		if count != want {
			return fmt.Errorf("hash: bucket %d pointed to by %d slots, want %d", id, count, want)
		}
	}
	return nil
}
