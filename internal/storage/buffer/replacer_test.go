package buffer

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/arrayql/latticedb/internal/dbutil"
)

func TestLRUKReplacer_EvictsMaxKDistanceFirst(t *testing.T) {
	r := NewLRUKReplacer(5, 2)

	// Frame 1: two accesses long ago -> finite k-distance (5-1 = 4).
	r.RecordAccess(1)
	r.RecordAccess(1)
	// Frame 2: only one access ever -> +Inf k-distance, should be evicted first.
	r.RecordAccess(2)
	// Frame 3: two very recent accesses -> finite, smaller k-distance than frame 1 (5-4 = 1).
	r.RecordAccess(3)
	r.RecordAccess(3)

	r.SetEvictable(1, true)
	r.SetEvictable(2, true)
	r.SetEvictable(3, true)

	victim, ok := r.Evict()
	assert.True(t, ok)
	assert.Equal(t, dbutil.FrameID(2), victim, "frame with fewer than k accesses has +Inf distance")
}

func TestLRUKReplacer_TieBreaksOnEarliestAccess(t *testing.T) {
	r := NewLRUKReplacer(5, 3) // two accesses each stay below k: both +Inf

	r.RecordAccess(1) // oldest history
	r.RecordAccess(2)
	r.RecordAccess(1)
	r.RecordAccess(2)

	r.SetEvictable(1, true)
	r.SetEvictable(2, true)

	victim, ok := r.Evict()
	assert.True(t, ok)
	assert.Equal(t, dbutil.FrameID(1), victim, "both have +Inf distance, frame 1's earliest access is older")
}

func TestLRUKReplacer_NonEvictableFramesAreSkipped(t *testing.T) {
	r := NewLRUKReplacer(5, 2)

	r.RecordAccess(1)
	r.RecordAccess(2)
	r.SetEvictable(1, false)
	r.SetEvictable(2, true)

	victim, ok := r.Evict()
	assert.True(t, ok)
	assert.Equal(t, dbutil.FrameID(2), victim)
}

func TestLRUKReplacer_EvictReturnsFalseWhenNothingEvictable(t *testing.T) {
	r := NewLRUKReplacer(5, 2)
	r.RecordAccess(1)
	r.SetEvictable(1, false)

	_, ok := r.Evict()
	assert.False(t, ok)
}

func TestLRUKReplacer_SizeTracksEvictableCount(t *testing.T) {
	r := NewLRUKReplacer(5, 2)
	r.RecordAccess(1)
	r.RecordAccess(2)
	assert.Equal(t, 0, r.Size())

	r.SetEvictable(1, true)
	assert.Equal(t, 1, r.Size())

	r.SetEvictable(2, true)
	assert.Equal(t, 2, r.Size())

	r.SetEvictable(1, false)
	assert.Equal(t, 1, r.Size())
}

func TestLRUKReplacer_RemoveEvictableFrame(t *testing.T) {
	r := NewLRUKReplacer(5, 2)
	r.RecordAccess(1)
	r.SetEvictable(1, true)

	r.Remove(1)
	assert.Equal(t, 0, r.Size())

	_, ok := r.Evict()
	assert.False(t, ok)
}

func TestLRUKReplacer_RemoveNonEvictablePanics(t *testing.T) {
	r := NewLRUKReplacer(5, 2)
	r.RecordAccess(1)
	r.SetEvictable(1, false)

	assert.Panics(t, func() { r.Remove(1) })
}

func TestLRUKReplacer_OutOfRangeFramePanics(t *testing.T) {
	r := NewLRUKReplacer(5, 2)
	assert.Panics(t, func() { r.RecordAccess(10) })
	assert.Panics(t, func() { r.SetEvictable(-1, true) })
}

func TestLRUKReplacer_SetEvictableOnUntrackedFramePanics(t *testing.T) {
	r := NewLRUKReplacer(5, 2)
	assert.Panics(t, func() { r.SetEvictable(0, true) })
}
