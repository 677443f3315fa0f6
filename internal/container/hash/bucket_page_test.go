package hash

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arrayql/latticedb/internal/dbutil"
)

func intEqual(a, b int64) bool { return a == b }

func newTestBucket(capacity uint32) *BucketPage[int64, int64] {
	kc, vc := Int64Codec(), Int64Codec()
	buf := make([]byte, bucketOffEntries+int(capacity)*(kc.Size+vc.Size))
	b := WrapBucketPage(buf, kc, vc)
	b.Init(capacity)
	return b
}

func TestBucketPage_InsertLookupRoundTrip(t *testing.T) {
	b := newTestBucket(4)
	require.NoError(t, b.Insert(int64(1), int64(100), intEqual))
	require.NoError(t, b.Insert(int64(2), int64(200), intEqual))

	v, ok := b.Lookup(int64(1), intEqual)
	require.True(t, ok)
	assert.Equal(t, int64(100), v)

	v, ok = b.Lookup(int64(2), intEqual)
	require.True(t, ok)
	assert.Equal(t, int64(200), v)

	_, ok = b.Lookup(int64(3), intEqual)
	assert.False(t, ok)
}

func TestBucketPage_InsertDuplicateKeyFails(t *testing.T) {
	b := newTestBucket(4)
	require.NoError(t, b.Insert(int64(1), int64(100), intEqual))
	assert.ErrorIs(t, b.Insert(int64(1), int64(999), intEqual), dbutil.ErrKeyExists)
}

func TestBucketPage_InsertFullFails(t *testing.T) {
	b := newTestBucket(2)
	require.NoError(t, b.Insert(int64(1), int64(1), intEqual))
	require.NoError(t, b.Insert(int64(2), int64(2), intEqual))
	assert.True(t, b.IsFull())
	assert.ErrorIs(t, b.Insert(int64(3), int64(3), intEqual), dbutil.ErrBucketFull)
}

func TestBucketPage_RemoveSwapsWithLast(t *testing.T) {
	b := newTestBucket(4)
	require.NoError(t, b.Insert(int64(1), int64(10), intEqual))
	require.NoError(t, b.Insert(int64(2), int64(20), intEqual))
	require.NoError(t, b.Insert(int64(3), int64(30), intEqual))

	assert.True(t, b.Remove(int64(1), intEqual))
	assert.Equal(t, uint32(2), b.Size())

	// Entry for key 3 (the last live entry) should now occupy slot 0.
	k, v := b.EntryAt(0)
	assert.Equal(t, int64(3), k)
	assert.Equal(t, int64(30), v)

	_, ok := b.Lookup(int64(1), intEqual)
	assert.False(t, ok)
	_, ok = b.Lookup(int64(2), intEqual)
	assert.True(t, ok)
	_, ok = b.Lookup(int64(3), intEqual)
	assert.True(t, ok)
}

func TestBucketPage_RemoveMissingKeyFails(t *testing.T) {
	b := newTestBucket(4)
	require.NoError(t, b.Insert(int64(1), int64(10), intEqual))
	assert.False(t, b.Remove(int64(99), intEqual))
}

func TestBucketPage_IsEmptyAndIsFull(t *testing.T) {
	b := newTestBucket(1)
	assert.True(t, b.IsEmpty())
	assert.False(t, b.IsFull())

	require.NoError(t, b.Insert(int64(1), int64(1), intEqual))
	assert.False(t, b.IsEmpty())
	assert.True(t, b.IsFull())
}

func TestMaxEntriesFor(t *testing.T) {
	kc, vc := Int64Codec(), Int64Codec()
	n := MaxEntriesFor(kc, vc, 4096)
	assert.Equal(t, uint32((4096-bucketOffEntries)/16), n)
}
