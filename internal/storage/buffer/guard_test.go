package buffer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBasicPageGuard_DropUnpinsExactlyOnce(t *testing.T) {
	pm, _, cleanup := newTestPool(t, 2, 2)
	defer cleanup()

	guard, ok := pm.NewPageGuarded()
	require.True(t, ok)
	id := guard.PageID()

	guard.Drop()
	guard.Drop() // second Drop must be a no-op, not a double-unpin

	// Page should now be evictable (pin count reached exactly zero once).
	_, f := pm.frameData(id)
	assert.Equal(t, int32(0), f.pinCount)
}

func TestWritePageGuard_DataMutMarksDirty(t *testing.T) {
	pm, _, cleanup := newTestPool(t, 2, 2)
	defer cleanup()

	guard, ok := pm.NewPageGuarded()
	require.True(t, ok)
	id := guard.PageID()
	guard.Drop()

	wg, ok := pm.FetchPageWrite(id)
	require.True(t, ok)
	buf := wg.DataMut()
	buf[0] = 0xAB
	wg.Drop()

	_, f := pm.frameData(id)
	assert.True(t, f.dirty)
}

func TestReadPageGuard_DataDoesNotMarkDirty(t *testing.T) {
	pm, _, cleanup := newTestPool(t, 2, 2)
	defer cleanup()

	guard, ok := pm.NewPageGuarded()
	require.True(t, ok)
	id := guard.PageID()
	guard.Drop()

	rg, ok := pm.FetchPageRead(id)
	require.True(t, ok)
	_ = rg.Data()
	rg.Drop()

	_, f := pm.frameData(id)
	assert.False(t, f.dirty)
}

func TestBasicPageGuard_UpgradeWriteThenRead(t *testing.T) {
	pm, _, cleanup := newTestPool(t, 2, 2)
	defer cleanup()

	guard, ok := pm.NewPageGuarded()
	require.True(t, ok)
	id := guard.PageID()

	wg := guard.UpgradeWrite()
	wg.DataMut()[0] = 42
	wg.Drop()

	rg, ok := pm.FetchPageRead(id)
	require.True(t, ok)
	assert.Equal(t, byte(42), rg.Data()[0])
	rg.Drop()
}
