package buffer

import (
	"github.com/arrayql/latticedb/internal/dbutil"
)

// BasicPageGuard owns exactly one pin on its frame. It is the mandatory
// API surface higher layers use to touch a page's bytes: they never
// see a raw frame. Dropping a guard releases its pin exactly once,
// using whatever dirty flag the guard has observed (via MarkDirty, or
// DataMut on a write guard upgraded from it). A guard is move-only in spirit; in Go
// that is enforced by convention (never copy a *BasicPageGuard, always
// pass the pointer and nil it out after Drop/Upgrade).
type BasicPageGuard struct {
	pm      *PoolManager
	pageID  dbutil.PageID
	frameID dbutil.FrameID
	frame   *frame
	dirty   bool
	dropped bool
}

func newBasicGuard(pm *PoolManager, id dbutil.PageID) *BasicPageGuard {
	frameID, f := pm.frameData(id)
	return &BasicPageGuard{pm: pm, pageID: id, frameID: frameID, frame: f}
}

// PageID returns the identifier of the page this guard pins.
func (g *BasicPageGuard) PageID() dbutil.PageID { return g.pageID }

// Data returns the page's raw bytes for reading. Mutating through this
// slice without also calling MarkDirty loses the write on eviction.
func (g *BasicPageGuard) Data() []byte { return g.frame.data.Bytes() }

// MarkDirty records that the guard's holder mutated the page; the
// dirty flag is OR-ed into the pool on Drop, same stickiness UnpinPage
// itself guarantees.
func (g *BasicPageGuard) MarkDirty() { g.dirty = true }

// Drop releases the guard's pin. Safe to call multiple times; only the
// first call has an effect.
func (g *BasicPageGuard) Drop() {
	if g.dropped {
		return
	}
	g.dropped = true
	g.pm.UnpinPage(g.pageID, g.dirty)
}

// UpgradeRead acquires the frame's shared latch and transfers this
// guard's pin into a ReadPageGuard, invalidating the basic guard.
func (g *BasicPageGuard) UpgradeRead() *ReadPageGuard {
	g.frame.latch.RLock()
	rg := &ReadPageGuard{basic: g}
	return rg
}

// UpgradeWrite acquires the frame's exclusive latch and transfers this
// guard's pin into a WritePageGuard, invalidating the basic guard.
func (g *BasicPageGuard) UpgradeWrite() *WritePageGuard {
	g.frame.latch.Lock()
	wg := &WritePageGuard{basic: g}
	return wg
}

// ReadPageGuard wraps a BasicPageGuard and additionally holds the
// frame's shared latch. Drop releases the latch first, then the pin.
type ReadPageGuard struct {
	basic   *BasicPageGuard
	dropped bool
}

func (g *ReadPageGuard) PageID() dbutil.PageID { return g.basic.pageID }

// Data returns the page's bytes for read-only access.
func (g *ReadPageGuard) Data() []byte { return g.basic.frame.data.Bytes() }

func (g *ReadPageGuard) Drop() {
	if g.dropped {
		return
	}
	g.dropped = true
	g.basic.frame.latch.RUnlock()
	g.basic.Drop()
}

// WritePageGuard wraps a BasicPageGuard and holds the frame's
// exclusive latch. Any mutable access through a write guard marks the
// frame dirty.
type WritePageGuard struct {
	basic   *BasicPageGuard
	dropped bool
}

func (g *WritePageGuard) PageID() dbutil.PageID { return g.basic.pageID }

// Data returns the page's bytes for read access without marking dirty.
func (g *WritePageGuard) Data() []byte { return g.basic.frame.data.Bytes() }

// DataMut returns the page's bytes for mutation and marks the frame
// dirty immediately — any caller reaching for mutable access through a
// write guard is, by construction, about to write.
func (g *WritePageGuard) DataMut() []byte {
	g.basic.MarkDirty()
	return g.basic.frame.data.Bytes()
}

func (g *WritePageGuard) Drop() {
	if g.dropped {
		return
	}
	g.dropped = true
	g.basic.frame.latch.Unlock()
	g.basic.Drop()
}
