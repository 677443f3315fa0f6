package buffer

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/arrayql/latticedb/internal/dbutil"
	"github.com/arrayql/latticedb/internal/storage/disk"
	"github.com/arrayql/latticedb/internal/storage/page"
)

// frame is one slot in the pool: a fixed-size byte buffer plus the
// metadata kept alongside it (page id, dirty flag, pin count, and the
// reader/writer latch used only by Read/Write guards).
// Pin count is mutated exclusively under the pool's outer mutex;
// the latch is never taken while that mutex is held.
type frame struct {
	data     page.Data
	pageID   dbutil.PageID
	pinCount int32
	dirty    bool
	latch    sync.RWMutex
}

// Stats are bookkeeping counters for observability. They never affect
// control flow.
type Stats struct {
	Hits      uint64
	Misses    uint64
	Evictions uint64
	Flushes   uint64
}

// PoolManager is the buffer pool: a page-addressable memory
// abstraction backed by disk, enforcing single-instance caching,
// pinning, dirty write-back, and controlled eviction.
type PoolManager struct {
	mu sync.Mutex // guards frames, pageTable, and freeList together with the replacer invocation

	frames    []*frame
	pageTable map[dbutil.PageID]dbutil.FrameID
	freeList  []dbutil.FrameID
	replacer  *LRUKReplacer
	scheduler *disk.Scheduler

	nextPageID int64 // atomic

	poolSize int
	log      logrus.FieldLogger

	stats Stats
}

// NewPoolManager constructs a pool of poolSize frames, all initially
// free, backed by scheduler and evicted per LRU-K with history depth k.
func NewPoolManager(poolSize int, k int, scheduler *disk.Scheduler, log logrus.FieldLogger) *PoolManager {
	if poolSize <= 0 {
		panic(dbutil.ErrInvalidPoolSize)
	}
	if log == nil {
		log = logrus.StandardLogger()
	}

	pm := &PoolManager{
		frames:    make([]*frame, poolSize),
		pageTable: make(map[dbutil.PageID]dbutil.FrameID, poolSize),
		freeList:  make([]dbutil.FrameID, poolSize),
		replacer:  NewLRUKReplacer(poolSize, k),
		scheduler: scheduler,
		poolSize:  poolSize,
		log:       log.WithField("component", "bufferpool"),
	}
	for i := 0; i < poolSize; i++ {
		pm.frames[i] = &frame{pageID: dbutil.InvalidPageID}
		pm.freeList[i] = dbutil.FrameID(i)
	}
	return pm
}

// GetPoolSize returns the number of frames the pool was constructed with.
func (pm *PoolManager) GetPoolSize() int { return pm.poolSize }

// Stats returns a snapshot of the pool's hit/miss/eviction/flush counters.
func (pm *PoolManager) Stats() Stats {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	return pm.stats
}

// acquireFrame implements the frame-acquisition protocol shared by
// NewPage and FetchPage: pop the free list, or ask the replacer for a
// victim and flush it if dirty, or report exhaustion. Caller must hold pm.mu.
func (pm *PoolManager) acquireFrame() (dbutil.FrameID, bool) {
	if n := len(pm.freeList); n > 0 {
		id := pm.freeList[n-1]
		pm.freeList = pm.freeList[:n-1]
		return id, true
	}

	victim, ok := pm.replacer.Evict()
	if !ok {
		return 0, false
	}
	victimFrame := pm.frames[victim]
	if victimFrame.dirty {
		pm.scheduler.WriteSync(victimFrame.pageID, victimFrame.data.Bytes())
		victimFrame.dirty = false
	}
	delete(pm.pageTable, victimFrame.pageID)
	pm.stats.Evictions++
	return victim, true
}

// NewPage allocates a fresh page identifier and a pinned frame for it,
// zeroing the frame's bytes. Returns (InvalidPageID, false) if every
// frame is pinned and none are evictable.
func (pm *PoolManager) NewPage() (dbutil.PageID, bool) {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	frameID, ok := pm.acquireFrame()
	if !ok {
		return dbutil.InvalidPageID, false
	}

	newID := dbutil.PageID(atomic.AddInt64(&pm.nextPageID, 1) - 1)

	f := pm.frames[frameID]
	f.data.Reset()
	f.pageID = newID
	f.pinCount = 1
	f.dirty = false

	pm.pageTable[newID] = frameID
	pm.replacer.RecordAccess(frameID)
	pm.replacer.SetEvictable(frameID, false)

	return newID, true
}

// FetchPage pins id, reading it from disk on a cache miss. Returns
// (nil frame id equivalent, false) if id is unmapped and the pool has
// no frame to give it. On a cache hit the frame's dirty bit is left
// untouched — fetching a page for read access must never mark it dirty.
func (pm *PoolManager) FetchPage(id dbutil.PageID) (dbutil.FrameID, bool) {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	if frameID, ok := pm.pageTable[id]; ok {
		f := pm.frames[frameID]
		f.pinCount++
		pm.replacer.RecordAccess(frameID)
		pm.replacer.SetEvictable(frameID, false)
		pm.stats.Hits++
		return frameID, true
	}

	frameID, ok := pm.acquireFrame()
	if !ok {
		pm.stats.Misses++
		return 0, false
	}

	f := pm.frames[frameID]
	pm.pageTable[id] = frameID
	pm.scheduler.ReadSync(id, f.data.Bytes())
	f.pageID = id
	f.pinCount = 1
	f.dirty = false

	pm.replacer.RecordAccess(frameID)
	pm.replacer.SetEvictable(frameID, false)
	pm.stats.Misses++

	return frameID, true
}

// UnpinPage decrements id's pin count, making the frame evictable once
// it reaches zero. dirty is OR-ed into the frame's sticky dirty bit: a
// clean unpin must never erase a previously observed dirty write.
// Returns false if id is unmapped or already unpinned.
func (pm *PoolManager) UnpinPage(id dbutil.PageID, dirty bool) bool {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	frameID, ok := pm.pageTable[id]
	if !ok {
		return false
	}
	f := pm.frames[frameID]
	if f.pinCount <= 0 {
		return false
	}

	f.pinCount--
	if f.pinCount == 0 {
		pm.replacer.SetEvictable(frameID, true)
	}
	f.dirty = f.dirty || dirty

	return true
}

// FlushPage writes id's frame to disk and clears its dirty bit. It is
// a no-op returning true if id is unmapped. id must not be the invalid
// sentinel — callers violating that precondition get a panic.
func (pm *PoolManager) FlushPage(id dbutil.PageID) bool {
	if id == dbutil.InvalidPageID {
		panic(dbutil.ErrInvalidPageID)
	}

	pm.mu.Lock()
	defer pm.mu.Unlock()

	frameID, ok := pm.pageTable[id]
	if !ok {
		return true
	}
	f := pm.frames[frameID]
	pm.scheduler.WriteSync(id, f.data.Bytes())
	f.dirty = false
	pm.stats.Flushes++
	return true
}

// FlushAllPages flushes every currently mapped page.
func (pm *PoolManager) FlushAllPages() {
	pm.mu.Lock()
	ids := make([]dbutil.PageID, 0, len(pm.pageTable))
	for id := range pm.pageTable {
		ids = append(ids, id)
	}
	pm.mu.Unlock()

	for _, id := range ids {
		pm.FlushPage(id)
	}
}

// DeletePage frees id's page and frame. Returns true if id is
// unmapped (already deleted). Returns false if the page is pinned.
// Flushes first if dirty.
func (pm *PoolManager) DeletePage(id dbutil.PageID) bool {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	frameID, ok := pm.pageTable[id]
	if !ok {
		return true
	}
	f := pm.frames[frameID]
	if f.pinCount > 0 {
		return false
	}
	if f.dirty {
		pm.scheduler.WriteSync(id, f.data.Bytes())
		pm.stats.Flushes++
	}

	f.data.Reset()
	f.pageID = dbutil.InvalidPageID
	f.dirty = false
	delete(pm.pageTable, id)
	pm.replacer.Remove(frameID)
	pm.freeList = append(pm.freeList, frameID)
	return true
}

// frameData exposes the raw bytes for a pinned frame id, used by page
// guards. Panics if id is unmapped — guards are only ever constructed
// immediately after a successful NewPage/FetchPage.
func (pm *PoolManager) frameData(id dbutil.PageID) (dbutil.FrameID, *frame) {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	frameID, ok := pm.pageTable[id]
	if !ok {
		panic(fmt.Errorf("%w: page %d has no frame", dbutil.ErrPageNotFound, id))
	}
	return frameID, pm.frames[frameID]
}

// NewPageGuarded allocates a page and wraps it in a basic guard.
func (pm *PoolManager) NewPageGuarded() (*BasicPageGuard, bool) {
	id, ok := pm.NewPage()
	if !ok {
		return nil, false
	}
	return newBasicGuard(pm, id), true
}

// FetchPageBasic fetches id and wraps it in a basic guard.
func (pm *PoolManager) FetchPageBasic(id dbutil.PageID) (*BasicPageGuard, bool) {
	if _, ok := pm.FetchPage(id); !ok {
		return nil, false
	}
	return newBasicGuard(pm, id), true
}

// FetchPageRead fetches id and returns a guard holding the frame's
// shared latch.
func (pm *PoolManager) FetchPageRead(id dbutil.PageID) (*ReadPageGuard, bool) {
	basic, ok := pm.FetchPageBasic(id)
	if !ok {
		return nil, false
	}
	return basic.UpgradeRead(), true
}

// FetchPageWrite fetches id and returns a guard holding the frame's
// exclusive latch.
func (pm *PoolManager) FetchPageWrite(id dbutil.PageID) (*WritePageGuard, bool) {
	basic, ok := pm.FetchPageBasic(id)
	if !ok {
		return nil, false
	}
	return basic.UpgradeWrite(), true
}
