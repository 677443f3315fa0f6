package buffer

import (
	"fmt"
	"sync"

	"github.com/arrayql/latticedb/internal/dbutil"
)

const infiniteKDistance = ^uint64(0)

// lruKNode tracks the bounded access history for one frame: the most
// recent K timestamps, newest first, plus whether the replacer is
// currently allowed to evict it.
type lruKNode struct {
	history   []uint64 // newest first, capped at k entries
	evictable bool
}

// kDistance returns the backward K-distance of this node at "now": if
// the node has fewer than k recorded accesses its distance is +Inf
// (modeled as infiniteKDistance, larger than any real distance).
func (n *lruKNode) kDistance(now uint64, k int) uint64 {
	if len(n.history) < k {
		return infiniteKDistance
	}
	return now - n.history[k-1]
}

// earliestTimestamp is the oldest recorded access, used to break ties
// among nodes that share a K-distance (including ties at +Inf, which
// reduces to classical LRU among under-referenced frames).
func (n *lruKNode) earliestTimestamp() uint64 {
	return n.history[len(n.history)-1]
}

func (n *lruKNode) recordAccess(ts uint64, k int) {
	n.history = append([]uint64{ts}, n.history...)
	if len(n.history) > k {
		n.history = n.history[:k]
	}
}

// LRUKReplacer selects, among frames flagged evictable, the one with
// the largest backward K-distance, breaking ties by the oldest
// earliest-access timestamp. It makes no I/O calls and is serialized
// by a single mutex, per the concurrency model: this lock is always
// acquired while the buffer pool already holds its own outer mutex,
// giving a total pool-then-replacer acquisition order.
type LRUKReplacer struct {
	mu            sync.Mutex
	k             int
	poolSize      int
	nodes         map[dbutil.FrameID]*lruKNode
	evictableSize int
	clock         uint64
}

// NewLRUKReplacer constructs a replacer for a pool of poolSize frames
// using history length k.
func NewLRUKReplacer(poolSize, k int) *LRUKReplacer {
	if poolSize <= 0 {
		panic("buffer: LRUKReplacer pool size must be positive")
	}
	if k <= 0 {
		k = 1
	}
	return &LRUKReplacer{
		k:        k,
		poolSize: poolSize,
		nodes:    make(map[dbutil.FrameID]*lruKNode),
	}
}

func (r *LRUKReplacer) checkRange(frame dbutil.FrameID) {
	if frame < 0 || int(frame) >= r.poolSize {
		panic(fmt.Errorf("%w: frame id %d, pool size %d", dbutil.ErrFrameOutOfRange, frame, r.poolSize))
	}
}

// RecordAccess increments the logical clock and prepends the new
// timestamp to frame's history, creating a non-evictable node on first
// sight.
func (r *LRUKReplacer) RecordAccess(frame dbutil.FrameID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.checkRange(frame)

	r.clock++
	node, ok := r.nodes[frame]
	if !ok {
		node = &lruKNode{}
		r.nodes[frame] = node
	}
	node.recordAccess(r.clock, r.k)
}

// SetEvictable toggles whether frame may be chosen by Evict, adjusting
// the evictable count exactly when the flag actually changes. The node
// must already exist (i.e. RecordAccess must have been called for it).
func (r *LRUKReplacer) SetEvictable(frame dbutil.FrameID, evictable bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.checkRange(frame)

	node, ok := r.nodes[frame]
	if !ok {
		panic(fmt.Sprintf("buffer: SetEvictable on untracked frame %d", frame))
	}
	if node.evictable == evictable {
		return
	}
	node.evictable = evictable
	if evictable {
		r.evictableSize++
	} else {
		r.evictableSize--
	}
}

// Evict scans evictable nodes and returns the one with the maximal
// K-distance, breaking ties by the smallest earliest timestamp. It
// removes the chosen node from tracking. The second return is false if
// no frame is currently evictable.
func (r *LRUKReplacer) Evict() (dbutil.FrameID, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var (
		victim      dbutil.FrameID
		found       bool
		bestDist    uint64
		bestEarlyTS uint64
	)
	for frame, node := range r.nodes {
		if !node.evictable {
			continue
		}
		dist := node.kDistance(r.clock, r.k)
		earlyTS := node.earliestTimestamp()
		switch {
		case !found:
			found, victim, bestDist, bestEarlyTS = true, frame, dist, earlyTS
		case dist > bestDist, dist == bestDist && earlyTS < bestEarlyTS:
			victim, bestDist, bestEarlyTS = frame, dist, earlyTS
		}
	}
	if !found {
		return 0, false
	}
	delete(r.nodes, victim)
	r.evictableSize--
	return victim, true
}

// Remove drops a tracked frame outright (distinct from Evict: it does
// not consider K-distance). It is a no-op if the frame is untracked,
// and panics if the frame is tracked but not evictable — removing a
// pinned frame's history out from under it is a caller bug.
func (r *LRUKReplacer) Remove(frame dbutil.FrameID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	node, ok := r.nodes[frame]
	if !ok {
		return
	}
	if !node.evictable {
		panic(fmt.Sprintf("buffer: Remove called on non-evictable frame %d", frame))
	}
	delete(r.nodes, frame)
	r.evictableSize--
}

// Size returns the number of currently evictable nodes.
func (r *LRUKReplacer) Size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.evictableSize
}
