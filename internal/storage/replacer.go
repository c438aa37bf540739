package storage

import (
	"fmt"
	"sync"
)

// lruKNode is the per-frame access history tracked by LRUKReplacer,
// matching spec.md §3's "LRU-K node": the frame id, a bounded history of
// up to K access timestamps (oldest first), and an evictable flag.
type lruKNode struct {
	frameID     FrameID
	history     []int64 // oldest first, capped at k entries
	isEvictable bool
}

// backwardKDistance returns the node's backward K-distance at the given
// current timestamp: current - history[0] once K accesses have been
// recorded, or +infinity (represented as 1<<62) otherwise.
func (n *lruKNode) backwardKDistance(k int, currentTS int64) int64 {
	if len(n.history) < k {
		return int64(1) << 62 // +inf sentinel, comfortably above any real timestamp delta
	}
	return currentTS - n.history[0]
}

// LRUKReplacer tracks frame access history and selects eviction victims
// among evictable frames by greatest backward K-distance, per spec.md
// §4.2. Grounded directly on
// _examples/original_source/.../lru_k_replacer.cpp's algorithm; the
// mutex-guarded-map coding idiom follows the teacher's
// internal/storage/pager.PageBufferPool.
type LRUKReplacer struct {
	mu sync.Mutex

	k           int
	currentTS   int64
	nodes       map[FrameID]*lruKNode
	evictableCt int
}

// NewLRUKReplacer creates a replacer over frame ids [0, numFrames) with
// the given K. K must be >= 2.
func NewLRUKReplacer(numFrames int, k int) *LRUKReplacer {
	if k < 2 {
		panic(fmt.Sprintf("LRUKReplacer: k must be >= 2, got %d", k))
	}
	return &LRUKReplacer{
		k:     k,
		nodes: make(map[FrameID]*lruKNode, numFrames),
	}
}

// RecordAccess records that frameID was accessed now. A frame unseen
// before becomes Tracked(non-evictable).
func (r *LRUKReplacer) RecordAccess(frameID FrameID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.currentTS++
	n, ok := r.nodes[frameID]
	if !ok {
		n = &lruKNode{frameID: frameID}
		r.nodes[frameID] = n
	}
	n.history = append(n.history, r.currentTS)
	if len(n.history) > r.k {
		n.history = n.history[len(n.history)-r.k:]
	}
}

// SetEvictable toggles a frame's evictability, adjusting the evictable
// count. Operating on an unknown frame id is a structural precondition
// failure (spec.md §7): it is a bug in the caller, so it panics.
func (r *LRUKReplacer) SetEvictable(frameID FrameID, evictable bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	n, ok := r.nodes[frameID]
	if !ok {
		panic(fmt.Sprintf("LRUKReplacer: SetEvictable on untracked frame %d", frameID))
	}
	if n.isEvictable && !evictable {
		r.evictableCt--
	} else if !n.isEvictable && evictable {
		r.evictableCt++
	}
	n.isEvictable = evictable
}

// Remove drops a frame's history entirely. Legal only on an evictable (or
// untracked) frame.
func (r *LRUKReplacer) Remove(frameID FrameID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	n, ok := r.nodes[frameID]
	if !ok {
		return
	}
	if !n.isEvictable {
		panic(fmt.Sprintf("LRUKReplacer: Remove on non-evictable frame %d", frameID))
	}
	delete(r.nodes, frameID)
	r.evictableCt--
}

// Evict selects and removes the eviction victim: the evictable frame with
// the greatest backward K-distance, ties broken by earliest history[0].
// Returns ok=false if no frame is evictable.
func (r *LRUKReplacer) Evict() (frameID FrameID, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var best *lruKNode
	var bestDist int64 = -1
	for _, n := range r.nodes {
		if !n.isEvictable {
			continue
		}
		d := n.backwardKDistance(r.k, r.currentTS)
		if d > bestDist {
			best, bestDist = n, d
			continue
		}
		if d == bestDist && best != nil {
			// Tie-break: earliest recorded access wins (the node whose
			// oldest tracked access happened longest ago).
			bf := firstOrZero(best.history)
			nf := firstOrZero(n.history)
			if nf < bf {
				best = n
			}
		}
	}
	if best == nil {
		return 0, false
	}
	delete(r.nodes, best.frameID)
	r.evictableCt--
	return best.frameID, true
}

func firstOrZero(xs []int64) int64 {
	if len(xs) == 0 {
		return 0
	}
	return xs[0]
}

// Size returns the number of currently evictable frames.
func (r *LRUKReplacer) Size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.evictableCt
}
