// Package storage implements the buffer-pool layer of the engine: pages,
// frames, the asynchronous disk scheduler, the LRU-K replacer, the buffer
// pool manager, and RAII-style page guards.
//
// What: the data structures and algorithms from "the hard parts" of the
// engine (BufferPoolManager, LRUKReplacer, DiskScheduler, page guards).
// How: a fixed frame array, a page table mapping page ids to frame indexes,
// a free list, and a replacer consulted only on a cache miss with no free
// frame — the same shape as the teacher's PageBufferPool/PageFrame design,
// generalized from an LRU page cache into a pinned/latched buffer pool.
// Why: every other in-scope subsystem (the hash index, the MVCC table
// heap, the execution operators) reads and writes tuples exclusively
// through this layer.
package storage

import "sync"

// PageID identifies a page. INVALID_PAGE_ID (-1) means "no page".
type PageID int64

// InvalidPageID is the sentinel for "no page".
const InvalidPageID PageID = -1

// FrameID indexes into the buffer pool's frame array.
type FrameID int

// Page is a fixed-size in-memory copy of an on-disk page, plus the
// bookkeeping the buffer pool needs: its identity, pin count, dirty flag,
// and a reader-writer latch guarding the data payload.
//
// metaMu and mu are deliberately distinct locks: metaMu guards only the
// id/pinCount/isDirty bookkeeping fields, while mu is the payload latch
// a caller crabbing across pages (see hashindex) may hold for the
// lifetime of a multi-page operation. BufferPoolManager's internal
// bookkeeping (FetchPage bumping pinCount, UnpinPage, etc.) touches only
// metaMu, so it never blocks on a latch a caller is holding, and a
// caller's held latch never blocks the pool's own metadata operations on
// other pages. Grounded on buffer_pool_manager.cpp:73-99, where
// pin_count_ is a plain field mutated only under the outer simple_safe_
// mutex and never touches the page's separate rwlatch_.
//
// Data is always len(Data) == PageSize for a given BufferPoolManager; it is
// addressed directly by callers that hold a page guard, matching the
// teacher's pattern of handing back the raw []byte buffer.
type Page struct {
	metaMu sync.Mutex
	mu     sync.RWMutex

	id       PageID
	pinCount int
	isDirty  bool
	data     []byte
}

func newPage(size int) *Page {
	return &Page{id: InvalidPageID, data: make([]byte, size)}
}

// ID returns the page's current identity. Only valid while the caller
// holds a pin (otherwise the frame may be repurposed for another page).
func (p *Page) ID() PageID {
	p.metaMu.Lock()
	defer p.metaMu.Unlock()
	return p.id
}

// PinCount returns the current pin count. Exposed for tests and invariant
// checks; not meant to drive production control flow.
func (p *Page) PinCount() int {
	p.metaMu.Lock()
	defer p.metaMu.Unlock()
	return p.pinCount
}

// IsDirty reports whether the page has unflushed writes.
func (p *Page) IsDirty() bool {
	p.metaMu.Lock()
	defer p.metaMu.Unlock()
	return p.isDirty
}

// Data returns the page's backing buffer. Callers typically hold a page
// guard (see guard.go) and should not retain the slice past the guard's
// lifetime.
func (p *Page) Data() []byte {
	return p.data
}

// RLatch/RUnlatch and WLatch/WUnlatch expose the page's reader-writer latch
// directly; page guards are the normal way to acquire these, but the
// extendible hash index also crabs across pages it did not obtain a guard
// for (see hashindex).
func (p *Page) RLatch()   { p.mu.RLock() }
func (p *Page) RUnlatch() { p.mu.RUnlock() }
func (p *Page) WLatch()   { p.mu.Lock() }
func (p *Page) WUnlatch() { p.mu.Unlock() }

func (p *Page) reset(id PageID) {
	p.id = id
	p.pinCount = 0
	p.isDirty = false
	for i := range p.data {
		p.data[i] = 0
	}
}
