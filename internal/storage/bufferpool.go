package storage

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// BufferPoolManager owns a fixed array of frames, a free list, a page
// table (page id -> frame id), and an LRUKReplacer; it serves
// NewPage/FetchPage/UnpinPage/FlushPage/DeletePage and issues writeback
// through a DiskScheduler, per spec.md §4.3.
//
// Concurrency: a single coarse mutex (bp.mu) serializes every metadata
// operation (page table, free list, replacer interactions); each Page's
// id/pinCount/isDirty bookkeeping is further guarded by that page's own
// metaMu (distinct from its payload latch), so bumping a pin count never
// contends with a caller's held RLatch/WLatch — option (a) from spec.md
// §9's Open Question, matching what buffer_pool_manager.cpp's
// simple_safe_ variant actually does. Unlike that file,
// FetchPageBasic/FetchPageRead/FetchPageWrite/NewPageGuarded are fully
// implemented rather than stubbed.
//
// The frame-array/free-list/LRU bookkeeping style is grounded on the
// teacher's internal/storage/pager.PageBufferPool (put/evictOne/pushFront
// pattern), generalized here from an LRU page *cache* into a pinned
// buffer *pool* with an explicit replacer and page guards.
type BufferPoolManager struct {
	mu sync.Mutex

	pageSize  int
	scheduler *DiskScheduler
	replacer  *LRUKReplacer

	frames   []*Page
	freeList []FrameID
	pageTbl  map[PageID]FrameID

	nextPageID atomic.Int64
}

// NewBufferPoolManager allocates numFrames frames and wires them to disk
// through scheduler, with an LRU-K replacer of the given K.
func NewBufferPoolManager(numFrames int, pageSize int, scheduler *DiskScheduler, replacerK int) *BufferPoolManager {
	bp := &BufferPoolManager{
		pageSize:  pageSize,
		scheduler: scheduler,
		replacer:  NewLRUKReplacer(numFrames, replacerK),
		frames:    make([]*Page, numFrames),
		freeList:  make([]FrameID, numFrames),
		pageTbl:   make(map[PageID]FrameID, numFrames),
	}
	for i := 0; i < numFrames; i++ {
		bp.frames[i] = newPage(pageSize)
		bp.freeList[i] = FrameID(numFrames - 1 - i) // pop from the back = frame 0 first
	}
	return bp
}

// acquireFrame returns a frame id ready for a new page: the free list
// first, else eviction via the replacer (with writeback if dirty).
// Returns ok=false if no frame is free and no evictable victim exists.
// Must be called with bp.mu held.
func (bp *BufferPoolManager) acquireFrame() (FrameID, bool) {
	if n := len(bp.freeList); n > 0 {
		fid := bp.freeList[n-1]
		bp.freeList = bp.freeList[:n-1]
		return fid, true
	}
	fid, ok := bp.replacer.Evict()
	if !ok {
		return 0, false
	}
	victim := bp.frames[fid]
	if victim.ID() != InvalidPageID {
		if victim.IsDirty() {
			if err := bp.scheduler.WritePage(victim.ID(), victim.Data()); err != nil {
				// I/O failure during writeback is treated as fatal per
				// spec.md §7 — the reference implementation asserts
				// success.
				panic(fmt.Sprintf("buffer pool: writeback of page %d failed: %v", victim.ID(), err))
			}
		}
		delete(bp.pageTbl, victim.ID())
	}
	return fid, true
}

// NewPage allocates a fresh page id and returns a pinned, zeroed frame for
// it. Returns InvalidPageID, nil if no frame is available.
func (bp *BufferPoolManager) NewPage() (PageID, *Page) {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	fid, ok := bp.acquireFrame()
	if !ok {
		return InvalidPageID, nil
	}
	pid := PageID(bp.nextPageID.Add(1) - 1)
	page := bp.frames[fid]
	page.metaMu.Lock()
	page.reset(pid)
	page.pinCount = 1
	page.metaMu.Unlock()

	bp.pageTbl[pid] = fid
	bp.replacer.RecordAccess(fid)
	bp.replacer.SetEvictable(fid, false)
	return pid, page
}

// FetchPage returns the page for id, pinning it. On a cache miss it
// acquires a frame (free list first, else eviction), reads the page's
// bytes via the disk scheduler, and installs it in the page table.
// Returns nil if no frame is available.
func (bp *BufferPoolManager) FetchPage(id PageID) *Page {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	if fid, ok := bp.pageTbl[id]; ok {
		page := bp.frames[fid]
		page.metaMu.Lock()
		page.pinCount++
		page.metaMu.Unlock()
		bp.replacer.RecordAccess(fid)
		bp.replacer.SetEvictable(fid, false)
		return page
	}

	fid, ok := bp.acquireFrame()
	if !ok {
		return nil
	}
	page := bp.frames[fid]
	page.metaMu.Lock()
	page.reset(id)
	page.metaMu.Unlock()

	if err := bp.scheduler.ReadPage(id, page.data); err != nil {
		panic(fmt.Sprintf("buffer pool: read of page %d failed: %v", id, err))
	}

	page.metaMu.Lock()
	page.pinCount = 1
	page.metaMu.Unlock()

	bp.pageTbl[id] = fid
	bp.replacer.RecordAccess(fid)
	bp.replacer.SetEvictable(fid, false)
	return page
}

// UnpinPage decrements id's pin count; once it reaches zero the frame
// becomes evictable. isDirty, if true, latches the dirty flag on (it is
// never cleared here). Returns false if the page is not resident or is
// already unpinned.
func (bp *BufferPoolManager) UnpinPage(id PageID, isDirty bool) bool {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	fid, ok := bp.pageTbl[id]
	if !ok {
		return false
	}
	page := bp.frames[fid]
	page.metaMu.Lock()
	defer page.metaMu.Unlock()
	if page.pinCount <= 0 {
		return false
	}
	page.pinCount--
	if isDirty {
		page.isDirty = true
	}
	if page.pinCount == 0 {
		bp.replacer.SetEvictable(fid, true)
	}
	return true
}

// FlushPage synchronously writes a resident page back to disk and clears
// its dirty flag. Returns false if the page is not resident.
func (bp *BufferPoolManager) FlushPage(id PageID) bool {
	bp.mu.Lock()
	fid, ok := bp.pageTbl[id]
	if !ok {
		bp.mu.Unlock()
		return false
	}
	page := bp.frames[fid]
	bp.mu.Unlock()

	page.RLatch()
	data := append([]byte(nil), page.data...)
	page.RUnlatch()

	if err := bp.scheduler.WritePage(id, data); err != nil {
		panic(fmt.Sprintf("buffer pool: flush of page %d failed: %v", id, err))
	}

	page.metaMu.Lock()
	page.isDirty = false
	page.metaMu.Unlock()
	return true
}

// FlushAllPages writes back every resident page.
func (bp *BufferPoolManager) FlushAllPages() {
	bp.mu.Lock()
	ids := make([]PageID, 0, len(bp.pageTbl))
	for id := range bp.pageTbl {
		ids = append(ids, id)
	}
	bp.mu.Unlock()

	for _, id := range ids {
		bp.FlushPage(id)
	}
}

// DeletePage removes a page from the pool. If resident with pin>0 it
// refuses (false). If not resident it trivially succeeds (true). Otherwise
// it evicts without writeback, zeroes the frame, and returns it to the
// free list.
func (bp *BufferPoolManager) DeletePage(id PageID) bool {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	fid, ok := bp.pageTbl[id]
	if !ok {
		return true
	}
	page := bp.frames[fid]
	page.metaMu.Lock()
	pinned := page.pinCount > 0
	if !pinned {
		page.reset(InvalidPageID)
	}
	page.metaMu.Unlock()
	if pinned {
		return false
	}

	delete(bp.pageTbl, id)
	bp.replacer.Remove(fid)
	bp.freeList = append(bp.freeList, fid)
	return true
}
