package storage

// BasicPageGuard is an RAII handle on a pinned page: it owns the
// (bufferpool, page, dirty) triple and unpins the page when dropped.
// Guards are movable and non-copyable, per spec.md §4.4 and
// _examples/original_source/.../page_guard.cpp: Move* clears the source
// so only the destination still owns the pin.
type BasicPageGuard struct {
	bpm     *BufferPoolManager
	page    *Page
	isDirty bool
}

// NewBasicPageGuard wraps an already-pinned page.
func NewBasicPageGuard(bpm *BufferPoolManager, page *Page) BasicPageGuard {
	return BasicPageGuard{bpm: bpm, page: page}
}

// valid reports whether the guard still owns a pin.
func (g *BasicPageGuard) valid() bool { return g.bpm != nil && g.page != nil }

// PageID returns the guarded page's id, or InvalidPageID if the guard has
// been moved-from or dropped.
func (g *BasicPageGuard) PageID() PageID {
	if !g.valid() {
		return InvalidPageID
	}
	return g.page.ID()
}

// Data returns an immutable view of the page's payload.
func (g *BasicPageGuard) Data() []byte {
	return g.page.Data()
}

// DataMut returns a mutable view of the page's payload and marks the
// guard (and ultimately the page, on Drop) dirty.
func (g *BasicPageGuard) DataMut() []byte {
	g.isDirty = true
	return g.page.Data()
}

// Move transfers ownership of the pin to the returned guard, clearing the
// receiver so its eventual Drop is a no-op.
func (g *BasicPageGuard) Move() BasicPageGuard {
	out := BasicPageGuard{bpm: g.bpm, page: g.page, isDirty: g.isDirty}
	g.bpm, g.page, g.isDirty = nil, nil, false
	return out
}

// Drop unpins the page (propagating the dirty flag) and clears the guard.
// Safe to call on an already-dropped or moved-from guard.
func (g *BasicPageGuard) Drop() {
	if !g.valid() {
		return
	}
	g.bpm.UnpinPage(g.page.ID(), g.isDirty)
	g.bpm, g.page, g.isDirty = nil, nil, false
}

// UpgradeRead takes the basic guard's frame, acquires a read latch, and
// returns a ReadPageGuard, leaving the receiver empty.
func (g *BasicPageGuard) UpgradeRead() ReadPageGuard {
	page := g.page
	page.RLatch()
	inner := g.Move()
	return ReadPageGuard{basic: inner}
}

// UpgradeWrite takes the basic guard's frame, acquires a write latch, and
// returns a WritePageGuard, leaving the receiver empty.
func (g *BasicPageGuard) UpgradeWrite() WritePageGuard {
	page := g.page
	page.WLatch()
	inner := g.Move()
	return WritePageGuard{basic: inner}
}

// ReadPageGuard owns a BasicPageGuard plus a held reader latch. Dropping
// releases the latch then unpins, in that order (spec.md §4.4).
type ReadPageGuard struct {
	basic BasicPageGuard
}

func (g *ReadPageGuard) valid() bool { return g.basic.valid() }

// PageID returns the guarded page's id.
func (g *ReadPageGuard) PageID() PageID { return g.basic.PageID() }

// Data returns an immutable view of the page payload.
func (g *ReadPageGuard) Data() []byte { return g.basic.Data() }

// Move transfers ownership, clearing the receiver.
func (g *ReadPageGuard) Move() ReadPageGuard {
	out := ReadPageGuard{basic: g.basic.Move()}
	return out
}

// Drop releases the read latch, then unpins.
func (g *ReadPageGuard) Drop() {
	if !g.valid() {
		return
	}
	page := g.basic.page
	page.RUnlatch()
	g.basic.Drop()
}

// WritePageGuard owns a BasicPageGuard plus a held writer latch. Dropping
// releases the latch then unpins. Any write through DataMut implicitly
// marks the guard dirty, matching spec.md §4.4's "obtaining a mutable view
// sets is_dirty=true".
type WritePageGuard struct {
	basic BasicPageGuard
}

func (g *WritePageGuard) valid() bool { return g.basic.valid() }

// PageID returns the guarded page's id.
func (g *WritePageGuard) PageID() PageID { return g.basic.PageID() }

// Data returns an immutable view of the page payload.
func (g *WritePageGuard) Data() []byte { return g.basic.Data() }

// DataMut returns a mutable view and marks the page dirty.
func (g *WritePageGuard) DataMut() []byte { return g.basic.DataMut() }

// Move transfers ownership, clearing the receiver.
func (g *WritePageGuard) Move() WritePageGuard {
	return WritePageGuard{basic: g.basic.Move()}
}

// Drop releases the write latch, then unpins.
func (g *WritePageGuard) Drop() {
	if !g.valid() {
		return
	}
	page := g.basic.page
	page.WUnlatch()
	g.basic.Drop()
}

// FetchPageBasic fetches a page and wraps it in a BasicPageGuard. Unlike
// the stubbed guard-returning methods in
// _examples/original_source/.../buffer_pool_manager.cpp, this is a
// complete implementation: ok=false is returned only when the pool itself
// has no frame available.
func (bp *BufferPoolManager) FetchPageBasic(id PageID) (BasicPageGuard, bool) {
	page := bp.FetchPage(id)
	if page == nil {
		return BasicPageGuard{}, false
	}
	return NewBasicPageGuard(bp, page), true
}

// FetchPageRead fetches a page, read-latches it, and returns a
// ReadPageGuard.
func (bp *BufferPoolManager) FetchPageRead(id PageID) (ReadPageGuard, bool) {
	g, ok := bp.FetchPageBasic(id)
	if !ok {
		return ReadPageGuard{}, false
	}
	return g.UpgradeRead(), true
}

// FetchPageWrite fetches a page, write-latches it, and returns a
// WritePageGuard.
func (bp *BufferPoolManager) FetchPageWrite(id PageID) (WritePageGuard, bool) {
	g, ok := bp.FetchPageBasic(id)
	if !ok {
		return WritePageGuard{}, false
	}
	return g.UpgradeWrite(), true
}

// NewPageGuarded allocates a new page and returns it wrapped in a
// BasicPageGuard.
func (bp *BufferPoolManager) NewPageGuarded() (PageID, BasicPageGuard, bool) {
	id, page := bp.NewPage()
	if page == nil {
		return InvalidPageID, BasicPageGuard{}, false
	}
	return id, NewBasicPageGuard(bp, page), true
}
