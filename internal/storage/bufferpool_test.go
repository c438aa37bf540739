package storage

import (
	"bytes"
	"testing"
)

func newTestPool(t *testing.T, numFrames, k int) (*BufferPoolManager, *DiskScheduler) {
	t.Helper()
	dm := NewMemDiskManager(4096)
	sched := NewDiskScheduler(dm)
	t.Cleanup(sched.Shutdown)
	return NewBufferPoolManager(numFrames, 4096, sched, k), sched
}

// TestBufferPoolEvictionScenario is spec.md §8 end-to-end scenario 1: pool
// size 3, K=2; allocate and unpin three pages, then a fourth NewPage must
// evict the greatest-K-distance frame and reloading the evicted pages
// must return their original content.
func TestBufferPoolEvictionScenario(t *testing.T) {
	bp, _ := newTestPool(t, 3, 2)

	var ids []PageID
	for i := 0; i < 3; i++ {
		id, page := bp.NewPage()
		if page == nil {
			t.Fatalf("NewPage() #%d returned nil", i)
		}
		copy(page.Data(), bytes.Repeat([]byte{byte(i + 1)}, 4096))
		ids = append(ids, id)
	}
	for _, id := range ids {
		if !bp.UnpinPage(id, true) {
			t.Fatalf("UnpinPage(%d) failed", id)
		}
	}

	id4, page4 := bp.NewPage()
	if page4 == nil {
		t.Fatal("NewPage() for the 4th page returned nil: pool should have evicted a victim")
	}
	bp.UnpinPage(id4, false)

	// Every original page must still be fetchable with identical content.
	for i, id := range ids {
		page := bp.FetchPage(id)
		if page == nil {
			t.Fatalf("FetchPage(%d) returned nil after eviction", id)
		}
		want := bytes.Repeat([]byte{byte(i + 1)}, 4096)
		if !bytes.Equal(page.Data(), want) {
			t.Fatalf("page %d content mismatch after reload", id)
		}
		bp.UnpinPage(id, false)
	}
}

func TestBufferPoolNewPageFailsWhenExhausted(t *testing.T) {
	bp, _ := newTestPool(t, 2, 2)

	id1, _ := bp.NewPage()
	id2, _ := bp.NewPage()
	if id1 == InvalidPageID || id2 == InvalidPageID {
		t.Fatal("expected two successful NewPage calls")
	}
	// Both pages remain pinned; no frame can be freed or evicted.
	if _, p := bp.NewPage(); p != nil {
		t.Fatal("NewPage() should fail: all frames pinned, nothing evictable")
	}
}

func TestBufferPoolUnpinPageRejectsNonResident(t *testing.T) {
	bp, _ := newTestPool(t, 2, 2)
	if bp.UnpinPage(999, false) {
		t.Fatal("UnpinPage on a non-resident page should return false")
	}
}

func TestBufferPoolDeletePage(t *testing.T) {
	bp, _ := newTestPool(t, 2, 2)
	id, _ := bp.NewPage()

	if bp.DeletePage(id) {
		t.Fatal("DeletePage on a pinned page should return false")
	}
	bp.UnpinPage(id, false)
	if !bp.DeletePage(id) {
		t.Fatal("DeletePage on an unpinned resident page should succeed")
	}
	if !bp.DeletePage(id) {
		t.Fatal("DeletePage on an already-absent page should trivially succeed")
	}
}

func TestBufferPoolFlushPage(t *testing.T) {
	bp, _ := newTestPool(t, 2, 2)
	id, page := bp.NewPage()
	copy(page.Data(), []byte("hello"))
	bp.UnpinPage(id, true)

	if !bp.FlushPage(id) {
		t.Fatal("FlushPage should succeed on a resident page")
	}
	if page.IsDirty() {
		t.Fatal("FlushPage should clear the dirty flag")
	}
}
