package catalog

import (
	"testing"

	"github.com/SimonWaldherr/bustubgo/internal/storage"
	"github.com/SimonWaldherr/bustubgo/internal/types"
)

func newTestHeap(t *testing.T, maxTupleBytes int) *TableHeap {
	t.Helper()
	dm := storage.NewMemDiskManager(4096)
	sched := storage.NewDiskScheduler(dm)
	t.Cleanup(sched.Shutdown)
	bpm := storage.NewBufferPoolManager(16, 4096, sched, 2)
	return NewTableHeap(bpm, 4096, maxTupleBytes)
}

func TestTableHeapInsertAndGetTuple(t *testing.T) {
	h := newTestHeap(t, 64)
	tuple := types.NewTuple(types.NewInt(42), types.NewString("hello"))

	rid, err := h.InsertTuple(TupleMeta{Ts: 1, IsDeleted: false}, tuple)
	if err != nil {
		t.Fatalf("InsertTuple: %v", err)
	}

	meta, got, err := h.GetTuple(rid, 2)
	if err != nil {
		t.Fatalf("GetTuple: %v", err)
	}
	if meta.Ts != 1 || meta.IsDeleted {
		t.Fatalf("meta = %+v, want {Ts:1 IsDeleted:false}", meta)
	}
	if got.Values[0].I != 42 || got.Values[1].S != "hello" {
		t.Fatalf("GetTuple values = %+v, want [42 hello]", got.Values)
	}
}

func TestTableHeapUpdateTupleMeta(t *testing.T) {
	h := newTestHeap(t, 32)
	rid, err := h.InsertTuple(TupleMeta{Ts: 1}, types.NewTuple(types.NewInt(1)))
	if err != nil {
		t.Fatalf("InsertTuple: %v", err)
	}

	if err := h.UpdateTupleMeta(TupleMeta{Ts: 2, IsDeleted: true}, rid); err != nil {
		t.Fatalf("UpdateTupleMeta: %v", err)
	}
	meta, err := h.GetTupleMeta(rid)
	if err != nil {
		t.Fatalf("GetTupleMeta: %v", err)
	}
	if meta.Ts != 2 || !meta.IsDeleted {
		t.Fatalf("meta after update = %+v, want {Ts:2 IsDeleted:true}", meta)
	}
}

func TestTableHeapUpdateTupleInPlace(t *testing.T) {
	h := newTestHeap(t, 32)
	rid, err := h.InsertTuple(TupleMeta{Ts: 1}, types.NewTuple(types.NewInt(1)))
	if err != nil {
		t.Fatalf("InsertTuple: %v", err)
	}

	if err := h.UpdateTupleInPlace(TupleMeta{Ts: 5}, types.NewTuple(types.NewInt(99)), rid); err != nil {
		t.Fatalf("UpdateTupleInPlace: %v", err)
	}
	meta, got, err := h.GetTuple(rid, 1)
	if err != nil {
		t.Fatalf("GetTuple: %v", err)
	}
	if meta.Ts != 5 || got.Values[0].I != 99 {
		t.Fatalf("GetTuple after in-place update = (%+v, %+v), want (Ts:5, [99])", meta, got.Values)
	}
}

func TestTableHeapInsertTooLarge(t *testing.T) {
	h := newTestHeap(t, 4)
	_, err := h.InsertTuple(TupleMeta{Ts: 1}, types.NewTuple(types.NewString("this definitely does not fit in four bytes")))
	if err == nil {
		t.Fatal("InsertTuple with an oversized tuple should fail")
	}
}

func TestTableHeapGetTupleUnknownRID(t *testing.T) {
	h := newTestHeap(t, 32)
	_, _, err := h.GetTuple(storage.RID{PageID: 9999, Slot: 0}, 1)
	if err != ErrRIDNotFound {
		t.Fatalf("GetTuple on unknown page = %v, want ErrRIDNotFound", err)
	}
}

func TestTableIteratorWalksAllInsertedTuples(t *testing.T) {
	h := newTestHeap(t, 32)
	var rids []storage.RID
	for i := 0; i < 5; i++ {
		rid, err := h.InsertTuple(TupleMeta{Ts: uint64(i)}, types.NewTuple(types.NewInt(int64(i))))
		if err != nil {
			t.Fatalf("InsertTuple #%d: %v", i, err)
		}
		rids = append(rids, rid)
	}

	it := h.Iterator()
	var seen []int64
	for {
		rid, ok := it.Next()
		if !ok {
			break
		}
		_, tuple, err := h.GetTuple(rid, 1)
		if err != nil {
			t.Fatalf("GetTuple during iteration: %v", err)
		}
		seen = append(seen, tuple.Values[0].I)
	}

	if len(seen) != 5 {
		t.Fatalf("iterator visited %d tuples, want 5", len(seen))
	}
	for i, v := range seen {
		if v != int64(i) {
			t.Fatalf("seen[%d] = %d, want %d", i, v, i)
		}
	}
}

// TestTableHeapAllocatesNewPageWhenFull forces slotsPerPage to a small
// number (maxTupleBytes large relative to 4096) so a handful of inserts
// spans multiple pages, exercising allocatePage.
func TestTableHeapAllocatesNewPageWhenFull(t *testing.T) {
	h := newTestHeap(t, 2000) // 2 slots per 4096-byte page
	var rids []storage.RID
	for i := 0; i < 3; i++ {
		rid, err := h.InsertTuple(TupleMeta{Ts: uint64(i)}, types.NewTuple(types.NewInt(int64(i))))
		if err != nil {
			t.Fatalf("InsertTuple #%d: %v", i, err)
		}
		rids = append(rids, rid)
	}
	pages := map[storage.PageID]bool{}
	for _, r := range rids {
		pages[r.PageID] = true
	}
	if len(pages) < 2 {
		t.Fatalf("expected inserts to span multiple pages with maxTupleBytes=2000, got %d distinct pages", len(pages))
	}
}
