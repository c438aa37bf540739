package txn

import (
	"errors"
	"testing"

	"github.com/SimonWaldherr/bustubgo/internal/catalog"
	"github.com/SimonWaldherr/bustubgo/internal/storage"
	"github.com/SimonWaldherr/bustubgo/internal/types"
)

func newTestEnv(t *testing.T) (*catalog.Catalog, *TransactionManager) {
	t.Helper()
	dm := storage.NewMemDiskManager(4096)
	sched := storage.NewDiskScheduler(dm)
	t.Cleanup(sched.Shutdown)
	bpm := storage.NewBufferPoolManager(32, 4096, sched, 2)
	cat := catalog.NewCatalog(bpm, 4096, 64)
	return cat, NewTransactionManager(cat)
}

func TestBeginCommitLifecycle(t *testing.T) {
	_, tm := newTestEnv(t)
	txn1 := tm.Begin(SnapshotIsolation)
	if txn1.State() != StateRunning {
		t.Fatalf("new txn state = %v, want RUNNING", txn1.State())
	}
	if err := tm.Commit(txn1); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if txn1.State() != StateCommitted {
		t.Fatalf("state after Commit = %v, want COMMITTED", txn1.State())
	}
	if txn1.CommitTs() == 0 {
		t.Fatal("CommitTs() == 0 after a successful commit")
	}
}

func TestCommitOnNonRunningFails(t *testing.T) {
	_, tm := newTestEnv(t)
	txn1 := tm.Begin(SnapshotIsolation)
	tm.Commit(txn1)
	if err := tm.Commit(txn1); !errors.Is(err, ErrTxnNotRunning) {
		t.Fatalf("second Commit() = %v, want ErrTxnNotRunning", err)
	}
}

func TestAbortFromRunning(t *testing.T) {
	_, tm := newTestEnv(t)
	txn1 := tm.Begin(SnapshotIsolation)
	tm.Abort(txn1)
	if txn1.State() != StateAborted {
		t.Fatalf("state after Abort = %v, want ABORTED", txn1.State())
	}
}

func TestAbortFromTainted(t *testing.T) {
	_, tm := newTestEnv(t)
	txn1 := tm.Begin(SnapshotIsolation)
	txn1.SetTainted()
	tm.Abort(txn1)
	if txn1.State() != StateAborted {
		t.Fatalf("state after Abort from TAINTED = %v, want ABORTED", txn1.State())
	}
}

func TestAbortFromCommittedPanics(t *testing.T) {
	_, tm := newTestEnv(t)
	txn1 := tm.Begin(SnapshotIsolation)
	tm.Commit(txn1)
	defer func() {
		if recover() == nil {
			t.Fatal("Abort on an already-COMMITTED txn should panic")
		}
	}()
	tm.Abort(txn1)
}

// TestWriteWriteConflict is spec.md §8 scenario 4: txn C takes its
// read_ts snapshot before txn B's commit, then txn B commits a write to
// a row txn A inserted; txn C's subsequent CheckWriteConflict against the
// new meta must report conflict (code 0).
func TestWriteWriteConflict(t *testing.T) {
	cat, tm := newTestEnv(t)
	cat.CreateTable("t", types.NewSchema(types.Column{Name: "v", Kind: types.KindInt}))
	table, _ := cat.GetTableByName("t")

	txnA := tm.Begin(SnapshotIsolation)

	rid, err := table.Heap.InsertTuple(catalog.TupleMeta{Ts: uint64(txnA.ID())}, types.NewTuple(types.NewInt(1)))
	if err != nil {
		t.Fatalf("InsertTuple: %v", err)
	}
	txnA.RecordWrite(table.OID, rid)
	if err := tm.Commit(txnA); err != nil {
		t.Fatalf("Commit txnA: %v", err)
	}

	txnB := tm.Begin(SnapshotIsolation) // snapshot after txnA's commit
	txnC := tm.Begin(SnapshotIsolation) // snapshot before txnB's commit is relevant below

	meta, err := table.Heap.GetTupleMeta(rid)
	if err != nil {
		t.Fatalf("GetTupleMeta: %v", err)
	}
	if code := CheckWriteConflict(txnB.ID(), txnB.ReadTs(), meta); code != 1 {
		t.Fatalf("CheckWriteConflict for txnB before any concurrent write = %d, want 1 (append)", code)
	}

	meta.Ts = uint64(txnB.ID())
	if err := table.Heap.UpdateTupleMeta(meta, rid); err != nil {
		t.Fatalf("UpdateTupleMeta: %v", err)
	}
	txnB.RecordWrite(table.OID, rid)
	if err := tm.Commit(txnB); err != nil {
		t.Fatalf("Commit txnB: %v", err)
	}

	metaAfterB, err := table.Heap.GetTupleMeta(rid)
	if err != nil {
		t.Fatalf("GetTupleMeta after txnB commit: %v", err)
	}
	if code := CheckWriteConflict(txnC.ID(), txnC.ReadTs(), metaAfterB); code != 0 {
		t.Fatalf("CheckWriteConflict for txnC (snapshot before txnB's commit) against txnB's committed write = %d, want 0 (conflict)", code)
	}
}

// TestSnapshotReadDoesNotSeeUncommittedWrite is spec.md §8 scenario 3:
// a reader's snapshot predates a concurrent writer's in-progress change,
// so ReadTimeTuple must reconstruct the prior committed version via the
// undo log rather than exposing the writer's uncommitted tuple.
func TestSnapshotReadDoesNotSeeUncommittedWrite(t *testing.T) {
	cat, tm := newTestEnv(t)
	schema := types.NewSchema(types.Column{Name: "v", Kind: types.KindInt})
	cat.CreateTable("t", schema)
	table, _ := cat.GetTableByName("t")

	writer := tm.Begin(SnapshotIsolation)
	rid, err := table.Heap.InsertTuple(catalog.TupleMeta{Ts: uint64(writer.ID())}, types.NewTuple(types.NewInt(100)))
	if err != nil {
		t.Fatalf("InsertTuple: %v", err)
	}
	writer.RecordWrite(table.OID, rid)
	if err := tm.Commit(writer); err != nil {
		t.Fatalf("Commit writer: %v", err)
	}

	reader := tm.Begin(SnapshotIsolation) // snapshot after the first commit

	updater := tm.Begin(SnapshotIsolation)
	oldMeta, err := table.Heap.GetTupleMeta(rid)
	if err != nil {
		t.Fatalf("GetTupleMeta: %v", err)
	}
	_, oldTuple, err := table.Heap.GetTuple(rid, 1)
	if err != nil {
		t.Fatalf("GetTuple: %v", err)
	}
	tm.AddUndoLog(updater, rid, UndoLog{
		Ts:             Timestamp(oldMeta.Ts),
		IsDeleted:      false,
		ModifiedFields: []bool{true},
		Tuple:          oldTuple,
	})
	newMeta := catalog.TupleMeta{Ts: uint64(updater.ID())}
	if err := table.Heap.UpdateTupleInPlace(newMeta, types.NewTuple(types.NewInt(200)), rid); err != nil {
		t.Fatalf("UpdateTupleInPlace: %v", err)
	}
	updater.RecordWrite(table.OID, rid)
	// updater deliberately left uncommitted.

	baseMeta, err := table.Heap.GetTupleMeta(rid)
	if err != nil {
		t.Fatalf("GetTupleMeta after updater's in-place write: %v", err)
	}
	_, baseTuple, err := table.Heap.GetTuple(rid, 1)
	if err != nil {
		t.Fatalf("GetTuple after updater's in-place write: %v", err)
	}

	got, ok := tm.ReadTimeTuple(rid, reader.ReadTs(), reader.ID(), schema, baseTuple, baseMeta)
	if !ok {
		t.Fatal("ReadTimeTuple ok=false, want the pre-update committed version to be visible")
	}
	if got.Values[0].I != 100 {
		t.Fatalf("ReadTimeTuple = %d, want 100 (the version committed before reader's snapshot)", got.Values[0].I)
	}
}

// TestGarbageCollectionReclaimsUnreferencedTxn is spec.md §8 scenario 6:
// once the watermark has advanced past every undo log for a row, and its
// owning transaction is COMMITTED, GarbageCollection must evict that
// transaction from the manager's tracked set.
func TestGarbageCollectionReclaimsUnreferencedTxn(t *testing.T) {
	cat, tm := newTestEnv(t)
	schema := types.NewSchema(types.Column{Name: "v", Kind: types.KindInt})
	cat.CreateTable("t", schema)
	table, _ := cat.GetTableByName("t")

	writer := tm.Begin(SnapshotIsolation)
	rid, err := table.Heap.InsertTuple(catalog.TupleMeta{Ts: uint64(writer.ID())}, types.NewTuple(types.NewInt(1)))
	if err != nil {
		t.Fatalf("InsertTuple: %v", err)
	}
	writer.RecordWrite(table.OID, rid)
	if err := tm.Commit(writer); err != nil {
		t.Fatalf("Commit writer: %v", err)
	}

	updater := tm.Begin(SnapshotIsolation)
	oldMeta, _ := table.Heap.GetTupleMeta(rid)
	_, oldTuple, _ := table.Heap.GetTuple(rid, 1)
	tm.AddUndoLog(updater, rid, UndoLog{
		Ts:             Timestamp(oldMeta.Ts),
		ModifiedFields: []bool{true},
		Tuple:          oldTuple,
	})
	table.Heap.UpdateTupleInPlace(catalog.TupleMeta{Ts: uint64(updater.ID())}, types.NewTuple(types.NewInt(2)), rid)
	updater.RecordWrite(table.OID, rid)
	if err := tm.Commit(updater); err != nil {
		t.Fatalf("Commit updater: %v", err)
	}

	if _, ok := tm.GetTransaction(updater.ID()); !ok {
		t.Fatal("updater should still be tracked immediately after its own commit")
	}

	tm.GarbageCollection()

	if _, ok := tm.GetTransaction(updater.ID()); ok {
		t.Fatal("GarbageCollection should have reclaimed updater: watermark has advanced past its only undo log and it is COMMITTED")
	}
}
