package exec

import (
	"testing"

	"github.com/SimonWaldherr/bustubgo/internal/catalog"
	"github.com/SimonWaldherr/bustubgo/internal/storage"
	"github.com/SimonWaldherr/bustubgo/internal/txn"
	"github.com/SimonWaldherr/bustubgo/internal/types"
)

// testEnv bundles a fresh catalog/transaction-manager pair plus a running
// transaction, the minimum any operator test needs to exercise real
// buffer-pool-backed storage rather than a mock.
type testEnv struct {
	t       *testing.T
	cat     *catalog.Catalog
	txnMgr  *txn.TransactionManager
	running *txn.Transaction
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dm := storage.NewMemDiskManager(4096)
	sched := storage.NewDiskScheduler(dm)
	t.Cleanup(sched.Shutdown)
	bpm := storage.NewBufferPoolManager(64, 4096, sched, 2)
	cat := catalog.NewCatalog(bpm, 4096, 128)
	tm := txn.NewTransactionManager(cat)
	return &testEnv{t: t, cat: cat, txnMgr: tm, running: tm.Begin(txn.SnapshotIsolation)}
}

func (e *testEnv) ctx() *ExecContext {
	return &ExecContext{Catalog: e.cat, TxnMgr: e.txnMgr, Txn: e.running}
}

// createTable makes a table and inserts rows (as plain types.Tuple values
// in schema-column order) directly into the heap, committed under their
// own short-lived transaction so later scans in e.running's snapshot see
// them.
func (e *testEnv) createTable(name string, schema types.Schema, rows ...types.Tuple) *catalog.TableInfo {
	e.t.Helper()
	info, err := e.cat.CreateTable(name, schema)
	if err != nil {
		e.t.Fatalf("CreateTable(%q): %v", name, err)
	}
	writer := e.txnMgr.Begin(txn.SnapshotIsolation)
	for _, row := range rows {
		rid, err := info.Heap.InsertTuple(catalog.TupleMeta{Ts: uint64(writer.ID())}, row)
		if err != nil {
			e.t.Fatalf("InsertTuple into %q: %v", name, err)
		}
		writer.RecordWrite(info.OID, rid)
	}
	if err := e.txnMgr.Commit(writer); err != nil {
		e.t.Fatalf("commit table setup writer: %v", err)
	}
	// e.running's snapshot was taken at newTestEnv time, before this
	// commit; re-begin it so the rows just committed are visible.
	e.running = e.txnMgr.Begin(txn.SnapshotIsolation)
	return info
}

func drain(t *testing.T, ex Executor) []types.Tuple {
	t.Helper()
	if err := ex.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	var out []types.Tuple
	var tuple types.Tuple
	var rid storage.RID
	for {
		ok, err := ex.Next(&tuple, &rid)
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		if !ok {
			break
		}
		out = append(out, tuple)
	}
	return out
}
