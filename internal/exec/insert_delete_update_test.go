package exec

import (
	"errors"
	"testing"

	"github.com/SimonWaldherr/bustubgo/internal/storage"
	"github.com/SimonWaldherr/bustubgo/internal/txn"
	"github.com/SimonWaldherr/bustubgo/internal/types"
)

// literalExecutor feeds a fixed row list, used to drive Insert/Update/
// Delete's child in tests without a full plan tree.
type literalExecutor struct {
	rows []types.Tuple
	pos  int
}

func (e *literalExecutor) Init() error { e.pos = 0; return nil }
func (e *literalExecutor) Next(tuple *types.Tuple, rid *storage.RID) (bool, error) {
	if e.pos >= len(e.rows) {
		return false, nil
	}
	*tuple = e.rows[e.pos]
	*rid = storage.InvalidRID
	e.pos++
	return true, nil
}

func TestInsertExecutorWritesRowsAndReportsCount(t *testing.T) {
	env := newTestEnv(t)
	schema := peopleSchema()
	info, err := env.cat.CreateTable("people", schema)
	if err != nil {
		t.Fatalf("CreateTable: %v", err)
	}

	child := &literalExecutor{rows: []types.Tuple{
		types.NewTuple(types.NewInt(1), types.NewString("alice")),
		types.NewTuple(types.NewInt(2), types.NewString("bob")),
	}}
	plan := &InsertPlan{OutputSchema: types.NewSchema(types.Column{Name: "count", Kind: types.KindInt}), TableName: "people"}
	ex, err := NewInsertExecutor(env.ctx(), plan, child)
	if err != nil {
		t.Fatalf("NewInsertExecutor: %v", err)
	}

	rows := drain(t, ex)
	if len(rows) != 1 || rows[0].Values[0].I != 2 {
		t.Fatalf("insert summary row = %+v, want [2]", rows)
	}

	it := info.Heap.Iterator()
	var n int
	for {
		if _, ok := it.Next(); !ok {
			break
		}
		n++
	}
	if n != 2 {
		t.Fatalf("heap holds %d rows after insert, want 2", n)
	}
}

func TestInsertExecutorPrimaryKeyViolation(t *testing.T) {
	env := newTestEnv(t)
	schema := peopleSchema()
	env.createTable("people", schema, types.NewTuple(types.NewInt(1), types.NewString("alice")))
	if _, err := env.cat.CreateIndex("people_pk", "people", []int{0}, true, 0, 2, 4); err != nil {
		t.Fatalf("CreateIndex: %v", err)
	}
	table, _ := env.cat.GetTableByName("people")
	pkIdx := env.cat.PrimaryKeyIndex("people")
	it := table.Heap.Iterator()
	for {
		rid, ok := it.Next()
		if !ok {
			break
		}
		_, tup, _ := table.Heap.GetTuple(rid, 2)
		pkIdx.Index.Insert(pkIdx.EncodeKey(tup.Project(pkIdx.KeyColumns)), rid)
	}

	child := &literalExecutor{rows: []types.Tuple{types.NewTuple(types.NewInt(1), types.NewString("dup"))}}
	plan := &InsertPlan{TableName: "people"}
	ex, err := NewInsertExecutor(env.ctx(), plan, child)
	if err != nil {
		t.Fatalf("NewInsertExecutor: %v", err)
	}
	if err := ex.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	var tuple types.Tuple
	var rid storage.RID
	_, err = ex.Next(&tuple, &rid)
	if !errors.Is(err, ErrPrimaryKeyViolation) {
		t.Fatalf("Next() error = %v, want ErrPrimaryKeyViolation", err)
	}
	if env.running.State() != txn.StateTainted {
		t.Fatalf("txn state after PK violation = %v, want TAINTED", env.running.State())
	}
}

// TestUpdateExecutorAfterInsertInSameTransaction covers an INSERT
// followed by an UPDATE of that same row within one still-open
// transaction: the row's meta.Ts already names this txn (code 2,
// "modify"), but the insert never created an undo log, so the modify
// step must no-op rather than panic.
func TestUpdateExecutorAfterInsertInSameTransaction(t *testing.T) {
	env := newTestEnv(t)
	schema := peopleSchema()
	if _, err := env.cat.CreateTable("people", schema); err != nil {
		t.Fatalf("CreateTable: %v", err)
	}

	insChild := &literalExecutor{rows: []types.Tuple{types.NewTuple(types.NewInt(1), types.NewString("alice"))}}
	insEx, err := NewInsertExecutor(env.ctx(), &InsertPlan{TableName: "people"}, insChild)
	if err != nil {
		t.Fatalf("NewInsertExecutor: %v", err)
	}
	if rows := drain(t, insEx); len(rows) != 1 || rows[0].Values[0].I != 1 {
		t.Fatalf("insert summary row = %+v, want [1]", rows)
	}

	scanEx, err := NewSeqScanExecutor(env.ctx(), &SeqScanPlan{OutputSchema: schema, TableName: "people"})
	if err != nil {
		t.Fatalf("NewSeqScanExecutor: %v", err)
	}
	plan := &UpdatePlan{
		TableName: "people",
		TargetExprs: []Expression{
			ColumnExpr{ColIdx: 0},
			ConstExpr{Value: types.NewString("ALICE")},
		},
	}
	updEx, err := NewUpdateExecutor(env.ctx(), plan, scanEx)
	if err != nil {
		t.Fatalf("NewUpdateExecutor: %v", err)
	}

	rows := drain(t, updEx)
	if len(rows) != 1 || rows[0].Values[0].I != 1 {
		t.Fatalf("update summary row = %+v, want [1]", rows)
	}
	if env.running.State() != txn.StateRunning {
		t.Fatalf("txn state after insert+update of the same row = %v, want RUNNING", env.running.State())
	}

	if err := env.txnMgr.Commit(env.running); err != nil {
		t.Fatalf("commit: %v", err)
	}
	verify := env.txnMgr.Begin(txn.SnapshotIsolation)
	verifyCtx := &ExecContext{Catalog: env.cat, TxnMgr: env.txnMgr, Txn: verify}
	scan2, _ := NewSeqScanExecutor(verifyCtx, &SeqScanPlan{OutputSchema: schema, TableName: "people"})
	after := drain(t, scan2)
	if len(after) != 1 || after[0].Values[1].S != "ALICE" {
		t.Fatalf("rows after insert+update+commit = %+v, want name ALICE", after)
	}
}

// TestDeleteExecutorAfterInsertInSameTransaction mirrors
// TestUpdateExecutorAfterInsertInSameTransaction for DELETE: the row's
// meta.Ts already names this txn (code 2), and the insert created no
// undo log to modify.
func TestDeleteExecutorAfterInsertInSameTransaction(t *testing.T) {
	env := newTestEnv(t)
	schema := peopleSchema()
	if _, err := env.cat.CreateTable("people", schema); err != nil {
		t.Fatalf("CreateTable: %v", err)
	}

	insChild := &literalExecutor{rows: []types.Tuple{types.NewTuple(types.NewInt(1), types.NewString("alice"))}}
	insEx, err := NewInsertExecutor(env.ctx(), &InsertPlan{TableName: "people"}, insChild)
	if err != nil {
		t.Fatalf("NewInsertExecutor: %v", err)
	}
	if rows := drain(t, insEx); len(rows) != 1 || rows[0].Values[0].I != 1 {
		t.Fatalf("insert summary row = %+v, want [1]", rows)
	}

	scanEx, err := NewSeqScanExecutor(env.ctx(), &SeqScanPlan{OutputSchema: schema, TableName: "people"})
	if err != nil {
		t.Fatalf("NewSeqScanExecutor: %v", err)
	}
	delEx, err := NewDeleteExecutor(env.ctx(), &DeletePlan{TableName: "people"}, scanEx)
	if err != nil {
		t.Fatalf("NewDeleteExecutor: %v", err)
	}

	rows := drain(t, delEx)
	if len(rows) != 1 || rows[0].Values[0].I != 1 {
		t.Fatalf("delete summary row = %+v, want [1]", rows)
	}
	if env.running.State() != txn.StateRunning {
		t.Fatalf("txn state after insert+delete of the same row = %v, want RUNNING", env.running.State())
	}

	if err := env.txnMgr.Commit(env.running); err != nil {
		t.Fatalf("commit: %v", err)
	}
	verify := env.txnMgr.Begin(txn.SnapshotIsolation)
	verifyCtx := &ExecContext{Catalog: env.cat, TxnMgr: env.txnMgr, Txn: verify}
	scan2, _ := NewSeqScanExecutor(verifyCtx, &SeqScanPlan{OutputSchema: schema, TableName: "people"})
	remaining := drain(t, scan2)
	if len(remaining) != 0 {
		t.Fatalf("remaining visible rows after insert+delete+commit = %+v, want none", remaining)
	}
}

func TestDeleteExecutorTombstonesRows(t *testing.T) {
	env := newTestEnv(t)
	schema := peopleSchema()
	env.createTable("people", schema,
		types.NewTuple(types.NewInt(1), types.NewString("alice")),
		types.NewTuple(types.NewInt(2), types.NewString("bob")),
	)

	scanEx, err := NewSeqScanExecutor(env.ctx(), &SeqScanPlan{OutputSchema: schema, TableName: "people"})
	if err != nil {
		t.Fatalf("NewSeqScanExecutor: %v", err)
	}
	plan := &DeletePlan{TableName: "people"}
	delEx, err := NewDeleteExecutor(env.ctx(), plan, scanEx)
	if err != nil {
		t.Fatalf("NewDeleteExecutor: %v", err)
	}

	rows := drain(t, delEx)
	if len(rows) != 1 || rows[0].Values[0].I != 2 {
		t.Fatalf("delete summary row = %+v, want [2]", rows)
	}

	if err := env.txnMgr.Commit(env.running); err != nil {
		t.Fatalf("commit delete txn: %v", err)
	}
	verify := env.txnMgr.Begin(txn.SnapshotIsolation)
	verifyCtx := &ExecContext{Catalog: env.cat, TxnMgr: env.txnMgr, Txn: verify}
	scan2, _ := NewSeqScanExecutor(verifyCtx, &SeqScanPlan{OutputSchema: schema, TableName: "people"})
	remaining := drain(t, scan2)
	if len(remaining) != 0 {
		t.Fatalf("remaining visible rows after delete+commit = %+v, want none", remaining)
	}
}

func TestUpdateExecutorRewritesChangedRow(t *testing.T) {
	env := newTestEnv(t)
	schema := peopleSchema()
	env.createTable("people", schema,
		types.NewTuple(types.NewInt(1), types.NewString("alice")),
	)

	scanEx, err := NewSeqScanExecutor(env.ctx(), &SeqScanPlan{OutputSchema: schema, TableName: "people"})
	if err != nil {
		t.Fatalf("NewSeqScanExecutor: %v", err)
	}
	plan := &UpdatePlan{
		TableName: "people",
		TargetExprs: []Expression{
			ColumnExpr{ColIdx: 0},
			ConstExpr{Value: types.NewString("ALICE")},
		},
	}
	updEx, err := NewUpdateExecutor(env.ctx(), plan, scanEx)
	if err != nil {
		t.Fatalf("NewUpdateExecutor: %v", err)
	}

	rows := drain(t, updEx)
	if len(rows) != 1 || rows[0].Values[0].I != 1 {
		t.Fatalf("update summary row = %+v, want [1]", rows)
	}

	if err := env.txnMgr.Commit(env.running); err != nil {
		t.Fatalf("commit update txn: %v", err)
	}
	verify := env.txnMgr.Begin(txn.SnapshotIsolation)
	verifyCtx := &ExecContext{Catalog: env.cat, TxnMgr: env.txnMgr, Txn: verify}
	scan2, _ := NewSeqScanExecutor(verifyCtx, &SeqScanPlan{OutputSchema: schema, TableName: "people"})
	after := drain(t, scan2)
	if len(after) != 1 || after[0].Values[1].S != "ALICE" {
		t.Fatalf("rows after update+commit = %+v, want name ALICE", after)
	}
}
