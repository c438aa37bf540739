package exec

import (
	"fmt"

	"github.com/SimonWaldherr/bustubgo/internal/catalog"
	"github.com/SimonWaldherr/bustubgo/internal/storage"
	"github.com/SimonWaldherr/bustubgo/internal/types"
)

// SeqScanExecutor iterates a table heap in RID order, reconstructing each
// row at the transaction's snapshot and skipping absent or filter-failing
// tuples, per spec.md §4.7. Grounded structurally on the starter shape of
// _examples/original_source/cmu2023/.../seq_scan_executor.cpp (the
// Init/Next loop over a TableIterator), with the MVCC visibility check
// itself grounded on execution_common.cpp/transaction_manager.cpp's
// ReadTimeTuple contract.
type SeqScanExecutor struct {
	ctx    *ExecContext
	plan   *SeqScanPlan
	table  *catalog.TableInfo
	it     *catalog.TableIterator
}

// NewSeqScanExecutor resolves plan.TableName against ctx.Catalog.
func NewSeqScanExecutor(ctx *ExecContext, plan *SeqScanPlan) (*SeqScanExecutor, error) {
	table, ok := ctx.Catalog.GetTableByName(plan.TableName)
	if !ok {
		return nil, fmt.Errorf("exec: seq scan: unknown table %q", plan.TableName)
	}
	return &SeqScanExecutor{ctx: ctx, plan: plan, table: table}, nil
}

func (e *SeqScanExecutor) Init() error {
	e.it = e.table.Heap.Iterator()
	return nil
}

func (e *SeqScanExecutor) Next(tuple *types.Tuple, rid *storage.RID) (bool, error) {
	for {
		r, ok := e.it.Next()
		if !ok {
			return false, nil
		}
		meta, base, err := e.table.Heap.GetTuple(r, e.table.Schema.ColumnCount())
		if err != nil {
			continue
		}
		visible, ok := e.ctx.TxnMgr.ReadTimeTuple(r, e.ctx.Txn.ReadTs(), e.ctx.Txn.ID(), e.table.Schema, base, meta)
		if !ok {
			continue
		}
		if e.plan.Filter != nil && !AsBool(e.plan.Filter.Evaluate(visible, e.table.Schema)) {
			continue
		}
		*tuple = visible
		*rid = r
		return true, nil
	}
}
