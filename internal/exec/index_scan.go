package exec

import (
	"fmt"

	"github.com/SimonWaldherr/bustubgo/internal/catalog"
	"github.com/SimonWaldherr/bustubgo/internal/storage"
	"github.com/SimonWaldherr/bustubgo/internal/types"
)

// IndexScanExecutor probes an index once for plan.Key and, on a hit,
// reconstructs the single matching row at the transaction's snapshot, per
// spec.md §4.7: "probe the index once; fetch the single matching tuple's
// meta/tuple from the heap; apply the filter and visibility". Grounded
// structurally on the starter shape of
// _examples/original_source/cmu2023/.../index_scan_executor.cpp.
type IndexScanExecutor struct {
	ctx   *ExecContext
	plan  *IndexScanPlan
	table *catalog.TableInfo
	index *catalog.IndexInfo
	done  bool
}

// NewIndexScanExecutor resolves plan.TableName/IndexName against ctx.Catalog.
func NewIndexScanExecutor(ctx *ExecContext, plan *IndexScanPlan) (*IndexScanExecutor, error) {
	table, ok := ctx.Catalog.GetTableByName(plan.TableName)
	if !ok {
		return nil, fmt.Errorf("exec: index scan: unknown table %q", plan.TableName)
	}
	var index *catalog.IndexInfo
	for _, idx := range ctx.Catalog.GetTableIndexes(plan.TableName) {
		if idx.Name == plan.IndexName {
			index = idx
			break
		}
	}
	if index == nil {
		return nil, fmt.Errorf("exec: index scan: unknown index %q on table %q", plan.IndexName, plan.TableName)
	}
	return &IndexScanExecutor{ctx: ctx, plan: plan, table: table, index: index}, nil
}

func (e *IndexScanExecutor) Init() error {
	e.done = false
	return nil
}

func (e *IndexScanExecutor) Next(tuple *types.Tuple, rid *storage.RID) (bool, error) {
	if e.done {
		return false, nil
	}
	e.done = true

	r, found := e.index.Index.GetValue(e.index.EncodeKey(e.plan.Key))
	if !found {
		return false, nil
	}
	meta, base, err := e.table.Heap.GetTuple(r, e.table.Schema.ColumnCount())
	if err != nil {
		return false, nil
	}
	visible, ok := e.ctx.TxnMgr.ReadTimeTuple(r, e.ctx.Txn.ReadTs(), e.ctx.Txn.ID(), e.table.Schema, base, meta)
	if !ok {
		return false, nil
	}
	if e.plan.Filter != nil && !AsBool(e.plan.Filter.Evaluate(visible, e.table.Schema)) {
		return false, nil
	}
	*tuple = visible
	*rid = r
	return true, nil
}
