package exec

import (
	"fmt"

	"github.com/SimonWaldherr/bustubgo/internal/catalog"
	"github.com/SimonWaldherr/bustubgo/internal/storage"
	"github.com/SimonWaldherr/bustubgo/internal/txn"
	"github.com/SimonWaldherr/bustubgo/internal/types"
)

// UpdateExecutor recomputes each child row via plan.TargetExprs and
// writes the result back in place, per spec.md §4.7: pre-scan for
// conflicts, skip rows the new tuple leaves unchanged, build a compact
// delta of only the changed columns, apply the code-1/code-2 policy, then
// rewrite the row and its index entries. Grounded structurally on the
// starter shape of
// _examples/original_source/cmu2023/.../update_executor.cpp; the MVCC
// delta/conflict handling is this repo's elaboration per
// execution_common.cpp.
type UpdateExecutor struct {
	ctx     *ExecContext
	plan    *UpdatePlan
	table   *catalog.TableInfo
	child   Executor
	indexes []*catalog.IndexInfo
	done    bool
}

// NewUpdateExecutor resolves plan.TableName against ctx.Catalog.
func NewUpdateExecutor(ctx *ExecContext, plan *UpdatePlan, child Executor) (*UpdateExecutor, error) {
	table, ok := ctx.Catalog.GetTableByName(plan.TableName)
	if !ok {
		return nil, fmt.Errorf("exec: update: unknown table %q", plan.TableName)
	}
	if len(plan.TargetExprs) != table.Schema.ColumnCount() {
		return nil, fmt.Errorf("exec: update: %d target expressions for %d columns", len(plan.TargetExprs), table.Schema.ColumnCount())
	}
	return &UpdateExecutor{
		ctx: ctx, plan: plan, table: table, child: child,
		indexes: ctx.Catalog.GetTableIndexes(plan.TableName),
	}, nil
}

func (e *UpdateExecutor) Init() error {
	e.done = false
	return e.child.Init()
}

type pendingUpdate struct {
	rid  storage.RID
	old  types.Tuple
	new_ types.Tuple
	code int
}

func (e *UpdateExecutor) Next(tuple *types.Tuple, rid *storage.RID) (bool, error) {
	if e.done {
		return false, nil
	}
	e.done = true

	var pending []pendingUpdate
	var childTuple types.Tuple
	var childRID storage.RID
	for {
		ok, err := e.child.Next(&childTuple, &childRID)
		if err != nil {
			return false, err
		}
		if !ok {
			break
		}
		meta, err := e.table.Heap.GetTupleMeta(childRID)
		if err != nil {
			return false, fmt.Errorf("exec: update: %w", err)
		}
		code, err := checkWriteConflict(e.ctx, meta)
		if err != nil {
			return false, err
		}
		newRow := e.evaluateNewRow(childTuple)
		pending = append(pending, pendingUpdate{rid: childRID, old: childTuple, new_: newRow, code: code})
	}

	var count int64
	for _, p := range pending {
		if tuplesEqual(p.old, p.new_) {
			continue
		}

		changed := fullModifiedFields(e.table.Schema.ColumnCount())
		var deltaValues []types.Value
		for i := range p.old.Values {
			if valuesIdentical(p.old.Values[i], p.new_.Values[i]) {
				changed[i] = false
			} else {
				deltaValues = append(deltaValues, p.old.Values[i])
			}
		}
		log := txn.UndoLog{ModifiedFields: changed, Tuple: types.Tuple{Values: deltaValues}}

		if p.code == 1 {
			meta, err := e.table.Heap.GetTupleMeta(p.rid)
			if err != nil {
				return false, fmt.Errorf("exec: update: %w", err)
			}
			log.Ts = txn.Timestamp(meta.Ts)
			log.IsDeleted = meta.IsDeleted
			e.ctx.TxnMgr.AddUndoLog(e.ctx.Txn, p.rid, log)
		} else {
			e.ctx.TxnMgr.ModifyUndoLog(e.ctx.Txn, p.rid, log, e.table.Schema)
		}

		newMeta := catalog.TupleMeta{Ts: uint64(e.ctx.Txn.ID()), IsDeleted: false}
		if err := e.table.Heap.UpdateTupleInPlace(newMeta, p.new_, p.rid); err != nil {
			return false, fmt.Errorf("exec: update: %w", err)
		}
		e.ctx.Txn.RecordWrite(e.table.OID, p.rid)

		for _, idx := range e.indexes {
			oldKey := p.old.Project(idx.KeyColumns)
			newKey := p.new_.Project(idx.KeyColumns)
			idx.Index.Remove(idx.EncodeKey(oldKey))
			idx.Index.Insert(idx.EncodeKey(newKey), p.rid)
		}
		count++
	}

	*tuple = types.NewTuple(types.NewInt(count))
	return true, nil
}

func (e *UpdateExecutor) evaluateNewRow(old types.Tuple) types.Tuple {
	values := make([]types.Value, len(e.plan.TargetExprs))
	for i, expr := range e.plan.TargetExprs {
		values[i] = expr.Evaluate(old, e.table.Schema)
	}
	return types.Tuple{Values: values}
}

func valuesIdentical(a, b types.Value) bool {
	if a.Kind != b.Kind {
		return false
	}
	if a.Kind == types.KindNull {
		return true
	}
	return types.Equals(a, b)
}

func tuplesEqual(a, b types.Tuple) bool {
	if len(a.Values) != len(b.Values) {
		return false
	}
	for i := range a.Values {
		if !valuesIdentical(a.Values[i], b.Values[i]) {
			return false
		}
	}
	return true
}
