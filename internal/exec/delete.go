package exec

import (
	"fmt"

	"github.com/SimonWaldherr/bustubgo/internal/catalog"
	"github.com/SimonWaldherr/bustubgo/internal/storage"
	"github.com/SimonWaldherr/bustubgo/internal/txn"
	"github.com/SimonWaldherr/bustubgo/internal/types"
)

// DeleteExecutor tombstones every row its child produces, per spec.md
// §4.7: pre-scan for conflicts before mutating anything, then apply the
// code-1/code-2 undo-log policy to each row with a delta covering every
// column. Grounded structurally on the starter shape of
// _examples/original_source/cmu2023/.../delete_executor.cpp; the MVCC
// delta/conflict handling is this repo's elaboration per
// execution_common.cpp.
type DeleteExecutor struct {
	ctx     *ExecContext
	plan    *DeletePlan
	table   *catalog.TableInfo
	child   Executor
	indexes []*catalog.IndexInfo
	done    bool
}

// NewDeleteExecutor resolves plan.TableName against ctx.Catalog.
func NewDeleteExecutor(ctx *ExecContext, plan *DeletePlan, child Executor) (*DeleteExecutor, error) {
	table, ok := ctx.Catalog.GetTableByName(plan.TableName)
	if !ok {
		return nil, fmt.Errorf("exec: delete: unknown table %q", plan.TableName)
	}
	return &DeleteExecutor{
		ctx: ctx, plan: plan, table: table, child: child,
		indexes: ctx.Catalog.GetTableIndexes(plan.TableName),
	}, nil
}

func (e *DeleteExecutor) Init() error {
	e.done = false
	return e.child.Init()
}

type pendingDelete struct {
	rid  storage.RID
	old  types.Tuple
	code int
}

func (e *DeleteExecutor) Next(tuple *types.Tuple, rid *storage.RID) (bool, error) {
	if e.done {
		return false, nil
	}
	e.done = true

	var pending []pendingDelete
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
			return false, fmt.Errorf("exec: delete: %w", err)
		}
		code, err := checkWriteConflict(e.ctx, meta)
		if err != nil {
			return false, err
		}
		pending = append(pending, pendingDelete{rid: childRID, old: childTuple, code: code})
	}

	n := e.table.Schema.ColumnCount()
	var count int64
	for _, p := range pending {
		log := txn.UndoLog{
			IsDeleted:      false,
			ModifiedFields: fullModifiedFields(n),
			Tuple:          p.old.Clone(),
		}
		if p.code == 1 {
			meta, err := e.table.Heap.GetTupleMeta(p.rid)
			if err != nil {
				return false, fmt.Errorf("exec: delete: %w", err)
			}
			log.Ts = txn.Timestamp(meta.Ts)
			log.IsDeleted = meta.IsDeleted
			e.ctx.TxnMgr.AddUndoLog(e.ctx.Txn, p.rid, log)
		} else {
			e.ctx.TxnMgr.ModifyUndoLog(e.ctx.Txn, p.rid, log, e.table.Schema)
		}

		newMeta := catalog.TupleMeta{Ts: uint64(e.ctx.Txn.ID()), IsDeleted: true}
		if err := e.table.Heap.UpdateTupleMeta(newMeta, p.rid); err != nil {
			return false, fmt.Errorf("exec: delete: %w", err)
		}
		e.ctx.Txn.RecordWrite(e.table.OID, p.rid)

		for _, idx := range e.indexes {
			key := p.old.Project(idx.KeyColumns)
			idx.Index.Remove(idx.EncodeKey(key))
		}
		count++
	}

	*tuple = types.NewTuple(types.NewInt(count))
	return true, nil
}
