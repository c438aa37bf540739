package exec

import (
	"errors"
	"fmt"

	"github.com/SimonWaldherr/bustubgo/internal/catalog"
	"github.com/SimonWaldherr/bustubgo/internal/storage"
	"github.com/SimonWaldherr/bustubgo/internal/types"
)

// ErrPrimaryKeyViolation is raised when an Insert's row collides with an
// existing primary-key value, per spec.md §4.7: "a hit sets TAINTED and
// throws".
var ErrPrimaryKeyViolation = errors.New("exec: primary key violation")

// InsertExecutor writes every row its child produces into a table, per
// spec.md §4.7. Inserts never create undo logs since no prior version
// exists. Grounded structurally on the starter shape of
// _examples/original_source/cmu2023/.../insert_executor.cpp; the
// primary-key check and index maintenance are this repo's MVCC-aware
// elaboration of that starter, per spec.md §4.7.
type InsertExecutor struct {
	ctx     *ExecContext
	plan    *InsertPlan
	table   *catalog.TableInfo
	child   Executor
	indexes []*catalog.IndexInfo
	done    bool
}

// NewInsertExecutor resolves plan.TableName against ctx.Catalog.
func NewInsertExecutor(ctx *ExecContext, plan *InsertPlan, child Executor) (*InsertExecutor, error) {
	table, ok := ctx.Catalog.GetTableByName(plan.TableName)
	if !ok {
		return nil, fmt.Errorf("exec: insert: unknown table %q", plan.TableName)
	}
	return &InsertExecutor{
		ctx: ctx, plan: plan, table: table, child: child,
		indexes: ctx.Catalog.GetTableIndexes(plan.TableName),
	}, nil
}

func (e *InsertExecutor) Init() error {
	e.done = false
	return e.child.Init()
}

// Next inserts every child row and, once the child is exhausted, emits a
// single tuple holding the count of rows inserted (the BusTub
// InsertExecutor convention: a DML operator returns one summary row, not
// the rows it wrote).
func (e *InsertExecutor) Next(tuple *types.Tuple, rid *storage.RID) (bool, error) {
	if e.done {
		return false, nil
	}
	e.done = true

	var count int64
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
		if err := e.insertOne(childTuple); err != nil {
			return false, err
		}
		count++
	}
	*tuple = types.NewTuple(types.NewInt(count))
	return true, nil
}

func (e *InsertExecutor) insertOne(row types.Tuple) error {
	if pk := e.ctx.Catalog.PrimaryKeyIndex(e.table.Name); pk != nil {
		key := row.Project(pk.KeyColumns)
		if _, found := pk.Index.GetValue(pk.EncodeKey(key)); found {
			e.ctx.Txn.SetTainted()
			return fmt.Errorf("%w: table %q", ErrPrimaryKeyViolation, e.table.Name)
		}
	}

	meta := catalog.TupleMeta{Ts: uint64(e.ctx.Txn.ID()), IsDeleted: false}
	newRID, err := e.table.Heap.InsertTuple(meta, row)
	if err != nil {
		return fmt.Errorf("exec: insert: %w", err)
	}
	e.ctx.Txn.RecordWrite(e.table.OID, newRID)

	for _, idx := range e.indexes {
		key := row.Project(idx.KeyColumns)
		idx.Index.Insert(idx.EncodeKey(key), newRID)
	}
	return nil
}
