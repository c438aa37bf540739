package exec

import (
	"sort"

	"github.com/SimonWaldherr/bustubgo/internal/storage"
	"github.com/SimonWaldherr/bustubgo/internal/types"
)

// SortExecutor materializes every row its child produces, sorts it by
// plan.OrderBys, then streams it out, per spec.md §4.7. Grounded
// structurally on the starter shape of
// _examples/original_source/cmu2023/.../sort_executor.cpp.
type SortExecutor struct {
	ctx   *ExecContext
	plan  *SortPlan
	child Executor

	rows []tupleRID
	pos  int
}

// NewSortExecutor wraps child with plan's ordering.
func NewSortExecutor(ctx *ExecContext, plan *SortPlan, child Executor) *SortExecutor {
	return &SortExecutor{ctx: ctx, plan: plan, child: child}
}

func (e *SortExecutor) Init() error {
	if err := e.child.Init(); err != nil {
		return err
	}
	e.rows = nil
	var t types.Tuple
	var rid storage.RID
	for {
		ok, err := e.child.Next(&t, &rid)
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		e.rows = append(e.rows, tupleRID{tuple: t, rid: rid})
	}

	childSchema := e.plan.Child.Schema()
	sort.SliceStable(e.rows, func(i, j int) bool {
		return orderLess(e.rows[i].tuple, e.rows[j].tuple, e.plan.OrderBys, childSchema)
	})
	e.pos = 0
	return nil
}

func (e *SortExecutor) Next(tuple *types.Tuple, rid *storage.RID) (bool, error) {
	if e.pos >= len(e.rows) {
		return false, nil
	}
	r := e.rows[e.pos]
	e.pos++
	*tuple = r.tuple
	*rid = r.rid
	return true, nil
}
