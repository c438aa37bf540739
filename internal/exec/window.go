package exec

import (
	"sort"

	"github.com/SimonWaldherr/bustubgo/internal/storage"
	"github.com/SimonWaldherr/bustubgo/internal/types"
)

// WindowExecutor evaluates one windowed aggregate column per input row,
// per spec.md §4.7: sort by ORDER BY if present (otherwise keep input
// order), maintain a per-partition-key running accumulator, and have
// tied tuples (same partition, equal under ORDER BY) inherit the
// preceding row's value rather than recomputing. Grounded structurally on
// the starter shape of
// _examples/original_source/cmu2023/.../window_function_executor.cpp;
// the accumulator reuse from aggregation.go generalizes that file's
// per-function running state to this repo's single AggFunc enum.
type WindowExecutor struct {
	ctx   *ExecContext
	plan  *WindowPlan
	child Executor

	rows []tupleRID
	pos  int
}

// NewWindowExecutor wraps child with plan's partitioning/ordering/aggregate.
func NewWindowExecutor(ctx *ExecContext, plan *WindowPlan, child Executor) *WindowExecutor {
	return &WindowExecutor{ctx: ctx, plan: plan, child: child}
}

func (e *WindowExecutor) Init() error {
	if err := e.child.Init(); err != nil {
		return err
	}
	var rows []tupleRID
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
		rows = append(rows, tupleRID{tuple: t, rid: rid})
	}

	childSchema := e.plan.Child.Schema()
	if len(e.plan.OrderBys) > 0 {
		sort.SliceStable(rows, func(i, j int) bool {
			return orderLess(rows[i].tuple, rows[j].tuple, e.plan.OrderBys, childSchema)
		})
	}

	orderKeyExprs := orderByExprs(e.plan.OrderBys)
	accs := make(map[string]*aggAccumulator)
	lastOrderKey := make(map[string]types.Tuple)
	lastValue := make(map[string]types.Value)
	haveLast := make(map[string]bool)

	out := make([]tupleRID, len(rows))
	for i, row := range rows {
		pkey := keyString(evalKeyTuple(e.plan.PartitionBys, row.tuple, childSchema))
		acc, ok := accs[pkey]
		if !ok {
			acc = newAggAccumulator(e.plan.WindowFunc)
			accs[pkey] = acc
		}

		okey := evalKeyTuple(orderKeyExprs, row.tuple, childSchema)
		var value types.Value
		if haveLast[pkey] && tuplesEqual(lastOrderKey[pkey], okey) {
			value = lastValue[pkey]
		} else {
			var arg types.Value
			if e.plan.WindowFunc != AggCountStar {
				arg = e.plan.Arg.Evaluate(row.tuple, childSchema)
			}
			acc.add(arg)
			value = acc.result()
		}
		lastOrderKey[pkey] = okey
		lastValue[pkey] = value
		haveLast[pkey] = true

		values := append(append([]types.Value{}, row.tuple.Values...), value)
		out[i] = tupleRID{tuple: types.Tuple{Values: values}, rid: row.rid}
	}

	e.rows = out
	e.pos = 0
	return nil
}

func (e *WindowExecutor) Next(tuple *types.Tuple, rid *storage.RID) (bool, error) {
	if e.pos >= len(e.rows) {
		return false, nil
	}
	r := e.rows[e.pos]
	e.pos++
	*tuple = r.tuple
	*rid = r.rid
	return true, nil
}
