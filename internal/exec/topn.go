package exec

import (
	"container/heap"
	"sort"

	"github.com/SimonWaldherr/bustubgo/internal/storage"
	"github.com/SimonWaldherr/bustubgo/internal/types"
)

// topNMaxHeap is a max-heap (under plan.OrderBys) bounded to at most N
// elements: the root is always the worst of the rows kept so far, so a
// new row only needs comparing against the root to decide whether it
// belongs in the final top-N set. This is the "bounded heap holding the N
// smallest under the order" alternative spec.md §4.7 calls out as an
// equivalent, simpler implementation of TopN than a literal output-order
// min-heap popped N times.
type topNMaxHeap struct {
	rows     []tupleRID
	orderBys []OrderBy
	schema   types.Schema
}

func (h *topNMaxHeap) Len() int      { return len(h.rows) }
func (h *topNMaxHeap) Swap(i, j int) { h.rows[i], h.rows[j] = h.rows[j], h.rows[i] }
func (h *topNMaxHeap) Less(i, j int) bool {
	// Root must be the row that sorts LAST among kept rows, so Less(i,j)
	// reports whether row i outranks row j for root occupancy: true when
	// j would sort before i in the final ascending order.
	return orderLess(h.rows[j].tuple, h.rows[i].tuple, h.orderBys, h.schema)
}
func (h *topNMaxHeap) Push(x any) { h.rows = append(h.rows, x.(tupleRID)) }
func (h *topNMaxHeap) Pop() any {
	old := h.rows
	n := len(old)
	item := old[n-1]
	h.rows = old[:n-1]
	return item
}

// TopNExecutor streams the N rows of its child that sort lowest under
// plan.OrderBys, per spec.md §4.7/§4.8 (the rewrite target of
// Sort+Limit). GetNumInHeap lets a caller observe that the heap never
// exceeds N tuples, per spec.md §8 scenario 5. Grounded structurally on
// the starter shape of
// _examples/original_source/cmu2023/.../topn_executor.cpp.
type TopNExecutor struct {
	ctx   *ExecContext
	plan  *TopNPlan
	child Executor

	heap *topNMaxHeap
	pos  int
}

// NewTopNExecutor wraps child with plan's ordering and row cap.
func NewTopNExecutor(ctx *ExecContext, plan *TopNPlan, child Executor) *TopNExecutor {
	return &TopNExecutor{ctx: ctx, plan: plan, child: child}
}

// GetNumInHeap reports how many rows the bounded heap currently holds
// (never more than plan.N).
func (e *TopNExecutor) GetNumInHeap() int {
	if e.heap == nil {
		return 0
	}
	return e.heap.Len()
}

func (e *TopNExecutor) Init() error {
	if err := e.child.Init(); err != nil {
		return err
	}
	childSchema := e.plan.Child.Schema()
	e.heap = &topNMaxHeap{orderBys: e.plan.OrderBys, schema: childSchema}
	heap.Init(e.heap)

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
		if e.plan.N <= 0 {
			continue
		}
		row := tupleRID{tuple: t, rid: rid}
		switch {
		case e.heap.Len() < e.plan.N:
			heap.Push(e.heap, row)
		case orderLess(t, e.heap.rows[0].tuple, e.plan.OrderBys, childSchema):
			e.heap.rows[0] = row
			heap.Fix(e.heap, 0)
		}
	}

	sort.SliceStable(e.heap.rows, func(i, j int) bool {
		return orderLess(e.heap.rows[i].tuple, e.heap.rows[j].tuple, e.plan.OrderBys, childSchema)
	})
	e.pos = 0
	return nil
}

func (e *TopNExecutor) Next(tuple *types.Tuple, rid *storage.RID) (bool, error) {
	if e.pos >= e.heap.Len() {
		return false, nil
	}
	r := e.heap.rows[e.pos]
	e.pos++
	*tuple = r.tuple
	*rid = r.rid
	return true, nil
}
