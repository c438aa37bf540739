package exec

import (
	"github.com/SimonWaldherr/bustubgo/internal/storage"
	"github.com/SimonWaldherr/bustubgo/internal/types"
)

// NestedLoopJoinExecutor rewinds the right child for every left tuple and
// emits joined rows whose predicate evaluates true, null-padding the
// right side for an unmatched left tuple under JoinLeft, per spec.md
// §4.7. Grounded structurally on the starter shape of
// _examples/original_source/cmu2023/.../nested_loop_join_executor.cpp.
type NestedLoopJoinExecutor struct {
	ctx   *ExecContext
	plan  *NestedLoopJoinPlan
	left  Executor
	right Executor

	haveLeft    bool
	curLeft     types.Tuple
	leftRID     storage.RID
	matchedLeft bool
}

// NewNestedLoopJoinExecutor builds a join executor over already-constructed child executors.
func NewNestedLoopJoinExecutor(ctx *ExecContext, plan *NestedLoopJoinPlan, left, right Executor) *NestedLoopJoinExecutor {
	return &NestedLoopJoinExecutor{ctx: ctx, plan: plan, left: left, right: right}
}

func (e *NestedLoopJoinExecutor) Init() error {
	if err := e.left.Init(); err != nil {
		return err
	}
	e.haveLeft = false
	return nil
}

func (e *NestedLoopJoinExecutor) Next(tuple *types.Tuple, rid *storage.RID) (bool, error) {
	for {
		if !e.haveLeft {
			ok, err := e.left.Next(&e.curLeft, &e.leftRID)
			if err != nil {
				return false, err
			}
			if !ok {
				return false, nil
			}
			if err := e.right.Init(); err != nil {
				return false, err
			}
			e.haveLeft = true
			e.matchedLeft = false
		}

		var rt types.Tuple
		var rrid storage.RID
		ok, err := e.right.Next(&rt, &rrid)
		if err != nil {
			return false, err
		}
		if !ok {
			unmatched := !e.matchedLeft
			leftTuple, leftRID := e.curLeft, e.leftRID
			e.haveLeft = false
			if e.plan.Join == JoinLeft && unmatched {
				*tuple = padRight(leftTuple, e.plan.Right.Schema())
				*rid = leftRID
				return true, nil
			}
			continue
		}

		result := e.plan.Predicate.EvaluateJoin(e.curLeft, e.plan.Left.Schema(), rt, e.plan.Right.Schema())
		if AsBool(result) {
			e.matchedLeft = true
			*tuple = combineTuples(e.curLeft, rt)
			*rid = e.leftRID
			return true, nil
		}
	}
}
