package exec

import (
	"github.com/SimonWaldherr/bustubgo/internal/storage"
	"github.com/SimonWaldherr/bustubgo/internal/types"
)

type hashJoinRow struct {
	tuple   types.Tuple
	rid     storage.RID
	matched bool
}

type hashJoinOutput struct {
	tuple types.Tuple
	rid   storage.RID
}

// HashJoinExecutor builds a hash table over the left child keyed by
// LeftKeyExprs, then probes it with every right tuple's RightKeyExprs,
// emitting the cartesian product of matches; under JoinLeft it finally
// emits every left row left unmatched, null-padded, per spec.md §4.7.
// This is the rewrite target of the NLJ→HashJoin optimization
// (spec.md §4.8), grounded on
// _examples/original_source/cmu2023/src/optimizer/nlj_as_hash_join.cpp's
// equi-join precondition and on the starter shape of
// .../hash_join_executor.cpp for the build/probe loop.
type HashJoinExecutor struct {
	ctx   *ExecContext
	plan  *HashJoinPlan
	left  Executor
	right Executor

	buildMap map[string][]*hashJoinRow

	pending    []hashJoinOutput
	pendingIdx int

	rightDone        bool
	unmatchedEmitted bool
}

// NewHashJoinExecutor builds a join executor over already-constructed child executors.
func NewHashJoinExecutor(ctx *ExecContext, plan *HashJoinPlan, left, right Executor) *HashJoinExecutor {
	return &HashJoinExecutor{ctx: ctx, plan: plan, left: left, right: right}
}

func (e *HashJoinExecutor) Init() error {
	if err := e.left.Init(); err != nil {
		return err
	}
	e.buildMap = make(map[string][]*hashJoinRow)
	var lt types.Tuple
	var lrid storage.RID
	for {
		ok, err := e.left.Next(&lt, &lrid)
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		key := keyString(evalKeyTuple(e.plan.LeftKeyExprs, lt, e.plan.Left.Schema()))
		e.buildMap[key] = append(e.buildMap[key], &hashJoinRow{tuple: lt, rid: lrid})
	}

	if err := e.right.Init(); err != nil {
		return err
	}
	e.pending = nil
	e.pendingIdx = 0
	e.rightDone = false
	e.unmatchedEmitted = false
	return nil
}

func (e *HashJoinExecutor) Next(tuple *types.Tuple, rid *storage.RID) (bool, error) {
	for {
		if e.pendingIdx < len(e.pending) {
			row := e.pending[e.pendingIdx]
			e.pendingIdx++
			*tuple = row.tuple
			*rid = row.rid
			return true, nil
		}

		if e.rightDone {
			if e.plan.Join == JoinLeft && !e.unmatchedEmitted {
				e.unmatchedEmitted = true
				e.queueUnmatchedLeft()
				continue
			}
			return false, nil
		}

		var rt types.Tuple
		var rrid storage.RID
		ok, err := e.right.Next(&rt, &rrid)
		if err != nil {
			return false, err
		}
		if !ok {
			e.rightDone = true
			continue
		}

		key := keyString(evalKeyTuple(e.plan.RightKeyExprs, rt, e.plan.Right.Schema()))
		e.pending = e.pending[:0]
		e.pendingIdx = 0
		for _, b := range e.buildMap[key] {
			b.matched = true
			e.pending = append(e.pending, hashJoinOutput{tuple: combineTuples(b.tuple, rt), rid: b.rid})
		}
	}
}

func (e *HashJoinExecutor) queueUnmatchedLeft() {
	e.pending = e.pending[:0]
	e.pendingIdx = 0
	for _, rows := range e.buildMap {
		for _, b := range rows {
			if !b.matched {
				e.pending = append(e.pending, hashJoinOutput{tuple: padRight(b.tuple, e.plan.Right.Schema()), rid: b.rid})
			}
		}
	}
}
