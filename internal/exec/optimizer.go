// Plan rewrites: NLJ->HashJoin, SeqScan->IndexScan, Sort+Limit->TopN, per
// spec.md §4.8. Each walks the plan tree post-order and pattern-matches
// on the node's tag (PlanKind via a Go type switch) rather than any
// runtime downcast, per spec.md §9's design note on tagged sum types.
// Grounded on
// _examples/original_source/cmu2023/src/optimizer/nlj_as_hash_join.cpp,
// seqscan_as_indexscan.cpp, and sort_limit_as_topn.cpp.
package exec

import (
	"github.com/SimonWaldherr/bustubgo/internal/catalog"
	"github.com/SimonWaldherr/bustubgo/internal/types"
)

// OptimizeNLJAsHashJoin rewrites a NestedLoopJoinPlan into a HashJoinPlan
// wherever its predicate is a conjunction (possibly nested) of per-side
// column equalities, per spec.md §4.8.
func OptimizeNLJAsHashJoin(node PlanNode) PlanNode {
	switch p := node.(type) {
	case *NestedLoopJoinPlan:
		left := OptimizeNLJAsHashJoin(p.Left)
		right := OptimizeNLJAsHashJoin(p.Right)
		if leftKeys, rightKeys, ok := splitEqualityConjunction(p.Predicate); ok {
			return &HashJoinPlan{
				OutputSchema:  p.OutputSchema,
				Left:          left,
				Right:         right,
				LeftKeyExprs:  leftKeys,
				RightKeyExprs: rightKeys,
				Join:          p.Join,
			}
		}
		return &NestedLoopJoinPlan{OutputSchema: p.OutputSchema, Left: left, Right: right, Predicate: p.Predicate, Join: p.Join}
	case *HashJoinPlan:
		return &HashJoinPlan{
			OutputSchema: p.OutputSchema,
			Left:         OptimizeNLJAsHashJoin(p.Left),
			Right:        OptimizeNLJAsHashJoin(p.Right),
			LeftKeyExprs: p.LeftKeyExprs, RightKeyExprs: p.RightKeyExprs, Join: p.Join,
		}
	case *InsertPlan:
		return &InsertPlan{OutputSchema: p.OutputSchema, TableName: p.TableName, Child: OptimizeNLJAsHashJoin(p.Child)}
	case *UpdatePlan:
		return &UpdatePlan{OutputSchema: p.OutputSchema, TableName: p.TableName, Child: OptimizeNLJAsHashJoin(p.Child), TargetExprs: p.TargetExprs}
	case *DeletePlan:
		return &DeletePlan{OutputSchema: p.OutputSchema, TableName: p.TableName, Child: OptimizeNLJAsHashJoin(p.Child)}
	case *AggregationPlan:
		return &AggregationPlan{OutputSchema: p.OutputSchema, Child: OptimizeNLJAsHashJoin(p.Child), GroupBys: p.GroupBys, Aggregates: p.Aggregates}
	case *SortPlan:
		return &SortPlan{OutputSchema: p.OutputSchema, Child: OptimizeNLJAsHashJoin(p.Child), OrderBys: p.OrderBys}
	case *TopNPlan:
		return &TopNPlan{OutputSchema: p.OutputSchema, Child: OptimizeNLJAsHashJoin(p.Child), OrderBys: p.OrderBys, N: p.N}
	case *WindowPlan:
		return &WindowPlan{OutputSchema: p.OutputSchema, Child: OptimizeNLJAsHashJoin(p.Child), PartitionBys: p.PartitionBys, OrderBys: p.OrderBys, WindowFunc: p.WindowFunc, Arg: p.Arg}
	case *LimitPlan:
		return &LimitPlan{OutputSchema: p.OutputSchema, Child: OptimizeNLJAsHashJoin(p.Child), N: p.N}
	default:
		return node // SeqScanPlan / IndexScanPlan: leaves, nothing to rewrite
	}
}

// splitEqualityConjunction decomposes pred into per-side key expression
// lists if it is a conjunction (possibly nested under AND) of equalities
// col@0 = col@1, per spec.md §4.8. Returns ok=false for anything else
// (an OR, a non-equality comparison, a comparison against a constant).
func splitEqualityConjunction(pred Expression) (leftKeys, rightKeys []Expression, ok bool) {
	var walk func(e Expression) bool
	walk = func(e Expression) bool {
		switch ex := e.(type) {
		case LogicExpr:
			if ex.Op != LogicAnd {
				return false
			}
			return walk(ex.Left) && walk(ex.Right)
		case ComparisonExpr:
			if ex.Op != CompEqual {
				return false
			}
			lc, lok := ex.Left.(ColumnExpr)
			rc, rok := ex.Right.(ColumnExpr)
			if !lok || !rok {
				return false
			}
			switch {
			case lc.TupleIdx == 0 && rc.TupleIdx == 1:
				leftKeys = append(leftKeys, lc)
				rightKeys = append(rightKeys, rc)
			case lc.TupleIdx == 1 && rc.TupleIdx == 0:
				leftKeys = append(leftKeys, rc)
				rightKeys = append(rightKeys, lc)
			default:
				return false
			}
			return true
		default:
			return false
		}
	}
	if !walk(pred) || len(leftKeys) == 0 {
		return nil, nil, false
	}
	return leftKeys, rightKeys, true
}

// OptimizeSeqScanAsIndexScan rewrites a SeqScanPlan into an IndexScanPlan
// wherever its filter is a single `ColumnExpr = ConstExpr` and cat holds
// an index over exactly that column, per spec.md §4.8.
func OptimizeSeqScanAsIndexScan(node PlanNode, cat *catalog.Catalog) PlanNode {
	switch p := node.(type) {
	case *SeqScanPlan:
		if colIdx, val, ok := singleColumnEquality(p.Filter); ok {
			for _, idx := range cat.GetTableIndexes(p.TableName) {
				if len(idx.KeyColumns) == 1 && idx.KeyColumns[0] == colIdx {
					return &IndexScanPlan{
						OutputSchema: p.OutputSchema,
						TableName:    p.TableName,
						IndexName:    idx.Name,
						Key:          types.Tuple{Values: []types.Value{val}},
					}
				}
			}
		}
		return p
	case *InsertPlan:
		return &InsertPlan{OutputSchema: p.OutputSchema, TableName: p.TableName, Child: OptimizeSeqScanAsIndexScan(p.Child, cat)}
	case *UpdatePlan:
		return &UpdatePlan{OutputSchema: p.OutputSchema, TableName: p.TableName, Child: OptimizeSeqScanAsIndexScan(p.Child, cat), TargetExprs: p.TargetExprs}
	case *DeletePlan:
		return &DeletePlan{OutputSchema: p.OutputSchema, TableName: p.TableName, Child: OptimizeSeqScanAsIndexScan(p.Child, cat)}
	case *NestedLoopJoinPlan:
		return &NestedLoopJoinPlan{OutputSchema: p.OutputSchema, Left: OptimizeSeqScanAsIndexScan(p.Left, cat), Right: OptimizeSeqScanAsIndexScan(p.Right, cat), Predicate: p.Predicate, Join: p.Join}
	case *HashJoinPlan:
		return &HashJoinPlan{OutputSchema: p.OutputSchema, Left: OptimizeSeqScanAsIndexScan(p.Left, cat), Right: OptimizeSeqScanAsIndexScan(p.Right, cat), LeftKeyExprs: p.LeftKeyExprs, RightKeyExprs: p.RightKeyExprs, Join: p.Join}
	case *AggregationPlan:
		return &AggregationPlan{OutputSchema: p.OutputSchema, Child: OptimizeSeqScanAsIndexScan(p.Child, cat), GroupBys: p.GroupBys, Aggregates: p.Aggregates}
	case *SortPlan:
		return &SortPlan{OutputSchema: p.OutputSchema, Child: OptimizeSeqScanAsIndexScan(p.Child, cat), OrderBys: p.OrderBys}
	case *TopNPlan:
		return &TopNPlan{OutputSchema: p.OutputSchema, Child: OptimizeSeqScanAsIndexScan(p.Child, cat), OrderBys: p.OrderBys, N: p.N}
	case *WindowPlan:
		return &WindowPlan{OutputSchema: p.OutputSchema, Child: OptimizeSeqScanAsIndexScan(p.Child, cat), PartitionBys: p.PartitionBys, OrderBys: p.OrderBys, WindowFunc: p.WindowFunc, Arg: p.Arg}
	case *LimitPlan:
		return &LimitPlan{OutputSchema: p.OutputSchema, Child: OptimizeSeqScanAsIndexScan(p.Child, cat), N: p.N}
	default:
		return node
	}
}

// singleColumnEquality reports the (column index, constant) pair if pred
// is exactly `ColumnExpr = ConstExpr` (in either operand order), per
// spec.md §4.7's "the predicate must be col = const" requirement for an
// IndexScan probe key.
func singleColumnEquality(pred Expression) (colIdx int, val types.Value, ok bool) {
	cmp, ok := pred.(ComparisonExpr)
	if !ok || cmp.Op != CompEqual {
		return 0, types.Value{}, false
	}
	if col, cok := cmp.Left.(ColumnExpr); cok {
		if c, vok := cmp.Right.(ConstExpr); vok {
			return col.ColIdx, c.Value, true
		}
	}
	if col, cok := cmp.Right.(ColumnExpr); cok {
		if c, vok := cmp.Left.(ConstExpr); vok {
			return col.ColIdx, c.Value, true
		}
	}
	return 0, types.Value{}, false
}

// OptimizeSortLimitAsTopN rewrites a LimitPlan directly over a SortPlan
// into a TopNPlan, per spec.md §4.8.
func OptimizeSortLimitAsTopN(node PlanNode) PlanNode {
	switch p := node.(type) {
	case *LimitPlan:
		child := OptimizeSortLimitAsTopN(p.Child)
		if sortPlan, ok := child.(*SortPlan); ok {
			return &TopNPlan{OutputSchema: p.OutputSchema, Child: sortPlan.Child, OrderBys: sortPlan.OrderBys, N: p.N}
		}
		return &LimitPlan{OutputSchema: p.OutputSchema, Child: child, N: p.N}
	case *SortPlan:
		return &SortPlan{OutputSchema: p.OutputSchema, Child: OptimizeSortLimitAsTopN(p.Child), OrderBys: p.OrderBys}
	case *NestedLoopJoinPlan:
		return &NestedLoopJoinPlan{OutputSchema: p.OutputSchema, Left: OptimizeSortLimitAsTopN(p.Left), Right: OptimizeSortLimitAsTopN(p.Right), Predicate: p.Predicate, Join: p.Join}
	case *HashJoinPlan:
		return &HashJoinPlan{OutputSchema: p.OutputSchema, Left: OptimizeSortLimitAsTopN(p.Left), Right: OptimizeSortLimitAsTopN(p.Right), LeftKeyExprs: p.LeftKeyExprs, RightKeyExprs: p.RightKeyExprs, Join: p.Join}
	case *InsertPlan:
		return &InsertPlan{OutputSchema: p.OutputSchema, TableName: p.TableName, Child: OptimizeSortLimitAsTopN(p.Child)}
	case *UpdatePlan:
		return &UpdatePlan{OutputSchema: p.OutputSchema, TableName: p.TableName, Child: OptimizeSortLimitAsTopN(p.Child), TargetExprs: p.TargetExprs}
	case *DeletePlan:
		return &DeletePlan{OutputSchema: p.OutputSchema, TableName: p.TableName, Child: OptimizeSortLimitAsTopN(p.Child)}
	case *AggregationPlan:
		return &AggregationPlan{OutputSchema: p.OutputSchema, Child: OptimizeSortLimitAsTopN(p.Child), GroupBys: p.GroupBys, Aggregates: p.Aggregates}
	case *TopNPlan:
		return &TopNPlan{OutputSchema: p.OutputSchema, Child: OptimizeSortLimitAsTopN(p.Child), OrderBys: p.OrderBys, N: p.N}
	case *WindowPlan:
		return &WindowPlan{OutputSchema: p.OutputSchema, Child: OptimizeSortLimitAsTopN(p.Child), PartitionBys: p.PartitionBys, OrderBys: p.OrderBys, WindowFunc: p.WindowFunc, Arg: p.Arg}
	default:
		return node
	}
}
