package exec

import "github.com/SimonWaldherr/bustubgo/internal/types"

// PlanKind tags a PlanNode's concrete type, per spec.md §9's "represent
// plans and expressions as tagged sum types; rewrites pattern-match on
// the tag rather than using a runtime cast".
type PlanKind uint8

const (
	PlanSeqScan PlanKind = iota
	PlanIndexScan
	PlanInsert
	PlanUpdate
	PlanDelete
	PlanNestedLoopJoin
	PlanHashJoin
	PlanAggregation
	PlanSort
	PlanTopN
	PlanWindow
	PlanLimit
)

// PlanNode is the common shape every plan node satisfies: its tag, its
// output schema, and its children (nil/empty for leaves).
type PlanNode interface {
	Kind() PlanKind
	Schema() types.Schema
	Children() []PlanNode
}

// JoinType distinguishes inner from left-outer join semantics, per
// spec.md §4.7's NestedLoopJoin/HashJoin.
type JoinType uint8

const (
	JoinInner JoinType = iota
	JoinLeft
)

// AggFunc is an aggregate's combining function, per spec.md §4.7's
// Aggregation operator.
type AggFunc uint8

const (
	AggCountStar AggFunc = iota
	AggCount
	AggSum
	AggMin
	AggMax
)

// AggregateExpr pairs an aggregate function with the expression it
// accumulates (ignored for AggCountStar).
type AggregateExpr struct {
	Func AggFunc
	Arg  Expression
}

// SeqScanPlan scans a table in heap order with an optional residual
// filter, per spec.md §4.7.
type SeqScanPlan struct {
	OutputSchema types.Schema
	TableName    string
	Filter       Expression // nil = no filter
}

func (p *SeqScanPlan) Kind() PlanKind        { return PlanSeqScan }
func (p *SeqScanPlan) Schema() types.Schema  { return p.OutputSchema }
func (p *SeqScanPlan) Children() []PlanNode  { return nil }

// IndexScanPlan probes an index with a single `col = const` equality,
// per spec.md §4.7: "the predicate must be col = const".
type IndexScanPlan struct {
	OutputSchema types.Schema
	TableName    string
	IndexName    string
	Key          types.Tuple // already projected to the index's key columns
	Filter       Expression  // residual filter re-applied after the index probe, nil if none
}

func (p *IndexScanPlan) Kind() PlanKind       { return PlanIndexScan }
func (p *IndexScanPlan) Schema() types.Schema { return p.OutputSchema }
func (p *IndexScanPlan) Children() []PlanNode { return nil }

// InsertPlan inserts every tuple its child produces into TableName.
type InsertPlan struct {
	OutputSchema types.Schema // a single INT column: rows inserted
	TableName    string
	Child        PlanNode
}

func (p *InsertPlan) Kind() PlanKind        { return PlanInsert }
func (p *InsertPlan) Schema() types.Schema  { return p.OutputSchema }
func (p *InsertPlan) Children() []PlanNode  { return []PlanNode{p.Child} }

// UpdatePlan recomputes each child row via TargetExprs (one per output
// column, evaluated against the old row) and writes it back in place.
type UpdatePlan struct {
	OutputSchema types.Schema // a single INT column: rows updated
	TableName    string
	Child        PlanNode
	TargetExprs  []Expression
}

func (p *UpdatePlan) Kind() PlanKind        { return PlanUpdate }
func (p *UpdatePlan) Schema() types.Schema  { return p.OutputSchema }
func (p *UpdatePlan) Children() []PlanNode  { return []PlanNode{p.Child} }

// DeletePlan tombstones every row its child produces.
type DeletePlan struct {
	OutputSchema types.Schema // a single INT column: rows deleted
	TableName    string
	Child        PlanNode
}

func (p *DeletePlan) Kind() PlanKind        { return PlanDelete }
func (p *DeletePlan) Schema() types.Schema  { return p.OutputSchema }
func (p *DeletePlan) Children() []PlanNode  { return []PlanNode{p.Child} }

// NestedLoopJoinPlan joins Left and Right under Predicate (evaluated via
// Expression.EvaluateJoin), per spec.md §4.7.
type NestedLoopJoinPlan struct {
	OutputSchema types.Schema
	Left, Right  PlanNode
	Predicate    Expression
	Join         JoinType
}

func (p *NestedLoopJoinPlan) Kind() PlanKind       { return PlanNestedLoopJoin }
func (p *NestedLoopJoinPlan) Schema() types.Schema { return p.OutputSchema }
func (p *NestedLoopJoinPlan) Children() []PlanNode { return []PlanNode{p.Left, p.Right} }

// HashJoinPlan is the rewrite target for an equi-join NLJ, per spec.md
// §4.8: LeftKeyExprs/RightKeyExprs are evaluated (via Evaluate, not
// EvaluateJoin — each runs against only its own side) to build/probe the
// hash table.
type HashJoinPlan struct {
	OutputSchema   types.Schema
	Left, Right    PlanNode
	LeftKeyExprs   []Expression
	RightKeyExprs  []Expression
	Join           JoinType
}

func (p *HashJoinPlan) Kind() PlanKind       { return PlanHashJoin }
func (p *HashJoinPlan) Schema() types.Schema { return p.OutputSchema }
func (p *HashJoinPlan) Children() []PlanNode { return []PlanNode{p.Left, p.Right} }

// AggregationPlan groups Child's rows by GroupBys and combines Aggregates
// per group, per spec.md §4.7. Output schema is GroupBys columns followed
// by one column per aggregate.
type AggregationPlan struct {
	OutputSchema types.Schema
	Child        PlanNode
	GroupBys     []Expression
	Aggregates   []AggregateExpr
}

func (p *AggregationPlan) Kind() PlanKind       { return PlanAggregation }
func (p *AggregationPlan) Schema() types.Schema { return p.OutputSchema }
func (p *AggregationPlan) Children() []PlanNode { return []PlanNode{p.Child} }

// SortPlan materializes and orders Child's rows by OrderBys.
type SortPlan struct {
	OutputSchema types.Schema
	Child        PlanNode
	OrderBys     []OrderBy
}

func (p *SortPlan) Kind() PlanKind       { return PlanSort }
func (p *SortPlan) Schema() types.Schema { return p.OutputSchema }
func (p *SortPlan) Children() []PlanNode { return []PlanNode{p.Child} }

// TopNPlan streams the N smallest (under OrderBys) rows of Child, per
// spec.md §4.7/§4.8 (the rewrite target of Sort+Limit).
type TopNPlan struct {
	OutputSchema types.Schema
	Child        PlanNode
	OrderBys     []OrderBy
	N            int
}

func (p *TopNPlan) Kind() PlanKind       { return PlanTopN }
func (p *TopNPlan) Schema() types.Schema { return p.OutputSchema }
func (p *TopNPlan) Children() []PlanNode { return []PlanNode{p.Child} }

// WindowPlan evaluates one windowed aggregate column per input row, per
// spec.md §4.7. Output schema is Child's schema with one extra trailing
// column holding the window value.
type WindowPlan struct {
	OutputSchema types.Schema
	Child        PlanNode
	PartitionBys []Expression
	OrderBys     []OrderBy
	WindowFunc   AggFunc
	Arg          Expression
}

func (p *WindowPlan) Kind() PlanKind       { return PlanWindow }
func (p *WindowPlan) Schema() types.Schema { return p.OutputSchema }
func (p *WindowPlan) Children() []PlanNode { return []PlanNode{p.Child} }

// LimitPlan caps Child's output at N rows.
type LimitPlan struct {
	OutputSchema types.Schema
	Child        PlanNode
	N            int
}

func (p *LimitPlan) Kind() PlanKind       { return PlanLimit }
func (p *LimitPlan) Schema() types.Schema { return p.OutputSchema }
func (p *LimitPlan) Children() []PlanNode { return []PlanNode{p.Child} }
