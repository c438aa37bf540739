// Package exec implements the Volcano-model execution operators and the
// three plan rewrites of spec.md §4.7/§4.8. Expression evaluation proper
// (spec.md §1/§6: "assumed to exist as a black-box evaluator") is
// represented here only by the minimal Expression interface operators
// need to call; concrete expressions are kept small and tagged-sum
// (ColumnExpr/ConstExpr/ComparisonExpr/LogicExpr) rather than a full
// tree-walking evaluator, per spec.md §9's guidance to model expressions
// as an exhaustively-matched sum type.
package exec

import (
	"fmt"

	"github.com/SimonWaldherr/bustubgo/internal/types"
)

// Expression evaluates against one tuple (Evaluate) or against a pair of
// tuples from a join's two sides (EvaluateJoin), per spec.md §6.
type Expression interface {
	Evaluate(tuple types.Tuple, schema types.Schema) types.Value
	EvaluateJoin(left types.Tuple, leftSchema types.Schema, right types.Tuple, rightSchema types.Schema) types.Value
}

// ColumnExpr reads one column. TupleIdx selects which side of a join
// EvaluateJoin reads from (0 = left, 1 = right); Evaluate (single-tuple
// context) ignores TupleIdx.
type ColumnExpr struct {
	TupleIdx int
	ColIdx   int
}

func (c ColumnExpr) Evaluate(tuple types.Tuple, _ types.Schema) types.Value {
	return tuple.GetValue(c.ColIdx)
}

func (c ColumnExpr) EvaluateJoin(left types.Tuple, _ types.Schema, right types.Tuple, _ types.Schema) types.Value {
	if c.TupleIdx == 0 {
		return left.GetValue(c.ColIdx)
	}
	return right.GetValue(c.ColIdx)
}

// ConstExpr is a literal value.
type ConstExpr struct {
	Value types.Value
}

func (c ConstExpr) Evaluate(types.Tuple, types.Schema) types.Value { return c.Value }
func (c ConstExpr) EvaluateJoin(types.Tuple, types.Schema, types.Tuple, types.Schema) types.Value {
	return c.Value
}

// CompOp is a comparison operator.
type CompOp uint8

const (
	CompEqual CompOp = iota
	CompNotEqual
	CompLessThan
	CompLessThanEqual
	CompGreaterThan
	CompGreaterThanEqual
)

// ComparisonExpr evaluates Left `Op` Right to a three-valued bool,
// represented as NewBool(true)/NewBool(false)/Null (unknown).
type ComparisonExpr struct {
	Op          CompOp
	Left, Right Expression
}

func boolValue(t types.TriState) types.Value {
	switch t {
	case types.TriTrue:
		return types.NewBool(true)
	case types.TriFalse:
		return types.NewBool(false)
	default:
		return types.Null
	}
}

func compareOp(op CompOp, a, b types.Value) types.TriState {
	if op == CompEqual {
		return types.CompareTri(a, b)
	}
	if op == CompNotEqual {
		switch types.CompareTri(a, b) {
		case types.TriTrue:
			return types.TriFalse
		case types.TriFalse:
			return types.TriTrue
		default:
			return types.TriUnknown
		}
	}
	c, err := types.Compare(a, b)
	if err != nil {
		return types.TriUnknown
	}
	var ok bool
	switch op {
	case CompLessThan:
		ok = c < 0
	case CompLessThanEqual:
		ok = c <= 0
	case CompGreaterThan:
		ok = c > 0
	case CompGreaterThanEqual:
		ok = c >= 0
	default:
		panic(fmt.Sprintf("exec: unknown CompOp %d", uint8(op)))
	}
	if ok {
		return types.TriTrue
	}
	return types.TriFalse
}

func (c ComparisonExpr) Evaluate(tuple types.Tuple, schema types.Schema) types.Value {
	return boolValue(compareOp(c.Op, c.Left.Evaluate(tuple, schema), c.Right.Evaluate(tuple, schema)))
}

func (c ComparisonExpr) EvaluateJoin(left types.Tuple, ls types.Schema, right types.Tuple, rs types.Schema) types.Value {
	return boolValue(compareOp(c.Op, c.Left.EvaluateJoin(left, ls, right, rs), c.Right.EvaluateJoin(left, ls, right, rs)))
}

// LogicOp is a boolean connective.
type LogicOp uint8

const (
	LogicAnd LogicOp = iota
	LogicOr
)

// LogicExpr combines two boolean sub-expressions with three-valued
// AND/OR semantics (Unknown propagates unless the other side decides
// the outcome: Unknown AND False = False, Unknown OR True = True).
type LogicExpr struct {
	Op          LogicOp
	Left, Right Expression
}

func triOf(v types.Value) types.TriState {
	if v.Kind != types.KindBool {
		return types.TriUnknown
	}
	if v.B {
		return types.TriTrue
	}
	return types.TriFalse
}

func combine(op LogicOp, a, b types.TriState) types.TriState {
	if op == LogicAnd {
		if a == types.TriFalse || b == types.TriFalse {
			return types.TriFalse
		}
		if a == types.TriTrue && b == types.TriTrue {
			return types.TriTrue
		}
		return types.TriUnknown
	}
	if a == types.TriTrue || b == types.TriTrue {
		return types.TriTrue
	}
	if a == types.TriFalse && b == types.TriFalse {
		return types.TriFalse
	}
	return types.TriUnknown
}

func (l LogicExpr) Evaluate(tuple types.Tuple, schema types.Schema) types.Value {
	a := triOf(l.Left.Evaluate(tuple, schema))
	b := triOf(l.Right.Evaluate(tuple, schema))
	return boolValue(combine(l.Op, a, b))
}

func (l LogicExpr) EvaluateJoin(left types.Tuple, ls types.Schema, right types.Tuple, rs types.Schema) types.Value {
	a := triOf(l.Left.EvaluateJoin(left, ls, right, rs))
	b := triOf(l.Right.EvaluateJoin(left, ls, right, rs))
	return boolValue(combine(l.Op, a, b))
}

// AsBool collapses an Evaluate/EvaluateJoin result to a plain bool,
// matching the teacher's toTri(v) == tvTrue filter-gate idiom
// (_examples/SimonWaldherr-tinySQL/internal/engine/exec.go).
func AsBool(v types.Value) bool { return v.Kind == types.KindBool && v.B }

// OrderByType selects a sort key's direction, per spec.md §4.7's Sort.
type OrderByType uint8

const (
	OrderDefault OrderByType = iota // ascending
	OrderAsc
	OrderDesc
	OrderInvalid
)

// OrderBy pairs a sort expression with its direction.
type OrderBy struct {
	Type OrderByType
	Expr Expression
}
