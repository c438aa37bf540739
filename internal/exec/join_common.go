package exec

import "github.com/SimonWaldherr/bustubgo/internal/types"

// combineTuples concatenates a joined left/right row pair into one output
// tuple: left's columns followed by right's, per spec.md §4.7's join
// output schema convention.
func combineTuples(left, right types.Tuple) types.Tuple {
	vals := make([]types.Value, 0, len(left.Values)+len(right.Values))
	vals = append(vals, left.Values...)
	vals = append(vals, right.Values...)
	return types.Tuple{Values: vals}
}

// padRight appends a null for every column of rightSchema to left, used
// by LEFT join's unmatched-left-row output (spec.md §4.7).
func padRight(left types.Tuple, rightSchema types.Schema) types.Tuple {
	vals := make([]types.Value, 0, len(left.Values)+rightSchema.ColumnCount())
	vals = append(vals, left.Values...)
	for _, col := range rightSchema.Columns {
		vals = append(vals, types.NullOf(col.Kind))
	}
	return types.Tuple{Values: vals}
}

// evalKeyTuple evaluates exprs against tuple/schema into a key tuple, used
// by HashJoin/Aggregation to build their group/join keys.
func evalKeyTuple(exprs []Expression, tuple types.Tuple, schema types.Schema) types.Tuple {
	vals := make([]types.Value, len(exprs))
	for i, e := range exprs {
		vals[i] = e.Evaluate(tuple, schema)
	}
	return types.Tuple{Values: vals}
}

// keyString renders a key tuple to a map-comparable string via its
// self-describing byte encoding (types.Tuple.Encode), so distinct Kinds
// or values never collide.
func keyString(t types.Tuple) string { return string(t.Encode()) }
