package exec

import (
	"github.com/SimonWaldherr/bustubgo/internal/storage"
	"github.com/SimonWaldherr/bustubgo/internal/types"
)

// tupleRID pairs a materialized tuple with its originating RID, the
// common unit Sort/TopN/Window buffer while they reorder input.
type tupleRID struct {
	tuple types.Tuple
	rid   storage.RID
}

// orderDescending reports whether ob sorts descending. OrderByType's
// INVALID variant is explicitly forbidden by spec.md §4.7's Sort note
// ("ASC/DEFAULT = ascending, DESC = descending, INVALID forbidden").
func orderDescending(t OrderByType) bool {
	switch t {
	case OrderDefault, OrderAsc:
		return false
	case OrderDesc:
		return true
	default:
		panic("exec: OrderByType INVALID is forbidden in a Sort/TopN/Window ordering key")
	}
}

// orderLess reports whether a sorts strictly before b under the compound
// ordering keys obs (first key decides unless tied, per the usual
// ORDER BY tie-breaking rule), evaluated against schema.
func orderLess(a, b types.Tuple, obs []OrderBy, schema types.Schema) bool {
	for _, ob := range obs {
		desc := orderDescending(ob.Type)
		av := ob.Expr.Evaluate(a, schema)
		bv := ob.Expr.Evaluate(b, schema)
		if types.LessForOrder(av, bv, desc) {
			return true
		}
		if types.LessForOrder(bv, av, desc) {
			return false
		}
	}
	return false
}

// orderByExprs extracts the bare expressions from a compound ordering key
// list, used to build a comparable "current order-key tuple" for Window's
// tie detection.
func orderByExprs(obs []OrderBy) []Expression {
	out := make([]Expression, len(obs))
	for i, ob := range obs {
		out[i] = ob.Expr
	}
	return out
}
