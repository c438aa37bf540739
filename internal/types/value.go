// Package types holds the minimal tuple/value model the execution
// operators and the table heap need: a tagged-sum Value (the "variant
// -valued field" design note in spec.md §9), a Schema describing a row's
// columns, and three-valued comparison. spec.md §1/§6 treats the real
// type system and expression evaluator as an external black box; this
// package is the small concrete stand-in needed to exercise the
// SPEC_FULL.md catalog/table-heap supplement and the Volcano operators
// end-to-end, grounded on the shape of
// _examples/SimonWaldherr-tinySQL/internal/engine/exec.go's compare*
// family and three-valued tvTrue/tvFalse/tvUnknown constants.
package types

import "fmt"

// Kind tags a Value's underlying representation. Exhaustive by
// construction: every Value constructor sets exactly one of these, and
// every switch over Kind in this module has a default that panics rather
// than silently falling through, per spec.md §9's "forbid unknown
// variants".
type Kind uint8

const (
	KindNull Kind = iota
	KindInt
	KindFloat
	KindString
	KindBool
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "NULL"
	case KindInt:
		return "INT"
	case KindFloat:
		return "FLOAT"
	case KindString:
		return "STRING"
	case KindBool:
		return "BOOL"
	default:
		panic(fmt.Sprintf("types: unknown Kind %d", uint8(k)))
	}
}

// Value is a tagged-union scalar: exactly one of the typed fields is
// meaningful, selected by Kind.
type Value struct {
	Kind Kind
	I    int64
	F    float64
	S    string
	B    bool
}

// Null is the absent value.
var Null = Value{Kind: KindNull}

// NewInt wraps an int64.
func NewInt(v int64) Value { return Value{Kind: KindInt, I: v} }

// NewFloat wraps a float64.
func NewFloat(v float64) Value { return Value{Kind: KindFloat, F: v} }

// NewString wraps a string.
func NewString(v string) Value { return Value{Kind: KindString, S: v} }

// NewBool wraps a bool.
func NewBool(v bool) Value { return Value{Kind: KindBool, B: v} }

// NullOf returns the null value, for null-padding the unmatched side of
// an outer join (spec.md §4.7's NestedLoopJoin/HashJoin LEFT-join
// behavior). The declared column kind is carried by the Schema, not the
// Value, so every null is the same KindNull value regardless of which
// column it stands in for.
func NullOf(kind Kind) Value { return Null }

// IsNull reports whether v is the null value.
func (v Value) IsNull() bool { return v.Kind == KindNull }

// TriState is the three-valued logic result of a comparison or predicate
// evaluation: spec.md §6's "comparison returns three-valued {True, False,
// Null}".
type TriState uint8

const (
	TriFalse TriState = iota
	TriTrue
	TriUnknown
)

// AsBool collapses TriUnknown to false, the SQL convention for WHERE
// clauses (an unknown predicate does not pass the filter).
func (t TriState) AsBool() bool { return t == TriTrue }

func numeric(v Value) (float64, bool) {
	switch v.Kind {
	case KindInt:
		return float64(v.I), true
	case KindFloat:
		return v.F, true
	default:
		return 0, false
	}
}

// Compare returns -1/0/1 if a<b/a==b/a>b, or an error if a and b are
// null or not comparable. Numeric kinds compare across Int/Float;
// strings and bools only compare against their own kind. Grounded on
// exec.go's compare/compareInt/compareFloat/compareString/compareBool.
func Compare(a, b Value) (int, error) {
	if a.IsNull() || b.IsNull() {
		return 0, fmt.Errorf("types: cannot compare with NULL")
	}
	switch a.Kind {
	case KindInt, KindFloat:
		af, _ := numeric(a)
		bf, ok := numeric(b)
		if !ok {
			return 0, fmt.Errorf("types: incomparable %s and %s", a.Kind, b.Kind)
		}
		switch {
		case af < bf:
			return -1, nil
		case af > bf:
			return 1, nil
		default:
			return 0, nil
		}
	case KindString:
		if b.Kind != KindString {
			return 0, fmt.Errorf("types: incomparable %s and %s", a.Kind, b.Kind)
		}
		switch {
		case a.S < b.S:
			return -1, nil
		case a.S > b.S:
			return 1, nil
		default:
			return 0, nil
		}
	case KindBool:
		if b.Kind != KindBool {
			return 0, fmt.Errorf("types: incomparable %s and %s", a.Kind, b.Kind)
		}
		switch {
		case !a.B && b.B:
			return -1, nil
		case a.B && !b.B:
			return 1, nil
		default:
			return 0, nil
		}
	default:
		panic(fmt.Sprintf("types: unknown Kind %d", uint8(a.Kind)))
	}
}

// Equals reports whether a and b compare equal, treating incomparable or
// null operands as not-equal (TriUnknown collapsed to false).
func Equals(a, b Value) bool {
	return CompareTri(a, b) == TriTrue
}

// CompareTri is Compare lifted to three-valued logic: TriUnknown if
// either side is null or the kinds are incomparable.
func CompareTri(a, b Value) TriState {
	c, err := Compare(a, b)
	if err != nil {
		return TriUnknown
	}
	if c == 0 {
		return TriTrue
	}
	return TriFalse
}

// LessForOrder orders a before b under ORDER BY semantics: nulls sort
// last ascending / first descending, matching exec.go's compareForOrder.
func LessForOrder(a, b Value, desc bool) bool {
	if a.IsNull() && b.IsNull() {
		return false
	}
	if a.IsNull() {
		return desc
	}
	if b.IsNull() {
		return !desc
	}
	c, err := Compare(a, b)
	if err != nil {
		return false
	}
	if desc {
		return c > 0
	}
	return c < 0
}
