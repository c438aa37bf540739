package exec

import (
	"testing"

	"github.com/SimonWaldherr/bustubgo/internal/types"
)

func usersSchema() types.Schema {
	return types.NewSchema(
		types.Column{Name: "id", Kind: types.KindInt},
		types.Column{Name: "name", Kind: types.KindString},
	)
}

func ordersSchema() types.Schema {
	return types.NewSchema(
		types.Column{Name: "user_id", Kind: types.KindInt},
		types.Column{Name: "item", Kind: types.KindString},
	)
}

func equiPredicate() Expression {
	return ComparisonExpr{Op: CompEqual, Left: ColumnExpr{TupleIdx: 0, ColIdx: 0}, Right: ColumnExpr{TupleIdx: 1, ColIdx: 0}}
}

func TestNestedLoopJoinInnerMatchesOnEquality(t *testing.T) {
	env := newTestEnv(t)
	uSchema, oSchema := usersSchema(), ordersSchema()
	env.createTable("users", uSchema,
		types.NewTuple(types.NewInt(1), types.NewString("alice")),
		types.NewTuple(types.NewInt(2), types.NewString("bob")),
	)
	env.createTable("orders", oSchema, types.NewTuple(types.NewInt(1), types.NewString("widget")))

	left, _ := NewSeqScanExecutor(env.ctx(), &SeqScanPlan{OutputSchema: uSchema, TableName: "users"})
	right, _ := NewSeqScanExecutor(env.ctx(), &SeqScanPlan{OutputSchema: oSchema, TableName: "orders"})
	plan := &NestedLoopJoinPlan{OutputSchema: uSchema.Concat(oSchema), Left: &SeqScanPlan{OutputSchema: uSchema}, Right: &SeqScanPlan{OutputSchema: oSchema}, Predicate: equiPredicate(), Join: JoinInner}
	joinEx := NewNestedLoopJoinExecutor(env.ctx(), plan, left, right)

	rows := drain(t, joinEx)
	if len(rows) != 1 {
		t.Fatalf("inner join rows = %d, want 1", len(rows))
	}
	if rows[0].Values[1].S != "alice" || rows[0].Values[3].S != "widget" {
		t.Fatalf("joined row = %+v, want alice/widget", rows[0].Values)
	}
}

func TestNestedLoopJoinLeftPadsUnmatched(t *testing.T) {
	env := newTestEnv(t)
	uSchema, oSchema := usersSchema(), ordersSchema()
	env.createTable("users", uSchema,
		types.NewTuple(types.NewInt(1), types.NewString("alice")),
		types.NewTuple(types.NewInt(2), types.NewString("bob")),
	)
	env.createTable("orders", oSchema, types.NewTuple(types.NewInt(1), types.NewString("widget")))

	left, _ := NewSeqScanExecutor(env.ctx(), &SeqScanPlan{OutputSchema: uSchema, TableName: "users"})
	right, _ := NewSeqScanExecutor(env.ctx(), &SeqScanPlan{OutputSchema: oSchema, TableName: "orders"})
	plan := &NestedLoopJoinPlan{OutputSchema: uSchema.Concat(oSchema), Left: &SeqScanPlan{OutputSchema: uSchema}, Right: &SeqScanPlan{OutputSchema: oSchema}, Predicate: equiPredicate(), Join: JoinLeft}
	joinEx := NewNestedLoopJoinExecutor(env.ctx(), plan, left, right)

	rows := drain(t, joinEx)
	if len(rows) != 2 {
		t.Fatalf("left join rows = %d, want 2 (alice matched, bob padded)", len(rows))
	}
	var bobRow types.Tuple
	for _, r := range rows {
		if r.Values[1].S == "bob" {
			bobRow = r
		}
	}
	if !bobRow.Values[2].IsNull() || !bobRow.Values[3].IsNull() {
		t.Fatalf("bob's unmatched right side = %+v, want both columns null", bobRow.Values)
	}
}

func TestHashJoinMatchesLikeNestedLoopJoin(t *testing.T) {
	env := newTestEnv(t)
	uSchema, oSchema := usersSchema(), ordersSchema()
	env.createTable("users", uSchema,
		types.NewTuple(types.NewInt(1), types.NewString("alice")),
		types.NewTuple(types.NewInt(2), types.NewString("bob")),
	)
	env.createTable("orders", oSchema,
		types.NewTuple(types.NewInt(1), types.NewString("widget")),
		types.NewTuple(types.NewInt(2), types.NewString("gadget")),
	)

	left, _ := NewSeqScanExecutor(env.ctx(), &SeqScanPlan{OutputSchema: uSchema, TableName: "users"})
	right, _ := NewSeqScanExecutor(env.ctx(), &SeqScanPlan{OutputSchema: oSchema, TableName: "orders"})
	plan := &HashJoinPlan{
		OutputSchema:  uSchema.Concat(oSchema),
		Left:          &SeqScanPlan{OutputSchema: uSchema},
		Right:         &SeqScanPlan{OutputSchema: oSchema},
		LeftKeyExprs:  []Expression{ColumnExpr{ColIdx: 0}},
		RightKeyExprs: []Expression{ColumnExpr{ColIdx: 0}},
		Join:          JoinInner,
	}
	joinEx := NewHashJoinExecutor(env.ctx(), plan, left, right)

	rows := drain(t, joinEx)
	if len(rows) != 2 {
		t.Fatalf("hash join rows = %d, want 2", len(rows))
	}
}

func TestHashJoinLeftPadsUnmatched(t *testing.T) {
	env := newTestEnv(t)
	uSchema, oSchema := usersSchema(), ordersSchema()
	env.createTable("users", uSchema,
		types.NewTuple(types.NewInt(1), types.NewString("alice")),
		types.NewTuple(types.NewInt(2), types.NewString("bob")),
	)
	env.createTable("orders", oSchema, types.NewTuple(types.NewInt(1), types.NewString("widget")))

	left, _ := NewSeqScanExecutor(env.ctx(), &SeqScanPlan{OutputSchema: uSchema, TableName: "users"})
	right, _ := NewSeqScanExecutor(env.ctx(), &SeqScanPlan{OutputSchema: oSchema, TableName: "orders"})
	plan := &HashJoinPlan{
		OutputSchema:  uSchema.Concat(oSchema),
		Left:          &SeqScanPlan{OutputSchema: uSchema},
		Right:         &SeqScanPlan{OutputSchema: oSchema},
		LeftKeyExprs:  []Expression{ColumnExpr{ColIdx: 0}},
		RightKeyExprs: []Expression{ColumnExpr{ColIdx: 0}},
		Join:          JoinLeft,
	}
	joinEx := NewHashJoinExecutor(env.ctx(), plan, left, right)

	rows := drain(t, joinEx)
	if len(rows) != 2 {
		t.Fatalf("left hash join rows = %d, want 2", len(rows))
	}
}
