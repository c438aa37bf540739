package exec

import (
	"testing"

	"github.com/SimonWaldherr/bustubgo/internal/storage"
	"github.com/SimonWaldherr/bustubgo/internal/types"
)

func scoresSchema() types.Schema {
	return types.NewSchema(
		types.Column{Name: "name", Kind: types.KindString},
		types.Column{Name: "score", Kind: types.KindInt},
	)
}

func TestSortOrdersAscendingByDefault(t *testing.T) {
	env := newTestEnv(t)
	schema := scoresSchema()
	env.createTable("scores", schema,
		types.NewTuple(types.NewString("bob"), types.NewInt(30)),
		types.NewTuple(types.NewString("alice"), types.NewInt(10)),
		types.NewTuple(types.NewString("carl"), types.NewInt(20)),
	)

	scan, _ := NewSeqScanExecutor(env.ctx(), &SeqScanPlan{OutputSchema: schema, TableName: "scores"})
	plan := &SortPlan{OutputSchema: schema, Child: &SeqScanPlan{OutputSchema: schema}, OrderBys: []OrderBy{{Type: OrderDefault, Expr: ColumnExpr{ColIdx: 1}}}}
	ex := NewSortExecutor(env.ctx(), plan, scan)

	rows := drain(t, ex)
	want := []int64{10, 20, 30}
	for i, w := range want {
		if rows[i].Values[1].I != w {
			t.Fatalf("sorted rows = %+v, want ascending 10,20,30", rows)
		}
	}
}

func TestSortOrdersDescendingAndBreaksTiesByKeyOrder(t *testing.T) {
	env := newTestEnv(t)
	schema := scoresSchema()
	env.createTable("scores", schema,
		types.NewTuple(types.NewString("bob"), types.NewInt(20)),
		types.NewTuple(types.NewString("alice"), types.NewInt(20)),
		types.NewTuple(types.NewString("carl"), types.NewInt(30)),
	)

	scan, _ := NewSeqScanExecutor(env.ctx(), &SeqScanPlan{OutputSchema: schema, TableName: "scores"})
	plan := &SortPlan{
		OutputSchema: schema,
		Child:        &SeqScanPlan{OutputSchema: schema},
		OrderBys: []OrderBy{
			{Type: OrderDesc, Expr: ColumnExpr{ColIdx: 1}},
			{Type: OrderAsc, Expr: ColumnExpr{ColIdx: 0}},
		},
	}
	ex := NewSortExecutor(env.ctx(), plan, scan)

	rows := drain(t, ex)
	if len(rows) != 3 {
		t.Fatalf("got %d rows, want 3", len(rows))
	}
	if rows[0].Values[0].S != "carl" {
		t.Fatalf("first row = %+v, want carl (score 30 first under DESC)", rows[0].Values)
	}
	if rows[1].Values[0].S != "alice" || rows[2].Values[0].S != "bob" {
		t.Fatalf("tied 20-score rows = %+v, %+v, want alice then bob (ASC tiebreak on name)", rows[1].Values, rows[2].Values)
	}
}

func TestTopNKeepsOnlyNSmallestAndBoundsHeapSize(t *testing.T) {
	env := newTestEnv(t)
	schema := scoresSchema()
	env.createTable("scores", schema,
		types.NewTuple(types.NewString("a"), types.NewInt(5)),
		types.NewTuple(types.NewString("b"), types.NewInt(1)),
		types.NewTuple(types.NewString("c"), types.NewInt(4)),
		types.NewTuple(types.NewString("d"), types.NewInt(2)),
		types.NewTuple(types.NewString("e"), types.NewInt(3)),
	)

	scan, _ := NewSeqScanExecutor(env.ctx(), &SeqScanPlan{OutputSchema: schema, TableName: "scores"})
	plan := &TopNPlan{OutputSchema: schema, Child: &SeqScanPlan{OutputSchema: schema}, OrderBys: []OrderBy{{Type: OrderDefault, Expr: ColumnExpr{ColIdx: 1}}}, N: 2}
	ex := NewTopNExecutor(env.ctx(), plan, scan)

	if err := ex.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if n := ex.GetNumInHeap(); n != 2 {
		t.Fatalf("GetNumInHeap() after Init = %d, want 2 (bounded to N)", n)
	}

	var rows []types.Tuple
	var tuple types.Tuple
	var rid storage.RID
	for {
		ok, err := ex.Next(&tuple, &rid)
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		if !ok {
			break
		}
		rows = append(rows, tuple)
	}
	if len(rows) != 2 || rows[0].Values[1].I != 1 || rows[1].Values[1].I != 2 {
		t.Fatalf("top-2 rows = %+v, want scores 1 then 2", rows)
	}
}
