package catalog

import (
	"testing"

	"github.com/SimonWaldherr/bustubgo/internal/storage"
	"github.com/SimonWaldherr/bustubgo/internal/types"
)

func newTestCatalog(t *testing.T) *Catalog {
	t.Helper()
	dm := storage.NewMemDiskManager(4096)
	sched := storage.NewDiskScheduler(dm)
	t.Cleanup(sched.Shutdown)
	bpm := storage.NewBufferPoolManager(32, 4096, sched, 2)
	return NewCatalog(bpm, 4096, 64)
}

func personSchema() types.Schema {
	return types.NewSchema(
		types.Column{Name: "id", Kind: types.KindInt},
		types.Column{Name: "name", Kind: types.KindString},
	)
}

func TestCatalogCreateAndGetTable(t *testing.T) {
	cat := newTestCatalog(t)
	info, err := cat.CreateTable("people", personSchema())
	if err != nil {
		t.Fatalf("CreateTable: %v", err)
	}

	byName, ok := cat.GetTableByName("people")
	if !ok || byName != info {
		t.Fatalf("GetTableByName = (%v, %v), want (%v, true)", byName, ok, info)
	}
	byOID, ok := cat.GetTable(info.OID)
	if !ok || byOID != info {
		t.Fatalf("GetTable(%d) = (%v, %v), want (%v, true)", info.OID, byOID, ok, info)
	}
}

func TestCatalogCreateTableDuplicateNameFails(t *testing.T) {
	cat := newTestCatalog(t)
	if _, err := cat.CreateTable("people", personSchema()); err != nil {
		t.Fatalf("first CreateTable: %v", err)
	}
	if _, err := cat.CreateTable("people", personSchema()); err == nil {
		t.Fatal("second CreateTable with the same name should fail")
	}
}

func TestCatalogTableNames(t *testing.T) {
	cat := newTestCatalog(t)
	cat.CreateTable("a", personSchema())
	cat.CreateTable("b", personSchema())

	names := cat.TableNames()
	if len(names) != 2 {
		t.Fatalf("TableNames() = %v, want 2 entries", names)
	}
	seen := map[string]bool{}
	for _, n := range names {
		seen[n] = true
	}
	if !seen["a"] || !seen["b"] {
		t.Fatalf("TableNames() = %v, want both a and b", names)
	}
}

func TestCatalogCreateIndexAndLookup(t *testing.T) {
	cat := newTestCatalog(t)
	cat.CreateTable("people", personSchema())

	idx, err := cat.CreateIndex("people_pk", "people", []int{0}, true, 0, 2, 4)
	if err != nil {
		t.Fatalf("CreateIndex: %v", err)
	}
	if !idx.IsPrimaryKey {
		t.Fatal("IsPrimaryKey = false, want true")
	}

	got, ok := cat.GetIndex(idx.OID)
	if !ok || got != idx {
		t.Fatalf("GetIndex(%d) = (%v, %v), want (%v, true)", idx.OID, got, ok, idx)
	}

	indexes := cat.GetTableIndexes("people")
	if len(indexes) != 1 || indexes[0] != idx {
		t.Fatalf("GetTableIndexes(people) = %v, want [%v]", indexes, idx)
	}

	pk := cat.PrimaryKeyIndex("people")
	if pk != idx {
		t.Fatalf("PrimaryKeyIndex(people) = %v, want %v", pk, idx)
	}
}

func TestCatalogCreateIndexUnknownTableFails(t *testing.T) {
	cat := newTestCatalog(t)
	if _, err := cat.CreateIndex("ghost_idx", "ghost", []int{0}, false, 0, 2, 4); err == nil {
		t.Fatal("CreateIndex over a nonexistent table should fail")
	}
}

func TestEncodeKeySingleIntPassesThrough(t *testing.T) {
	idx := &IndexInfo{}
	key := types.NewTuple(types.NewInt(7))
	if got := idx.EncodeKey(key); got != 7 {
		t.Fatalf("EncodeKey(single int 7) = %d, want 7", got)
	}
}

func TestEncodeKeyCompositeIsDeterministic(t *testing.T) {
	idx := &IndexInfo{}
	key := types.NewTuple(types.NewInt(1), types.NewString("a"))
	a := idx.EncodeKey(key)
	b := idx.EncodeKey(key)
	if a != b {
		t.Fatalf("EncodeKey is not deterministic for the same composite key: %d != %d", a, b)
	}
	other := idx.EncodeKey(types.NewTuple(types.NewInt(1), types.NewString("b")))
	if a == other {
		t.Fatal("EncodeKey produced the same hash for two different composite keys")
	}
}
