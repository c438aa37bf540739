package catalog

import (
	"fmt"
	"hash/fnv"
	"sync"

	"github.com/SimonWaldherr/bustubgo/internal/hashindex"
	"github.com/SimonWaldherr/bustubgo/internal/storage"
	"github.com/SimonWaldherr/bustubgo/internal/types"
)

// TableOID and IndexOID identify tables and indexes, mirroring BusTub's
// table_oid_t/index_oid_t.
type TableOID uint32
type IndexOID uint32

// TableInfo is the lookup record spec.md §6 names: "GetTable(oid|name) ->
// TableInfo{name, schema, table_heap}".
type TableInfo struct {
	OID    TableOID
	Name   string
	Schema types.Schema
	Heap   *TableHeap
}

// IndexInfo is spec.md §6's "GetIndex(oid) -> IndexInfo{key_schema,
// index, is_primary_key, index_oid}".
type IndexInfo struct {
	OID          IndexOID
	Name         string
	TableName    string
	KeySchema    types.Schema
	KeyColumns   []int // indexes into the table's schema this index projects
	IsPrimaryKey bool
	Index        *hashindex.DiskExtendibleHashTable
}

// EncodeKey folds a key tuple (already projected to this index's key
// columns) down to the int64 the underlying extendible hash table keys
// on. A single integer column passes through unchanged so the common
// case (an integer primary key) hashes predictably; composite or
// non-integer keys are folded with an FNV-1a mix, matching the spirit of
// boost::hash_combine used to build composite keys in BusTub's
// GenericKey.
func (idx *IndexInfo) EncodeKey(key types.Tuple) int64 {
	if len(key.Values) == 1 && key.Values[0].Kind == types.KindInt {
		return key.Values[0].I
	}
	h := fnv.New64a()
	for _, v := range key.Values {
		switch v.Kind {
		case types.KindInt:
			fmt.Fprintf(h, "i%d", v.I)
		case types.KindFloat:
			fmt.Fprintf(h, "f%v", v.F)
		case types.KindString:
			fmt.Fprintf(h, "s%s", v.S)
		case types.KindBool:
			fmt.Fprintf(h, "b%v", v.B)
		default:
			h.Write([]byte{0})
		}
	}
	return int64(h.Sum64())
}

// Catalog resolves table/index names and oids to their concrete
// storage, the way spec.md §6 describes it as an external collaborator.
// Grounded on the teacher's CatalogManager mutex-guarded-maps idiom
// (internal/storage/catalog.go), simplified to the name/oid lookups this
// repo's execution operators actually call.
type Catalog struct {
	mu sync.RWMutex

	bpm           *storage.BufferPoolManager
	pageSize      int
	maxTupleBytes int

	nextTableOID TableOID
	nextIndexOID IndexOID

	tablesByName map[string]*TableInfo
	tablesByOID  map[TableOID]*TableInfo
	indexesByOID map[IndexOID]*IndexInfo
	tableIndexes map[string][]*IndexInfo
}

// NewCatalog returns an empty catalog backed by bpm.
func NewCatalog(bpm *storage.BufferPoolManager, pageSize, maxTupleBytes int) *Catalog {
	return &Catalog{
		bpm:           bpm,
		pageSize:      pageSize,
		maxTupleBytes: maxTupleBytes,
		tablesByName:  make(map[string]*TableInfo),
		tablesByOID:   make(map[TableOID]*TableInfo),
		indexesByOID:  make(map[IndexOID]*IndexInfo),
		tableIndexes:  make(map[string][]*IndexInfo),
	}
}

// CreateTable allocates a fresh table heap for name/schema and registers
// it. Returns an error if the name is already taken.
func (c *Catalog) CreateTable(name string, schema types.Schema) (*TableInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.tablesByName[name]; exists {
		return nil, fmt.Errorf("catalog: table %q already exists", name)
	}
	info := &TableInfo{
		OID:    c.nextTableOID,
		Name:   name,
		Schema: schema,
		Heap:   NewTableHeap(c.bpm, c.pageSize, c.maxTupleBytes),
	}
	c.nextTableOID++
	c.tablesByName[name] = info
	c.tablesByOID[info.OID] = info
	return info, nil
}

// GetTableByName returns the table registered under name.
func (c *Catalog) GetTableByName(name string) (*TableInfo, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	info, ok := c.tablesByName[name]
	return info, ok
}

// GetTable returns the table registered under oid.
func (c *Catalog) GetTable(oid TableOID) (*TableInfo, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	info, ok := c.tablesByOID[oid]
	return info, ok
}

// TableNames returns every registered table's name, for GC's table scan
// (spec.md §4.6: "For every RID in every table").
func (c *Catalog) TableNames() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.tablesByName))
	for name := range c.tablesByName {
		names = append(names, name)
	}
	return names
}

// CreateIndex builds a fresh extendible hash index over table's columns
// keyColumns and registers it.
func (c *Catalog) CreateIndex(name, tableName string, keyColumns []int, isPrimaryKey bool, headerMaxDepth, directoryMaxDepth, bucketMaxSize uint32) (*IndexInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	table, ok := c.tablesByName[tableName]
	if !ok {
		return nil, fmt.Errorf("catalog: table %q does not exist", tableName)
	}
	info := &IndexInfo{
		OID:          c.nextIndexOID,
		Name:         name,
		TableName:    tableName,
		KeySchema:    table.Schema.Project(keyColumns),
		KeyColumns:   keyColumns,
		IsPrimaryKey: isPrimaryKey,
		Index:        hashindex.NewDiskExtendibleHashTable(c.bpm, headerMaxDepth, directoryMaxDepth, bucketMaxSize),
	}
	c.nextIndexOID++
	c.indexesByOID[info.OID] = info
	c.tableIndexes[tableName] = append(c.tableIndexes[tableName], info)
	return info, nil
}

// GetIndex returns the index registered under oid.
func (c *Catalog) GetIndex(oid IndexOID) (*IndexInfo, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	info, ok := c.indexesByOID[oid]
	return info, ok
}

// GetTableIndexes returns every index over tableName, per spec.md §6's
// "GetTableIndexes(name) -> [IndexInfo]".
func (c *Catalog) GetTableIndexes(tableName string) []*IndexInfo {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]*IndexInfo(nil), c.tableIndexes[tableName]...)
}

// PrimaryKeyIndex returns tableName's primary-key index, if any.
func (c *Catalog) PrimaryKeyIndex(tableName string) *IndexInfo {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, idx := range c.tableIndexes[tableName] {
		if idx.IsPrimaryKey {
			return idx
		}
	}
	return nil
}
