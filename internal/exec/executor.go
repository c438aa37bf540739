package exec

import (
	"github.com/SimonWaldherr/bustubgo/internal/catalog"
	"github.com/SimonWaldherr/bustubgo/internal/storage"
	"github.com/SimonWaldherr/bustubgo/internal/txn"
	"github.com/SimonWaldherr/bustubgo/internal/types"
)

// Executor is the Volcano-model iterator contract of spec.md §4.7/§6:
// Init is idempotent and resets state (including children); Next produces
// one row at a time, reporting end-of-input with ok=false.
//
// The reference treats a write-write conflict as a thrown
// ExecutionException propagated to the caller, who then calls
// Transaction.Abort; Go has no exceptions, so that propagation is
// expressed here as an ordinary returned error (txn.ErrWriteWriteConflict,
// wrapped with context) rather than a panic, matching the teacher's own
// error-return idiom throughout internal/engine/exec.go.
type Executor interface {
	Init() error
	Next(tuple *types.Tuple, rid *storage.RID) (bool, error)
}

// ExecContext bundles the collaborators every operator needs: the catalog
// for table/index lookup (spec.md §6), the transaction manager for
// MVCC reads and writes, and the transaction the query runs under.
type ExecContext struct {
	Catalog *catalog.Catalog
	TxnMgr  *txn.TransactionManager
	Txn     *txn.Transaction
}
