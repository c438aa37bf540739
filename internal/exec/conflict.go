package exec

import (
	"fmt"

	"github.com/SimonWaldherr/bustubgo/internal/catalog"
	"github.com/SimonWaldherr/bustubgo/internal/txn"
)

// checkWriteConflict classifies ctx's transaction against rid's current
// meta, tainting the transaction on conflict, per spec.md §4.6/§7: "On
// code 0 the executor sets the transaction to TAINTED and raises an
// execution exception. The transaction must be aborted by the caller."
// (the caller here is whoever holds the *txn.Transaction, which receives
// the returned error instead of a thrown exception — see executor.go's
// doc comment on that Go-idiomatic substitution.)
func checkWriteConflict(ctx *ExecContext, meta catalog.TupleMeta) (code int, err error) {
	code = txn.CheckWriteConflict(ctx.Txn.ID(), ctx.Txn.ReadTs(), meta)
	if code == 0 {
		ctx.Txn.SetTainted()
		return code, fmt.Errorf("exec: %w", txn.ErrWriteWriteConflict)
	}
	return code, nil
}

// fullModifiedFields returns a bitmask of n trues, used by Delete/Update
// to build an undo delta that carries every column.
func fullModifiedFields(n int) []bool {
	f := make([]bool, n)
	for i := range f {
		f[i] = true
	}
	return f
}
