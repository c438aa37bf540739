package txn

import (
	"fmt"
	"io"

	"github.com/SimonWaldherr/bustubgo/internal/catalog"
)

// DebugDump walks every RID in table's heap and writes a human-readable
// trace of its base tuple and full undo chain to w — the
// SPEC_FULL.md-supplemented equivalent of BusTub's TxnMgrDbg, carried
// over because the original test suite leans on it constantly to
// diagnose MVCC failures and a transaction manager this central
// shouldn't ship without it. Grounded on execution_common.cpp's
// TxnMgrDbg.
func (tm *TransactionManager) DebugDump(w io.Writer, info string, table *catalog.TableInfo) {
	fmt.Fprintf(w, "debug_hook: %s\n", info)

	it := table.Heap.Iterator()
	for {
		rid, ok := it.Next()
		if !ok {
			break
		}
		meta, tuple, err := table.Heap.GetTuple(rid, table.Schema.ColumnCount())
		if err != nil {
			continue
		}
		fmt.Fprintf(w, "RID=%s ts=%s tuple=%v delete=%v\n", rid, tsString(Timestamp(meta.Ts)), tuple.Values, meta.IsDeleted)

		link, ok := tm.GetUndoLink(rid)
		for ok && link.Valid() {
			log, ok2 := tm.GetUndoLog(link)
			if !ok2 {
				break
			}
			fmt.Fprintf(w, "  ts=%s tuple=%v fields=%v delete=%v\n", tsString(log.Ts), log.Tuple.Values, log.ModifiedFields, log.IsDeleted)
			link = log.PrevVersion
			ok = link.Valid()
		}
		fmt.Fprintln(w, "-------------------------------------------------------------")
	}
}

// tsString renders a timestamp the way TxnMgrDbg does: "0-<n>" for a
// commit timestamp, "1-<n>" for an in-progress txn id, offset from
// TxnStartID.
func tsString(ts Timestamp) string {
	if ts >= Timestamp(TxnStartID) {
		return fmt.Sprintf("1-%d", uint64(ts)-uint64(TxnStartID))
	}
	return fmt.Sprintf("0-%d", uint64(ts))
}
