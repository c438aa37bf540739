package txn

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/SimonWaldherr/bustubgo/internal/catalog"
	"github.com/SimonWaldherr/bustubgo/internal/storage"
	"github.com/SimonWaldherr/bustubgo/internal/types"
)

// ErrTxnNotRunning is a structural precondition failure (spec.md §7):
// Commit/Abort called on a transaction not in the state they require.
var ErrTxnNotRunning = errors.New("txn: transaction is not in RUNNING state")

// ErrWriteWriteConflict is raised by the write-write conflict check
// (spec.md §4.6/§7, conflict code 0). The caller must taint and abort.
var ErrWriteWriteConflict = errors.New("write_write_conflict")

// TransactionManager owns transaction lifecycle, timestamp allocation,
// the per-RID undo-log head map, the watermark, and garbage collection,
// per spec.md §4.6. Grounded directly on
// _examples/original_source/.../transaction_manager.cpp; the commit
// lock / txn-map rwlock split follows that file's commit_mutex_ /
// txn_map_mutex_ exactly (spec.md §5).
type TransactionManager struct {
	txnMapMu sync.RWMutex
	txnMap   map[TxnID]*Transaction

	commitMu sync.Mutex

	nextTxnID    atomic.Uint64
	lastCommitTs atomic.Uint64

	watermark *Watermark

	undoLinkMu sync.Mutex
	undoLinks  map[storage.RID]UndoLink

	catalog *catalog.Catalog

	gcMu      sync.Mutex
	deleteCnt map[TxnID]int
}

// NewTransactionManager returns a manager starting at TxnStartID / commit
// timestamp 0, resolving table access through cat (needed by Commit's
// write-set meta rewrite and by GarbageCollection's table scan).
func NewTransactionManager(cat *catalog.Catalog) *TransactionManager {
	tm := &TransactionManager{
		txnMap:    make(map[TxnID]*Transaction),
		watermark: NewWatermark(),
		undoLinks: make(map[storage.RID]UndoLink),
		catalog:   cat,
		deleteCnt: make(map[TxnID]int),
	}
	tm.nextTxnID.Store(uint64(TxnStartID))
	return tm
}

// Watermark exposes the manager's watermark tracker.
func (tm *TransactionManager) Watermark() *Watermark { return tm.watermark }

// Begin allocates a new transaction id, snapshots read_ts := last_commit_ts,
// registers it with the watermark, and returns the new RUNNING
// transaction, per spec.md §4.6.
func (tm *TransactionManager) Begin(isolation IsolationLevel) *Transaction {
	id := TxnID(tm.nextTxnID.Add(1) - 1)
	readTs := Timestamp(tm.lastCommitTs.Load())

	t := &Transaction{
		id:        id,
		isolation: isolation,
		state:     StateRunning,
		readTs:    readTs,
		writeSet:  make(map[catalog.TableOID]map[storage.RID]struct{}),
	}

	tm.txnMapMu.Lock()
	tm.txnMap[id] = t
	tm.txnMapMu.Unlock()

	tm.watermark.AddTxn(readTs)
	return t
}

// VerifyTxn is the serializability-verification hook. Per spec.md §9's
// Open Question, no SSI validation is implemented; it always succeeds.
func (tm *TransactionManager) VerifyTxn(t *Transaction) bool { return true }

// Commit serializes commits under the global commit mutex, assigns
// commit_ts, rewrites TupleMeta.ts for every RID in the write set, then
// transitions the transaction to COMMITTED under the txn-map lock, per
// spec.md §4.6/§5.
func (tm *TransactionManager) Commit(t *Transaction) error {
	tm.commitMu.Lock()
	defer tm.commitMu.Unlock()

	if t.State() != StateRunning {
		return fmt.Errorf("%w: txn %d is %s", ErrTxnNotRunning, t.id, t.State())
	}

	if t.Isolation() == Serializable {
		if !tm.VerifyTxn(t) {
			tm.Abort(t)
			return fmt.Errorf("txn: serializability verification failed for txn %d", t.id)
		}
	}

	commitTs := Timestamp(tm.lastCommitTs.Add(1))

	for oid, rids := range t.WriteSet() {
		table, ok := tm.catalog.GetTable(oid)
		if !ok {
			panic(fmt.Sprintf("txn: commit references unknown table oid %d", oid))
		}
		for _, rid := range rids {
			meta, err := table.Heap.GetTupleMeta(rid)
			if err != nil {
				panic(fmt.Sprintf("txn: commit: %v", err))
			}
			meta.Ts = uint64(commitTs)
			if err := table.Heap.UpdateTupleMeta(meta, rid); err != nil {
				panic(fmt.Sprintf("txn: commit: %v", err))
			}
		}
	}

	tm.txnMapMu.Lock()
	t.mu.Lock()
	t.commitTs = commitTs
	t.state = StateCommitted
	t.mu.Unlock()
	tm.txnMapMu.Unlock()

	tm.watermark.UpdateCommitTs(commitTs)
	tm.watermark.RemoveTxn(t.ReadTs())
	return nil
}

// Abort marks the transaction ABORTED and removes its read_ts from the
// watermark. Legal from RUNNING or TAINTED, per spec.md §3/§7.
func (tm *TransactionManager) Abort(t *Transaction) {
	t.mu.Lock()
	if t.state != StateRunning && t.state != StateTainted {
		t.mu.Unlock()
		panic(fmt.Sprintf("txn: Abort on txn %d in state %s", t.id, t.State()))
	}
	t.state = StateAborted
	readTs := t.readTs
	t.mu.Unlock()

	tm.watermark.RemoveTxn(readTs)
}

// GetTransaction looks up a transaction by id.
func (tm *TransactionManager) GetTransaction(id TxnID) (*Transaction, bool) {
	tm.txnMapMu.RLock()
	defer tm.txnMapMu.RUnlock()
	t, ok := tm.txnMap[id]
	return t, ok
}

// GetUndoLink returns the current undo-log chain head for rid.
func (tm *TransactionManager) GetUndoLink(rid storage.RID) (UndoLink, bool) {
	tm.undoLinkMu.Lock()
	defer tm.undoLinkMu.Unlock()
	link, ok := tm.undoLinks[rid]
	return link, ok
}

// UpdateUndoLink sets rid's chain head. link.Valid()==false clears it.
func (tm *TransactionManager) UpdateUndoLink(rid storage.RID, link UndoLink) {
	tm.undoLinkMu.Lock()
	defer tm.undoLinkMu.Unlock()
	if !link.Valid() {
		delete(tm.undoLinks, rid)
		return
	}
	tm.undoLinks[rid] = link
}

// GetUndoLog dereferences link through the owning transaction.
func (tm *TransactionManager) GetUndoLog(link UndoLink) (UndoLog, bool) {
	t, ok := tm.GetTransaction(link.PrevTxn)
	if !ok {
		return UndoLog{}, false
	}
	return t.GetUndoLog(link.PrevLogIdx), true
}

// CheckWriteConflict classifies a writer's relationship to the current
// tuple meta, per spec.md §4.6: 0 = conflict (another live transaction
// holds it, or a committed writer already beat us), 1 = append a new
// undo log, 2 = modify our own existing undo log in place. Grounded on
// execution_common.cpp's CheckWriteConflict.
func CheckWriteConflict(txnID TxnID, readTs Timestamp, meta catalog.TupleMeta) int {
	if meta.Ts >= uint64(TxnStartID) {
		if TxnID(meta.Ts) == txnID {
			return 2
		}
		return 0
	}
	if Timestamp(meta.Ts) > readTs {
		return 0
	}
	return 1
}

// AddUndoLog prepends log to rid's chain on behalf of t: it links
// log.PrevVersion to the current head, appends log to t's own vector, and
// installs the new head, per spec.md §4.6's "append" (code 1) policy.
// Grounded on execution_common.cpp's AddUndoLog.
func (tm *TransactionManager) AddUndoLog(t *Transaction, rid storage.RID, log UndoLog) {
	if link, ok := tm.GetUndoLink(rid); ok && link.Valid() {
		log.PrevVersion = link
	} else {
		log.PrevVersion = UndoLink{}
	}
	newLink := t.AppendUndoLog(log)
	tm.UpdateUndoLink(rid, newLink)
}

// ModifyUndoLog merges newLog into t's own existing head undo log at rid,
// per spec.md §4.6's "modify" (code 2) policy: for each column, an
// already-present value in the existing log wins (it reflects the older
// committed version); otherwise the new delta's value is added if
// present. is_deleted takes the new delta's value. A row t inserted and
// is now re-touching within the same transaction has no undo log yet
// (there is nothing older to preserve), so this is a no-op in that case,
// matching execution_common.cpp's UpdateUndoLog.
func (tm *TransactionManager) ModifyUndoLog(t *Transaction, rid storage.RID, newLog UndoLog, schema types.Schema) {
	link, ok := tm.GetUndoLink(rid)
	if !ok || !link.Valid() || link.PrevTxn != t.id {
		return
	}
	oldLog := t.GetUndoLog(link.PrevLogIdx)

	n := schema.ColumnCount()
	mergedFields := make([]bool, n)
	mergedValues := make([]types.Value, 0, n)
	oldIdx, newIdx := 0, 0
	for i := 0; i < n; i++ {
		switch {
		case oldLog.ModifiedFields[i]:
			mergedFields[i] = true
			mergedValues = append(mergedValues, oldLog.Tuple.Values[oldIdx])
		case newLog.ModifiedFields[i]:
			mergedFields[i] = true
			mergedValues = append(mergedValues, newLog.Tuple.Values[newIdx])
		}
		if oldLog.ModifiedFields[i] {
			oldIdx++
		}
		if newLog.ModifiedFields[i] {
			newIdx++
		}
	}

	merged := UndoLog{
		Ts:             oldLog.Ts,
		IsDeleted:      newLog.IsDeleted,
		ModifiedFields: mergedFields,
		Tuple:          types.Tuple{Values: mergedValues},
		PrevVersion:    oldLog.PrevVersion,
	}
	t.ModifyUndoLog(link.PrevLogIdx, merged)
}

// visible reports whether ts is visible to a reader with (txnID, readTs),
// per spec.md §4.6: a committed version at or before our snapshot, or
// our own in-progress write.
func visible(ts Timestamp, txnID TxnID, readTs Timestamp) bool {
	if ts < Timestamp(TxnStartID) && ts <= readTs {
		return true
	}
	if ts >= Timestamp(TxnStartID) && TxnID(ts) == txnID {
		return true
	}
	return false
}

// ReadTimeTuple reconstructs the version of rid visible to (txnID,
// readTs), walking the undo chain from baseTuple/baseMeta, per spec.md
// §4.6. Returns ok=false on a visibility miss (spec.md §7).
func (tm *TransactionManager) ReadTimeTuple(rid storage.RID, readTs Timestamp, txnID TxnID, schema types.Schema, baseTuple types.Tuple, baseMeta catalog.TupleMeta) (types.Tuple, bool) {
	var logs []UndoLog

	if visible(Timestamp(baseMeta.Ts), txnID, readTs) {
		return ReconstructTuple(baseTuple, baseMeta.IsDeleted, logs)
	}

	link, ok := tm.GetUndoLink(rid)
	if !ok || !link.Valid() {
		return types.Tuple{}, false
	}
	log, ok := tm.GetUndoLog(link)
	if !ok {
		return types.Tuple{}, false
	}
	for !visible(log.Ts, txnID, readTs) {
		logs = append(logs, log)
		link = log.PrevVersion
		if !link.Valid() {
			return types.Tuple{}, false
		}
		log, ok = tm.GetUndoLog(link)
		if !ok {
			return types.Tuple{}, false
		}
	}
	logs = append(logs, log)
	return ReconstructTuple(baseTuple, baseMeta.IsDeleted, logs)
}

// applyDelta folds one undo log's partial tuple onto the running result,
// per spec.md §4.6's reconstruction rule. Grounded on
// execution_common.cpp's UndoTuple.
func applyDelta(schema types.Schema, base types.Tuple, log UndoLog) types.Tuple {
	out := make([]types.Value, schema.ColumnCount())
	logIdx := 0
	for i := range out {
		if log.ModifiedFields[i] {
			out[i] = log.Tuple.Values[logIdx]
			logIdx++
		} else {
			out[i] = base.Values[i]
		}
	}
	return types.Tuple{Values: out}
}

// ReconstructTuple folds logs (newest first) onto baseTuple, per spec.md
// §4.6: absent if baseIsDeleted and logs is empty, or if the oldest
// (last) log is itself a tombstone.
func ReconstructTuple(baseTuple types.Tuple, baseIsDeleted bool, logs []UndoLog) (types.Tuple, bool) {
	if len(logs) == 0 {
		if baseIsDeleted {
			return types.Tuple{}, false
		}
		return baseTuple, true
	}
	if logs[len(logs)-1].IsDeleted {
		return types.Tuple{}, false
	}
	schema := types.Schema{Columns: make([]types.Column, len(logs[0].ModifiedFields))}
	// ReconstructTuple is schema-agnostic about column names/types (it
	// only needs ColumnCount), so a throwaway schema of the right width
	// is sufficient for applyDelta's indexing.
	res := baseTuple
	for _, log := range logs {
		res = applyDelta(schema, res, log)
	}
	return res, true
}

// GarbageCollection walks every RID in every table, per spec.md §4.6:
// undo logs reachable only after the first version at or below the
// watermark are unreferenced and get unlinked; a transaction becomes
// fully collectible once its remaining undo-log count equals the number
// of logs collected against it and it is COMMITTED or ABORTED. Grounded
// on transaction_manager.cpp's GarbageCollection.
func (tm *TransactionManager) GarbageCollection() {
	tm.gcMu.Lock()
	defer tm.gcMu.Unlock()

	tm.deleteCnt = make(map[TxnID]int)
	lowTs := tm.watermark.Get()

	for _, name := range tm.catalog.TableNames() {
		table, ok := tm.catalog.GetTableByName(name)
		if !ok {
			continue
		}
		it := table.Heap.Iterator()
		for {
			rid, ok := it.Next()
			if !ok {
				break
			}
			meta, err := table.Heap.GetTupleMeta(rid)
			if err != nil {
				continue
			}
			tm.gcSolveRID(rid, Timestamp(meta.Ts) <= lowTs, lowTs)
		}
	}

	tm.txnMapMu.Lock()
	defer tm.txnMapMu.Unlock()
	for id, t := range tm.txnMap {
		cnt := tm.deleteCnt[id]
		if t.UndoLogCount() != cnt {
			continue
		}
		state := t.State()
		if state == StateCommitted || state == StateAborted {
			delete(tm.txnMap, id)
		}
	}
}

// gcSolveRID walks rid's undo chain, counting every log reached after
// the base row is already collectable (collectable==true at entry, or
// becomes true once a visited log's ts drops to/below lowTs) against its
// owning transaction, and unlinking the first unreferenced log from its
// predecessor.
func (tm *TransactionManager) gcSolveRID(rid storage.RID, collectable bool, lowTs Timestamp) {
	link, ok := tm.GetUndoLink(rid)
	if !ok {
		return
	}
	var prevLink UndoLink
	for link.Valid() {
		log, ok := tm.GetUndoLog(link)
		if !ok {
			return
		}
		if collectable {
			tm.deleteCnt[link.PrevTxn]++
			if prevLink.Valid() {
				if ownerT, ok := tm.GetTransaction(prevLink.PrevTxn); ok {
					pl := ownerT.GetUndoLog(prevLink.PrevLogIdx)
					pl.PrevVersion = UndoLink{}
					ownerT.ModifyUndoLog(prevLink.PrevLogIdx, pl)
				}
			} else {
				tm.UpdateUndoLink(rid, UndoLink{})
			}
		} else if log.Ts <= lowTs {
			collectable = true
		}
		prevLink = link
		link = log.PrevVersion
	}
}
