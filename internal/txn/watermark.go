package txn

import (
	"fmt"
	"sync"
)

// Watermark tracks the set of currently outstanding read timestamps and
// the minimum live one, per spec.md §4.6. Grounded directly on
// _examples/original_source/.../watermark.cpp.
type Watermark struct {
	mu sync.Mutex

	commitTs     Timestamp // largest commit ts observed via UpdateCommitTs
	watermarkVal Timestamp
	currentReads map[Timestamp]int
}

// NewWatermark returns a watermark starting at commit timestamp 0.
func NewWatermark() *Watermark {
	return &Watermark{currentReads: make(map[Timestamp]int)}
}

// AddTxn registers a new live reader at readTs. Panics if readTs is
// older than the last known commit timestamp, per spec.md §4.6 ("requires
// read_ts >= commit_ts") — a caller bug, not a runtime condition.
func (w *Watermark) AddTxn(readTs Timestamp) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if readTs < w.commitTs {
		panic(fmt.Sprintf("txn: AddTxn(%d) below commit ts %d", readTs, w.commitTs))
	}
	w.currentReads[readTs]++
}

// RemoveTxn unregisters a reader at readTs, then advances the watermark
// past any timestamps with no remaining live reader, per spec.md §4.6.
func (w *Watermark) RemoveTxn(readTs Timestamp) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.currentReads[readTs]--
	if w.currentReads[readTs] == 0 {
		delete(w.currentReads, readTs)
	}
	for w.watermarkVal != w.commitTs {
		if _, live := w.currentReads[w.watermarkVal]; live {
			break
		}
		w.watermarkVal++
	}
}

// UpdateCommitTs records a newly observed commit timestamp, pushing the
// watermark's upper bound forward (called once per Commit, after the
// commit timestamp is assigned).
func (w *Watermark) UpdateCommitTs(ts Timestamp) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.commitTs = ts
}

// Get returns the current watermark value: the minimum live read
// timestamp, or the last commit timestamp if no reader is live.
func (w *Watermark) Get() Timestamp {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.watermarkVal
}
