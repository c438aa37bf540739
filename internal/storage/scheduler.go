package storage

import (
	"fmt"
	"log"

	"github.com/google/uuid"
)

// DiskRequest is a single unit of scheduled disk I/O, matching spec.md
// §4.1's {is_write, page_id, buffer, completion} record. Completion is a
// buffered channel so the submitter never has to race the worker to
// receive the result (the teacher's WorkRequest.Result channel pattern in
// internal/storage/concurrency.go).
type DiskRequest struct {
	IsWrite    bool
	PageID     PageID
	Data       []byte
	completion chan bool
}

// newCompletion allocates the one-shot completion channel for a request.
func newCompletion() chan bool { return make(chan bool, 1) }

// Wait blocks until the request's completion is fulfilled and returns
// whether the I/O succeeded.
func (r *DiskRequest) Wait() bool { return <-r.completion }

// DiskScheduler serializes page I/O to a DiskManager behind a single
// background worker consuming a blocking, unbounded-in-practice queue —
// the async scheduler from spec.md §4.1, adapted from the single-purpose
// WorkerPool/workQueue/worker() shape in the teacher's
// internal/storage/concurrency.go (there used for read/write request
// fan-out; here narrowed to exactly one worker so submission order from a
// single caller is preserved, matching the original disk_scheduler.cpp's
// FIFO contract).
type DiskScheduler struct {
	disk    DiskManager
	queue   chan *DiskRequest
	joined  chan struct{}
	traceID uuid.UUID
}

// NewDiskScheduler starts the scheduler's background worker over disk.
func NewDiskScheduler(disk DiskManager) *DiskScheduler {
	s := &DiskScheduler{
		disk:    disk,
		queue:   make(chan *DiskRequest, 256),
		joined:  make(chan struct{}),
		traceID: uuid.New(),
	}
	go s.worker()
	return s
}

// Schedule enqueues req for processing and returns immediately; the
// caller waits on req.Wait() for completion. Requests from a single
// goroutine preserve FIFO order because the queue is a single channel
// drained by a single worker.
func (s *DiskScheduler) Schedule(req *DiskRequest) {
	req.completion = newCompletion()
	s.queue <- req
}

// ReadPage schedules a read and blocks until it completes, mirroring the
// synchronous helpers the buffer pool actually calls.
func (s *DiskScheduler) ReadPage(id PageID, buf []byte) error {
	req := &DiskRequest{IsWrite: false, PageID: id, Data: buf}
	s.Schedule(req)
	if !req.Wait() {
		return fmt.Errorf("disk scheduler: read page %d failed", id)
	}
	return nil
}

// WritePage schedules a write and blocks until it completes.
func (s *DiskScheduler) WritePage(id PageID, buf []byte) error {
	req := &DiskRequest{IsWrite: true, PageID: id, Data: buf}
	s.Schedule(req)
	if !req.Wait() {
		return fmt.Errorf("disk scheduler: write page %d failed", id)
	}
	return nil
}

// worker drains s.queue in order, exiting on the nil sentinel Shutdown
// enqueues. Because shutdown travels through the same queue as ordinary
// requests rather than racing it on a separate channel, every request
// submitted before Shutdown is called is guaranteed to be processed (not
// forced to fail) before the worker exits, matching disk_scheduler.cpp's
// request_queue_.Put(std::nullopt) sentinel shutdown.
func (s *DiskScheduler) worker() {
	defer close(s.joined)
	for req := range s.queue {
		if req == nil {
			return
		}
		var err error
		if req.IsWrite {
			err = s.disk.WritePage(req.PageID, req.Data)
		} else {
			err = s.disk.ReadPage(req.PageID, req.Data)
		}
		if err != nil {
			log.Printf("disk scheduler %s: page %d: %v", s.traceID, req.PageID, err)
			req.completion <- false
			continue
		}
		req.completion <- true
	}
}

// Shutdown enqueues the sentinel and blocks until the worker has drained
// every request queued ahead of it and joined.
func (s *DiskScheduler) Shutdown() {
	s.queue <- nil
	<-s.joined
}
