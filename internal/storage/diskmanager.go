package storage

import (
	"fmt"
	"os"
	"sync"

	"github.com/google/uuid"
)

// DiskManager is the narrow interface the disk scheduler drives: read and
// write a fixed-size page by id. Implementations need not be safe for
// concurrent use — the scheduler serializes access through its single
// worker.
type DiskManager interface {
	ReadPage(id PageID, buf []byte) error
	WritePage(id PageID, buf []byte) error
	PageSize() int
	Close() error
}

// FileDiskManager is a DiskManager backed by a single flat file, one
// page-sized slot per PageID, matching the teacher's
// internal/storage/pager readPageRaw/writePageRaw offset arithmetic.
//
// Every database file is stamped with a random instance UUID on creation,
// written into a diskManagerHeaderSize-byte header ahead of page 0's own
// storage region, adapting the teacher's uuid_helpers.go ParseUUID/UUIDToBytes
// helpers: it lets a caller that reopens a FileDiskManager confirm it is
// talking to the file it thinks it is, instead of silently reusing stale
// frames from a previous database file that happens to share a path.
type FileDiskManager struct {
	mu       sync.Mutex
	f        *os.File
	pageSize int
	instance uuid.UUID
}

const diskManagerHeaderSize = 64 // room for the 16-byte UUID plus slack

// OpenFileDiskManager opens (or creates) path as a page file of the given
// page size.
func OpenFileDiskManager(path string, pageSize int) (*FileDiskManager, error) {
	if pageSize <= 0 {
		return nil, fmt.Errorf("invalid page size %d", pageSize)
	}
	_, statErr := os.Stat(path)
	isNew := os.IsNotExist(statErr)

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, fmt.Errorf("open disk file %s: %w", path, err)
	}

	dm := &FileDiskManager{f: f, pageSize: pageSize}

	if isNew {
		dm.instance = uuid.New()
		hdr := make([]byte, diskManagerHeaderSize)
		idBytes, err := dm.instance.MarshalBinary()
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("marshal instance id: %w", err)
		}
		copy(hdr, idBytes)
		if _, err := f.WriteAt(hdr, 0); err != nil {
			f.Close()
			return nil, fmt.Errorf("write disk manager header: %w", err)
		}
	} else {
		hdr := make([]byte, diskManagerHeaderSize)
		if _, err := f.ReadAt(hdr, 0); err != nil {
			f.Close()
			return nil, fmt.Errorf("read disk manager header: %w", err)
		}
		id, err := uuid.FromBytes(hdr[:16])
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("corrupt disk manager header: %w", err)
		}
		dm.instance = id
	}

	return dm, nil
}

// InstanceID returns the database file's stamped UUID.
func (dm *FileDiskManager) InstanceID() uuid.UUID { return dm.instance }

func (dm *FileDiskManager) offset(id PageID) int64 {
	return int64(diskManagerHeaderSize) + int64(id)*int64(dm.pageSize)
}

// ReadPage fills buf with the page's on-disk bytes. A page that was never
// written (reading past the current file length) yields a zeroed buffer,
// per spec.md's "treat no record as empty" contract.
func (dm *FileDiskManager) ReadPage(id PageID, buf []byte) error {
	if len(buf) != dm.pageSize {
		return fmt.Errorf("read page %d: buffer size %d != page size %d", id, len(buf), dm.pageSize)
	}
	dm.mu.Lock()
	defer dm.mu.Unlock()

	n, err := dm.f.ReadAt(buf, dm.offset(id))
	if err != nil {
		if n == 0 {
			for i := range buf {
				buf[i] = 0
			}
			return nil
		}
		return fmt.Errorf("read page %d: %w", id, err)
	}
	return nil
}

// WritePage writes buf's bytes at page id, extending the file as needed.
func (dm *FileDiskManager) WritePage(id PageID, buf []byte) error {
	if len(buf) != dm.pageSize {
		return fmt.Errorf("write page %d: buffer size %d != page size %d", id, len(buf), dm.pageSize)
	}
	dm.mu.Lock()
	defer dm.mu.Unlock()

	if _, err := dm.f.WriteAt(buf, dm.offset(id)); err != nil {
		return fmt.Errorf("write page %d: %w", id, err)
	}
	return nil
}

// PageSize returns the configured page size.
func (dm *FileDiskManager) PageSize() int { return dm.pageSize }

// Close flushes and closes the backing file.
func (dm *FileDiskManager) Close() error {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	if err := dm.f.Sync(); err != nil {
		dm.f.Close()
		return err
	}
	return dm.f.Close()
}

// MemDiskManager is an in-memory DiskManager, useful for tests that should
// not touch the filesystem. Never-written pages read as zeroed buffers.
type MemDiskManager struct {
	mu       sync.Mutex
	pageSize int
	pages    map[PageID][]byte
}

// NewMemDiskManager returns an empty in-memory disk manager.
func NewMemDiskManager(pageSize int) *MemDiskManager {
	return &MemDiskManager{pageSize: pageSize, pages: make(map[PageID][]byte)}
}

func (m *MemDiskManager) ReadPage(id PageID, buf []byte) error {
	if len(buf) != m.pageSize {
		return fmt.Errorf("read page %d: buffer size %d != page size %d", id, len(buf), m.pageSize)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.pages[id]; ok {
		copy(buf, existing)
		return nil
	}
	for i := range buf {
		buf[i] = 0
	}
	return nil
}

func (m *MemDiskManager) WritePage(id PageID, buf []byte) error {
	if len(buf) != m.pageSize {
		return fmt.Errorf("write page %d: buffer size %d != page size %d", id, len(buf), m.pageSize)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := make([]byte, m.pageSize)
	copy(stored, buf)
	m.pages[id] = stored
	return nil
}

func (m *MemDiskManager) PageSize() int { return m.pageSize }
func (m *MemDiskManager) Close() error  { return nil }
