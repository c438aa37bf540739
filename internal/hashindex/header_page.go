// Package hashindex implements the on-disk extendible hash index from
// spec.md §4.5: three page roles (header, directory, bucket) layered over
// the buffer pool, with latch-crabbing lookups and directory/bucket
// split-and-merge on insert/delete.
//
// Each page role is a thin typed view over a Page's raw byte buffer (the
// same Data()/DataMut() slices the buffer pool guards expose), grounded
// in the byte-level field layout of
// _examples/original_source/.../extendible_htable_header_page.cpp,
// extendible_htable_directory_page.cpp, and the bucket page header; the
// Go page-role structuring (one small wrapper type per on-disk page kind,
// all driven through a shared BufferPoolManager) follows the teacher's
// internal/storage/pager/btree.go convention of giving every on-disk
// structure its own typed page wrapper.
package hashindex

import "encoding/binary"

// HeaderPage is the top-level page of the hash index: it holds up to
// 2^max_depth directory page ids, chosen by the high max_depth bits of a
// key's hash.
//
// Wire layout (all little-endian):
//
//	[0:4]   maxDepth (uint32)
//	[4:...] directoryPageIds ([]int64, 1<<maxDepth entries)
type HeaderPage struct {
	buf []byte
}

// HeaderPageSize returns the number of bytes a header page needs for the
// given max depth.
func HeaderPageSize(maxDepth uint32) int {
	return 4 + (1<<maxDepth)*8
}

// WrapHeaderPage views buf as a HeaderPage. buf must already be
// initialized via Init, or must be the zero image of a never-written
// page (Init should be called immediately after allocation).
func WrapHeaderPage(buf []byte) *HeaderPage { return &HeaderPage{buf: buf} }

// Init formats buf as a fresh header page with every directory slot
// unset.
func (h *HeaderPage) Init(maxDepth uint32) {
	if len(h.buf) < HeaderPageSize(maxDepth) {
		panic("hashindex: header page buffer too small for max depth")
	}
	binary.LittleEndian.PutUint32(h.buf[0:4], maxDepth)
	n := 1 << maxDepth
	for i := 0; i < n; i++ {
		h.setDirectoryPageID(i, -1)
	}
}

// MaxDepth returns the header's configured max depth.
func (h *HeaderPage) MaxDepth() uint32 {
	return binary.LittleEndian.Uint32(h.buf[0:4])
}

func (h *HeaderPage) slotOffset(i int) int { return 4 + i*8 }

func (h *HeaderPage) setDirectoryPageID(i int, pid int64) {
	binary.LittleEndian.PutUint64(h.buf[h.slotOffset(i):h.slotOffset(i)+8], uint64(pid))
}

// HashToDirectoryIndex selects a directory slot using the high MaxDepth
// bits of hash.
func (h *HeaderPage) HashToDirectoryIndex(hash uint32) uint32 {
	maxDepth := h.MaxDepth()
	if maxDepth == 0 {
		return 0
	}
	return hash >> (32 - maxDepth)
}

// GetDirectoryPageID returns the directory page id at slot i, or -1 (as
// storage.InvalidPageID) if unset.
func (h *HeaderPage) GetDirectoryPageID(i uint32) int64 {
	off := h.slotOffset(int(i))
	return int64(binary.LittleEndian.Uint64(h.buf[off : off+8]))
}

// SetDirectoryPageID sets the directory page id at slot i.
func (h *HeaderPage) SetDirectoryPageID(i uint32, pid int64) {
	h.setDirectoryPageID(int(i), pid)
}

// MaxSize returns the number of directory slots, 2^MaxDepth.
func (h *HeaderPage) MaxSize() uint32 { return 1 << h.MaxDepth() }
