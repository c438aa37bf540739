package hashindex

import (
	"encoding/binary"

	"github.com/SimonWaldherr/bustubgo/internal/storage"
)

const bucketEntrySize = 8 + 8 + 4 // key int64 + RID.PageID int64 + RID.Slot uint32

// BucketPage holds a flat array of key/value entries, linearly scanned on
// lookup, insert, and remove, per spec.md §4.5.
//
// Wire layout (all little-endian):
//
//	[0:4]   maxSize (uint32)
//	[4:8]   size (uint32)
//	[8:...] entries (key int64, rid.PageID int64, rid.Slot uint32) * maxSize
type BucketPage struct {
	buf []byte
}

// BucketPageSize returns the bytes a bucket page needs for the given
// capacity.
func BucketPageSize(maxSize uint32) int {
	return 8 + int(maxSize)*bucketEntrySize
}

// WrapBucketPage views buf as a BucketPage.
func WrapBucketPage(buf []byte) *BucketPage { return &BucketPage{buf: buf} }

// Init formats buf as a fresh, empty bucket page with the given capacity.
func (b *BucketPage) Init(maxSize uint32) {
	if len(b.buf) < BucketPageSize(maxSize) {
		panic("hashindex: bucket page buffer too small for max size")
	}
	binary.LittleEndian.PutUint32(b.buf[0:4], maxSize)
	binary.LittleEndian.PutUint32(b.buf[4:8], 0)
}

// MaxSize returns the bucket's capacity.
func (b *BucketPage) MaxSize() uint32 { return binary.LittleEndian.Uint32(b.buf[0:4]) }

// Size returns the current number of entries.
func (b *BucketPage) Size() uint32 { return binary.LittleEndian.Uint32(b.buf[4:8]) }

func (b *BucketPage) setSize(n uint32) { binary.LittleEndian.PutUint32(b.buf[4:8], n) }

func (b *BucketPage) entryOffset(i uint32) int { return 8 + int(i)*bucketEntrySize }

// EntryAt returns the key/value pair at index i.
func (b *BucketPage) EntryAt(i uint32) (key int64, value storage.RID) {
	off := b.entryOffset(i)
	key = int64(binary.LittleEndian.Uint64(b.buf[off : off+8]))
	pid := int64(binary.LittleEndian.Uint64(b.buf[off+8 : off+16]))
	slot := binary.LittleEndian.Uint32(b.buf[off+16 : off+20])
	return key, storage.RID{PageID: storage.PageID(pid), Slot: slot}
}

func (b *BucketPage) setEntryAt(i uint32, key int64, value storage.RID) {
	off := b.entryOffset(i)
	binary.LittleEndian.PutUint64(b.buf[off:off+8], uint64(key))
	binary.LittleEndian.PutUint64(b.buf[off+8:off+16], uint64(value.PageID))
	binary.LittleEndian.PutUint32(b.buf[off+16:off+20], value.Slot)
}

// IsFull reports whether the bucket has reached capacity.
func (b *BucketPage) IsFull() bool { return b.Size() >= b.MaxSize() }

// IsEmpty reports whether the bucket has no entries.
func (b *BucketPage) IsEmpty() bool { return b.Size() == 0 }

// Lookup linearly scans for key, returning its value and true on a hit.
func (b *BucketPage) Lookup(key int64) (storage.RID, bool) {
	n := b.Size()
	for i := uint32(0); i < n; i++ {
		k, v := b.EntryAt(i)
		if k == key {
			return v, true
		}
	}
	return storage.RID{}, false
}

// Insert appends a key/value entry. Returns false if the bucket is full.
func (b *BucketPage) Insert(key int64, value storage.RID) bool {
	if b.IsFull() {
		return false
	}
	n := b.Size()
	b.setEntryAt(n, key, value)
	b.setSize(n + 1)
	return true
}

// Remove deletes the first entry matching key, compacting the array.
// Returns false if key was not present.
func (b *BucketPage) Remove(key int64) bool {
	n := b.Size()
	for i := uint32(0); i < n; i++ {
		k, _ := b.EntryAt(i)
		if k != key {
			continue
		}
		for j := i; j < n-1; j++ {
			nk, nv := b.EntryAt(j + 1)
			b.setEntryAt(j, nk, nv)
		}
		b.setSize(n - 1)
		return true
	}
	return false
}
