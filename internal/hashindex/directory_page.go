package hashindex

import "encoding/binary"

// DirectoryPage maps the low global_depth bits of a hash to a bucket page
// id, tracking each slot's local depth so splits and merges can reshape
// only the affected half of the directory. Grounded on
// _examples/original_source/.../extendible_htable_directory_page.cpp's
// exact bit-level operations.
//
// Wire layout (all little-endian):
//
//	[0:4]          maxDepth (uint32)
//	[4:8]          globalDepth (uint32)
//	[8:8+M]        localDepths ([]uint8, M = 1<<maxDepth)
//	[8+M:8+M+8M]   bucketPageIds ([]int64, M entries)
type DirectoryPage struct {
	buf []byte
}

// DirectoryPageSize returns the bytes a directory page needs for the
// given max depth.
func DirectoryPageSize(maxDepth uint32) int {
	m := 1 << maxDepth
	return 8 + m + m*8
}

// WrapDirectoryPage views buf as a DirectoryPage.
func WrapDirectoryPage(buf []byte) *DirectoryPage { return &DirectoryPage{buf: buf} }

// Init formats buf as a fresh directory page with global depth 0 and
// every bucket slot unset.
func (d *DirectoryPage) Init(maxDepth uint32) {
	if len(d.buf) < DirectoryPageSize(maxDepth) {
		panic("hashindex: directory page buffer too small for max depth")
	}
	binary.LittleEndian.PutUint32(d.buf[0:4], maxDepth)
	binary.LittleEndian.PutUint32(d.buf[4:8], 0)
	m := 1 << maxDepth
	for i := 0; i < m; i++ {
		d.setLocalDepth(i, 0)
		d.setBucketPageID(i, -1)
	}
}

func (d *DirectoryPage) maxDepthSlots() int { return 1 << d.MaxDepth() }
func (d *DirectoryPage) localDepthOffset(i int) int { return 8 + i }
func (d *DirectoryPage) bucketIDOffset(i int) int {
	return 8 + d.maxDepthSlots() + i*8
}

// MaxDepth returns the directory's configured max depth.
func (d *DirectoryPage) MaxDepth() uint32 { return binary.LittleEndian.Uint32(d.buf[0:4]) }

// GlobalDepth returns the number of low hash bits currently selecting a
// slot.
func (d *DirectoryPage) GlobalDepth() uint32 { return binary.LittleEndian.Uint32(d.buf[4:8]) }

func (d *DirectoryPage) setGlobalDepth(v uint32) { binary.LittleEndian.PutUint32(d.buf[4:8], v) }

// Size returns the number of live directory slots, 2^GlobalDepth.
func (d *DirectoryPage) Size() uint32 { return 1 << d.GlobalDepth() }

// HashToBucketIndex selects a slot using the low GlobalDepth bits of hash.
func (d *DirectoryPage) HashToBucketIndex(hash uint32) uint32 {
	return hash & d.GlobalDepthMask()
}

// GlobalDepthMask returns (1<<GlobalDepth)-1.
func (d *DirectoryPage) GlobalDepthMask() uint32 { return (uint32(1) << d.GlobalDepth()) - 1 }

// LocalDepthMask returns (1<<LocalDepth(bucketIdx))-1.
func (d *DirectoryPage) LocalDepthMask(bucketIdx uint32) uint32 {
	return (uint32(1) << d.LocalDepth(bucketIdx)) - 1
}

// GetBucketPageID returns the bucket page id at slot bucketIdx, or -1 if
// unset.
func (d *DirectoryPage) GetBucketPageID(bucketIdx uint32) int64 {
	off := d.bucketIDOffset(int(bucketIdx))
	return int64(binary.LittleEndian.Uint64(d.buf[off : off+8]))
}

func (d *DirectoryPage) setBucketPageID(i int, pid int64) {
	off := d.bucketIDOffset(i)
	binary.LittleEndian.PutUint64(d.buf[off:off+8], uint64(pid))
}

// SetBucketPageID sets the bucket page id at slot bucketIdx.
func (d *DirectoryPage) SetBucketPageID(bucketIdx uint32, pid int64) {
	d.setBucketPageID(int(bucketIdx), pid)
}

// LocalDepth returns the local depth at slot bucketIdx.
func (d *DirectoryPage) LocalDepth(bucketIdx uint32) uint32 {
	return uint32(d.buf[d.localDepthOffset(int(bucketIdx))])
}

func (d *DirectoryPage) setLocalDepth(i int, depth uint8) {
	d.buf[d.localDepthOffset(i)] = depth
}

// SetLocalDepth sets the local depth at slot bucketIdx.
func (d *DirectoryPage) SetLocalDepth(bucketIdx uint32, depth uint32) {
	d.setLocalDepth(int(bucketIdx), uint8(depth))
}

// IncrLocalDepth raises the local depth at bucketIdx by one.
func (d *DirectoryPage) IncrLocalDepth(bucketIdx uint32) {
	d.SetLocalDepth(bucketIdx, d.LocalDepth(bucketIdx)+1)
}

// DecrLocalDepth lowers the local depth at bucketIdx by one.
func (d *DirectoryPage) DecrLocalDepth(bucketIdx uint32) {
	d.SetLocalDepth(bucketIdx, d.LocalDepth(bucketIdx)-1)
}

// GetSplitImageIndex returns the slot that shares bucketIdx's bucket
// before a split: bucketIdx with its (local_depth-1)-th bit flipped, or
// bucketIdx itself at local depth 0.
func (d *DirectoryPage) GetSplitImageIndex(bucketIdx uint32) uint32 {
	ld := d.LocalDepth(bucketIdx)
	if ld == 0 {
		return bucketIdx
	}
	offset := uint32(1) << (ld - 1)
	return bucketIdx ^ offset
}

// IncrGlobalDepth doubles the directory, duplicating slots [0,old) into
// [old,2*old).
func (d *DirectoryPage) IncrGlobalDepth() {
	if d.GlobalDepth() >= d.MaxDepth() {
		panic("hashindex: IncrGlobalDepth beyond max depth")
	}
	offset := uint32(1) << d.GlobalDepth()
	for i := offset; i < 2*offset; i++ {
		d.SetLocalDepth(i, d.LocalDepth(i-offset))
		d.SetBucketPageID(i, d.GetBucketPageID(i-offset))
	}
	d.setGlobalDepth(d.GlobalDepth() + 1)
}

// DecrGlobalDepth halves the directory. Callers must have verified
// CanShrink() first.
func (d *DirectoryPage) DecrGlobalDepth() {
	if d.GlobalDepth() == 0 {
		panic("hashindex: DecrGlobalDepth at global depth 0")
	}
	d.setGlobalDepth(d.GlobalDepth() - 1)
}

// CanShrink reports whether the lower and upper halves of the directory
// are identical, i.e. halving it would lose no information.
func (d *DirectoryPage) CanShrink() bool {
	if d.GlobalDepth() == 0 {
		return false
	}
	offset := uint32(1) << (d.GlobalDepth() - 1)
	for i := uint32(0); i < offset; i++ {
		if d.GetBucketPageID(i) != d.GetBucketPageID(i+offset) {
			return false
		}
	}
	return true
}

// MaxSize returns 1<<MaxDepth.
func (d *DirectoryPage) MaxSize() uint32 { return 1 << d.MaxDepth() }
