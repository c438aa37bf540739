package hashindex

import (
	"sync"

	"github.com/SimonWaldherr/bustubgo/internal/storage"
)

// DiskExtendibleHashTable is an on-disk extendible-hashing index over a
// BufferPoolManager: header page -> directory page -> bucket page,
// latch-crabbed on lookup and write-latched top-down on mutation, per
// spec.md §4.5. Grounded directly on
// _examples/original_source/.../disk_extendible_hash_table.cpp.
type DiskExtendibleHashTable struct {
	bpm *storage.BufferPoolManager

	headerPageID storage.PageID

	headerMaxDepth    uint32
	directoryMaxDepth uint32
	bucketMaxSize     uint32

	// newPageMu serializes page allocation across concurrent inserts so
	// two writers never race to install a directory or bucket into the
	// same empty slot; individual page latches still govern reads of
	// already-installed pages.
	newPageMu sync.Mutex
}

// HashFunc computes the 32-bit hash of a key. Exposed so the table and
// its callers agree on hash values (e.g. spec.md §8 scenario 2 picks
// keys by their desired hash bit pattern).
func HashFunc(key int64) uint32 {
	// A simple 64-bit multiplicative hash (Fibonacci hashing), folded
	// down to 32 bits. Adequate for an instructional index where the
	// quality of the hash is not the point under test.
	h := uint64(key) * 11400714819323198485 // 2^64 / golden ratio
	return uint32(h >> 32)
}

// NewDiskExtendibleHashTable allocates a fresh header page and returns a
// table over it.
func NewDiskExtendibleHashTable(bpm *storage.BufferPoolManager, headerMaxDepth, directoryMaxDepth, bucketMaxSize uint32) *DiskExtendibleHashTable {
	pid, page := bpm.NewPage()
	if page == nil {
		panic("hashindex: no frame available to allocate header page")
	}
	page.WLatch()
	WrapHeaderPage(page.Data()).Init(headerMaxDepth)
	page.WUnlatch()
	bpm.UnpinPage(pid, true)

	return &DiskExtendibleHashTable{
		bpm:               bpm,
		headerPageID:      pid,
		headerMaxDepth:    headerMaxDepth,
		directoryMaxDepth: directoryMaxDepth,
		bucketMaxSize:     bucketMaxSize,
	}
}

// HeaderPageID returns the index's root page id.
func (t *DiskExtendibleHashTable) HeaderPageID() storage.PageID { return t.headerPageID }

func (t *DiskExtendibleHashTable) hash(key int64) uint32 { return HashFunc(key) }

// GetValue looks up key, latch-crabbing header -> directory -> bucket,
// dropping each latch before acquiring the next.
func (t *DiskExtendibleHashTable) GetValue(key int64) (storage.RID, bool) {
	hash := t.hash(key)

	headerGuard, ok := t.bpm.FetchPageRead(t.headerPageID)
	if !ok {
		return storage.RID{}, false
	}
	header := WrapHeaderPage(headerGuard.Data())
	dirIdx := header.HashToDirectoryIndex(hash)
	dirPID := storage.PageID(header.GetDirectoryPageID(dirIdx))
	headerGuard.Drop()
	if dirPID == storage.InvalidPageID {
		return storage.RID{}, false
	}

	dirGuard, ok := t.bpm.FetchPageRead(dirPID)
	if !ok {
		return storage.RID{}, false
	}
	dir := WrapDirectoryPage(dirGuard.Data())
	bucketIdx := dir.HashToBucketIndex(hash)
	bucketPID := storage.PageID(dir.GetBucketPageID(bucketIdx))
	dirGuard.Drop()
	if bucketPID == storage.InvalidPageID {
		return storage.RID{}, false
	}

	bucketGuard, ok := t.bpm.FetchPageRead(bucketPID)
	if !ok {
		return storage.RID{}, false
	}
	defer bucketGuard.Drop()
	bucket := WrapBucketPage(bucketGuard.Data())
	return bucket.Lookup(key)
}

// Insert adds key -> value, splitting buckets (and the directory, if
// needed) as required. Returns false if the index is structurally unable
// to accept the insert (directory already at max depth and the target
// bucket is still full after a split attempt), matching spec.md §4.5/§7's
// resource-exhaustion contract.
func (t *DiskExtendibleHashTable) Insert(key int64, value storage.RID) bool {
	hash := t.hash(key)

	headerGuard, ok := t.bpm.FetchPageWrite(t.headerPageID)
	if !ok {
		return false
	}
	header := WrapHeaderPage(headerGuard.DataMut())
	dirIdx := header.HashToDirectoryIndex(hash)
	dirPID := storage.PageID(header.GetDirectoryPageID(dirIdx))
	if dirPID == storage.InvalidPageID {
		defer headerGuard.Drop()
		return t.insertToNewDirectory(header, dirIdx, key, value)
	}
	headerGuard.Drop()
	return t.insertToDirectory(dirPID, hash, key, value)
}

func (t *DiskExtendibleHashTable) insertToNewDirectory(header *HeaderPage, dirIdx uint32, key int64, value storage.RID) bool {
	t.newPageMu.Lock()
	pid, page := t.bpm.NewPage()
	t.newPageMu.Unlock()
	if page == nil {
		return false
	}
	page.WLatch()
	dir := WrapDirectoryPage(page.Data())
	dir.Init(t.directoryMaxDepth)
	header.SetDirectoryPageID(dirIdx, int64(pid))
	ok := t.insertToNewBucket(dir, 0, key, value)
	page.WUnlatch()
	t.bpm.UnpinPage(pid, true)
	return ok
}

func (t *DiskExtendibleHashTable) insertToDirectory(dirPID storage.PageID, hash uint32, key int64, value storage.RID) bool {
	dirGuard, ok := t.bpm.FetchPageWrite(dirPID)
	if !ok {
		return false
	}
	defer dirGuard.Drop()
	dir := WrapDirectoryPage(dirGuard.DataMut())
	bucketIdx := dir.HashToBucketIndex(hash)
	bucketPID := storage.PageID(dir.GetBucketPageID(bucketIdx))

	if bucketPID == storage.InvalidPageID {
		return t.insertToNewBucket(dir, bucketIdx, key, value)
	}

	bucketGuard, ok := t.bpm.FetchPageWrite(bucketPID)
	if !ok {
		return false
	}
	bucket := WrapBucketPage(bucketGuard.DataMut())
	if !bucket.IsFull() {
		ok := bucket.Insert(key, value)
		bucketGuard.Drop()
		return ok
	}
	bucketGuard.Drop()

	// Directory write-latch stays held across the entire split loop, per
	// spec.md §5: "a write operation must hold the directory write-latch
	// while it reshapes directory mappings."
	return t.insertToFullBucket(dir, hash, key, value)
}

func (t *DiskExtendibleHashTable) insertToNewBucket(dir *DirectoryPage, bucketIdx uint32, key int64, value storage.RID) bool {
	t.newPageMu.Lock()
	pid, page := t.bpm.NewPage()
	t.newPageMu.Unlock()
	if page == nil {
		return false
	}
	page.WLatch()
	bucket := WrapBucketPage(page.Data())
	bucket.Init(t.bucketMaxSize)
	bucket.Insert(key, value)
	page.WUnlatch()
	t.bpm.UnpinPage(pid, true)

	t.updateDirectoryMapping(dir, bucketIdx, pid, 0)
	return true
}

func (t *DiskExtendibleHashTable) updateDirectoryMapping(dir *DirectoryPage, bucketIdx uint32, bucketPID storage.PageID, localDepth uint32) {
	dir.SetBucketPageID(bucketIdx, int64(bucketPID))
	dir.SetLocalDepth(bucketIdx, localDepth)
}

// insertToFullBucket implements spec.md §4.5's Insert step 1-4: grow the
// directory if the target bucket's local depth has caught up to the
// global depth, then split the bucket and redistribute, retrying while
// the target bucket is still full.
func (t *DiskExtendibleHashTable) insertToFullBucket(dir *DirectoryPage, hash uint32, key int64, value storage.RID) bool {
	for {
		bucketIdx := dir.HashToBucketIndex(hash)
		targetPID := storage.PageID(dir.GetBucketPageID(bucketIdx))

		bucketGuard, ok := t.bpm.FetchPageWrite(targetPID)
		if !ok {
			return false
		}
		bucket := WrapBucketPage(bucketGuard.DataMut())
		if !bucket.IsFull() {
			ok := bucket.Insert(key, value)
			bucketGuard.Drop()
			return ok
		}

		if dir.GlobalDepth() == dir.LocalDepth(bucketIdx) {
			if dir.GlobalDepth() == dir.MaxDepth() {
				bucketGuard.Drop()
				return false
			}
			dir.IncrGlobalDepth()
		}

		newPID, ok := t.splitFullBucket(bucket, dir.LocalDepth(bucketIdx))
		bucketGuard.Drop()
		if !ok {
			return false
		}

		startIdx := bucketIdx & dir.LocalDepthMask(bucketIdx)
		offset := uint32(1) << dir.LocalDepth(bucketIdx)
		targetDepth := dir.LocalDepth(bucketIdx) + 1
		for i := startIdx; i < dir.Size(); i += offset {
			if i&offset != 0 {
				t.updateDirectoryMapping(dir, i, newPID, targetDepth)
			} else {
				t.updateDirectoryMapping(dir, i, targetPID, targetDepth)
			}
		}
	}
}

// splitFullBucket allocates a new bucket and partitions origBucket's
// entries by the bit at position depth, matching the original's
// SplitFullBucket.
func (t *DiskExtendibleHashTable) splitFullBucket(origBucket *BucketPage, depth uint32) (storage.PageID, bool) {
	t.newPageMu.Lock()
	newPID, page := t.bpm.NewPage()
	t.newPageMu.Unlock()
	if page == nil {
		return storage.InvalidPageID, false
	}
	page.WLatch()
	newBucket := WrapBucketPage(page.Data())
	newBucket.Init(t.bucketMaxSize)

	var toRemove []int64
	n := origBucket.Size()
	for i := uint32(0); i < n; i++ {
		k, v := origBucket.EntryAt(i)
		if (t.hash(k)>>depth)&1 != 0 {
			newBucket.Insert(k, v)
			toRemove = append(toRemove, k)
		}
	}
	page.WUnlatch()
	t.bpm.UnpinPage(newPID, true)

	for _, k := range toRemove {
		origBucket.Remove(k)
	}
	return newPID, true
}

// Remove deletes key, merging the bucket (and possibly shrinking the
// directory) if the deletion leaves it empty, per spec.md §4.5.
func (t *DiskExtendibleHashTable) Remove(key int64) bool {
	hash := t.hash(key)

	headerGuard, ok := t.bpm.FetchPageRead(t.headerPageID)
	if !ok {
		return false
	}
	header := WrapHeaderPage(headerGuard.Data())
	dirIdx := header.HashToDirectoryIndex(hash)
	dirPID := storage.PageID(header.GetDirectoryPageID(dirIdx))
	headerGuard.Drop()
	if dirPID == storage.InvalidPageID {
		return false
	}

	dirGuard, ok := t.bpm.FetchPageWrite(dirPID)
	if !ok {
		return false
	}
	defer dirGuard.Drop()
	dir := WrapDirectoryPage(dirGuard.DataMut())
	bucketIdx := dir.HashToBucketIndex(hash)
	bucketPID := storage.PageID(dir.GetBucketPageID(bucketIdx))
	if bucketPID == storage.InvalidPageID {
		return false
	}

	bucketGuard, ok := t.bpm.FetchPageWrite(bucketPID)
	if !ok {
		return false
	}
	bucket := WrapBucketPage(bucketGuard.DataMut())
	if !bucket.Remove(key) {
		bucketGuard.Drop()
		return false
	}
	empty := bucket.IsEmpty()
	bucketGuard.Drop()
	if !empty {
		return true
	}

	if !t.solveEmptyBucket(dir, bucketIdx) {
		return false
	}
	for dir.CanShrink() {
		dir.DecrGlobalDepth()
	}
	return true
}

// solveEmptyBucket merges an empty bucket into its split image, then
// repeats one level up on the merged slot's new split image: that bucket
// is merged in turn while it is empty and its local depth matches its own
// split image's, per the original's SolveEmptyBucket.
func (t *DiskExtendibleHashTable) solveEmptyBucket(dir *DirectoryPage, bucketIdx uint32) bool {
	for {
		if dir.LocalDepth(bucketIdx) == 0 {
			return true
		}
		splitIdx := dir.GetSplitImageIndex(bucketIdx)
		if dir.LocalDepth(bucketIdx) != dir.LocalDepth(splitIdx) {
			return true
		}

		bucketPID := storage.PageID(dir.GetBucketPageID(bucketIdx))
		bucketGuard, ok := t.bpm.FetchPageWrite(bucketPID)
		if !ok {
			return false
		}
		bucket := WrapBucketPage(bucketGuard.Data())
		stillEmpty := bucket.IsEmpty()
		bucketGuard.Drop()
		if !stillEmpty {
			return true
		}

		splitPID := storage.PageID(dir.GetBucketPageID(splitIdx))
		targetDepth := dir.LocalDepth(bucketIdx) - 1
		startIdx := bucketIdx & ((uint32(1) << targetDepth) - 1)
		offset := uint32(1) << targetDepth
		for i := startIdx; i < dir.Size(); i += offset {
			t.updateDirectoryMapping(dir, i, splitPID, targetDepth)
		}
		t.bpm.DeletePage(bucketPID)
		bucketIdx = dir.GetSplitImageIndex(bucketIdx)
	}
}
