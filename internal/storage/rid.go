package storage

import "fmt"

// RID locates a tuple within a table heap: the page it lives on plus its
// slot index within that page. It is the unit of identity undo logs,
// watermarks, and index entries all address.
type RID struct {
	PageID PageID
	Slot   uint32
}

// InvalidRID is the zero-value sentinel for "no such tuple".
var InvalidRID = RID{PageID: InvalidPageID, Slot: 0}

func (r RID) String() string {
	return fmt.Sprintf("%d:%d", r.PageID, r.Slot)
}

// Valid reports whether r addresses a real page.
func (r RID) Valid() bool { return r.PageID != InvalidPageID }
