package store

import (
	"container/heap"
	"time"
)

// --------------------------------------------------------------------------
// Expiry Index
// --------------------------------------------------------------------------

/*
	The expiry index is a min-heap of expiry times combined with a map from
	document id to heap entry:

	- O(log n) to add, update or remove the expiry of a document
	- O(1) to check whether a document has an expiry
	- O(k log n) for a sweep that evicts k documents

	It holds exactly the documents of a collection that have an ExpiresAt.
	Not thread-safe: the collection lock guards it.
*/

// expiryEntry is one document id and its expiry time
type expiryEntry struct {
	id    string
	at    time.Time
	index int // position in the heap, maintained by the heap package
}

// expiryIndex orders documents by expiry time
type expiryIndex struct {
	entries []*expiryEntry
	byID    map[string]*expiryEntry
}

func newExpiryIndex() *expiryIndex {
	return &expiryIndex{
		entries: make([]*expiryEntry, 0),
		byID:    make(map[string]*expiryEntry),
	}
}

// newExpiryIndexFrom builds the index for the given documents
func newExpiryIndexFrom(docs map[string]Document) *expiryIndex {
	idx := newExpiryIndex()
	for id, doc := range docs {
		if doc.ExpiresAt != nil {
			idx.entries = append(idx.entries, &expiryEntry{id: id, at: *doc.ExpiresAt, index: len(idx.entries)})
			idx.byID[id] = idx.entries[len(idx.entries)-1]
		}
	}
	heap.Init(idx)
	return idx
}

// Len returns the number of entries (part of heap.Interface)
func (x *expiryIndex) Len() int { return len(x.entries) }

// Less orders entries by expiry, earliest first (part of heap.Interface)
func (x *expiryIndex) Less(i, j int) bool {
	return x.entries[i].at.Before(x.entries[j].at)
}

// Swap exchanges entries at positions i and j (part of heap.Interface)
func (x *expiryIndex) Swap(i, j int) {
	x.entries[i], x.entries[j] = x.entries[j], x.entries[i]
	x.entries[i].index = i
	x.entries[j].index = j
}

// Push adds an entry (part of heap.Interface, use add instead)
func (x *expiryIndex) Push(v interface{}) {
	e := v.(*expiryEntry)
	e.index = len(x.entries)
	x.entries = append(x.entries, e)
	x.byID[e.id] = e
}

// Pop removes the last entry (part of heap.Interface, use popExpired instead)
func (x *expiryIndex) Pop() interface{} {
	old := x.entries
	n := len(old)
	e := old[n-1]
	old[n-1] = nil // avoid memory leak
	e.index = -1
	x.entries = old[:n-1]
	delete(x.byID, e.id)
	return e
}

// add sets the expiry of document id, replacing an existing one
func (x *expiryIndex) add(id string, at time.Time) {
	if e, exists := x.byID[id]; exists {
		e.at = at
		heap.Fix(x, e.index)
		return
	}
	heap.Push(x, &expiryEntry{id: id, at: at})
}

// remove drops document id from the index
func (x *expiryIndex) remove(id string) bool {
	e, exists := x.byID[id]
	if !exists {
		return false
	}
	heap.Remove(x, e.index)
	return true
}

// peek returns the entry that expires first
func (x *expiryIndex) peek() (*expiryEntry, bool) {
	if len(x.entries) == 0 {
		return nil, false
	}
	return x.entries[0], true
}

// contains reports whether document id has an expiry
func (x *expiryIndex) contains(id string) bool {
	_, exists := x.byID[id]
	return exists
}

// popExpired removes and returns the ids of all documents expiring at or before now
func (x *expiryIndex) popExpired(now time.Time) []string {
	var ids []string
	for {
		e, ok := x.peek()
		if !ok || e.at.After(now) {
			return ids
		}
		heap.Pop(x)
		ids = append(ids, e.id)
	}
}
