package index

import (
	"bytes"
	"sort"
	"sync"

	"github.com/IgGusev/ignite-3/mvcc"
)

// UpdateHandler keeps the indexes of a partition in line with its rows.
// A nil id list means every registered index.
type UpdateHandler struct {
	mu      sync.RWMutex
	indexes map[int]*Index
}

func NewUpdateHandler(indexes ...*Index) *UpdateHandler {
	uh := &UpdateHandler{indexes: make(map[int]*Index)}
	for _, idx := range indexes {
		uh.indexes[idx.ID] = idx
	}
	return uh
}

// Register adds or replaces an index.
func (uh *UpdateHandler) Register(idx *Index) {
	uh.mu.Lock()
	defer uh.mu.Unlock()
	uh.indexes[idx.ID] = idx
}

// Unregister drops an index. Later updates naming it are ignored.
func (uh *UpdateHandler) Unregister(id int) {
	uh.mu.Lock()
	defer uh.mu.Unlock()
	delete(uh.indexes, id)
}

// Index returns the registered index, or nil.
func (uh *UpdateHandler) Index(id int) *Index {
	uh.mu.RLock()
	defer uh.mu.RUnlock()
	return uh.indexes[id]
}

// selected returns the indexes named by ids in id order.
func (uh *UpdateHandler) selected(ids []int) []*Index {
	uh.mu.RLock()
	defer uh.mu.RUnlock()

	var idxs []*Index
	if ids == nil {
		for _, idx := range uh.indexes {
			idxs = append(idxs, idx)
		}
	} else {
		for _, id := range ids {
			if idx, ok := uh.indexes[id]; ok {
				idxs = append(idxs, idx)
			}
		}
	}
	sort.Slice(idxs, func(i, j int) bool { return idxs[i].ID < idxs[j].ID })
	return idxs
}

// AddToIndexes indexes row under id. A tombstone is not indexed.
func (uh *UpdateHandler) AddToIndexes(row *mvcc.BinaryRow, id mvcc.RowID, ids []int) {
	if row == nil {
		return
	}
	for _, idx := range uh.selected(ids) {
		idx.Storage.Put(idx.Key(row), id)
	}
}

// TryRemoveFromIndexes removes the index entries of a discarded version
// of the row, keeping every key still produced by a remaining version.
// Remaining versions are read from cur, which the caller closes.
func (uh *UpdateHandler) TryRemoveFromIndexes(row *mvcc.BinaryRow, id mvcc.RowID, cur mvcc.Cursor, ids []int) {
	if row == nil {
		return
	}

	var remaining []*mvcc.BinaryRow
	for cur.Next() {
		if rr := cur.Value(); rr.Row != nil {
			remaining = append(remaining, rr.Row)
		}
	}

	for _, idx := range uh.selected(ids) {
		key := idx.Key(row)

		used := false
		for _, r := range remaining {
			if bytes.Equal(idx.Key(r), key) {
				used = true
				break
			}
		}
		if !used {
			idx.Storage.Remove(key, id)
		}
	}
}
