package index

import (
	"sort"
	"sync"

	"github.com/IgGusev/ignite-3/mvcc"
)

// HashStorage is an unordered index.
type HashStorage struct {
	mu sync.RWMutex
	m  map[string]map[mvcc.RowID]struct{}
}

func NewHashStorage() *HashStorage {
	return &HashStorage{m: make(map[string]map[mvcc.RowID]struct{})}
}

func (hs *HashStorage) Put(key []byte, id mvcc.RowID) {
	hs.mu.Lock()
	defer hs.mu.Unlock()

	ids, ok := hs.m[string(key)]
	if !ok {
		ids = make(map[mvcc.RowID]struct{})
		hs.m[string(key)] = ids
	}
	ids[id] = struct{}{}
}

func (hs *HashStorage) Remove(key []byte, id mvcc.RowID) {
	hs.mu.Lock()
	defer hs.mu.Unlock()

	ids, ok := hs.m[string(key)]
	if !ok {
		return
	}
	delete(ids, id)
	if len(ids) == 0 {
		delete(hs.m, string(key))
	}
}

// Get returns the row ids of key in RowID order.
func (hs *HashStorage) Get(key []byte) []mvcc.RowID {
	hs.mu.RLock()
	defer hs.mu.RUnlock()

	var ids []mvcc.RowID
	for id := range hs.m[string(key)] {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].Compare(ids[j]) < 0 })
	return ids
}
