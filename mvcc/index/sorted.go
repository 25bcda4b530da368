package index

import (
	"bytes"
	"sync"

	"github.com/google/btree"

	"github.com/IgGusev/ignite-3/mvcc"
)

type sortedItem struct {
	key []byte
	id  mvcc.RowID
}

func (it *sortedItem) Less(than btree.Item) bool {
	o := than.(*sortedItem)
	if c := bytes.Compare(it.key, o.key); c != 0 {
		return c < 0
	}
	return it.id.Compare(o.id) < 0
}

// IndexRow is one entry of a sorted index.
type IndexRow struct {
	Key   []byte
	RowID mvcc.RowID
}

// SortedStorage keeps index entries ordered by key, then by row id.
type SortedStorage struct {
	mu   sync.RWMutex
	tree *btree.BTree
}

func NewSortedStorage() *SortedStorage {
	return &SortedStorage{tree: btree.New(32)}
}

func (ss *SortedStorage) Put(key []byte, id mvcc.RowID) {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	ss.tree.ReplaceOrInsert(&sortedItem{key: append([]byte(nil), key...), id: id})
}

func (ss *SortedStorage) Remove(key []byte, id mvcc.RowID) {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	ss.tree.Delete(&sortedItem{key: key, id: id})
}

func (ss *SortedStorage) Get(key []byte) []mvcc.RowID {
	var ids []mvcc.RowID
	for _, r := range ss.Scan(key, key, true) {
		ids = append(ids, r.RowID)
	}
	return ids
}

// Scan returns the entries with lower <= key < upper, or key <= upper if
// includeUpper. A nil bound is unbounded.
func (ss *SortedStorage) Scan(lower, upper []byte, includeUpper bool) []IndexRow {
	ss.mu.RLock()
	defer ss.mu.RUnlock()

	var rows []IndexRow
	visit := func(item btree.Item) bool {
		it := item.(*sortedItem)
		if upper != nil {
			c := bytes.Compare(it.key, upper)
			if c > 0 || (c == 0 && !includeUpper) {
				return false
			}
		}
		rows = append(rows, IndexRow{Key: it.key, RowID: it.id})
		return true
	}
	if lower == nil {
		ss.tree.Ascend(visit)
	} else {
		// the zero RowID sorts before every row id of the same key
		ss.tree.AscendGreaterOrEqual(&sortedItem{key: lower}, visit)
	}
	return rows
}

// Len returns the number of entries.
func (ss *SortedStorage) Len() int {
	ss.mu.RLock()
	defer ss.mu.RUnlock()
	return ss.tree.Len()
}
