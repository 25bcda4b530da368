package mvcc

import (
	"sync"

	"github.com/google/btree"
	"github.com/google/uuid"

	"github.com/IgGusev/ignite-3/hlc"
)

// version is one entry of a row chain.
type version struct {
	row *BinaryRow

	txID              uuid.UUID
	commitTableID     int
	commitPartitionID int

	commitTs hlc.Timestamp
}

func (v *version) isWriteIntent() bool { return v.commitTs.IsNull() }

// rowChain holds the versions of a row, newest first.
// Only versions[0] may be a write intent.
type rowChain struct {
	id       RowID
	versions []*version
}

func (rc *rowChain) Less(than btree.Item) bool {
	return rc.id.Compare(than.(*rowChain).id) < 0
}

func (rc *rowChain) writeIntent() *version {
	if len(rc.versions) > 0 && rc.versions[0].isWriteIntent() {
		return rc.versions[0]
	}
	return nil
}

func (rc *rowChain) committed() []*version {
	if rc.writeIntent() != nil {
		return rc.versions[1:]
	}
	return rc.versions
}

func (rc *rowChain) latestCommitTs() hlc.Timestamp {
	if c := rc.committed(); len(c) > 0 {
		return c[0].commitTs
	}
	return hlc.Null
}

func (rc *rowChain) readResult(v *version) ReadResult {
	rr := ReadResult{RowID: rc.id, Row: v.row, CommitTs: v.commitTs}
	if v.isWriteIntent() {
		rr.TxID = v.txID
		rr.CommitTableID = v.commitTableID
		rr.CommitPartitionID = v.commitPartitionID
		rr.NewestCommitTs = rc.latestCommitTs()
	}
	return rr
}

// treeIndex orders row chains by RowID.
type treeIndex struct {
	sync.RWMutex
	tree *btree.BTree
}

func newTreeIndex() *treeIndex {
	return &treeIndex{tree: btree.New(32)}
}

// get returns the chain of id, or nil. Callers hold the lock.
func (ti *treeIndex) get(id RowID) *rowChain {
	item := ti.tree.Get(&rowChain{id: id})
	if item == nil {
		return nil
	}
	return item.(*rowChain)
}

// getOrCreate returns the chain of id, inserting an empty one if missing.
func (ti *treeIndex) getOrCreate(id RowID) *rowChain {
	if rc := ti.get(id); rc != nil {
		return rc
	}
	rc := &rowChain{id: id}
	ti.tree.ReplaceOrInsert(rc)
	return rc
}

// removeIfEmpty drops a chain without versions.
func (ti *treeIndex) removeIfEmpty(rc *rowChain) {
	if len(rc.versions) == 0 {
		ti.tree.Delete(rc)
	}
}

// ascend visits chains in RowID order starting at from.
func (ti *treeIndex) ascend(from RowID, f func(rc *rowChain) bool) {
	ti.tree.AscendGreaterOrEqual(&rowChain{id: from}, func(item btree.Item) bool {
		return f(item.(*rowChain))
	})
}
