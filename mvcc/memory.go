package mvcc

import (
	"sort"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/IgGusev/ignite-3/hlc"
	"github.com/IgGusev/ignite-3/pkg/syncutil"
)

// MemoryPartitionStorage implements PartitionStorage in memory.
type MemoryPartitionStorage struct {
	partitionID int

	locks *syncutil.StripedMutex
	idx   *treeIndex

	// guarded by idx
	closed bool
}

// NewMemoryPartitionStorage returns an empty storage with the given
// number of row lock stripes. stripes < 1 picks a default.
func NewMemoryPartitionStorage(partitionID, stripes int) *MemoryPartitionStorage {
	return &MemoryPartitionStorage{
		partitionID: partitionID,
		locks:       syncutil.NewStripedMutex(stripes),
		idx:         newTreeIndex(),
	}
}

// PartitionID returns the partition number.
func (ms *MemoryPartitionStorage) PartitionID() int { return ms.partitionID }

func (ms *MemoryPartitionStorage) RunConsistently(closure WriteClosure) error {
	ms.idx.RLock()
	closed := ms.closed
	ms.idx.RUnlock()
	if closed {
		return ErrStorageClosed
	}

	l := &stripeLocker{
		locks: ms.locks,
		set:   syncutil.NewStripeSet(ms.locks),
		rows:  make(map[RowID]struct{}),
	}
	defer l.set.UnlockAll()

	return closure(l)
}

func (ms *MemoryPartitionStorage) AddWrite(id RowID, row *BinaryRow, txID uuid.UUID, commitTableID, commitPartitionID int) (AddWriteResult, error) {
	ms.idx.Lock()
	defer ms.idx.Unlock()

	if ms.closed {
		return AddWriteResult{}, ErrStorageClosed
	}

	rc := ms.idx.getOrCreate(id)
	wi := &version{row: row, txID: txID, commitTableID: commitTableID, commitPartitionID: commitPartitionID}

	if cur := rc.writeIntent(); cur != nil {
		if cur.txID != txID {
			return AddWriteResult{
				Status:                 AddWriteTxMismatch,
				CurrentWriteIntentTxID: cur.txID,
				LatestCommitTs:         rc.latestCommitTs(),
			}, nil
		}
		rc.versions[0] = wi
		return AddWriteResult{Status: AddWriteSuccess, PreviousWriteIntent: cur.row}, nil
	}

	rc.versions = append([]*version{wi}, rc.versions...)
	return AddWriteResult{Status: AddWriteSuccess}, nil
}

func (ms *MemoryPartitionStorage) AddWriteCommitted(id RowID, row *BinaryRow, commitTs hlc.Timestamp) (AddWriteCommittedResult, error) {
	if commitTs.IsNull() {
		return AddWriteCommittedResult{}, errors.Errorf("mvcc: null commit timestamp for %s", id)
	}

	ms.idx.Lock()
	defer ms.idx.Unlock()

	if ms.closed {
		return AddWriteCommittedResult{}, ErrStorageClosed
	}

	rc := ms.idx.getOrCreate(id)
	if cur := rc.writeIntent(); cur != nil {
		return AddWriteCommittedResult{
			Status:                 AddWriteCommittedWriteIntentExists,
			CurrentWriteIntentTxID: cur.txID,
			LatestCommitTs:         rc.latestCommitTs(),
		}, nil
	}
	if latest := rc.latestCommitTs(); commitTs <= latest {
		return AddWriteCommittedResult{}, errors.Errorf("mvcc: commit timestamp %s of %s is not after %s", commitTs, id, latest)
	}

	rc.versions = append([]*version{{row: row, commitTs: commitTs}}, rc.versions...)
	return AddWriteCommittedResult{Status: AddWriteCommittedSuccess}, nil
}

func (ms *MemoryPartitionStorage) CommitWrite(id RowID, commitTs hlc.Timestamp, txID uuid.UUID) (CommitResult, error) {
	if commitTs.IsNull() {
		return CommitResult{}, errors.Errorf("mvcc: null commit timestamp for %s", id)
	}

	ms.idx.Lock()
	defer ms.idx.Unlock()

	if ms.closed {
		return CommitResult{}, ErrStorageClosed
	}

	rc := ms.idx.get(id)
	if rc == nil || rc.writeIntent() == nil {
		return CommitResult{Status: CommitNoWriteIntent}, nil
	}
	wi := rc.writeIntent()
	if wi.txID != txID {
		return CommitResult{Status: CommitTxMismatch, CurrentWriteIntentTxID: wi.txID}, nil
	}
	if latest := rc.latestCommitTs(); commitTs <= latest {
		return CommitResult{}, errors.Errorf("mvcc: commit timestamp %s of %s is not after %s", commitTs, id, latest)
	}

	rc.versions[0] = &version{row: wi.row, commitTs: commitTs}
	return CommitResult{Status: CommitSuccess}, nil
}

func (ms *MemoryPartitionStorage) AbortWrite(id RowID, txID uuid.UUID) (AbortResult, error) {
	ms.idx.Lock()
	defer ms.idx.Unlock()

	if ms.closed {
		return AbortResult{}, ErrStorageClosed
	}

	rc := ms.idx.get(id)
	if rc == nil || rc.writeIntent() == nil {
		return AbortResult{Status: AbortNoWriteIntent}, nil
	}
	wi := rc.writeIntent()
	if wi.txID != txID {
		return AbortResult{Status: AbortTxMismatch, CurrentWriteIntentTxID: wi.txID}, nil
	}

	rc.versions = rc.versions[1:]
	ms.idx.removeIfEmpty(rc)
	return AbortResult{Status: AbortSuccess, PreviousWriteIntent: wi.row}, nil
}

func (ms *MemoryPartitionStorage) Read(id RowID, ts hlc.Timestamp) (ReadResult, error) {
	ms.idx.RLock()
	defer ms.idx.RUnlock()

	if ms.closed {
		return ReadResult{}, ErrStorageClosed
	}

	rc := ms.idx.get(id)
	if rc == nil {
		return ReadResult{RowID: id}, nil
	}
	if wi := rc.writeIntent(); wi != nil && ts == hlc.Max {
		return rc.readResult(wi), nil
	}
	for _, v := range rc.committed() {
		if v.commitTs <= ts {
			return rc.readResult(v), nil
		}
	}
	return ReadResult{RowID: id}, nil
}

func (ms *MemoryPartitionStorage) ScanVersions(id RowID) (Cursor, error) {
	ms.idx.RLock()
	defer ms.idx.RUnlock()

	if ms.closed {
		return nil, ErrStorageClosed
	}

	c := &sliceCursor{}
	if rc := ms.idx.get(id); rc != nil {
		for _, v := range rc.versions {
			c.results = append(c.results, rc.readResult(v))
		}
	}
	return c, nil
}

// RowIDs returns the ids of rows with at least one version, in order.
func (ms *MemoryPartitionStorage) RowIDs() ([]RowID, error) {
	ms.idx.RLock()
	defer ms.idx.RUnlock()

	if ms.closed {
		return nil, ErrStorageClosed
	}

	var ids []RowID
	ms.idx.ascend(RowID{PartitionID: ms.partitionID}, func(rc *rowChain) bool {
		if rc.id.PartitionID != ms.partitionID {
			return false
		}
		ids = append(ids, rc.id)
		return true
	})
	return ids, nil
}

func (ms *MemoryPartitionStorage) Close() error {
	ms.idx.Lock()
	defer ms.idx.Unlock()

	if ms.closed {
		return nil
	}
	ms.closed = true
	logger.Infof("closed partition storage %d", ms.partitionID)
	return nil
}

// stripeLocker is the Locker of one consistency scope.
type stripeLocker struct {
	locks *syncutil.StripedMutex
	set   *syncutil.StripeSet
	rows  map[RowID]struct{}
}

func (l *stripeLocker) Lock(id RowID) {
	l.set.Lock(l.locks.Index(id.Hash()))
	l.rows[id] = struct{}{}
}

func (l *stripeLocker) TryLock(id RowID) bool {
	if !l.set.TryLock(l.locks.Index(id.Hash())) {
		return false
	}
	l.rows[id] = struct{}{}
	return true
}

func (l *stripeLocker) LockAll(ids []RowID) {
	if l.set.Held() > 0 {
		logger.Panicf("LockAll called in a scope already holding %d stripes", l.set.Held())
	}

	stripes := make([]int, 0, len(ids))
	for _, id := range ids {
		stripes = append(stripes, l.locks.Index(id.Hash()))
		l.rows[id] = struct{}{}
	}
	sort.Ints(stripes)
	for _, s := range stripes {
		l.set.Lock(s)
	}
}

func (l *stripeLocker) IsLocked(id RowID) bool {
	_, ok := l.rows[id]
	return ok
}

type sliceCursor struct {
	results []ReadResult
	cur     ReadResult
}

func (c *sliceCursor) Next() bool {
	if len(c.results) == 0 {
		return false
	}
	c.cur, c.results = c.results[0], c.results[1:]
	return true
}

func (c *sliceCursor) Value() ReadResult { return c.cur }

func (c *sliceCursor) Close() error {
	c.results = nil
	return nil
}
