package partition

import (
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/IgGusev/ignite-3/mvcc"
)

// PendingRows tracks, per transaction, the rows holding its write intents.
type PendingRows struct {
	mu  sync.Mutex
	txs map[uuid.UUID]map[mvcc.RowID]struct{}
}

func NewPendingRows() *PendingRows {
	return &PendingRows{txs: make(map[uuid.UUID]map[mvcc.RowID]struct{})}
}

func (pr *PendingRows) rowsLocked(txID uuid.UUID) map[mvcc.RowID]struct{} {
	rows, ok := pr.txs[txID]
	if !ok {
		rows = make(map[mvcc.RowID]struct{})
		pr.txs[txID] = rows
	}
	return rows
}

func (pr *PendingRows) AddPendingRowID(txID uuid.UUID, id mvcc.RowID) {
	pr.mu.Lock()
	defer pr.mu.Unlock()
	pr.rowsLocked(txID)[id] = struct{}{}
}

func (pr *PendingRows) AddPendingRowIDs(txID uuid.UUID, ids []mvcc.RowID) {
	if len(ids) == 0 {
		return
	}

	pr.mu.Lock()
	defer pr.mu.Unlock()

	rows := pr.rowsLocked(txID)
	for _, id := range ids {
		rows[id] = struct{}{}
	}
}

// RemovePendingRowIDs forgets txID and returns its rows in RowID order.
func (pr *PendingRows) RemovePendingRowIDs(txID uuid.UUID) []mvcc.RowID {
	pr.mu.Lock()
	rows := pr.txs[txID]
	delete(pr.txs, txID)
	pr.mu.Unlock()

	return sortedRowIDs(rows)
}

// PendingRowIDs returns the rows of txID in RowID order.
func (pr *PendingRows) PendingRowIDs(txID uuid.UUID) []mvcc.RowID {
	pr.mu.Lock()
	defer pr.mu.Unlock()
	return sortedRowIDs(pr.txs[txID])
}

func sortedRowIDs(rows map[mvcc.RowID]struct{}) []mvcc.RowID {
	ids := make([]mvcc.RowID, 0, len(rows))
	for id := range rows {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].Compare(ids[j]) < 0 })
	return ids
}
