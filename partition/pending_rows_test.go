package partition

import (
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/IgGusev/ignite-3/mvcc"
)

func TestPendingRows(t *testing.T) {
	pr := NewPendingRows()
	tx1, tx2 := uuid.New(), uuid.New()
	r1, r2, r3 := mvcc.NewRowID(1), mvcc.NewRowID(1), mvcc.NewRowID(1)

	pr.AddPendingRowID(tx1, r1)
	pr.AddPendingRowIDs(tx1, []mvcc.RowID{r2, r1})
	pr.AddPendingRowIDs(tx2, nil)
	pr.AddPendingRowID(tx2, r3)

	require.ElementsMatch(t, []mvcc.RowID{r1, r2}, pr.PendingRowIDs(tx1))
	require.Equal(t, []mvcc.RowID{r3}, pr.PendingRowIDs(tx2))

	ids := pr.RemovePendingRowIDs(tx1)
	require.ElementsMatch(t, []mvcc.RowID{r1, r2}, ids)
	require.Negative(t, ids[0].Compare(ids[1]))
	require.Empty(t, pr.PendingRowIDs(tx1))
	require.Empty(t, pr.RemovePendingRowIDs(tx1))
	require.Equal(t, []mvcc.RowID{r3}, pr.PendingRowIDs(tx2))
}

func TestPendingRowsConcurrent(t *testing.T) {
	pr := NewPendingRows()
	tx := uuid.New()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				pr.AddPendingRowID(tx, mvcc.NewRowID(1))
			}
		}()
	}
	wg.Wait()

	require.Len(t, pr.RemovePendingRowIDs(tx), 800)
}
