// Package partition applies replicated transactional updates to the
// multi-version storage of a partition and keeps its indexes in line.
package partition

import (
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/IgGusev/ignite-3/hlc"
	"github.com/IgGusev/ignite-3/mvcc"
	"github.com/IgGusev/ignite-3/mvcc/index"
	"github.com/IgGusev/ignite-3/pkg/xlog"
)

var logger = xlog.NewLogger("partition", xlog.INFO)

// DefaultBatchByteLength is the default payload limit of one consistency scope.
const DefaultBatchByteLength = 8192

// StorageUpdateConfig configures a StorageUpdateHandler.
type StorageUpdateConfig struct {
	// BatchByteLength bounds the row payload written in one consistency scope.
	BatchByteLength int `yaml:"batch_byte_length"`
}

func (cfg StorageUpdateConfig) Validate() error {
	if cfg.BatchByteLength < 1 {
		return errors.Errorf("partition: batch byte length %d must be at least 1", cfg.BatchByteLength)
	}
	return nil
}

// CommitPartitionID names the partition that coordinates a transaction's commit.
type CommitPartitionID struct {
	TableID     int
	PartitionID int
}

// RowUpdate is one row of HandleUpdateAll.
type RowUpdate struct {
	RowUUID uuid.UUID

	// Row is nil to delete the row.
	Row *mvcc.BinaryRow

	// LastCommitTs is the newest commit timestamp of the row known to the
	// sender, used to clean up a stale write intent. Null if unknown.
	LastCommitTs hlc.Timestamp
}

// StorageUpdateHandler applies updates of primary replica requests
// and of the replication log to one partition.
type StorageUpdateHandler struct {
	partitionID int
	storage     mvcc.PartitionStorage
	indexes     *index.UpdateHandler
	pending     *PendingRows
	cfg         StorageUpdateConfig
}

func NewStorageUpdateHandler(partitionID int, storage mvcc.PartitionStorage, indexes *index.UpdateHandler, cfg StorageUpdateConfig) *StorageUpdateHandler {
	if cfg.BatchByteLength < 1 {
		cfg.BatchByteLength = DefaultBatchByteLength
	}
	return &StorageUpdateHandler{
		partitionID: partitionID,
		storage:     storage,
		indexes:     indexes,
		pending:     NewPendingRows(),
		cfg:         cfg,
	}
}

func (h *StorageUpdateHandler) PartitionID() int { return h.partitionID }

func (h *StorageUpdateHandler) IndexUpdateHandler() *index.UpdateHandler { return h.indexes }

// PendingRows returns the write intent tracker.
func (h *StorageUpdateHandler) PendingRows() *PendingRows { return h.pending }

// HandleUpdate writes one row. A non-null commitTs writes a committed version
// directly; otherwise a write intent of txID is written. lastCommitTs, if not null,
// lets a write intent of another transaction be resolved before retrying once.
// onApplication runs in the same consistency scope. nil indexIDs updates every index.
func (h *StorageUpdateHandler) HandleUpdate(
	txID uuid.UUID,
	rowUUID uuid.UUID,
	commitPartitionID CommitPartitionID,
	row *mvcc.BinaryRow,
	trackWriteIntent bool,
	onApplication func(),
	commitTs hlc.Timestamp,
	lastCommitTs hlc.Timestamp,
	indexIDs []int,
) error {
	return h.storage.RunConsistently(func(locker mvcc.Locker) error {
		id := mvcc.RowID{PartitionID: h.partitionID, UUID: rowUUID}

		if _, err := h.tryProcessRow(locker, commitPartitionID, id, txID, row, lastCommitTs, commitTs, false, indexIDs); err != nil {
			return err
		}

		if trackWriteIntent {
			h.pending.AddPendingRowID(txID, id)
		}
		if onApplication != nil {
			onApplication()
		}
		return nil
	})
}

func (h *StorageUpdateHandler) tryProcessRow(
	locker mvcc.Locker,
	commitPartitionID CommitPartitionID,
	id mvcc.RowID,
	txID uuid.UUID,
	row *mvcc.BinaryRow,
	lastCommitTs hlc.Timestamp,
	commitTs hlc.Timestamp,
	useTryLock bool,
	indexIDs []int,
) (bool, error) {
	if useTryLock {
		if !locker.TryLock(id) {
			return false, nil
		}
	} else {
		locker.Lock(id)
	}

	var err error
	if !commitTs.IsNull() {
		err = h.addWriteCommittedWithCleanup(id, row, commitTs, txID, lastCommitTs, indexIDs)
	} else {
		err = h.addWriteWithCleanup(id, row, txID, commitPartitionID, lastCommitTs, indexIDs)
	}
	if err != nil {
		return false, err
	}

	h.indexes.AddToIndexes(row, id, indexIDs)
	return true, nil
}

// HandleUpdateAll writes rows in order. One consistency scope takes rows until
// their payload exceeds the batch byte length or a row lock is busy; the first
// row of a scope always waits for its lock. The rest continues in a new scope.
// onApplication runs in the scope that writes the last row.
func (h *StorageUpdateHandler) HandleUpdateAll(
	txID uuid.UUID,
	rows []RowUpdate,
	commitPartitionID CommitPartitionID,
	trackWriteIntent bool,
	onApplication func(),
	commitTs hlc.Timestamp,
	indexIDs []int,
) error {
	for next := 0; next < len(rows); {
		n, err := h.processUntilBatchLimit(rows[next:], txID, trackWriteIntent, commitTs, commitPartitionID, onApplication, indexIDs)
		if err != nil {
			return err
		}
		next += n
	}
	return nil
}

// processUntilBatchLimit returns the number of rows written.
func (h *StorageUpdateHandler) processUntilBatchLimit(
	rows []RowUpdate,
	txID uuid.UUID,
	trackWriteIntent bool,
	commitTs hlc.Timestamp,
	commitPartitionID CommitPartitionID,
	onApplication func(),
	indexIDs []int,
) (int, error) {
	var processed []mvcc.RowID
	err := h.storage.RunConsistently(func(locker mvcc.Locker) error {
		batchLength := 0
		for _, ru := range rows {
			id := mvcc.RowID{PartitionID: h.partitionID, UUID: ru.RowUUID}

			batchLength += ru.Row.TupleSliceLength()
			if len(processed) > 0 && batchLength > h.cfg.BatchByteLength {
				break
			}

			ok, err := h.tryProcessRow(locker, commitPartitionID, id, txID, ru.Row, ru.LastCommitTs, commitTs, len(processed) > 0, indexIDs)
			if err != nil {
				// rows written before the failure keep their write intents
				if trackWriteIntent {
					h.pending.AddPendingRowIDs(txID, processed)
				}
				return err
			}
			if !ok {
				break
			}
			processed = append(processed, id)
		}

		if trackWriteIntent {
			h.pending.AddPendingRowIDs(txID, processed)
		}
		if len(processed) == len(rows) && onApplication != nil {
			onApplication()
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	if len(processed) < len(rows) {
		logger.Debugf("partition %d: split update batch of tx %s after %d rows", h.partitionID, txID, len(processed))
	}
	return len(processed), nil
}

// HandleWriteIntentRead tracks a write intent of txID found by a read,
// so that the commit or abort of txID resolves it too.
func (h *StorageUpdateHandler) HandleWriteIntentRead(txID uuid.UUID, id mvcc.RowID) {
	h.pending.AddPendingRowID(txID, id)
}

// SwitchWriteIntents commits the tracked write intents of txID at commitTs,
// or aborts them.
func (h *StorageUpdateHandler) SwitchWriteIntents(txID uuid.UUID, commit bool, commitTs hlc.Timestamp, indexIDs []int) error {
	return h.SwitchWriteIntentsWithCallback(txID, commit, commitTs, nil, indexIDs)
}

// SwitchWriteIntentsWithCallback is SwitchWriteIntents running onApplication
// in the same consistency scope. It does nothing if txID has no tracked rows
// and onApplication is nil, since the intents may already be resolved.
func (h *StorageUpdateHandler) SwitchWriteIntentsWithCallback(
	txID uuid.UUID,
	commit bool,
	commitTs hlc.Timestamp,
	onApplication func(),
	indexIDs []int,
) error {
	ids := h.pending.RemovePendingRowIDs(txID)
	if len(ids) == 0 && onApplication == nil {
		return nil
	}

	return h.storage.RunConsistently(func(locker mvcc.Locker) error {
		locker.LockAll(ids)

		var err error
		if commit {
			err = h.commitWrite(txID, ids, commitTs)
		} else {
			err = h.abortWrite(txID, ids, indexIDs)
		}
		if err != nil {
			return err
		}

		if onApplication != nil {
			onApplication()
		}
		return nil
	})
}

// commitWrite commits the write intents of txID. Rows whose intent belongs
// to another transaction, or is already gone, are left as is.
func (h *StorageUpdateHandler) commitWrite(txID uuid.UUID, ids []mvcc.RowID, commitTs hlc.Timestamp) error {
	if commitTs.IsNull() {
		logger.Panicf("null commit timestamp of tx %s", txID)
	}

	for _, id := range ids {
		res, err := h.storage.CommitWrite(id, commitTs, txID)
		if err != nil {
			return errors.Wrapf(err, "partition: commit %s of tx %s", id, txID)
		}
		if res.Status == mvcc.CommitTxMismatch {
			logger.Warningf("skipped commit of %s (write intent of tx %s, not %s)", id, res.CurrentWriteIntentTxID, txID)
		}
	}
	return nil
}

// abortWrite removes the write intents of txID and their index entries.
func (h *StorageUpdateHandler) abortWrite(txID uuid.UUID, ids []mvcc.RowID, indexIDs []int) error {
	for _, id := range ids {
		res, err := h.storage.AbortWrite(id, txID)
		if err != nil {
			return errors.Wrapf(err, "partition: abort %s of tx %s", id, txID)
		}
		if res.Status != mvcc.AbortSuccess || res.PreviousWriteIntent == nil {
			continue
		}

		if err = h.removeFromIndexes(id, res.PreviousWriteIntent, indexIDs); err != nil {
			return err
		}
	}
	return nil
}

// removeFromIndexes drops the index entries of a discarded version that
// no remaining version of the row still needs.
func (h *StorageUpdateHandler) removeFromIndexes(id mvcc.RowID, row *mvcc.BinaryRow, indexIDs []int) error {
	cur, err := h.storage.ScanVersions(id)
	if err != nil {
		return errors.Wrapf(err, "partition: scan versions of %s", id)
	}
	defer cur.Close()

	h.indexes.TryRemoveFromIndexes(row, id, cur, indexIDs)
	return nil
}

func (h *StorageUpdateHandler) addWriteCommittedWithCleanup(
	id mvcc.RowID,
	row *mvcc.BinaryRow,
	commitTs hlc.Timestamp,
	txID uuid.UUID,
	lastCommitTs hlc.Timestamp,
	indexIDs []int,
) error {
	res, err := h.storage.AddWriteCommitted(id, row, commitTs)
	if err != nil {
		return errors.Wrapf(err, "partition: write %s", id)
	}
	if res.Status != mvcc.AddWriteCommittedWriteIntentExists {
		return nil
	}

	if lastCommitTs.IsNull() {
		return errors.Wrapf(ErrWriteIntentExists, "%s (tx %s)", id, res.CurrentWriteIntentTxID)
	}

	if err = h.cleanupWriteIntent(id, txID, res.CurrentWriteIntentTxID, lastCommitTs, res.LatestCommitTs, indexIDs); err != nil {
		return err
	}

	res, err = h.storage.AddWriteCommitted(id, row, commitTs)
	if err != nil {
		return errors.Wrapf(err, "partition: write %s", id)
	}
	if res.Status != mvcc.AddWriteCommittedSuccess {
		logger.Panicf("failed to write %s after write intent cleanup (%s)", id, res)
	}
	return nil
}

func (h *StorageUpdateHandler) addWriteWithCleanup(
	id mvcc.RowID,
	row *mvcc.BinaryRow,
	txID uuid.UUID,
	commitPartitionID CommitPartitionID,
	lastCommitTs hlc.Timestamp,
	indexIDs []int,
) error {
	res, err := h.addWrite(id, row, txID, commitPartitionID, indexIDs)
	if err != nil {
		return err
	}
	if res.Status != mvcc.AddWriteTxMismatch {
		return nil
	}

	if lastCommitTs.IsNull() {
		return &TxIDMismatchError{Expected: res.CurrentWriteIntentTxID, Conflicting: txID}
	}

	if err = h.cleanupWriteIntent(id, txID, res.CurrentWriteIntentTxID, lastCommitTs, res.LatestCommitTs, indexIDs); err != nil {
		return err
	}

	res, err = h.addWrite(id, row, txID, commitPartitionID, indexIDs)
	if err != nil {
		return err
	}
	if res.Status != mvcc.AddWriteSuccess {
		logger.Panicf("failed to write %s after write intent cleanup (%s)", id, res)
	}
	return nil
}

// addWrite writes a write intent. When it replaces an intent of the same
// transaction, the replaced row is removed from the indexes.
func (h *StorageUpdateHandler) addWrite(
	id mvcc.RowID,
	row *mvcc.BinaryRow,
	txID uuid.UUID,
	commitPartitionID CommitPartitionID,
	indexIDs []int,
) (mvcc.AddWriteResult, error) {
	res, err := h.storage.AddWrite(id, row, txID, commitPartitionID.TableID, commitPartitionID.PartitionID)
	if err != nil {
		return res, errors.Wrapf(err, "partition: write %s", id)
	}

	if res.Status == mvcc.AddWriteSuccess && res.PreviousWriteIntent != nil {
		if err = h.removeFromIndexes(id, res.PreviousWriteIntent, indexIDs); err != nil {
			return res, err
		}
	}
	return res, nil
}

// cleanupWriteIntent resolves the write intent of another transaction
// found on the row, given the newest commit timestamp known upstream.
func (h *StorageUpdateHandler) cleanupWriteIntent(
	id mvcc.RowID,
	txID uuid.UUID,
	writeIntentTxID uuid.UUID,
	lastCommitTs hlc.Timestamp,
	latestCommitTs hlc.Timestamp,
	indexIDs []int,
) error {
	if txID == writeIntentTxID {
		logger.Panicf("write intent of %s already belongs to tx %s", id, txID)
	}

	switch {
	case latestCommitTs.IsNull():
		// the write intent is the first version of the row
		// and lastCommitTs is its commit timestamp
		return h.commitWrite(writeIntentTxID, []mvcc.RowID{id}, lastCommitTs)

	case lastCommitTs < latestCommitTs:
		logger.Panicf("commit timestamp %s of %s is earlier than local commit timestamp %s", lastCommitTs, id, latestCommitTs)
		return nil

	case lastCommitTs > latestCommitTs:
		// committed upstream, not applied here yet
		return h.commitWrite(writeIntentTxID, []mvcc.RowID{id}, lastCommitTs)

	default:
		// no newer commit upstream; the writer was aborted without cleanup
		return h.abortWrite(writeIntentTxID, []mvcc.RowID{id}, indexIDs)
	}
}
