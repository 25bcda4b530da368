// Package mvcc defines multi-version partition storage: rows, write intents
// and committed versions ordered by commit timestamp.
package mvcc

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/google/uuid"

	"github.com/IgGusev/ignite-3/hlc"
)

// RowID identifies a row within a partition.
type RowID struct {
	PartitionID int
	UUID        uuid.UUID
}

// NewRowID returns a RowID with a random uuid.
func NewRowID(partitionID int) RowID {
	return RowID{PartitionID: partitionID, UUID: uuid.New()}
}

// Compare orders by partition, then by uuid bytes.
func (id RowID) Compare(o RowID) int {
	switch {
	case id.PartitionID < o.PartitionID:
		return -1
	case id.PartitionID > o.PartitionID:
		return 1
	}
	return bytes.Compare(id.UUID[:], o.UUID[:])
}

// Hash returns a stable hash used to pick a lock stripe.
func (id RowID) Hash() uint64 {
	return binary.BigEndian.Uint64(id.UUID[:8]) ^ binary.BigEndian.Uint64(id.UUID[8:]) ^ uint64(id.PartitionID)
}

func (id RowID) String() string {
	return fmt.Sprintf("RowID[partition=%d | uuid=%s]", id.PartitionID, id.UUID)
}

// BinaryRow is a serialized row tuple of a given schema version.
// A nil *BinaryRow is a tombstone.
type BinaryRow struct {
	SchemaVersion int
	Tuple         []byte
}

// TupleSliceLength returns the payload size counted against batch limits.
func (r *BinaryRow) TupleSliceLength() int {
	if r == nil {
		return 0
	}
	return len(r.Tuple)
}

// ReadResult is one row version.
type ReadResult struct {
	RowID RowID

	// Row is nil for a tombstone or an empty result.
	Row *BinaryRow

	// TxID, CommitTableID and CommitPartitionID are set for a write intent.
	TxID              uuid.UUID
	CommitTableID     int
	CommitPartitionID int

	// CommitTs is set for a committed version.
	CommitTs hlc.Timestamp

	// NewestCommitTs is the newest committed timestamp of the row,
	// reported with a write intent.
	NewestCommitTs hlc.Timestamp
}

// IsWriteIntent returns true if the version is not committed.
func (rr ReadResult) IsWriteIntent() bool {
	return rr.CommitTs.IsNull() && rr.TxID != uuid.Nil
}

// IsEmpty returns true if no version was found.
func (rr ReadResult) IsEmpty() bool {
	return rr.CommitTs.IsNull() && rr.TxID == uuid.Nil && rr.Row == nil
}
