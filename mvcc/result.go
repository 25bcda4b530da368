package mvcc

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/IgGusev/ignite-3/hlc"
)

type AddWriteStatus uint8

const (
	AddWriteSuccess AddWriteStatus = iota
	// AddWriteTxMismatch means another transaction holds the write intent.
	AddWriteTxMismatch
)

func (s AddWriteStatus) String() string {
	switch s {
	case AddWriteSuccess:
		return "SUCCESS"
	case AddWriteTxMismatch:
		return "TX_MISMATCH"
	default:
		return fmt.Sprintf("AddWriteStatus(%d)", s)
	}
}

// AddWriteResult is returned by PartitionStorage.AddWrite.
type AddWriteResult struct {
	Status AddWriteStatus

	// PreviousWriteIntent is the row replaced by the same transaction, on success.
	PreviousWriteIntent *BinaryRow

	// CurrentWriteIntentTxID and LatestCommitTs are set on mismatch.
	CurrentWriteIntentTxID uuid.UUID
	LatestCommitTs         hlc.Timestamp
}

func (r AddWriteResult) String() string {
	return fmt.Sprintf("AddWriteResult[status=%s | txId=%s | latestCommitTs=%s]", r.Status, r.CurrentWriteIntentTxID, r.LatestCommitTs)
}

type AddWriteCommittedStatus uint8

const (
	AddWriteCommittedSuccess AddWriteCommittedStatus = iota
	// AddWriteCommittedWriteIntentExists means the row has an uncommitted version.
	AddWriteCommittedWriteIntentExists
)

func (s AddWriteCommittedStatus) String() string {
	switch s {
	case AddWriteCommittedSuccess:
		return "SUCCESS"
	case AddWriteCommittedWriteIntentExists:
		return "WRITE_INTENT_EXISTS"
	default:
		return fmt.Sprintf("AddWriteCommittedStatus(%d)", s)
	}
}

// AddWriteCommittedResult is returned by PartitionStorage.AddWriteCommitted.
type AddWriteCommittedResult struct {
	Status AddWriteCommittedStatus

	// CurrentWriteIntentTxID and LatestCommitTs are set when an intent exists.
	CurrentWriteIntentTxID uuid.UUID
	LatestCommitTs         hlc.Timestamp
}

func (r AddWriteCommittedResult) String() string {
	return fmt.Sprintf("AddWriteCommittedResult[status=%s | txId=%s | latestCommitTs=%s]", r.Status, r.CurrentWriteIntentTxID, r.LatestCommitTs)
}

type CommitStatus uint8

const (
	CommitSuccess CommitStatus = iota
	CommitNoWriteIntent
	CommitTxMismatch
)

// CommitResult is returned by PartitionStorage.CommitWrite.
type CommitResult struct {
	Status CommitStatus

	// CurrentWriteIntentTxID is set on mismatch.
	CurrentWriteIntentTxID uuid.UUID
}

type AbortStatus uint8

const (
	AbortSuccess AbortStatus = iota
	AbortNoWriteIntent
	AbortTxMismatch
)

// AbortResult is returned by PartitionStorage.AbortWrite.
type AbortResult struct {
	Status AbortStatus

	// PreviousWriteIntent is the removed row, on success.
	PreviousWriteIntent *BinaryRow

	// CurrentWriteIntentTxID is set on mismatch.
	CurrentWriteIntentTxID uuid.UUID
}
