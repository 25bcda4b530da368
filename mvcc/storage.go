package mvcc

import (
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/IgGusev/ignite-3/hlc"
	"github.com/IgGusev/ignite-3/pkg/xlog"
)

var logger = xlog.NewLogger("mvcc", xlog.INFO)

var ErrStorageClosed = errors.New("mvcc: storage closed")

// Cursor iterates over row versions. Callers must Close it.
type Cursor interface {
	Next() bool
	Value() ReadResult
	Close() error
}

// Locker locks rows for the duration of one consistency scope.
// Locks are released when the scope returns.
type Locker interface {
	// Lock blocks until the row is locked by this scope.
	Lock(id RowID)

	// TryLock locks the row without blocking and reports whether it did.
	TryLock(id RowID) bool

	// LockAll locks rows in an order shared by every scope, so that
	// two scopes locking overlapping sets cannot deadlock.
	// It must be called before any other lock in the scope.
	LockAll(ids []RowID)

	// IsLocked returns true if the scope holds the row lock.
	IsLocked(id RowID) bool
}

// WriteClosure runs inside a consistency scope.
type WriteClosure func(locker Locker) error

// PartitionStorage is multi-version storage of one partition.
// Every row holds at most one write intent, newer than all its committed versions.
// Write methods must be called from a consistency scope holding the row lock.
type PartitionStorage interface {
	// RunConsistently runs closure in a consistency scope and releases
	// every row lock it took when it returns.
	RunConsistently(closure WriteClosure) error

	// AddWrite creates or replaces the write intent of txID.
	AddWrite(id RowID, row *BinaryRow, txID uuid.UUID, commitTableID, commitPartitionID int) (AddWriteResult, error)

	// AddWriteCommitted adds a committed version at commitTs.
	AddWriteCommitted(id RowID, row *BinaryRow, commitTs hlc.Timestamp) (AddWriteCommittedResult, error)

	// CommitWrite converts the write intent of txID into a version committed at commitTs.
	CommitWrite(id RowID, commitTs hlc.Timestamp, txID uuid.UUID) (CommitResult, error)

	// AbortWrite removes the write intent of txID.
	AbortWrite(id RowID, txID uuid.UUID) (AbortResult, error)

	// Read returns the newest version visible at ts. hlc.Max also sees the write intent.
	Read(id RowID, ts hlc.Timestamp) (ReadResult, error)

	// ScanVersions returns every version of the row, newest first.
	ScanVersions(id RowID) (Cursor, error)

	Close() error
}
