package raft

import "errors"

var (
	// ErrStopped is returned when the log manager has been stopped.
	ErrStopped = errors.New("raft: stopped")

	// ErrIO is returned once a log storage write has failed.
	// The log manager rejects every later append with it.
	ErrIO = errors.New("raft: log storage i/o error")

	// ErrGap is returned when appended entries do not follow the last log index.
	ErrGap = errors.New("raft: log entries leave a gap")

	// ErrLogEntryCorrupted is returned when a stored entry fails its checksum.
	ErrLogEntryCorrupted = errors.New("raft: corrupted log entry")

	// ErrNoLogStorage is returned by Init without a log storage.
	ErrNoLogStorage = errors.New("raft: log storage is not set")

	// ErrInconsistentLog is returned by CheckConsistency.
	ErrInconsistentLog = errors.New("raft: inconsistent log")
)
