// Package raft implements the log manager of a Raft replication group
// (https://github.com/ongardie/dissertation).
//
// Reference implementation is the jraft LogManager.
//
// The log manager keeps recent entries in memory ahead of a LogStorage,
// persists them through a single-consumer disk queue, and tracks the
// disk, applied and snapshot positions of the log.
//
package raft
