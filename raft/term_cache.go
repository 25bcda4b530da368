package raft

import "github.com/IgGusev/ignite-3/raftpb"

// termCache remembers the log positions where the term changed,
// for the most recent changes only.
//
// changes[i].Index is the first index of term changes[i].Term.
type termCache struct {
	capacity int
	changes  []raftpb.LogID
}

func newTermCache(capacity int) *termCache {
	if capacity < 1 {
		raftLogger.Panicf("term cache capacity must be positive (got %d)", capacity)
	}
	return &termCache{capacity: capacity}
}

// append records id if it starts a new term.
// Recorded changes at or after id.Index are dropped first.
func (tc *termCache) append(id raftpb.LogID) {
	tc.truncateTail(id.Index)
	if n := len(tc.changes); n > 0 && tc.changes[n-1].Term == id.Term {
		return
	}
	if len(tc.changes) == tc.capacity {
		copy(tc.changes, tc.changes[1:])
		tc.changes = tc.changes[:len(tc.changes)-1]
	}
	tc.changes = append(tc.changes, id)
}

// lookup returns the term of idx, or false if the cache cannot tell.
func (tc *termCache) lookup(idx uint64) (uint64, bool) {
	for i := len(tc.changes) - 1; i >= 0; i-- {
		if tc.changes[i].Index <= idx {
			return tc.changes[i].Term, true
		}
	}
	return 0, false
}

// truncateTail forgets every term change at or after idx.
func (tc *termCache) truncateTail(idx uint64) {
	i := len(tc.changes)
	for i > 0 && tc.changes[i-1].Index >= idx {
		i--
	}
	tc.changes = tc.changes[:i]
}

func (tc *termCache) reset() { tc.changes = tc.changes[:0] }
