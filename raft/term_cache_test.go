package raft

import (
	"testing"

	"github.com/IgGusev/ignite-3/raftpb"
)

func TestTermCacheLookup(t *testing.T) {
	tc := newTermCache(3)
	for _, id := range []raftpb.LogID{{Index: 5, Term: 1}, {Index: 6, Term: 1}, {Index: 7, Term: 2}, {Index: 9, Term: 3}} {
		tc.append(id)
	}

	tests := []struct {
		idx  uint64
		term uint64
		ok   bool
	}{
		{4, 0, false},
		{5, 1, true},
		{6, 1, true},
		{7, 2, true},
		{8, 2, true},
		{9, 3, true},
		{100, 3, true},
	}
	for i, tt := range tests {
		term, ok := tc.lookup(tt.idx)
		if term != tt.term || ok != tt.ok {
			t.Fatalf("#%d: lookup(%d) = (%d, %v), want (%d, %v)", i, tt.idx, term, ok, tt.term, tt.ok)
		}
	}

	// evicts (5,1)
	tc.append(raftpb.LogID{Index: 12, Term: 4})
	if _, ok := tc.lookup(6); ok {
		t.Fatalf("lookup(6) after eviction must be unknown")
	}
	if term, _ := tc.lookup(12); term != 4 {
		t.Fatalf("lookup(12) = %d, want 4", term)
	}
}

func TestTermCacheTruncateTail(t *testing.T) {
	tc := newTermCache(8)
	tc.append(raftpb.LogID{Index: 1, Term: 1})
	tc.append(raftpb.LogID{Index: 5, Term: 2})
	tc.append(raftpb.LogID{Index: 8, Term: 3})

	tc.truncateTail(5)
	if term, _ := tc.lookup(9); term != 1 {
		t.Fatalf("term = %d, want 1", term)
	}

	tc.append(raftpb.LogID{Index: 5, Term: 4})
	if term, _ := tc.lookup(6); term != 4 {
		t.Fatalf("term = %d, want 4", term)
	}

	tc.reset()
	if _, ok := tc.lookup(6); ok {
		t.Fatalf("lookup after reset must be unknown")
	}
}
