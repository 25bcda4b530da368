package raft

import (
	"testing"

	"github.com/IgGusev/ignite-3/raftpb"
)

func newTestEntries(from, to, term uint64) []*raftpb.LogEntry {
	var ents []*raftpb.LogEntry
	for i := from; i <= to; i++ {
		ents = append(ents, &raftpb.LogEntry{
			Type: raftpb.ENTRY_TYPE_DATA,
			ID:   raftpb.LogID{Index: i, Term: term},
			Data: []byte("data"),
		})
	}
	return ents
}

func TestMemoryLogGet(t *testing.T) {
	var ml memoryLog
	ml.append(newTestEntries(5, 9, 1))

	tests := []struct {
		idx uint64
		ok  bool
	}{
		{4, false},
		{5, true},
		{9, true},
		{10, false},
	}
	for i, tt := range tests {
		e := ml.get(tt.idx)
		if (e != nil) != tt.ok {
			t.Fatalf("#%d: get(%d) = %v, want ok %v", i, tt.idx, e, tt.ok)
		}
		if e != nil && e.ID.Index != tt.idx {
			t.Fatalf("#%d: index = %d, want %d", i, e.ID.Index, tt.idx)
		}
	}
}

func TestMemoryLogRemove(t *testing.T) {
	tests := []struct {
		upTo, after uint64
		first, last uint64
		empty       bool
	}{
		{4, 100, 5, 9, false},
		{6, 100, 7, 9, false},
		{9, 100, 0, 0, true},
		{0, 7, 5, 7, false},
		{0, 4, 0, 0, true},
		{6, 7, 7, 7, false},
	}
	for i, tt := range tests {
		var ml memoryLog
		ml.append(newTestEntries(5, 9, 1))
		ml.removeUpTo(tt.upTo)
		ml.removeAfter(tt.after)

		if tt.empty {
			if ml.len() != 0 {
				t.Fatalf("#%d: len = %d, want 0", i, ml.len())
			}
			continue
		}
		first, _ := ml.firstIndex()
		last, _ := ml.lastIndex()
		if first != tt.first || last != tt.last {
			t.Fatalf("#%d: [%d, %d], want [%d, %d]", i, first, last, tt.first, tt.last)
		}
	}
}

func TestMemoryLogAppendOutOfOrder(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic")
		}
	}()

	var ml memoryLog
	ml.append(newTestEntries(1, 3, 1))
	ml.append(newTestEntries(5, 6, 1))
}
