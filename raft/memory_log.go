package raft

import "github.com/IgGusev/ignite-3/raftpb"

// memoryLog buffers log entries ahead of the log storage.
// Entries are contiguous: entries[i].ID.Index == entries[0].ID.Index + i.
type memoryLog struct {
	entries []*raftpb.LogEntry
}

func (ml *memoryLog) len() int { return len(ml.entries) }

// firstIndex returns the index of the first buffered entry, if any.
func (ml *memoryLog) firstIndex() (uint64, bool) {
	if len(ml.entries) == 0 {
		return 0, false
	}
	return ml.entries[0].ID.Index, true
}

// lastIndex returns the index of the last buffered entry, if any.
func (ml *memoryLog) lastIndex() (uint64, bool) {
	if len(ml.entries) == 0 {
		return 0, false
	}
	return ml.entries[len(ml.entries)-1].ID.Index, true
}

// get returns the buffered entry at idx, or nil.
func (ml *memoryLog) get(idx uint64) *raftpb.LogEntry {
	first, ok := ml.firstIndex()
	if !ok || idx < first {
		return nil
	}
	if i := idx - first; i < uint64(len(ml.entries)) {
		return ml.entries[i]
	}
	return nil
}

// append adds entries after the last buffered one.
func (ml *memoryLog) append(ents []*raftpb.LogEntry) {
	if len(ents) == 0 {
		return
	}
	if last, ok := ml.lastIndex(); ok && ents[0].ID.Index != last+1 {
		raftLogger.Panicf("memory log append out of order (last index %d, appending %s)", last, raftpb.DescribeEntries(ents))
	}
	for i := 1; i < len(ents); i++ {
		if ents[i].ID.Index != ents[i-1].ID.Index+1 {
			raftLogger.Panicf("memory log append with non-contiguous entries %d, %d", ents[i-1].ID.Index, ents[i].ID.Index)
		}
	}
	ml.entries = append(ml.entries, ents...)
}

// removeUpTo drops entries with index <= idx.
func (ml *memoryLog) removeUpTo(idx uint64) {
	first, ok := ml.firstIndex()
	if !ok || idx < first {
		return
	}
	n := idx - first + 1
	if n >= uint64(len(ml.entries)) {
		ml.clear()
		return
	}
	// copy so that the dropped prefix can be collected
	tmps := make([]*raftpb.LogEntry, uint64(len(ml.entries))-n)
	copy(tmps, ml.entries[n:])
	ml.entries = tmps
}

// removeAfter drops entries with index > idx.
func (ml *memoryLog) removeAfter(idx uint64) {
	first, ok := ml.firstIndex()
	if !ok {
		return
	}
	if idx < first {
		ml.clear()
		return
	}
	if n := idx - first + 1; n < uint64(len(ml.entries)) {
		for i := n; i < uint64(len(ml.entries)); i++ {
			ml.entries[i] = nil
		}
		ml.entries = ml.entries[:n]
	}
}

func (ml *memoryLog) clear() { ml.entries = nil }
