package raftpb

import "fmt"

// LogID identifies a position in the replicated log.
// Ordering uses the index only; the term is metadata attached to the position.
type LogID struct {
	Index uint64
	Term  uint64
}

// Compare compares two LogIDs by index. It returns -1, 0 or 1.
func (id LogID) Compare(o LogID) int {
	switch {
	case id.Index < o.Index:
		return -1
	case id.Index > o.Index:
		return 1
	default:
		return 0
	}
}

// IsZero returns true for LogID{0, 0}.
func (id LogID) IsZero() bool { return id.Index == 0 && id.Term == 0 }

func (id LogID) String() string {
	return fmt.Sprintf("LogID[index=%d | term=%d]", id.Index, id.Term)
}
