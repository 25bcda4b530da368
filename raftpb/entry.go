package raftpb

import (
	"fmt"

	"github.com/IgGusev/ignite-3/pkg/crcutil"
)

// EntryType is the kind of a log entry.
type EntryType uint8

const (
	ENTRY_TYPE_UNKNOWN EntryType = iota
	ENTRY_TYPE_NO_OP
	ENTRY_TYPE_DATA
	ENTRY_TYPE_CONFIGURATION
)

var entryTypeNames = map[EntryType]string{
	ENTRY_TYPE_UNKNOWN:       "ENTRY_TYPE_UNKNOWN",
	ENTRY_TYPE_NO_OP:         "ENTRY_TYPE_NO_OP",
	ENTRY_TYPE_DATA:          "ENTRY_TYPE_DATA",
	ENTRY_TYPE_CONFIGURATION: "ENTRY_TYPE_CONFIGURATION",
}

func (tp EntryType) String() string {
	if s, ok := entryTypeNames[tp]; ok {
		return s
	}
	return fmt.Sprintf("EntryType(%d)", uint8(tp))
}

// LogEntry is one record of the replicated log.
// Configuration entries carry the new and old membership.
type LogEntry struct {
	Type EntryType
	ID   LogID

	Peers       []PeerID
	OldPeers    []PeerID
	Learners    []PeerID
	OldLearners []PeerID

	Data []byte

	Checksum    uint32
	HasChecksum bool
}

// ComputeChecksum returns the checksum over type, id, membership and payload.
func (e *LogEntry) ComputeChecksum() uint32 {
	c := crcutil.NewChecksum(0).
		Uint64(uint64(e.Type)).
		Uint64(e.ID.Index).
		Uint64(e.ID.Term)
	for _, ps := range [][]PeerID{e.Peers, e.OldPeers, e.Learners, e.OldLearners} {
		c.Uint64(uint64(len(ps)))
		for _, p := range ps {
			c.String(p.String())
		}
	}
	return c.Bytes(e.Data).Sum32()
}

// SetChecksum assigns the computed checksum.
func (e *LogEntry) SetChecksum() {
	e.Checksum = e.ComputeChecksum()
	e.HasChecksum = true
}

// IsCorrupted returns true if the entry carries a checksum that does not match its content.
func (e *LogEntry) IsCorrupted() bool {
	return e.HasChecksum && e.Checksum != e.ComputeChecksum()
}

// IsConfiguration returns true for membership change entries.
func (e *LogEntry) IsConfiguration() bool { return e.Type == ENTRY_TYPE_CONFIGURATION }

// ConfigurationEntry extracts the membership carried by a configuration entry.
func (e *LogEntry) ConfigurationEntry() ConfigurationEntry {
	ce := ConfigurationEntry{ID: e.ID}
	ce.Conf.Peers = append([]PeerID(nil), e.Peers...)
	ce.Conf.Learners = append([]PeerID(nil), e.Learners...)
	ce.OldConf.Peers = append([]PeerID(nil), e.OldPeers...)
	ce.OldConf.Learners = append([]PeerID(nil), e.OldLearners...)
	return ce
}

// Size returns the payload size used to bound append batches.
func (e *LogEntry) Size() int { return len(e.Data) }

func (e *LogEntry) String() string {
	return fmt.Sprintf("LogEntry[type=%s | id=%s | data=%d bytes | checksum=%d]", e.Type, e.ID, len(e.Data), e.Checksum)
}

// DescribeEntries returns a short description of entries for logging.
func DescribeEntries(ents []*LogEntry) string {
	switch len(ents) {
	case 0:
		return "[]"
	case 1:
		return fmt.Sprintf("[%d]", ents[0].ID.Index)
	default:
		return fmt.Sprintf("[%d..%d]", ents[0].ID.Index, ents[len(ents)-1].ID.Index)
	}
}
