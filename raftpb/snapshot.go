package raftpb

import "fmt"

// SnapshotMeta describes the log position and membership captured by a snapshot.
type SnapshotMeta struct {
	LastIncludedIndex uint64
	LastIncludedTerm  uint64

	Peers       []string
	OldPeers    []string
	Learners    []string
	OldLearners []string
}

// ID returns the LogID covered by the snapshot.
func (m SnapshotMeta) ID() LogID {
	return LogID{Index: m.LastIncludedIndex, Term: m.LastIncludedTerm}
}

// ConfigurationEntry converts the membership lists into a ConfigurationEntry.
func (m SnapshotMeta) ConfigurationEntry() (ConfigurationEntry, error) {
	conf, err := ParseConfiguration(m.Peers, m.Learners)
	if err != nil {
		return ConfigurationEntry{}, err
	}
	oldConf, err := ParseConfiguration(m.OldPeers, m.OldLearners)
	if err != nil {
		return ConfigurationEntry{}, err
	}
	return ConfigurationEntry{ID: m.ID(), Conf: conf, OldConf: oldConf}, nil
}

func (m SnapshotMeta) String() string {
	return fmt.Sprintf("SnapshotMeta[index=%d | term=%d | peers=%v | learners=%v]",
		m.LastIncludedIndex, m.LastIncludedTerm, m.Peers, m.Learners)
}
