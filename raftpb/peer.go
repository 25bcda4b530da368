package raftpb

import (
	"fmt"
	"strconv"
	"strings"
)

// PeerID identifies a raft group member: consistent node id, replica
// index on that node and election priority.
type PeerID struct {
	ConsistentID string
	Idx          int
	Priority     int
}

// ParsePeerID parses "id", "id:idx" or "id:idx:priority".
func ParsePeerID(s string) (PeerID, error) {
	ss := strings.Split(s, ":")
	if len(ss) == 0 || len(ss) > 3 || ss[0] == "" {
		return PeerID{}, fmt.Errorf("invalid peer id %q", s)
	}

	p := PeerID{ConsistentID: ss[0]}
	if len(ss) > 1 {
		idx, err := strconv.Atoi(ss[1])
		if err != nil {
			return PeerID{}, fmt.Errorf("invalid peer index in %q (%v)", s, err)
		}
		p.Idx = idx
	}
	if len(ss) > 2 {
		prio, err := strconv.Atoi(ss[2])
		if err != nil {
			return PeerID{}, fmt.Errorf("invalid peer priority in %q (%v)", s, err)
		}
		p.Priority = prio
	}
	return p, nil
}

func (p PeerID) String() string {
	switch {
	case p.Priority != 0:
		return fmt.Sprintf("%s:%d:%d", p.ConsistentID, p.Idx, p.Priority)
	case p.Idx != 0:
		return fmt.Sprintf("%s:%d", p.ConsistentID, p.Idx)
	default:
		return p.ConsistentID
	}
}

// Configuration is a membership: voting peers and learners.
type Configuration struct {
	Peers    []PeerID
	Learners []PeerID
}

// ParseConfiguration builds a Configuration from peer and learner strings.
func ParseConfiguration(peers, learners []string) (Configuration, error) {
	var conf Configuration
	for _, s := range peers {
		p, err := ParsePeerID(s)
		if err != nil {
			return Configuration{}, err
		}
		conf.Peers = append(conf.Peers, p)
	}
	for _, s := range learners {
		p, err := ParsePeerID(s)
		if err != nil {
			return Configuration{}, err
		}
		conf.Learners = append(conf.Learners, p)
	}
	return conf, nil
}

// IsEmpty returns true when there are no voting peers.
func (c Configuration) IsEmpty() bool { return len(c.Peers) == 0 }

// Copy returns a deep copy.
func (c Configuration) Copy() Configuration {
	return Configuration{
		Peers:    append([]PeerID(nil), c.Peers...),
		Learners: append([]PeerID(nil), c.Learners...),
	}
}

// Equal compares peers and learners in order.
func (c Configuration) Equal(o Configuration) bool {
	return peersEqual(c.Peers, o.Peers) && peersEqual(c.Learners, o.Learners)
}

func peersEqual(a, b []PeerID) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func (c Configuration) String() string {
	var sb strings.Builder
	for i, p := range c.Peers {
		if i > 0 {
			sb.WriteString(",")
		}
		sb.WriteString(p.String())
	}
	for i, p := range c.Learners {
		if i == 0 {
			sb.WriteString("/")
		} else {
			sb.WriteString(",")
		}
		sb.WriteString(p.String())
	}
	return sb.String()
}

// ConfigurationEntry is a membership configuration tied to a log position.
type ConfigurationEntry struct {
	ID      LogID
	Conf    Configuration
	OldConf Configuration
}

// IsStable returns true when no joint consensus is in progress.
func (ce ConfigurationEntry) IsStable() bool { return ce.OldConf.IsEmpty() }

// IsEmpty returns true when the configuration has no peers.
func (ce ConfigurationEntry) IsEmpty() bool { return ce.Conf.IsEmpty() }

func (ce ConfigurationEntry) String() string {
	return fmt.Sprintf("ConfigurationEntry[id=%s | conf=%s | oldConf=%s]", ce.ID, ce.Conf, ce.OldConf)
}
