package raftpb

import (
	"bytes"
	"reflect"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLogEntryChecksum(t *testing.T) {
	e := &LogEntry{Type: ENTRY_TYPE_DATA, ID: LogID{Index: 3, Term: 2}, Data: []byte("foo")}
	require.False(t, e.IsCorrupted(), "entry without checksum is never corrupted")

	e.SetChecksum()
	require.True(t, e.HasChecksum)
	require.False(t, e.IsCorrupted())

	e.Data = []byte("bar")
	require.True(t, e.IsCorrupted())

	e.Data = []byte("foo")
	e.Peers = []PeerID{{ConsistentID: "a"}}
	require.True(t, e.IsCorrupted(), "membership is covered by checksum")
}

func TestLogEntryMarshal(t *testing.T) {
	tests := []*LogEntry{
		{Type: ENTRY_TYPE_NO_OP, ID: LogID{Index: 1, Term: 1}},
		{Type: ENTRY_TYPE_DATA, ID: LogID{Index: 7, Term: 3}, Data: []byte("testdata")},
		{
			Type:     ENTRY_TYPE_CONFIGURATION,
			ID:       LogID{Index: 10, Term: 4},
			Peers:    []PeerID{{ConsistentID: "n1"}, {ConsistentID: "n2", Idx: 1}},
			OldPeers: []PeerID{{ConsistentID: "n1"}},
			Learners: []PeerID{{ConsistentID: "n3", Idx: 2, Priority: 5}},
		},
	}
	tests[1].SetChecksum()

	for i, tt := range tests {
		bts, err := tt.Marshal()
		if err != nil {
			t.Fatalf("#%d: unexpected marshal error: %v", i, err)
		}
		var e LogEntry
		if err := e.Unmarshal(bts); err != nil {
			t.Fatalf("#%d: unexpected unmarshal error: %v", i, err)
		}
		if !reflect.DeepEqual(&e, tt) {
			t.Fatalf("#%d: entry = %+v, want %+v", i, &e, tt)
		}
	}
}

func TestLogEntryUnmarshalBad(t *testing.T) {
	e := &LogEntry{Type: ENTRY_TYPE_DATA, ID: LogID{Index: 1, Term: 1}, Data: []byte("abc")}
	bts, err := e.Marshal()
	require.NoError(t, err)

	var d LogEntry
	require.Error(t, d.Unmarshal(bts[:len(bts)-1]))
	require.Error(t, d.Unmarshal(append(bts, 0)))
	require.Error(t, d.Unmarshal(nil))
}

func TestLogEntryEncoderDecoder(t *testing.T) {
	ents := []*LogEntry{
		{Type: ENTRY_TYPE_DATA, ID: LogID{Index: 4, Term: 1}, Data: []byte("a")},
		{Type: ENTRY_TYPE_DATA, ID: LogID{Index: 5, Term: 1}, Data: []byte("b")},
	}
	b := &bytes.Buffer{}
	enc := NewLogEntryEncoder(b)
	for _, e := range ents {
		require.NoError(t, enc.Encode(e))
	}

	dec := NewLogEntryDecoder(b)
	for i, want := range ents {
		e, err := dec.Decode()
		if err != nil {
			t.Fatalf("#%d: unexpected decode error: %v", i, err)
		}
		if !reflect.DeepEqual(e, want) {
			t.Fatalf("#%d: entry = %+v, want %+v", i, e, want)
		}
	}
}

func TestPeerID(t *testing.T) {
	tests := []struct {
		s    string
		want PeerID
		ok   bool
	}{
		{"node", PeerID{ConsistentID: "node"}, true},
		{"node:2", PeerID{ConsistentID: "node", Idx: 2}, true},
		{"node:2:10", PeerID{ConsistentID: "node", Idx: 2, Priority: 10}, true},
		{"", PeerID{}, false},
		{"node:x", PeerID{}, false},
		{"a:1:2:3", PeerID{}, false},
	}
	for i, tt := range tests {
		p, err := ParsePeerID(tt.s)
		if (err == nil) != tt.ok {
			t.Fatalf("#%d: err = %v, want ok %v", i, err, tt.ok)
		}
		if !tt.ok {
			continue
		}
		if p != tt.want {
			t.Fatalf("#%d: peer = %+v, want %+v", i, p, tt.want)
		}
		if p.String() != tt.s {
			t.Fatalf("#%d: string = %q, want %q", i, p.String(), tt.s)
		}
	}
}

func TestSnapshotMetaConfigurationEntry(t *testing.T) {
	meta := SnapshotMeta{
		LastIncludedIndex: 50,
		LastIncludedTerm:  3,
		Peers:             []string{"a", "b"},
		Learners:          []string{"c"},
		OldPeers:          []string{"a"},
	}
	ce, err := meta.ConfigurationEntry()
	require.NoError(t, err)
	require.Equal(t, LogID{Index: 50, Term: 3}, ce.ID)
	require.Equal(t, "a,b/c", ce.Conf.String())
	require.False(t, ce.IsStable())

	meta.Peers = []string{"bad:x"}
	_, err = meta.ConfigurationEntry()
	require.Error(t, err)
}

func TestLogIDCompare(t *testing.T) {
	tests := []struct {
		a, b LogID
		w    int
	}{
		{LogID{1, 1}, LogID{2, 1}, -1},
		{LogID{2, 5}, LogID{2, 1}, 0},
		{LogID{3, 1}, LogID{2, 9}, 1},
	}
	for i, tt := range tests {
		if g := tt.a.Compare(tt.b); g != tt.w {
			t.Fatalf("#%d: compare = %d, want %d", i, g, tt.w)
		}
	}
}
