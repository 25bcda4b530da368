package raft

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/IgGusev/ignite-3/raftpb"
)

func newTestConfEntry(index, term uint64, peers ...string) raftpb.ConfigurationEntry {
	ce := raftpb.ConfigurationEntry{ID: raftpb.LogID{Index: index, Term: term}}
	for _, p := range peers {
		ce.Conf.Peers = append(ce.Conf.Peers, raftpb.PeerID{ConsistentID: p})
	}
	return ce
}

func TestConfigurationManagerGet(t *testing.T) {
	cm := NewConfigurationManager()
	cm.SetSnapshot(newTestConfEntry(2, 1, "s"))
	require.True(t, cm.Add(newTestConfEntry(5, 1, "a")))
	require.True(t, cm.Add(newTestConfEntry(10, 2, "a", "b")))
	require.False(t, cm.Add(newTestConfEntry(10, 2, "c")), "index must grow")
	require.False(t, cm.Add(newTestConfEntry(7, 2, "c")), "index must grow")

	tests := []struct {
		idx  uint64
		want uint64
	}{
		{1, 2},
		{4, 2},
		{5, 5},
		{9, 5},
		{10, 10},
		{100, 10},
	}
	for i, tt := range tests {
		if g := cm.Get(tt.idx).ID.Index; g != tt.want {
			t.Fatalf("#%d: Get(%d) index = %d, want %d", i, tt.idx, g, tt.want)
		}
	}
	require.Equal(t, uint64(10), cm.LastConfiguration().ID.Index)
}

func TestConfigurationManagerTruncate(t *testing.T) {
	cm := NewConfigurationManager()
	for _, idx := range []uint64{3, 6, 9, 12} {
		require.True(t, cm.Add(newTestConfEntry(idx, 1, "a")))
	}

	cm.TruncatePrefix(6)
	require.Equal(t, 3, cm.Len())
	cm.TruncateSuffix(9)
	require.Equal(t, 2, cm.Len())
	require.Equal(t, uint64(9), cm.LastConfiguration().ID.Index)

	require.True(t, cm.Add(newTestConfEntry(10, 2, "b")), "suffix truncation allows re-adding")

	cm.SetSnapshot(newTestConfEntry(20, 3, "z"))
	cm.TruncatePrefix(21)
	cm.TruncateSuffix(20)
	require.Equal(t, 0, cm.Len())
	require.Equal(t, uint64(20), cm.LastConfiguration().ID.Index)
}
