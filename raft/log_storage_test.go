package raft

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/IgGusev/ignite-3/raftpb"
)

func TestMemoryLogStorage(t *testing.T) {
	ms := NewMemoryLogStorage()
	require.Equal(t, uint64(1), ms.FirstLogIndex())
	require.Equal(t, uint64(0), ms.LastLogIndex())

	n, err := ms.AppendEntries(newTestEntries(1, 10, 1))
	require.NoError(t, err)
	require.Equal(t, 10, n)

	n, err = ms.AppendEntries(newTestEntries(12, 13, 1))
	require.Error(t, err, "gap must be rejected")
	require.Equal(t, 0, n)

	require.NoError(t, ms.TruncatePrefix(4))
	require.NoError(t, ms.TruncateSuffix(8))
	require.Equal(t, uint64(4), ms.FirstLogIndex())
	require.Equal(t, uint64(8), ms.LastLogIndex())

	e, err := ms.Entry(3)
	require.NoError(t, err)
	require.Nil(t, e)
	require.Equal(t, uint64(1), ms.Term(8))
	require.Equal(t, uint64(0), ms.Term(9))

	require.NoError(t, ms.Reset(20))
	require.Equal(t, uint64(20), ms.FirstLogIndex())
	require.Equal(t, uint64(19), ms.LastLogIndex())

	_, err = ms.AppendEntries(newTestEntries(20, 21, 2))
	require.NoError(t, err)
	require.Equal(t, uint64(21), ms.LastLogIndex())
}

func TestMemoryLogStorageInitConfigurations(t *testing.T) {
	ms := NewMemoryLogStorage()
	ents := newTestEntries(1, 3, 1)
	ents[1].Type = raftpb.ENTRY_TYPE_CONFIGURATION
	ents[1].Peers = []raftpb.PeerID{{ConsistentID: "a"}}
	_, err := ms.AppendEntries(ents)
	require.NoError(t, err)

	cm := NewConfigurationManager()
	require.NoError(t, ms.Init(LogStorageOptions{ConfigurationManager: cm}))
	require.Equal(t, uint64(2), cm.LastConfiguration().ID.Index)
}
