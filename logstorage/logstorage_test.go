package logstorage

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/IgGusev/ignite-3/pkg/xlog"
	"github.com/IgGusev/ignite-3/raft"
	"github.com/IgGusev/ignite-3/raftpb"
)

func init() {
	logger.SetMaxLogLevel(xlog.CRITICAL)
	raft.SetLogger(xlog.NewLogger("raft", xlog.CRITICAL))
}

func newEntries(from, to, term uint64) []*raftpb.LogEntry {
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

var engines = []string{EngineMemory, EngineBolt, EngineBadger}

func openStorage(t *testing.T, cfg Config, cm *raft.ConfigurationManager) raft.LogStorage {
	ls, err := Open(cfg)
	require.NoError(t, err)
	require.NoError(t, ls.Init(raft.LogStorageOptions{ConfigurationManager: cm}))
	return ls
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		cfg   Config
		valid bool
	}{
		{Config{Engine: EngineMemory}, true},
		{Config{Engine: EngineBolt, Dir: "x"}, true},
		{Config{Engine: EngineBadger, Dir: "x"}, true},
		{Config{Engine: EngineBolt}, false},
		{Config{Engine: EngineBadger}, false},
		{Config{Engine: "rocksdb", Dir: "x"}, false},
		{Config{}, false},
	}
	for i, tt := range tests {
		err := tt.cfg.Validate()
		if (err == nil) != tt.valid {
			t.Fatalf("#%d: valid expected %v, got error %v", i, tt.valid, err)
		}
	}
}

func TestLogStorage(t *testing.T) {
	for _, engine := range engines {
		t.Run(engine, func(t *testing.T) {
			ls := openStorage(t, Config{Engine: engine, Dir: t.TempDir()}, nil)
			defer ls.Shutdown()

			require.Equal(t, uint64(1), ls.FirstLogIndex())
			require.Equal(t, uint64(0), ls.LastLogIndex())

			n, err := ls.AppendEntries(newEntries(1, 10, 1))
			require.NoError(t, err)
			require.Equal(t, 10, n)
			require.Equal(t, uint64(10), ls.LastLogIndex())

			_, err = ls.AppendEntries(newEntries(12, 13, 1))
			require.Error(t, err, "gap must be rejected")
			require.Equal(t, uint64(10), ls.LastLogIndex())

			e, err := ls.Entry(5)
			require.NoError(t, err)
			require.Equal(t, raftpb.LogID{Index: 5, Term: 1}, e.ID)
			require.Equal(t, []byte("data"), e.Data)

			require.NoError(t, ls.TruncatePrefix(4))
			require.NoError(t, ls.TruncateSuffix(8))
			require.Equal(t, uint64(4), ls.FirstLogIndex())
			require.Equal(t, uint64(8), ls.LastLogIndex())

			e, err = ls.Entry(3)
			require.NoError(t, err)
			require.Nil(t, e)
			require.Equal(t, uint64(1), ls.Term(8))
			require.Equal(t, uint64(0), ls.Term(9))

			_, err = ls.AppendEntries(newEntries(9, 9, 2))
			require.NoError(t, err)
			require.Equal(t, uint64(2), ls.Term(9))

			require.Error(t, ls.Reset(0))
			require.NoError(t, ls.Reset(20))
			require.Equal(t, uint64(20), ls.FirstLogIndex())
			require.Equal(t, uint64(19), ls.LastLogIndex())
			e, err = ls.Entry(5)
			require.NoError(t, err)
			require.Nil(t, e)

			_, err = ls.AppendEntries(newEntries(20, 21, 3))
			require.NoError(t, err)
			require.Equal(t, uint64(21), ls.LastLogIndex())
		})
	}
}

func TestLogStorageTruncatePrefixPastLast(t *testing.T) {
	for _, engine := range engines {
		t.Run(engine, func(t *testing.T) {
			ls := openStorage(t, Config{Engine: engine, Dir: t.TempDir()}, nil)
			defer ls.Shutdown()

			_, err := ls.AppendEntries(newEntries(1, 5, 1))
			require.NoError(t, err)
			require.NoError(t, ls.TruncatePrefix(9))
			require.Equal(t, uint64(9), ls.FirstLogIndex())
			require.Equal(t, uint64(8), ls.LastLogIndex())

			_, err = ls.AppendEntries(newEntries(9, 10, 2))
			require.NoError(t, err)
			require.Equal(t, uint64(10), ls.LastLogIndex())
		})
	}
}

func TestLogStorageReopen(t *testing.T) {
	for _, engine := range []string{EngineBolt, EngineBadger} {
		t.Run(engine, func(t *testing.T) {
			cfg := Config{Engine: engine, Dir: t.TempDir(), Sync: true}

			ls := openStorage(t, cfg, nil)
			ents := newEntries(1, 6, 1)
			ents[2].Type = raftpb.ENTRY_TYPE_CONFIGURATION
			ents[2].Peers = []raftpb.PeerID{{ConsistentID: "a"}, {ConsistentID: "b"}}
			ents[2].Learners = []raftpb.PeerID{{ConsistentID: "c"}}
			ents[4].Type = raftpb.ENTRY_TYPE_CONFIGURATION
			ents[4].Peers = []raftpb.PeerID{{ConsistentID: "a"}}
			ents[4].OldPeers = []raftpb.PeerID{{ConsistentID: "a"}, {ConsistentID: "b"}}
			_, err := ls.AppendEntries(ents)
			require.NoError(t, err)
			require.NoError(t, ls.TruncatePrefix(2))
			require.NoError(t, ls.Shutdown())

			cm := raft.NewConfigurationManager()
			ls = openStorage(t, cfg, cm)
			defer ls.Shutdown()

			require.Equal(t, uint64(2), ls.FirstLogIndex())
			require.Equal(t, uint64(6), ls.LastLogIndex())
			require.Equal(t, 2, cm.Len())

			ce := cm.Get(4)
			require.Equal(t, uint64(3), ce.ID.Index)
			require.Equal(t, "a,b/c", ce.Conf.String())

			ce = cm.LastConfiguration()
			require.Equal(t, uint64(5), ce.ID.Index)
			require.False(t, ce.IsStable())
		})
	}
}

func TestLogStorageReopenAfterReset(t *testing.T) {
	for _, engine := range []string{EngineBolt, EngineBadger} {
		t.Run(engine, func(t *testing.T) {
			cfg := Config{Engine: engine, Dir: t.TempDir()}

			ls := openStorage(t, cfg, nil)
			_, err := ls.AppendEntries(newEntries(1, 3, 1))
			require.NoError(t, err)
			require.NoError(t, ls.Reset(10))
			require.NoError(t, ls.Shutdown())

			ls = openStorage(t, cfg, nil)
			defer ls.Shutdown()
			require.Equal(t, uint64(10), ls.FirstLogIndex())
			require.Equal(t, uint64(9), ls.LastLogIndex())
		})
	}
}

func TestLogManagerOnDurableStorage(t *testing.T) {
	for _, engine := range []string{EngineBolt, EngineBadger} {
		t.Run(engine, func(t *testing.T) {
			cfg := Config{Engine: engine, Dir: t.TempDir()}
			ls, err := Open(cfg)
			require.NoError(t, err)

			lm := raft.NewLogManager()
			require.NoError(t, lm.Init(raft.LogManagerOptions{GroupID: "test", LogStorage: ls}))

			donec := make(chan error, 1)
			lm.AppendEntries(newEntries(1, 5, 1), raft.StableClosureFunc(func(err error) { donec <- err }))
			require.NoError(t, <-donec)

			id, err := lm.LastLogID(true)
			require.NoError(t, err)
			require.Equal(t, raftpb.LogID{Index: 5, Term: 1}, id)
			require.Equal(t, id, lm.DiskID())

			lm.Shutdown()
			lm.Join()
			require.NoError(t, ls.Shutdown())

			ls, err = Open(cfg)
			require.NoError(t, err)
			lm = raft.NewLogManager()
			require.NoError(t, lm.Init(raft.LogManagerOptions{GroupID: "test", LogStorage: ls}))
			defer func() {
				lm.Shutdown()
				lm.Join()
				ls.Shutdown()
			}()

			require.Equal(t, raftpb.LogID{Index: 5, Term: 1}, lm.DiskID())
			term, err := lm.Term(3)
			require.NoError(t, err)
			require.Equal(t, uint64(1), term)
		})
	}
}
