package raft

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/IgGusev/ignite-3/raftpb"
)

type fsmRecorder struct {
	mu   sync.Mutex
	errs []error
}

func (f *fsmRecorder) OnError(err error) {
	f.mu.Lock()
	f.errs = append(f.errs, err)
	f.mu.Unlock()
}

func (f *fsmRecorder) errors() []error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]error(nil), f.errs...)
}

// faultyLogStorage records append sizes and fails appends on demand.
type faultyLogStorage struct {
	*MemoryLogStorage

	mu          sync.Mutex
	failAppend  bool
	appendSizes []int
}

func newFaultyLogStorage() *faultyLogStorage {
	return &faultyLogStorage{MemoryLogStorage: NewMemoryLogStorage()}
}

func (fs *faultyLogStorage) AppendEntries(ents []*raftpb.LogEntry) (int, error) {
	fs.mu.Lock()
	fs.appendSizes = append(fs.appendSizes, len(ents))
	fail := fs.failAppend
	fs.mu.Unlock()

	if fail {
		return 0, errors.New("disk is full")
	}
	return fs.MemoryLogStorage.AppendEntries(ents)
}

func (fs *faultyLogStorage) setFailAppend(v bool) {
	fs.mu.Lock()
	fs.failAppend = v
	fs.mu.Unlock()
}

func (fs *faultyLogStorage) sizes() []int {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return append([]int(nil), fs.appendSizes...)
}

func newTestLogManager(t *testing.T, ls LogStorage, mod func(*LogManagerOptions)) (*LogManager, *fsmRecorder) {
	fsm := &fsmRecorder{}
	opts := LogManagerOptions{GroupID: "test-group", LogStorage: ls, FSMCaller: fsm}
	if mod != nil {
		mod(&opts)
	}

	lm := NewLogManager()
	require.NoError(t, lm.Init(opts))
	t.Cleanup(func() {
		lm.Shutdown()
		lm.Join()
	})
	return lm, fsm
}

// newLeaderEntries returns n entries without index.
func newLeaderEntries(n int, term uint64) []*raftpb.LogEntry {
	ents := make([]*raftpb.LogEntry, n)
	for i := range ents {
		ents[i] = &raftpb.LogEntry{Type: raftpb.ENTRY_TYPE_DATA, ID: raftpb.LogID{Term: term}, Data: []byte("data")}
	}
	return ents
}

func appendAndWait(t *testing.T, lm *LogManager, ents []*raftpb.LogEntry) error {
	errc := make(chan error, 1)
	lm.AppendEntries(ents, StableClosureFunc(func(err error) { errc <- err }))

	select {
	case err := <-errc:
		return err
	case <-time.After(5 * time.Second):
		t.Fatalf("took too long to complete append of %s", raftpb.DescribeEntries(ents))
	}
	return nil
}

// waitDiskQueue returns once every disk event queued so far is processed.
func waitDiskQueue(t *testing.T, lm *LogManager) {
	require.NoError(t, appendAndWait(t, lm, nil))
}

func newStorageWithEntries(t *testing.T, from, to, term uint64) *MemoryLogStorage {
	ms := NewMemoryLogStorage()
	if from > 1 {
		require.NoError(t, ms.Reset(from))
	}
	_, err := ms.AppendEntries(newTestEntries(from, to, term))
	require.NoError(t, err)
	return ms
}
