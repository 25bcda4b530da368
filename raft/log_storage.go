package raft

import (
	"sync"

	"github.com/pkg/errors"

	"github.com/IgGusev/ignite-3/raftpb"
)

// LogStorageOptions is passed to LogStorage.Init.
type LogStorageOptions struct {
	// ConfigurationManager receives the configuration entries found in storage.
	ConfigurationManager *ConfigurationManager
}

// LogStorage persists log entries. An empty storage has
// FirstLogIndex 1 and LastLogIndex 0. Implementations are safe
// for concurrent use by one writer and many readers.
type LogStorage interface {
	// Init opens the storage and registers stored configurations
	// with opts.ConfigurationManager.
	Init(opts LogStorageOptions) error

	// Shutdown releases the storage.
	Shutdown() error

	// FirstLogIndex returns the index of the first stored entry.
	FirstLogIndex() uint64

	// LastLogIndex returns the index of the last stored entry,
	// or FirstLogIndex-1 if there is none.
	LastLogIndex() uint64

	// Entry returns the entry at index, or nil if it is not stored.
	Entry(index uint64) (*raftpb.LogEntry, error)

	// Term returns the term of the entry at index, or 0 if it is not stored.
	Term(index uint64) uint64

	// AppendEntries writes entries after the last stored one
	// and returns the number of entries written.
	AppendEntries(ents []*raftpb.LogEntry) (int, error)

	// TruncatePrefix removes entries with index < firstIndexKept.
	TruncatePrefix(firstIndexKept uint64) error

	// TruncateSuffix removes entries with index > lastIndexKept.
	TruncateSuffix(lastIndexKept uint64) error

	// Reset removes every entry and makes nextLogIndex the first index.
	Reset(nextLogIndex uint64) error
}

// MemoryLogStorage implements LogStorage in memory.
type MemoryLogStorage struct {
	mu sync.RWMutex

	firstIndex uint64

	// entries[i].ID.Index == firstIndex + i
	entries []*raftpb.LogEntry
}

// NewMemoryLogStorage creates an empty MemoryLogStorage.
func NewMemoryLogStorage() *MemoryLogStorage {
	return &MemoryLogStorage{firstIndex: 1}
}

func (ms *MemoryLogStorage) Init(opts LogStorageOptions) error {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	if opts.ConfigurationManager == nil {
		return nil
	}
	for _, e := range ms.entries {
		if e.IsConfiguration() {
			opts.ConfigurationManager.Add(e.ConfigurationEntry())
		}
	}
	return nil
}

func (ms *MemoryLogStorage) Shutdown() error { return nil }

func (ms *MemoryLogStorage) FirstLogIndex() uint64 {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	return ms.firstIndex
}

func (ms *MemoryLogStorage) lastIndex() uint64 {
	return ms.firstIndex + uint64(len(ms.entries)) - 1
}

func (ms *MemoryLogStorage) LastLogIndex() uint64 {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	return ms.lastIndex()
}

func (ms *MemoryLogStorage) entry(index uint64) *raftpb.LogEntry {
	if index < ms.firstIndex || index > ms.lastIndex() {
		return nil
	}
	return ms.entries[index-ms.firstIndex]
}

func (ms *MemoryLogStorage) Entry(index uint64) (*raftpb.LogEntry, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	return ms.entry(index), nil
}

func (ms *MemoryLogStorage) Term(index uint64) uint64 {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	if e := ms.entry(index); e != nil {
		return e.ID.Term
	}
	return 0
}

func (ms *MemoryLogStorage) AppendEntries(ents []*raftpb.LogEntry) (int, error) {
	if len(ents) == 0 {
		return 0, nil
	}

	ms.mu.Lock()
	defer ms.mu.Unlock()

	next := ms.lastIndex() + 1
	for i, e := range ents {
		if e.ID.Index != next {
			return i, errors.Errorf("raft: appending entry %d, expected index %d", e.ID.Index, next)
		}
		ms.entries = append(ms.entries, e)
		next++
	}
	return len(ents), nil
}

func (ms *MemoryLogStorage) TruncatePrefix(firstIndexKept uint64) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	if firstIndexKept <= ms.firstIndex {
		return nil
	}
	if firstIndexKept > ms.lastIndex() {
		ms.entries = nil
	} else {
		n := firstIndexKept - ms.firstIndex
		tmps := make([]*raftpb.LogEntry, uint64(len(ms.entries))-n)
		copy(tmps, ms.entries[n:])
		ms.entries = tmps
	}
	ms.firstIndex = firstIndexKept
	return nil
}

func (ms *MemoryLogStorage) TruncateSuffix(lastIndexKept uint64) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	if lastIndexKept >= ms.lastIndex() {
		return nil
	}
	if lastIndexKept < ms.firstIndex {
		ms.entries = nil
		return nil
	}
	ms.entries = ms.entries[:lastIndexKept-ms.firstIndex+1]
	return nil
}

func (ms *MemoryLogStorage) Reset(nextLogIndex uint64) error {
	if nextLogIndex == 0 {
		return errors.New("raft: reset to log index 0")
	}

	ms.mu.Lock()
	defer ms.mu.Unlock()

	ms.entries = nil
	ms.firstIndex = nextLogIndex
	return nil
}
