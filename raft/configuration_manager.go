package raft

import (
	"sync"

	"github.com/google/btree"

	"github.com/IgGusev/ignite-3/raftpb"
)

type confItem struct {
	ce raftpb.ConfigurationEntry
}

func (ci *confItem) Less(than btree.Item) bool {
	return ci.ce.ID.Index < than.(*confItem).ce.ID.Index
}

func confKey(index uint64) *confItem {
	return &confItem{ce: raftpb.ConfigurationEntry{ID: raftpb.LogID{Index: index}}}
}

// ConfigurationManager tracks membership configurations keyed by log index.
type ConfigurationManager struct {
	mu       sync.RWMutex
	tree     *btree.BTree
	snapshot raftpb.ConfigurationEntry
}

// NewConfigurationManager returns an empty ConfigurationManager.
func NewConfigurationManager() *ConfigurationManager {
	return &ConfigurationManager{tree: btree.New(32)}
}

// Add registers ce. It returns false if ce does not follow the last configuration.
func (cm *ConfigurationManager) Add(ce raftpb.ConfigurationEntry) bool {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if last := cm.tree.Max(); last != nil && last.(*confItem).ce.ID.Index >= ce.ID.Index {
		raftLogger.Errorf("did not add configuration %s (last configuration index %d)", ce, last.(*confItem).ce.ID.Index)
		return false
	}
	cm.tree.ReplaceOrInsert(&confItem{ce: ce})
	return true
}

// TruncatePrefix removes configurations with index < firstIndexKept.
func (cm *ConfigurationManager) TruncatePrefix(firstIndexKept uint64) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	for {
		first := cm.tree.Min()
		if first == nil || first.(*confItem).ce.ID.Index >= firstIndexKept {
			return
		}
		cm.tree.DeleteMin()
	}
}

// TruncateSuffix removes configurations with index > lastIndexKept.
func (cm *ConfigurationManager) TruncateSuffix(lastIndexKept uint64) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	for {
		last := cm.tree.Max()
		if last == nil || last.(*confItem).ce.ID.Index <= lastIndexKept {
			return
		}
		cm.tree.DeleteMax()
	}
}

// SetSnapshot sets the configuration captured by the latest snapshot.
func (cm *ConfigurationManager) SetSnapshot(ce raftpb.ConfigurationEntry) {
	cm.mu.Lock()
	cm.snapshot = ce
	cm.mu.Unlock()
}

// Snapshot returns the configuration captured by the latest snapshot.
func (cm *ConfigurationManager) Snapshot() raftpb.ConfigurationEntry {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return cm.snapshot
}

// Get returns the configuration in effect at lastIncludedIndex.
func (cm *ConfigurationManager) Get(lastIncludedIndex uint64) raftpb.ConfigurationEntry {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	ce := cm.snapshot
	cm.tree.DescendLessOrEqual(confKey(lastIncludedIndex), func(it btree.Item) bool {
		ce = it.(*confItem).ce
		return false
	})
	return ce
}

// LastConfiguration returns the latest configuration, or the snapshot one if none is logged.
func (cm *ConfigurationManager) LastConfiguration() raftpb.ConfigurationEntry {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	if last := cm.tree.Max(); last != nil {
		return last.(*confItem).ce
	}
	return cm.snapshot
}

// Len returns the number of logged configurations.
func (cm *ConfigurationManager) Len() int {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return cm.tree.Len()
}
