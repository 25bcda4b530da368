// Package logstorage implements durable raft log storages.
package logstorage

import (
	"encoding/binary"
	"fmt"

	"github.com/pkg/errors"

	"github.com/IgGusev/ignite-3/pkg/xlog"
	"github.com/IgGusev/ignite-3/raft"
	"github.com/IgGusev/ignite-3/raftpb"
)

var logger = xlog.NewLogger("logstorage", xlog.INFO)

const (
	EngineMemory = "memory"
	EngineBolt   = "bolt"
	EngineBadger = "badger"
)

// Config selects and configures a log storage engine.
type Config struct {
	Engine string `yaml:"engine"`
	Dir    string `yaml:"dir"`

	// Sync makes every write durable before it returns.
	Sync bool `yaml:"sync"`
}

// Validate checks the engine name and its directory.
func (cfg Config) Validate() error {
	switch cfg.Engine {
	case EngineMemory:
		return nil
	case EngineBolt, EngineBadger:
		if cfg.Dir == "" {
			return fmt.Errorf("logstorage: engine %q needs a directory", cfg.Engine)
		}
		return nil
	default:
		return fmt.Errorf("logstorage: unknown engine %q", cfg.Engine)
	}
}

// Open returns the configured log storage. The caller must Init it.
func Open(cfg Config) (raft.LogStorage, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch cfg.Engine {
	case EngineBolt:
		return NewBoltLogStorage(cfg.Dir, cfg.Sync), nil
	case EngineBadger:
		return NewBadgerLogStorage(cfg.Dir, cfg.Sync), nil
	default:
		return raft.NewMemoryLogStorage(), nil
	}
}

func indexKey(index uint64) []byte {
	k := make([]byte, 8)
	binary.BigEndian.PutUint64(k, index)
	return k
}

func keyIndex(k []byte) uint64 { return binary.BigEndian.Uint64(k) }

func decodeEntry(index uint64, v []byte) (*raftpb.LogEntry, error) {
	e := &raftpb.LogEntry{}
	if err := e.Unmarshal(v); err != nil {
		return nil, errors.Wrapf(err, "logstorage: decode entry %d", index)
	}
	return e, nil
}

// checkContiguous returns an error unless ents start at next and have no gaps.
func checkContiguous(ents []*raftpb.LogEntry, next uint64) error {
	for _, e := range ents {
		if e.ID.Index != next {
			return errors.Errorf("logstorage: appending entry %d, expected index %d", e.ID.Index, next)
		}
		next++
	}
	return nil
}

func registerConfiguration(opts raft.LogStorageOptions, e *raftpb.LogEntry) {
	if opts.ConfigurationManager != nil && e.IsConfiguration() {
		opts.ConfigurationManager.Add(e.ConfigurationEntry())
	}
}
