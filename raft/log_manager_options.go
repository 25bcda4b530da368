package raft

import (
	"github.com/IgGusev/ignite-3/pkg/scheduleutil"
	"github.com/IgGusev/ignite-3/raftpb"
)

const (
	defaultDiskQueueBufferSize   = 1024
	defaultMaxAppendBatchEntries = 256
	defaultMaxAppendBufferSize   = 256 * 1024
	termCacheCapacity            = 8
)

// StableClosure is run once appended entries are durable, or on failure.
type StableClosure interface {
	Run(err error)
}

// StableClosureFunc adapts a function to StableClosure.
type StableClosureFunc func(err error)

func (f StableClosureFunc) Run(err error) { f(err) }

// FSMCaller receives errors the log manager cannot recover from.
// OnError may be called with the log manager lock held and must not
// call back into the LogManager.
type FSMCaller interface {
	OnError(err error)
}

// NewLogCallback is run by Wait when the log grows or the log manager stops.
type NewLogCallback func(arg interface{}, err error)

// LastLogIndexListener is notified when appends advance the last log index.
type LastLogIndexListener interface {
	OnLastLogIndexChanged(lastLogIndex uint64)
}

// LogManagerOptions configures a LogManager.
type LogManagerOptions struct {
	// GroupID names the replication group in logs.
	GroupID string

	LogStorage           LogStorage
	ConfigurationManager *ConfigurationManager
	FSMCaller            FSMCaller

	// Scheduler runs completions and waiter callbacks.
	// If nil, the log manager creates one and stops it on Join.
	Scheduler scheduleutil.Scheduler

	EnableLogEntryChecksum bool

	// DiskQueueBufferSize bounds the number of queued disk events.
	DiskQueueBufferSize int

	// MaxAppendBatchEntries bounds the number of appends coalesced into one storage write.
	MaxAppendBatchEntries int

	// MaxAppendBufferSize bounds the payload bytes coalesced into one storage write.
	MaxAppendBufferSize int
}

func (opts *LogManagerOptions) withDefaults() {
	if opts.ConfigurationManager == nil {
		opts.ConfigurationManager = NewConfigurationManager()
	}
	if opts.DiskQueueBufferSize <= 0 {
		opts.DiskQueueBufferSize = defaultDiskQueueBufferSize
	}
	if opts.MaxAppendBatchEntries <= 0 {
		opts.MaxAppendBatchEntries = defaultMaxAppendBatchEntries
	}
	if opts.MaxAppendBufferSize <= 0 {
		opts.MaxAppendBufferSize = defaultMaxAppendBufferSize
	}
}

// appendEvent carries entries accepted by AppendEntries.
type appendEvent struct {
	entries []*raftpb.LogEntry
	done    StableClosure
}

type truncatePrefixEvent struct {
	firstIndexKept uint64
}

type truncateSuffixEvent struct {
	lastIndexKept uint64
	lastTermKept  uint64
}

type resetEvent struct {
	nextLogIndex uint64
}

// lastLogIDEvent is a barrier. It receives the last durable LogID
// once every earlier event has been processed.
type lastLogIDEvent struct {
	c chan raftpb.LogID
}

type shutdownEvent struct{}
