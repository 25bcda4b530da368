package raft

import (
	"sync/atomic"

	"github.com/pkg/errors"

	"github.com/IgGusev/ignite-3/raftpb"
)

// sequencedEvent is a disk event with the position it claimed in the queue.
type sequencedEvent struct {
	seq uint64
	ev  interface{}
}

// diskQueue is the single consumer that writes one replication group's
// log to its LogStorage.
//
// Producers claim a sequence number while holding the log manager lock
// and publish after releasing it. The consumer handles events strictly
// in sequence order, so disk operations follow the order in which the
// log manager accepted them.
type diskQueue struct {
	lm *LogManager

	// seq is the last claimed sequence number.
	seq uint64

	c     chan sequencedEvent
	donec chan struct{}

	ab *appendBatcher
}

func newDiskQueue(lm *LogManager, opts LogManagerOptions, diskID raftpb.LogID) *diskQueue {
	return &diskQueue{
		lm:    lm,
		c:     make(chan sequencedEvent, opts.DiskQueueBufferSize),
		donec: make(chan struct{}),
		ab: &appendBatcher{
			lm:        lm,
			maxEvents: opts.MaxAppendBatchEntries,
			maxBytes:  opts.MaxAppendBufferSize,
			lastID:    diskID,
			events:    make([]*appendEvent, 0, opts.MaxAppendBatchEntries),
			toAppend:  make([]*raftpb.LogEntry, 0, opts.MaxAppendBatchEntries),
		},
	}
}

// claim must be called with the log manager lock held.
func (dq *diskQueue) claim(ev interface{}) sequencedEvent {
	return sequencedEvent{seq: atomic.AddUint64(&dq.seq, 1), ev: ev}
}

// publish must be called without the log manager lock.
func (dq *diskQueue) publish(evs ...sequencedEvent) {
	for _, ev := range evs {
		dq.c <- ev
	}
}

func (dq *diskQueue) freeCapacity() int { return cap(dq.c) - len(dq.c) }

func (dq *diskQueue) run() {
	defer close(dq.donec)

	var (
		next    = uint64(1)
		pending = make(map[uint64]interface{})
	)
	for {
		ev, ok := pending[next]
		if ok {
			delete(pending, next)
		} else {
			sev := <-dq.c
			if sev.seq != next {
				pending[sev.seq] = sev.ev
				continue
			}
			ev = sev.ev
		}
		next++

		_, ready := pending[next]
		endOfBatch := !ready && len(dq.c) == 0
		if !dq.handle(ev, endOfBatch) {
			return
		}
	}
}

// handle processes one event. It returns false after shutdown.
func (dq *diskQueue) handle(ev interface{}, endOfBatch bool) bool {
	lm, ab := dq.lm, dq.ab

	if aev, ok := ev.(*appendEvent); ok && len(aev.entries) > 0 {
		ab.append(aev)
	} else {
		lm.setDiskID(ab.flush())

		var err error
		switch ev := ev.(type) {
		case shutdownEvent:
			raftLogger.Infof("disk queue of group %q stopped (disk id %s)", lm.groupID, ab.lastID)
			return false

		case *appendEvent:
			lm.runClosure(ev.done, nil)

		case *lastLogIDEvent:
			ev.c <- ab.lastID

		case *truncatePrefixEvent:
			raftLogger.Infof("truncating log storage prefix [group=%q | first index kept=%d]", lm.groupID, ev.firstIndexKept)
			err = lm.storage.TruncatePrefix(ev.firstIndexKept)

		case *truncateSuffixEvent:
			raftLogger.Infof("truncating log storage suffix [group=%q | last index kept=%d]", lm.groupID, ev.lastIndexKept)
			if err = lm.storage.TruncateSuffix(ev.lastIndexKept); err == nil {
				if ev.lastIndexKept != 0 && ev.lastTermKept == 0 {
					raftLogger.Panicf("truncated log suffix to index %d with term 0", ev.lastIndexKept)
				}
				ab.lastID = raftpb.LogID{Index: ev.lastIndexKept, Term: ev.lastTermKept}
			}

		case *resetEvent:
			raftLogger.Infof("resetting log storage [group=%q | next log index=%d]", lm.groupID, ev.nextLogIndex)
			err = lm.storage.Reset(ev.nextLogIndex)

		default:
			raftLogger.Panicf("unknown disk event %T", ev)
		}

		if err != nil {
			lm.reportError(errors.Wrapf(ErrIO, "failed operation in log storage (%v)", err))
		}
	}

	if endOfBatch {
		lm.setDiskID(ab.flush())
	}
	return true
}

// appendBatcher coalesces append events into one storage write.
type appendBatcher struct {
	lm *LogManager

	maxEvents int
	maxBytes  int

	events     []*appendEvent
	toAppend   []*raftpb.LogEntry
	bufferSize int

	// lastID is the last durable LogID.
	lastID raftpb.LogID
}

func (ab *appendBatcher) append(ev *appendEvent) {
	if len(ab.events) == ab.maxEvents || ab.bufferSize >= ab.maxBytes {
		ab.flush()
	}
	ab.events = append(ab.events, ev)
	ab.toAppend = append(ab.toAppend, ev.entries...)
	for _, e := range ev.entries {
		ab.bufferSize += e.Size()
	}
}

// flush writes the batch and completes its events.
// Events complete with ErrIO if the log manager has failed by then.
func (ab *appendBatcher) flush() raftpb.LogID {
	if len(ab.events) > 0 {
		if id, ok := ab.appendToStorage(); ok {
			ab.lastID = id
		}
		for i, ev := range ab.events {
			var err error
			if ab.lm.hasError.Load() {
				err = ErrIO
			}
			ab.lm.runClosure(ev.done, err)
			ab.events[i] = nil
		}
		for i := range ab.toAppend {
			ab.toAppend[i] = nil
		}
		ab.events = ab.events[:0]
		ab.toAppend = ab.toAppend[:0]
	}
	ab.bufferSize = 0
	return ab.lastID
}

func (ab *appendBatcher) appendToStorage() (raftpb.LogID, bool) {
	if ab.lm.hasError.Load() {
		return raftpb.LogID{}, false
	}

	n, err := ab.lm.storage.AppendEntries(ab.toAppend)
	if n != len(ab.toAppend) || err != nil {
		raftLogger.Errorf("failed to append log entries %s (appended %d, %v)", raftpb.DescribeEntries(ab.toAppend), n, err)
		ab.lm.reportError(errors.Wrapf(ErrIO, "appended %d of %d log entries (%v)", n, len(ab.toAppend), err))
	}
	if n > 0 {
		return ab.toAppend[n-1].ID, true
	}
	return raftpb.LogID{}, false
}
