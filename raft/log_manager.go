package raft

import (
	"context"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"

	"github.com/IgGusev/ignite-3/pkg/scheduleutil"
	"github.com/IgGusev/ignite-3/raftpb"
)

type waitMeta struct {
	cb  NewLogCallback
	arg interface{}
	err error
}

// afterUnlock collects the work to do once lm.mu is released.
type afterUnlock struct {
	events  []sequencedEvent
	waiters []*waitMeta

	notify       bool
	lastLogIndex uint64
	listeners    []LastLogIndexListener
}

// LogManager buffers the replicated log of one replication group in memory,
// hands it to the disk queue for persistence and serves log reads.
//
// (jraft storage.LogManager)
type LogManager struct {
	groupID        string
	storage        LogStorage
	confManager    *ConfigurationManager
	fsmCaller      FSMCaller
	sched          scheduleutil.Scheduler
	ownSched       bool
	enableChecksum bool

	// hasError is set once a storage operation fails.
	hasError atomic.Bool

	mu sync.RWMutex

	memLog memoryLog
	terms  *termCache

	firstLogIndex  uint64
	lastLogIndex   uint64
	diskID         raftpb.LogID
	appliedID      raftpb.LogID
	lastSnapshotID raftpb.LogID

	stopped    bool
	nextWaitID int64
	waiters    map[int64]*waitMeta
	listeners  []LastLogIndexListener

	dq *diskQueue
}

// NewLogManager returns a LogManager. Call Init before use.
func NewLogManager() *LogManager {
	return &LogManager{
		terms:   newTermCache(termCacheCapacity),
		waiters: make(map[int64]*waitMeta),
	}
}

// Init opens the log storage, loads the log bounds and starts the disk queue.
// On error, the log manager is left uninitialized.
func (lm *LogManager) Init(opts LogManagerOptions) error {
	if opts.LogStorage == nil {
		raftLogger.Errorf("failed to init log manager of group %q (no log storage)", opts.GroupID)
		return ErrNoLogStorage
	}
	opts.withDefaults()

	if err := opts.LogStorage.Init(LogStorageOptions{ConfigurationManager: opts.ConfigurationManager}); err != nil {
		raftLogger.Errorf("failed to init log storage of group %q (%v)", opts.GroupID, err)
		return errors.Wrap(err, "raft: init log storage")
	}

	first, last := opts.LogStorage.FirstLogIndex(), opts.LogStorage.LastLogIndex()
	lastTerm, err := readTerm(opts.LogStorage, last, opts.EnableLogEntryChecksum)
	if err != nil {
		if opts.FSMCaller != nil {
			opts.FSMCaller.OnError(err)
		}
		return err
	}

	lm.mu.Lock()
	defer lm.mu.Unlock()

	lm.groupID = opts.GroupID
	lm.storage = opts.LogStorage
	lm.confManager = opts.ConfigurationManager
	lm.fsmCaller = opts.FSMCaller
	lm.enableChecksum = opts.EnableLogEntryChecksum
	lm.sched = opts.Scheduler
	if lm.sched == nil {
		lm.sched = scheduleutil.NewSchedulerFIFO()
		lm.ownSched = true
	}

	lm.firstLogIndex = first
	lm.lastLogIndex = last
	lm.diskID = raftpb.LogID{Index: last, Term: lastTerm}

	lm.dq = newDiskQueue(lm, opts, lm.diskID)
	go lm.dq.run()

	raftLogger.Infof("log manager of group %q initialized [first index=%d | last index=%d | disk id=%s]", lm.groupID, first, last, lm.diskID)
	return nil
}

// readTerm returns the term of the stored entry at index, or 0 if it is missing.
func readTerm(s LogStorage, index uint64, checksum bool) (uint64, error) {
	if index == 0 {
		return 0, nil
	}
	e, err := s.Entry(index)
	if err != nil {
		return 0, errors.Wrapf(ErrIO, "failed to read log entry %d (%v)", index, err)
	}
	if e == nil {
		return 0, nil
	}
	if checksum && e.IsCorrupted() {
		return 0, errors.Wrapf(ErrLogEntryCorrupted, "index=%d, term=%d, expected checksum=%d, real checksum=%d",
			e.ID.Index, e.ID.Term, e.Checksum, e.ComputeChecksum())
	}
	return e.ID.Term, nil
}

// reportError marks the log manager failed and notifies the state machine.
func (lm *LogManager) reportError(err error) {
	lm.hasError.Store(true)
	raftLogger.Errorf("log manager of group %q failed (%v)", lm.groupID, err)
	if lm.fsmCaller != nil {
		lm.fsmCaller.OnError(err)
	}
}

func (lm *LogManager) runClosure(done StableClosure, err error) {
	if done == nil {
		return
	}
	if lm.sched == nil {
		done.Run(err)
		return
	}
	lm.sched.Schedule(func(context.Context) { done.Run(err) })
}

// claimLocked queues ev for the disk queue unless the log manager is stopped.
func (lm *LogManager) claimLocked(au *afterUnlock, ev interface{}) bool {
	if lm.stopped || lm.dq == nil {
		return false
	}
	au.events = append(au.events, lm.dq.claim(ev))
	return true
}

func (lm *LogManager) finish(au *afterUnlock) {
	if len(au.events) > 0 {
		lm.dq.publish(au.events...)
	}
	for _, wm := range au.waiters {
		wm := wm
		lm.sched.Schedule(func(context.Context) { wm.cb(wm.arg, wm.err) })
	}
	if au.notify {
		for _, l := range au.listeners {
			l.OnLastLogIndexChanged(au.lastLogIndex)
		}
	}
}

// AppendEntries appends entries to the log. Entries with index 0 are
// numbered after the last log index; other entries are reconciled with
// the local log first. done runs once the entries are durable, or with
// the reason they were rejected.
func (lm *LogManager) AppendEntries(ents []*raftpb.LogEntry, done StableClosure) {
	var au afterUnlock
	complete, err := lm.appendEntries(ents, done, &au)
	lm.finish(&au)
	if complete {
		lm.runClosure(done, err)
	}
}

func (lm *LogManager) appendEntries(ents []*raftpb.LogEntry, done StableClosure, au *afterUnlock) (bool, error) {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	switch {
	case lm.dq == nil || lm.stopped:
		return true, ErrStopped
	case lm.hasError.Load():
		return true, ErrIO
	}

	if len(ents) > 0 {
		var (
			accepted bool
			err      error
		)
		ents, accepted, err = lm.checkAndResolveConflict(ents, au)
		if !accepted {
			return true, err
		}
	}

	for _, e := range ents {
		if lm.enableChecksum {
			e.SetChecksum()
		}
		if e.IsConfiguration() {
			lm.confManager.Add(e.ConfigurationEntry())
		}
	}
	if len(ents) > 0 {
		lm.memLog.append(ents)
		for _, e := range ents {
			lm.terms.append(e.ID)
		}
	}

	if !lm.wakeupAllWaitersLocked(au) {
		au.notify = len(lm.listeners) > 0
		au.lastLogIndex = lm.lastLogIndex
		au.listeners = append([]LastLogIndexListener(nil), lm.listeners...)
	}
	lm.claimLocked(au, &appendEvent{entries: ents, done: done})
	return false, nil
}

// checkAndResolveConflict returns the entries to append and whether they are
// accepted. A rejected append completes with the returned error; a nil error
// means the entries are already applied.
func (lm *LogManager) checkAndResolveConflict(ents []*raftpb.LogEntry, au *afterUnlock) ([]*raftpb.LogEntry, bool, error) {
	first, last := ents[0], ents[len(ents)-1]

	if first.ID.Index == 0 {
		// entries from the leader itself, assign indexes
		for _, e := range ents {
			lm.lastLogIndex++
			e.ID.Index = lm.lastLogIndex
		}
		return ents, true, nil
	}

	for i := 1; i < len(ents); i++ {
		if ents[i].ID.Index != ents[i-1].ID.Index+1 {
			return nil, false, errors.Wrapf(ErrGap, "entries are not contiguous at %d, %d", ents[i-1].ID.Index, ents[i].ID.Index)
		}
	}
	if first.ID.Index > lm.lastLogIndex+1 {
		return nil, false, errors.Wrapf(ErrGap, "first index %d, last log index %d", first.ID.Index, lm.lastLogIndex)
	}
	if last.ID.Index <= lm.appliedID.Index {
		raftLogger.Warningf("received entries %s not after applied index %d, nothing changed", raftpb.DescribeEntries(ents), lm.appliedID.Index)
		return nil, false, nil
	}

	if first.ID.Index == lm.lastLogIndex+1 {
		lm.lastLogIndex = last.ID.Index
		return ents, true, nil
	}

	// entries overlap the local log; find where they start to disagree
	conflict := 0
	for ; conflict < len(ents); conflict++ {
		id := ents[conflict].ID
		if id.Index <= lm.appliedID.Index {
			// applied entries are committed and cannot conflict
			continue
		}
		term, err := lm.termLocked(id.Index)
		if err != nil {
			return nil, false, err
		}
		if term != id.Term {
			break
		}
	}
	if conflict != len(ents) {
		if idx := ents[conflict].ID.Index; idx <= lm.lastLogIndex {
			if err := lm.truncateSuffixLocked(idx-1, au); err != nil {
				return nil, false, err
			}
		}
		lm.lastLogIndex = last.ID.Index
	}
	// drop the duplicated prefix
	return ents[conflict:], true, nil
}

// truncateSuffixLocked removes log entries after lastIndexKept.
func (lm *LogManager) truncateSuffixLocked(lastIndexKept uint64, au *afterUnlock) error {
	if lastIndexKept < lm.appliedID.Index {
		raftLogger.Errorf("cannot truncate log suffix before applied id %s (last index kept %d)", lm.appliedID, lastIndexKept)
		return errors.Wrapf(ErrInconsistentLog, "truncating log suffix to %d before applied id %s", lastIndexKept, lm.appliedID)
	}

	lm.memLog.removeAfter(lastIndexKept)
	lm.terms.truncateTail(lastIndexKept + 1)
	lm.lastLogIndex = lastIndexKept

	lastTermKept, err := lm.termLocked(lastIndexKept)
	if err != nil {
		return err
	}
	if lm.lastLogIndex != 0 && lastTermKept == 0 {
		raftLogger.Panicf("unknown term of last index kept %d", lastIndexKept)
	}

	raftLogger.Debugf("truncated log suffix to %d (term %d)", lastIndexKept, lastTermKept)
	lm.confManager.TruncateSuffix(lastIndexKept)
	lm.claimLocked(au, &truncateSuffixEvent{lastIndexKept: lastIndexKept, lastTermKept: lastTermKept})
	return nil
}

// truncatePrefixLocked removes log entries before firstIndexKept.
func (lm *LogManager) truncatePrefixLocked(firstIndexKept uint64, au *afterUnlock) {
	if firstIndexKept < lm.firstLogIndex {
		raftLogger.Warningf("ignored log prefix truncation to %d before first log index %d", firstIndexKept, lm.firstLogIndex)
		return
	}

	lm.memLog.removeUpTo(firstIndexKept - 1)
	lm.firstLogIndex = firstIndexKept
	if firstIndexKept > lm.lastLogIndex {
		// every entry is dropped
		lm.lastLogIndex = firstIndexKept - 1
	}

	raftLogger.Debugf("truncated log prefix to %d", firstIndexKept)
	lm.confManager.TruncatePrefix(firstIndexKept)
	lm.claimLocked(au, &truncatePrefixEvent{firstIndexKept: firstIndexKept})
}

// resetLocked drops the whole log so that it restarts at nextLogIndex.
func (lm *LogManager) resetLocked(nextLogIndex uint64, au *afterUnlock) {
	lm.memLog.clear()
	lm.terms.reset()
	lm.firstLogIndex = nextLogIndex
	lm.lastLogIndex = nextLogIndex - 1
	lm.confManager.TruncatePrefix(lm.firstLogIndex)
	lm.confManager.TruncateSuffix(lm.lastLogIndex)

	raftLogger.Infof("reset log of group %q to next log index %d", lm.groupID, nextLogIndex)
	lm.claimLocked(au, &resetEvent{nextLogIndex: nextLogIndex})
}

// termLocked returns the term at index, or 0 if index is outside the log.
func (lm *LogManager) termLocked(index uint64) (uint64, error) {
	if index == 0 {
		return 0, nil
	}
	if index == lm.lastSnapshotID.Index {
		return lm.lastSnapshotID.Term, nil
	}
	if index > lm.lastLogIndex || index < lm.firstLogIndex {
		return 0, nil
	}
	if term, ok := lm.terms.lookup(index); ok {
		return term, nil
	}
	if e := lm.memLog.get(index); e != nil {
		return e.ID.Term, nil
	}
	term, err := readTerm(lm.storage, index, lm.enableChecksum)
	if err != nil {
		lm.reportError(err)
	}
	return term, err
}

// setDiskID advances the durable LogID and evicts entries that are
// both durable and applied from memory.
func (lm *LogManager) setDiskID(id raftpb.LogID) {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	if id.Compare(lm.diskID) < 0 {
		return
	}
	lm.diskID = id
	lm.clearMemoryLogsLocked()
}

func (lm *LogManager) clearMemoryLogsLocked() {
	clearID := lm.diskID
	if lm.appliedID.Compare(clearID) < 0 {
		clearID = lm.appliedID
	}
	lm.memLog.removeUpTo(clearID.Index)
}

// SetAppliedID records the last entry applied to the state machine.
func (lm *LogManager) SetAppliedID(id raftpb.LogID) {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	if id.Compare(lm.appliedID) < 0 {
		return
	}
	lm.appliedID = id
	lm.clearMemoryLogsLocked()
}

// Entry returns the log entry at index, or nil if index is outside the log.
func (lm *LogManager) Entry(index uint64) (*raftpb.LogEntry, error) {
	e, inRange := lm.entryFromMemory(index)
	if e != nil || !inRange {
		return e, nil
	}

	e, err := lm.storage.Entry(index)
	if err != nil {
		err = errors.Wrapf(ErrIO, "failed to read log entry %d (%v)", index, err)
		lm.reportError(err)
		return nil, err
	}
	if e == nil {
		lm.reportError(errors.Wrapf(ErrIO, "corrupted entry at index %d, not found", index))
		return nil, nil
	}
	if lm.enableChecksum && e.IsCorrupted() {
		err = errors.Wrapf(ErrLogEntryCorrupted, "index=%d, term=%d, expected checksum=%d, real checksum=%d",
			index, e.ID.Term, e.Checksum, e.ComputeChecksum())
		lm.reportError(err)
		return nil, err
	}
	return e, nil
}

func (lm *LogManager) entryFromMemory(index uint64) (*raftpb.LogEntry, bool) {
	lm.mu.RLock()
	defer lm.mu.RUnlock()

	if index > lm.lastLogIndex || index < lm.firstLogIndex {
		return nil, false
	}
	return lm.memLog.get(index), true
}

// Term returns the term of the entry at index. It returns 0 for index 0
// and for indexes outside the log, except the last snapshot index.
func (lm *LogManager) Term(index uint64) (uint64, error) {
	lm.mu.RLock()
	defer lm.mu.RUnlock()
	return lm.termLocked(index)
}

// FirstLogIndex returns the first index of the log.
func (lm *LogManager) FirstLogIndex() uint64 {
	lm.mu.RLock()
	defer lm.mu.RUnlock()
	return lm.firstLogIndex
}

// LastLogIndex returns the last index of the log. With flush,
// it waits for queued entries to be written and returns the durable one.
func (lm *LogManager) LastLogIndex(flush bool) (uint64, error) {
	if !flush {
		lm.mu.RLock()
		defer lm.mu.RUnlock()
		return lm.lastLogIndex, nil
	}
	id, err := lm.LastLogID(true)
	return id.Index, err
}

// LastLogID returns the LogID of the last entry. With flush,
// it waits for queued entries to be written and returns the durable one.
func (lm *LogManager) LastLogID(flush bool) (raftpb.LogID, error) {
	var au afterUnlock
	id, c, err := lm.lastLogID(flush, &au)
	if c == nil {
		return id, err
	}
	lm.finish(&au)
	return <-c, nil
}

func (lm *LogManager) lastLogID(flush bool, au *afterUnlock) (raftpb.LogID, chan raftpb.LogID, error) {
	lm.mu.RLock()
	defer lm.mu.RUnlock()

	if !flush {
		if lm.lastLogIndex >= lm.firstLogIndex {
			term, err := lm.termLocked(lm.lastLogIndex)
			return raftpb.LogID{Index: lm.lastLogIndex, Term: term}, nil, err
		}
		return lm.lastSnapshotID, nil, nil
	}

	if lm.lastLogIndex == lm.lastSnapshotID.Index {
		return lm.lastSnapshotID, nil, nil
	}
	ev := &lastLogIDEvent{c: make(chan raftpb.LogID, 1)}
	if !lm.claimLocked(au, ev) {
		return raftpb.LogID{}, nil, ErrStopped
	}
	return raftpb.LogID{}, ev.c, nil
}

// DiskID returns the LogID of the last durable entry.
func (lm *LogManager) DiskID() raftpb.LogID {
	lm.mu.RLock()
	defer lm.mu.RUnlock()
	return lm.diskID
}

// AppliedID returns the LogID of the last applied entry.
func (lm *LogManager) AppliedID() raftpb.LogID {
	lm.mu.RLock()
	defer lm.mu.RUnlock()
	return lm.appliedID
}

// LastSnapshotID returns the LogID covered by the last snapshot.
func (lm *LogManager) LastSnapshotID() raftpb.LogID {
	lm.mu.RLock()
	defer lm.mu.RUnlock()
	return lm.lastSnapshotID
}

// SetSnapshot installs a snapshot boundary and adjusts the log to it.
// Snapshots not newer than the current one are ignored.
func (lm *LogManager) SetSnapshot(meta raftpb.SnapshotMeta, useLastSnapshotIndex bool) error {
	var au afterUnlock
	err := lm.setSnapshot(meta, useLastSnapshotIndex, &au)
	lm.finish(&au)
	return err
}

func (lm *LogManager) setSnapshot(meta raftpb.SnapshotMeta, useLastSnapshotIndex bool, au *afterUnlock) error {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	raftLogger.Debugf("set snapshot %s", meta)
	if meta.LastIncludedIndex <= lm.lastSnapshotID.Index {
		return nil
	}

	ce, err := meta.ConfigurationEntry()
	if err != nil {
		return errors.Wrapf(err, "raft: snapshot %s", meta.ID())
	}
	lm.confManager.SetSnapshot(ce)

	term, err := lm.termLocked(meta.LastIncludedIndex)
	if err != nil {
		return err
	}
	savedLastSnapshotIndex := lm.lastSnapshotID.Index

	lm.lastSnapshotID = meta.ID()
	if lm.lastSnapshotID.Compare(lm.appliedID) > 0 {
		lm.appliedID = lm.lastSnapshotID
	}
	// diskID is left as is; entries covered by the snapshot may not be on disk yet

	switch {
	case useLastSnapshotIndex || term == 0:
		// snapshot is past the local log
		lm.truncatePrefixLocked(meta.LastIncludedIndex+1, au)

	case term == meta.LastIncludedTerm:
		// keep entries around the new snapshot for lagging followers
		if savedLastSnapshotIndex > 0 {
			lm.truncatePrefixLocked(savedLastSnapshotIndex+1, au)
		}

	default:
		// local log diverges from the snapshot
		lm.resetLocked(meta.LastIncludedIndex+1, au)
	}
	return nil
}

// ClearBufferedLogs truncates the log up to the last snapshot.
func (lm *LogManager) ClearBufferedLogs() {
	var au afterUnlock
	func() {
		lm.mu.Lock()
		defer lm.mu.Unlock()
		if lm.lastSnapshotID.Index != 0 {
			lm.truncatePrefixLocked(lm.lastSnapshotID.Index+1, &au)
		}
	}()
	lm.finish(&au)
}

// Configuration returns the configuration in effect at index.
func (lm *LogManager) Configuration(index uint64) raftpb.ConfigurationEntry {
	lm.mu.RLock()
	defer lm.mu.RUnlock()
	return lm.confManager.Get(index)
}

// CheckAndSetConfiguration returns the last logged configuration if it
// differs from current, otherwise current.
func (lm *LogManager) CheckAndSetConfiguration(current *raftpb.ConfigurationEntry) *raftpb.ConfigurationEntry {
	if current == nil {
		return nil
	}

	lm.mu.RLock()
	defer lm.mu.RUnlock()

	last := lm.confManager.LastConfiguration()
	if !last.IsEmpty() && current.ID != last.ID {
		return &last
	}
	return current
}

// Wait runs cb once the last log index moves past expectedLastLogIndex.
// If it already has, or the log manager is stopped, cb is scheduled
// right away and Wait returns 0. Otherwise it returns an id for RemoveWaiter.
func (lm *LogManager) Wait(expectedLastLogIndex uint64, cb NewLogCallback, arg interface{}) int64 {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	if expectedLastLogIndex != lm.lastLogIndex || lm.stopped {
		var err error
		if lm.stopped {
			err = ErrStopped
		}
		lm.sched.Schedule(func(context.Context) { cb(arg, err) })
		return 0
	}

	if lm.nextWaitID == 0 {
		lm.nextWaitID++
	}
	id := lm.nextWaitID
	lm.nextWaitID++
	lm.waiters[id] = &waitMeta{cb: cb, arg: arg}
	return id
}

// RemoveWaiter cancels a Wait. It returns false if the waiter already ran.
func (lm *LogManager) RemoveWaiter(id int64) bool {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	if _, ok := lm.waiters[id]; !ok {
		return false
	}
	delete(lm.waiters, id)
	return true
}

func (lm *LogManager) wakeupAllWaitersLocked(au *afterUnlock) bool {
	if len(lm.waiters) == 0 {
		return false
	}
	var err error
	if lm.stopped {
		err = ErrStopped
	}
	for id, wm := range lm.waiters {
		wm.err = err
		au.waiters = append(au.waiters, wm)
		delete(lm.waiters, id)
	}
	return true
}

// AddLastLogIndexListener registers l.
func (lm *LogManager) AddLastLogIndexListener(l LastLogIndexListener) {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	lm.listeners = append(lm.listeners, l)
}

// RemoveLastLogIndexListener unregisters l.
func (lm *LogManager) RemoveLastLogIndexListener(l LastLogIndexListener) {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	for i := range lm.listeners {
		if lm.listeners[i] == l {
			lm.listeners = append(lm.listeners[:i:i], lm.listeners[i+1:]...)
			return
		}
	}
}

// HasAvailableCapacityToAppendEntries returns true if the disk queue can
// take requiredCapacity more events.
func (lm *LogManager) HasAvailableCapacityToAppendEntries(requiredCapacity int) bool {
	lm.mu.RLock()
	defer lm.mu.RUnlock()

	if lm.stopped || lm.dq == nil {
		return false
	}
	return lm.dq.freeCapacity() >= requiredCapacity
}

// CheckConsistency checks that the log and the last snapshot leave no gap.
func (lm *LogManager) CheckConsistency() error {
	lm.mu.RLock()
	defer lm.mu.RUnlock()

	if lm.firstLogIndex == 0 {
		return errors.Wrapf(ErrInconsistentLog, "first log index is 0")
	}

	if lm.lastSnapshotID.IsZero() {
		if lm.firstLogIndex == 1 {
			return nil
		}
		return errors.Wrapf(ErrInconsistentLog, "missing logs in (0, %d)", lm.firstLogIndex)
	}
	if lm.lastSnapshotID.Index >= lm.firstLogIndex-1 && lm.lastSnapshotID.Index <= lm.lastLogIndex {
		return nil
	}
	return errors.Wrapf(ErrInconsistentLog, "gap between snapshot %s and log [%d, %d]",
		lm.lastSnapshotID, lm.firstLogIndex, lm.lastLogIndex)
}

// Describe writes the log bounds and markers to w.
func (lm *LogManager) Describe(w io.Writer) {
	lm.mu.RLock()
	first, last := lm.firstLogIndex, lm.lastLogIndex
	diskID, appliedID, snapID := lm.diskID, lm.appliedID, lm.lastSnapshotID
	lm.mu.RUnlock()

	fmt.Fprintf(w, "  storage: [%d, %d]\n", first, last)
	fmt.Fprintf(w, "  diskId: %s\n", diskID)
	fmt.Fprintf(w, "  appliedId: %s\n", appliedID)
	fmt.Fprintf(w, "  lastSnapshotId: %s\n", snapID)
}

// Shutdown stops the log manager. Waiters run with ErrStopped and the
// disk queue stops after writing what it has queued.
func (lm *LogManager) Shutdown() {
	var au afterUnlock
	if !lm.shutdown(&au) {
		return
	}
	lm.finish(&au)
}

func (lm *LogManager) shutdown(au *afterUnlock) bool {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	if lm.stopped {
		return false
	}
	lm.stopped = true
	lm.wakeupAllWaitersLocked(au)
	if lm.dq != nil {
		au.events = append(au.events, lm.dq.claim(shutdownEvent{}))
	}
	return true
}

// Join blocks until the disk queue has stopped.
func (lm *LogManager) Join() {
	lm.mu.RLock()
	dq := lm.dq
	lm.mu.RUnlock()

	if dq == nil {
		return
	}
	<-dq.donec
	if lm.ownSched {
		lm.sched.Stop()
	}
}
