package logstorage

import (
	"sync"

	"github.com/dgraph-io/badger"
	"github.com/pkg/errors"

	"github.com/IgGusev/ignite-3/pkg/fileutil"
	"github.com/IgGusev/ignite-3/pkg/xlog"
	"github.com/IgGusev/ignite-3/raft"
	"github.com/IgGusev/ignite-3/raftpb"
)

var (
	entryKeyPrefix      = []byte("e/")
	badgerFirstIndexKey = []byte("m/first_log_index")
)

func entryKey(index uint64) []byte {
	return append(append([]byte(nil), entryKeyPrefix...), indexKey(index)...)
}

func entryKeyIndex(k []byte) uint64 { return keyIndex(k[len(entryKeyPrefix):]) }

// BadgerLogStorage stores the log in a badger key-value store.
type BadgerLogStorage struct {
	dir  string
	sync bool

	mu    sync.RWMutex
	db    *badger.DB
	first uint64
	last  uint64
}

// NewBadgerLogStorage returns a BadgerLogStorage in dir.
func NewBadgerLogStorage(dir string, sync bool) *BadgerLogStorage {
	return &BadgerLogStorage{dir: dir, sync: sync}
}

func (bs *BadgerLogStorage) Init(opts raft.LogStorageOptions) error {
	if err := fileutil.MkdirAll(bs.dir); err != nil {
		return errors.Wrapf(err, "logstorage: create %q", bs.dir)
	}

	bopts := badger.DefaultOptions(bs.dir).
		WithLogger(xlog.NewLogger("badger", xlog.WARN)).
		WithSyncWrites(bs.sync)
	db, err := badger.Open(bopts)
	if err != nil {
		return errors.Wrap(err, "logstorage: open badger")
	}

	var first, last uint64
	err = db.View(func(txn *badger.Txn) error {
		first = 1
		item, err := txn.Get(badgerFirstIndexKey)
		switch err {
		case nil:
			v, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			first = keyIndex(v)
		case badger.ErrKeyNotFound:
		default:
			return err
		}
		last = first - 1

		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek(entryKey(first)); it.ValidForPrefix(entryKeyPrefix); it.Next() {
			index := entryKeyIndex(it.Item().KeyCopy(nil))
			v, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			e, err := decodeEntry(index, v)
			if err != nil {
				return err
			}
			registerConfiguration(opts, e)
			last = index
		}
		return nil
	})
	if err != nil {
		db.Close()
		return errors.Wrap(err, "logstorage: load badger log")
	}

	bs.mu.Lock()
	bs.db, bs.first, bs.last = db, first, last
	bs.mu.Unlock()

	logger.Infof("opened badger log storage %q [first=%d | last=%d]", bs.dir, first, last)
	return nil
}

func (bs *BadgerLogStorage) Shutdown() error {
	bs.mu.Lock()
	defer bs.mu.Unlock()

	if bs.db == nil {
		return nil
	}
	err := bs.db.Close()
	bs.db = nil
	return err
}

func (bs *BadgerLogStorage) FirstLogIndex() uint64 {
	bs.mu.RLock()
	defer bs.mu.RUnlock()
	return bs.first
}

func (bs *BadgerLogStorage) LastLogIndex() uint64 {
	bs.mu.RLock()
	defer bs.mu.RUnlock()
	return bs.last
}

func (bs *BadgerLogStorage) Entry(index uint64) (*raftpb.LogEntry, error) {
	bs.mu.RLock()
	defer bs.mu.RUnlock()

	if index < bs.first || index > bs.last {
		return nil, nil
	}

	var e *raftpb.LogEntry
	err := bs.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(entryKey(index))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		v, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		e, err = decodeEntry(index, v)
		return err
	})
	return e, err
}

func (bs *BadgerLogStorage) Term(index uint64) uint64 {
	e, err := bs.Entry(index)
	if err != nil {
		logger.Warningf("failed to read term of entry %d (%v)", index, err)
		return 0
	}
	if e == nil {
		return 0
	}
	return e.ID.Term
}

// batchWriter splits writes over as many transactions as badger needs.
type batchWriter struct {
	db  *badger.DB
	txn *badger.Txn
}

func newBatchWriter(db *badger.DB) *batchWriter {
	return &batchWriter{db: db, txn: db.NewTransaction(true)}
}

func (w *batchWriter) do(f func(txn *badger.Txn) error) error {
	err := f(w.txn)
	if err != badger.ErrTxnTooBig {
		return err
	}
	if err = w.txn.Commit(); err != nil {
		return err
	}
	w.txn = w.db.NewTransaction(true)
	return f(w.txn)
}

func (w *batchWriter) set(k, v []byte) error {
	return w.do(func(txn *badger.Txn) error { return txn.Set(k, v) })
}

func (w *batchWriter) delete(k []byte) error {
	return w.do(func(txn *badger.Txn) error { return txn.Delete(k) })
}

func (w *batchWriter) commit() error { return w.txn.Commit() }

func (w *batchWriter) discard() { w.txn.Discard() }

func (bs *BadgerLogStorage) AppendEntries(ents []*raftpb.LogEntry) (int, error) {
	if len(ents) == 0 {
		return 0, nil
	}

	bs.mu.Lock()
	defer bs.mu.Unlock()

	if err := checkContiguous(ents, bs.last+1); err != nil {
		return 0, err
	}

	w := newBatchWriter(bs.db)
	defer w.discard()
	for _, e := range ents {
		v, err := e.Marshal()
		if err != nil {
			return 0, err
		}
		if err = w.set(entryKey(e.ID.Index), v); err != nil {
			return 0, errors.Wrapf(err, "logstorage: append %s", raftpb.DescribeEntries(ents))
		}
	}
	if err := w.commit(); err != nil {
		return 0, errors.Wrapf(err, "logstorage: append %s", raftpb.DescribeEntries(ents))
	}

	bs.last = ents[len(ents)-1].ID.Index
	return len(ents), nil
}

// deleteEntries deletes entry keys in [from, to].
func (bs *BadgerLogStorage) deleteEntries(w *batchWriter, from, to uint64) error {
	var keys [][]byte
	err := bs.db.View(func(txn *badger.Txn) error {
		iopts := badger.DefaultIteratorOptions
		iopts.PrefetchValues = false
		it := txn.NewIterator(iopts)
		defer it.Close()
		for it.Seek(entryKey(from)); it.ValidForPrefix(entryKeyPrefix); it.Next() {
			k := it.Item().KeyCopy(nil)
			if entryKeyIndex(k) > to {
				break
			}
			keys = append(keys, k)
		}
		return nil
	})
	if err != nil {
		return err
	}
	for _, k := range keys {
		if err = w.delete(k); err != nil {
			return err
		}
	}
	return nil
}

func (bs *BadgerLogStorage) TruncatePrefix(firstIndexKept uint64) error {
	bs.mu.Lock()
	defer bs.mu.Unlock()

	if firstIndexKept <= bs.first {
		return nil
	}

	w := newBatchWriter(bs.db)
	defer w.discard()
	if err := w.set(badgerFirstIndexKey, indexKey(firstIndexKept)); err != nil {
		return errors.Wrapf(err, "logstorage: truncate prefix to %d", firstIndexKept)
	}
	if err := bs.deleteEntries(w, 0, firstIndexKept-1); err != nil {
		return errors.Wrapf(err, "logstorage: truncate prefix to %d", firstIndexKept)
	}
	if err := w.commit(); err != nil {
		return errors.Wrapf(err, "logstorage: truncate prefix to %d", firstIndexKept)
	}

	bs.first = firstIndexKept
	if bs.last < firstIndexKept-1 {
		bs.last = firstIndexKept - 1
	}
	return nil
}

func (bs *BadgerLogStorage) TruncateSuffix(lastIndexKept uint64) error {
	bs.mu.Lock()
	defer bs.mu.Unlock()

	if lastIndexKept >= bs.last {
		return nil
	}

	w := newBatchWriter(bs.db)
	defer w.discard()
	if err := bs.deleteEntries(w, lastIndexKept+1, bs.last); err != nil {
		return errors.Wrapf(err, "logstorage: truncate suffix to %d", lastIndexKept)
	}
	if err := w.commit(); err != nil {
		return errors.Wrapf(err, "logstorage: truncate suffix to %d", lastIndexKept)
	}

	bs.last = lastIndexKept
	if bs.last < bs.first-1 {
		bs.last = bs.first - 1
	}
	return nil
}

func (bs *BadgerLogStorage) Reset(nextLogIndex uint64) error {
	if nextLogIndex == 0 {
		return errors.New("logstorage: reset to log index 0")
	}

	bs.mu.Lock()
	defer bs.mu.Unlock()

	w := newBatchWriter(bs.db)
	defer w.discard()
	if err := bs.deleteEntries(w, 0, bs.last); err != nil {
		return errors.Wrapf(err, "logstorage: reset to %d", nextLogIndex)
	}
	if err := w.set(badgerFirstIndexKey, indexKey(nextLogIndex)); err != nil {
		return errors.Wrapf(err, "logstorage: reset to %d", nextLogIndex)
	}
	if err := w.commit(); err != nil {
		return errors.Wrapf(err, "logstorage: reset to %d", nextLogIndex)
	}

	bs.first, bs.last = nextLogIndex, nextLogIndex-1
	return nil
}
