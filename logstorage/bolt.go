package logstorage

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/boltdb/bolt"
	"github.com/pkg/errors"

	"github.com/IgGusev/ignite-3/pkg/fileutil"
	"github.com/IgGusev/ignite-3/raft"
	"github.com/IgGusev/ignite-3/raftpb"
)

var (
	entriesBucketName = []byte("entries")
	metaBucketName    = []byte("meta")

	firstLogIndexKey = []byte("first_log_index")
)

// BoltLogStorage stores the log in a bolt database.
// Entries are keyed by their 8-byte big-endian index.
type BoltLogStorage struct {
	dir  string
	sync bool

	mu    sync.RWMutex
	db    *bolt.DB
	first uint64
	last  uint64
}

// NewBoltLogStorage returns a BoltLogStorage in dir.
func NewBoltLogStorage(dir string, sync bool) *BoltLogStorage {
	return &BoltLogStorage{dir: dir, sync: sync}
}

func (bs *BoltLogStorage) Init(opts raft.LogStorageOptions) error {
	if err := fileutil.MkdirAll(bs.dir); err != nil {
		return errors.Wrapf(err, "logstorage: create %q", bs.dir)
	}

	db, err := bolt.Open(filepath.Join(bs.dir, "raft-log.db"), fileutil.PrivateFileMode, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return errors.Wrap(err, "logstorage: open bolt")
	}
	db.NoSync = !bs.sync

	var first, last uint64
	err = db.Update(func(tx *bolt.Tx) error {
		eb, err := tx.CreateBucketIfNotExists(entriesBucketName)
		if err != nil {
			return err
		}
		mb, err := tx.CreateBucketIfNotExists(metaBucketName)
		if err != nil {
			return err
		}

		first = 1
		if v := mb.Get(firstLogIndexKey); v != nil {
			first = keyIndex(v)
		}
		last = first - 1
		if k, _ := eb.Cursor().Last(); k != nil && keyIndex(k) >= first {
			last = keyIndex(k)
		}

		return eb.ForEach(func(k, v []byte) error {
			e, err := decodeEntry(keyIndex(k), v)
			if err != nil {
				return err
			}
			registerConfiguration(opts, e)
			return nil
		})
	})
	if err != nil {
		db.Close()
		return errors.Wrap(err, "logstorage: load bolt log")
	}

	bs.mu.Lock()
	bs.db, bs.first, bs.last = db, first, last
	bs.mu.Unlock()

	logger.Infof("opened bolt log storage %q [first=%d | last=%d]", bs.dir, first, last)
	return nil
}

func (bs *BoltLogStorage) Shutdown() error {
	bs.mu.Lock()
	defer bs.mu.Unlock()

	if bs.db == nil {
		return nil
	}
	err := bs.db.Close()
	bs.db = nil
	return err
}

func (bs *BoltLogStorage) FirstLogIndex() uint64 {
	bs.mu.RLock()
	defer bs.mu.RUnlock()
	return bs.first
}

func (bs *BoltLogStorage) LastLogIndex() uint64 {
	bs.mu.RLock()
	defer bs.mu.RUnlock()
	return bs.last
}

func (bs *BoltLogStorage) Entry(index uint64) (*raftpb.LogEntry, error) {
	bs.mu.RLock()
	defer bs.mu.RUnlock()

	if index < bs.first || index > bs.last {
		return nil, nil
	}

	var e *raftpb.LogEntry
	err := bs.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(entriesBucketName).Get(indexKey(index))
		if v == nil {
			return nil
		}
		var err error
		e, err = decodeEntry(index, v)
		return err
	})
	return e, err
}

func (bs *BoltLogStorage) Term(index uint64) uint64 {
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

func (bs *BoltLogStorage) AppendEntries(ents []*raftpb.LogEntry) (int, error) {
	if len(ents) == 0 {
		return 0, nil
	}

	bs.mu.Lock()
	defer bs.mu.Unlock()

	if err := checkContiguous(ents, bs.last+1); err != nil {
		return 0, err
	}

	err := bs.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(entriesBucketName)
		// log is append-only
		b.FillPercent = 0.9
		for _, e := range ents {
			v, err := e.Marshal()
			if err != nil {
				return err
			}
			if err := b.Put(indexKey(e.ID.Index), v); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, errors.Wrapf(err, "logstorage: append %s", raftpb.DescribeEntries(ents))
	}
	bs.last = ents[len(ents)-1].ID.Index
	return len(ents), nil
}

// deleteRange deletes entry keys in [from, to].
func deleteRange(b *bolt.Bucket, from, to uint64) error {
	var keys [][]byte
	c := b.Cursor()
	for k, _ := c.Seek(indexKey(from)); k != nil && keyIndex(k) <= to; k, _ = c.Next() {
		keys = append(keys, append([]byte(nil), k...))
	}
	for _, k := range keys {
		if err := b.Delete(k); err != nil {
			return err
		}
	}
	return nil
}

func (bs *BoltLogStorage) TruncatePrefix(firstIndexKept uint64) error {
	bs.mu.Lock()
	defer bs.mu.Unlock()

	if firstIndexKept <= bs.first {
		return nil
	}
	err := bs.db.Update(func(tx *bolt.Tx) error {
		if err := tx.Bucket(metaBucketName).Put(firstLogIndexKey, indexKey(firstIndexKept)); err != nil {
			return err
		}
		return deleteRange(tx.Bucket(entriesBucketName), 0, firstIndexKept-1)
	})
	if err != nil {
		return errors.Wrapf(err, "logstorage: truncate prefix to %d", firstIndexKept)
	}

	bs.first = firstIndexKept
	if bs.last < firstIndexKept-1 {
		bs.last = firstIndexKept - 1
	}
	return nil
}

func (bs *BoltLogStorage) TruncateSuffix(lastIndexKept uint64) error {
	bs.mu.Lock()
	defer bs.mu.Unlock()

	if lastIndexKept >= bs.last {
		return nil
	}
	err := bs.db.Update(func(tx *bolt.Tx) error {
		return deleteRange(tx.Bucket(entriesBucketName), lastIndexKept+1, bs.last)
	})
	if err != nil {
		return errors.Wrapf(err, "logstorage: truncate suffix to %d", lastIndexKept)
	}

	bs.last = lastIndexKept
	if bs.last < bs.first-1 {
		bs.last = bs.first - 1
	}
	return nil
}

func (bs *BoltLogStorage) Reset(nextLogIndex uint64) error {
	if nextLogIndex == 0 {
		return errors.New("logstorage: reset to log index 0")
	}

	bs.mu.Lock()
	defer bs.mu.Unlock()

	err := bs.db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket(entriesBucketName); err != nil {
			return err
		}
		if _, err := tx.CreateBucket(entriesBucketName); err != nil {
			return err
		}
		return tx.Bucket(metaBucketName).Put(firstLogIndexKey, indexKey(nextLogIndex))
	})
	if err != nil {
		return errors.Wrapf(err, "logstorage: reset to %d", nextLogIndex)
	}

	bs.first, bs.last = nextLogIndex, nextLogIndex-1
	return nil
}
