// Package index implements secondary indexes over partition rows.
package index

import (
	"github.com/IgGusev/ignite-3/mvcc"
)

// Storage maps index keys to row ids. A key may map to many rows.
type Storage interface {
	Put(key []byte, id mvcc.RowID)
	Remove(key []byte, id mvcc.RowID)
	Get(key []byte) []mvcc.RowID
}

// KeyFunc extracts the index key of a row.
type KeyFunc func(row *mvcc.BinaryRow) []byte

// Index is a secondary index: a key function and its storage.
type Index struct {
	ID      int
	Key     KeyFunc
	Storage Storage
}
