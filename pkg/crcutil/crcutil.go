package crcutil

import (
	"encoding/binary"
	"hash"
	"hash/crc32"
)

// Size of a CRC-32 checksum in bytes.
const Size = 4

type digest struct {
	crc uint32
	tab *crc32.Table
}

// New creates a new hash.Hash32 computing the CRC-32 checksum
// using the polynomial represented by the Table.
// Its Sum method will lay the value out in big-endian byte order.
//
// (etcd pkg.crc.New)
func New(prev uint32, tab *crc32.Table) hash.Hash32 {
	return &digest{prev, tab}
}

func (d *digest) Size() int { return Size }

func (d *digest) BlockSize() int { return 1 }

func (d *digest) Reset() { d.crc = 0 }

func (d *digest) Write(p []byte) (n int, err error) {
	d.crc = crc32.Update(d.crc, d.tab, p)
	return len(p), nil
}

func (d *digest) Sum32() uint32 { return d.crc }

func (d *digest) Sum(in []byte) []byte {
	s := d.Sum32()
	return append(in, byte(s>>24), byte(s>>16), byte(s>>8), byte(s))
}

var castagnoli = crc32.MakeTable(crc32.Castagnoli)

// Checksum accumulates fields into a Castagnoli CRC-32.
// The zero value starts from crc 0.
type Checksum struct {
	h   hash.Hash32
	buf [8]byte
}

// NewChecksum returns a Checksum starting from prev.
func NewChecksum(prev uint32) *Checksum {
	return &Checksum{h: New(prev, castagnoli)}
}

// Uint64 adds v in big-endian order.
func (c *Checksum) Uint64(v uint64) *Checksum {
	binary.BigEndian.PutUint64(c.buf[:], v)
	c.h.Write(c.buf[:])
	return c
}

// Bytes adds the length-prefixed b, so that ("ab","c") and ("a","bc") differ.
func (c *Checksum) Bytes(b []byte) *Checksum {
	c.Uint64(uint64(len(b)))
	c.h.Write(b)
	return c
}

// String adds the length-prefixed s.
func (c *Checksum) String(s string) *Checksum {
	return c.Bytes([]byte(s))
}

// Sum32 returns the accumulated checksum.
func (c *Checksum) Sum32() uint32 { return c.h.Sum32() }
