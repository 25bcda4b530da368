// Package hlc implements hybrid logical clock timestamps used as commit timestamps.
package hlc

import (
	"fmt"
	"sync"
	"time"
)

// LogicalBits is the number of low bits holding the logical counter.
const LogicalBits = 16

const logicalMask = 1<<LogicalBits - 1

// Timestamp packs physical milliseconds and a logical counter into 64 bits.
// The zero Timestamp means "no timestamp".
type Timestamp uint64

// Null is the absent timestamp.
const Null Timestamp = 0

// Max is the largest representable timestamp.
const Max Timestamp = 1<<64 - 1

// New returns a Timestamp from physical milliseconds and a logical counter.
func New(physical uint64, logical uint16) Timestamp {
	return Timestamp(physical<<LogicalBits | uint64(logical))
}

// Physical returns the physical part in milliseconds.
func (ts Timestamp) Physical() uint64 { return uint64(ts) >> LogicalBits }

// Logical returns the logical counter.
func (ts Timestamp) Logical() uint16 { return uint16(uint64(ts) & logicalMask) }

// IsNull returns true for the absent timestamp.
func (ts Timestamp) IsNull() bool { return ts == Null }

// Compare returns -1, 0 or 1.
func (ts Timestamp) Compare(o Timestamp) int {
	switch {
	case ts < o:
		return -1
	case ts > o:
		return 1
	default:
		return 0
	}
}

// Next returns the smallest timestamp after ts.
func (ts Timestamp) Next() Timestamp { return ts + 1 }

func (ts Timestamp) String() string {
	if ts.IsNull() {
		return "null"
	}
	return fmt.Sprintf("%d.%d", ts.Physical(), ts.Logical())
}

// Clock hands out strictly increasing timestamps.
type Clock struct {
	mu   sync.Mutex
	last Timestamp
	now  func() time.Time
}

// NewClock returns a Clock reading wall time from now; nil means time.Now.
func NewClock(now func() time.Time) *Clock {
	if now == nil {
		now = time.Now
	}
	return &Clock{now: now}
}

// Now returns a timestamp greater than every timestamp returned or observed before.
func (c *Clock) Now() Timestamp {
	c.mu.Lock()
	defer c.mu.Unlock()

	ts := New(uint64(c.now().UnixMilli()), 0)
	if ts <= c.last {
		ts = c.last.Next()
	}
	c.last = ts
	return ts
}

// Update moves the clock past a timestamp received from another node.
func (c *Clock) Update(ts Timestamp) Timestamp {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ts > c.last {
		c.last = ts
	}
	return c.last
}
