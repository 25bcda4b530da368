package hlc

import (
	"testing"
	"time"
)

func TestTimestampParts(t *testing.T) {
	tests := []struct {
		physical uint64
		logical  uint16
		wstr     string
	}{
		{1, 0, "1.0"},
		{1700000000000, 7, "1700000000000.7"},
		{0, 3, "0.3"},
	}
	for i, tt := range tests {
		ts := New(tt.physical, tt.logical)
		if ts.Physical() != tt.physical {
			t.Fatalf("#%d: physical = %d, want %d", i, ts.Physical(), tt.physical)
		}
		if ts.Logical() != tt.logical {
			t.Fatalf("#%d: logical = %d, want %d", i, ts.Logical(), tt.logical)
		}
		if ts.String() != tt.wstr {
			t.Fatalf("#%d: string = %q, want %q", i, ts.String(), tt.wstr)
		}
	}
	if !Null.IsNull() || Null.String() != "null" {
		t.Fatal("zero timestamp must be null")
	}
}

func TestTimestampCompare(t *testing.T) {
	a, b := New(10, 1), New(10, 2)
	if a.Compare(b) != -1 || b.Compare(a) != 1 || a.Compare(a) != 0 {
		t.Fatalf("unexpected ordering of %s and %s", a, b)
	}
	if New(9, 100).Compare(New(10, 0)) != -1 {
		t.Fatal("physical part must dominate the logical part")
	}
}

func TestClockMonotonic(t *testing.T) {
	fixed := time.UnixMilli(5000)
	c := NewClock(func() time.Time { return fixed })

	prev := c.Now()
	for i := 0; i < 10; i++ {
		ts := c.Now()
		if ts <= prev {
			t.Fatalf("#%d: %s is not after %s", i, ts, prev)
		}
		prev = ts
	}

	remote := New(9000, 0)
	if got := c.Update(remote); got != remote {
		t.Fatalf("update = %s, want %s", got, remote)
	}
	if ts := c.Now(); ts <= remote {
		t.Fatalf("%s must be after observed %s", ts, remote)
	}
}
