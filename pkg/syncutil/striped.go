// Package syncutil provides lock helpers shared by storage packages.
package syncutil

import (
	"runtime"
	"sync"
)

// DefaultConcurrency is the stripe count used when none is given.
var DefaultConcurrency = max(1, runtime.NumCPU()/2)

// StripedMutex is a fixed array of mutexes. Callers pick the stripe
// explicitly, usually from a hash of the guarded key.
type StripedMutex struct {
	locks []sync.Mutex
}

// NewStripedMutex returns a StripedMutex with n stripes.
func NewStripedMutex(n int) *StripedMutex {
	if n < 1 {
		n = DefaultConcurrency
	}
	return &StripedMutex{locks: make([]sync.Mutex, n)}
}

// Len returns the number of stripes.
func (s *StripedMutex) Len() int { return len(s.locks) }

// Index maps a hash onto a stripe.
func (s *StripedMutex) Index(hash uint64) int {
	return int(hash % uint64(len(s.locks)))
}

// Lock locks the stripe idx.
func (s *StripedMutex) Lock(idx int) { s.locks[idx].Lock() }

// TryLock tries to lock the stripe idx without blocking.
func (s *StripedMutex) TryLock(idx int) bool { return s.locks[idx].TryLock() }

// Unlock unlocks the stripe idx.
func (s *StripedMutex) Unlock(idx int) { s.locks[idx].Unlock() }

// StripeSet tracks the stripes held by one critical section, so that
// locking two keys mapped onto the same stripe does not self-deadlock.
type StripeSet struct {
	s    *StripedMutex
	held []int
}

// NewStripeSet returns an empty StripeSet over s.
func NewStripeSet(s *StripedMutex) *StripeSet {
	return &StripeSet{s: s}
}

func (ss *StripeSet) holds(idx int) bool {
	for _, h := range ss.held {
		if h == idx {
			return true
		}
	}
	return false
}

// Lock locks stripe idx unless the set already holds it.
func (ss *StripeSet) Lock(idx int) {
	if ss.holds(idx) {
		return
	}
	ss.s.Lock(idx)
	ss.held = append(ss.held, idx)
}

// TryLock is Lock without blocking. It reports true when the set holds idx afterwards.
func (ss *StripeSet) TryLock(idx int) bool {
	if ss.holds(idx) {
		return true
	}
	if !ss.s.TryLock(idx) {
		return false
	}
	ss.held = append(ss.held, idx)
	return true
}

// Held returns the number of stripes held.
func (ss *StripeSet) Held() int { return len(ss.held) }

// UnlockAll releases every held stripe in reverse acquisition order.
func (ss *StripeSet) UnlockAll() {
	for i := len(ss.held) - 1; i >= 0; i-- {
		ss.s.Unlock(ss.held[i])
	}
	ss.held = ss.held[:0]
}
