package testutil

import (
	"runtime"
	"testing"
	"time"
)

// FatalStack helps to fatal the test and print out the stacks of all running goroutines.
//
// (etcd pkg.testutil.FatalStack)
func FatalStack(t *testing.T, s string) {
	stackTrace := make([]byte, 8*1024)
	n := runtime.Stack(stackTrace, true)
	t.Error(string(stackTrace[:n]))
	t.Fatalf(s)
}

// WaitSchedule briefly sleeps in order to invoke the go scheduler.
//
// (etcd pkg.testutil.WaitSchedule)
func WaitSchedule() { time.Sleep(10 * time.Millisecond) }

// WaitTimeout receives from c or fails the test with all goroutine stacks after d.
func WaitTimeout(t *testing.T, c <-chan struct{}, d time.Duration, msg string) {
	select {
	case <-c:
	case <-time.After(d):
		FatalStack(t, msg)
	}
}
