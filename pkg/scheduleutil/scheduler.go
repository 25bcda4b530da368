package scheduleutil

import (
	"context"
	"sync"

	"github.com/IgGusev/ignite-3/pkg/xlog"
)

var logger = xlog.NewLogger("scheduleutil", xlog.INFO)

// Job is a function to be run with context.
//
// (etcd pkg.schedule.Job)
type Job func(context.Context)

// Scheduler defines scheduler interface.
//
// (etcd pkg.schedule.Scheduler)
type Scheduler interface {
	// Schedule asks the scheduler to schedule a job defined by the given func.
	// Schedule to a stopped scheduler runs the job in the calling goroutine
	// with a canceled context.
	Schedule(j Job)

	// Pending returns number of pending jobs.
	Pending() int

	// Scheduled returns the number of scheduled jobs (excluding pending jobs).
	Scheduled() int

	// Finished returns the number of finished jobs.
	Finished() int

	// WaitFinish waits until at least n job are finished and all pending jobs are finished.
	WaitFinish(n int)

	// Stop stops the whole Scheduler.
	Stop()
}

type fifo struct {
	mu sync.Mutex

	resume    chan struct{}
	scheduled int
	finished  int
	pendings  []Job
	stopped   bool

	ctx    context.Context
	cancel context.CancelFunc

	finishCond *sync.Cond
	donec      chan struct{}
}

// NewSchedulerFIFO returns a Scheduler that schedules jobs in FIFO order.
//
// (etcd pkg.schedule.NewFIFOScheduler)
func NewSchedulerFIFO() Scheduler {
	f := &fifo{
		resume: make(chan struct{}, 1),
		donec:  make(chan struct{}, 1),
	}
	f.ctx, f.cancel = context.WithCancel(context.Background())
	f.finishCond = sync.NewCond(&f.mu)

	go f.run()

	return f
}

// Schedule schedules a job that will be ran in FIFO order sequentially.
func (f *fifo) Schedule(j Job) {
	f.mu.Lock()
	if f.stopped {
		f.mu.Unlock()
		runJob(f.ctx, j)
		return
	}

	if len(f.pendings) == 0 {
		select {
		case f.resume <- struct{}{}:
		default:
		}
	}
	f.pendings = append(f.pendings, j)
	f.mu.Unlock()
}

func (f *fifo) Pending() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.pendings)
}

func (f *fifo) Scheduled() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.scheduled
}

func (f *fifo) Finished() int {
	f.finishCond.L.Lock()
	defer f.finishCond.L.Unlock()
	return f.finished
}

func (f *fifo) WaitFinish(n int) {
	f.finishCond.L.Lock()
	for f.finished < n || len(f.pendings) != 0 {
		f.finishCond.Wait()
	}
	f.finishCond.L.Unlock()
}

// Stop stops the scheduler. Pending jobs still run, with a canceled context.
func (f *fifo) Stop() {
	f.mu.Lock()
	if f.stopped {
		f.mu.Unlock()
		return
	}
	f.stopped = true
	f.cancel()
	f.mu.Unlock()

	<-f.donec
}

func (f *fifo) run() {
	defer close(f.donec)

	for {
		var todo Job
		f.mu.Lock()
		if len(f.pendings) != 0 {
			f.scheduled++
			todo = f.pendings[0]
		}
		f.mu.Unlock()

		if todo == nil {
			select {
			case <-f.resume:
			case <-f.ctx.Done():
				f.mu.Lock()
				pendings := f.pendings
				f.pendings = nil
				f.mu.Unlock()

				for _, todo := range pendings {
					runJob(f.ctx, todo)
				}

				f.finishCond.L.Lock()
				f.finished += len(pendings)
				f.finishCond.Broadcast()
				f.finishCond.L.Unlock()
				return
			}
			continue
		}

		runJob(f.ctx, todo)

		f.finishCond.L.Lock()
		f.finished++
		f.pendings = f.pendings[1:]
		f.finishCond.Broadcast()
		f.finishCond.L.Unlock()
	}
}

// runJob keeps one failing callback from killing the scheduler goroutine.
func runJob(ctx context.Context, j Job) {
	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("scheduled job panicked (%v)", r)
		}
	}()
	j(ctx)
}
