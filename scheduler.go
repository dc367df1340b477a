package fiber

import (
	"fmt"
	"time"

	"github.com/joeycumines/logiface"
	"golang.org/x/sys/unix"
)

// drainBatch bounds the number of timer expirations processed per iteration.
const drainBatch = 1024

// Scheduler owns every fiber it creates and multiplexes them onto a single
// logical thread of control. Exactly one of the scheduler and its fibers is
// runnable at any instant, so no locking is required anywhere in the core.
//
// A Scheduler and its fibers must not be shared across concurrent callers;
// independent Schedulers on separate goroutines are fine.
type Scheduler struct {
	readyFibers  fiberList
	deadFibers   fiberList
	runningFiber *Fiber
	// resume is the scheduler's own park channel: suspending fibers hand
	// control back to Run through it when the ready queue is empty.
	resume     chan struct{}
	timers     timerQueue
	poll       ioPoll
	drainBuf   []*timerItem
	logger     *logiface.Logger[logiface.Event]
	fiberCount int
	running    bool
}

// New creates a scheduler with no fibers. The caller must Close it to
// release the poller descriptor.
func New(opts ...SchedulerOption) (*Scheduler, error) {
	cfg, err := resolveSchedulerOptions(opts)
	if err != nil {
		return nil, err
	}
	s := &Scheduler{
		resume:   make(chan struct{}, 1),
		drainBuf: make([]*timerItem, 0, drainBatch),
		logger:   cfg.logger,
	}
	if err := s.poll.init(cfg.eventBuffer); err != nil {
		return nil, err
	}
	return s, nil
}

// Close releases the scheduler's poller. It must not be called while Run is
// executing.
func (s *Scheduler) Close() error {
	return s.poll.close()
}

// Call enqueues a new fiber executing fn. A fiber is recycled from the dead
// queue when one exists, reusing its parked goroutine; otherwise a fresh
// fiber is created. The new fiber is appended to the ready queue; Call never
// switches to it.
func (s *Scheduler) Call(fn Coroutine) {
	if fn == nil {
		return
	}
	var f *Fiber
	if !s.deadFibers.empty() {
		f = s.deadFibers.popFront()
		f.coroutine = fn
	} else {
		f = newFiber(fn)
		s.fiberCount++
	}
	s.readyFibers.pushBack(f)
}

// WatchIO registers fd with the poller. Idempotent per fd.
func (s *Scheduler) WatchIO(fd int) error {
	return s.poll.watch(fd)
}

// UnwatchIO deregisters fd and resumes every fiber waiting on it with EBADF.
func (s *Scheduler) UnwatchIO(fd int) error {
	var drained fiberList
	if err := s.poll.unwatch(fd, &drained); err != nil {
		return err
	}
	n := 0
	drained.forEach(func(f *Fiber) {
		s.timers.remove(&f.timerItem)
		f.status = -int32(unix.EBADF)
		f.fd = -1
		n++
	})
	s.readyFibers.spliceBack(&drained)
	if n > 0 {
		s.logger.Debug().
			Int("fd", fd).
			Int("cancelled", n).
			Log("fiber: unwatch cancelled waiters")
	}
	return nil
}

// IOIsWatched reports whether fd is registered with the poller.
func (s *Scheduler) IOIsWatched(fd int) bool {
	return s.poll.isWatched(fd)
}

// Run executes fibers until none remain, then returns nil. It returns
// ErrSchedulerRunning when the scheduler is already running, and otherwise a
// non-nil error only when the kernel poll fails irrecoverably.
//
// Each iteration dispatches every ready fiber (control returns here once the
// ready queue drains), destroys fibers whose bodies have returned, blocks in
// the poller until readiness or the next deadline, and finally wakes fibers
// whose deadlines have passed.
func (s *Scheduler) Run() error {
	if s.running {
		return ErrSchedulerRunning
	}
	s.running = true
	defer func() { s.running = false }()
	bindScheduler(s)
	defer unbindScheduler()
	if s.fiberCount == 0 {
		return nil
	}
	s.logger.Debug().Int("fibers", s.fiberCount).Log("fiber: scheduler running")
	for {
		if !s.readyFibers.empty() {
			s.dispatch(s.readyFibers.popFront())
			<-s.resume
		}

		if !s.deadFibers.empty() {
			for f := s.deadFibers.popFront(); f != nil; f = s.deadFibers.popFront() {
				s.destroyFiber(f)
				s.fiberCount--
			}
			if s.fiberCount == 0 {
				s.logger.Debug().Log("fiber: all fibers done")
				return nil
			}
		}

		var woken fiberList
		timeout := s.timers.nextTimeout()
		for {
			ok, err := s.poll.wait(timeout, &woken)
			if err != nil {
				err = fmt.Errorf("fiber: poll failed: %w", err)
				s.logger.Err().Err(err).Log("fiber: scheduler terminating")
				return err
			}
			if ok {
				break
			}
		}
		woken.forEach(func(f *Fiber) {
			s.timers.remove(&f.timerItem)
		})
		s.readyFibers.spliceBack(&woken)

		s.drainBuf = s.timers.drainDue(s.drainBuf)
		for _, it := range s.drainBuf {
			f := it.fiber
			if f.fd >= 0 {
				s.poll.removeAwaiter(f, f.fd)
				f.fd = -1
				f.status = -int32(unix.ETIMEDOUT)
			}
			s.readyFibers.pushBack(f)
		}
	}
}

// dispatch transfers control to f. The first dispatch of a fiber starts its
// goroutine; later dispatches hand it the resume token. The caller parks
// itself afterwards (fibers on their own resume channel, Run on s.resume).
func (s *Scheduler) dispatch(f *Fiber) {
	s.runningFiber = f
	if !f.started {
		f.started = true
		go f.trampoline(s)
		return
	}
	f.resume <- struct{}{}
}

// dispatchNext resumes the head of the ready queue, or hands control back to
// Run when no fiber is ready.
func (s *Scheduler) dispatchNext() {
	if s.readyFibers.empty() {
		s.execute()
		return
	}
	s.dispatch(s.readyFibers.popFront())
}

// execute returns control to the scheduler's Run loop.
func (s *Scheduler) execute() {
	s.runningFiber = nil
	s.resume <- struct{}{}
}

// destroyFiber releases a dead fiber's goroutine.
func (s *Scheduler) destroyFiber(f *Fiber) {
	f.destroyed = true
	f.resume <- struct{}{}
}

func (s *Scheduler) mustRunning() *Fiber {
	if s.runningFiber == nil {
		panic(ErrNotInFiber)
	}
	return s.runningFiber
}

// yieldCurrent reschedules the running fiber behind every fiber currently
// ready. A no-op when the ready queue is empty.
func (s *Scheduler) yieldCurrent() {
	f := s.mustRunning()
	if s.readyFibers.empty() {
		return
	}
	f.status = statusNormal
	s.readyFibers.pushBack(f)
	s.dispatch(s.readyFibers.popFront())
	f.park()
}

// sleepCurrent parks the running fiber until d elapses. A negative d parks
// the fiber indefinitely.
func (s *Scheduler) sleepCurrent(d time.Duration) {
	f := s.mustRunning()
	f.status = statusNormal
	s.timers.add(&f.timerItem, d)
	s.dispatchNext()
	f.park()
}

// exitCurrent terminates the running fiber cooperatively: the unwind
// sentinel propagates up the fiber's call stack, running deferred cleanup,
// and is recovered by the trampoline.
func (s *Scheduler) exitCurrent() {
	s.mustRunning()
	panic(unwindStack{})
}

// killCurrent marks the running fiber dead and transfers control onward.
// Called only by the fiber trampoline, which parks afterwards.
func (s *Scheduler) killCurrent() {
	f := s.mustRunning()
	f.status = 0
	f.coroutine = nil
	s.deadFibers.pushBack(f)
	s.dispatchNext()
}

// awaitIOEvent parks the running fiber until fd reports ev, the timeout
// expires (unix.ETIMEDOUT), or the fd is unwatched (unix.EBADF). A negative
// timeout disables the deadline.
func (s *Scheduler) awaitIOEvent(fd int, ev IOEvent, timeout time.Duration) error {
	f := s.mustRunning()
	if !s.poll.isWatched(fd) {
		return unix.EBADF
	}
	f.status = statusNormal
	f.fd = fd
	s.poll.addAwaiter(f, fd, ev)
	s.timers.add(&f.timerItem, timeout)
	s.dispatchNext()
	f.park()
	if st := f.status; st < 0 {
		return unix.Errno(-st)
	}
	return nil
}
