package fiber

import (
	"runtime"
	"sync"
	"time"
)

// schedulers maps goroutine ids to their bound scheduler: the Run goroutine
// and every fiber goroutine of a scheduler resolve to it. This is the
// process-wide equivalent of a thread-local scheduler pointer.
var schedulers sync.Map

func bindScheduler(s *Scheduler) {
	schedulers.Store(goroutineID(), s)
}

func unbindScheduler() {
	schedulers.Delete(goroutineID())
}

// Current returns the scheduler bound to the calling goroutine, or nil when
// there is none.
func Current() *Scheduler {
	if v, ok := schedulers.Load(goroutineID()); ok {
		return v.(*Scheduler)
	}
	return nil
}

// current resolves the calling goroutine's scheduler. A missing binding is a
// programmer error and fatal.
func current() *Scheduler {
	s := Current()
	if s == nil {
		panic(ErrNoScheduler)
	}
	return s
}

// goroutineID returns the current goroutine's ID.
func goroutineID() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	var id uint64
	for i := len("goroutine "); i < n; i++ {
		if buf[i] >= '0' && buf[i] <= '9' {
			id = id*10 + uint64(buf[i]-'0')
		} else {
			break
		}
	}
	return id
}

// Call spawns a new fiber executing fn on the calling goroutine's scheduler.
// The fiber is appended to the ready queue; Call never switches to it.
func Call(fn Coroutine) {
	current().Call(fn)
}

// Yield reschedules the calling fiber behind every currently ready fiber,
// guaranteeing each of them runs at least once before the caller resumes.
// A no-op when no other fiber is ready.
func Yield() {
	current().yieldCurrent()
}

// Sleep parks the calling fiber for at least d. A negative d parks the fiber
// indefinitely.
func Sleep(d time.Duration) {
	current().sleepCurrent(d)
}

// Exit terminates the calling fiber cooperatively, running deferred cleanup
// in its call stack before the fiber is reaped. It does not return.
func Exit() {
	current().exitCurrent()
}

// WatchIO registers fd with the calling goroutine's scheduler.
func WatchIO(fd int) error {
	return current().WatchIO(fd)
}

// UnwatchIO deregisters fd, resuming every fiber waiting on it with EBADF.
func UnwatchIO(fd int) error {
	return current().UnwatchIO(fd)
}

// IOIsWatched reports whether fd is registered with the calling goroutine's
// scheduler.
func IOIsWatched(fd int) bool {
	return current().IOIsWatched(fd)
}

// AwaitIOEvent parks the calling fiber until fd reports ev, the timeout
// expires (unix.ETIMEDOUT), or the fd is unwatched (unix.EBADF). A negative
// timeout disables the deadline.
func AwaitIOEvent(fd int, ev IOEvent, timeout time.Duration) error {
	return current().awaitIOEvent(fd, ev, timeout)
}
