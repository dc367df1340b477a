package fiber

import (
	"runtime/debug"
)

// Coroutine is the callable body a fiber executes.
type Coroutine func()

// Fiber status codes. Zero means no saved resume point (fresh or dead);
// positive means resume normally; negative means resume with the errno
// -status reported to the caller of the suspending operation.
const statusNormal int32 = 1

// unwindStack is the sentinel panic value used by Exit to terminate a fiber
// cooperatively. It propagates through the fiber's call stack, running every
// deferred cleanup, and is recovered silently by the trampoline.
type unwindStack struct{}

// Fiber is the unit of scheduling: a coroutine body bound to a dedicated
// goroutine, resumed by token handoff. At most one fiber of a scheduler is
// runnable at any instant.
type Fiber struct {
	coroutine Coroutine
	// resume carries the handoff token. Buffered so a waker never blocks on a
	// fiber that has not finished parking yet.
	resume    chan struct{}
	queueItem fiberNode
	timerItem timerItem
	status    int32
	fd        int
	started   bool // trampoline goroutine exists
	destroyed bool // set before the final resume token; trampoline exits
}

func newFiber(fn Coroutine) *Fiber {
	f := &Fiber{
		coroutine: fn,
		resume:    make(chan struct{}, 1),
		fd:        -1,
	}
	f.queueItem.fiber = f
	f.timerItem.fiber = f
	f.timerItem.index = -1
	return f
}

// park blocks until the fiber is handed the resume token.
func (f *Fiber) park() {
	<-f.resume
}

// trampoline is the entry point of the fiber's goroutine. It runs coroutine
// bodies in a loop: each completed (or exited) body parks the fiber in the
// dead queue, and a subsequent Call may hand it a new body, reusing the
// goroutine and its already-grown stack in place of a fresh allocation.
func (f *Fiber) trampoline(s *Scheduler) {
	bindScheduler(s)
	defer unbindScheduler()
	for {
		f.runCoroutine(s)
		s.killCurrent()
		f.park()
		if f.destroyed {
			return
		}
	}
}

// runCoroutine executes the fiber body, catching the cooperative-exit
// sentinel silently. Any other panic is terminal for the fiber only: it is
// logged and the fiber reaped, leaving siblings unaffected.
func (f *Fiber) runCoroutine(s *Scheduler) {
	defer func() {
		if r := recover(); r != nil {
			if _, ok := r.(unwindStack); ok {
				return
			}
			s.logger.Err().
				Any("panic", r).
				Str("stack", string(debug.Stack())).
				Log("fiber: coroutine panicked")
		}
	}()
	f.coroutine()
}
