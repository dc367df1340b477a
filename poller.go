package fiber

// IOEvent selects which readiness condition a fiber awaits on a watched file
// descriptor.
type IOEvent uint8

const (
	// EventRead waits for the file descriptor to become readable.
	EventRead IOEvent = 1 << iota
	// EventWrite waits for the file descriptor to become writable.
	EventWrite
)

// String returns a human-readable representation of the event.
func (e IOEvent) String() string {
	switch e {
	case EventRead:
		return "read"
	case EventWrite:
		return "write"
	default:
		return "unknown"
	}
}

// maxFDLimit is the exclusive upper bound on fd values supported by the
// poller's dynamic fd-indexed table.
const maxFDLimit = 100000000

// defaultEventBuffer is the default size of the poller's readiness batch.
const defaultEventBuffer = 256

// fdWaiters is the per-fd wait record: the fibers awaiting readability and
// the fibers awaiting writability. A fiber appears in at most one such list
// across all fds, because a fiber runs to a single await point before
// suspending.
type fdWaiters struct {
	readers fiberList
	writers fiberList
}

// drain splices every waiting fiber, readers first, into out.
func (w *fdWaiters) drain(out *fiberList) {
	out.spliceBack(&w.readers)
	out.spliceBack(&w.writers)
}

// wakeAll splices every fiber of l into out, marking each as normally woken
// and no longer awaiting I/O.
func wakeAll(l, out *fiberList) bool {
	if l.empty() {
		return false
	}
	l.forEach(func(f *Fiber) {
		f.status = statusNormal
		f.fd = -1
	})
	out.spliceBack(l)
	return true
}

// growWaiters extends a fd-indexed table so that fd is addressable,
// doubling to amortize reallocation.
func growWaiters(fds []*fdWaiters, fd int) []*fdWaiters {
	if fd < len(fds) {
		return fds
	}
	n := fd*2 + 1
	if n > maxFDLimit {
		n = maxFDLimit + 1
	}
	grown := make([]*fdWaiters, n)
	copy(grown, fds)
	return grown
}
