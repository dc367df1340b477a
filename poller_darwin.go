//go:build darwin

package fiber

import (
	"golang.org/x/sys/unix"
)

// ioPoll multiplexes fd readiness via kqueue. Every watched fd installs a
// read filter and a write filter with EV_CLEAR, giving edge-triggered
// semantics equivalent to the Linux poller.
type ioPoll struct {
	kq       int
	eventBuf []unix.Kevent_t
	fds      []*fdWaiters
	watched  int
	closed   bool
}

func (p *ioPoll) init(eventBuffer int) error {
	kq, err := unix.Kqueue()
	if err != nil {
		return err
	}
	unix.CloseOnExec(kq)
	p.kq = kq
	p.eventBuf = make([]unix.Kevent_t, eventBuffer)
	return nil
}

func (p *ioPoll) close() error {
	if p.closed {
		return ErrPollerClosed
	}
	p.closed = true
	return unix.Close(p.kq)
}

// watch registers fd for edge-triggered monitoring. Idempotent per fd.
func (p *ioPoll) watch(fd int) error {
	if p.closed {
		return ErrPollerClosed
	}
	if fd < 0 || fd >= maxFDLimit {
		return ErrFDOutOfRange
	}
	p.fds = growWaiters(p.fds, fd)
	if p.fds[fd] != nil {
		return nil
	}
	changes := make([]unix.Kevent_t, 2)
	unix.SetKevent(&changes[0], fd, unix.EVFILT_READ, unix.EV_ADD|unix.EV_CLEAR)
	unix.SetKevent(&changes[1], fd, unix.EVFILT_WRITE, unix.EV_ADD|unix.EV_CLEAR)
	if _, err := unix.Kevent(p.kq, changes, nil, nil); err != nil {
		return err
	}
	p.fds[fd] = &fdWaiters{}
	p.watched++
	return nil
}

// unwatch deregisters fd and drains every fiber waiting on it into out.
func (p *ioPoll) unwatch(fd int, out *fiberList) error {
	if !p.isWatched(fd) {
		return ErrNotWatched
	}
	w := p.fds[fd]
	p.fds[fd] = nil
	p.watched--
	w.drain(out)
	changes := make([]unix.Kevent_t, 2)
	unix.SetKevent(&changes[0], fd, unix.EVFILT_READ, unix.EV_DELETE)
	unix.SetKevent(&changes[1], fd, unix.EVFILT_WRITE, unix.EV_DELETE)
	// Filters vanish with the last close of the descriptor; a failed DELETE
	// on an already-closed fd is fine.
	_, _ = unix.Kevent(p.kq, changes, nil, nil)
	return nil
}

func (p *ioPoll) isWatched(fd int) bool {
	return fd >= 0 && fd < len(p.fds) && p.fds[fd] != nil
}

// addAwaiter links the fiber into fd's readability or writability wait set.
// The fd must be watched.
func (p *ioPoll) addAwaiter(f *Fiber, fd int, ev IOEvent) {
	w := p.fds[fd]
	if ev == EventWrite {
		w.writers.pushBack(f)
	} else {
		w.readers.pushBack(f)
	}
}

// removeAwaiter unlinks the fiber from whichever wait set of fd it is in.
func (p *ioPoll) removeAwaiter(f *Fiber, fd int) {
	f.queueItem.unlink()
}

// wait blocks for up to timeoutMs (indefinitely when negative) and splices
// every fiber whose awaited event is ready into out, marking each woken.
// Returns true when at least one fiber was produced or the timeout elapsed;
// false when the call was interrupted, or reported only events nobody awaits,
// and should be retried.
func (p *ioPoll) wait(timeoutMs int, out *fiberList) (bool, error) {
	var ts *unix.Timespec
	if timeoutMs >= 0 {
		t := unix.NsecToTimespec(int64(timeoutMs) * 1e6)
		ts = &t
	}
	n, err := unix.Kevent(p.kq, nil, p.eventBuf, ts)
	if err != nil {
		if err == unix.EINTR {
			return false, nil
		}
		return false, err
	}
	if n == 0 {
		return true, nil
	}
	var woke bool
	for i := 0; i < n; i++ {
		fd := int(p.eventBuf[i].Ident)
		if !p.isWatched(fd) {
			continue
		}
		w := p.fds[fd]
		switch p.eventBuf[i].Filter {
		case unix.EVFILT_READ:
			woke = wakeAll(&w.readers, out) || woke
		case unix.EVFILT_WRITE:
			woke = wakeAll(&w.writers, out) || woke
		}
	}
	return woke, nil
}
