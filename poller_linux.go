//go:build linux

package fiber

import (
	"golang.org/x/sys/unix"
)

// ioPoll multiplexes fd readiness via epoll. Every watched fd is registered
// once, edge-triggered, for both readability and writability; waiters are
// routed by the per-fd wait record rather than by re-arming the kernel
// registration per await.
type ioPoll struct {
	epfd     int
	eventBuf []unix.EpollEvent
	fds      []*fdWaiters
	watched  int
	closed   bool
}

func (p *ioPoll) init(eventBuffer int) error {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return err
	}
	p.epfd = epfd
	p.eventBuf = make([]unix.EpollEvent, eventBuffer)
	return nil
}

func (p *ioPoll) close() error {
	if p.closed {
		return ErrPollerClosed
	}
	p.closed = true
	return unix.Close(p.epfd)
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
	ev := unix.EpollEvent{
		Events: unix.EPOLLIN | unix.EPOLLOUT | unix.EPOLLRDHUP | unix.EPOLLET,
		Fd:     int32(fd),
	}
	if err := unix.EpollCtl(p.epfd, unix.EPOLL_CTL_ADD, fd, &ev); err != nil {
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
	// The kernel drops the registration automatically on the last close of
	// the descriptor; an explicit DEL failing (already-closed fd) is fine.
	_ = unix.EpollCtl(p.epfd, unix.EPOLL_CTL_DEL, fd, nil)
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
	n, err := unix.EpollWait(p.epfd, p.eventBuf, timeoutMs)
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
		fd := int(p.eventBuf[i].Fd)
		if !p.isWatched(fd) {
			continue
		}
		w := p.fds[fd]
		events := p.eventBuf[i].Events
		if events&(unix.EPOLLIN|unix.EPOLLRDHUP|unix.EPOLLERR|unix.EPOLLHUP) != 0 {
			woke = wakeAll(&w.readers, out) || woke
		}
		if events&(unix.EPOLLOUT|unix.EPOLLERR|unix.EPOLLHUP) != 0 {
			woke = wakeAll(&w.writers, out) || woke
		}
	}
	return woke, nil
}
