//go:build linux

package fiber

import (
	"time"

	"golang.org/x/sys/unix"
)

// Pipe2 creates a non-blocking pipe with both ends registered with the
// calling goroutine's scheduler.
func Pipe2(flags int) (r, w int, err error) {
	s := current()
	var p [2]int
	if err := unix.Pipe2(p[:], flags|unix.O_NONBLOCK); err != nil {
		return 0, 0, err
	}
	if err := watchPair(s, p[0], p[1]); err != nil {
		return 0, 0, err
	}
	return p[0], p[1], nil
}

// Socket creates a non-blocking socket registered with the calling
// goroutine's scheduler.
func Socket(domain, typ, proto int) (int, error) {
	s := current()
	fd, err := unix.Socket(domain, typ|unix.SOCK_NONBLOCK, proto)
	if err != nil {
		return 0, err
	}
	if err := s.WatchIO(fd); err != nil {
		_ = unix.Close(fd)
		return 0, err
	}
	return fd, nil
}

// EventFD creates a non-blocking eventfd registered with the calling
// goroutine's scheduler.
func EventFD(initval uint, flags int) (int, error) {
	s := current()
	fd, err := unix.Eventfd(initval, flags|unix.EFD_NONBLOCK)
	if err != nil {
		return 0, err
	}
	if err := s.WatchIO(fd); err != nil {
		_ = unix.Close(fd)
		return 0, err
	}
	return fd, nil
}

// Accept accepts a connection on a watched listener, suspending the calling
// fiber until one arrives. The accepted descriptor is non-blocking and
// registered with the scheduler.
func Accept(fd int, timeout time.Duration) (int, unix.Sockaddr, error) {
	s := current()
	if !s.IOIsWatched(fd) {
		return 0, nil, unix.EBADF
	}
	for {
		nfd, sa, err := unix.Accept4(fd, unix.SOCK_NONBLOCK)
		if err == nil {
			if err := s.WatchIO(nfd); err != nil {
				_ = unix.Close(nfd)
				return 0, nil, err
			}
			return nfd, sa, nil
		}
		if err == unix.EAGAIN {
			if err := s.awaitIOEvent(fd, EventRead, timeout); err != nil {
				return 0, nil, err
			}
			continue
		}
		if err == unix.EINTR {
			continue
		}
		return 0, nil, err
	}
}

func watchPair(s *Scheduler, a, b int) error {
	if err := s.WatchIO(a); err != nil {
		_ = unix.Close(a)
		_ = unix.Close(b)
		return err
	}
	if err := s.WatchIO(b); err != nil {
		_ = s.UnwatchIO(a)
		_ = unix.Close(a)
		_ = unix.Close(b)
		return err
	}
	return nil
}
