package fiber

import (
	"time"

	"golang.org/x/sys/unix"
)

// Open opens path in non-blocking mode and registers the descriptor with the
// calling goroutine's scheduler.
func Open(path string, flags int, mode uint32) (int, error) {
	s := current()
	var fd int
	var err error
	for {
		fd, err = unix.Open(path, flags|unix.O_NONBLOCK, mode)
		if err != unix.EINTR {
			break
		}
	}
	if err != nil {
		return 0, err
	}
	if err := s.WatchIO(fd); err != nil {
		_ = unix.Close(fd)
		return 0, err
	}
	return fd, nil
}

// Close closes a descriptor created through the runtime, resuming every
// fiber waiting on it with EBADF. The fd must be watched.
func Close(fd int) error {
	s := current()
	if !s.IOIsWatched(fd) {
		return unix.EBADF
	}
	var err error
	for {
		err = unix.Close(fd)
		if err != unix.EINTR {
			break
		}
	}
	_ = s.UnwatchIO(fd)
	return err
}

// Read reads from fd into buf, suspending the calling fiber until the
// descriptor is readable. A negative timeout disables the deadline.
func Read(fd int, buf []byte, timeout time.Duration) (int, error) {
	s := current()
	if !s.IOIsWatched(fd) {
		return 0, unix.EBADF
	}
	for {
		n, err := unix.Read(fd, buf)
		if err == nil {
			return n, nil
		}
		if err == unix.EAGAIN {
			if err := s.awaitIOEvent(fd, EventRead, timeout); err != nil {
				return 0, err
			}
			continue
		}
		if err == unix.EINTR {
			continue
		}
		return 0, err
	}
}

// Write writes buf to fd, suspending the calling fiber until the descriptor
// is writable. A negative timeout disables the deadline.
func Write(fd int, buf []byte, timeout time.Duration) (int, error) {
	s := current()
	if !s.IOIsWatched(fd) {
		return 0, unix.EBADF
	}
	for {
		n, err := unix.Write(fd, buf)
		if err == nil {
			return n, nil
		}
		if err == unix.EAGAIN {
			if err := s.awaitIOEvent(fd, EventWrite, timeout); err != nil {
				return 0, err
			}
			continue
		}
		if err == unix.EINTR {
			continue
		}
		return 0, err
	}
}

// Connect initiates a connection on a watched socket, suspending the calling
// fiber while the connection is in progress. The connection result is read
// back via SO_ERROR, so asynchronous failures (for example ECONNREFUSED)
// surface as the returned error.
func Connect(fd int, sa unix.Sockaddr, timeout time.Duration) error {
	s := current()
	if !s.IOIsWatched(fd) {
		return unix.EBADF
	}
	err := unix.Connect(fd, sa)
	if err == nil {
		return nil
	}
	if err != unix.EINTR && err != unix.EINPROGRESS {
		return err
	}
	if err := s.awaitIOEvent(fd, EventWrite, timeout); err != nil {
		return err
	}
	v, err := unix.GetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_ERROR)
	if err != nil {
		return err
	}
	if v != 0 {
		return unix.Errno(v)
	}
	return nil
}
