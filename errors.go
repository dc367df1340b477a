package fiber

import (
	"errors"
)

// Standard errors.
var (
	// ErrNoScheduler is returned (via panic) when a runtime operation is
	// invoked on a goroutine with no bound scheduler.
	ErrNoScheduler = errors.New("fiber: no scheduler bound to this goroutine")

	// ErrNotInFiber is returned (via panic) when an operation that requires a
	// running fiber is invoked from outside one.
	ErrNotInFiber = errors.New("fiber: no running fiber")

	// ErrSchedulerRunning is returned when Run is called on a scheduler that
	// is already running.
	ErrSchedulerRunning = errors.New("fiber: scheduler is already running")

	// ErrFDOutOfRange is returned when a file descriptor is negative or
	// exceeds the supported limit.
	ErrFDOutOfRange = errors.New("fiber: fd out of range")

	// ErrNotWatched is returned when an operation requires a watched file
	// descriptor but the fd is not registered with the poller.
	ErrNotWatched = errors.New("fiber: fd not watched")

	// ErrPollerClosed is returned when operations are attempted on a closed
	// poller.
	ErrPollerClosed = errors.New("fiber: poller closed")
)
