// Package fiber implements a single-threaded cooperative concurrency runtime,
// multiplexing many lightweight fibers onto one scheduling goroutine, with
// synchronous-looking blocking I/O that is transparently resumed on readiness
// or timer expiry.
//
// # Architecture
//
// The runtime is built around a [Scheduler] that owns every fiber it creates.
// Fibers are spawned with [Scheduler.Call] (or [Call] from within a fiber),
// run strictly one at a time, and only lose the CPU at explicit suspension
// points: [Yield], [Sleep], [AwaitIOEvent], and [Exit]. A min-heap timer
// store associates waiting fibers with deadlines, and a platform poller
// (epoll on Linux, kqueue on macOS) maps file descriptors to the fibers
// awaiting readability or writability.
//
// Each scheduling iteration dispatches every ready fiber, reclaims fibers
// whose bodies have returned, blocks in the poller for at most the time until
// the next deadline, and finally wakes fibers whose deadlines have passed.
//
// # Execution Model
//
// Control is handed off directly between fibers: a yielding fiber resumes the
// next ready fiber without a round trip through the scheduler. Because at most
// one fiber (or the scheduler itself) is runnable at any instant, the core
// needs no locks. Fibers whose bodies return are parked and recycled by
// subsequent [Scheduler.Call] invocations, reusing the already-grown stack of
// the parked goroutine.
//
// # I/O
//
// File descriptors created through the runtime's wrappers ([Open], [Pipe2],
// [Socket], and on Linux EventFD) are switched to non-blocking mode and
// registered with the poller at creation, and must be closed through [Close]
// so registration and any waiters are cleaned up. [Read], [Write], and
// [Accept] retry on EINTR and suspend the calling fiber on EWOULDBLOCK,
// resuming it when the kernel reports readiness or the supplied timeout
// expires. [Connect] makes a single attempt and, while the connection is in
// progress, suspends the calling fiber until the socket is writable.
//
// Timeouts surface as [unix.ETIMEDOUT]; closing (or unwatching) a descriptor
// while fibers wait on it resumes each of them with [unix.EBADF].
//
// # Thread Safety
//
// A Scheduler and all of its fibers are confined to a single logical thread
// of control; none of the runtime's operations may be invoked from goroutines
// outside the scheduler's ownership. Multiple independent Schedulers may run
// concurrently on separate goroutines.
//
// # Usage
//
//	s, err := fiber.New()
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer s.Close()
//
//	s.Call(func() {
//		r, w, _ := fiber.Pipe2(0)
//		fiber.Call(func() {
//			fiber.Sleep(50 * time.Millisecond)
//			fiber.Write(w, []byte("hi"), -1)
//		})
//		buf := make([]byte, 16)
//		n, _ := fiber.Read(r, buf, time.Second)
//		fmt.Printf("%s\n", buf[:n])
//	})
//
//	if err := s.Run(); err != nil {
//		log.Fatal(err)
//	}
package fiber
