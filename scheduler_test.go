package fiber

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestScheduler(t *testing.T, opts ...SchedulerOption) *Scheduler {
	t.Helper()
	s, err := New(opts...)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestRunNoFibers(t *testing.T) {
	s := newTestScheduler(t)
	if err := s.Run(); err != nil {
		t.Fatal(err)
	}
}

func TestPingPong(t *testing.T) {
	s := newTestScheduler(t)
	var out strings.Builder

	s.Call(func() {
		for i := 0; i < 4; i++ {
			out.WriteString("A")
			Yield()
		}
	})
	s.Call(func() {
		for i := 0; i < 4; i++ {
			out.WriteString("B")
			Yield()
		}
	})

	if err := s.Run(); err != nil {
		t.Fatal(err)
	}
	if got := out.String(); got != "ABABABAB" {
		t.Fatalf("output = %q, want %q", got, "ABABABAB")
	}
}

func TestYieldAloneIsNoop(t *testing.T) {
	s := newTestScheduler(t)
	ran := false
	s.Call(func() {
		Yield()
		Yield()
		ran = true
	})
	if err := s.Run(); err != nil {
		t.Fatal(err)
	}
	if !ran {
		t.Fatal("fiber did not complete")
	}
}

func TestYieldFairness(t *testing.T) {
	s := newTestScheduler(t)
	const others = 5
	var order []string

	s.Call(func() {
		order = append(order, "yielder")
		Yield()
		order = append(order, "yielder-resumed")
	})
	for i := 0; i < others; i++ {
		s.Call(func() {
			order = append(order, "other")
		})
	}

	if err := s.Run(); err != nil {
		t.Fatal(err)
	}
	// Every fiber ready at the moment of the yield runs before the yielder
	// resumes.
	if len(order) != others+2 {
		t.Fatalf("order length = %d, want %d", len(order), others+2)
	}
	if order[len(order)-1] != "yielder-resumed" {
		t.Fatalf("yielder resumed early: %v", order)
	}
}

func TestSleepOrdering(t *testing.T) {
	s := newTestScheduler(t)
	var out []string
	start := time.Now()

	s.Call(func() {
		Sleep(30 * time.Millisecond)
		out = append(out, "S1")
	})
	s.Call(func() {
		Sleep(10 * time.Millisecond)
		out = append(out, "S2")
	})
	s.Call(func() {
		Sleep(20 * time.Millisecond)
		out = append(out, "S3")
	})

	if err := s.Run(); err != nil {
		t.Fatal(err)
	}
	elapsed := time.Since(start)
	if got, want := strings.Join(out, " "), "S2 S3 S1"; got != want {
		t.Fatalf("wake order = %q, want %q", got, want)
	}
	if elapsed < 30*time.Millisecond {
		t.Fatalf("woke early: elapsed %v < 30ms", elapsed)
	}
	if elapsed > 500*time.Millisecond {
		t.Fatalf("sleeps did not overlap: elapsed %v", elapsed)
	}
}

func TestSleepNeverWakesEarly(t *testing.T) {
	s := newTestScheduler(t)
	const d = 25 * time.Millisecond
	var elapsed time.Duration

	start := time.Now()
	s.Call(func() {
		Sleep(d)
		elapsed = time.Since(start)
	})
	if err := s.Run(); err != nil {
		t.Fatal(err)
	}
	if elapsed < d {
		t.Fatalf("early wake: slept %v, want >= %v", elapsed, d)
	}
}

func TestExitRunsDeferredCleanup(t *testing.T) {
	s := newTestScheduler(t)
	var cleaned, after, sibling bool

	s.Call(func() {
		defer func() { cleaned = true }()
		Exit()
		after = true // unreachable
	})
	s.Call(func() {
		sibling = true
	})

	if err := s.Run(); err != nil {
		t.Fatal(err)
	}
	if !cleaned {
		t.Fatal("deferred cleanup did not run on Exit")
	}
	if after {
		t.Fatal("code after Exit ran")
	}
	if !sibling {
		t.Fatal("sibling fiber did not run")
	}
}

func TestPanicReapsFiberOnly(t *testing.T) {
	s := newTestScheduler(t)
	var sibling bool

	s.Call(func() {
		panic("boom")
	})
	s.Call(func() {
		sibling = true
	})

	if err := s.Run(); err != nil {
		t.Fatal(err)
	}
	if !sibling {
		t.Fatal("sibling fiber did not survive a peer's panic")
	}
}

func TestCallFromFiber(t *testing.T) {
	s := newTestScheduler(t)
	var order []int

	s.Call(func() {
		order = append(order, 1)
		Call(func() {
			order = append(order, 2)
			Call(func() {
				order = append(order, 3)
			})
		})
	})

	if err := s.Run(); err != nil {
		t.Fatal(err)
	}
	for i, v := range order {
		if v != i+1 {
			t.Fatalf("order = %v", order)
		}
	}
	if len(order) != 3 {
		t.Fatalf("ran %d fibers, want 3", len(order))
	}
}

func TestDeadFiberRecycled(t *testing.T) {
	s := newTestScheduler(t)
	var first, second *Fiber

	s.Call(func() {
		first = s.runningFiber
	})
	s.Call(func() {
		// The previous fiber is dead-queued by now and must be reused.
		Call(func() {
			second = s.runningFiber
		})
	})

	if err := s.Run(); err != nil {
		t.Fatal(err)
	}
	if first == nil || second == nil {
		t.Fatal("fibers did not record themselves")
	}
	if first != second {
		t.Fatal("dead fiber was not recycled")
	}
	if s.fiberCount != 0 {
		t.Fatalf("fiberCount = %d, want 0 after Run", s.fiberCount)
	}
}

func TestFiberAccounting(t *testing.T) {
	s := newTestScheduler(t)
	var observed []int

	snapshot := func() int {
		n := s.readyFibers.length() + s.deadFibers.length()
		if s.runningFiber != nil {
			n++
		}
		return n
	}

	for i := 0; i < 3; i++ {
		s.Call(func() {
			observed = append(observed, snapshot())
			Yield()
			observed = append(observed, snapshot())
		})
	}

	if err := s.Run(); err != nil {
		t.Fatal(err)
	}
	for _, n := range observed {
		if n != 3 {
			t.Fatalf("accounting snapshot = %v, want all 3", observed)
		}
	}
	if s.fiberCount != 0 {
		t.Fatalf("fiberCount = %d, want 0", s.fiberCount)
	}
}

func TestSchedulerReuseAcrossRuns(t *testing.T) {
	s := newTestScheduler(t)
	var a, b bool

	s.Call(func() { a = true })
	require.NoError(t, s.Run())
	require.True(t, a)

	s.Call(func() { b = true })
	require.NoError(t, s.Run())
	require.True(t, b)
}

func TestNoSchedulerPanics(t *testing.T) {
	require.PanicsWithValue(t, ErrNoScheduler, func() { Yield() })
	require.PanicsWithValue(t, ErrNoScheduler, func() { Sleep(time.Millisecond) })
	require.PanicsWithValue(t, ErrNoScheduler, func() { Call(func() {}) })
}

func TestCurrentInsideFiber(t *testing.T) {
	s := newTestScheduler(t)
	var got *Scheduler
	s.Call(func() {
		got = Current()
	})
	require.NoError(t, s.Run())
	require.Same(t, s, got)
}

func TestNilCoroutineIgnored(t *testing.T) {
	s := newTestScheduler(t)
	s.Call(nil)
	if s.fiberCount != 0 {
		t.Fatalf("fiberCount = %d, want 0", s.fiberCount)
	}
	if err := s.Run(); err != nil {
		t.Fatal(err)
	}
}

func TestSleepZeroDuration(t *testing.T) {
	s := newTestScheduler(t)
	done := false
	s.Call(func() {
		Sleep(0)
		done = true
	})
	if err := s.Run(); err != nil {
		t.Fatal(err)
	}
	if !done {
		t.Fatal("fiber did not resume from zero-duration sleep")
	}
}
