package fiber

import (
	"testing"
)

func TestFiberListPushPop(t *testing.T) {
	var l fiberList
	if !l.empty() {
		t.Fatal("zero value list should be empty")
	}
	if f := l.popFront(); f != nil {
		t.Fatalf("popFront on empty list = %v, want nil", f)
	}

	a, b, c := newFiber(nil), newFiber(nil), newFiber(nil)
	l.pushBack(a)
	l.pushBack(b)
	l.pushBack(c)

	if l.length() != 3 {
		t.Fatalf("length = %d, want 3", l.length())
	}
	for i, want := range []*Fiber{a, b, c} {
		got := l.popFront()
		if got != want {
			t.Fatalf("popFront #%d = %p, want %p", i, got, want)
		}
	}
	if !l.empty() {
		t.Fatal("list should be empty after draining")
	}
}

func TestFiberListUnlink(t *testing.T) {
	var l fiberList
	a, b, c := newFiber(nil), newFiber(nil), newFiber(nil)
	l.pushBack(a)
	l.pushBack(b)
	l.pushBack(c)

	b.queueItem.unlink()
	if b.queueItem.linked() {
		t.Fatal("unlinked node still reports linked")
	}
	// Idempotent.
	b.queueItem.unlink()

	if got := l.popFront(); got != a {
		t.Fatalf("popFront = %p, want a", got)
	}
	if got := l.popFront(); got != c {
		t.Fatalf("popFront = %p, want c", got)
	}
	if !l.empty() {
		t.Fatal("list should be empty")
	}
}

func TestFiberListSpliceBack(t *testing.T) {
	var l, m fiberList
	a, b := newFiber(nil), newFiber(nil)
	c, d := newFiber(nil), newFiber(nil)
	l.pushBack(a)
	l.pushBack(b)
	m.pushBack(c)
	m.pushBack(d)

	l.spliceBack(&m)
	if !m.empty() {
		t.Fatal("source list should be empty after splice")
	}
	var got []*Fiber
	l.forEach(func(f *Fiber) { got = append(got, f) })
	want := []*Fiber{a, b, c, d}
	if len(got) != len(want) {
		t.Fatalf("length = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order mismatch at %d", i)
		}
	}

	// Splicing an empty list is a no-op.
	var empty fiberList
	l.spliceBack(&empty)
	if l.length() != 4 {
		t.Fatalf("length = %d, want 4", l.length())
	}
}
