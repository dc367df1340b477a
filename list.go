package fiber

// fiberNode is an intrusive doubly-linked list node embedded in a Fiber.
// Embedding the node keeps queue moves O(1) with zero allocation on the
// scheduling hot path.
type fiberNode struct {
	prev, next *fiberNode
	fiber      *Fiber
}

// linked reports whether the node is currently a member of a list.
func (n *fiberNode) linked() bool {
	return n.prev != nil
}

// unlink removes the node from whichever list it is in. Idempotent.
func (n *fiberNode) unlink() {
	if n.prev == nil {
		return
	}
	n.prev.next = n.next
	n.next.prev = n.prev
	n.prev = nil
	n.next = nil
}

// fiberList is a circular intrusive list of fibers with a sentinel root.
// The zero value is ready to use. A fiberList must not be copied or moved
// while non-empty: member nodes hold pointers into the root.
type fiberList struct {
	root fiberNode
}

func (l *fiberList) lazyInit() {
	if l.root.next == nil {
		l.root.prev = &l.root
		l.root.next = &l.root
	}
}

func (l *fiberList) empty() bool {
	return l.root.next == nil || l.root.next == &l.root
}

// pushBack appends f to the tail of the list. f must not be in any list.
func (l *fiberList) pushBack(f *Fiber) {
	l.lazyInit()
	n := &f.queueItem
	n.prev = l.root.prev
	n.next = &l.root
	l.root.prev.next = n
	l.root.prev = n
}

// popFront removes and returns the head of the list, or nil if empty.
func (l *fiberList) popFront() *Fiber {
	if l.empty() {
		return nil
	}
	n := l.root.next
	n.unlink()
	return n.fiber
}

// spliceBack moves every node of other to the tail of l, leaving other empty.
func (l *fiberList) spliceBack(other *fiberList) {
	if other.empty() {
		return
	}
	l.lazyInit()
	first := other.root.next
	last := other.root.prev
	first.prev = l.root.prev
	last.next = &l.root
	l.root.prev.next = first
	l.root.prev = last
	other.root.next = &other.root
	other.root.prev = &other.root
}

// forEach invokes fn for every fiber in the list, head to tail. fn must not
// unlink the fiber it is passed.
func (l *fiberList) forEach(fn func(*Fiber)) {
	if l.empty() {
		return
	}
	for n := l.root.next; n != &l.root; n = n.next {
		fn(n.fiber)
	}
}

// length counts the members of the list. O(n); used by invariant checks and
// tests, not by the scheduling hot path.
func (l *fiberList) length() int {
	var n int
	l.forEach(func(*Fiber) { n++ })
	return n
}
