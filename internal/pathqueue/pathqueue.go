// Package pathqueue implements a single-threaded FIFO of path strings used
// for breadth-first traversal over directory trees.
//
// It exists for exactly one caller shape: a targeted rescan that walks a
// subtree without recursion, so deep library trees don't grow the Go stack
// and an early abort just means draining what's left. There is no
// thread-safety here; callers that need concurrent access must add their
// own locking.
package pathqueue

// Queue is a FIFO of path strings. The zero value is ready to use.
type Queue struct {
	items []string
}

// New returns an empty Queue.
func New() *Queue {
	return &Queue{}
}

// Enqueue appends path to the back of the queue.
func (q *Queue) Enqueue(path string) {
	q.items = append(q.items, path)
}

// Dequeue removes and returns the path at the front of the queue.
// The second return value is false if the queue was empty.
func (q *Queue) Dequeue() (string, bool) {
	if len(q.items) == 0 {
		return "", false
	}
	path := q.items[0]
	q.items[0] = ""
	q.items = q.items[1:]
	return path, true
}

// Empty reports whether the queue holds no items.
func (q *Queue) Empty() bool {
	return len(q.items) == 0
}

// Len returns the number of items currently queued.
func (q *Queue) Len() int {
	return len(q.items)
}

// Drain discards all queued items, e.g. after aborting a BFS partway through.
func (q *Queue) Drain() {
	q.items = nil
}
