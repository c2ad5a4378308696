package scheduler

import (
	"sync"
	"testing"
	"time"
)

// fakeClock lets tests advance time deterministically instead of sleeping.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Unix(0, 0)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type recordingDispatcher struct {
	mu    sync.Mutex
	calls []call
	ok    bool
}

type call struct {
	path      string
	sectionID int
}

func (r *recordingDispatcher) Scan(path string, sectionID int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, call{path, sectionID})
	return r.ok
}

func (r *recordingDispatcher) callCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

func newTestScheduler(d Dispatcher, clock *fakeClock, debounce time.Duration) *Scheduler {
	return New(d, debounce, WithClock(clock.Now))
}

// Scenario A: debounce coalescing. Five events within the debounce window
// produce exactly one dispatch, scheduled from the last event.
func TestDebounceCoalescing(t *testing.T) {
	clock := newFakeClock()
	disp := &recordingDispatcher{ok: true}
	s := newTestScheduler(disp, clock, 2*time.Second)

	for i := 0; i < 5; i++ {
		s.Enqueue("/m/Movies", 1)
		clock.Advance(200 * time.Millisecond)
	}

	if s.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", s.Len())
	}

	// Not yet due: only 200ms elapsed since the last enqueue (at 800ms), debounce is 2s.
	s.DrainDue()
	if disp.callCount() != 0 {
		t.Fatalf("dispatched before deadline, calls=%d", disp.callCount())
	}

	clock.Advance(2 * time.Second)
	s.DrainDue()

	if disp.callCount() != 1 {
		t.Fatalf("callCount = %d, want 1", disp.callCount())
	}
	if disp.calls[0].path != "/m/Movies" || disp.calls[0].sectionID != 1 {
		t.Fatalf("dispatched call = %+v, want path=/m/Movies section=1", disp.calls[0])
	}
}

// Scenario B: at t=0 enqueue a deep child, at t=0.5 enqueue its ancestor.
// The child entry is collapsed into a single new entry for the ancestor.
func TestAncestorDominance(t *testing.T) {
	clock := newFakeClock()
	disp := &recordingDispatcher{ok: true}
	s := newTestScheduler(disp, clock, 1*time.Second)

	s.Enqueue("/m/Movies/A/S1", 1)
	clock.Advance(500 * time.Millisecond)
	s.Enqueue("/m/Movies", 1)

	if s.Len() != 1 {
		t.Fatalf("Len() = %d, want 1 (child entry collapsed into the new ancestor entry)", s.Len())
	}

	clock.Advance(1 * time.Second)
	s.DrainDue()

	if disp.callCount() != 1 {
		t.Fatalf("callCount = %d, want 1", disp.callCount())
	}
	if disp.calls[0].path != "/m/Movies" {
		t.Fatalf("dispatched path = %s, want /m/Movies", disp.calls[0].path)
	}
}

// Scenario C: at t=0 enqueue a directory, at t=0.5 enqueue one of its
// children. The child event is absorbed into the existing pending ancestor
// scan rather than creating a new entry.
func TestDescendantCollapseOrdering(t *testing.T) {
	clock := newFakeClock()
	disp := &recordingDispatcher{ok: true}
	s := newTestScheduler(disp, clock, 1*time.Second)

	s.Enqueue("/m/Movies", 2)
	clock.Advance(500 * time.Millisecond)
	s.Enqueue("/m/Movies/A", 1)

	if s.Len() != 1 {
		t.Fatalf("Len() = %d, want 1 (child event absorbed by existing ancestor scan)", s.Len())
	}

	clock.Advance(1 * time.Second)
	s.DrainDue()

	if disp.callCount() != 1 {
		t.Fatalf("callCount = %d, want 1", disp.callCount())
	}
	got := disp.calls[0]
	if got.path != "/m/Movies" || got.sectionID != 2 {
		t.Fatalf("dispatched call = %+v, want path=/m/Movies section=2 (section_id of the absorbing entry is unchanged)", got)
	}
}

// Scenario G: path-prefix safety. Sibling directories whose names share a
// byte prefix must never be treated as ancestor/descendant.
func TestPathPrefixSafety(t *testing.T) {
	clock := newFakeClock()
	disp := &recordingDispatcher{ok: true}
	s := newTestScheduler(disp, clock, 1*time.Second)

	s.Enqueue("/lib/Movies", 1)
	s.Enqueue("/lib/Movies2/x", 2)

	if s.Len() != 2 {
		t.Fatalf("Len() = %d, want 2 (Movies and Movies2 must be independent)", s.Len())
	}

	clock.Advance(1 * time.Second)
	s.DrainDue()

	if disp.callCount() != 2 {
		t.Fatalf("callCount = %d, want 2", disp.callCount())
	}
}

func TestEvictionUnderCapacity(t *testing.T) {
	clock := newFakeClock()
	disp := &recordingDispatcher{ok: true}
	s := New(disp, time.Second, WithClock(clock.Now), WithMaxEntries(2))

	s.Enqueue("/a", 1)
	clock.Advance(time.Millisecond)
	s.Enqueue("/b", 1)
	clock.Advance(time.Millisecond)
	s.Enqueue("/c", 1) // should evict /a, the oldest deadline

	if s.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", s.Len())
	}

	clock.Advance(2 * time.Second)
	s.DrainDue()

	for _, c := range disp.calls {
		if c.path == "/a" {
			t.Fatal("/a should have been evicted, not dispatched")
		}
	}
}

func TestDispatchFailureIsSwallowed(t *testing.T) {
	clock := newFakeClock()
	disp := &recordingDispatcher{ok: false}
	s := newTestScheduler(disp, clock, time.Second)

	s.Enqueue("/lib", 1)
	clock.Advance(2 * time.Second)
	s.DrainDue()

	if disp.callCount() != 1 {
		t.Fatalf("callCount = %d, want 1", disp.callCount())
	}
	if s.Len() != 0 {
		t.Fatalf("Len() = %d, want 0 (failed dispatch still compacts)", s.Len())
	}

	// A later event on the same path re-enqueues independently of the
	// earlier failure.
	s.Enqueue("/lib", 1)
	if s.Len() != 1 {
		t.Fatalf("Len() = %d, want 1 after re-enqueue", s.Len())
	}
}

func TestNextDeadline(t *testing.T) {
	clock := newFakeClock()
	disp := &recordingDispatcher{ok: true}
	s := newTestScheduler(disp, clock, time.Second)

	if _, ok := s.NextDeadline(); ok {
		t.Fatal("NextDeadline should report ok=false on an empty table")
	}

	s.Enqueue("/a", 1)
	clock.Advance(100 * time.Millisecond)
	s.Enqueue("/b", 1)

	deadline, ok := s.NextDeadline()
	if !ok {
		t.Fatal("NextDeadline should report ok=true with pending entries")
	}
	want := clock.Now().Add(-100 * time.Millisecond).Add(time.Second)
	if !deadline.Equal(want) {
		t.Fatalf("NextDeadline = %v, want %v (earliest of the two deadlines)", deadline, want)
	}
}

func TestAncestorDominanceAtExactDepthOne(t *testing.T) {
	// A single path-component difference must still qualify as ancestor.
	clock := newFakeClock()
	disp := &recordingDispatcher{ok: true}
	s := newTestScheduler(disp, clock, time.Second)

	s.Enqueue("/lib", 1)
	clock.Advance(100 * time.Millisecond)
	s.Enqueue("/lib/Movies", 1)

	if s.Len() != 1 {
		t.Fatalf("Len() = %d, want 1 (direct child absorbed by parent)", s.Len())
	}
}
