// Package scheduler coalesces filesystem change notifications into a
// debounced, deduplicated table of pending scans and hands each one to a
// Dispatcher once its deadline has passed.
//
// It implements three coalescing rules on top of a plain debounce: ancestor
// dominance (a pending scan for a directory absorbs events for anything
// under it), descendant collapse (a new event for a directory supersedes
// any pending scans already queued for its descendants), and capacity
// eviction (the oldest-deadline entry is dropped to make room). All rules
// operate on path components, never on byte prefixes — "/lib/Movies" and
// "/lib/Movies2" are unrelated regardless of their shared prefix.
package scheduler

import (
	"strings"
	"time"

	"mediascand/internal/logging"
	"mediascand/internal/metrics"
)

// Dispatcher is the narrow boundary to the external indexing client.
// Scan triggers a partial rescan of path within section and reports
// whether the request succeeded.
type Dispatcher interface {
	Scan(path string, sectionID int) bool
}

// pendingEntry is one coalesced scan request.
type pendingEntry struct {
	path           string
	sectionID      int
	firstEventTime time.Time
	scheduledTime  time.Time
	pending        bool
}

// Scheduler holds the pending-scan table. It is not safe for concurrent
// use; it is owned by the single control-loop goroutine.
type Scheduler struct {
	entries    map[string]*pendingEntry
	debounce   time.Duration
	maxEntries int
	dispatcher Dispatcher
	now        func() time.Time
}

// Option configures a Scheduler at construction time.
type Option func(*Scheduler)

// WithClock overrides the time source, for deterministic debounce tests.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

// WithMaxEntries caps the number of live pending entries. The default is 0
// (unbounded); pass a positive value to enable capacity eviction.
func WithMaxEntries(n int) Option {
	return func(s *Scheduler) { s.maxEntries = n }
}

// New returns a Scheduler that debounces for the given window and dispatches
// through d.
func New(d Dispatcher, debounce time.Duration, opts ...Option) *Scheduler {
	s := &Scheduler{
		entries:    make(map[string]*pendingEntry),
		debounce:   debounce,
		dispatcher: d,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Len returns the number of live pending entries.
func (s *Scheduler) Len() int {
	return len(s.entries)
}

// isProperAncestor reports whether ancestor is a component-wise proper
// ancestor of path — i.e. a path prefix that ends exactly on a path
// separator boundary, never a byte-prefix match like "/lib/Movies" vs
// "/lib/Movies2".
func isProperAncestor(ancestor, path string) bool {
	if len(ancestor) >= len(path) {
		return false
	}
	if !strings.HasPrefix(path, ancestor) {
		return false
	}
	return path[len(ancestor)] == '/'
}

// Enqueue records a scan request for path. Debounce coalescing, ancestor
// dominance, and descendant collapse are applied as described in the
// package doc.
func (s *Scheduler) Enqueue(path string, sectionID int) {
	now := s.now()
	deadline := now.Add(s.debounce)

	// Ancestor dominance: if some pending entry is a proper ancestor of
	// path, absorb this event into it.
	for _, e := range s.entries {
		if e.pending && isProperAncestor(e.path, path) {
			e.scheduledTime = deadline
			metrics.SchedulerEnqueueTotal.WithLabelValues("ancestor_absorbed").Inc()
			logging.Debug("scheduler: event for %s absorbed by ancestor scan of %s", path, e.path)
			return
		}
	}

	// Exact match: extend the existing entry's deadline.
	if e, ok := s.entries[path]; ok && e.pending {
		e.scheduledTime = deadline
		metrics.SchedulerEnqueueTotal.WithLabelValues("extended").Inc()
		logging.Debug("scheduler: rescheduled scan for %s to coalesce with new event", path)
		return
	}

	// Descendant collapse: remove any pending entries that are proper
	// descendants of path and replace them with a single new entry.
	collapsed := 0
	for key, e := range s.entries {
		if e.pending && isProperAncestor(path, e.path) {
			delete(s.entries, key)
			collapsed++
		}
	}
	if collapsed > 0 {
		logging.Debug("scheduler: path %s is parent of %d pending scans, consolidating", path, collapsed)
	}

	if s.maxEntries > 0 && len(s.entries) >= s.maxEntries {
		s.evictOldest()
	}

	s.entries[path] = &pendingEntry{
		path:           path,
		sectionID:      sectionID,
		firstEventTime: now,
		scheduledTime:  deadline,
		pending:        true,
	}

	if collapsed > 0 {
		metrics.SchedulerEnqueueTotal.WithLabelValues("descendant_collapsed").Inc()
	} else {
		metrics.SchedulerEnqueueTotal.WithLabelValues("new").Inc()
	}
	metrics.SchedulerPendingEntries.Set(float64(len(s.entries)))
}

// evictOldest removes the entry with the earliest scheduledTime to make
// room under table-capacity pressure.
func (s *Scheduler) evictOldest() {
	var oldestKey string
	var oldestTime time.Time
	first := true

	for key, e := range s.entries {
		if first || e.scheduledTime.Before(oldestTime) {
			oldestKey = key
			oldestTime = e.scheduledTime
			first = false
		}
	}
	if oldestKey != "" {
		logging.Warn("scheduler: pending table at capacity, evicting %s", oldestKey)
		delete(s.entries, oldestKey)
		metrics.SchedulerEvictionsTotal.Inc()
	}
}

// NextDeadline returns the earliest scheduledTime among live pending
// entries, and false if the table is empty.
func (s *Scheduler) NextDeadline() (time.Time, bool) {
	var next time.Time
	found := false

	for _, e := range s.entries {
		if !e.pending {
			continue
		}
		if !found || e.scheduledTime.Before(next) {
			next = e.scheduledTime
			found = true
		}
	}
	return next, found
}

// DrainDue dispatches every pending entry whose deadline has passed.
// Entries are marked not-pending before the table is compacted, so a
// dispatch that triggers re-entrant Enqueue calls never observes a
// half-compacted table.
func (s *Scheduler) DrainDue() {
	now := s.now()
	dispatchedAny := false

	for _, e := range s.entries {
		if !e.pending || e.scheduledTime.After(now) {
			continue
		}

		logging.Info("scheduler: dispatching scan for %s (delayed %v)", e.path, now.Sub(e.firstEventTime))
		ok := s.dispatcher.Scan(e.path, e.sectionID)
		metrics.SchedulerDispatchLatency.Observe(now.Sub(e.firstEventTime).Seconds())

		if ok {
			metrics.SchedulerDispatchTotal.WithLabelValues("success").Inc()
		} else {
			logging.Warn("scheduler: dispatch failed for %s, swallowing (next event will re-enqueue)", e.path)
			metrics.SchedulerDispatchTotal.WithLabelValues("error").Inc()
		}

		e.pending = false
		dispatchedAny = true
	}

	if dispatchedAny {
		s.compact()
	}
}

// compact removes every entry marked not-pending.
func (s *Scheduler) compact() {
	for key, e := range s.entries {
		if !e.pending {
			delete(s.entries, key)
		}
	}
	metrics.SchedulerPendingEntries.Set(float64(len(s.entries)))
}
