// Package watcher maintains the set of directories subscribed to
// filesystem change notifications and translates incoming events into the
// (index, generation, kind) tuples the control loop dispatches on.
//
// Watched directories live in a slab addressed by a stable integer index.
// A removed slot is pushed onto a free-list and reused by the next Add, so
// indices stay dense without ever being reassigned while still live. Each
// slot also carries a generation counter: removal bumps it, so a caller
// holding a stale (index, generation) pair from before a slot was reused
// can detect the mismatch instead of silently acting on the wrong
// directory. This mirrors the source daemon's use of a slab index inside
// the kernel event's opaque data pointer, ported to a language where the
// kernel doesn't hand us a raw pointer to begin with.
package watcher

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"mediascand/internal/filesystem"
	"mediascand/internal/logging"
	"mediascand/internal/metrics"
)

// EventKind classifies a translated filesystem event. The source daemon's
// kqueue backend recognizes write, rename, delete, and extend; inotify (via
// fsnotify) folds extend into write, since IN_MODIFY covers both a content
// write and a truncate/grow.
type EventKind int

const (
	EventWrite EventKind = iota
	EventRename
	EventDelete
)

func (k EventKind) String() string {
	switch k {
	case EventWrite:
		return "write"
	case EventRename:
		return "rename"
	case EventDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// DirEvent is a classified change against one watched directory. IsSelf
// distinguishes an event on the watched directory's own path (it was
// itself renamed or removed) from an event on a child beneath it (its
// contents changed).
type DirEvent struct {
	Index      int
	Generation uint64
	Path       string
	SectionID  int
	Kind       EventKind
	IsSelf     bool
}

// slot is one entry in the watch slab.
type slot struct {
	active     bool
	generation uint64
	path       string
	sectionID  int
	info       os.FileInfo // identity captured at registration, for stale-recreate detection
}

// Watcher owns the underlying fsnotify watcher plus the stable-indexed
// slab of watched directories. It is not safe for concurrent use; it is
// owned by the single control-loop goroutine.
type Watcher struct {
	fs         *fsnotify.Watcher
	slab       []slot
	freeList   []int
	byPath     map[string]int
	retry      filesystem.RetryConfig
	maxWatches int // soft ceiling on len(byPath); 0 = unlimited
}

// BatchSize clamps an expected active-watch count into [16, 256], matching
// the source daemon's kevent() batch-array sizing: a quiet process doesn't
// allocate a large frame, a busy one amortizes syscalls. fsnotify's
// buffered channel is sized once at construction rather than per wait
// call, so this is used to size that channel up front from the expected
// watch count rather than recomputed every loop iteration.
func BatchSize(activeWatches int) int {
	switch {
	case activeWatches < 16:
		return 16
	case activeWatches > 256:
		return 256
	default:
		return activeWatches
	}
}

// New creates a Watcher. expectedWatches sizes the initial event buffer
// (see BatchSize); maxWatches caps the number of live registrations (0 for
// unlimited) and should be derived from the process fd rlimit at startup.
func New(expectedWatches, maxWatches int) (*Watcher, error) {
	fs, err := fsnotify.NewBufferedWatcher(uint(BatchSize(expectedWatches)))
	if err != nil {
		return nil, fmt.Errorf("watcher: create: %w", err)
	}
	return &Watcher{
		fs:         fs,
		byPath:     make(map[string]int),
		retry:      filesystem.DefaultRetryConfig(),
		maxWatches: maxWatches,
	}, nil
}

// Close releases the underlying event facility.
func (w *Watcher) Close() error {
	return w.fs.Close()
}

// Events exposes the underlying fsnotify event stream.
func (w *Watcher) Events() <-chan fsnotify.Event {
	return w.fs.Events
}

// Errors exposes the underlying fsnotify error stream.
func (w *Watcher) Errors() <-chan error {
	return w.fs.Errors
}

// Len returns the number of currently active watches.
func (w *Watcher) Len() int {
	return len(w.byPath)
}

// Cap returns the current slab capacity, including free (reusable) slots.
func (w *Watcher) Cap() int {
	return len(w.slab)
}

// LookupIndex returns the slab index registered for path, if any.
func (w *Watcher) LookupIndex(path string) (int, bool) {
	idx, ok := w.byPath[path]
	return idx, ok
}

// Add registers path for watching under sectionID, returning its stable
// slab index.
//
//  1. If a live record already exists for path and its identity (device,
//     inode, surfaced here via os.SameFile) matches the current on-disk
//     directory, the existing index is returned — Add is idempotent.
//  2. If a record exists but identity differs (the directory was deleted
//     and recreated), the stale record is removed and a fresh one takes
//     its place.
//  3. Otherwise path is stat'd, registered with the event facility, and
//     assigned a free (or newly grown) slab slot.
func (w *Watcher) Add(path string, sectionID int) (int, error) {
	if idx, ok := w.byPath[path]; ok {
		s := &w.slab[idx]
		fresh, err := filesystem.StatWithRetry(path, w.retry)
		if err == nil && os.SameFile(s.info, fresh) {
			return idx, nil
		}
		logging.Debug("watcher: stale identity for %s, re-registering", path)
		metrics.WatcherStaleIdentityTotal.Inc()
		if rmErr := w.remove(idx); rmErr != nil {
			logging.Warn("watcher: error removing stale watch for %s: %v", path, rmErr)
		}
	}

	if w.maxWatches > 0 && len(w.byPath) >= w.maxWatches {
		return -1, fmt.Errorf("watcher: at capacity (%d watches), refusing to add %s", w.maxWatches, path)
	}

	info, err := filesystem.StatWithRetry(path, w.retry)
	if err != nil {
		return -1, fmt.Errorf("watcher: stat %s: %w", path, err)
	}
	if !info.IsDir() {
		return -1, fmt.Errorf("watcher: %s is not a directory", path)
	}

	if err := w.fs.Add(path); err != nil {
		return -1, fmt.Errorf("watcher: register %s: %w", path, err)
	}

	idx := w.claimSlot()
	w.slab[idx] = slot{
		active:     true,
		generation: w.slab[idx].generation,
		path:       path,
		sectionID:  sectionID,
		info:       info,
	}
	w.byPath[path] = idx

	metrics.WatcherActiveWatches.Set(float64(len(w.byPath)))
	metrics.WatcherSlabSize.Set(float64(len(w.slab)))
	return idx, nil
}

// claimSlot returns a free slot index, reusing the most recently freed one
// if available, else growing the slab by one.
func (w *Watcher) claimSlot() int {
	if n := len(w.freeList); n > 0 {
		idx := w.freeList[n-1]
		w.freeList = w.freeList[:n-1]
		return idx
	}
	w.slab = append(w.slab, slot{})
	return len(w.slab) - 1
}

// Remove unregisters the watch at index. It is a no-op if index is out of
// range or already inactive.
func (w *Watcher) Remove(index int) error {
	if index < 0 || index >= len(w.slab) || !w.slab[index].active {
		return nil
	}
	return w.remove(index)
}

// RemoveByPath unregisters the watch for path, if any, returning whether a
// watch was found.
func (w *Watcher) RemoveByPath(path string) bool {
	idx, ok := w.byPath[path]
	if !ok {
		return false
	}
	if err := w.remove(idx); err != nil {
		logging.Warn("watcher: error removing watch for %s: %v", path, err)
	}
	return true
}

func (w *Watcher) remove(index int) error {
	s := &w.slab[index]
	path := s.path

	err := w.fs.Remove(path)
	delete(w.byPath, path)

	s.active = false
	s.generation++
	s.path = ""
	s.info = nil
	w.freeList = append(w.freeList, index)

	metrics.WatcherActiveWatches.Set(float64(len(w.byPath)))
	return err
}

// Generation returns the current generation for index, for callers that
// captured (index, generation) earlier and want to check it's still
// addressing the same registration.
func (w *Watcher) Generation(index int) (uint64, bool) {
	if index < 0 || index >= len(w.slab) {
		return 0, false
	}
	return w.slab[index].generation, true
}

// Translate resolves a raw fsnotify event to the watched directory it
// concerns and classifies it. inotify (unlike kqueue) reports the specific
// child path that changed rather than just "something changed in this
// directory", so the watched directory is either the event path itself
// (the directory was renamed/removed/had its own metadata touched) or the
// parent of the event path (a child was created/written/removed/renamed).
// ok is false for events that don't resolve to a live watch, or whose
// operation falls outside {write, rename, delete} (Chmod is dropped; see
// the design notes on NOTE_ATTRIB/NOTE_REVOKE ambiguity in the source).
func (w *Watcher) Translate(ev fsnotify.Event) (DirEvent, bool) {
	kind, ok := classify(ev.Op)
	if !ok {
		return DirEvent{}, false
	}

	dirPath := ev.Name
	isSelf := true
	idx, found := w.byPath[dirPath]
	if !found {
		dirPath = filepath.Dir(ev.Name)
		isSelf = false
		idx, found = w.byPath[dirPath]
		if !found {
			return DirEvent{}, false
		}
	}

	s := w.slab[idx]
	metrics.WatcherEventsTotal.WithLabelValues(kind.String()).Inc()

	return DirEvent{
		Index:      idx,
		Generation: s.generation,
		Path:       s.path,
		SectionID:  s.sectionID,
		Kind:       kind,
		IsSelf:     isSelf,
	}, true
}

func classify(op fsnotify.Op) (EventKind, bool) {
	switch {
	case op.Has(fsnotify.Remove):
		return EventDelete, true
	case op.Has(fsnotify.Rename):
		return EventRename, true
	case op.Has(fsnotify.Create), op.Has(fsnotify.Write):
		return EventWrite, true
	default:
		return 0, false
	}
}
