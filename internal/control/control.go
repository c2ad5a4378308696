// Package control owns the single event loop that ties the Watcher,
// DirCache, and Scheduler together. Apart from the startup discovery
// workers in Bootstrap, which serialize their Watcher registrations
// through a mutex on the Loop, it is the only goroutine that mutates any
// of those three types, so none of them need internal locking.
package control

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"mediascand/internal/dircache"
	"mediascand/internal/dispatcher"
	"mediascand/internal/filesystem"
	"mediascand/internal/logging"
	"mediascand/internal/metrics"
	"mediascand/internal/pathqueue"
	"mediascand/internal/scheduler"
	"mediascand/internal/watcher"
	"mediascand/internal/workers"
)

// maxTargetedBFSDirs bounds a single targeted rescan so a pathological
// tree (a directory with tens of thousands of descendants) can't stall
// the control loop indefinitely; the scan is abandoned past this point
// and the next write event will pick up where it left off.
const maxTargetedBFSDirs = 50000

// Loop is the daemon's control-plane state: the watch slab, the
// directory-structure cache, the pending-scan table, and the indexer
// client, bound together by one goroutine's worth of sequencing.
type Loop struct {
	watcher    *watcher.Watcher
	dircache   *dircache.Cache
	scheduler  *scheduler.Scheduler
	dispatcher dispatcher.Dispatcher

	// discoverMu serializes watcher.Add calls made from discoverTree,
	// which Bootstrap runs on several worker goroutines at once.
	discoverMu sync.Mutex

	reload chan struct{}
	ready  bool
}

// New constructs a Loop. maxWatches caps the watch slab (0 for
// unlimited); debounce is the scan-coalescing window.
func New(d dispatcher.Dispatcher, maxWatches int, debounce time.Duration) (*Loop, error) {
	w, err := watcher.New(64, maxWatches)
	if err != nil {
		return nil, err
	}

	l := &Loop{
		watcher:    w,
		dircache:   dircache.New(),
		dispatcher: d,
		reload:     make(chan struct{}, 1),
	}
	l.scheduler = scheduler.New(d, debounce)
	return l, nil
}

// Close releases the underlying watch facility.
func (l *Loop) Close() error {
	return l.watcher.Close()
}

// RequestReload wakes the loop to handle a reload request on its next
// iteration. The loop only logs the request: the configuration file is
// not re-read and watch state is left as it is. It is safe to call from
// a signal handler.
func (l *Loop) RequestReload() {
	select {
	case l.reload <- struct{}{}:
	default:
	}
}

// Bootstrap walks each library root and registers it (and every
// subdirectory beneath it) with the Watcher, using a worker pool sized
// for I/O-bound directory traversal. It populates the DirCache as it
// goes, so the first real filesystem event against any of these
// directories sees a warm cache rather than a forced full read.
func (l *Loop) Bootstrap(roots []dispatcher.Section) {
	type job struct {
		path      string
		sectionID int
	}

	jobs := make(chan job)
	workerCount := workers.ForIO(16)

	done := make(chan struct{})
	for i := 0; i < workerCount; i++ {
		go func() {
			for j := range jobs {
				l.discoverTree(j.path, j.sectionID)
			}
			done <- struct{}{}
		}()
	}

	go func() {
		for _, section := range roots {
			for _, path := range section.Paths {
				jobs <- job{path: path, sectionID: section.ID}
			}
		}
		close(jobs)
	}()

	for i := 0; i < workerCount; i++ {
		<-done
	}

	l.ready = true
	metrics.WatcherActiveWatches.Set(float64(l.watcher.Len()))
	metrics.WatcherSlabSize.Set(float64(l.watcher.Cap()))
}

// discoverTree registers root and breadth-first walks its subtree,
// registering every directory found. This is also used as the targeted
// rescan fallback when the DirCache can't determine a precise delta.
func (l *Loop) discoverTree(root string, sectionID int) {
	l.discoverMu.Lock()
	_, err := l.watcher.Add(root, sectionID)
	l.discoverMu.Unlock()
	if err != nil {
		logging.Warn("control: failed to watch %s: %v", root, err)
		return
	}

	q := pathqueue.New()
	q.Enqueue(root)
	visited := 0

	for !q.Empty() {
		if visited >= maxTargetedBFSDirs {
			logging.Warn("control: targeted scan of %s exceeded %d directories, abandoning remainder", root, maxTargetedBFSDirs)
			q.Drain()
			break
		}

		dir, _ := q.Dequeue()
		entries, err := filesystem.ReadDirWithRetry(dir, filesystem.DefaultRetryConfig())
		if err != nil {
			logging.Warn("control: failed to list %s during discovery: %v", dir, err)
			continue
		}

		for _, e := range entries {
			if e.Type()&os.ModeSymlink != 0 {
				continue
			}
			if !e.IsDir() {
				continue
			}
			child := filepath.Join(dir, e.Name())
			l.discoverMu.Lock()
			_, err := l.watcher.Add(child, sectionID)
			l.discoverMu.Unlock()
			if err != nil {
				logging.Warn("control: failed to watch %s: %v", child, err)
				continue
			}
			q.Enqueue(child)
			visited++
		}
	}
}

// Run drives the event loop until ctx is cancelled. It dispatches
// fsnotify events into DirCache refreshes and Scheduler entries, wakes
// on reload requests, and periodically drains due scans.
func (l *Loop) Run(ctx context.Context) {
	timer := time.NewTimer(time.Hour)
	defer timer.Stop()
	l.resetTimer(timer)

	for {
		select {
		case <-ctx.Done():
			logging.Info("control: context cancelled, exiting loop")
			return

		case ev, ok := <-l.watcher.Events():
			if !ok {
				logging.Warn("control: watcher event channel closed")
				return
			}
			if de, ok := l.watcher.Translate(ev); ok {
				l.handleEvent(de)
			}
			l.resetTimer(timer)

		case err, ok := <-l.watcher.Errors():
			if !ok {
				return
			}
			logging.Error("control: watcher error: %v", err)
			metrics.WatcherErrorsTotal.WithLabelValues("fsnotify").Inc()

		case <-l.reload:
			logging.Info("control: reload requested")
			l.handleReload()

		case <-timer.C:
			l.scheduler.DrainDue()
			l.resetTimer(timer)
		}
	}
}

func (l *Loop) resetTimer(timer *time.Timer) {
	if !timer.Stop() {
		select {
		case <-timer.C:
		default:
		}
	}

	deadline, ok := l.scheduler.NextDeadline()
	if !ok {
		timer.Reset(time.Hour)
		return
	}

	d := time.Until(deadline)
	if d < 0 {
		d = 0
	}
	timer.Reset(d)
}

func (l *Loop) handleReload() {
	logging.Info("control: reload is a no-op for watch state; restart to pick up config file changes")
}

func (l *Loop) handleEvent(de watcher.DirEvent) {
	if de.IsSelf {
		l.handleSelfEvent(de)
		return
	}
	l.handleChildEvent(de)
}

func (l *Loop) handleSelfEvent(de watcher.DirEvent) {
	logging.Info("control: watched directory %s changed identity (%s), removing watch", de.Path, de.Kind)
	l.watcher.Remove(de.Index)
	l.dircache.Forget(de.Path)
	l.scheduler.Enqueue(de.Path, de.SectionID)
}

func (l *Loop) handleChildEvent(de watcher.DirEvent) {
	logging.Debug("control: change detected in %s", de.Path)

	delta, err := l.dircache.Refresh(de.Path)
	if err != nil {
		logging.Warn("control: failed to refresh directory cache for %s, falling back to targeted rescan: %v", de.Path, err)
		metrics.WatcherTargetedBFSTotal.Inc()
		l.discoverTree(de.Path, de.SectionID)
		l.scheduler.Enqueue(de.Path, de.SectionID)
		return
	}

	if delta.Changed {
		logging.Debug("control: directory structure changed in %s (added=%d removed=%d)", de.Path, len(delta.Added), len(delta.Removed))
		for _, added := range delta.Added {
			l.discoverTree(added, de.SectionID)
		}
		for _, removed := range delta.Removed {
			if idx, ok := l.watcher.LookupIndex(removed); ok {
				l.watcher.Remove(idx)
			}
			l.dircache.Forget(removed)
		}
	}

	l.scheduler.Enqueue(de.Path, de.SectionID)
}

// GetStats reports the current loop state for metrics collection,
// satisfying metrics.StatsProvider.
func (l *Loop) GetStats() metrics.Stats {
	return metrics.Stats{
		ActiveWatches:  l.watcher.Len(),
		WatchSlabSize:  l.watcher.Cap(),
		DirCacheSize:   l.dircache.Len(),
		PendingEntries: l.scheduler.Len(),
	}
}

// Ready reports whether initial bootstrap discovery has completed.
func (l *Loop) Ready() bool {
	return l.ready
}
