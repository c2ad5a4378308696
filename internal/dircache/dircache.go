// Package dircache tracks, for every directory the daemon has observed, the
// set of its immediate subdirectories. A refresh re-walks one directory and
// reports exactly what was added or removed since the previous observation,
// using a mark/sweep/reap pass so the comparison never needs to materialize
// and diff two full path sets.
package dircache

import (
	"os"
	"time"

	"mediascand/internal/filesystem"
	"mediascand/internal/logging"
	"mediascand/internal/metrics"
)

// entry is the cached state for one directory.
type entry struct {
	mtime     time.Time
	subdirs   map[string]struct{}
	validated bool
}

// Delta describes what changed during a refresh.
type Delta struct {
	Added   []string
	Removed []string
	Changed bool
}

// Cache maps directory paths to their last observed subdirectory set.
// Cache is not safe for concurrent use; it is owned by the single control
// loop goroutine, matching the rest of the core's concurrency model.
type Cache struct {
	entries map[string]*entry
	retry   filesystem.RetryConfig
}

// New returns an empty Cache.
func New() *Cache {
	return &Cache{
		entries: make(map[string]*entry),
		retry:   filesystem.DefaultRetryConfig(),
	}
}

// Len returns the number of directories currently tracked.
func (c *Cache) Len() int {
	return len(c.entries)
}

// Subdirs returns a copy of the cached subdirectory set for path, or nil
// if path is not cached.
func (c *Cache) Subdirs(path string) []string {
	e, ok := c.entries[path]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(e.subdirs))
	for p := range e.subdirs {
		out = append(out, p)
	}
	return out
}

// Forget drops any cached state for path, releasing it from the cache.
func (c *Cache) Forget(path string) {
	delete(c.entries, path)
}

// Refresh re-reads path's immediate subdirectory set and reports the delta
// against what was previously cached. Symbolic links are skipped rather
// than followed, to avoid cycles and walks off the watched volume.
//
// The algorithm runs in three phases: mark (snapshot existing keys into a
// throwaway "unseen" set), sweep (walk the directory; anything on-disk that
// was already cached is removed from unseen, anything new is inserted and
// appended to added), reap (everything left in unseen was deleted on-disk
// and is appended to removed). This avoids comparing two full sets
// pairwise.
func (c *Cache) Refresh(path string) (Delta, error) {
	start := time.Now()

	t0, err := c.statMtime(path)
	if err != nil {
		metrics.DirCacheRefreshTotal.WithLabelValues("error").Inc()
		return Delta{}, err
	}

	e, existed := c.entries[path]
	if existed && e.validated && e.mtime.Equal(t0) {
		metrics.DirCacheRefreshTotal.WithLabelValues("unchanged").Inc()
		metrics.DirCacheRefreshDuration.Observe(time.Since(start).Seconds())
		return Delta{Changed: false}, nil
	}

	if !existed {
		e = &entry{subdirs: make(map[string]struct{})}
		c.entries[path] = e
	}

	entries, err := filesystem.ReadDirWithRetry(path, c.retry)
	if err != nil {
		metrics.DirCacheRefreshTotal.WithLabelValues("error").Inc()
		return Delta{}, err
	}

	unseen := make(map[string]struct{}, len(e.subdirs))
	for p := range e.subdirs {
		unseen[p] = struct{}{}
	}

	var delta Delta
	for _, de := range entries {
		childPath := path + string(os.PathSeparator) + de.Name()
		isDir, ok := dirEntryIsDir(de)
		if !ok {
			info, statErr := filesystem.StatWithRetry(childPath, c.retry)
			if statErr != nil {
				logging.Warn("dircache: stat failed for %s, skipping entry: %v", childPath, statErr)
				continue
			}
			isDir = info.IsDir()
		}
		if !isDir {
			continue
		}

		if _, ok := unseen[childPath]; ok {
			delete(unseen, childPath)
			continue
		}

		e.subdirs[childPath] = struct{}{}
		delta.Added = append(delta.Added, childPath)
	}

	for childPath := range unseen {
		delete(e.subdirs, childPath)
		delta.Removed = append(delta.Removed, childPath)
	}

	t1, err := c.statMtime(path)
	if err != nil {
		metrics.DirCacheRefreshTotal.WithLabelValues("error").Inc()
		return Delta{}, err
	}

	raced := !t1.Equal(t0)
	if raced {
		metrics.DirCacheRaceDetected.Inc()
		e.mtime = t0
	} else {
		e.mtime = t1
	}

	e.validated = true
	delta.Changed = len(delta.Added) > 0 || len(delta.Removed) > 0 || raced

	metrics.DirCacheSubdirDelta.WithLabelValues("added").Add(float64(len(delta.Added)))
	metrics.DirCacheSubdirDelta.WithLabelValues("removed").Add(float64(len(delta.Removed)))
	if delta.Changed {
		metrics.DirCacheRefreshTotal.WithLabelValues("changed").Inc()
	} else {
		metrics.DirCacheRefreshTotal.WithLabelValues("unchanged").Inc()
	}
	metrics.DirCacheRefreshDuration.Observe(time.Since(start).Seconds())
	metrics.DirCacheEntries.Set(float64(len(c.entries)))

	return delta, nil
}

func (c *Cache) statMtime(path string) (time.Time, error) {
	info, err := filesystem.StatWithRetry(path, c.retry)
	if err != nil {
		return time.Time{}, err
	}
	return info.ModTime().Truncate(time.Second), nil
}

// dirEntryIsDir reports whether de is known to be a directory without a
// stat call. Symlinks report ok=true, isDir=false so the caller skips them
// without following the link; entries of unknown type report ok=false so
// the caller falls back to stat.
func dirEntryIsDir(de os.DirEntry) (isDir, ok bool) {
	mode := de.Type()
	switch {
	case mode&os.ModeSymlink != 0:
		return false, true
	case mode.IsDir():
		return true, true
	case mode.IsRegular():
		return false, true
	default:
		return false, false
	}
}
