package control

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"mediascand/internal/dispatcher"
)

func waitForCondition(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	if !cond() {
		t.Fatalf("condition not met within %v", timeout)
	}
}

func TestBootstrapRegistersTreeAndWarmsCache(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "sub1"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Join(root, "sub2", "nested"), 0o755); err != nil {
		t.Fatal(err)
	}

	rec := dispatcher.NewRecorder()
	l, err := New(rec, 0, 50*time.Millisecond)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer l.Close()

	l.Bootstrap([]dispatcher.Section{{ID: 1, Paths: []string{root}}})

	if !l.Ready() {
		t.Fatal("expected Ready() to be true after Bootstrap")
	}

	stats := l.GetStats()
	if stats.ActiveWatches != 4 { // root, sub1, sub2, sub2/nested
		t.Errorf("ActiveWatches = %d, want 4", stats.ActiveWatches)
	}
	if stats.DirCacheSize == 0 {
		t.Errorf("DirCacheSize = %d, want > 0 after bootstrap", stats.DirCacheSize)
	}
}

func TestRunDispatchesScanOnChildWrite(t *testing.T) {
	root := t.TempDir()

	rec := dispatcher.NewRecorder()
	l, err := New(rec, 0, 30*time.Millisecond)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer l.Close()

	l.Bootstrap([]dispatcher.Section{{ID: 7, Paths: []string{root}}})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go l.Run(ctx)

	if err := os.WriteFile(filepath.Join(root, "movie.mkv"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	waitForCondition(t, 2*time.Second, func() bool {
		return len(rec.Calls()) > 0
	})

	calls := rec.Calls()
	if calls[0].Path != root || calls[0].SectionID != 7 {
		t.Errorf("Calls()[0] = %+v, want {%s 7}", calls[0], root)
	}
}

func TestRunDiscoversNewSubdirectoryAndWatchesIt(t *testing.T) {
	root := t.TempDir()

	rec := dispatcher.NewRecorder()
	l, err := New(rec, 0, 30*time.Millisecond)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer l.Close()

	l.Bootstrap([]dispatcher.Section{{ID: 3, Paths: []string{root}}})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go l.Run(ctx)

	newDir := filepath.Join(root, "Season 02")
	if err := os.Mkdir(newDir, 0o755); err != nil {
		t.Fatal(err)
	}

	waitForCondition(t, 2*time.Second, func() bool {
		return l.GetStats().ActiveWatches >= 2
	})
}

func TestRunRemovesWatchOnSelfDelete(t *testing.T) {
	root := t.TempDir()
	child := filepath.Join(root, "Library")
	if err := os.Mkdir(child, 0o755); err != nil {
		t.Fatal(err)
	}

	rec := dispatcher.NewRecorder()
	l, err := New(rec, 0, 30*time.Millisecond)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer l.Close()

	// child is the library root itself, so its parent is not watched and
	// no parent-directory event can absorb the scan of child.
	l.Bootstrap([]dispatcher.Section{{ID: 1, Paths: []string{child}}})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go l.Run(ctx)

	startWatches := l.GetStats().ActiveWatches

	if err := os.RemoveAll(child); err != nil {
		t.Fatal(err)
	}

	waitForCondition(t, 2*time.Second, func() bool {
		return l.GetStats().ActiveWatches < startWatches
	})

	// spec.md §4.3's dispatch_vnode "self" branch must still enqueue a scan
	// for the removed directory's own path — there is no parent watch above
	// a top-level library root to fall back on.
	waitForCondition(t, 2*time.Second, func() bool {
		for _, c := range rec.Calls() {
			if c.Path == child && c.SectionID == 1 {
				return true
			}
		}
		return false
	})
}

func TestRequestReloadDoesNotPanic(t *testing.T) {
	rec := dispatcher.NewRecorder()
	l, err := New(rec, 0, 30*time.Millisecond)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer l.Close()

	ctx, cancel := context.WithCancel(context.Background())
	go l.Run(ctx)

	l.RequestReload()
	time.Sleep(20 * time.Millisecond)
	cancel()
}
