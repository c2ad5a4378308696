package watcher

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
)

func mustMkdir(t *testing.T, path string) {
	t.Helper()
	if err := os.Mkdir(path, 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", path, err)
	}
}

func TestBatchSizeClamps(t *testing.T) {
	cases := map[int]int{0: 16, 1: 16, 15: 16, 16: 16, 100: 100, 256: 256, 257: 256, 10000: 256}
	for in, want := range cases {
		if got := BatchSize(in); got != want {
			t.Errorf("BatchSize(%d) = %d, want %d", in, got, want)
		}
	}
}

// Scenario D: structural add. A new watched directory is registered and
// assigned a stable slab index; a second Add of the same unchanged
// directory is a no-op that returns the same index.
func TestAddIsIdempotentForUnchangedDirectory(t *testing.T) {
	root := t.TempDir()

	w, err := New(4, 0)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer w.Close()

	idx1, err := w.Add(root, 1)
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	idx2, err := w.Add(root, 1)
	if err != nil {
		t.Fatalf("second Add: %v", err)
	}
	if idx1 != idx2 {
		t.Fatalf("Add returned different indices for the same directory: %d, %d", idx1, idx2)
	}
	if w.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", w.Len())
	}
}

// Scenario E: delete-and-recreate. A directory removed and recreated at the
// same path has a different on-disk identity, so a subsequent Add must
// detect the mismatch, drop the stale registration, and install a fresh
// one rather than silently reusing it.
func TestAddDetectsDeleteAndRecreate(t *testing.T) {
	parent := t.TempDir()
	path := filepath.Join(parent, "Movies")
	mustMkdir(t, path)

	w, err := New(4, 0)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer w.Close()

	idx1, err := w.Add(path, 1)
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	gen1, _ := w.Generation(idx1)

	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}
	mustMkdir(t, path)

	idx2, err := w.Add(path, 1)
	if err != nil {
		t.Fatalf("Add after recreate: %v", err)
	}
	if w.Len() != 1 {
		t.Fatalf("Len() = %d, want 1 (stale registration replaced, not duplicated)", w.Len())
	}

	// The old slot must have been freed and its generation bumped, whether
	// or not the new registration reused the same slab index.
	oldGen, ok := w.Generation(idx1)
	if idx1 == idx2 {
		if !ok || oldGen == gen1 {
			t.Fatalf("expected generation bump on reused slot: old=%d new=%d", gen1, oldGen)
		}
	}
}

func TestRemoveFreesSlotForReuse(t *testing.T) {
	parent := t.TempDir()
	a := filepath.Join(parent, "A")
	b := filepath.Join(parent, "B")
	mustMkdir(t, a)
	mustMkdir(t, b)

	w, err := New(4, 0)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer w.Close()

	idxA, err := w.Add(a, 1)
	if err != nil {
		t.Fatalf("Add a: %v", err)
	}
	if ok := w.RemoveByPath(a); !ok {
		t.Fatal("RemoveByPath(a) = false, want true")
	}
	if w.Len() != 0 {
		t.Fatalf("Len() = %d after remove, want 0", w.Len())
	}

	idxB, err := w.Add(b, 2)
	if err != nil {
		t.Fatalf("Add b: %v", err)
	}
	if idxB != idxA {
		t.Fatalf("Add(b) got index %d, want reused index %d", idxB, idxA)
	}
}

func TestAddRejectsNonDirectory(t *testing.T) {
	root := t.TempDir()
	f := filepath.Join(root, "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	w, err := New(4, 0)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer w.Close()

	if _, err := w.Add(f, 1); err == nil {
		t.Fatal("expected error adding a non-directory")
	}
}

func TestAddRespectsCapacity(t *testing.T) {
	parent := t.TempDir()
	a := filepath.Join(parent, "A")
	b := filepath.Join(parent, "B")
	mustMkdir(t, a)
	mustMkdir(t, b)

	w, err := New(4, 1)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer w.Close()

	if _, err := w.Add(a, 1); err != nil {
		t.Fatalf("Add a: %v", err)
	}
	if _, err := w.Add(b, 1); err == nil {
		t.Fatal("expected capacity error adding beyond maxWatches")
	}
}

func TestTranslateResolvesChildEventToParentDirectory(t *testing.T) {
	root := t.TempDir()

	w, err := New(4, 0)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer w.Close()

	idx, err := w.Add(root, 7)
	if err != nil {
		t.Fatalf("Add: %v", err)
	}

	childPath := filepath.Join(root, "newfile")
	ev := fsnotify.Event{Name: childPath, Op: fsnotify.Create}

	de, ok := w.Translate(ev)
	if !ok {
		t.Fatal("Translate returned ok=false for a child of a watched directory")
	}
	if de.Index != idx || de.Path != root || de.SectionID != 7 || de.Kind != EventWrite || de.IsSelf {
		t.Fatalf("Translate result = %+v, want index=%d path=%s section=7 kind=write isSelf=false", de, idx, root)
	}
}

func TestTranslateResolvesEventOnWatchedDirectoryItself(t *testing.T) {
	root := t.TempDir()

	w, err := New(4, 0)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer w.Close()

	idx, err := w.Add(root, 3)
	if err != nil {
		t.Fatalf("Add: %v", err)
	}

	ev := fsnotify.Event{Name: root, Op: fsnotify.Rename}
	de, ok := w.Translate(ev)
	if !ok {
		t.Fatal("Translate returned ok=false for an event on the watched directory itself")
	}
	if de.Index != idx || de.Kind != EventRename || !de.IsSelf {
		t.Fatalf("Translate result = %+v, want index=%d kind=rename isSelf=true", de, idx)
	}
}

func TestTranslateIgnoresUnwatchedPaths(t *testing.T) {
	w, err := New(4, 0)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer w.Close()

	ev := fsnotify.Event{Name: "/not/tracked/file", Op: fsnotify.Write}
	if _, ok := w.Translate(ev); ok {
		t.Fatal("Translate should return ok=false for a path outside any watched directory")
	}
}

func TestTranslateDropsChmodEvents(t *testing.T) {
	root := t.TempDir()

	w, err := New(4, 0)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer w.Close()

	if _, err := w.Add(root, 1); err != nil {
		t.Fatalf("Add: %v", err)
	}

	ev := fsnotify.Event{Name: root, Op: fsnotify.Chmod}
	if _, ok := w.Translate(ev); ok {
		t.Fatal("Translate should drop Chmod-only events")
	}
}

func TestLookupIndex(t *testing.T) {
	root := t.TempDir()

	w, err := New(4, 0)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer w.Close()

	if _, ok := w.LookupIndex(root); ok {
		t.Fatal("LookupIndex should report false before Add")
	}

	idx, err := w.Add(root, 1)
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	got, ok := w.LookupIndex(root)
	if !ok || got != idx {
		t.Fatalf("LookupIndex = (%d, %v), want (%d, true)", got, ok, idx)
	}
}

// Events/Errors channels must be reachable for a caller driving a select
// loop; this just exercises that they're non-nil and don't block when idle.
func TestEventsAndErrorsChannelsAreUsable(t *testing.T) {
	w, err := New(4, 0)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer w.Close()

	select {
	case <-w.Events():
		t.Fatal("unexpected event on an idle watcher")
	case <-w.Errors():
		t.Fatal("unexpected error on an idle watcher")
	case <-time.After(20 * time.Millisecond):
	}
}
