package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestWatch(t *testing.T) {
	w, err := New(0)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer w.Close()

	if w.debounce != DefaultDebounce {
		t.Errorf("debounce = %v, want %v", w.debounce, DefaultDebounce)
	}

	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "assets", "minecraft"), 0o755); err != nil {
		t.Fatal(err)
	}

	if err := w.Watch(root); err != nil {
		t.Fatalf("Watch() error = %v", err)
	}
	if got := w.Watched(); got != 3 {
		t.Errorf("Watched() = %d, want 3", got)
	}
}

func TestWatch_File(t *testing.T) {
	w, err := New(0)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	file := filepath.Join(t.TempDir(), "pack.zip")
	if err := os.WriteFile(file, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	if err := w.Watch(file); err != nil {
		t.Fatalf("Watch() error = %v", err)
	}
	if got := w.Watched(); got != 0 {
		t.Errorf("Watched() = %d, want 0", got)
	}
}

func TestRun_DebouncesChanges(t *testing.T) {
	w, err := New(100 * time.Millisecond)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	root := t.TempDir()
	if err := w.Watch(root); err != nil {
		t.Fatal(err)
	}

	var changes atomic.Int32
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx, func() { changes.Add(1) })

	for i := 0; i < 5; i++ {
		name := filepath.Join(root, "stone.png")
		if err := os.WriteFile(name, []byte{byte(i)}, 0o644); err != nil {
			t.Fatal(err)
		}
	}

	waitFor(t, func() bool { return changes.Load() == 1 })
	time.Sleep(250 * time.Millisecond)
	if got := changes.Load(); got != 1 {
		t.Errorf("changes = %d, want 1", got)
	}
}

func TestRun_WatchesNewDirectories(t *testing.T) {
	w, err := New(20 * time.Millisecond)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	root := t.TempDir()
	if err := w.Watch(root); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx, nil)

	if err := os.MkdirAll(filepath.Join(root, "assets", "textures"), 0o755); err != nil {
		t.Fatal(err)
	}
	waitFor(t, func() bool { return w.Watched() >= 2 })

	if err := os.RemoveAll(filepath.Join(root, "assets")); err != nil {
		t.Fatal(err)
	}
	waitFor(t, func() bool { return w.Watched() == 1 })
}

func TestClose(t *testing.T) {
	w, err := New(0)
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if err := w.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
	if err := w.Watch(t.TempDir()); err != nil {
		t.Errorf("Watch() after Close error = %v", err)
	}
	if got := w.Watched(); got != 0 {
		t.Errorf("Watched() = %d, want 0", got)
	}
}

func TestIsSubPath(t *testing.T) {
	tests := []struct {
		path, parent string
		want         bool
	}{
		{"/a/b/c", "/a/b", true},
		{"/a/bc", "/a/b", false},
		{"/a/b", "/a/b", false},
	}
	for _, tt := range tests {
		if got := isSubPath(tt.path, tt.parent); got != tt.want {
			t.Errorf("isSubPath(%q, %q) = %v, want %v", tt.path, tt.parent, got, tt.want)
		}
	}
}
