package watcher

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWatcherReportsSourceChanges(t *testing.T) {
	dir := t.TempDir()
	changes := make(chan []string, 1)

	w, err := New(50*time.Millisecond, nil, nil, func(paths []string) {
		select {
		case changes <- paths:
		default:
		}
	})
	if err != nil {
		t.Fatalf("new watcher: %v", err)
	}
	defer w.Close()

	if err := w.Watch([]string{dir}); err != nil {
		t.Fatalf("watch: %v", err)
	}

	target := filepath.Join(dir, "app.py")
	if err := os.WriteFile(target, []byte("x = 1\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case paths := <-changes:
		found := false
		for _, p := range paths {
			if p == target {
				found = true
			}
		}
		if !found {
			t.Errorf("change batch %v missing %s", paths, target)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("no change batch arrived")
	}
}

func TestWatcherIgnoresUnsupportedFiles(t *testing.T) {
	dir := t.TempDir()
	changes := make(chan []string, 4)

	w, err := New(50*time.Millisecond, nil, nil, func(paths []string) {
		changes <- paths
	})
	if err != nil {
		t.Fatalf("new watcher: %v", err)
	}
	defer w.Close()

	if err := w.Watch([]string{dir}); err != nil {
		t.Fatalf("watch: %v", err)
	}

	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("hi"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case paths := <-changes:
		t.Errorf("unexpected batch for unsupported file: %v", paths)
	case <-time.After(300 * time.Millisecond):
	}
}

func TestWatcherRequiresCallback(t *testing.T) {
	if _, err := New(time.Second, nil, nil, nil); err == nil {
		t.Error("nil callback should fail")
	}
}

func TestWatcherRejectsBadGlob(t *testing.T) {
	if _, err := New(time.Second, []string{"["}, nil, func([]string) {}); err == nil {
		t.Error("invalid glob should fail")
	}
}
