package watch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWatcherDebouncesWrites(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "notes.txt")
	if err := os.WriteFile(file, []byte("v0\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	changes := make(chan string, 16)
	w, err := New(file, 100*time.Millisecond, func(p string) { changes <- p })
	if err != nil {
		t.Fatalf("new watcher: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	// A burst of writes plus a write to a sibling file.
	for i := 0; i < 5; i++ {
		if err := os.WriteFile(file, []byte("v"+string(rune('1'+i))+"\n"), 0o644); err != nil {
			t.Fatal(err)
		}
		time.Sleep(10 * time.Millisecond)
	}
	if err := os.WriteFile(filepath.Join(dir, "other.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case p := <-changes:
		if p != w.Path() {
			t.Fatalf("callback path %q want %q", p, w.Path())
		}
	case <-time.After(3 * time.Second):
		t.Fatalf("no change reported")
	}

	// The burst must collapse into a single callback.
	select {
	case p := <-changes:
		t.Fatalf("unexpected second callback for %q", p)
	case <-time.After(400 * time.Millisecond):
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("Run did not return after cancel")
	}
}

func TestNewRejectsNilCallback(t *testing.T) {
	if _, err := New(filepath.Join(t.TempDir(), "f"), 0, nil); err == nil {
		t.Fatalf("expected error for nil callback")
	}
}

func TestNewMissingDirectory(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope", "f")
	if _, err := New(missing, 0, func(string) {}); err == nil {
		t.Fatalf("expected error for missing directory")
	}
}
