package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func TestWatcherDispatchesVideos(t *testing.T) {
	dir := t.TempDir()

	var mu sync.Mutex
	var seen []string
	got := make(chan struct{}, 4)
	handler := func(_ context.Context, path string) error {
		mu.Lock()
		seen = append(seen, filepath.Base(path))
		mu.Unlock()
		got <- struct{}{}
		return nil
	}

	w, err := New(dir, handler, Options{MaxConcurrent: 1, SettleDelay: 10 * time.Millisecond})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	// Give the event loop a moment to start consuming.
	time.Sleep(50 * time.Millisecond)
	for _, name := range []string{"notes.txt", "standup.mp4"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	select {
	case <-got:
	case <-time.After(5 * time.Second):
		t.Fatal("handler not called")
	}

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(seen) != 1 || seen[0] != "standup.mp4" {
		t.Fatalf("handled = %v", seen)
	}
}

func TestNewMissingDir(t *testing.T) {
	if _, err := New(filepath.Join(t.TempDir(), "missing"), nil, Options{}); err == nil {
		t.Fatal("expected error for missing directory")
	}
}
