package watch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWatchReportsWritesToTarget(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "img.json")
	if err := os.WriteFile(target, []byte("{}"), 0o644); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	changed := make(chan string, 1)
	done := make(chan error, 1)
	go func() { done <- Watch(ctx, target, changed) }()

	// Give the watcher time to register before touching files.
	time.Sleep(100 * time.Millisecond)

	if err := os.WriteFile(filepath.Join(dir, "other.json"), []byte("{}"), 0o644); err != nil {
		t.Fatal(err)
	}
	select {
	case p := <-changed:
		t.Fatalf("unrelated file reported as %s", p)
	case <-time.After(200 * time.Millisecond):
	}

	if err := os.WriteFile(target, []byte(`{"detections":[]}`), 0o644); err != nil {
		t.Fatal(err)
	}
	select {
	case p := <-changed:
		if p != target {
			t.Errorf("reported %s, want %s", p, target)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("write to the watched record was not reported")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Watch returned %v after cancel", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Watch did not stop after cancel")
	}
}

func TestWatchMissingDirectory(t *testing.T) {
	err := Watch(context.Background(), filepath.Join(t.TempDir(), "nope", "x.json"), make(chan string))
	if err == nil {
		t.Fatal("expected error when the record directory does not exist")
	}
}
