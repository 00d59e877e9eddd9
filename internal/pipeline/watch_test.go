package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dgallion1/citectx/internal/testutil"
)

func TestWatcher_ProcessesExistingAndNewFiles(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "first.tei.xml"), []byte(testutil.SampleTEI), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "ignored.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	results := make(chan Result, 4)
	w := NewWatcher(dir, newTestWorker(nil, nil), testutil.Logger(), func(r Result) { results <- r })
	w.SetSettle(20 * time.Millisecond)
	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer w.Stop()

	first := waitResult(t, results)
	if first.Filename != "first.tei.xml" || first.Err != nil {
		t.Fatalf("expected first.tei.xml to be processed, got %+v", first)
	}

	if err := os.WriteFile(filepath.Join(dir, "second.tei.xml"), []byte(testutil.MissingTargetTEI), 0o644); err != nil {
		t.Fatal(err)
	}
	second := waitResult(t, results)
	if second.Filename != "second.tei.xml" || second.Err != nil {
		t.Fatalf("expected second.tei.xml to be processed, got %+v", second)
	}
	if len(second.Rows) != 1 {
		t.Errorf("expected 1 row, got %d", len(second.Rows))
	}
}

func TestWatcher_MissingDirectory(t *testing.T) {
	w := NewWatcher(filepath.Join(t.TempDir(), "nope"), newTestWorker(nil, nil), testutil.Logger(), nil)
	if err := w.Start(context.Background()); err == nil {
		w.Stop()
		t.Fatal("expected error for missing directory")
	}
}

func waitResult(t *testing.T, ch <-chan Result) Result {
	t.Helper()
	select {
	case r := <-ch:
		return r
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for watcher")
		return Result{}
	}
}
