package pipeline

import (
	"testing"
	"time"

	"github.com/dgallion1/citectx/internal/bibl"
	"github.com/dgallion1/citectx/internal/doctree"
	"github.com/dgallion1/citectx/internal/tei"
)

func TestContentHashHex_Consistency(t *testing.T) {
	data := []byte("hello world")
	h1 := ContentHashHex(data)
	h2 := ContentHashHex(data)
	if h1 != h2 {
		t.Errorf("expected identical hashes, got %q and %q", h1, h2)
	}
	want := "b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9"
	if h1 != want {
		t.Errorf("expected hash %q, got %q", want, h1)
	}
}

func TestContentHashHex_DifferentInputs(t *testing.T) {
	if ContentHashHex([]byte("aaa")) == ContentHashHex([]byte("bbb")) {
		t.Error("expected different hashes for different inputs")
	}
}

func TestNewJob(t *testing.T) {
	job := NewJob("paper.tei.xml", []byte("<TEI/>"), true)
	if job.ID == "" || job.DocID == "" || job.ID == job.DocID {
		t.Errorf("expected distinct job and doc ids, got %q and %q", job.ID, job.DocID)
	}
	if job.Status != StatusQueued {
		t.Errorf("expected status %q, got %q", StatusQueued, job.Status)
	}
	if !job.Force {
		t.Error("expected force flag to be kept")
	}
	if job.ContentHash != ContentHashHex([]byte("<TEI/>")) {
		t.Errorf("expected content hash of upload, got %q", job.ContentHash)
	}
	if string(job.FileData()) != "<TEI/>" {
		t.Errorf("expected file data, got %q", job.FileData())
	}
	job.releaseFileData()
	if job.FileData() != nil {
		t.Error("expected file data to be released")
	}
}

func TestJob_StateTransitions(t *testing.T) {
	job := NewJob("a.xml", nil, false)

	transitions := []struct {
		status JobStatus
		phase  string
	}{
		{StatusConverting, "converting"},
		{StatusParsing, "parsing"},
		{StatusAssembling, "assembling"},
		{StatusStoring, "storing"},
		{StatusCompleted, "done"},
	}

	for _, tr := range transitions {
		before := job.UpdatedAt
		time.Sleep(time.Millisecond)
		job.SetStatus(tr.status, tr.phase)

		if job.Status != tr.status {
			t.Errorf("expected status %q, got %q", tr.status, job.Status)
		}
		if job.Phase != tr.phase {
			t.Errorf("expected phase %q, got %q", tr.phase, job.Phase)
		}
		if !job.UpdatedAt.After(before) {
			t.Errorf("expected UpdatedAt to advance after SetStatus(%q)", tr.status)
		}
	}
	select {
	case <-job.Wait():
	default:
		t.Error("expected Wait channel to be closed after completion")
	}
}

func TestJob_TerminalStatusTwice(t *testing.T) {
	job := NewJob("a.xml", nil, false)
	job.SetStatus(StatusFailed, "parsing")
	job.SetStatus(StatusFailed, "parsing")
	<-job.Wait()
}

func TestJobStatus_Done(t *testing.T) {
	cases := map[JobStatus]bool{
		StatusQueued:     false,
		StatusParsing:    false,
		StatusStoring:    false,
		StatusCompleted:  true,
		StatusFailed:     true,
		StatusDupSkipped: true,
	}
	for status, want := range cases {
		if got := status.Done(); got != want {
			t.Errorf("%s: expected Done()=%v, got %v", status, want, got)
		}
	}
}

func TestJob_AddError(t *testing.T) {
	job := &Job{ID: "err-test", UpdatedAt: time.Now()}
	job.AddError("parsing: bad sentence")
	job.AddError("storing: locked")

	snap := job.Snapshot()
	if len(snap.Progress.Errors) != 2 {
		t.Fatalf("expected 2 errors, got %d", len(snap.Progress.Errors))
	}
	if snap.Progress.Errors[0] != "parsing: bad sentence" {
		t.Errorf("expected first error %q, got %q", "parsing: bad sentence", snap.Progress.Errors[0])
	}
}

func TestJob_SetDocumentAndRows(t *testing.T) {
	doc := &doctree.Document{
		Sections: []doctree.Section{
			{Title: "Intro", Paragraphs: []doctree.Paragraph{{Index: 0}, {Index: 1}}},
			{Title: "Method", Paragraphs: []doctree.Paragraph{{Index: 2}}},
		},
		References: map[string]*bibl.Reference{"b0": {Key: "b0"}},
	}
	doc.Diagnostics.Add(tei.DiagMissingHeader, "/TEI/teiHeader", "no header")

	job := &Job{ID: "doc-test"}
	job.SetDocument(doc)
	job.SetRows(make([]doctree.Row, 3))

	snap := job.Snapshot()
	if snap.Progress.Sections != 2 || snap.Progress.Paragraphs != 3 {
		t.Errorf("expected 2 sections and 3 paragraphs, got %+v", snap.Progress)
	}
	if snap.Progress.References != 1 {
		t.Errorf("expected 1 reference, got %d", snap.Progress.References)
	}
	if snap.Progress.Rows != 3 || len(job.Rows()) != 3 {
		t.Errorf("expected 3 rows, got %d", snap.Progress.Rows)
	}
	if snap.Progress.Warnings != 1 || len(snap.Warnings) != 1 {
		t.Errorf("expected 1 warning, got %d", snap.Progress.Warnings)
	}
	if snap.Warnings[0].Code != tei.DiagMissingHeader {
		t.Errorf("expected code %q, got %q", tei.DiagMissingHeader, snap.Warnings[0].Code)
	}
}

func TestJob_MarkDuplicate(t *testing.T) {
	job := NewJob("a.xml", []byte("x"), false)
	job.MarkDuplicate("existing-1")

	snap := job.Snapshot()
	if snap.Status != StatusDupSkipped {
		t.Errorf("expected status %q, got %q", StatusDupSkipped, snap.Status)
	}
	if snap.DuplicateOf != "existing-1" {
		t.Errorf("expected duplicate_of %q, got %q", "existing-1", snap.DuplicateOf)
	}
}

func TestJob_SnapshotErrorsNotNil(t *testing.T) {
	job := &Job{ID: "snap-test", UpdatedAt: time.Now()}
	snap := job.Snapshot()
	if snap.Progress.Errors == nil {
		t.Error("expected non-nil errors slice in snapshot")
	}
	if snap.Warnings == nil {
		t.Error("expected non-nil warnings slice in snapshot")
	}
}

func TestJobStore_PutGet(t *testing.T) {
	store := NewJobStore(time.Hour)
	job := &Job{ID: "store-1", UpdatedAt: time.Now()}
	store.Put(job)

	got := store.Get("store-1")
	if got == nil {
		t.Fatal("expected to get job back")
	}
	if got.ID != "store-1" {
		t.Errorf("expected ID %q, got %q", "store-1", got.ID)
	}
	if store.Len() != 1 {
		t.Errorf("expected 1 job, got %d", store.Len())
	}
}

func TestJobStore_GetMissing(t *testing.T) {
	store := NewJobStore(time.Hour)
	if store.Get("nonexistent") != nil {
		t.Error("expected nil for missing job")
	}
}

func TestJobStore_TTLCleanup(t *testing.T) {
	store := NewJobStore(50 * time.Millisecond)

	expired := &Job{ID: "old", Status: StatusCompleted, UpdatedAt: time.Now()}
	running := &Job{ID: "running", Status: StatusParsing, UpdatedAt: time.Now()}
	store.Put(expired)
	store.Put(running)

	time.Sleep(100 * time.Millisecond)

	fresh := &Job{ID: "new", Status: StatusCompleted, UpdatedAt: time.Now()}
	store.Put(fresh)

	store.Cleanup()

	if store.Get("old") != nil {
		t.Error("expected expired job to be cleaned up")
	}
	if store.Get("running") == nil {
		t.Error("expected unfinished job to survive cleanup")
	}
	if store.Get("new") == nil {
		t.Error("expected fresh job to survive cleanup")
	}
}

func TestJobStore_CleanupEmpty(t *testing.T) {
	store := NewJobStore(time.Hour)
	store.Cleanup()
}
