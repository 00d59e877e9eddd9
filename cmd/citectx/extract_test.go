package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dgallion1/citectx/internal/assembler"
	"github.com/dgallion1/citectx/internal/output"
	"github.com/dgallion1/citectx/internal/pipeline"
	"github.com/dgallion1/citectx/internal/store"
	"github.com/dgallion1/citectx/internal/testutil"
)

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestCollectInputs(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "b.tei.xml", testutil.SampleTEI)
	writeFile(t, dir, "a.xml", testutil.SampleTEI)
	writeFile(t, dir, "readme.md", "x")
	single := writeFile(t, t.TempDir(), "single.pdf", "%PDF-")

	inputs, err := collectInputs([]string{single, dir})
	if err != nil {
		t.Fatalf("collectInputs() error = %v", err)
	}
	want := []string{single, filepath.Join(dir, "a.xml"), filepath.Join(dir, "b.tei.xml")}
	if len(inputs) != len(want) {
		t.Fatalf("expected %d inputs, got %d", len(want), len(inputs))
	}
	for i, in := range inputs {
		if in.Path != want[i] {
			t.Errorf("input %d: expected %s, got %s", i, want[i], in.Path)
		}
	}

	if _, err := collectInputs([]string{filepath.Join(dir, "readme.md")}); err == nil {
		t.Error("expected error for unsupported file")
	}
	if _, err := collectInputs([]string{filepath.Join(dir, "missing.xml")}); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestWriteResults(t *testing.T) {
	w := pipeline.NewWorker(nil, nil, testutil.Logger(), assembler.DefaultConfig(), false)
	results := pipeline.RunBatch(context.Background(), w, []pipeline.Input{
		{Filename: "a.tei.xml", Data: []byte(testutil.SampleTEI)},
		{Filename: "bad.xml", Data: []byte("<TEI/>")},
		{Filename: "b.tei.xml", Data: []byte(testutil.MissingTargetTEI)},
	}, 2)

	db, err := store.Open(filepath.Join(t.TempDir(), "cli.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer db.Close()

	var buf bytes.Buffer
	failed, err := writeResults(context.Background(), &buf, output.FormatTSV, true, results, db)
	if err != nil {
		t.Fatalf("writeResults() error = %v", err)
	}
	if failed != 1 {
		t.Errorf("expected 1 failed document, got %d", failed)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header and 2 rows, got %q", buf.String())
	}
	if !strings.HasPrefix(lines[1], "a\t1\t") || !strings.HasPrefix(lines[2], "b\t1\t") {
		t.Errorf("expected rows in input order, got %q", lines[1:])
	}

	n, err := db.CountDocuments(context.Background())
	if err != nil {
		t.Fatalf("CountDocuments() error = %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 stored documents, got %d", n)
	}
	found, err := db.FindByHash(context.Background(), pipeline.ContentHashHex([]byte(testutil.SampleTEI)))
	if err != nil || found == nil {
		t.Errorf("expected stored document by hash, got %v, %v", found, err)
	}
}

func TestWriteResults_UnknownFormat(t *testing.T) {
	if _, err := writeResults(context.Background(), &bytes.Buffer{}, "xml", true, nil, nil); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestValidateFile(t *testing.T) {
	dir := t.TempDir()
	good := writeFile(t, dir, "good.tei.xml", testutil.SampleTEI)
	problems, _, err := validateFile(good)
	if err != nil {
		t.Fatalf("validateFile() error = %v", err)
	}
	if len(problems) != 0 {
		t.Errorf("expected no problems, got %v", problems)
	}

	bad := strings.Replace(testutil.SampleTEI, "<s>We start here.</s>", "<s>We <hi>start</hi> here.</s><list/>", 1)
	problems, _, err = validateFile(writeFile(t, dir, "bad.tei.xml", bad))
	if err != nil {
		t.Fatalf("validateFile() error = %v", err)
	}
	if len(problems) < 2 {
		t.Errorf("expected every violation to be reported, got %v", problems)
	}

	if _, _, err := validateFile(filepath.Join(dir, "absent.xml")); err == nil {
		t.Error("expected error for unreadable file")
	}
}

func TestExitCode(t *testing.T) {
	if got := exitCode(withCode(ExitDataError, "bad")); got != ExitDataError {
		t.Errorf("expected %d, got %d", ExitDataError, got)
	}
	if got := exitCode(errors.New("plain")); got != ExitError {
		t.Errorf("expected %d, got %d", ExitError, got)
	}
}
