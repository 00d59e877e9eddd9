package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/dgallion1/citectx/internal/doctree"
)

// Input is one document handed to RunBatch. When Data is nil the file at
// Path is read.
type Input struct {
	Path     string
	Filename string
	Data     []byte
}

// Result is the outcome of extracting one document.
type Result struct {
	Filename string
	Hash     string // SHA-256 of the input bytes
	Doc      *doctree.Document
	Rows     []doctree.Row
	Err      error
}

// RunBatch extracts every input with at most workers documents in flight.
// Results come back in input order; a failed document only sets Err on its
// own result.
func RunBatch(ctx context.Context, w *Worker, inputs []Input, workers int) []Result {
	if workers <= 0 {
		workers = 1
	}
	results := make([]Result, len(inputs))
	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup

	for i, in := range inputs {
		name := in.Filename
		if name == "" {
			name = filepath.Base(in.Path)
		}
		results[i].Filename = name

		select {
		case <-ctx.Done():
			results[i].Err = ctx.Err()
			continue
		case sem <- struct{}{}:
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() { <-sem }()

			data := in.Data
			if data == nil {
				var err error
				data, err = os.ReadFile(in.Path)
				if err != nil {
					results[i].Err = fmt.Errorf("read %s: %w", in.Path, err)
					return
				}
			}
			results[i].Hash = ContentHashHex(data)
			doc, rows, err := w.Extract(ctx, data, name)
			if err != nil {
				w.log.Error("document failed", "filename", name, "error", err)
				results[i].Err = err
				return
			}
			for _, d := range doc.Diagnostics.Items() {
				w.log.Warn("document warning", "filename", name, "code", d.Code, "path", d.Path, "message", d.Message)
			}
			results[i].Doc = doc
			results[i].Rows = rows
		}()
	}

	wg.Wait()
	return results
}
