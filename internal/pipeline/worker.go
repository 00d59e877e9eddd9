package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dgallion1/citectx/internal/assembler"
	"github.com/dgallion1/citectx/internal/doctree"
	"github.com/dgallion1/citectx/internal/grobid"
	"github.com/dgallion1/citectx/internal/parser"
	"github.com/dgallion1/citectx/internal/store"
	"github.com/dgallion1/citectx/internal/tei"
)

// Converter turns a PDF into TEI markup.
type Converter interface {
	Convert(ctx context.Context, data []byte, filename string) ([]byte, error)
}

// Worker runs the extraction pipeline for single documents.
type Worker struct {
	converter Converter // nil disables PDF input
	store     *store.DB // nil disables persistence
	log       *slog.Logger
	asmCfg    assembler.Config
	strict    bool
}

func NewWorker(conv Converter, db *store.DB, log *slog.Logger, asmCfg assembler.Config, strict bool) *Worker {
	return &Worker{
		converter: conv,
		store:     db,
		log:       log,
		asmCfg:    asmCfg,
		strict:    strict,
	}
}

// Extract converts (if needed), parses and assembles one document. Any
// structural, identifier or offset error aborts the document.
func (w *Worker) Extract(ctx context.Context, data []byte, filename string) (*doctree.Document, []doctree.Row, error) {
	if parser.NeedsConversion(filename) {
		converted, err := w.convert(ctx, data, filename)
		if err != nil {
			return nil, nil, err
		}
		data = converted
	}

	p, err := parser.ForFile(filename, w.strict)
	if err != nil {
		return nil, nil, err
	}
	doc, err := p.Parse(bytes.NewReader(data), filename)
	if err != nil {
		return nil, nil, fmt.Errorf("parse %s: %w", filename, err)
	}
	return doc, assembler.Assemble(doc, w.asmCfg), nil
}

func (w *Worker) convert(ctx context.Context, data []byte, filename string) ([]byte, error) {
	if w.converter == nil {
		return nil, fmt.Errorf("%s: pdf input requires a grobid service", filename)
	}
	pages, err := grobid.InspectPDF(data)
	if err != nil {
		return nil, fmt.Errorf("inspect %s: %w", filename, err)
	}
	w.log.Debug("converting pdf", "filename", filename, "pages", pages)
	return w.converter.Convert(ctx, data, filename)
}

// Process runs the full pipeline for a queued job and records the outcome
// on it.
func (w *Worker) Process(ctx context.Context, job *Job) {
	log := w.log.With("job_id", job.ID, "doc_id", job.DocID, "filename", job.Filename)
	defer job.releaseFileData()

	// Phase 1: Dedup check
	if w.store != nil && !job.Force {
		existing, err := w.store.FindByHash(ctx, job.ContentHash)
		if err != nil {
			log.Warn("dedup check failed, proceeding", "error", err)
		} else if existing != nil {
			log.Info("duplicate document, skipping", "existing_doc_id", existing.ID)
			job.MarkDuplicate(existing.ID)
			return
		}
	}

	data := job.FileData()

	// Phase 2: Convert
	if parser.NeedsConversion(job.Filename) {
		job.SetStatus(StatusConverting, "converting")
		converted, err := w.convert(ctx, data, job.Filename)
		if err != nil {
			w.fail(log, job, "converting", err)
			return
		}
		data = converted
	}

	// Phase 3: Parse
	job.SetStatus(StatusParsing, "parsing")
	p, err := parser.ForFile(job.Filename, w.strict)
	if err != nil {
		w.fail(log, job, "parsing", err)
		return
	}
	doc, err := p.Parse(bytes.NewReader(data), job.Filename)
	if err != nil {
		w.fail(log, job, "parsing", err)
		return
	}
	job.SetDocument(doc)
	for _, d := range doc.Diagnostics.Items() {
		log.Warn("document warning", "code", d.Code, "path", d.Path, "message", d.Message)
	}

	// Phase 4: Assemble
	job.SetStatus(StatusAssembling, "assembling")
	rows := assembler.Assemble(doc, w.asmCfg)
	job.SetRows(rows)
	log.Info("assembled rows", "rows", len(rows), "sections", len(doc.Sections), "references", len(doc.References))

	// Phase 5: Store
	if w.store != nil {
		job.SetStatus(StatusStoring, "storing")
		rec := store.Document{
			ID:          job.DocID,
			DocID:       doc.ID,
			Filename:    job.Filename,
			Title:       doc.Title,
			ContentHash: job.ContentHash,
			Warnings:    doc.Diagnostics.Len(),
		}
		if doc.Citing != nil {
			rec.CitingID = doc.Citing.ID
		}
		if err := w.store.SaveDocument(ctx, rec, rows); err != nil {
			w.fail(log, job, "storing", err)
			return
		}
	}

	job.SetStatus(StatusCompleted, "done")
}

func (w *Worker) fail(log *slog.Logger, job *Job, phase string, err error) {
	attrs := []any{"phase", phase, "error", err}
	var se *tei.StructuralError
	if errors.As(err, &se) {
		attrs = append(attrs, "element", se.Tag, "path", se.Path)
	}
	log.Error("document failed", attrs...)
	job.AddError(fmt.Sprintf("%s: %s", phase, err))
	job.SetStatus(StatusFailed, phase)
}
