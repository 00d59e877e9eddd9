package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/dgallion1/citectx/internal/assembler"
	"github.com/dgallion1/citectx/internal/config"
	"github.com/dgallion1/citectx/internal/grobid"
	"github.com/dgallion1/citectx/internal/output"
	"github.com/dgallion1/citectx/internal/parser"
	"github.com/dgallion1/citectx/internal/pipeline"
	"github.com/dgallion1/citectx/internal/store"
)

var (
	extractOutput   string
	extractFormat   string
	extractWorkers  int
	extractContext  int
	extractStrict   bool
	extractDB       string
	extractGrobid   string
	extractNoHeader bool
)

func init() {
	extractCmd.Flags().StringVarP(&extractOutput, "output", "o", "-", "Output file (- for stdout)")
	extractCmd.Flags().StringVar(&extractFormat, "format", output.FormatTSV, "Output format: tsv or jsonl")
	extractCmd.Flags().IntVar(&extractWorkers, "workers", 0, "Documents processed concurrently (default WORKER_COUNT)")
	extractCmd.Flags().IntVar(&extractContext, "context", -1, "Sentences of context on each side (default CONTEXT_SIZE)")
	extractCmd.Flags().BoolVar(&extractStrict, "strict", false, "Validate TEI structure before extracting")
	extractCmd.Flags().StringVar(&extractDB, "db", "", "Also store rows in this SQLite database")
	extractCmd.Flags().StringVar(&extractGrobid, "grobid", "", "GROBID service URL for PDF inputs (default GROBID_URL)")
	extractCmd.Flags().BoolVar(&extractNoHeader, "no-header", false, "Omit the TSV header line")
	rootCmd.AddCommand(extractCmd)
}

var extractCmd = &cobra.Command{
	Use:   "extract FILES...",
	Short: "Extract citation rows from TEI or PDF files",
	Long: `Extract one row per bibliographic citation from each input.

Inputs may be files or directories; directories contribute every .xml,
.tei and .pdf file they contain. PDFs are converted through GROBID first.
A document that fails is reported on stderr and the others still
contribute rows; the exit code is then 3.

Examples:
  citectx extract paper.tei.xml
  citectx extract papers/ -o contexts.tsv --workers 8
  citectx extract paper.pdf --grobid http://localhost:8070 --format jsonl`,
	Args: cobra.MinimumNArgs(1),
	RunE: runExtract,
}

func runExtract(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	applyExtractFlags(&cfg)
	if err := cfg.Validate(); err != nil {
		return withCode(ExitConfigError, "invalid configuration: %v", err)
	}
	log := newLogger()

	inputs, err := collectInputs(args)
	if err != nil {
		return withCode(ExitError, "%v", err)
	}
	if len(inputs) == 0 {
		return withCode(ExitError, "no supported input files found")
	}

	var db *store.DB
	if extractDB != "" {
		db, err = store.Open(extractDB)
		if err != nil {
			return withCode(ExitConfigError, "opening database: %v", err)
		}
		defer db.Close()
	}

	w := newWorker(cfg, log)
	results := pipeline.RunBatch(cmd.Context(), w, inputs, cfg.WorkerCount)

	out, closeOut, err := openOutput(extractOutput)
	if err != nil {
		return withCode(ExitError, "%v", err)
	}
	defer closeOut()

	failed, err := writeResults(cmd.Context(), out, extractFormat, !extractNoHeader, results, db)
	if err != nil {
		return withCode(ExitError, "%v", err)
	}
	if failed > 0 {
		return withCode(ExitDataError, "%d of %d documents failed", failed, len(results))
	}
	return nil
}

func applyExtractFlags(cfg *config.Config) {
	if extractWorkers > 0 {
		cfg.WorkerCount = extractWorkers
	}
	if extractContext >= 0 {
		cfg.ContextSize = extractContext
	}
	if extractStrict {
		cfg.StrictValidation = true
	}
	if extractGrobid != "" {
		cfg.GrobidURL = extractGrobid
	}
}

func newWorker(cfg config.Config, log *slog.Logger) *pipeline.Worker {
	gc := grobid.NewClient(cfg.GrobidURL, cfg.GrobidTimeout, grobid.WithRateLimit(cfg.GrobidRateLimit))
	asmCfg := assembler.DefaultConfig()
	asmCfg.ContextSize = cfg.ContextSize
	return pipeline.NewWorker(gc, nil, log, asmCfg, cfg.StrictValidation)
}

// collectInputs expands directories into their supported files. Explicit
// file arguments are kept in the order given.
func collectInputs(args []string) ([]pipeline.Input, error) {
	var inputs []pipeline.Input
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", arg, err)
		}
		if !info.IsDir() {
			if !parser.IsSupportedExtension(arg) {
				return nil, fmt.Errorf("unsupported file type: %s", arg)
			}
			inputs = append(inputs, pipeline.Input{Path: arg})
			continue
		}
		entries, err := os.ReadDir(arg)
		if err != nil {
			return nil, fmt.Errorf("reading directory %s: %w", arg, err)
		}
		var names []string
		for _, e := range entries {
			if !e.IsDir() && parser.IsSupportedExtension(e.Name()) {
				names = append(names, e.Name())
			}
		}
		sort.Strings(names)
		for _, name := range names {
			inputs = append(inputs, pipeline.Input{Path: filepath.Join(arg, name)})
		}
	}
	return inputs, nil
}

func openOutput(path string) (io.Writer, func(), error) {
	if path == "" || path == "-" {
		return os.Stdout, func() {}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("creating output: %w", err)
	}
	return f, func() { f.Close() }, nil
}

// writeResults writes rows of successful documents in input order and
// reports failures on stderr. It returns the number of failed documents.
func writeResults(ctx context.Context, out io.Writer, format string, header bool, results []pipeline.Result, db *store.DB) (int, error) {
	ow, err := output.ForFormat(format, out, header)
	if err != nil {
		return 0, err
	}
	failed := 0
	for _, res := range results {
		if res.Err != nil {
			failed++
			fmt.Fprintf(os.Stderr, "%s: %v\n", res.Filename, res.Err)
			continue
		}
		if err := ow.Write(res.Rows); err != nil {
			return failed, fmt.Errorf("writing rows: %w", err)
		}
		if db != nil {
			if err := saveResult(ctx, db, res); err != nil {
				return failed, err
			}
		}
	}
	return failed, ow.Flush()
}

func saveResult(ctx context.Context, db *store.DB, res pipeline.Result) error {
	rec := store.Document{
		ID:          uuid.NewString(),
		DocID:       res.Doc.ID,
		Filename:    res.Filename,
		Title:       res.Doc.Title,
		ContentHash: res.Hash,
		Warnings:    res.Doc.Diagnostics.Len(),
	}
	if res.Doc.Citing != nil {
		rec.CitingID = res.Doc.Citing.ID
	}
	if err := db.SaveDocument(ctx, rec, res.Rows); err != nil {
		return fmt.Errorf("storing %s: %w", res.Filename, err)
	}
	return nil
}
