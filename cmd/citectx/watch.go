package main

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/spf13/cobra"

	"github.com/dgallion1/citectx/internal/output"
	"github.com/dgallion1/citectx/internal/pipeline"
)

var (
	watchOutput string
	watchFormat string
)

func init() {
	watchCmd.Flags().StringVarP(&watchOutput, "output", "o", "-", "Output file, appended to (- for stdout)")
	watchCmd.Flags().StringVar(&watchFormat, "format", output.FormatTSV, "Output format: tsv or jsonl")
	watchCmd.Flags().IntVar(&extractContext, "context", -1, "Sentences of context on each side (default CONTEXT_SIZE)")
	watchCmd.Flags().BoolVar(&extractStrict, "strict", false, "Validate TEI structure before extracting")
	watchCmd.Flags().StringVar(&extractGrobid, "grobid", "", "GROBID service URL for PDF inputs (default GROBID_URL)")
	rootCmd.AddCommand(watchCmd)
}

var watchCmd = &cobra.Command{
	Use:   "watch DIR",
	Short: "Extract citation rows from files as they arrive in a directory",
	Long: `Process every supported file already in DIR, then keep watching it and
append rows for each new or rewritten file until interrupted.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	applyExtractFlags(&cfg)
	if err := cfg.Validate(); err != nil {
		return withCode(ExitConfigError, "invalid configuration: %v", err)
	}
	log := newLogger()

	out, header, closeOut, err := openAppend(watchOutput)
	if err != nil {
		return withCode(ExitError, "%v", err)
	}
	defer closeOut()
	ow, err := output.ForFormat(watchFormat, out, header)
	if err != nil {
		return withCode(ExitError, "%v", err)
	}

	var mu sync.Mutex
	handle := func(res pipeline.Result) {
		if res.Err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", res.Filename, res.Err)
			return
		}
		mu.Lock()
		defer mu.Unlock()
		if err := ow.Write(res.Rows); err != nil {
			log.Error("writing rows", "filename", res.Filename, "error", err)
			return
		}
		if err := ow.Flush(); err != nil {
			log.Error("flushing rows", "filename", res.Filename, "error", err)
		}
	}

	w := pipeline.NewWatcher(args[0], newWorker(cfg, log), log, handle)
	if err := w.Start(cmd.Context()); err != nil {
		return withCode(ExitError, "%v", err)
	}
	log.Info("watching", "dir", args[0])
	<-cmd.Context().Done()
	w.Stop()
	return nil
}

// openAppend opens path for appending and reports whether a header is
// still needed.
func openAppend(path string) (io.Writer, bool, func(), error) {
	if path == "" || path == "-" {
		return os.Stdout, true, func() {}, nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, false, nil, fmt.Errorf("opening output: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, false, nil, fmt.Errorf("opening output: %w", err)
	}
	return f, info.Size() == 0, func() { f.Close() }, nil
}
