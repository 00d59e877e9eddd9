// Package output serializes citation rows.
package output

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/dgallion1/citectx/internal/doctree"
)

// Columns is the tabular header, in row field order.
var Columns = []string{
	"doc_id", "cit_count",
	"citing_id", "citing_author", "citing_title",
	"cited_id", "cited_author", "cited_title", "cited_raw",
	"citation_ref", "citation_sent", "citation_context", "section_title",
}

// Supported output formats.
const (
	FormatTSV   = "tsv"
	FormatJSONL = "jsonl"
)

// Writer streams rows to an underlying writer.
type Writer interface {
	Write(rows []doctree.Row) error
	Flush() error
}

// ForFormat returns the writer for a format name. The TSV header is
// written before the first row when header is true.
func ForFormat(format string, w io.Writer, header bool) (Writer, error) {
	switch format {
	case FormatTSV, "":
		return NewTSV(w, header), nil
	case FormatJSONL:
		return NewJSONL(w), nil
	default:
		return nil, fmt.Errorf("unsupported output format: %s", format)
	}
}

// TSVWriter writes tab-separated rows. Absent values become empty cells.
type TSVWriter struct {
	w          *csv.Writer
	needHeader bool
}

func NewTSV(w io.Writer, header bool) *TSVWriter {
	cw := csv.NewWriter(w)
	cw.Comma = '\t'
	return &TSVWriter{w: cw, needHeader: header}
}

func (t *TSVWriter) Write(rows []doctree.Row) error {
	if t.needHeader {
		if err := t.w.Write(Columns); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
		t.needHeader = false
	}
	for _, r := range rows {
		if err := t.w.Write(Record(r)); err != nil {
			return fmt.Errorf("write row %s#%d: %w", r.DocID, r.CitCount, err)
		}
	}
	return nil
}

func (t *TSVWriter) Flush() error {
	t.w.Flush()
	return t.w.Error()
}

// Record flattens a row into its column values.
func Record(r doctree.Row) []string {
	return []string{
		r.DocID, strconv.Itoa(r.CitCount),
		str(r.CitingID), str(r.CitingAuthor), str(r.CitingTitle),
		str(r.CitedID), str(r.CitedAuthor), str(r.CitedTitle), str(r.CitedRaw),
		r.CitationRef, r.CitationSent, r.CitationContext, r.SectionTitle,
	}
}

func str(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// JSONLWriter writes one JSON object per row. Absent values are null.
type JSONLWriter struct {
	enc *json.Encoder
}

func NewJSONL(w io.Writer) *JSONLWriter {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return &JSONLWriter{enc: enc}
}

func (j *JSONLWriter) Write(rows []doctree.Row) error {
	for _, r := range rows {
		if err := j.enc.Encode(r); err != nil {
			return fmt.Errorf("encode row %s#%d: %w", r.DocID, r.CitCount, err)
		}
	}
	return nil
}

func (j *JSONLWriter) Flush() error { return nil }
