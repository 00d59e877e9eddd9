// Package assembler joins a parsed document with its bibliography and
// emits one row per citation.
package assembler

import (
	"strings"

	"github.com/dgallion1/citectx/internal/bibl"
	"github.com/dgallion1/citectx/internal/doctree"
)

// MissingID is the cited id of a citation whose target is not in the
// document's bibliography.
const MissingID = "MISSING"

// Config controls row assembly.
type Config struct {
	ContextSize int    // Sentences on each side of the citing sentence.
	Separator   string // Joins breadcrumb titles.
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		ContextSize: 1,
		Separator:   " -- ",
	}
}

// Assemble walks the document in order and returns its rows. Sections are
// processed sequentially because each one updates the breadcrumb.
func Assemble(doc *doctree.Document, cfg Config) []doctree.Row {
	if cfg.ContextSize < 0 {
		cfg.ContextSize = 0
	}
	if cfg.Separator == "" {
		cfg.Separator = DefaultConfig().Separator
	}

	citing := bibl.Project(doc.Citing)
	missing := MissingID

	var (
		rows  []doctree.Row
		crumb Breadcrumb
		count int
	)
	for _, sec := range doc.Sections {
		crumb = crumb.Push(sec)
		title := crumb.Join(cfg.Separator)

		for _, para := range sec.Paragraphs {
			for i, sent := range para.Sentences {
				if len(sent.Citations) == 0 {
					continue
				}
				context := Window(para.Sentences, i, cfg.ContextSize)
				for _, c := range sent.Citations {
					count++
					cited := bibl.Cited{ID: &missing}
					if ref, ok := doc.References[c.ReferenceID]; ok {
						cited = bibl.Project(ref)
					}
					rows = append(rows, doctree.Row{
						DocID:           doc.ID,
						CitCount:        count,
						CitingID:        citing.ID,
						CitingAuthor:    citing.Authors,
						CitingTitle:     citing.Title,
						CitedID:         cited.ID,
						CitedAuthor:     cited.Authors,
						CitedTitle:      cited.Title,
						CitedRaw:        cited.Raw,
						CitationRef:     c.Text,
						CitationSent:    sent.Text,
						CitationContext: context,
						SectionTitle:    title,
					})
				}
			}
		}
	}
	return rows
}

// Window joins sentences i-n through i+n of a paragraph with spaces,
// clipped at the paragraph's edges.
func Window(sentences []doctree.Sentence, i, n int) string {
	lo := i - min(n, i)
	hi := i + min(n, len(sentences)-1-i)
	parts := make([]string, 0, hi-lo+1)
	for _, s := range sentences[lo : hi+1] {
		parts = append(parts, s.Text)
	}
	return strings.Join(parts, " ")
}
