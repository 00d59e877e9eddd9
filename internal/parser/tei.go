// Package parser turns TEI markup into the document tree consumed by the
// assembler.
package parser

import (
	"fmt"
	"io"
	"strings"

	"github.com/beevik/etree"

	"github.com/dgallion1/citectx/internal/bibl"
	"github.com/dgallion1/citectx/internal/doctree"
	"github.com/dgallion1/citectx/internal/tei"
	"github.com/dgallion1/citectx/internal/validate"
)

// TitleSeparator joins the fragments of the header title statement.
const TitleSeparator = " <> "

// TEIParser handles GROBID TEI output.
type TEIParser struct {
	// Strict runs the schema validator before parsing and fails on any
	// violation it reports.
	Strict bool
}

func (p *TEIParser) Parse(r io.Reader, filename string) (*doctree.Document, error) {
	xml, err := tei.Parse(r)
	if err != nil {
		return nil, err
	}
	header, text := tei.Split(xml)
	if text == nil {
		return nil, tei.Structural(xml.Root(), "document has no text element")
	}

	if p.Strict {
		if err := validate.Validate(text); err != nil {
			return nil, fmt.Errorf("validate %s: %w", filename, err)
		}
	}

	doc := &doctree.Document{ID: DocID(filename)}
	if err := ParseHeader(header, doc); err != nil {
		return nil, err
	}

	doc.References, err = bibl.ResolveAll(text, &doc.Diagnostics)
	if err != nil {
		return nil, err
	}

	doc.Sections, err = ParseSections(tei.FindFirst(text, "body"))
	if err != nil {
		return nil, err
	}
	doc.Footnotes = ParseFootnotes(text)
	return doc, nil
}

// ParseHeader fills the citing-work metadata from the teiHeader. A
// missing header biblStruct leaves Citing nil and records a diagnostic.
func ParseHeader(header *etree.Element, doc *doctree.Document) error {
	if stmt := tei.FindFirst(header, "titleStmt"); stmt != nil {
		var parts []string
		for _, t := range tei.Texts(stmt) {
			if t = strings.TrimSpace(t); t != "" {
				parts = append(parts, t)
			}
		}
		doc.Title = strings.Join(parts, TitleSeparator)
	}

	bs := tei.FindFirst(header, "biblStruct")
	if bs == nil {
		doc.Diagnostics.Add(tei.DiagMissingHeader, tei.Path(header), "header has no biblStruct; citing fields will be empty")
		return nil
	}
	ref, err := bibl.Resolve(bs, &doc.Diagnostics)
	if err != nil {
		return fmt.Errorf("header: %w", err)
	}
	doc.Citing = ref
	return nil
}

// ParseFootnotes collects notes placed at the foot of the page.
func ParseFootnotes(text *etree.Element) []doctree.Footnote {
	var notes []doctree.Footnote
	for _, el := range tei.FindAll(text, "note") {
		if place, _ := tei.Attr(el, "place"); place != "foot" {
			continue
		}
		n, _ := tei.Attr(el, "n")
		id, _ := tei.Attr(el, "id")
		notes = append(notes, doctree.Footnote{N: n, ID: id, Text: strings.TrimSpace(tei.Text(el))})
	}
	return notes
}
