package assembler

import (
	"math"
	"strings"
	"testing"

	"github.com/dgallion1/citectx/internal/doctree"
	"github.com/dgallion1/citectx/internal/parser"
	"github.com/dgallion1/citectx/internal/testutil"
)

func parse(t *testing.T, src string) *doctree.Document {
	t.Helper()
	doc, err := (&parser.TEIParser{}).Parse(strings.NewReader(src), "sample.tei.xml")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return doc
}

func deref(s *string) string {
	if s == nil {
		return "<nil>"
	}
	return *s
}

func TestAssemble_ResolvedCitation(t *testing.T) {
	rows := Assemble(parse(t, testutil.SampleTEI), DefaultConfig())
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	r := rows[0]
	if r.DocID != "sample" || r.CitCount != 1 {
		t.Errorf("unexpected identity: %q #%d", r.DocID, r.CitCount)
	}
	checks := []struct {
		field string
		got   string
		want  string
	}{
		{"citing_id", deref(r.CitingID), "10.9/self"},
		{"citing_author", deref(r.CitingAuthor), "Ada Lovelace, Charles Babbage"},
		{"citing_title", deref(r.CitingTitle), "Citation Contexts in Practice"},
		{"cited_id", deref(r.CitedID), "doi:10.1/x"},
		{"cited_author", deref(r.CitedAuthor), "Grace Hopper"},
		{"cited_title", deref(r.CitedTitle), "Prior Work"},
		{"cited_raw", deref(r.CitedRaw), "G. Hopper. Prior Work. Journal of Things 12, 1952."},
		{"citation_ref", r.CitationRef, "[5]"},
		{"citation_sent", r.CitationSent, "Earlier work [5] did this."},
		{"citation_context", r.CitationContext, "We start here. Earlier work [5] did this."},
		{"section_title", r.SectionTitle, "Background -- Method"},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s: expected %q, got %q", c.field, c.want, c.got)
		}
	}
}

func TestAssemble_MissingTarget(t *testing.T) {
	rows := Assemble(parse(t, testutil.MissingTargetTEI), DefaultConfig())
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	r := rows[0]
	if deref(r.CitedID) != MissingID {
		t.Errorf("expected cited id %q, got %q", MissingID, deref(r.CitedID))
	}
	if r.CitedTitle != nil || r.CitedAuthor != nil || r.CitedRaw != nil {
		t.Errorf("expected nil cited fields, got %+v", r)
	}
	if deref(r.CitingID) != "10.9/self" {
		t.Errorf("expected citing fields still populated, got %q", deref(r.CitingID))
	}
}

func TestAssemble_CountContinuesAcrossSections(t *testing.T) {
	doc := &doctree.Document{
		ID: "d",
		Sections: []doctree.Section{
			{Title: "A", Level: 1, Paragraphs: []doctree.Paragraph{{Sentences: []doctree.Sentence{
				{Text: "x [1] [2]", Citations: []doctree.Citation{{Text: "[1]"}, {Index: 1, Text: "[2]"}}},
			}}}},
			{Title: "Unnumbered", Paragraphs: []doctree.Paragraph{{Sentences: []doctree.Sentence{
				{Text: "y [3]", Citations: []doctree.Citation{{Text: "[3]"}}},
			}}}},
		},
	}
	rows := Assemble(doc, Config{ContextSize: 1})
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}
	for i, r := range rows {
		if r.CitCount != i+1 {
			t.Errorf("row %d: expected count %d, got %d", i, i+1, r.CitCount)
		}
		if r.CitingID != nil {
			t.Errorf("row %d: expected nil citing id without header", i)
		}
	}
	if rows[2].SectionTitle != "A" {
		t.Errorf("expected unnumbered section to keep breadcrumb, got %q", rows[2].SectionTitle)
	}
}

func TestAssemble_NoCitations(t *testing.T) {
	doc := &doctree.Document{Sections: []doctree.Section{{Title: "A", Level: 1}}}
	if rows := Assemble(doc, DefaultConfig()); len(rows) != 0 {
		t.Errorf("expected no rows, got %d", len(rows))
	}
}

func TestWindow(t *testing.T) {
	sents := []doctree.Sentence{{Text: "a"}, {Text: "b"}, {Text: "c"}, {Text: "d"}}
	tests := []struct {
		i, n int
		want string
	}{
		{0, 1, "a b"},
		{1, 1, "a b c"},
		{3, 1, "c d"},
		{2, 0, "c"},
		{1, 5, "a b c d"},
		{1, math.MaxInt, "a b c d"},
	}
	for _, tt := range tests {
		if got := Window(sents, tt.i, tt.n); got != tt.want {
			t.Errorf("Window(%d, %d): expected %q, got %q", tt.i, tt.n, tt.want, got)
		}
	}
}
