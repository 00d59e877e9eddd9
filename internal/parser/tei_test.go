package parser

import (
	"errors"
	"strings"
	"testing"

	"github.com/beevik/etree"

	"github.com/dgallion1/citectx/internal/tei"
	"github.com/dgallion1/citectx/internal/testutil"
)

func sentence(t *testing.T, inner string) *etree.Element {
	t.Helper()
	doc, err := tei.Parse(strings.NewReader(`<s xmlns="http://www.tei-c.org/ns/1.0">` + inner + `</s>`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return doc.Root()
}

func body(t *testing.T, inner string) *etree.Element {
	t.Helper()
	doc, err := tei.Parse(strings.NewReader(`<body xmlns="http://www.tei-c.org/ns/1.0">` + inner + `</body>`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return doc.Root()
}

func TestTEIParser_Sample(t *testing.T) {
	p := &TEIParser{Strict: true}
	doc, err := p.Parse(strings.NewReader(testutil.SampleTEI), "papers/hopper2024.tei.xml")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.ID != "hopper2024" {
		t.Errorf("expected id hopper2024, got %q", doc.ID)
	}
	if doc.Title != "Citation Contexts in Practice" {
		t.Errorf("expected title, got %q", doc.Title)
	}
	if doc.Citing == nil || doc.Citing.ID == nil || *doc.Citing.ID != "10.9/self" {
		t.Errorf("expected citing id 10.9/self, got %+v", doc.Citing)
	}
	if len(doc.Sections) != 2 {
		t.Fatalf("expected 2 sections, got %d", len(doc.Sections))
	}

	method := doc.Sections[1]
	if method.Title != "Method" || method.Number != "2.1" || method.Level != 2 {
		t.Errorf("unexpected section: %+v", method)
	}
	if len(method.Paragraphs) != 1 || method.Paragraphs[0].Index != 1 {
		t.Fatalf("expected one paragraph with global index 1, got %+v", method.Paragraphs)
	}
	sents := method.Paragraphs[0].Sentences
	if len(sents) != 2 {
		t.Fatalf("expected 2 sentences, got %d", len(sents))
	}
	if len(sents[0].Citations) != 0 {
		t.Errorf("expected no citations in first sentence")
	}
	if len(sents[1].Citations) != 1 {
		t.Fatalf("expected 1 citation, got %d", len(sents[1].Citations))
	}
	c := sents[1].Citations[0]
	if c.ReferenceID != "b5" || c.Text != "[5]" || c.CharIndex != len("Earlier work ") {
		t.Errorf("unexpected citation: %+v", c)
	}

	if doc.References["b5"] == nil {
		t.Error("expected b5 in reference map")
	}
	if len(doc.Footnotes) != 1 || doc.Footnotes[0].N != "1" || doc.Footnotes[0].ID != "foot_0" {
		t.Errorf("unexpected footnotes: %+v", doc.Footnotes)
	}
	if doc.Diagnostics.Len() != 0 {
		t.Errorf("expected no diagnostics, got %v", doc.Diagnostics.Items())
	}
}

func TestTEIParser_NoText(t *testing.T) {
	p := &TEIParser{}
	_, err := p.Parse(strings.NewReader(`<TEI xmlns="http://www.tei-c.org/ns/1.0"><teiHeader/></TEI>`), "x.xml")
	if !errors.Is(err, tei.ErrStructural) {
		t.Errorf("expected ErrStructural, got %v", err)
	}
}

func TestTEIParser_MissingHeader(t *testing.T) {
	p := &TEIParser{}
	doc, err := p.Parse(strings.NewReader(`<TEI xmlns="http://www.tei-c.org/ns/1.0"><text><body/></text></TEI>`), "x.xml")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.Citing != nil {
		t.Error("expected nil citing reference")
	}
	if doc.Diagnostics.Len() != 1 || doc.Diagnostics.Items()[0].Code != tei.DiagMissingHeader {
		t.Errorf("expected missing-header diagnostic, got %v", doc.Diagnostics.Items())
	}
	if len(doc.Sections) != 0 || len(doc.References) != 0 {
		t.Errorf("expected empty document, got %+v", doc)
	}
}

func TestParseSentence_Offsets(t *testing.T) {
	s := sentence(t, `See <ref type="figure" target="#fig_0">Fig. 1</ref> and <ref type="bibr" target="#b1">Smith</ref>, <ref type="bibr"></ref>also <ref type="bibr" target="#b2">[2]</ref>.`)
	sent, err := ParseSentence(s, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sent.Index != 3 {
		t.Errorf("expected index 3, got %d", sent.Index)
	}
	want := "See Fig. 1 and Smith, [2]."
	if sent.Text != want {
		t.Errorf("expected %q, got %q", want, sent.Text)
	}
	if len(sent.Citations) != 2 {
		t.Fatalf("expected 2 citations, got %+v", sent.Citations)
	}
	first, second := sent.Citations[0], sent.Citations[1]
	if first.Index != 0 || first.ReferenceID != "b1" || first.CharIndex != 15 {
		t.Errorf("unexpected first citation: %+v", first)
	}
	if second.Index != 1 || second.ReferenceID != "b2" || second.CharIndex != 22 {
		t.Errorf("unexpected second citation: %+v", second)
	}
	for _, c := range sent.Citations {
		if !strings.HasPrefix(sent.TextFrom(c.CharIndex), c.Text) {
			t.Errorf("citation %q not at offset %d", c.Text, c.CharIndex)
		}
	}
}

func TestParseSentence_EmptyMarkerDropsTail(t *testing.T) {
	sent, err := ParseSentence(sentence(t, `A <ref type="bibr"></ref>tail <ref type="bibr" target="#b1">[1]</ref>.`), 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sent.Text != "A [1]." {
		t.Errorf("expected %q, got %q", "A [1].", sent.Text)
	}
	if len(sent.Citations) != 1 || sent.Citations[0].CharIndex != 2 {
		t.Errorf("expected one citation at offset 2, got %+v", sent.Citations)
	}
}

func TestParseSentence_RuneOffsets(t *testing.T) {
	s := sentence(t, `Über α-Modelle <ref type="bibr" target="#b0">[1]</ref>.`)
	sent, err := ParseSentence(s, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	c := sent.Citations[0]
	if c.CharIndex != len([]rune("Über α-Modelle ")) {
		t.Errorf("expected rune offset, got %d", c.CharIndex)
	}
	if got := sent.TextFrom(c.CharIndex); got != "[1]." {
		t.Errorf("expected %q, got %q", "[1].", got)
	}
}

func TestParseSentence_NoTarget(t *testing.T) {
	sent, err := ParseSentence(sentence(t, `As shown <ref type="bibr">[7]</ref>.`), 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sent.Citations[0].ReferenceID != "" {
		t.Errorf("expected empty reference id, got %q", sent.Citations[0].ReferenceID)
	}
}

func TestParseSentence_NestedMarkerText(t *testing.T) {
	sent, err := ParseSentence(sentence(t, `Cf. <ref type="bibr" target="#b3">Doe <hi>et al.</hi></ref> here.`), 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sent.Text != "Cf. Doe et al. here." {
		t.Errorf("unexpected text %q", sent.Text)
	}
	if sent.Citations[0].Text != "Doe et al." {
		t.Errorf("unexpected marker text %q", sent.Citations[0].Text)
	}
}

func TestParseSentence_RejectsNonRef(t *testing.T) {
	_, err := ParseSentence(sentence(t, `Bad <hi>child</hi>.`), 0)
	var se *tei.StructuralError
	if !errors.As(err, &se) {
		t.Fatalf("expected StructuralError, got %v", err)
	}
	if se.Tag != "hi" {
		t.Errorf("expected offending tag hi, got %q", se.Tag)
	}
}

func TestParseParagraph_RejectsNonSentence(t *testing.T) {
	b := body(t, `<div><head>X</head><p><s>Fine.</s><formula>x</formula></p></div>`)
	_, err := ParseSections(b)
	if !errors.Is(err, tei.ErrStructural) {
		t.Errorf("expected ErrStructural, got %v", err)
	}
}

func TestParseSections_Rules(t *testing.T) {
	b := body(t, `
		<div><p><s>Abstract-ish, no head.</s></p></div>
		<div><head n="3.">Results</head><p><s>One.</s></p><p><s>Two.</s></p></div>
		<div><head n="A.1">Appendix</head><p><s>Three.</s></p></div>
		<div><head>Discussion</head>
			<div><head n="4.1">Nested</head><p><s>Four.</s></p></div>
		</div>`)
	sections, err := ParseSections(b)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sections) != 4 {
		t.Fatalf("expected 4 sections, got %d", len(sections))
	}
	if sections[0].Number != "3" || sections[0].Level != 1 {
		t.Errorf("expected trailing dot accepted, got %+v", sections[0])
	}
	if sections[1].Number != "" || sections[1].Level != 0 {
		t.Errorf("expected unparsable numbering dropped, got %+v", sections[1])
	}
	if sections[2].Title != "Discussion" || len(sections[2].Paragraphs) != 1 {
		t.Errorf("expected outer div to collect nested paragraph, got %+v", sections[2])
	}
	if sections[3].Level != 2 {
		t.Errorf("expected nested level 2, got %d", sections[3].Level)
	}

	var indexes []int
	for _, sec := range sections {
		for _, p := range sec.Paragraphs {
			indexes = append(indexes, p.Index)
		}
	}
	want := []int{0, 1, 2, 3, 4}
	if len(indexes) != len(want) {
		t.Fatalf("expected paragraph indexes %v, got %v", want, indexes)
	}
	for i := range want {
		if indexes[i] != want[i] {
			t.Errorf("paragraph %d: expected index %d, got %d", i, want[i], indexes[i])
		}
	}
}

func TestParseSections_NilBody(t *testing.T) {
	sections, err := ParseSections(nil)
	if err != nil || len(sections) != 0 {
		t.Errorf("expected no sections, got %v (err=%v)", sections, err)
	}
}

func TestSectionHeading_InlineMarkup(t *testing.T) {
	b := body(t, `<div><head n="3">Deep <hi rend="italic">nets</hi>  </head><p><s>x</s></p></div>`)
	sections, err := ParseSections(b)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sections) != 1 || sections[0].Title != "Deep nets" {
		t.Errorf("expected title %q, got %+v", "Deep nets", sections)
	}
}
