package parser

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/beevik/etree"

	"github.com/dgallion1/citectx/internal/doctree"
	"github.com/dgallion1/citectx/internal/tei"
)

// BibliographicRef is the ref type that becomes a Citation. Footnote,
// figure, table and formula markers contribute text only.
const BibliographicRef = "bibr"

var sectionNumber = regexp.MustCompile(`^\d+(\.\d+)*\.?$`)

// ParseSections returns every div whose first child element is a head, in
// document order. Paragraphs are numbered across the whole body. A nil
// body yields no sections.
func ParseSections(body *etree.Element) ([]doctree.Section, error) {
	var sections []doctree.Section
	paraIndex := 0
	for _, div := range tei.FindAll(body, "div") {
		children := div.ChildElements()
		if len(children) == 0 || !tei.HasTag(children[0], "head") {
			continue
		}
		sec := sectionHeading(children[0])
		for _, p := range tei.FindAll(div, "p") {
			para, err := ParseParagraph(p, paraIndex)
			if err != nil {
				return nil, err
			}
			sec.Paragraphs = append(sec.Paragraphs, para)
			paraIndex++
		}
		sections = append(sections, sec)
	}
	return sections, nil
}

// sectionHeading reads the title and numbering of a head element. Title
// fragments split by inline markup are trimmed and joined with a space.
func sectionHeading(head *etree.Element) doctree.Section {
	var parts []string
	for _, t := range tei.Texts(head) {
		if t = strings.TrimSpace(t); t != "" {
			parts = append(parts, t)
		}
	}
	sec := doctree.Section{Title: strings.Join(parts, " ")}
	n, ok := tei.Attr(head, "n")
	n = strings.TrimSpace(n)
	if !ok || !sectionNumber.MatchString(n) {
		return sec
	}
	sec.Number = strings.TrimSuffix(n, ".")
	sec.Level = strings.Count(sec.Number, ".") + 1
	return sec
}

// ParseParagraph reads the sentences of one p element. Character data
// directly under p is layout whitespace and is ignored.
func ParseParagraph(p *etree.Element, index int) (doctree.Paragraph, error) {
	para := doctree.Paragraph{Index: index}
	for i, s := range p.ChildElements() {
		if !tei.HasTag(s, "s") {
			return para, tei.Structural(s, "paragraph child must be a sentence, found %q", tei.LocalName(s))
		}
		sent, err := ParseSentence(s, i)
		if err != nil {
			return para, err
		}
		para.Sentences = append(para.Sentences, sent)
	}
	return para, nil
}

// ParseSentence folds the children of an s element into its text and the
// bibliographic citations found along the way. Each citation's CharIndex
// is the rune length of the text emitted before it.
func ParseSentence(s *etree.Element, index int) (doctree.Sentence, error) {
	var (
		b         strings.Builder
		offset    int
		citations []doctree.Citation
	)
	emit := func(text string) {
		b.WriteString(text)
		offset += utf8.RuneCountInString(text)
	}

	// An empty marker is dropped together with the text that follows it.
	dropTail := false
	for _, tok := range s.Child {
		switch t := tok.(type) {
		case *etree.CharData:
			if dropTail {
				dropTail = false
				continue
			}
			emit(t.Data)
		case *etree.Element:
			if !tei.HasTag(t, "ref") {
				return doctree.Sentence{}, tei.Structural(t, "sentence child must be a ref, found %q", tei.LocalName(t))
			}
			text := tei.Text(t)
			if text == "" {
				dropTail = true
				continue
			}
			dropTail = false
			if typ, _ := tei.Attr(t, "type"); typ == BibliographicRef {
				citations = append(citations, doctree.Citation{
					Index:       len(citations),
					ReferenceID: referenceID(t),
					CharIndex:   offset,
					Text:        text,
				})
			}
			emit(text)
		}
	}

	sent := doctree.Sentence{Index: index, Text: b.String(), Citations: citations}
	for _, c := range citations {
		if !strings.HasPrefix(sent.TextFrom(c.CharIndex), c.Text) {
			return doctree.Sentence{}, &tei.OffsetError{Sentence: sent.Text, CharIndex: c.CharIndex, Citation: c.Text}
		}
	}
	return sent, nil
}

// referenceID returns the bibliography key a marker points at, without
// its leading "#".
func referenceID(ref *etree.Element) string {
	target, ok := tei.Attr(ref, "target")
	if !ok {
		return ""
	}
	return strings.TrimPrefix(target, "#")
}
