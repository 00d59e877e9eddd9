package doctree

import (
	"github.com/dgallion1/citectx/internal/bibl"
	"github.com/dgallion1/citectx/internal/tei"
)

// Document is one parsed TEI file: the citing work, its body structure and
// its own bibliography.
type Document struct {
	ID         string                     // Caller-supplied identity, usually the file name
	Title      string                     // titleStmt text
	Citing     *bibl.Reference            // Header biblStruct, nil if absent
	Sections   []Section                  // Body sections in document order
	References map[string]*bibl.Reference // Bibliography keyed by xml:id
	Footnotes  []Footnote

	Diagnostics tei.Diagnostics
}

// Section is a body division that starts with a heading. Sections form a
// flat list; nesting is rebuilt from Level during assembly.
type Section struct {
	Title      string
	Number     string // Dotted numbering, e.g. "2.3"; empty if absent or unparsable
	Level      int    // Count of numbering groups; 0 if Number is empty
	Paragraphs []Paragraph
}

type Paragraph struct {
	Index     int // Document-wide, 0-based
	Sentences []Sentence
}

type Sentence struct {
	Index     int // Paragraph-local, 0-based
	Text      string
	Citations []Citation
}

// Citation is a non-empty bibliographic marker inside a sentence.
type Citation struct {
	Index       int
	ReferenceID string // Target bibliography key; empty if the marker has no target
	CharIndex   int    // Offset of Text in the owning sentence, in runes
	Text        string
}

// Footnote is a note placed at the foot of the page.
type Footnote struct {
	N    string `json:"n,omitempty"`
	ID   string `json:"id,omitempty"`
	Text string `json:"text"`
}

// TextFrom returns the sentence text starting at a rune offset.
func (s Sentence) TextFrom(charIndex int) string {
	runes := []rune(s.Text)
	if charIndex < 0 || charIndex > len(runes) {
		return ""
	}
	return string(runes[charIndex:])
}


// Row is one output record linking a citing sentence to the cited work.
// Nil pointers are absent values.
type Row struct {
	DocID           string  `json:"doc_id"`
	CitCount        int     `json:"cit_count"`
	CitingID        *string `json:"citing_id"`
	CitingAuthor    *string `json:"citing_author"`
	CitingTitle     *string `json:"citing_title"`
	CitedID         *string `json:"cited_id"`
	CitedAuthor     *string `json:"cited_author"`
	CitedTitle      *string `json:"cited_title"`
	CitedRaw        *string `json:"cited_raw"`
	CitationRef     string  `json:"citation_ref"`
	CitationSent    string  `json:"citation_sent"`
	CitationContext string  `json:"citation_context"`
	SectionTitle    string  `json:"section_title"`
}
