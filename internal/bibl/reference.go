// Package bibl resolves TEI bibliography entries (biblStruct) into
// canonical references.
package bibl

// TextBlock is the generic capture of an element we keep but do not model:
// its text and its attributes.
type TextBlock struct {
	Text  string            `json:"text"`
	Attrs map[string]string `json:"attrs,omitempty"`
}

// Field is a TextBlock tagged with the logical name of its element.
type Field struct {
	Tag string `json:"tag"`
	TextBlock
}

// Idno is an external identifier such as a DOI, arXiv id or MD5 hash.
type Idno struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// Reference is the canonical form of one bibliography entry.
type Reference struct {
	Key      string    `json:"key,omitempty"` // Entry's own xml:id
	ID       *string   `json:"id"`            // Canonical identifier (DOI first)
	Analytic *Analytic `json:"analytic,omitempty"`
	Monogr   Monogr    `json:"monogr"`
	RawRef   *string   `json:"raw_ref,omitempty"`
	Idno     []Idno    `json:"idno,omitempty"`
	DOI      *string   `json:"doi,omitempty"`
}

// Analytic holds article-level details.
type Analytic struct {
	ID      *string  `json:"id,omitempty"`
	Title   *string  `json:"title,omitempty"`
	Authors []Author `json:"authors"`
	RefIDs  []Idno   `json:"ref_ids,omitempty"`
	DOI     *string  `json:"doi,omitempty"`
}

// Monogr holds container-level details: the journal, book or proceedings.
type Monogr struct {
	Authors []Author `json:"authors"`
	Imprint *Imprint `json:"imprint,omitempty"`
	Fields  []Field  `json:"fields,omitempty"` // Every other direct child, in order
}

// Field returns the first captured child with the given tag, or nil. Later
// children with the same tag stay in Fields but are not returned.
func (m *Monogr) Field(tag string) *TextBlock {
	for i := range m.Fields {
		if m.Fields[i].Tag == tag {
			return &m.Fields[i].TextBlock
		}
	}
	return nil
}

// Title returns the container title, or nil.
func (m *Monogr) Title() *TextBlock {
	return m.Field("title")
}

// Imprint holds publication details.
type Imprint struct {
	Publisher *TextBlock  `json:"publisher,omitempty"`
	PubPlace  *TextBlock  `json:"pub_place,omitempty"`
	Date      *TextBlock  `json:"date,omitempty"`
	Scopes    []TextBlock `json:"scopes,omitempty"` // biblScope: volume, issue, page range
	Other     []Field     `json:"other,omitempty"`
}
