package bibl

import (
	"strings"

	"github.com/beevik/etree"

	"github.com/dgallion1/citectx/internal/tei"
)

// TitleSeparator joins the text fragments of an analytic title so that
// nested markup (italics, formulas) does not lose any text.
const TitleSeparator = " ---- "

// Resolve converts one biblStruct into a Reference. An entry without a
// monogr block is a structural error; an entry with more than one DOI is
// ambiguous. Everything else degrades to nil fields and diagnostics.
func Resolve(bs *etree.Element, diags *tei.Diagnostics) (*Reference, error) {
	key, _ := tei.Attr(bs, "id")

	idnos := extractIdno(bs)
	doi, err := singleDOI(key, idnos)
	if err != nil {
		return nil, err
	}

	monogrEl := tei.FindFirst(bs, "monogr")
	if monogrEl == nil {
		return nil, tei.Structural(bs, "bibliographic entry has no monogr element")
	}

	ref := &Reference{
		Key:    key,
		ID:     canonicalID(doi, idnos),
		Monogr: extractMonogr(monogrEl, diags),
		RawRef: extractRawRef(bs),
		Idno:   idnos,
		DOI:    doi,
	}
	if ref.ID == nil {
		diags.Add(tei.DiagMissingCanonicalID, tei.Path(bs), "entry %q has no usable identifier", key)
	}

	if analyticEl := tei.FindFirst(bs, "analytic"); analyticEl != nil {
		a, err := extractAnalytic(analyticEl, key, diags)
		if err != nil {
			return nil, err
		}
		ref.Analytic = a
	}
	return ref, nil
}

// ResolveAll builds the reference map from the first listBibl under scope.
// Entries without an xml:id are unreachable by any marker and are skipped.
func ResolveAll(scope *etree.Element, diags *tei.Diagnostics) (map[string]*Reference, error) {
	refs := make(map[string]*Reference)
	list := tei.FindFirst(scope, "listBibl")
	if list == nil {
		return refs, nil
	}
	for _, bs := range tei.FindAll(list, "biblStruct") {
		key, ok := tei.Attr(bs, "id")
		if !ok || key == "" {
			diags.Add(tei.DiagMissingBiblKey, tei.Path(bs), "bibliography entry has no xml:id")
			continue
		}
		ref, err := Resolve(bs, diags)
		if err != nil {
			return nil, err
		}
		refs[key] = ref
	}
	return refs, nil
}

func extractIdno(scope *etree.Element) []Idno {
	var ids []Idno
	for _, el := range tei.FindAll(scope, "idno") {
		typ, ok := tei.Attr(el, "type")
		if !ok || typ == "" {
			typ = "unknown"
		}
		ids = append(ids, Idno{Type: typ, Value: strings.TrimSpace(tei.Text(el))})
	}
	return ids
}

func dois(ids []Idno) []string {
	var out []string
	for _, id := range ids {
		if strings.EqualFold(id.Type, "DOI") {
			out = append(out, id.Value)
		}
	}
	return out
}

func singleDOI(key string, ids []Idno) (*string, error) {
	found := dois(ids)
	switch len(found) {
	case 0:
		return nil, nil
	case 1:
		return &found[0], nil
	}
	return nil, &tei.AmbiguousIDError{Key: key, DOIs: found}
}

// canonicalID prefers the DOI, then the first identifier in document order.
func canonicalID(doi *string, ids []Idno) *string {
	if doi != nil {
		return doi
	}
	if len(ids) == 0 || ids[0].Value == "" {
		return nil
	}
	v := ids[0].Value
	return &v
}

func extractAnalytic(el *etree.Element, key string, diags *tei.Diagnostics) (*Analytic, error) {
	a := &Analytic{Authors: extractAuthors(el, diags)}
	if key != "" {
		a.ID = &key
	}
	if title := tei.FindFirst(el, "title"); title != nil {
		t := strings.Join(tei.Texts(title), TitleSeparator)
		a.Title = &t
	}
	a.RefIDs = extractIdno(el)
	doi, err := singleDOI(key, a.RefIDs)
	if err != nil {
		return nil, err
	}
	a.DOI = doi
	return a, nil
}

func extractMonogr(el *etree.Element, diags *tei.Diagnostics) Monogr {
	m := Monogr{Authors: extractAuthors(el, diags)}
	for _, child := range el.ChildElements() {
		switch tag := tei.LocalName(child); tag {
		case "author":
		case "imprint":
			m.Imprint = extractImprint(child)
		default:
			m.Fields = append(m.Fields, Field{Tag: tag, TextBlock: block(child)})
		}
	}
	return m
}

func extractImprint(el *etree.Element) *Imprint {
	imp := &Imprint{}
	for _, child := range el.ChildElements() {
		b := block(child)
		switch tag := tei.LocalName(child); tag {
		case "publisher":
			imp.Publisher = &b
		case "pubPlace":
			imp.PubPlace = &b
		case "date":
			imp.Date = &b
		case "biblScope":
			imp.Scopes = append(imp.Scopes, b)
		default:
			imp.Other = append(imp.Other, Field{Tag: tag, TextBlock: b})
		}
	}
	return imp
}

func block(el *etree.Element) TextBlock {
	return TextBlock{Text: strings.Join(tei.Texts(el), " "), Attrs: tei.Attrs(el)}
}

func extractRawRef(bs *etree.Element) *string {
	for _, note := range tei.FindAll(bs, "note") {
		if typ, _ := tei.Attr(note, "type"); typ != "raw_reference" {
			continue
		}
		text := strings.TrimSpace(tei.Text(note))
		if text == "" {
			return nil
		}
		return &text
	}
	return nil
}
