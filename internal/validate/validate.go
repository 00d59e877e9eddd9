// Package validate checks that TEI markup has the element shapes the parser
// relies on. It is an optional strict pre-check; every violation found is
// reported, not only the first.
package validate

import (
	"errors"

	"github.com/beevik/etree"

	"github.com/dgallion1/citectx/internal/tei"
)

var (
	authorFields   = set("persName", "email", "idno")
	persNameFields = set("forename", "surname", "roleName", "genName")
	analyticFields = set("title", "author", "idno", "ptr")
	monogrFields   = set("title", "meeting", "imprint", "idno", "editor", "author", "ptr", "respStmt")
	imprintFields  = set("biblScope", "date", "publisher", "pubPlace")

	// RefTypes are the marker types GROBID emits inside sentences.
	RefTypes = set("bibr", "foot", "figure", "table", "formula")
)

func set(tags ...string) map[string]bool {
	m := make(map[string]bool, len(tags))
	for _, t := range tags {
		m[t] = true
	}
	return m
}

// Validate checks the text element of a TEI document. The result joins one
// *tei.StructuralError per violation, or is nil.
func Validate(text *etree.Element) error {
	var errs []error
	errs = append(errs, Text(text)...)
	errs = append(errs, Authors(text)...)
	errs = append(errs, Bibliography(text)...)
	errs = append(errs, Refs(text)...)
	return errors.Join(errs...)
}

// Text checks that paragraphs hold only sentences and sentences hold only
// refs.
func Text(text *etree.Element) []error {
	var errs []error
	for _, p := range tei.FindAll(text, "p") {
		for _, child := range p.ChildElements() {
			if !tei.HasTag(child, "s") {
				errs = append(errs, tei.Structural(child, "paragraph contains an element other than s: %q", tei.LocalName(child)))
			}
		}
	}
	for _, s := range tei.FindAll(text, "s") {
		for _, child := range s.ChildElements() {
			if !tei.HasTag(child, "ref") {
				errs = append(errs, tei.Structural(child, "sentence contains an element other than ref: %q", tei.LocalName(child)))
			}
		}
	}
	return errs
}

// Authors checks author and persName children.
func Authors(text *etree.Element) []error {
	var errs []error
	for _, author := range tei.FindAll(text, "author") {
		for _, child := range author.ChildElements() {
			errs = append(errs, within(child, "author", authorFields)...)
			if !tei.HasTag(child, "persName") {
				continue
			}
			for _, part := range child.ChildElements() {
				errs = append(errs, within(part, "persName", persNameFields)...)
			}
		}
	}
	return errs
}

// Bibliography checks every entry of the first listBibl. A document
// without a bibliography passes.
func Bibliography(text *etree.Element) []error {
	list := tei.FindFirst(text, "listBibl")
	if list == nil {
		return nil
	}
	var errs []error
	for _, bs := range tei.FindAll(list, "biblStruct") {
		monogr := tei.FindFirst(bs, "monogr")
		if monogr == nil {
			errs = append(errs, tei.Structural(bs, "bibliographic entry has no monogr element"))
			continue
		}
		if analytic := tei.FindFirst(bs, "analytic"); analytic != nil {
			errs = append(errs, children(analytic, "analytic", analyticFields)...)
		}
		errs = append(errs, children(monogr, "monogr", monogrFields)...)
		if imprint := tei.FindFirst(monogr, "imprint"); imprint != nil {
			errs = append(errs, children(imprint, "imprint", imprintFields)...)
		}
	}
	return errs
}

// Refs checks that every marker carries a known type.
func Refs(text *etree.Element) []error {
	var errs []error
	for _, ref := range tei.FindAll(text, "ref") {
		typ, ok := tei.Attr(ref, "type")
		switch {
		case !ok:
			errs = append(errs, tei.Structural(ref, "reference has no type"))
		case !RefTypes[typ]:
			errs = append(errs, tei.Structural(ref, "unexpected reference type %q", typ))
		}
	}
	return errs
}

func children(el *etree.Element, parent string, allowed map[string]bool) []error {
	var errs []error
	for _, child := range el.ChildElements() {
		errs = append(errs, within(child, parent, allowed)...)
	}
	return errs
}

func within(el *etree.Element, parent string, allowed map[string]bool) []error {
	name := tei.LocalName(el)
	if !allowed[name] || !tei.HasTag(el, name) {
		return []error{tei.Structural(el, "unexpected tag in %s: %q", parent, tei.QName(el))}
	}
	return nil
}
