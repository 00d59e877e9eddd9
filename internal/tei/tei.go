// Package tei reads GROBID-style TEI documents and resolves their
// namespace-qualified element names.
//
// Names are compared in Clark notation ("{uri}local"). Every logical tag
// lives in the TEI namespace except "id", which is reserved for the XML
// namespace (the xml:id attribute).
package tei

import (
	"fmt"
	"io"
	"strings"

	"github.com/beevik/etree"
	"golang.org/x/net/html/charset"
)

const (
	// Namespace is the default TEI document namespace.
	Namespace = "http://www.tei-c.org/ns/1.0"
	// XMLNamespace is the namespace bound to the reserved "xml" prefix.
	XMLNamespace = "http://www.w3.org/XML/1998/namespace"
)

var knownNamespaces = [...]string{Namespace, XMLNamespace}

func namespaceFor(tag string) string {
	if tag == "id" {
		return XMLNamespace
	}
	return Namespace
}

// Qualify returns the Clark-notation name of a logical tag.
func Qualify(tag string) string {
	return "{" + namespaceFor(tag) + "}" + tag
}

// Strip removes a known namespace from a qualified name. Names in other
// namespaces are returned unchanged.
func Strip(qualified string) string {
	for _, ns := range knownNamespaces {
		if rest, ok := strings.CutPrefix(qualified, "{"+ns+"}"); ok {
			return rest
		}
	}
	return qualified
}

// QName returns the Clark-notation name of an element.
func QName(el *etree.Element) string {
	uri := el.NamespaceURI()
	if el.Space == "xml" {
		uri = XMLNamespace
	}
	if uri == "" {
		return el.Tag
	}
	return "{" + uri + "}" + el.Tag
}

// LocalName returns the logical tag of an element.
func LocalName(el *etree.Element) string {
	return Strip(QName(el))
}

// HasTag reports whether el is the qualified form of tag.
func HasTag(el *etree.Element, tag string) bool {
	return el != nil && QName(el) == Qualify(tag)
}

func wanted(tag string) string {
	if strings.HasPrefix(tag, "{") {
		return tag
	}
	return Qualify(tag)
}

// FindAll returns el and every descendant matching tag, in document order.
func FindAll(el *etree.Element, tag string) []*etree.Element {
	if el == nil {
		return nil
	}
	want := wanted(tag)
	var found []*etree.Element
	var walk func(*etree.Element)
	walk = func(e *etree.Element) {
		if QName(e) == want {
			found = append(found, e)
		}
		for _, child := range e.ChildElements() {
			walk(child)
		}
	}
	walk(el)
	return found
}

// FindFirst returns the first element matching tag in document order, or nil.
func FindFirst(el *etree.Element, tag string) *etree.Element {
	if el == nil {
		return nil
	}
	want := wanted(tag)
	var walk func(*etree.Element) *etree.Element
	walk = func(e *etree.Element) *etree.Element {
		if QName(e) == want {
			return e
		}
		for _, child := range e.ChildElements() {
			if m := walk(child); m != nil {
				return m
			}
		}
		return nil
	}
	return walk(el)
}

// Child returns the first direct child matching tag, or nil.
func Child(el *etree.Element, tag string) *etree.Element {
	if el == nil {
		return nil
	}
	for _, c := range el.ChildElements() {
		if HasTag(c, tag) {
			return c
		}
	}
	return nil
}

func attrNamespace(a *etree.Attr) string {
	if a.Space == "xml" {
		return XMLNamespace
	}
	return a.NamespaceURI()
}

// Attr looks up an attribute by logical name. "id" resolves to xml:id;
// every other name matches an unprefixed attribute.
func Attr(el *etree.Element, name string) (string, bool) {
	if el == nil {
		return "", false
	}
	for i := range el.Attr {
		a := &el.Attr[i]
		if a.Key != name {
			continue
		}
		if name == "id" {
			if attrNamespace(a) == XMLNamespace {
				return a.Value, true
			}
			continue
		}
		if a.Space == "" {
			return a.Value, true
		}
	}
	return "", false
}

// Attrs returns the element's attributes keyed by their prefixed name.
// Namespace declarations are omitted.
func Attrs(el *etree.Element) map[string]string {
	var out map[string]string
	for _, a := range el.Attr {
		if a.Space == "xmlns" || (a.Space == "" && a.Key == "xmlns") {
			continue
		}
		if out == nil {
			out = make(map[string]string, len(el.Attr))
		}
		out[a.FullKey()] = a.Value
	}
	return out
}

// Texts returns every character-data fragment under el in document order.
// The element's own tail is not included.
func Texts(el *etree.Element) []string {
	var parts []string
	var walk func(*etree.Element)
	walk = func(e *etree.Element) {
		for _, tok := range e.Child {
			switch t := tok.(type) {
			case *etree.CharData:
				parts = append(parts, t.Data)
			case *etree.Element:
				walk(t)
			}
		}
	}
	walk(el)
	return parts
}

// Text concatenates every character-data fragment under el.
func Text(el *etree.Element) string {
	return strings.Join(Texts(el), "")
}

// Path describes an element's ancestry for diagnostics.
func Path(el *etree.Element) string {
	if el == nil {
		return ""
	}
	return el.GetPath()
}

// Parse reads a TEI document. Non-UTF-8 encodings declared in the XML
// prolog are decoded through x/net's charset tables.
func Parse(r io.Reader) (*etree.Document, error) {
	doc := etree.NewDocument()
	doc.ReadSettings.CharsetReader = charset.NewReaderLabel
	if _, err := doc.ReadFrom(r); err != nil {
		return nil, fmt.Errorf("read tei: %w", err)
	}
	if doc.Root() == nil {
		return nil, fmt.Errorf("read tei: document has no root element")
	}
	return doc, nil
}

// Split returns the teiHeader and text children of the document root.
// Either may be nil.
func Split(doc *etree.Document) (header, text *etree.Element) {
	root := doc.Root()
	return Child(root, "teiHeader"), Child(root, "text")
}
