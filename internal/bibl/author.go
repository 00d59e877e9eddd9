package bibl

import (
	"strings"

	"github.com/beevik/etree"

	"github.com/dgallion1/citectx/internal/tei"
)

// Author is either a structured person name or, for entries without any
// child elements, the raw text of the author element. Other children
// (affiliation, email, idno) are kept as generic fields.
type Author struct {
	Name   *PersonName `json:"name,omitempty"`
	Raw    string      `json:"raw,omitempty"`
	Fields []Field     `json:"fields,omitempty"`
}

// PersonName is a decomposed persName. Repeated parts (first and middle
// forenames) are joined with a space in document order.
type PersonName struct {
	Forename string  `json:"forename,omitempty"`
	Surname  string  `json:"surname,omitempty"`
	RoleName string  `json:"role_name,omitempty"`
	GenName  string  `json:"gen_name,omitempty"`
	Other    []Field `json:"other,omitempty"`
}

// DisplayName formats the name as "forename surname", the surname alone,
// or the empty string.
func (a Author) DisplayName() string {
	if a.Name == nil {
		return ""
	}
	switch {
	case a.Name.Forename != "" && a.Name.Surname != "":
		return a.Name.Forename + " " + a.Name.Surname
	case a.Name.Surname != "":
		return a.Name.Surname
	}
	return ""
}

// FormatAuthors joins display names with ", ". Authors without a person
// name are skipped.
func FormatAuthors(authors []Author) string {
	names := make([]string, 0, len(authors))
	for _, a := range authors {
		if a.Name == nil {
			continue
		}
		names = append(names, a.DisplayName())
	}
	return strings.Join(names, ", ")
}

// extractAuthors collects every author element under scope, depth-first.
func extractAuthors(scope *etree.Element, diags *tei.Diagnostics) []Author {
	elements := tei.FindAll(scope, "author")
	authors := make([]Author, 0, len(elements))
	for _, el := range elements {
		var a Author
		children := el.ChildElements()
		if len(children) == 0 {
			a.Raw = strings.TrimSpace(tei.Text(el))
		}
		for _, child := range children {
			tag := tei.LocalName(child)
			if tag == "persName" {
				a.Name = extractName(child, diags)
				continue
			}
			a.Fields = append(a.Fields, Field{
				Tag: tag,
				TextBlock: TextBlock{
					Text:  joinNonBlank(tei.Texts(child), " -- "),
					Attrs: tei.Attrs(child),
				},
			})
		}
		authors = append(authors, a)
	}
	return authors
}

func extractName(el *etree.Element, diags *tei.Diagnostics) *PersonName {
	name := &PersonName{}
	for _, part := range el.ChildElements() {
		tag := tei.LocalName(part)
		value := strings.Join(tei.Texts(part), " ")
		switch tag {
		case "forename":
			name.Forename = appendPart(name.Forename, value)
		case "surname":
			name.Surname = appendPart(name.Surname, value)
		case "roleName":
			name.RoleName = appendPart(name.RoleName, value)
		case "genName":
			name.GenName = appendPart(name.GenName, value)
		default:
			diags.Add(tei.DiagUnknownNamePart, tei.Path(part), "unexpected name part %q", tag)
			name.Other = append(name.Other, Field{Tag: tag, TextBlock: TextBlock{Text: value, Attrs: tei.Attrs(part)}})
		}
	}
	return name
}

func appendPart(existing, value string) string {
	if existing == "" {
		return value
	}
	if value == "" {
		return existing
	}
	return existing + " " + value
}

func joinNonBlank(parts []string, sep string) string {
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, sep)
}
