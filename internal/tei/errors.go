package tei

import (
	"errors"
	"fmt"
	"strings"

	"github.com/beevik/etree"
)

// Sentinels for the fatal error classes. Each typed error below unwraps to
// one of them so callers can use errors.Is.
var (
	ErrStructural      = errors.New("structural violation")
	ErrAmbiguousID     = errors.New("ambiguous identifier")
	ErrOffsetInvariant = errors.New("citation offset invariant violated")
)

// StructuralError reports markup that does not have the expected shape.
type StructuralError struct {
	Tag    string // logical tag of the offending element
	Path   string // ancestry of the offending element
	Reason string
}

func (e *StructuralError) Error() string {
	return fmt.Sprintf("%s: %s (at %s)", ErrStructural, e.Reason, e.Path)
}

func (e *StructuralError) Unwrap() error { return ErrStructural }

// Structural builds a StructuralError for el.
func Structural(el *etree.Element, format string, args ...any) *StructuralError {
	se := &StructuralError{Reason: fmt.Sprintf(format, args...)}
	if el != nil {
		se.Tag = LocalName(el)
		se.Path = Path(el)
	}
	return se
}

// AmbiguousIDError reports a bibliography entry carrying more than one DOI.
type AmbiguousIDError struct {
	Key  string // bibliography key, empty if the entry has none
	DOIs []string
}

func (e *AmbiguousIDError) Error() string {
	key := e.Key
	if key == "" {
		key = "<unkeyed>"
	}
	return fmt.Sprintf("%s: entry %s has %d DOIs: %s", ErrAmbiguousID, key, len(e.DOIs), strings.Join(e.DOIs, ", "))
}

func (e *AmbiguousIDError) Unwrap() error { return ErrAmbiguousID }

// OffsetError reports a citation whose recorded offset does not point at
// its own text inside the reconstructed sentence.
type OffsetError struct {
	Sentence  string
	CharIndex int
	Citation  string
}

func (e *OffsetError) Error() string {
	return fmt.Sprintf("%s: %q not found at offset %d of %q", ErrOffsetInvariant, e.Citation, e.CharIndex, e.Sentence)
}

func (e *OffsetError) Unwrap() error { return ErrOffsetInvariant }
