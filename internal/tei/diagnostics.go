package tei

import "fmt"

// Diagnostic codes for non-fatal conditions.
const (
	DiagUnknownNamePart    = "unknown-name-part"
	DiagMissingBiblKey     = "missing-bibl-key"
	DiagMissingCanonicalID = "missing-canonical-id"
	DiagMissingHeader      = "missing-header"
)

// Diagnostic is a warning raised while reading a document. It never stops
// row production.
type Diagnostic struct {
	Code    string `json:"code"`
	Path    string `json:"path,omitempty"`
	Message string `json:"message"`
}

func (d Diagnostic) String() string {
	if d.Path == "" {
		return d.Code + ": " + d.Message
	}
	return fmt.Sprintf("%s: %s (at %s)", d.Code, d.Message, d.Path)
}

// Diagnostics collects warnings for one document. A nil *Diagnostics
// discards everything added to it.
type Diagnostics struct {
	items []Diagnostic
}

// Add records a warning.
func (d *Diagnostics) Add(code, path, format string, args ...any) {
	if d == nil {
		return
	}
	d.items = append(d.items, Diagnostic{Code: code, Path: path, Message: fmt.Sprintf(format, args...)})
}

// Items returns the collected warnings in the order they were raised.
func (d *Diagnostics) Items() []Diagnostic {
	if d == nil {
		return nil
	}
	return d.items
}

// Len returns the number of collected warnings.
func (d *Diagnostics) Len() int {
	if d == nil {
		return 0
	}
	return len(d.items)
}
