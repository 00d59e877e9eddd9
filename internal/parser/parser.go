package parser

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/dgallion1/citectx/internal/doctree"
)

// Parser converts raw document bytes into a Document.
type Parser interface {
	Parse(r io.Reader, filename string) (*doctree.Document, error)
}

// SupportedExtensions lists file extensions this service can handle.
var SupportedExtensions = map[string]bool{
	".xml": true,
	".tei": true,
	".pdf": true,
}

// ForFile returns the appropriate parser for a filename. PDFs are parsed
// by the TEI parser after conversion; see NeedsConversion.
func ForFile(filename string, strict bool) (Parser, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".xml", ".tei", ".pdf":
		return &TEIParser{Strict: strict}, nil
	default:
		return nil, fmt.Errorf("unsupported file extension: %s", ext)
	}
}

// IsSupportedExtension checks if a file extension is supported.
func IsSupportedExtension(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	return SupportedExtensions[ext]
}

// NeedsConversion reports whether the file must go through GROBID before
// it can be parsed.
func NeedsConversion(filename string) bool {
	return strings.EqualFold(filepath.Ext(filename), ".pdf")
}

// DocID derives a document id from a file name: the base name without
// its ".tei.xml" or other extension.
func DocID(filename string) string {
	base := filepath.Base(filename)
	lower := strings.ToLower(base)
	for _, suffix := range []string{".tei.xml", ".grobid.xml"} {
		if strings.HasSuffix(lower, suffix) {
			return base[:len(base)-len(suffix)]
		}
	}
	return strings.TrimSuffix(base, filepath.Ext(base))
}
