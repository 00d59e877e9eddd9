package grobid

import (
	"bytes"
	"errors"
	"fmt"

	pdflib "github.com/ledongthuc/pdf"
)

// ErrNotPDF is returned for uploads that are not readable PDF files.
var ErrNotPDF = errors.New("not a pdf document")

// InspectPDF checks that data is a readable PDF before it is sent for
// conversion and returns its page count.
func InspectPDF(data []byte) (pages int, err error) {
	if !bytes.HasPrefix(data, []byte("%PDF-")) {
		return 0, fmt.Errorf("%w: missing header", ErrNotPDF)
	}
	defer func() {
		// The reader panics on some truncated cross-reference tables.
		if r := recover(); r != nil {
			pages, err = 0, fmt.Errorf("%w: %v", ErrNotPDF, r)
		}
	}()
	reader, err := pdflib.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrNotPDF, err)
	}
	n := reader.NumPage()
	if n == 0 {
		return 0, fmt.Errorf("%w: no pages", ErrNotPDF)
	}
	return n, nil
}
