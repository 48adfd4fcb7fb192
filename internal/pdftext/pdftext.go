// Package pdftext extracts per-page text from PDF bytes. Parsing is
// CPU-bound and is never called from an HTTP handler goroutine: the
// orchestrator calls Extract from a job's background run goroutine in
// local mode, and cmd/worker calls it from an asynq worker in
// distributed mode.
package pdftext

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

var (
	ErrMalformedPDF   = errors.New("malformed pdf")
	ErrEncryptedPDF   = errors.New("encrypted pdf")
	ErrEmptyExtraction = errors.New("no text extracted from any page")
)

// Page holds the extracted text for a single page. Pages that yield no
// text are omitted by Extract, never returned with an empty Text.
type Page struct {
	Number int
	Text   string
}

// Extract parses data as a PDF and returns the text of every page that
// produced one. A PDF that parses but yields text on zero pages is
// reported as ErrEmptyExtraction, which callers must treat as a
// per-edital failure rather than aborting the whole job.
func Extract(data []byte) ([]Page, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		if strings.Contains(err.Error(), "encrypt") {
			return nil, fmt.Errorf("%w: %v", ErrEncryptedPDF, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrMalformedPDF, err)
	}

	numPages := reader.NumPage()
	pages := make([]Page, 0, numPages)

	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}

		fonts := make(map[string]*pdf.Font)
		text, err := page.GetPlainText(fonts)
		if err != nil {
			continue
		}

		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}

		pages = append(pages, Page{Number: i, Text: text})
	}

	if len(pages) == 0 {
		return nil, ErrEmptyExtraction
	}

	return pages, nil
}

// Join concatenates pages with a page separator marker. The extractor's
// chunker does not split on this marker; it cuts fixed-size windows.
func Join(pages []Page) string {
	var b strings.Builder
	for _, p := range pages {
		if b.Len() > 0 {
			b.WriteString("\n\n--- PAGE BREAK ---\n\n")
		}
		b.WriteString(p.Text)
	}
	return b.String()
}
