package ingest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/ledongthuc/pdf"
)

// pageSource is the page-level view of a PDF the extractor needs.
type pageSource interface {
	NumPage() int
	PageText(num int) (string, error)
}

type pdfDocument struct {
	reader *pdf.Reader
}

func (d pdfDocument) NumPage() int { return d.reader.NumPage() }

func (d pdfDocument) PageText(num int) (string, error) {
	p := d.reader.Page(num)
	if p.V.IsNull() {
		return "", nil
	}
	return p.GetPlainText(nil)
}

// PDFIngestor extracts the text layer of a PDF page by page.
type PDFIngestor struct{}

// NewPDFIngestor creates a PDF ingestor.
func NewPDFIngestor() *PDFIngestor { return &PDFIngestor{} }

// Kind returns the file kind this ingestor handles.
func (p *PDFIngestor) Kind() Kind { return KindPDF }

// Extract concatenates page texts in document order with no separator.
// Pages whose text cannot be extracted contribute nothing.
func (p *PDFIngestor) Extract(ctx context.Context, data []byte) (string, error) {
	doc, err := openPDF(data)
	if err != nil {
		return "", err
	}
	return extractPages(ctx, doc)
}

func openPDF(data []byte) (doc pageSource, err error) {
	if len(data) == 0 {
		return nil, errors.New("empty pdf")
	}
	defer func() {
		if r := recover(); r != nil {
			doc = nil
			err = fmt.Errorf("open pdf: %v", r)
		}
	}()
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	return pdfDocument{reader: r}, nil
}

func extractPages(ctx context.Context, doc pageSource) (string, error) {
	var b strings.Builder
	for i := 1; i <= doc.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		b.WriteString(pageText(doc, i))
	}
	return b.String(), nil
}

func pageText(doc pageSource, num int) (text string) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("pdf page %d: %v", num, r)
			text = ""
		}
	}()
	text, err := doc.PageText(num)
	if err != nil {
		log.Printf("pdf page %d: %v", num, err)
		return ""
	}
	return text
}
