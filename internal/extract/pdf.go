package extract

import (
	"bytes"
	"fmt"

	"github.com/ledongthuc/pdf"
)

// TextReader returns the embedded text layer of every page, in page order. Pages
// without a text layer yield "".
type TextReader interface {
	PageTexts(content []byte) ([]string, error)
}

// PDFTextReader reads text layers with ledongthuc/pdf.
type PDFTextReader struct{}

// PageTexts implements TextReader. Panics from malformed documents are returned as errors.
func (PDFTextReader) PageTexts(content []byte) (pages []string, err error) {
	defer func() {
		if r := recover(); r != nil {
			pages, err = nil, fmt.Errorf("malformed PDF: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, fmt.Errorf("open PDF: %w", err)
	}
	numPages := r.NumPage()
	pages = make([]string, 0, numPages)
	for i := 0; i < numPages; i++ {
		page := r.Page(i + 1)
		if page.V.IsNull() {
			pages = append(pages, "")
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("extract page %d: %w", i+1, err)
		}
		pages = append(pages, text)
	}
	return pages, nil
}
