// Package extractor pulls plain text out of uploaded question papers:
// PDFs with an embedded text layer directly, scanned PDFs and photographed
// papers through OCR, and DOCX files through their XML content.
package extractor

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
)

// DocumentChunk is the text of one page of a source document.
type DocumentChunk struct {
	PageNumber int
	Text       string
	Document   string
}

// FullText joins page chunks into the single string the analyzer consumes.
func FullText(chunks []DocumentChunk) string {
	parts := make([]string, 0, len(chunks))
	for _, c := range chunks {
		parts = append(parts, c.Text)
	}
	return strings.Join(parts, "\n")
}

// ExtractPDF reads the embedded text layer page by page. A PDF with pages
// but no extractable text is assumed to be scanned and goes through OCR
// when a provider is configured.
func ExtractPDF(filePath string, ocrCfg *OCRConfig) ([]DocumentChunk, error) {
	f, r, err := pdf.Open(filePath)
	if err != nil {
		// Unreadable by the PDF library; OCR may still manage.
		if ocrCfg != nil && ocrCfg.Available() {
			return RunOCR(*ocrCfg, filePath)
		}
		return nil, fmt.Errorf("failed to open pdf: %w", err)
	}
	defer f.Close()

	fileName := filepath.Base(filePath)
	numPages := r.NumPage()

	var chunks []DocumentChunk
	for pageIndex := 1; pageIndex <= numPages; pageIndex++ {
		p := r.Page(pageIndex)
		if p.V.IsNull() {
			continue
		}
		text, err := p.GetPlainText(nil)
		if err != nil {
			continue
		}
		if strings.TrimSpace(text) == "" {
			continue
		}
		chunks = append(chunks, DocumentChunk{
			PageNumber: pageIndex,
			Text:       text,
			Document:   fileName,
		})
	}

	if len(chunks) == 0 && numPages > 0 {
		if ocrCfg != nil && ocrCfg.Available() {
			return RunOCR(*ocrCfg, filePath)
		}
		return nil, fmt.Errorf("no text extracted from %s (scanned paper? configure OCR in Settings)", fileName)
	}
	return chunks, nil
}
