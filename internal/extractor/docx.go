package extractor

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/nguyenthenguyen/docx"
)

// DOCX has no physical pages, so paragraphs are grouped into blocks of
// roughly this many characters to give questions stable page numbers.
const docxCharsPerPage = 3000

// ExtractDOCX extracts the paragraph text of a DOCX file.
func ExtractDOCX(filePath string) ([]DocumentChunk, error) {
	r, err := docx.ReadDocxFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read docx: %w", err)
	}
	defer r.Close()

	fileName := filepath.Base(filePath)
	paragraphs := splitDOCXParagraphs(r.Editable().GetContent())

	var chunks []DocumentChunk
	var page strings.Builder
	pageNum := 1
	flush := func() {
		if page.Len() == 0 {
			return
		}
		chunks = append(chunks, DocumentChunk{
			PageNumber: pageNum,
			Text:       strings.TrimSpace(page.String()),
			Document:   fileName,
		})
		pageNum++
		page.Reset()
	}

	for _, para := range paragraphs {
		if page.Len() > 0 && page.Len()+len(para) > docxCharsPerPage {
			flush()
		}
		if page.Len() > 0 {
			page.WriteString("\n")
		}
		page.WriteString(para)
	}
	flush()

	if len(chunks) == 0 {
		chunks = append(chunks, DocumentChunk{PageNumber: 1, Document: fileName})
	}
	return chunks, nil
}

// splitDOCXParagraphs cuts the document XML at paragraph tags and strips
// the remaining markup from each piece.
func splitDOCXParagraphs(xmlStr string) []string {
	var paragraphs []string
	for _, part := range strings.Split(xmlStr, "<w:p") {
		cleaned := strings.TrimSpace(stripTags(part))
		if cleaned != "" {
			paragraphs = append(paragraphs, cleaned)
		}
	}
	return paragraphs
}

func stripTags(xmlStr string) string {
	var sb strings.Builder
	inTag := false
	for _, r := range xmlStr {
		switch {
		case r == '<':
			inTag = true
		case r == '>':
			inTag = false
		case !inTag:
			sb.WriteRune(r)
		}
	}
	return sb.String()
}
