package extractor

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ExtractFile dispatches on the file extension. Plain text files pass
// through unchanged.
func ExtractFile(filePath string, ocrCfg *OCRConfig) ([]DocumentChunk, error) {
	switch strings.ToLower(filepath.Ext(filePath)) {
	case ".pdf":
		return ExtractPDF(filePath, ocrCfg)
	case ".docx":
		return ExtractDOCX(filePath)
	case ".png", ".jpg", ".jpeg":
		cfg := OCRConfig{}
		if ocrCfg != nil {
			cfg = *ocrCfg
		}
		return ExtractImage(cfg, filePath)
	case ".txt":
		data, err := os.ReadFile(filePath)
		if err != nil {
			return nil, err
		}
		return []DocumentChunk{{PageNumber: 1, Text: string(data), Document: filepath.Base(filePath)}}, nil
	default:
		return nil, fmt.Errorf("unsupported file type: %s", filepath.Ext(filePath))
	}
}

// SupportedExt reports whether uploads with this filename are accepted.
func SupportedExt(fileName string) bool {
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".pdf", ".docx", ".png", ".jpg", ".jpeg", ".txt":
		return true
	}
	return false
}
