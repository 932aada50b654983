package main

import (
	"io"
	"net/http"
	"os"

	"paperscope/internal/extractor"
	"paperscope/internal/paper"
)

// handleUpload accepts multipart uploads of question papers. Each saved
// file becomes a paper record in the "uploaded" state; analysis is a
// separate step.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	// Parse multipart (max 100MB)
	if err := r.ParseMultipartForm(100 << 20); err != nil {
		jsonErr(w, "Failed to parse upload: "+err.Error(), http.StatusBadRequest)
		return
	}

	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		// Try singular "file" field
		files = r.MultipartForm.File["file"]
	}
	if len(files) == 0 {
		jsonErr(w, "No files uploaded", http.StatusBadRequest)
		return
	}

	var saved []*paper.Paper
	var skipped []string
	for _, fh := range files {
		if !extractor.SupportedExt(fh.Filename) {
			skipped = append(skipped, fh.Filename)
			continue
		}

		src, err := fh.Open()
		if err != nil {
			skipped = append(skipped, fh.Filename)
			continue
		}

		p, err := s.papers.Create(fh.Filename, fh.Filename)
		if err != nil {
			src.Close()
			jsonErr(w, "Failed to register paper: "+err.Error(), http.StatusInternalServerError)
			return
		}

		dst, err := os.Create(s.papers.UploadPath(p.ID, p.FileName))
		if err != nil {
			src.Close()
			_ = s.papers.Delete(p.ID)
			skipped = append(skipped, fh.Filename)
			continue
		}
		_, copyErr := io.Copy(dst, src)
		src.Close()
		dst.Close()
		if copyErr != nil {
			_ = s.papers.Delete(p.ID)
			skipped = append(skipped, fh.Filename)
			continue
		}
		saved = append(saved, p)
	}

	if len(saved) == 0 {
		jsonErr(w, "No supported files uploaded (PDF, DOCX, PNG, JPG, TXT)", http.StatusBadRequest)
		return
	}

	jsonResp(w, map[string]interface{}{
		"papers":  saved,
		"count":   len(saved),
		"skipped": skipped,
	})
}
