package extractor

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

// OCRConfig selects the OCR provider used for scanned PDFs and photos.
type OCRConfig struct {
	Provider    string // "tesseract", "sarvam", or "" (auto)
	SarvamKey   string // Sarvam Document Intelligence subscription key
	TesseractOk bool   // set from DetectTesseract at startup
}

// Available reports whether any OCR path can run with this config.
func (c OCRConfig) Available() bool {
	return c.TesseractOk || c.SarvamKey != ""
}

// tesseractBin is the resolved tesseract path, set by DetectTesseract.
var tesseractBin string

// DetectTesseract checks for a usable tesseract install with English
// language data.
func DetectTesseract() bool {
	path, err := exec.LookPath("tesseract")
	if err != nil {
		log.Printf("Tesseract OCR not found (install tesseract for scanned paper support)")
		return false
	}
	if err := exec.Command(path, "--version").Run(); err != nil {
		log.Printf("Tesseract at %s does not run: %v", path, err)
		return false
	}
	tesseractBin = path
	log.Printf("Tesseract found: %s", path)
	return true
}

// DetectPdftoppm reports whether a PDF-to-image converter is available,
// which the tesseract path needs for PDFs.
func DetectPdftoppm() bool {
	if _, err := exec.LookPath("pdftoppm"); err == nil {
		return true
	}
	if _, err := exec.LookPath("magick"); err == nil {
		return true
	}
	return false
}

// RunOCR recognizes a PDF that yielded no embedded text. The configured
// provider runs first; its failure falls through to the other one.
func RunOCR(cfg OCRConfig, pdfPath string) ([]DocumentChunk, error) {
	fileName := filepath.Base(pdfPath)

	switch strings.ToLower(cfg.Provider) {
	case "tesseract":
		chunks, err := tesseractPDF(pdfPath, fileName)
		if err != nil && cfg.SarvamKey != "" {
			log.Printf("Tesseract OCR failed for %s, falling back to Sarvam: %v", fileName, err)
			return sarvamOCR(pdfPath, fileName, cfg.SarvamKey)
		}
		return chunks, err

	case "sarvam":
		chunks, err := sarvamOCR(pdfPath, fileName, cfg.SarvamKey)
		if err != nil && cfg.TesseractOk {
			log.Printf("Sarvam OCR failed for %s, falling back to Tesseract: %v", fileName, err)
			return tesseractPDF(pdfPath, fileName)
		}
		return chunks, err

	default:
		if cfg.TesseractOk {
			return tesseractPDF(pdfPath, fileName)
		}
		if cfg.SarvamKey != "" {
			return sarvamOCR(pdfPath, fileName, cfg.SarvamKey)
		}
		return nil, fmt.Errorf("no OCR provider available (install tesseract or configure a Sarvam API key)")
	}
}

// ExtractImage recognizes a photographed or scanned paper uploaded as a
// PNG or JPEG. Tesseract reads the image directly; Sarvam handles images
// the same way as PDFs.
func ExtractImage(cfg OCRConfig, imagePath string) ([]DocumentChunk, error) {
	fileName := filepath.Base(imagePath)

	if cfg.TesseractOk && strings.ToLower(cfg.Provider) != "sarvam" {
		text, err := tesseractImage(imagePath)
		if err == nil {
			return []DocumentChunk{{PageNumber: 1, Text: text, Document: fileName}}, nil
		}
		if cfg.SarvamKey == "" {
			return nil, err
		}
		log.Printf("Tesseract OCR failed for %s, falling back to Sarvam: %v", fileName, err)
	}
	if cfg.SarvamKey != "" {
		return sarvamOCR(imagePath, fileName, cfg.SarvamKey)
	}
	return nil, fmt.Errorf("no OCR provider available for image %s", fileName)
}

// ==========================================
// Tesseract CLI OCR
// ==========================================
//
// Tesseract cannot read PDFs directly; pages are first rendered to PNG
// with pdftoppm (Poppler) or magick (ImageMagick).

// tesseractSem caps concurrent tesseract processes at the core count.
var tesseractSem = make(chan struct{}, runtime.NumCPU())

func tesseractPDF(pdfPath, fileName string) ([]DocumentChunk, error) {
	if tesseractBin == "" {
		return nil, fmt.Errorf("tesseract binary not found")
	}

	tmpDir, err := os.MkdirTemp("", "paperscope-ocr-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	imagePrefix := filepath.Join(tmpDir, "page")
	if err := renderPDFPages(pdfPath, imagePrefix); err != nil {
		return nil, err
	}

	imageFiles, err := filepath.Glob(imagePrefix + "*")
	if err != nil || len(imageFiles) == 0 {
		return nil, fmt.Errorf("no page images generated from %s", fileName)
	}
	sort.Slice(imageFiles, func(i, j int) bool {
		return pageNumIn(imageFiles[i]) < pageNumIn(imageFiles[j])
	})

	var chunks []DocumentChunk
	var mu sync.Mutex
	var logOnce sync.Once
	var wg sync.WaitGroup
	for i, imgFile := range imageFiles {
		wg.Add(1)
		go func(pageNum int, file string) {
			defer wg.Done()
			tesseractSem <- struct{}{}
			defer func() { <-tesseractSem }()

			text, err := tesseractImage(file)
			if err != nil {
				logOnce.Do(func() {
					log.Printf("Tesseract failed on page %d of %s: %v", pageNum, fileName, err)
				})
				return
			}
			mu.Lock()
			chunks = append(chunks, DocumentChunk{PageNumber: pageNum, Text: text, Document: fileName})
			mu.Unlock()
		}(i+1, imgFile)
	}
	wg.Wait()

	sort.Slice(chunks, func(i, j int) bool { return chunks[i].PageNumber < chunks[j].PageNumber })
	if len(chunks) == 0 {
		return nil, fmt.Errorf("tesseract OCR extracted no text from %s", fileName)
	}
	log.Printf("Tesseract OCR extracted %d pages from %s", len(chunks), fileName)
	return chunks, nil
}

// renderPDFPages converts every page to a PNG under prefix.
func renderPDFPages(pdfPath, prefix string) error {
	if pdftoppm, err := exec.LookPath("pdftoppm"); err == nil {
		var stderr bytes.Buffer
		cmd := exec.Command(pdftoppm, "-png", "-r", "200", pdfPath, prefix)
		cmd.Stderr = &stderr
		if err := cmd.Run(); err == nil {
			return nil
		} else {
			log.Printf("pdftoppm failed: %v (stderr: %s)", err, stderr.String())
		}
	}
	if magick, err := exec.LookPath("magick"); err == nil {
		var stderr bytes.Buffer
		cmd := exec.Command(magick, "convert", "-density", "200", pdfPath, prefix+"-%03d.png")
		cmd.Stderr = &stderr
		if err := cmd.Run(); err == nil {
			return nil
		} else {
			log.Printf("magick failed: %v (stderr: %s)", err, stderr.String())
		}
	}
	return fmt.Errorf("cannot convert PDF to images: install Poppler (pdftoppm) or ImageMagick (magick)")
}

// tesseractImage runs tesseract on one image and returns its text. Pages
// with less than a line of recognizable text count as failures.
func tesseractImage(imagePath string) (string, error) {
	if tesseractBin == "" {
		return "", fmt.Errorf("tesseract binary not found")
	}

	var out, stderr bytes.Buffer
	cmd := exec.Command(tesseractBin, imagePath, "stdout", "-l", "eng", "--psm", "6")
	// Internal tesseract threading thrashes when pages already run in parallel.
	cmd.Env = append(os.Environ(), "OMP_THREAD_LIMIT=1")
	cmd.Stdout = &out
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("tesseract: %v (stderr: %s)", err, strings.TrimSpace(stderr.String()))
	}

	text := strings.TrimSpace(out.String())
	if len(text) <= 20 {
		return "", fmt.Errorf("tesseract recognized no usable text")
	}
	return text, nil
}

var pageNumRe = regexp.MustCompile(`(\d+)\.png$`)

func pageNumIn(path string) int {
	m := pageNumRe.FindStringSubmatch(filepath.Base(path))
	if len(m) < 2 {
		return 0
	}
	n, _ := strconv.Atoi(m[1])
	return n
}

// ==========================================
// Sarvam Document Intelligence OCR
// ==========================================
//
// Job-based flow: create job, get a presigned upload URL, upload the
// document, start the job, poll, then download and parse the markdown
// output.

const sarvamBaseURL = "https://api.sarvam.ai/doc-digitization/job/v1"

// sarvamMu serializes Sarvam jobs; their API rejects bursts.
var sarvamMu sync.Mutex

func sarvamOCR(docPath, fileName, apiKey string) ([]DocumentChunk, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("sarvam API key not configured")
	}
	sarvamMu.Lock()
	defer sarvamMu.Unlock()

	log.Printf("Sarvam Document Intelligence: starting OCR for %s", fileName)

	jobID, err := sarvamCreateJob(apiKey)
	if err != nil {
		return nil, fmt.Errorf("sarvam create job: %w", err)
	}
	uploadURL, err := sarvamUploadURL(apiKey, jobID, fileName)
	if err != nil {
		return nil, fmt.Errorf("sarvam get upload URL: %w", err)
	}
	if err := sarvamUploadFile(uploadURL, docPath); err != nil {
		return nil, fmt.Errorf("sarvam upload: %w", err)
	}
	if err := sarvamStartJob(apiKey, jobID); err != nil {
		return nil, fmt.Errorf("sarvam start: %w", err)
	}

	state, err := sarvamPollStatus(apiKey, jobID, 10*time.Minute)
	if err != nil {
		return nil, err
	}
	if state != "Completed" && state != "PartiallyCompleted" {
		return nil, fmt.Errorf("sarvam job ended with state: %s", state)
	}

	downloadURL, err := sarvamDownloadURL(apiKey, jobID)
	if err != nil {
		return nil, fmt.Errorf("sarvam download URL: %w", err)
	}
	chunks, err := sarvamDownloadAndParse(downloadURL, fileName)
	if err != nil {
		return nil, fmt.Errorf("sarvam parse output: %w", err)
	}
	log.Printf("Sarvam OCR extracted %d pages from %s", len(chunks), fileName)
	return chunks, nil
}

func sarvamRequest(method, url string, body interface{}, apiKey string) (*http.Response, error) {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reqBody = bytes.NewBuffer(data)
	}
	req, err := http.NewRequest(method, url, reqBody)
	if err != nil {
		return nil, err
	}
	req.Header.Set("api-subscription-key", apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	client := &http.Client{Timeout: 60 * time.Second}
	return client.Do(req)
}

func sarvamCreateJob(apiKey string) (string, error) {
	resp, err := sarvamRequest("POST", sarvamBaseURL, map[string]interface{}{
		"job_parameters": map[string]string{
			"language":      "en-IN",
			"output_format": "md",
		},
	}, apiKey)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("create job failed (%d): %s", resp.StatusCode, string(body))
	}
	var result struct {
		JobID string `json:"job_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("parse create job response: %w", err)
	}
	return result.JobID, nil
}

func sarvamUploadURL(apiKey, jobID, fileName string) (string, error) {
	resp, err := sarvamRequest("POST", sarvamBaseURL+"/upload-files", map[string]interface{}{
		"job_id": jobID,
		"files":  []string{fileName},
	}, apiKey)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	bodyBytes, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("get upload URL failed (%d): %s", resp.StatusCode, string(bodyBytes))
	}
	return firstPresignedURL(bodyBytes, "upload_urls")
}

func sarvamUploadFile(uploadURL, filePath string) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}
	req, err := http.NewRequest("PUT", uploadURL, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("x-ms-blob-type", "BlockBlob")
	req.Header.Set("Content-Type", "application/pdf")

	client := &http.Client{Timeout: 120 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("upload failed (%d): %s", resp.StatusCode, string(body))
	}
	return nil
}

func sarvamStartJob(apiKey, jobID string) error {
	resp, err := sarvamRequest("POST", fmt.Sprintf("%s/%s/start", sarvamBaseURL, jobID), nil, apiKey)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("start job failed (%d): %s", resp.StatusCode, string(body))
	}
	return nil
}

func sarvamPollStatus(apiKey, jobID string, timeout time.Duration) (string, error) {
	url := fmt.Sprintf("%s/%s/status", sarvamBaseURL, jobID)
	deadline := time.Now().Add(timeout)
	interval := 3 * time.Second

	for time.Now().Before(deadline) {
		resp, err := sarvamRequest("GET", url, nil, apiKey)
		if err != nil {
			return "", err
		}
		bodyBytes, _ := io.ReadAll(resp.Body)
		resp.Body.Close()

		var status struct {
			JobState     string `json:"job_state"`
			ErrorMessage string `json:"error_message"`
		}
		if err := json.Unmarshal(bodyBytes, &status); err != nil {
			return "", fmt.Errorf("parse status: %w (body: %s)", err, string(bodyBytes))
		}
		switch status.JobState {
		case "Completed", "PartiallyCompleted":
			return status.JobState, nil
		case "Failed":
			msg := status.ErrorMessage
			if msg == "" {
				msg = "unknown error (check Sarvam dashboard)"
			}
			return status.JobState, fmt.Errorf("job failed: %s", msg)
		}

		time.Sleep(interval)
		if interval < 10*time.Second {
			interval += time.Second
		}
	}
	return "", fmt.Errorf("timeout waiting for job completion")
}

func sarvamDownloadURL(apiKey, jobID string) (string, error) {
	resp, err := sarvamRequest("POST", fmt.Sprintf("%s/%s/download-files", sarvamBaseURL, jobID), nil, apiKey)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	bodyBytes, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("get download URL failed (%d): %s", resp.StatusCode, string(bodyBytes))
	}
	return firstPresignedURL(bodyBytes, "download_urls")
}

// firstPresignedURL pulls the first URL out of an upload_urls/download_urls
// map, which the API returns either flat or nested under a "url" key.
func firstPresignedURL(body []byte, field string) (string, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return "", fmt.Errorf("parse response: %w (body: %s)", err, string(body))
	}
	urlsRaw, ok := raw[field]
	if !ok {
		return "", fmt.Errorf("no %s in response (body: %s)", field, string(body))
	}

	var nested map[string]interface{}
	if err := json.Unmarshal(urlsRaw, &nested); err != nil {
		return "", fmt.Errorf("parse %s: %w", field, err)
	}
	for _, val := range nested {
		switch v := val.(type) {
		case string:
			return v, nil
		case map[string]interface{}:
			if s, ok := v["url"].(string); ok {
				return s, nil
			}
			for _, inner := range v {
				if s, ok := inner.(string); ok && strings.HasPrefix(s, "http") {
					return s, nil
				}
			}
		}
	}
	return "", fmt.Errorf("could not extract URL from %s (body: %s)", field, string(body))
}

func sarvamDownloadAndParse(downloadURL, fileName string) ([]DocumentChunk, error) {
	client := &http.Client{Timeout: 120 * time.Second}
	resp, err := client.Get(downloadURL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("download failed (%d): %s", resp.StatusCode, string(body))
	}

	// Output arrives as a ZIP of markdown files.
	tmpFile, err := os.CreateTemp("", "sarvam-output-*.zip")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer os.Remove(tmpPath)
	if _, err := io.Copy(tmpFile, resp.Body); err != nil {
		tmpFile.Close()
		return nil, fmt.Errorf("download to temp: %w", err)
	}
	tmpFile.Close()

	zipReader, err := zip.OpenReader(tmpPath)
	if err != nil {
		return nil, fmt.Errorf("open zip: %w", err)
	}
	defer zipReader.Close()

	var chunks []DocumentChunk
	pageNum := 0
	for _, f := range zipReader.File {
		if f.FileInfo().IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(f.Name))
		if ext != ".md" && ext != ".txt" && ext != ".html" {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			continue
		}
		content, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			continue
		}
		text := stripMarkdownFormatting(string(content))
		if len(text) <= 20 {
			continue
		}
		pageNum++
		chunks = append(chunks, DocumentChunk{PageNumber: pageNum, Text: text, Document: fileName})
	}

	if len(chunks) == 0 {
		return nil, fmt.Errorf("sarvam output contained no extractable text")
	}
	return chunks, nil
}

var (
	mdHeaderRe = regexp.MustCompile(`(?m)^#{1,6}\s+`)
	mdLinkRe   = regexp.MustCompile(`\[([^\]]+)\]\([^\)]+\)`)
	mdBlankRe  = regexp.MustCompile(`\n{3,}`)
)

// stripMarkdownFormatting flattens Sarvam's markdown output to plain text.
func stripMarkdownFormatting(text string) string {
	text = mdHeaderRe.ReplaceAllString(text, "")
	text = mdLinkRe.ReplaceAllString(text, "$1")
	text = strings.NewReplacer("**", "", "__", "", "*", "", "_", " ").Replace(text)
	text = mdBlankRe.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}
