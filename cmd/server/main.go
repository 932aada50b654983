package main

import (
	"log"
	"net/http"
	"os"

	"paperscope/internal/extractor"
	"paperscope/internal/index"
	"paperscope/internal/paper"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	llmKeys := map[string]string{
		"deepseek": os.Getenv("DEEPSEEK_API_KEY"),
		"openai":   os.Getenv("OPENAI_API_KEY"),
	}
	llmProvider := os.Getenv("LLM_PROVIDER")
	if llmProvider == "" {
		llmProvider = "deepseek"
	}
	youtubeKey := os.Getenv("YOUTUBE_API_KEY")
	deepSeekProxy := os.Getenv("DEEPSEEK_PROXY_URL")

	ocrProvider := os.Getenv("OCR_PROVIDER") // "tesseract", "sarvam", or ""
	sarvamAPIKey := os.Getenv("SARVAM_API_KEY")

	// Saved settings override the environment.
	if saved := loadSavedSettings(); saved != nil {
		log.Printf("Loading saved settings from %s", settingsFile)
		if saved.DeepSeekKey != "" {
			llmKeys["deepseek"] = saved.DeepSeekKey
		}
		if saved.OpenAIKey != "" {
			llmKeys["openai"] = saved.OpenAIKey
		}
		if saved.YouTubeKey != "" {
			youtubeKey = saved.YouTubeKey
		}
		if saved.LLMProvider != "" {
			llmProvider = saved.LLMProvider
		}
		if saved.OCRProvider != "" {
			ocrProvider = saved.OCRProvider
		}
		if saved.SarvamKey != "" {
			sarvamAPIKey = saved.SarvamKey
		}
	}

	tesseractOk := extractor.DetectTesseract()
	if ocrProvider == "" {
		if sarvamAPIKey != "" {
			ocrProvider = "sarvam"
			log.Printf("OCR: auto-selected Sarvam (API key configured)")
		} else if tesseractOk {
			ocrProvider = "tesseract"
			log.Printf("OCR: auto-selected Tesseract (detected on system)")
		}
	}
	switch {
	case ocrProvider == "sarvam" && sarvamAPIKey != "":
		log.Printf("OCR ready: Sarvam Document Intelligence (primary), Tesseract=%v (fallback)", tesseractOk)
	case ocrProvider == "tesseract" && tesseractOk:
		if !extractor.DetectPdftoppm() {
			log.Printf("OCR WARNING: Tesseract found but Poppler (pdftoppm) is missing, scanned PDFs cannot be rendered")
			if sarvamAPIKey != "" {
				ocrProvider = "sarvam"
				log.Printf("  Auto-switching to Sarvam since API key is available")
			}
		} else {
			log.Printf("OCR ready: Tesseract + Poppler (primary), Sarvam=%v (fallback)", sarvamAPIKey != "")
		}
	default:
		log.Printf("OCR: no provider configured (scanned papers will not be processed)")
	}

	papers, err := paper.NewPaperStore("data")
	if err != nil {
		log.Fatalf("Failed to init paper store: %v", err)
	}
	questionIndex, err := index.Open("data/questions.bleve")
	if err != nil {
		log.Fatalf("Failed to open question index: %v", err)
	}
	defer questionIndex.Close()

	srv := &Server{
		papers:        papers,
		questionIndex: questionIndex,
		analyzeStatus: &AnalyzeStatus{Phase: "idle"},
		llmProvider:   llmProvider,
		llmKeys:       llmKeys,
		deepSeekProxy: deepSeekProxy,
		youtubeKey:    youtubeKey,
		ocrProvider:   ocrProvider,
		sarvamAPIKey:  sarvamAPIKey,
		tesseractOk:   tesseractOk,
		wsHub:         newWSHub(),
	}

	mux := http.NewServeMux()

	// Upload & analysis endpoints
	mux.HandleFunc("/api/upload", srv.handleUpload)
	mux.HandleFunc("/api/analyze", srv.handleAnalyze)
	mux.HandleFunc("/api/analyze/status", srv.handleAnalyzeStatus)
	mux.HandleFunc("/api/analyze/cancel", srv.handleAnalyzeCancel)
	mux.HandleFunc("/ws/analyze", srv.handleAnalyzeWS)

	// Paper browsing endpoints
	mux.HandleFunc("/api/papers", srv.handlePapers)
	mux.HandleFunc("/api/papers/questions", srv.handlePaperQuestions)
	mux.HandleFunc("/api/papers/delete", srv.handleDeletePaper)
	mux.HandleFunc("/api/search", srv.handleSearch)
	mux.HandleFunc("/api/stats", srv.handleStats)

	// Settings and the same-origin LLM proxy
	mux.HandleFunc("/api/settings", srv.handleSettings)
	mux.HandleFunc("/api/deepseek", srv.handleDeepSeekProxy)

	// Static files
	mux.Handle("/", http.FileServer(http.Dir("web")))

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.Printf("PaperScope server starting on http://localhost:%s", port)
	if err := http.ListenAndServe(":"+port, corsMiddleware(mux)); err != nil {
		log.Fatal(err)
	}
}
