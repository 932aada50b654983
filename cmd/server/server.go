package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"sync"

	"paperscope/internal/crypto"
	"paperscope/internal/index"
	"paperscope/internal/paper"
)

// Server holds all shared state.
type Server struct {
	mu            sync.RWMutex
	papers        *paper.PaperStore
	questionIndex *index.QuestionIndex

	analyzeStatus *AnalyzeStatus
	analyzeCancel context.CancelFunc // cancels the active analysis goroutine

	llmProvider   string // "deepseek" or "openai"
	llmKeys       map[string]string
	deepSeekProxy string // same-origin proxy base URL, "" for direct vendor calls
	youtubeKey    string
	ocrProvider   string // "tesseract", "sarvam", or ""
	sarvamAPIKey  string
	tesseractOk   bool

	wsHub *wsHub
}

// AnalyzeStatus is polled by the frontend (and pushed over the websocket)
// to show analysis progress.
type AnalyzeStatus struct {
	mu           sync.RWMutex
	Phase        string        `json:"phase"` // idle, extracting, analyzing, done, error, cancelled
	FilesTotal   int           `json:"files_total"`
	FilesDone    int           `json:"files_done"`
	CurrentFile  string        `json:"current_file,omitempty"`
	Error        string        `json:"error,omitempty"`
	PaperResults []PaperResult `json:"paper_results,omitempty"`
}

// PaperResult tracks the per-paper outcome of one analysis run.
type PaperResult struct {
	PaperID   string `json:"paper_id"`
	Name      string `json:"name"`
	Status    string `json:"status"` // "ok" or "failed"
	Error     string `json:"error,omitempty"`
	Questions int    `json:"questions"`
	Source    string `json:"source,omitempty"` // "llm" or "fallback"
}

func (s *AnalyzeStatus) snapshot() AnalyzeStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return AnalyzeStatus{
		Phase:        s.Phase,
		FilesTotal:   s.FilesTotal,
		FilesDone:    s.FilesDone,
		CurrentFile:  s.CurrentFile,
		Error:        s.Error,
		PaperResults: s.PaperResults,
	}
}

// begin atomically claims the status for a new run. The in-progress check
// and the phase transition happen under one lock, so exactly one of any
// concurrent callers succeeds.
func (s *AnalyzeStatus) begin(filesTotal int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Phase == "extracting" || s.Phase == "analyzing" {
		return false
	}
	s.Phase = "extracting"
	s.FilesTotal = filesTotal
	s.FilesDone = 0
	s.CurrentFile = ""
	s.Error = ""
	s.PaperResults = nil
	return true
}

func (s *AnalyzeStatus) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Phase = "idle"
	s.FilesTotal = 0
	s.FilesDone = 0
	s.CurrentFile = ""
	s.Error = ""
	s.PaperResults = nil
}

// ========== Settings Persistence ==========

const settingsFile = "data/settings.json"

type SavedSettings struct {
	DeepSeekKey string `json:"deepseek_key"`
	OpenAIKey   string `json:"openai_key"`
	YouTubeKey  string `json:"youtube_key"`
	LLMProvider string `json:"llm_provider"`
	OCRProvider string `json:"ocr_provider"`
	SarvamKey   string `json:"sarvam_key"`
}

func loadSavedSettings() *SavedSettings {
	data, err := os.ReadFile(settingsFile)
	if err != nil {
		return nil
	}
	var s SavedSettings
	if err := json.Unmarshal(data, &s); err != nil {
		log.Printf("Warning: could not parse %s: %v", settingsFile, err)
		return nil
	}

	// Decrypt API key fields (backward-compatible: if decryption fails, use raw value)
	s.DeepSeekKey = decryptOrPassthrough(s.DeepSeekKey)
	s.OpenAIKey = decryptOrPassthrough(s.OpenAIKey)
	s.YouTubeKey = decryptOrPassthrough(s.YouTubeKey)
	s.SarvamKey = decryptOrPassthrough(s.SarvamKey)

	return &s
}

// decryptOrPassthrough tries to decrypt a value; legacy plaintext settings
// files fail decryption and pass through unchanged.
func decryptOrPassthrough(val string) string {
	if val == "" {
		return ""
	}
	decrypted, err := crypto.Decrypt(val)
	if err != nil {
		return val
	}
	return decrypted
}

func persistSettings(s SavedSettings) error {
	_ = os.MkdirAll("data", 0755)

	// Encrypt API key fields before writing to disk
	toSave := s
	var err error
	if toSave.DeepSeekKey, err = crypto.Encrypt(s.DeepSeekKey); err != nil {
		log.Printf("Warning: failed to encrypt DeepSeek key: %v", err)
		toSave.DeepSeekKey = s.DeepSeekKey
	}
	if toSave.OpenAIKey, err = crypto.Encrypt(s.OpenAIKey); err != nil {
		log.Printf("Warning: failed to encrypt OpenAI key: %v", err)
		toSave.OpenAIKey = s.OpenAIKey
	}
	if toSave.YouTubeKey, err = crypto.Encrypt(s.YouTubeKey); err != nil {
		log.Printf("Warning: failed to encrypt YouTube key: %v", err)
		toSave.YouTubeKey = s.YouTubeKey
	}
	if toSave.SarvamKey, err = crypto.Encrypt(s.SarvamKey); err != nil {
		log.Printf("Warning: failed to encrypt Sarvam key: %v", err)
		toSave.SarvamKey = s.SarvamKey
	}

	data, err := json.MarshalIndent(toSave, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(settingsFile, data, 0644)
}

func maskKey(key string) string {
	if len(key) <= 8 {
		if key == "" {
			return ""
		}
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}

// ========== Middleware ==========

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-DeepSeek-API-Key")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ========== Helpers ==========

func jsonResp(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func jsonErr(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
