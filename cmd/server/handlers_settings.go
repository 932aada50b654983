package main

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"
)

func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.mu.RLock()
		resp := map[string]interface{}{
			"llm_provider":        s.llmProvider,
			"deepseek_key":        maskKey(s.llmKeys["deepseek"]),
			"openai_key":          maskKey(s.llmKeys["openai"]),
			"youtube_key":         maskKey(s.youtubeKey),
			"ocr_provider":        s.ocrProvider,
			"sarvam_key":          maskKey(s.sarvamAPIKey),
			"tesseract_available": s.tesseractOk,
		}
		s.mu.RUnlock()
		jsonResp(w, resp)

	case http.MethodPost:
		var req struct {
			DeepSeekKey string `json:"deepseek_key"`
			OpenAIKey   string `json:"openai_key"`
			YouTubeKey  string `json:"youtube_key"`
			LLMProvider string `json:"llm_provider"`
			OCRProvider string `json:"ocr_provider"`
			SarvamKey   string `json:"sarvam_key"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			jsonErr(w, "Invalid request", http.StatusBadRequest)
			return
		}

		s.mu.Lock()
		// Only update keys when a real (non-masked) value was sent.
		if req.DeepSeekKey != "" && !strings.Contains(req.DeepSeekKey, "...") {
			s.llmKeys["deepseek"] = req.DeepSeekKey
		}
		if req.OpenAIKey != "" && !strings.Contains(req.OpenAIKey, "...") {
			s.llmKeys["openai"] = req.OpenAIKey
		}
		if req.YouTubeKey != "" && !strings.Contains(req.YouTubeKey, "...") {
			s.youtubeKey = req.YouTubeKey
		}
		if req.LLMProvider != "" {
			s.llmProvider = req.LLMProvider
		}
		s.ocrProvider = req.OCRProvider
		if req.SarvamKey != "" && !strings.Contains(req.SarvamKey, "...") {
			s.sarvamAPIKey = req.SarvamKey
		}

		saved := SavedSettings{
			DeepSeekKey: s.llmKeys["deepseek"],
			OpenAIKey:   s.llmKeys["openai"],
			YouTubeKey:  s.youtubeKey,
			LLMProvider: s.llmProvider,
			OCRProvider: s.ocrProvider,
			SarvamKey:   s.sarvamAPIKey,
		}
		s.mu.Unlock()

		if err := persistSettings(saved); err != nil {
			log.Printf("Failed to persist settings: %v", err)
		}

		log.Printf("Settings updated: LLM=%s, OCR=%s", saved.LLMProvider, saved.OCRProvider)
		jsonResp(w, map[string]string{"status": "saved"})

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}
