package main

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"paperscope/internal/llm"
)

const deepSeekUpstream = "https://api.deepseek.com/chat/completions"

var proxyClient = &http.Client{Timeout: 120 * time.Second}

// handleDeepSeekProxy relays chat-completion requests to DeepSeek so the
// browser never talks to the vendor directly. The caller's key arrives in
// the X-DeepSeek-API-Key header and is swapped for the vendor's
// Authorization header; it never appears in a request body. The upstream
// status code and body are relayed unchanged, including auth failures, so
// the client can tell a bad key from a broken proxy.
func (s *Server) handleDeepSeekProxy(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		jsonResp(w, map[string]interface{}{
			"endpoint": "/api/deepseek",
			"method":   "POST",
			"headers":  map[string]string{llm.ProxyHeader: "your DeepSeek API key"},
			"body":     "a DeepSeek chat-completions request, relayed verbatim",
			"upstream": deepSeekUpstream,
		})
		return
	case http.MethodPost:
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	apiKey := r.Header.Get(llm.ProxyHeader)
	if apiKey == "" {
		jsonErr(w, "missing "+llm.ProxyHeader+" header", http.StatusBadRequest)
		return
	}

	req, err := http.NewRequestWithContext(r.Context(), "POST", deepSeekUpstream, r.Body)
	if err != nil {
		jsonErr(w, "failed to build upstream request: "+err.Error(), http.StatusInternalServerError)
		return
	}
	req.Header.Set("Authorization", "Bearer "+apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := proxyClient.Do(req)
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"error":   "failed to reach DeepSeek",
			"details": err.Error(),
		})
		return
	}
	defer resp.Body.Close()

	w.Header().Set("Content-Type", resp.Header.Get("Content-Type"))
	w.WriteHeader(resp.StatusCode)
	_, _ = io.Copy(w, resp.Body)
}
