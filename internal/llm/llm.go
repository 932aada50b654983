// Package llm sends question-paper text to a chat-completion API for
// structured question extraction, and degrades to the heuristic analyzer
// whenever the API call or its output is unusable.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
)

// ErrAuth marks a 401/403 from the completion endpoint: the configured API
// key is missing, wrong, or expired. Callers show a distinct message for it.
var ErrAuth = errors.New("authentication failed (check the configured API key)")

const (
	defaultDeepSeekModel = "deepseek-chat"
	deepSeekEndpoint     = "https://api.deepseek.com/chat/completions"

	// ProxyHeader carries the caller's key to the same-origin proxy. The key
	// travels in a header, never in the request body.
	ProxyHeader = "X-DeepSeek-API-Key"
)

// Provider is a chat-completion backend that returns the raw assistant
// message for an extraction request.
type Provider interface {
	ExtractQuestions(ctx context.Context, text string) (string, error)
}

// NewProvider creates the appropriate LLM provider. proxyURL, when non-empty,
// routes DeepSeek requests through the same-origin proxy instead of the
// vendor endpoint.
func NewProvider(providerName, apiKey, model, proxyURL string) (Provider, error) {
	switch strings.ToLower(providerName) {
	case "deepseek", "":
		if model == "" {
			model = defaultDeepSeekModel
		}
		return &DeepSeekProvider{apiKey: apiKey, model: model, proxyURL: proxyURL}, nil
	case "openai":
		if model == "" {
			model = openai.GPT4oMini
		}
		return &OpenAIProvider{client: openai.NewClient(apiKey), model: model}, nil
	default:
		return nil, fmt.Errorf("unknown LLM provider: %s", providerName)
	}
}

var extractionSystemPrompt = `You are an expert at reading university examination question papers.

Extract every question from the paper text you are given. Respond with ONLY a JSON array, with no markdown, no code fences, no explanations. Each element must have this exact shape:
{
  "question": "the full question text",
  "subject": "main subject area, e.g. Computer Science",
  "subSubject": "more specific area, or General",
  "topics": ["up to three short topics"],
  "keywords": ["up to five keywords"],
  "year": "exam year printed on the paper, or Unknown"
}

Rules:
- One element per question, including lettered sub-parts (1a, 1b, ...)
- Skip headers, registration fields, page numbers and instructions
- Extract only the English text when the paper is bilingual
- If no questions can be found, return []`

// ==========================================
// DeepSeek Provider
// ==========================================

// DeepSeekProvider talks to the DeepSeek chat-completions API, either
// directly or via the same-origin proxy (which swaps the proxy header for
// the vendor's Authorization header).
type DeepSeekProvider struct {
	apiKey   string
	model    string
	proxyURL string
}

func (p *DeepSeekProvider) ExtractQuestions(ctx context.Context, text string) (string, error) {
	reqBody, _ := json.Marshal(map[string]interface{}{
		"model": p.model,
		"messages": []map[string]string{
			{"role": "system", "content": extractionSystemPrompt},
			{"role": "user", "content": text},
		},
		"temperature": 0.1,
		"max_tokens":  4096,
	})

	url := deepSeekEndpoint
	if p.proxyURL != "" {
		url = strings.TrimRight(p.proxyURL, "/") + "/api/deepseek"
	}
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(reqBody))
	if err != nil {
		return "", fmt.Errorf("deepseek request: %w", err)
	}
	if p.proxyURL != "" {
		req.Header.Set(ProxyHeader, p.apiKey)
	} else {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}
	req.Header.Set("Content-Type", "application/json")

	client := &http.Client{Timeout: 120 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("deepseek req error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return "", fmt.Errorf("deepseek returned %d: %w", resp.StatusCode, ErrAuth)
	}
	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("deepseek api error: %d - %s", resp.StatusCode, string(bodyBytes))
	}

	var chatResp struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return "", fmt.Errorf("deepseek json error: %w", err)
	}
	if len(chatResp.Choices) == 0 || strings.TrimSpace(chatResp.Choices[0].Message.Content) == "" {
		return "", fmt.Errorf("deepseek empty response")
	}

	return chatResp.Choices[0].Message.Content, nil
}

// ==========================================
// OpenAI Provider
// ==========================================

type OpenAIProvider struct {
	client *openai.Client
	model  string
}

func (p *OpenAIProvider) ExtractQuestions(ctx context.Context, text string) (string, error) {
	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: p.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: extractionSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: text},
		},
		Temperature: 0.1,
	})
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) && (apiErr.HTTPStatusCode == http.StatusUnauthorized || apiErr.HTTPStatusCode == http.StatusForbidden) {
			return "", fmt.Errorf("openai returned %d: %w", apiErr.HTTPStatusCode, ErrAuth)
		}
		return "", fmt.Errorf("openai error: %w", err)
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return "", fmt.Errorf("openai empty response")
	}
	return resp.Choices[0].Message.Content, nil
}
