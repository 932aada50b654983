package llm

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func chatReply(content string) string {
	b, _ := json.Marshal(map[string]interface{}{
		"choices": []map[string]interface{}{
			{"message": map[string]string{"content": content}},
		},
	})
	return string(b)
}

// ========== NewProvider ==========

func TestNewProvider_DefaultsToDeepSeek(t *testing.T) {
	p, err := NewProvider("", "key", "", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ds, ok := p.(*DeepSeekProvider)
	if !ok {
		t.Fatalf("got %T, want *DeepSeekProvider", p)
	}
	if ds.model != defaultDeepSeekModel {
		t.Errorf("model = %q, want %q", ds.model, defaultDeepSeekModel)
	}
}

func TestNewProvider_Unknown(t *testing.T) {
	if _, err := NewProvider("gemini", "key", "", ""); err == nil {
		t.Error("expected error for unknown provider")
	}
}

// ========== DeepSeekProvider ==========

func TestDeepSeek_ProxyRouting(t *testing.T) {
	var gotPath, gotProxyHeader, gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotProxyHeader = r.Header.Get(ProxyHeader)
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(chatReply("[]")))
	}))
	defer srv.Close()

	p := &DeepSeekProvider{apiKey: "sk-test", model: "deepseek-chat", proxyURL: srv.URL}
	content, err := p.ExtractQuestions(context.Background(), "paper text")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if content != "[]" {
		t.Errorf("content = %q, want '[]'", content)
	}
	if gotPath != "/api/deepseek" {
		t.Errorf("path = %q, want '/api/deepseek'", gotPath)
	}
	if gotProxyHeader != "sk-test" {
		t.Errorf("proxy header = %q, want the API key", gotProxyHeader)
	}
	if gotAuth != "" {
		t.Errorf("Authorization = %q, want empty on the proxy path", gotAuth)
	}
}

func TestDeepSeek_KeyNeverInBody(t *testing.T) {
	var body string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		body = string(b)
		w.Write([]byte(chatReply("[]")))
	}))
	defer srv.Close()

	p := &DeepSeekProvider{apiKey: "sk-secret-key", model: "deepseek-chat", proxyURL: srv.URL}
	if _, err := p.ExtractQuestions(context.Background(), "paper text"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(body, "sk-secret-key") {
		t.Error("API key leaked into the request body")
	}
}

func TestDeepSeek_AuthStatusMapsToErrAuth(t *testing.T) {
	for _, status := range []int{http.StatusUnauthorized, http.StatusForbidden} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
		}))
		p := &DeepSeekProvider{apiKey: "bad", model: "deepseek-chat", proxyURL: srv.URL}
		_, err := p.ExtractQuestions(context.Background(), "text")
		srv.Close()
		if !errors.Is(err, ErrAuth) {
			t.Errorf("status %d: err = %v, want ErrAuth", status, err)
		}
	}
}

func TestDeepSeek_ServerErrorIsNotAuth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream exploded", http.StatusInternalServerError)
	}))
	defer srv.Close()

	p := &DeepSeekProvider{apiKey: "key", model: "deepseek-chat", proxyURL: srv.URL}
	_, err := p.ExtractQuestions(context.Background(), "text")
	if err == nil {
		t.Fatal("expected error for 500")
	}
	if errors.Is(err, ErrAuth) {
		t.Error("500 must not map to ErrAuth")
	}
}

func TestDeepSeek_EmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices": []}`))
	}))
	defer srv.Close()

	p := &DeepSeekProvider{apiKey: "key", model: "deepseek-chat", proxyURL: srv.URL}
	if _, err := p.ExtractQuestions(context.Background(), "text"); err == nil {
		t.Error("expected error for empty choices")
	}
}
