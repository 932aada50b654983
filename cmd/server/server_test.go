package main

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"paperscope/internal/crypto"
	"paperscope/internal/llm"
)

// ========== maskKey ==========

func TestMaskKey(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"short", "****"},
		{"sk-deepseek-1234", "sk-d...1234"},
	}
	for _, tc := range cases {
		if got := maskKey(tc.in); got != tc.want {
			t.Errorf("maskKey(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

// ========== settings decryption ==========

func TestDecryptOrPassthrough(t *testing.T) {
	enc, err := crypto.Encrypt("sk-real-key")
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	if got := decryptOrPassthrough(enc); got != "sk-real-key" {
		t.Errorf("decrypted = %q, want 'sk-real-key'", got)
	}
	// Legacy plaintext settings pass through unchanged.
	if got := decryptOrPassthrough("sk-legacy-plaintext"); got != "sk-legacy-plaintext" {
		t.Errorf("passthrough = %q", got)
	}
	if got := decryptOrPassthrough(""); got != "" {
		t.Errorf("empty = %q, want empty", got)
	}
}

// ========== DeepSeek proxy ==========

func TestProxy_MissingKeyHeader(t *testing.T) {
	s := &Server{}
	req := httptest.NewRequest("POST", "/api/deepseek", strings.NewReader(`{"model":"deepseek-chat"}`))
	rec := httptest.NewRecorder()

	s.handleDeepSeekProxy(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 without %s", rec.Code, llm.ProxyHeader)
	}
	if !strings.Contains(rec.Body.String(), llm.ProxyHeader) {
		t.Errorf("error body should name the missing header: %s", rec.Body.String())
	}
}

func TestProxy_GetReturnsUsage(t *testing.T) {
	s := &Server{}
	req := httptest.NewRequest("GET", "/api/deepseek", nil)
	rec := httptest.NewRecorder()

	s.handleDeepSeekProxy(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "/api/deepseek") {
		t.Errorf("usage doc missing endpoint: %s", rec.Body.String())
	}
}

func TestProxy_MethodNotAllowed(t *testing.T) {
	s := &Server{}
	req := httptest.NewRequest("DELETE", "/api/deepseek", nil)
	rec := httptest.NewRecorder()

	s.handleDeepSeekProxy(rec, req)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", rec.Code)
	}
}

// ========== CORS middleware ==========

func TestCORS_PreflightAndHeaders(t *testing.T) {
	handler := corsMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	req := httptest.NewRequest("OPTIONS", "/api/papers", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("preflight status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Header().Get("Access-Control-Allow-Headers"), llm.ProxyHeader) {
		t.Errorf("allow-headers = %q, must include %s", rec.Header().Get("Access-Control-Allow-Headers"), llm.ProxyHeader)
	}

	req = httptest.NewRequest("GET", "/api/papers", nil)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusTeapot {
		t.Errorf("non-preflight requests must pass through, status = %d", rec.Code)
	}
}

// ========== analysis status ==========

func TestAnalyzeStatus_SnapshotAndReset(t *testing.T) {
	st := &AnalyzeStatus{Phase: "analyzing", FilesTotal: 3, FilesDone: 1, CurrentFile: "a.pdf"}
	snap := st.snapshot()
	if snap.Phase != "analyzing" || snap.FilesTotal != 3 || snap.CurrentFile != "a.pdf" {
		t.Errorf("snapshot = %+v", &snap)
	}

	st.reset()
	snap = st.snapshot()
	if snap.Phase != "idle" || snap.FilesTotal != 0 || snap.CurrentFile != "" || snap.PaperResults != nil {
		t.Errorf("reset snapshot = %+v", &snap)
	}
}

func TestAnalyzeStatus_BeginIsExclusive(t *testing.T) {
	st := &AnalyzeStatus{Phase: "idle"}

	const callers = 16
	wins := make(chan bool, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			wins <- st.begin(3)
		}()
	}
	wg.Wait()
	close(wins)

	won := 0
	for w := range wins {
		if w {
			won++
		}
	}
	if won != 1 {
		t.Errorf("begin granted %d concurrent starts, want exactly 1", won)
	}
	if snap := st.snapshot(); snap.Phase != "extracting" || snap.FilesTotal != 3 {
		t.Errorf("claimed snapshot = %+v", &snap)
	}

	st.reset()
	if !st.begin(1) {
		t.Error("begin must succeed again after reset")
	}

	finished := &AnalyzeStatus{Phase: "done"}
	if !finished.begin(2) {
		t.Error("a finished run must not block a new one")
	}
}
