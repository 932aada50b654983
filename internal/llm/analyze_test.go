package llm

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"paperscope/internal/analyzer"
)

// fakeProvider returns a canned response or error.
type fakeProvider struct {
	response string
	err      error
}

func (f *fakeProvider) ExtractQuestions(ctx context.Context, text string) (string, error) {
	return f.response, f.err
}

// ========== Fallback behavior ==========

func TestAnalyzeQuestions_NilProviderUsesHeuristics(t *testing.T) {
	text := "1. Explain the concept of Operating Systems scheduling.\n2. Describe TCP congestion control.\n2021 Scheme"
	got := AnalyzeQuestions(context.Background(), nil, text)

	if got.Source != "fallback" {
		t.Errorf("source = %q, want 'fallback'", got.Source)
	}
	want := analyzer.ExtractQuestions(text)
	if !reflect.DeepEqual(got.Questions, want) {
		t.Errorf("questions diverge from heuristic extractor:\ngot  %+v\nwant %+v", got.Questions, want)
	}
	if got.Year != "2021" {
		t.Errorf("year = %q, want '2021'", got.Year)
	}
	if got.Subject != "Computer Science" {
		t.Errorf("subject = %q, want 'Computer Science'", got.Subject)
	}
}

func TestAnalyzeQuestions_InvalidJSONFallsBack(t *testing.T) {
	text := "1. Explain the concept of Operating Systems scheduling in detail.\n2021 Scheme"
	p := &fakeProvider{response: "I could not find any questions in this document, sorry."}
	got := AnalyzeQuestions(context.Background(), p, text)

	if got.Source != "fallback" {
		t.Fatalf("source = %q, want 'fallback'", got.Source)
	}
	want := analyzer.ExtractQuestions(text)
	if !reflect.DeepEqual(got.Questions, want) {
		t.Errorf("fallback output differs from heuristic extractor:\ngot  %+v\nwant %+v", got.Questions, want)
	}
}

func TestAnalyzeQuestions_ProviderErrorFallsBack(t *testing.T) {
	p := &fakeProvider{err: errors.New("connection refused")}
	got := AnalyzeQuestions(context.Background(), p, "1. Explain virtual memory and paging in operating systems.")
	if got.Source != "fallback" {
		t.Errorf("source = %q, want 'fallback'", got.Source)
	}
	if len(got.Questions) == 0 {
		t.Error("expected heuristic questions after provider error")
	}
}

func TestAnalyzeQuestions_AuthErrorFallsBack(t *testing.T) {
	p := &fakeProvider{err: ErrAuth}
	got := AnalyzeQuestions(context.Background(), p, "1. Explain virtual memory and paging in operating systems.")
	if got.Source != "fallback" {
		t.Errorf("source = %q, want 'fallback'", got.Source)
	}
}

// ========== LLM path ==========

func TestAnalyzeQuestions_ParsesCleanArray(t *testing.T) {
	p := &fakeProvider{response: `[
		{"question": "Explain the working of a two-pass assembler.", "subject": "Computer Science", "subSubject": "Assembly Language", "topics": ["assembler design"], "keywords": ["Assembler"], "year": "2022"}
	]`}
	got := AnalyzeQuestions(context.Background(), p, "some paper text")

	if got.Source != "llm" {
		t.Fatalf("source = %q, want 'llm'", got.Source)
	}
	if len(got.Questions) != 1 {
		t.Fatalf("got %d questions, want 1", len(got.Questions))
	}
	q := got.Questions[0]
	if q.QuestionText != "Explain the working of a two-pass assembler." {
		t.Errorf("question text = %q", q.QuestionText)
	}
	if q.Year != "2022" {
		t.Errorf("year = %q, want '2022'", q.Year)
	}
	if !reflect.DeepEqual(q.Topics, []string{"Assembler Design"}) {
		t.Errorf("topics = %v, want standardized title case", q.Topics)
	}
}

func TestAnalyzeQuestions_StripsCodeFences(t *testing.T) {
	p := &fakeProvider{response: "```json\n[{\"question\": \"Derive the rank-nullity theorem with proof.\", \"subject\": \"Mathematics\"}]\n```"}
	got := AnalyzeQuestions(context.Background(), p, "paper")
	if got.Source != "llm" {
		t.Fatalf("source = %q, want 'llm'", got.Source)
	}
	if len(got.Questions) != 1 {
		t.Fatalf("got %d questions, want 1", len(got.Questions))
	}
}

func TestAnalyzeQuestions_SlicesProseWrappedArray(t *testing.T) {
	p := &fakeProvider{response: `Here are the questions I found:
[{"question": "State and explain the laws of thermodynamics in detail."}]
Let me know if you need anything else.`}
	got := AnalyzeQuestions(context.Background(), p, "paper")
	if got.Source != "llm" {
		t.Fatalf("source = %q, want 'llm'", got.Source)
	}
	if len(got.Questions) != 1 {
		t.Fatalf("got %d questions, want 1", len(got.Questions))
	}
}

func TestAnalyzeQuestions_DefaultsMissingMetadata(t *testing.T) {
	p := &fakeProvider{response: `[{"questionText": "Explain the concept of dynamic programming with an example."}]`}
	got := AnalyzeQuestions(context.Background(), p, "no year or subject hints here")

	if len(got.Questions) != 1 {
		t.Fatalf("got %d questions, want 1", len(got.Questions))
	}
	q := got.Questions[0]
	if q.Subject != "General" || q.SubSubject != "General" {
		t.Errorf("subject/subSubject = %q/%q, want General defaults", q.Subject, q.SubSubject)
	}
	if q.Year != "Unknown" {
		t.Errorf("year = %q, want 'Unknown'", q.Year)
	}
}

func TestAnalyzeQuestions_NumericYearAndMixedArrays(t *testing.T) {
	p := &fakeProvider{response: `[{"question": "Explain normalization in relational databases up to 3NF.", "year": 2023, "topics": ["normalization", 42], "keywords": ["Database", null]}]`}
	got := AnalyzeQuestions(context.Background(), p, "paper")

	if len(got.Questions) != 1 {
		t.Fatalf("got %d questions, want 1", len(got.Questions))
	}
	q := got.Questions[0]
	if q.Year != "2023" {
		t.Errorf("year = %q, want '2023'", q.Year)
	}
	if !reflect.DeepEqual(q.Topics, []string{"Normalization"}) {
		t.Errorf("topics = %v, want non-string members dropped", q.Topics)
	}
	if !reflect.DeepEqual(q.Keywords, []string{"Database"}) {
		t.Errorf("keywords = %v, want non-string members dropped", q.Keywords)
	}
}

func TestAnalyzeQuestions_BoundsTopicsAndKeywords(t *testing.T) {
	p := &fakeProvider{response: `[{
		"question": "Explain interprocess communication mechanisms in modern kernels.",
		"topics": ["alpha", "beta", "gamma", "delta", "epsilon", "zeta"],
		"keywords": ["K1", "K2", "K3", "K2", "K4", "K5", "K6", "K7"]
	}]`}
	got := AnalyzeQuestions(context.Background(), p, "paper")

	if got.Source != "llm" {
		t.Fatalf("source = %q, want 'llm'", got.Source)
	}
	if len(got.Questions) != 1 {
		t.Fatalf("got %d questions, want 1", len(got.Questions))
	}
	q := got.Questions[0]
	if !reflect.DeepEqual(q.Topics, []string{"Alpha", "Beta", "Gamma"}) {
		t.Errorf("topics = %v, want at most 3", q.Topics)
	}
	if !reflect.DeepEqual(q.Keywords, []string{"K1", "K2", "K3", "K4", "K5"}) {
		t.Errorf("keywords = %v, want 5 unique", q.Keywords)
	}
}

func TestAnalyzeQuestions_LLMNoiseFiltered(t *testing.T) {
	p := &fakeProvider{response: `[
		{"question": "Reg No field must be filled before the examination starts."},
		{"question": "Explain the difference between a process and a thread."}
	]`}
	got := AnalyzeQuestions(context.Background(), p, "paper")
	if len(got.Questions) != 1 {
		t.Fatalf("got %d questions, want 1 after noise filtering: %+v", len(got.Questions), got.Questions)
	}
}

func TestAnalyzeQuestions_DocumentYearFillsLLMUnknown(t *testing.T) {
	p := &fakeProvider{response: `[{"question": "Explain cache coherence protocols in multiprocessors.", "year": "Unknown"}]`}
	got := AnalyzeQuestions(context.Background(), p, "Fifth Semester Examination 2020 Scheme")
	if got.Questions[0].Year != "2020" {
		t.Errorf("year = %q, want document year '2020'", got.Questions[0].Year)
	}
}

// ========== parseQuestionArray ==========

func TestParseQuestionArray_EmptyArray(t *testing.T) {
	items, err := parseQuestionArray("[]")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 0 {
		t.Errorf("got %d items, want 0", len(items))
	}
}

func TestParseQuestionArray_ObjectNotArray(t *testing.T) {
	if _, err := parseQuestionArray(`{"question": "not an array"}`); err == nil {
		t.Error("expected error for non-array JSON")
	}
}
