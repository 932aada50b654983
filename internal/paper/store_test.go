package paper

import (
	"os"
	"testing"
	"time"

	"paperscope/internal/analyzer"
	"paperscope/internal/videos"
)

func newTestStore(t *testing.T) *PaperStore {
	t.Helper()
	s, err := NewPaperStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewPaperStore: %v", err)
	}
	return s
}

// ========== Create / Get / Update ==========

func TestStore_CreateAndGet(t *testing.T) {
	s := newTestStore(t)

	p, err := s.Create("OS Paper 2021", "os-2021.pdf")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if p.ID == "" {
		t.Error("expected a generated ID")
	}
	if p.Status != StatusUploaded {
		t.Errorf("status = %q, want %q", p.Status, StatusUploaded)
	}
	if p.Year != "Unknown" || p.Subject != "General" {
		t.Errorf("defaults = %q/%q, want Unknown/General", p.Year, p.Subject)
	}

	got, ok := s.Get(p.ID)
	if !ok {
		t.Fatal("Get: paper not found after Create")
	}
	if got.Name != "OS Paper 2021" {
		t.Errorf("name = %q", got.Name)
	}
}

func TestStore_UpdatePersists(t *testing.T) {
	dir := t.TempDir()
	s, err := NewPaperStore(dir)
	if err != nil {
		t.Fatalf("NewPaperStore: %v", err)
	}
	p, _ := s.Create("Paper", "p.pdf")

	err = s.Update(p.ID, func(p *Paper) {
		p.Status = StatusAnalyzed
		p.Year = "2021"
		p.Subject = "Computer Science"
		p.QuestionCount = 12
		p.Source = "llm"
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}

	// A fresh store must see the update from disk.
	s2, err := NewPaperStore(dir)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	got, ok := s2.Get(p.ID)
	if !ok {
		t.Fatal("paper lost across reopen")
	}
	if got.Status != StatusAnalyzed || got.Year != "2021" || got.QuestionCount != 12 {
		t.Errorf("reloaded paper = %+v", got)
	}
}

func TestStore_UpdateUnknownID(t *testing.T) {
	s := newTestStore(t)
	if err := s.Update("nope", func(p *Paper) {}); err == nil {
		t.Error("expected error for unknown paper")
	}
}

func TestStore_GetReturnsCopy(t *testing.T) {
	s := newTestStore(t)
	p, _ := s.Create("Paper", "p.pdf")

	got, _ := s.Get(p.ID)
	got.Status = "mangled"

	again, _ := s.Get(p.ID)
	if again.Status != StatusUploaded {
		t.Errorf("store state mutated through a returned copy: %q", again.Status)
	}
}

// ========== List ==========

func TestStore_ListNewestFirst(t *testing.T) {
	s := newTestStore(t)
	first, _ := s.Create("older", "a.pdf")
	s.Update(first.ID, func(p *Paper) { p.CreatedAt = time.Now().Add(-time.Hour) })
	second, _ := s.Create("newer", "b.pdf")

	papers := s.List()
	if len(papers) != 2 {
		t.Fatalf("got %d papers, want 2", len(papers))
	}
	if papers[0].ID != second.ID {
		t.Errorf("first listed = %q, want the newer paper", papers[0].Name)
	}
}

// ========== Questions ==========

func TestStore_SaveAndLoadQuestions(t *testing.T) {
	s := newTestStore(t)
	p, _ := s.Create("Paper", "p.pdf")

	in := []Question{
		{
			QuestionRecord: analyzer.QuestionRecord{
				QuestionText: "Explain paging.",
				Subject:      "Computer Science",
				SubSubject:   "System Software",
				Topics:       []string{"Operating System"},
				Keywords:     []string{"Paging"},
				Year:         "2021",
			},
			RelatedVideos: []videos.Video{{VideoID: "abc", Title: "Paging"}},
		},
	}
	if err := s.SaveQuestions(p.ID, in); err != nil {
		t.Fatalf("SaveQuestions: %v", err)
	}

	out, err := s.LoadQuestions(p.ID)
	if err != nil {
		t.Fatalf("LoadQuestions: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("got %d questions, want 1", len(out))
	}
	if out[0].QuestionText != "Explain paging." {
		t.Errorf("question text = %q", out[0].QuestionText)
	}
	if len(out[0].RelatedVideos) != 1 || out[0].RelatedVideos[0].VideoID != "abc" {
		t.Errorf("related videos = %+v", out[0].RelatedVideos)
	}
}

func TestStore_LoadQuestionsBeforeAnalysis(t *testing.T) {
	s := newTestStore(t)
	p, _ := s.Create("Paper", "p.pdf")

	out, err := s.LoadQuestions(p.ID)
	if err != nil {
		t.Fatalf("LoadQuestions: %v", err)
	}
	if len(out) != 0 {
		t.Errorf("got %d questions before analysis, want 0", len(out))
	}
}

// ========== Delete ==========

func TestStore_DeleteRemovesFiles(t *testing.T) {
	s := newTestStore(t)
	p, _ := s.Create("Paper", "p.pdf")
	s.SaveQuestions(p.ID, []Question{})
	os.WriteFile(s.UploadPath(p.ID, p.FileName), []byte("pdf bytes"), 0644)

	if err := s.Delete(p.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, ok := s.Get(p.ID); ok {
		t.Error("paper still present after Delete")
	}
	if _, err := os.Stat(s.questionsFile(p.ID)); !os.IsNotExist(err) {
		t.Error("questions file still present after Delete")
	}
	if _, err := os.Stat(s.UploadPath(p.ID, p.FileName)); !os.IsNotExist(err) {
		t.Error("uploaded file still present after Delete")
	}
}

func TestStore_DeleteUnknownID(t *testing.T) {
	s := newTestStore(t)
	if err := s.Delete("missing"); err == nil {
		t.Error("expected error for unknown paper")
	}
}

// ========== UUIDs ==========

func TestGenerateUUID_Unique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := generateUUID()
		if len(id) != 36 {
			t.Fatalf("uuid %q has length %d, want 36", id, len(id))
		}
		if seen[id] {
			t.Fatalf("duplicate uuid %q", id)
		}
		seen[id] = true
	}
}
