package main

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"paperscope/internal/paper"
)

// handlePapers lists analyzed and pending papers, with optional subject
// and year filters.
func (s *Server) handlePapers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	subject := r.URL.Query().Get("subject")
	year := r.URL.Query().Get("year")

	var papers []*paper.Paper
	for _, p := range s.papers.List() {
		if subject != "" && !strings.EqualFold(p.Subject, subject) {
			continue
		}
		if year != "" && p.Year != year {
			continue
		}
		papers = append(papers, p)
	}
	if papers == nil {
		papers = []*paper.Paper{}
	}
	jsonResp(w, papers)
}

// handlePaperQuestions returns the extracted questions of one paper.
func (s *Server) handlePaperQuestions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	id := r.URL.Query().Get("id")
	if id == "" {
		jsonErr(w, "id is required", http.StatusBadRequest)
		return
	}
	p, ok := s.papers.Get(id)
	if !ok {
		jsonErr(w, "paper not found", http.StatusNotFound)
		return
	}

	questions, err := s.papers.LoadQuestions(id)
	if err != nil {
		jsonErr(w, err.Error(), http.StatusInternalServerError)
		return
	}
	jsonResp(w, map[string]interface{}{
		"paper":     p,
		"questions": questions,
	})
}

func (s *Server) handleDeletePaper(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete && r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ID == "" {
		jsonErr(w, "id is required", http.StatusBadRequest)
		return
	}

	p, ok := s.papers.Get(req.ID)
	if !ok {
		jsonErr(w, "paper not found", http.StatusNotFound)
		return
	}
	if err := s.papers.Delete(req.ID); err != nil {
		jsonErr(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if err := s.questionIndex.RemovePaper(req.ID, p.QuestionCount); err != nil {
		jsonErr(w, err.Error(), http.StatusInternalServerError)
		return
	}

	jsonResp(w, map[string]string{"status": "deleted"})
}

// handleSearch runs a full-text query over every indexed question.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	query := r.URL.Query().Get("q")
	if strings.TrimSpace(query) == "" {
		jsonErr(w, "q is required", http.StatusBadRequest)
		return
	}
	limit := 20
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}

	hits, err := s.questionIndex.Search(query, limit)
	if err != nil {
		jsonErr(w, err.Error(), http.StatusInternalServerError)
		return
	}
	jsonResp(w, map[string]interface{}{
		"query": query,
		"hits":  hits,
		"count": len(hits),
	})
}

// handleStats summarizes the corpus for the dashboard.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	papers := s.papers.List()
	questionCount := 0
	analyzed := 0
	subjects := make(map[string]int)
	years := make(map[string]int)
	for _, p := range papers {
		if p.Status != paper.StatusAnalyzed {
			continue
		}
		analyzed++
		questionCount += p.QuestionCount
		subjects[p.Subject]++
		years[p.Year]++
	}

	s.mu.RLock()
	llmReady := s.llmKeys[s.llmProvider] != ""
	videosReady := s.youtubeKey != ""
	s.mu.RUnlock()

	jsonResp(w, map[string]interface{}{
		"papers":       len(papers),
		"analyzed":     analyzed,
		"questions":    questionCount,
		"subjects":     subjects,
		"years":        years,
		"llm_ready":    llmReady,
		"videos_ready": videosReady,
	})
}
