package main

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"paperscope/internal/extractor"
	"paperscope/internal/llm"
	"paperscope/internal/paper"
	"paperscope/internal/videos"
)

type analyzeRequest struct {
	PaperIDs   []string `json:"paper_ids,omitempty"` // empty: every uploaded paper
	Mode       string   `json:"mode,omitempty"`      // "auto" (LLM + fallback) or "manual" (heuristics only)
	WithVideos bool     `json:"with_videos,omitempty"`
}

// handleAnalyze starts a background analysis run over the selected papers.
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req analyzeRequest
	_ = json.NewDecoder(r.Body).Decode(&req)
	if req.Mode == "" {
		req.Mode = "auto"
	}
	if req.Mode != "auto" && req.Mode != "manual" {
		jsonErr(w, "mode must be 'auto' or 'manual'", http.StatusBadRequest)
		return
	}

	var provider llm.Provider
	if req.Mode == "auto" {
		s.mu.RLock()
		providerName := s.llmProvider
		apiKey := s.llmKeys[providerName]
		proxyURL := s.deepSeekProxy
		s.mu.RUnlock()

		if apiKey == "" {
			jsonErr(w, "No API key configured for provider "+providerName+" (set it in Settings, or analyze with mode=manual)", http.StatusBadRequest)
			return
		}
		var err error
		provider, err = llm.NewProvider(providerName, apiKey, "", proxyURL)
		if err != nil {
			jsonErr(w, err.Error(), http.StatusBadRequest)
			return
		}
	}

	targets, err := s.resolveTargets(req.PaperIDs)
	if err != nil {
		jsonErr(w, err.Error(), http.StatusNotFound)
		return
	}
	if len(targets) == 0 {
		jsonErr(w, "No papers to analyze", http.StatusBadRequest)
		return
	}

	if !s.analyzeStatus.begin(len(targets)) {
		jsonErr(w, "Analysis already in progress", http.StatusConflict)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.mu.Lock()
	s.analyzeCancel = cancel
	s.mu.Unlock()

	go s.runAnalysis(ctx, targets, provider, req.WithVideos)

	jsonResp(w, map[string]interface{}{"status": "started", "papers": len(targets)})
}

// resolveTargets maps requested IDs to papers, or collects every paper
// not yet analyzed when no IDs were given.
func (s *Server) resolveTargets(ids []string) ([]*paper.Paper, error) {
	if len(ids) == 0 {
		var targets []*paper.Paper
		for _, p := range s.papers.List() {
			if p.Status == paper.StatusUploaded || p.Status == paper.StatusFailed {
				targets = append(targets, p)
			}
		}
		return targets, nil
	}

	var targets []*paper.Paper
	for _, id := range ids {
		p, ok := s.papers.Get(id)
		if !ok {
			return nil, errors.New("paper not found: " + id)
		}
		targets = append(targets, p)
	}
	return targets, nil
}

// runAnalysis processes papers one at a time. Only the video lookups of a
// single paper run concurrently; extraction and LLM calls stay sequential
// so one upload batch cannot swamp the OCR and LLM backends.
func (s *Server) runAnalysis(ctx context.Context, targets []*paper.Paper, provider llm.Provider, withVideos bool) {
	defer func() {
		s.mu.Lock()
		s.analyzeCancel = nil
		s.mu.Unlock()
	}()

	start := time.Now()
	var results []PaperResult

	for i, p := range targets {
		if ctx.Err() != nil {
			s.finishAnalysis("cancelled", "Analysis was cancelled", results)
			return
		}

		s.setProgress("extracting", i, p.Name)
		res := s.analyzeOne(ctx, p, provider, withVideos)
		results = append(results, res)

		s.analyzeStatus.mu.Lock()
		s.analyzeStatus.FilesDone = i + 1
		s.analyzeStatus.PaperResults = results
		s.analyzeStatus.mu.Unlock()
		s.wsHub.broadcast(s.analyzeStatus.snapshot())
	}

	s.finishAnalysis("done", "", results)
	log.Printf("Analysis complete: %d papers in %v", len(targets), time.Since(start))
}

func (s *Server) analyzeOne(ctx context.Context, p *paper.Paper, provider llm.Provider, withVideos bool) PaperResult {
	fail := func(err error) PaperResult {
		log.Printf("Analysis failed for %s: %v", p.Name, err)
		_ = s.papers.Update(p.ID, func(p *paper.Paper) { p.Status = paper.StatusFailed })
		return PaperResult{PaperID: p.ID, Name: p.Name, Status: "failed", Error: err.Error()}
	}

	_ = s.papers.Update(p.ID, func(p *paper.Paper) { p.Status = paper.StatusAnalyzing })

	s.mu.RLock()
	ocrCfg := &extractor.OCRConfig{
		Provider:    s.ocrProvider,
		SarvamKey:   s.sarvamAPIKey,
		TesseractOk: s.tesseractOk,
	}
	youtubeKey := s.youtubeKey
	s.mu.RUnlock()

	chunks, err := extractor.ExtractFile(s.papers.UploadPath(p.ID, p.FileName), ocrCfg)
	if err != nil {
		return fail(err)
	}
	text := extractor.FullText(chunks)

	s.setProgress("analyzing", -1, p.Name)
	analysis := llm.AnalyzeQuestions(ctx, provider, text)

	questions := make([]paper.Question, len(analysis.Questions))
	for i, q := range analysis.Questions {
		questions[i] = paper.Question{QuestionRecord: q}
	}

	if withVideos && youtubeKey != "" && len(questions) > 0 {
		yt := videos.NewClient(youtubeKey)
		queries := make([]string, len(analysis.Questions))
		for i, q := range analysis.Questions {
			queries[i] = videos.QueryFor(q)
		}
		for i, vids := range yt.EnrichAll(ctx, queries) {
			questions[i].RelatedVideos = vids
		}
	}

	if err := s.papers.SaveQuestions(p.ID, questions); err != nil {
		return fail(err)
	}
	// A re-analysis can yield fewer questions than the previous run; doc IDs
	// past the new count would otherwise stay searchable.
	if p.QuestionCount > 0 {
		if err := s.questionIndex.RemovePaper(p.ID, p.QuestionCount); err != nil {
			log.Printf("Warning: could not clear old index entries for %s: %v", p.Name, err)
		}
	}
	if err := s.questionIndex.Add(p.ID, analysis.Questions); err != nil {
		log.Printf("Warning: could not index questions for %s: %v", p.Name, err)
	}

	err = s.papers.Update(p.ID, func(pp *paper.Paper) {
		pp.Status = paper.StatusAnalyzed
		pp.Year = analysis.Year
		pp.Subject = analysis.Subject
		pp.QuestionCount = len(questions)
		pp.Source = analysis.Source
	})
	if err != nil {
		return fail(err)
	}

	return PaperResult{
		PaperID:   p.ID,
		Name:      p.Name,
		Status:    "ok",
		Questions: len(questions),
		Source:    analysis.Source,
	}
}

func (s *Server) setProgress(phase string, filesDone int, currentFile string) {
	s.analyzeStatus.mu.Lock()
	s.analyzeStatus.Phase = phase
	if filesDone >= 0 {
		s.analyzeStatus.FilesDone = filesDone
	}
	s.analyzeStatus.CurrentFile = currentFile
	s.analyzeStatus.mu.Unlock()
	s.wsHub.broadcast(s.analyzeStatus.snapshot())
}

func (s *Server) finishAnalysis(phase, errMsg string, results []PaperResult) {
	s.analyzeStatus.mu.Lock()
	s.analyzeStatus.Phase = phase
	s.analyzeStatus.CurrentFile = ""
	s.analyzeStatus.Error = errMsg
	s.analyzeStatus.PaperResults = results
	s.analyzeStatus.mu.Unlock()
	s.wsHub.broadcast(s.analyzeStatus.snapshot())
}

func (s *Server) handleAnalyzeStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	jsonResp(w, s.analyzeStatus.snapshot())
}

func (s *Server) handleAnalyzeCancel(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	s.mu.Lock()
	cancel := s.analyzeCancel
	s.mu.Unlock()

	if cancel != nil {
		cancel()
		log.Printf("Analysis cancel requested by user")
	}

	jsonResp(w, map[string]string{"status": "cancelled"})
}
