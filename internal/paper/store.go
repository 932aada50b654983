// Package paper persists uploaded question papers and their extracted
// questions as JSON files on disk.
package paper

import (
	"crypto/rand"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"paperscope/internal/analyzer"
	"paperscope/internal/videos"
)

// Paper statuses.
const (
	StatusUploaded  = "uploaded"
	StatusAnalyzing = "analyzing"
	StatusAnalyzed  = "analyzed"
	StatusFailed    = "failed"
)

// Paper is one uploaded question paper and its analysis summary.
type Paper struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	FileName      string    `json:"fileName"`
	CreatedAt     time.Time `json:"createdAt"`
	Status        string    `json:"status"`
	Year          string    `json:"year"`
	Subject       string    `json:"subject"`
	QuestionCount int       `json:"questionCount"`
	Source        string    `json:"source"`
}

// Question is an extracted question together with its related videos.
type Question struct {
	analyzer.QuestionRecord
	RelatedVideos []videos.Video `json:"relatedVideos"`
}

// PaperStore manages papers.json plus one <id>.questions.json per paper,
// and the uploads directory holding the original files.
type PaperStore struct {
	mu      sync.RWMutex
	dataDir string
	papers  map[string]*Paper
}

func NewPaperStore(dataDir string) (*PaperStore, error) {
	for _, dir := range []string{dataDir, filepath.Join(dataDir, "uploads")} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}

	s := &PaperStore{dataDir: dataDir, papers: make(map[string]*Paper)}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *PaperStore) papersFile() string {
	return filepath.Join(s.dataDir, "papers.json")
}

func (s *PaperStore) questionsFile(id string) string {
	return filepath.Join(s.dataDir, id+".questions.json")
}

// UploadPath is where the original uploaded file for a paper is kept.
func (s *PaperStore) UploadPath(id, fileName string) string {
	return filepath.Join(s.dataDir, "uploads", id+"_"+filepath.Base(fileName))
}

func (s *PaperStore) load() error {
	data, err := os.ReadFile(s.papersFile())
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read papers file: %w", err)
	}

	var papers []*Paper
	if err := json.Unmarshal(data, &papers); err != nil {
		return fmt.Errorf("parse papers file: %w", err)
	}
	for _, p := range papers {
		s.papers[p.ID] = p
	}
	return nil
}

// save writes papers.json. Caller must hold the lock.
func (s *PaperStore) save() error {
	papers := make([]*Paper, 0, len(s.papers))
	for _, p := range s.papers {
		papers = append(papers, p)
	}
	data, err := json.MarshalIndent(papers, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.papersFile(), data, 0644)
}

// Create registers a new uploaded paper.
func (s *PaperStore) Create(name, fileName string) (*Paper, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := &Paper{
		ID:        generateUUID(),
		Name:      name,
		FileName:  fileName,
		CreatedAt: time.Now(),
		Status:    StatusUploaded,
		Year:      "Unknown",
		Subject:   "General",
	}
	s.papers[p.ID] = p
	if err := s.save(); err != nil {
		delete(s.papers, p.ID)
		return nil, err
	}
	copied := *p
	return &copied, nil
}

// List returns all papers, newest first.
func (s *PaperStore) List() []*Paper {
	s.mu.RLock()
	defer s.mu.RUnlock()

	papers := make([]*Paper, 0, len(s.papers))
	for _, p := range s.papers {
		copied := *p
		papers = append(papers, &copied)
	}
	sort.Slice(papers, func(i, j int) bool {
		return papers[i].CreatedAt.After(papers[j].CreatedAt)
	})
	return papers
}

func (s *PaperStore) Get(id string) (*Paper, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.papers[id]
	if !ok {
		return nil, false
	}
	copied := *p
	return &copied, true
}

// Update applies fn to the paper under the lock and persists the result.
func (s *PaperStore) Update(id string, fn func(*Paper)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.papers[id]
	if !ok {
		return fmt.Errorf("paper not found: %s", id)
	}
	fn(p)
	return s.save()
}

// Delete removes the paper, its questions file and its uploaded original.
func (s *PaperStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.papers[id]
	if !ok {
		return fmt.Errorf("paper not found: %s", id)
	}
	delete(s.papers, id)
	if err := s.save(); err != nil {
		return err
	}
	os.Remove(s.questionsFile(id))
	os.Remove(s.UploadPath(id, p.FileName))
	return nil
}

// SaveQuestions writes the per-paper questions file.
func (s *PaperStore) SaveQuestions(id string, questions []Question) error {
	if questions == nil {
		questions = []Question{}
	}
	data, err := json.MarshalIndent(questions, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.questionsFile(id), data, 0644)
}

// LoadQuestions reads the per-paper questions file. A paper that has not
// been analyzed yet yields an empty slice.
func (s *PaperStore) LoadQuestions(id string) ([]Question, error) {
	data, err := os.ReadFile(s.questionsFile(id))
	if os.IsNotExist(err) {
		return []Question{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read questions file: %w", err)
	}

	var questions []Question
	if err := json.Unmarshal(data, &questions); err != nil {
		return nil, fmt.Errorf("parse questions file: %w", err)
	}
	return questions, nil
}

func generateUUID() string {
	b := make([]byte, 16)
	rand.Read(b)
	b[6] = (b[6] & 0x0f) | 0x40
	b[8] = (b[8] & 0x3f) | 0x80
	return fmt.Sprintf("%x-%x-%x-%x-%x", b[0:4], b[4:6], b[6:8], b[8:10], b[10:16])
}
