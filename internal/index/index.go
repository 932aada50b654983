// Package index maintains a full-text search index over extracted questions
// so the browse UI can search across every analyzed paper.
package index

import (
	"fmt"
	"os"

	"github.com/blevesearch/bleve/v2"

	"paperscope/internal/analyzer"
)

// questionDoc is the shape stored in bleve for each question.
type questionDoc struct {
	PaperID      string   `json:"paperId"`
	QuestionText string   `json:"questionText"`
	Subject      string   `json:"subject"`
	SubSubject   string   `json:"subSubject"`
	Topics       []string `json:"topics"`
	Keywords     []string `json:"keywords"`
	Year         string   `json:"year"`
}

// Hit is one search result.
type Hit struct {
	PaperID      string   `json:"paperId"`
	QuestionText string   `json:"questionText"`
	Subject      string   `json:"subject"`
	SubSubject   string   `json:"subSubject"`
	Topics       []string `json:"topics"`
	Keywords     []string `json:"keywords"`
	Year         string   `json:"year"`
	Score        float64  `json:"score"`
}

// QuestionIndex wraps a bleve index stored on disk.
type QuestionIndex struct {
	idx bleve.Index
}

// Open opens the index at path, creating it on first use.
func Open(path string) (*QuestionIndex, error) {
	var idx bleve.Index
	var err error
	if _, statErr := os.Stat(path); os.IsNotExist(statErr) {
		mapping := bleve.NewIndexMapping()
		idx, err = bleve.New(path, mapping)
	} else {
		idx, err = bleve.Open(path)
	}
	if err != nil {
		return nil, fmt.Errorf("open question index: %w", err)
	}
	return &QuestionIndex{idx: idx}, nil
}

func docID(paperID string, n int) string {
	return fmt.Sprintf("%s_q%d", paperID, n)
}

// Add indexes the questions of one paper. Question order fixes the doc IDs,
// so re-adding a paper overwrites matching positions only; callers
// re-indexing a paper must remove its previous entries first.
func (qi *QuestionIndex) Add(paperID string, questions []analyzer.QuestionRecord) error {
	batch := qi.idx.NewBatch()
	for i, q := range questions {
		doc := questionDoc{
			PaperID:      paperID,
			QuestionText: q.QuestionText,
			Subject:      q.Subject,
			SubSubject:   q.SubSubject,
			Topics:       q.Topics,
			Keywords:     q.Keywords,
			Year:         q.Year,
		}
		if err := batch.Index(docID(paperID, i), doc); err != nil {
			return fmt.Errorf("index question %d: %w", i, err)
		}
	}
	if err := qi.idx.Batch(batch); err != nil {
		return fmt.Errorf("index batch: %w", err)
	}
	return nil
}

// Search runs a match query over all indexed questions.
func (qi *QuestionIndex) Search(query string, limit int) ([]Hit, error) {
	if limit <= 0 {
		limit = 20
	}
	req := bleve.NewSearchRequestOptions(bleve.NewMatchQuery(query), limit, 0, false)
	req.Fields = []string{"paperId", "questionText", "subject", "subSubject", "topics", "keywords", "year"}

	res, err := qi.idx.Search(req)
	if err != nil {
		return nil, fmt.Errorf("search questions: %w", err)
	}

	hits := make([]Hit, 0, len(res.Hits))
	for _, h := range res.Hits {
		hits = append(hits, Hit{
			PaperID:      fieldString(h.Fields, "paperId"),
			QuestionText: fieldString(h.Fields, "questionText"),
			Subject:      fieldString(h.Fields, "subject"),
			SubSubject:   fieldString(h.Fields, "subSubject"),
			Topics:       fieldStrings(h.Fields, "topics"),
			Keywords:     fieldStrings(h.Fields, "keywords"),
			Year:         fieldString(h.Fields, "year"),
			Score:        h.Score,
		})
	}
	return hits, nil
}

// RemovePaper deletes the entries a paper added. count must be the number of
// questions passed to Add for that paper.
func (qi *QuestionIndex) RemovePaper(paperID string, count int) error {
	batch := qi.idx.NewBatch()
	for i := 0; i < count; i++ {
		batch.Delete(docID(paperID, i))
	}
	if err := qi.idx.Batch(batch); err != nil {
		return fmt.Errorf("remove paper from index: %w", err)
	}
	return nil
}

func (qi *QuestionIndex) Close() error {
	return qi.idx.Close()
}

// bleve returns stored fields as interface{}; single values for scalars,
// either a string or []interface{} for array fields.
func fieldString(fields map[string]interface{}, name string) string {
	if s, ok := fields[name].(string); ok {
		return s
	}
	return ""
}

func fieldStrings(fields map[string]interface{}, name string) []string {
	switch v := fields[name].(type) {
	case string:
		return []string{v}
	case []interface{}:
		var out []string
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}
