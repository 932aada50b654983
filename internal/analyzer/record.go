// Package analyzer turns raw question-paper text into structured question
// records using regex segmentation and keyword heuristics. It is the fallback
// path when the LLM-based extraction fails, and it also supplies the noise
// filters and normalizers the LLM path reuses.
package analyzer

// QuestionRecord is one extracted exam question plus its heuristic metadata.
// Both the LLM path and the manual path produce this shape; downstream
// consumers treat them uniformly.
type QuestionRecord struct {
	QuestionText string   `json:"questionText"`
	Subject      string   `json:"subject"`
	SubSubject   string   `json:"subSubject"`
	Topics       []string `json:"topics"`   // at most 3
	Keywords     []string `json:"keywords"` // at most 5
	Year         string   `json:"year"`     // "Unknown" when the paper carries no year
}
