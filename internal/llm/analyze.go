package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"paperscope/internal/analyzer"
)

// Papers longer than this are truncated before prompting; cheap models choke
// on full scanned transcripts.
const maxPromptChars = 50000

// Analysis is the outcome of one document analysis run. Source tells the
// caller whether the records came from the LLM ("llm") or from the heuristic
// extractor after a degraded LLM call ("fallback").
type Analysis struct {
	Questions []analyzer.QuestionRecord `json:"questions"`
	Source    string                    `json:"source"`
	Year      string                    `json:"year"`
	Subject   string                    `json:"subject"`
}

// AnalyzeQuestions runs structured question extraction over raw paper text.
//
// The provider's output is expected to be a JSON array of question objects,
// optionally wrapped in code fences. Any provider failure (transport, auth,
// empty response, unparsable or non-array content) degrades to
// analyzer.ExtractQuestions on the same text instead of surfacing an error:
// malformed LLM output never reaches the caller. A nil provider goes straight
// to the heuristic path.
func AnalyzeQuestions(ctx context.Context, provider Provider, text string) *Analysis {
	docYear := analyzer.ExtractYear(text)
	docSubject := analyzer.DetectSubject(text)

	fallback := func(reason string) *Analysis {
		if reason != "" {
			log.Printf("LLM analysis unavailable (%s), using heuristic extraction", reason)
		}
		return &Analysis{
			Questions: analyzer.ExtractQuestions(text),
			Source:    "fallback",
			Year:      yearOrUnknown(docYear),
			Subject:   docSubject,
		}
	}

	if provider == nil {
		return fallback("")
	}

	prompt := text
	if len(prompt) > maxPromptChars {
		prompt = prompt[:maxPromptChars] + "\n\n[Document truncated due to length]"
	}

	raw, err := provider.ExtractQuestions(ctx, prompt)
	if err != nil {
		return fallback(err.Error())
	}

	items, err := parseQuestionArray(raw)
	if err != nil {
		return fallback(fmt.Sprintf("unusable response: %v", err))
	}

	return &Analysis{
		Questions: normalizeQuestions(items, docYear),
		Source:    "llm",
		Year:      yearOrUnknown(docYear),
		Subject:   docSubject,
	}
}

// rawQuestion tolerates the shapes models actually return: either field name
// for the text, numbers for the year, and mixed-type arrays.
type rawQuestion struct {
	Question     string        `json:"question"`
	QuestionText string        `json:"questionText"`
	Subject      string        `json:"subject"`
	SubSubject   string        `json:"subSubject"`
	Topics       []interface{} `json:"topics"`
	Keywords     []interface{} `json:"keywords"`
	Year         interface{}   `json:"year"`
}

// parseQuestionArray strips code-fence wrappers and parses the assistant
// message as a JSON array of question objects.
func parseQuestionArray(raw string) ([]rawQuestion, error) {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "```json\n")
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```\n")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.Split(raw, "```")[0]
	raw = strings.TrimSpace(raw)

	// Some models prefix the array with prose; slice to the outermost brackets.
	if !strings.HasPrefix(raw, "[") {
		start := strings.Index(raw, "[")
		end := strings.LastIndex(raw, "]")
		if start == -1 || end <= start {
			return nil, fmt.Errorf("no JSON array in response")
		}
		raw = raw[start : end+1]
	}

	var items []rawQuestion
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return nil, fmt.Errorf("parse question array: %w", err)
	}
	return items, nil
}

// normalizeQuestions converts LLM items into QuestionRecords, applying the
// same noise rules as the manual extractor and defaulting missing metadata.
func normalizeQuestions(items []rawQuestion, docYear string) []analyzer.QuestionRecord {
	var records []analyzer.QuestionRecord
	for _, it := range items {
		text := strings.TrimSpace(it.Question)
		if text == "" {
			text = strings.TrimSpace(it.QuestionText)
		}
		if analyzer.IsNoise(text) {
			continue
		}

		year := yearString(it.Year)
		if year == "" || strings.EqualFold(year, "unknown") {
			year = yearOrUnknown(docYear)
		}

		subject := strings.TrimSpace(it.Subject)
		if subject == "" {
			subject = "General"
		}
		subSubject := strings.TrimSpace(it.SubSubject)
		if subSubject == "" {
			subSubject = "General"
		}

		// Same bounds as the heuristic extractor: at most three topics,
		// at most five unique keywords.
		topics := analyzer.StandardizeTopics(stringsOnly(it.Topics))
		if len(topics) > 3 {
			topics = topics[:3]
		}

		records = append(records, analyzer.QuestionRecord{
			QuestionText: text,
			Subject:      subject,
			SubSubject:   subSubject,
			Topics:       topics,
			Keywords:     uniqueCapped(stringsOnly(it.Keywords), 5),
			Year:         year,
		})
	}
	return records
}

// stringsOnly keeps the string members of a mixed-type JSON array.
func stringsOnly(values []interface{}) []string {
	var out []string
	for _, v := range values {
		if s, ok := v.(string); ok && strings.TrimSpace(s) != "" {
			out = append(out, strings.TrimSpace(s))
		}
	}
	return out
}

// uniqueCapped dedupes preserving first occurrence and keeps at most n.
func uniqueCapped(values []string, n int) []string {
	seen := make(map[string]bool)
	var out []string
	for _, v := range values {
		if seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
		if len(out) == n {
			break
		}
	}
	return out
}

// yearString renders whatever the model put in the year field.
func yearString(v interface{}) string {
	switch y := v.(type) {
	case string:
		return strings.TrimSpace(y)
	case float64:
		return fmt.Sprintf("%.0f", y)
	default:
		return ""
	}
}

func yearOrUnknown(year string) string {
	if year == "" {
		return "Unknown"
	}
	return year
}
