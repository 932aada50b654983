package analyzer

import (
	"regexp"
	"strings"
)

// Candidates shorter than this are headers or stray numbering, not questions.
const minQuestionLength = 20

// Substrings (lowercase) that mark a candidate as boilerplate rather than an
// actual question: registration fields, page footers, download banners,
// duration/marks lines.
var noiseMarkers = []string{
	"reg no", "reg. no", "roll no", "page", "downloaded",
	"duration:", "marks:", "max. marks", "question paper code",
}

// IsNoise reports whether a candidate question text should be discarded:
// too short after trimming, or containing any noise marker (case-insensitive).
func IsNoise(text string) bool {
	trimmed := strings.TrimSpace(text)
	if len(trimmed) < minQuestionLength {
		return true
	}
	lower := strings.ToLower(trimmed)
	for _, marker := range noiseMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// extractionPattern locates the start of a question under one numbering
// convention. A question span runs from one marker to the next marker of the
// same pattern (or end of text).
type extractionPattern struct {
	name   string
	marker *regexp.Regexp
}

var extractionPatterns = []extractionPattern{
	// "1. Explain ...": digits, dot, whitespace
	{"numbered-dot", regexp.MustCompile(`\d+\.\s+`)},
	// "1  Explain ...": line starting with digits and whitespace
	{"numbered-line", regexp.MustCompile(`(?m)^\d+[ \t]+`)},
	// "Question 1: ..." / "Q1) ..." / "Q. 2 ..."
	{"question-label", regexp.MustCompile(`(?i)\b(?:question|q)[.:]?\s*\d+\s*[:.)]?\s*`)},
}

// splitAtMarkers carves text into spans, each starting at a marker match and
// running to the next match or end of text.
func splitAtMarkers(text string, marker *regexp.Regexp) []string {
	locs := marker.FindAllStringIndex(text, -1)
	spans := make([]string, 0, len(locs))
	for i, loc := range locs {
		end := len(text)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		spans = append(spans, text[loc[0]:end])
	}
	return spans
}

// ExtractQuestions is the heuristic fallback extractor: it applies every
// extraction pattern to the raw text, filters out noise, and attaches
// subject/topic/keyword/year metadata to each surviving span.
//
// The document-level year and subject are computed once and shared by all
// records. Patterns are applied independently and their candidates are NOT
// deduplicated against each other, so a question matched by two numbering
// conventions appears twice in the output.
//
// The function is total: any input, including the empty string, yields a
// (possibly empty) list and never an error.
func ExtractQuestions(text string) []QuestionRecord {
	year := ExtractYear(text)
	if year == "" {
		year = "Unknown"
	}
	subject := DetectSubject(text)

	var records []QuestionRecord
	for _, pattern := range extractionPatterns {
		for _, span := range splitAtMarkers(text, pattern.marker) {
			q := strings.TrimSpace(span)
			if IsNoise(q) {
				continue
			}
			records = append(records, QuestionRecord{
				QuestionText: q,
				Subject:      subject,
				SubSubject:   RefineSubSubject(q, subject),
				Topics:       TopicsForQuestion(q),
				Keywords:     ExtractKeywords(q),
				Year:         year,
			})
		}
	}
	return records
}

// RefineSubSubject narrows "Computer Science" / "System Software" questions
// into a systems-programming sub-area using domain markers. Any other main
// subject passes through unchanged.
func RefineSubSubject(text, subject string) string {
	if subject != "Computer Science" && subject != "System Software" {
		return subject
	}
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "assembler") || strings.Contains(lower, "assembly"):
		return "Assembly Language"
	case strings.Contains(lower, "compiler") || strings.Contains(lower, "parsing"):
		return "Compiler Design"
	case strings.Contains(lower, "loader") || strings.Contains(lower, "linking"):
		return "System Programming"
	case strings.Contains(lower, "macro") || strings.Contains(lower, "processor"):
		return "Macro Processors"
	default:
		return "System Software"
	}
}
