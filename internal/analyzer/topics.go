package analyzer

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Topics whose lowercase form starts with one of these are instruction
// fragments ("explain gravity"), not topics.
var topicActionVerbs = []string{
	"explain", "describe", "write", "list", "illustrate",
	"outline", "discuss", "define", "analyze", "compare",
}

var topicStopwords = map[string]bool{
	"the": true, "a": true, "an": true, "and": true, "or": true,
	"but": true, "in": true, "on": true, "at": true, "to": true, "for": true,
}

// StandardizeTopics cleans a candidate topic list: action-verb fragments and
// bare stopwords are dropped, duplicates are removed preserving first
// occurrence, and every word is title-cased. The result may be shorter than
// the input, or empty. Standardizing an already-standardized list is a no-op.
func StandardizeTopics(topics []string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, t := range topics {
		trimmed := strings.TrimSpace(t)
		if trimmed == "" {
			continue
		}
		lower := strings.ToLower(trimmed)
		if topicStopwords[lower] || startsWithActionVerb(lower) {
			continue
		}
		titled := titleCase(trimmed)
		if seen[titled] {
			continue
		}
		seen[titled] = true
		out = append(out, titled)
	}
	return out
}

func startsWithActionVerb(lower string) bool {
	for _, verb := range topicActionVerbs {
		if strings.HasPrefix(lower, verb) {
			return true
		}
	}
	return false
}

func titleCase(s string) string {
	return cases.Title(language.English).String(s)
}

// Per-subject technical-term dictionaries, scanned in this order. Terms are
// lowercase and matched as substrings, so "operating system" also hits
// "Operating Systems".
var technicalTerms = []struct {
	subject string
	terms   []string
}{
	{"Computer Science", []string{
		"operating system", "data structure", "linked list", "binary tree",
		"congestion control", "tcp", "scheduling", "deadlock", "paging",
		"virtual memory", "normalization", "sql", "compiler", "recursion",
		"hashing", "sorting", "encryption", "machine learning", "algorithm",
		"database",
	}},
	{"Mathematics", []string{
		"differential equation", "laplace transform", "fourier series",
		"eigenvalue", "determinant", "matrix", "integral", "derivative",
		"probability", "permutation", "vector space", "interpolation",
		"convergence", "regression", "limit",
	}},
	{"Physics", []string{
		"thermodynamics", "electromagnetic", "photoelectric", "interference",
		"diffraction", "refraction", "semiconductor", "magnetic field",
		"capacitance", "inductance", "oscillation", "relativity", "entropy",
		"quantum", "momentum", "wave function",
	}},
}

// Capitalized token: one capital letter followed by at least two lowercase
// letters. Shared by the keyword extractor and the topic fallback.
var capitalizedTokenRe = regexp.MustCompile(`\b[A-Z][a-z]{2,}\b`)

// Instruction verbs excluded from the capitalized-token topic fallback.
var instructionVerbs = map[string]bool{
	"Explain": true, "Write": true, "Define": true,
	"Discuss": true, "Compare": true, "List": true,
}

// TopicsForQuestion derives up to three topics for a single question. The
// technical-term dictionaries are scanned first (dictionary order within
// subject table order); when nothing matches, capitalized tokens minus
// instruction verbs are used instead.
func TopicsForQuestion(text string) []string {
	lower := strings.ToLower(text)
	var topics []string
	for _, group := range technicalTerms {
		for _, term := range group.terms {
			if strings.Contains(lower, term) {
				topics = append(topics, titleCase(term))
				if len(topics) == 3 {
					return topics
				}
			}
		}
	}
	if len(topics) > 0 {
		return topics
	}

	seen := make(map[string]bool)
	for _, tok := range capitalizedTokenRe.FindAllString(text, -1) {
		if instructionVerbs[tok] || seen[tok] {
			continue
		}
		seen[tok] = true
		topics = append(topics, tok)
		if len(topics) == 3 {
			break
		}
	}
	return topics
}

// ExtractKeywords collects up to five unique capitalized word tokens from a
// question's text.
func ExtractKeywords(text string) []string {
	seen := make(map[string]bool)
	var keywords []string
	for _, tok := range capitalizedTokenRe.FindAllString(text, -1) {
		if seen[tok] {
			continue
		}
		seen[tok] = true
		keywords = append(keywords, tok)
		if len(keywords) == 5 {
			break
		}
	}
	return keywords
}
