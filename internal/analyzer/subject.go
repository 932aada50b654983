package analyzer

import "regexp"

// subjectEntry pairs a subject name with the vocabulary used to score it.
// Table order matters: ties resolve to the earlier entry.
type subjectEntry struct {
	name     string
	keywords []*regexp.Regexp
}

var subjectTable = []subjectEntry{
	{"Computer Science", wordPatterns(
		"algorithm", "database", "programming", "compiler", "operating system",
		"network", "tcp", "software", "data structure", "computer",
		"scheduling", "processor", "memory", "encryption", "protocol",
	)},
	{"Mathematics", wordPatterns(
		"theorem", "matrix", "integral", "derivative", "equation",
		"calculus", "algebra", "probability", "geometry", "polynomial",
		"eigenvalue", "convergence", "vector space", "determinant",
	)},
	{"Physics", wordPatterns(
		"force", "energy", "momentum", "quantum", "velocity",
		"thermodynamics", "optics", "magnetic", "relativity", "wave",
		"oscillation", "photon", "electric field", "semiconductor",
	)},
	{"Chemistry", wordPatterns(
		"molecule", "reaction", "acid", "compound", "organic",
		"bond", "titration", "polymer", "catalyst", "oxidation",
		"electrochemistry", "isomer", "mole", "ph",
	)},
	{"Biology", wordPatterns(
		"cell", "dna", "enzyme", "organism", "protein",
		"photosynthesis", "gene", "bacteria", "evolution", "tissue",
		"chromosome", "mitosis", "ecosystem", "respiration",
	)},
	{"Engineering", wordPatterns(
		"stress", "strain", "load", "beam", "circuit",
		"machine", "turbine", "hydraulic", "welding", "gear",
		"truss", "torsion", "shaft", "voltage",
	)},
	{"History", wordPatterns(
		"empire", "revolution", "war", "dynasty", "treaty",
		"civilization", "colonial", "independence", "medieval", "ancient",
		"monarchy", "reform", "nationalism",
	)},
	{"Literature", wordPatterns(
		"poem", "novel", "poetry", "metaphor", "drama",
		"prose", "sonnet", "narrative", "playwright", "rhyme",
		"protagonist", "imagery", "satire",
	)},
}

func wordPatterns(words ...string) []*regexp.Regexp {
	res := make([]*regexp.Regexp, len(words))
	for i, w := range words {
		res[i] = regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(w) + `\b`)
	}
	return res
}

// DetectSubject scores each subject by counting whole-word keyword occurrences
// (case-insensitive) and returns the highest scorer. Ties go to the subject
// appearing first in the table; a zero score across the board yields
// "General". Counts are absolute, not normalized by document length.
func DetectSubject(text string) string {
	best := "General"
	bestScore := 0
	for _, entry := range subjectTable {
		score := 0
		for _, re := range entry.keywords {
			score += len(re.FindAllStringIndex(text, -1))
		}
		if score > bestScore {
			bestScore = score
			best = entry.name
		}
	}
	return best
}
