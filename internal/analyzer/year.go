package analyzer

import "regexp"

// Year patterns in priority order. The first pattern that matches anywhere in
// the text wins; no attempt is made to find the most frequent year or the one
// closest to the header.
var (
	bareYearRe = regexp.MustCompile(`\b20\d{2}\b`)

	yearPatterns = []*regexp.Regexp{
		regexp.MustCompile(`\b20\d{2}\s*-\s*\d{2,4}\b`),      // 2021-22, 2021-2022
		regexp.MustCompile(`\b20\d{2}\s*/\s*\d{2,4}\b`),      // 2021/22
		regexp.MustCompile(`\b20\d{2}\s*\([^)]*\)`),          // 2018 (CBCS)
		regexp.MustCompile(`(?i)\b20\d{2}\s+batch\b`),        // 2019 batch
		regexp.MustCompile(`(?i)\b20\d{2}\s+scheme\b`),       // 2020 Scheme
	}

	yearStripRe = regexp.MustCompile(`[^0-9/-]`)
)

// ExtractYear returns the publication year found in a paper's text, stripped
// to digits, hyphen and slash ("2021", "2021-22", "2020/21"). It returns ""
// when no year-like substring is present.
func ExtractYear(text string) string {
	// A bare four-digit year has top priority, but a year immediately
	// followed (or preceded) by "-" or "/" is part of a range and must be
	// left for the range patterns below.
	for _, loc := range bareYearRe.FindAllStringIndex(text, -1) {
		if loc[0] > 0 && isRangeSep(text[loc[0]-1]) {
			continue
		}
		if loc[1] < len(text) && isRangeSep(text[loc[1]]) {
			continue
		}
		return text[loc[0]:loc[1]]
	}

	for _, re := range yearPatterns {
		if m := re.FindString(text); m != "" {
			return yearStripRe.ReplaceAllString(m, "")
		}
	}
	return ""
}

func isRangeSep(b byte) bool {
	return b == '-' || b == '/'
}
