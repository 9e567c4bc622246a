package extractor

import (
	"regexp"
	"sort"
	"strings"
	"unicode"

	"github.com/dtnitsch/content-qa/models"
)

// Each pattern captures the text after a label up to a newline, the end of
// input, or a run of two or more whitespace characters.
var (
	titleRe       = regexp.MustCompile(`(?i)(?:SEO\s+Title|Title\s+Tag|Page\s+Title)[:\s]+(.*?)(?:\n|$|\s{2,})`)
	descriptionRe = regexp.MustCompile(`(?i)(?:Meta\s+Description|SEO\s+Description|Description)[:\s]+(.*?)(?:\n|$|\s{2,})`)
	h1Re          = regexp.MustCompile(`(?i)(?:H1\s+Header|H1\s+Tag|H1)[:\s]+(.*?)(?:\n|$|\s{2,})`)

	metricRe = regexp.MustCompile(`(?i)(\d+\+?\s+Years|\d\.\d\s+Stars|\d+\+\s+Service areas)`)
)

// ExtractMetadata pulls the expected title, description and H1 out of free
// text. Labels that are not present leave their field empty.
func ExtractMetadata(text string) models.ExpectedMetadata {
	text = foldSpaces(text)
	return models.ExpectedMetadata{
		Title:       firstCapture(titleRe, text),
		Description: firstCapture(descriptionRe, text),
		H1:          firstCapture(h1Re, text),
	}
}

// ExtractMetrics returns the distinct metric phrases found in text, sorted.
func ExtractMetrics(text string) []string {
	seen := make(map[string]struct{})
	for _, m := range metricRe.FindAllString(foldSpaces(text), -1) {
		seen[m] = struct{}{}
	}

	metrics := make([]string, 0, len(seen))
	for m := range seen {
		metrics = append(metrics, m)
	}
	sort.Strings(metrics)
	return metrics
}

func firstCapture(re *regexp.Regexp, text string) string {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}

// foldSpaces maps non-ASCII whitespace (NBSP from published docs, thin and
// ideographic spaces) to a plain space. RE2's \s only covers ASCII.
func foldSpaces(text string) string {
	return strings.Map(func(r rune) rune {
		if r > unicode.MaxASCII && unicode.IsSpace(r) {
			return ' '
		}
		return r
	}, text)
}
