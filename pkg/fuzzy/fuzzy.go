// Package fuzzy decides whether an expected phrase appears, exactly or
// approximately, inside a body of text.
package fuzzy

import (
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// DefaultThreshold is the similarity ratio used for titles, H1s and metrics.
const DefaultThreshold = 0.8

// Matches reports whether needle occurs in haystack. A literal substring is
// always a match. Otherwise every run of len(words(needle)) consecutive
// haystack words is compared with needle and the best ratio must reach
// threshold.
func Matches(needle, haystack string, threshold float64) bool {
	needle = strings.ToLower(strings.TrimSpace(needle))
	haystack = strings.ToLower(haystack)
	if needle == "" || haystack == "" {
		return false
	}
	if strings.Contains(haystack, needle) {
		return true
	}

	n := len(strings.Fields(needle))
	words := strings.Fields(haystack)
	if n == 0 {
		return false
	}
	for i := 0; i+n <= len(words); i++ {
		window := strings.Join(words[i:i+n], " ")
		if Ratio(needle, window) >= threshold {
			return true
		}
	}
	return false
}

// Ratio is the sequence similarity of a and b: twice the number of matched
// characters over the total number of characters.
func Ratio(a, b string) float64 {
	if a == "" && b == "" {
		return 1
	}
	return difflib.NewMatcher(runes(a), runes(b)).Ratio()
}

func runes(s string) []string {
	out := make([]string, 0, len(s))
	for _, r := range s {
		out = append(out, string(r))
	}
	return out
}
