package quiz

import (
	"strings"
	"unicode"
	"unicode/utf8"

	levenshtein "github.com/ka-weihe/fast-levenshtein"
	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var folder = cases.Fold()

// normalize folds case, strips diacritics and collapses whitespace.
func normalize(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := transform.String(t, s)
	if err != nil {
		stripped = s
	}
	return strings.Join(strings.Fields(folder.String(stripped)), " ")
}

// Similarity returns how close a and b are once normalized, from 0 to 1.
func Similarity(a, b string) float64 {
	a, b = normalize(a), normalize(b)
	if a == b {
		return 1
	}

	longest := max(utf8.RuneCountInString(a), utf8.RuneCountInString(b))
	if longest == 0 {
		return 1
	}
	return 1 - float64(levenshtein.Distance(a, b))/float64(longest)
}

// similar reports whether answer matches any candidate at threshold percent.
func similar(answer string, threshold int, candidates ...string) bool {
	for _, c := range candidates {
		if c == "" {
			continue
		}
		if Similarity(answer, c)*100 >= float64(threshold) {
			return true
		}
	}
	return false
}
