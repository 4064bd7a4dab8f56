package match

import (
	"regexp"
	"strings"

	"github.com/adrg/strutil"
	"github.com/adrg/strutil/metrics"
)

var (
	// Parenthesized qualifiers ("(Live)", "(feat. X)", CJK brackets) hurt
	// search recall badly, so they are stripped from queries.
	parensRegex = regexp.MustCompile(`\([^)]*\)|（[^）]*）`)

	punctRegex = regexp.MustCompile(`[^\p{L}\p{N}\s]+`)
	spaceRegex = regexp.MustCompile(`\s+`)
)

// StripParens removes parenthesized segments, preserving the original casing
// of what remains. Used for display-facing query text.
func StripParens(s string) string {
	s = parensRegex.ReplaceAllString(s, " ")
	return strings.TrimSpace(spaceRegex.ReplaceAllString(s, " "))
}

// Normalize lower-cases, strips punctuation, and collapses whitespace.
// Comparison only; never shown to the user.
func Normalize(s string) string {
	s = strings.ToLower(StripParens(s))
	s = punctRegex.ReplaceAllString(s, " ")
	return strings.TrimSpace(spaceRegex.ReplaceAllString(s, " "))
}

var jaroWinkler = metrics.NewJaroWinkler()

// titleSimilarity scores two titles in [0,1] using Jaro-Winkler over the
// normalized forms.
func titleSimilarity(a, b string) float64 {
	na, nb := Normalize(a), Normalize(b)
	if na == "" || nb == "" {
		if na == nb {
			return 1
		}
		return 0
	}
	return strutil.Similarity(na, nb, jaroWinkler)
}

// artistOverlap computes the Jaccard overlap of the two normalized artist sets.
func artistOverlap(a, b []string) float64 {
	setA := artistSet(a)
	setB := artistSet(b)
	if len(setA) == 0 || len(setB) == 0 {
		if len(setA) == len(setB) {
			return 1
		}
		return 0
	}

	intersection := 0
	for name := range setA {
		if _, ok := setB[name]; ok {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection

	return float64(intersection) / float64(union)
}

func artistSet(names []string) map[string]struct{} {
	set := make(map[string]struct{}, len(names))
	for _, name := range names {
		if n := Normalize(name); n != "" {
			set[n] = struct{}{}
		}
	}
	return set
}

// durationCloseness maps the duration delta onto [0,1], hitting zero at 15s apart.
func durationCloseness(aMS, bMS int) float64 {
	delta := aMS - bMS
	if delta < 0 {
		delta = -delta
	}
	closeness := 1 - float64(delta)/15000
	if closeness < 0 {
		return 0
	}
	return closeness
}
