package match

import (
	"strings"
	"unicode/utf8"
)

// Normalize prepares a free-text label for comparison: leading asterisk
// markers stripped, internal whitespace collapsed, lowercased.
func Normalize(s string) string {
	s = strings.TrimLeft(s, "* \t")
	s = strings.Join(strings.Fields(s), " ")
	return strings.ToLower(strings.TrimSpace(s))
}

// Score computes a similarity score in [0,1] between two labels.
//
// The branches form a fixed priority cascade; downstream confidence tiers
// assume the exact constants, so keep the order and thresholds as they are:
//  1. equal after normalization               -> 1.0
//  2. one is a substring of the other        -> 0.7 + 0.2*(minLen/maxLen)
//  3. shared whole words                     -> 0.5 + 0.4*jaccard(word sets)
//  4. character bigram overlap               -> 0.3 * jaccard(bigram sets)
func Score(a, b string) float64 {
	an := Normalize(a)
	bn := Normalize(b)

	if an == "" || bn == "" {
		return 0.0
	}
	if an == bn {
		return 1.0
	}

	if strings.Contains(an, bn) || strings.Contains(bn, an) {
		// Length ratio counts characters, not bytes.
		minLen, maxLen := utf8.RuneCountInString(an), utf8.RuneCountInString(bn)
		if minLen > maxLen {
			minLen, maxLen = maxLen, minLen
		}
		return 0.7 + 0.2*float64(minLen)/float64(maxLen)
	}

	wordsA := wordSet(an)
	wordsB := wordSet(bn)
	common, total := overlap(wordsA, wordsB)
	if common > 0 {
		return 0.5 + 0.4*float64(common)/float64(total)
	}

	bigramsA := bigramSet(an)
	bigramsB := bigramSet(bn)
	common, total = overlap(bigramsA, bigramsB)
	if total > 0 {
		return 0.3 * float64(common) / float64(total)
	}

	return 0.0
}

func wordSet(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, w := range strings.Fields(s) {
		set[w] = struct{}{}
	}
	return set
}

func bigramSet(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for i := 0; i+2 <= len(s); i++ {
		set[s[i:i+2]] = struct{}{}
	}
	return set
}

func overlap(a, b map[string]struct{}) (common, total int) {
	for k := range a {
		if _, ok := b[k]; ok {
			common++
		}
	}
	total = len(a) + len(b) - common
	return common, total
}
