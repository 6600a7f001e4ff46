package heuristics

import (
	"strings"
	"unicode"
)

// Trigrams returns the set of 3-character substrings of text after lowercasing
// and collapsing every run of non-alphanumeric characters into one space.
// Texts shorter than 3 characters after normalization yield an empty set.
func Trigrams(text string) map[string]struct{} {
	runes := []rune(normalizeText(text))
	set := make(map[string]struct{}, max(len(runes)-2, 0))
	if len(runes) < 3 {
		return set
	}

	for i := 0; i+3 <= len(runes); i++ {
		set[string(runes[i:i+3])] = struct{}{}
	}

	return set
}

// Jaccard is |a ∩ b| / |a ∪ b|. Two empty sets are identical; one empty set
// shares nothing with a non-empty one.
func Jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1
	}
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	if len(a) > len(b) {
		a, b = b, a
	}

	intersection := 0
	for k := range a {
		if _, ok := b[k]; ok {
			intersection++
		}
	}

	return float64(intersection) / float64(len(a)+len(b)-intersection)
}

// normalizeText lowercases text and collapses non-alphanumeric runs into single spaces.
func normalizeText(text string) string {
	var b strings.Builder
	b.Grow(len(text))

	pendingSpace := false
	for _, r := range strings.ToLower(text) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if pendingSpace && b.Len() > 0 {
				b.WriteByte(' ')
			}
			pendingSpace = false
			b.WriteRune(r)
			continue
		}
		pendingSpace = true
	}

	return b.String()
}
