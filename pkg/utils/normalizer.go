package utils

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// TextNormalizer wraps transform.Transformer to provide convenient string normalization methods.
// This is not safe for concurrent use.
type TextNormalizer struct {
	transformer transform.Transformer
}

// NewTextNormalizer creates a new TextNormalizer instance.
func NewTextNormalizer() *TextNormalizer {
	return &TextNormalizer{
		transformer: transform.Chain(
			norm.NFKD,                          // Decompose with compatibility decomposition
			runes.Remove(runes.In(unicode.Mn)), // Remove non-spacing marks
			runes.Map(unicode.ToLower),         // Convert to lowercase before normalization
			norm.NFKC,                          // Normalize with compatibility composition
		),
	}
}

// Normalize folds case and diacritics and compresses whitespace.
// Returns empty string if normalization fails or input is empty.
func (n *TextNormalizer) Normalize(s string) string {
	if s == "" {
		return ""
	}

	s = CompressWhitespacePreserveNewlines(s)
	if s == "" {
		return ""
	}

	result, _, err := transform.String(n.transformer, s)
	if err != nil || result == "" {
		return ""
	}

	return result
}

// WordPattern compiles a case-insensitive whole-word matcher for a phrase.
// The phrase is normalized and regex metacharacters are escaped. Phrases that
// start or end with a non-word character are anchored on whitespace instead of
// a word boundary so that entries such as "c++" still match. Letters and
// digits of any script count as word runes.
func (n *TextNormalizer) WordPattern(phrase string) (*regexp.Regexp, bool) {
	normalized := n.Normalize(phrase)
	if normalized == "" {
		normalized = strings.TrimSpace(strings.ToLower(phrase))
	}
	if normalized == "" {
		return nil, false
	}

	quoted := regexp.QuoteMeta(normalized)
	prefix, suffix := `(?:^|[^\p{L}\p{N}_])`, `(?:$|[^\p{L}\p{N}_])`
	if !isWordRune(firstRune(normalized)) {
		prefix = `(?:^|\s)`
	}
	if !isWordRune(lastRune(normalized)) {
		suffix = `(?:$|\s)`
	}

	re, err := regexp.Compile(`(?i)` + prefix + quoted + suffix)
	if err != nil {
		return nil, false
	}

	return re, true
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsNumber(r)
}

func firstRune(s string) rune {
	for _, r := range s {
		return r
	}
	return 0
}

func lastRune(s string) rune {
	var last rune
	for _, r := range s {
		last = r
	}
	return last
}
