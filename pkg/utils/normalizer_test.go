package utils_test

import (
	"testing"

	"github.com/barazo-forum/barazo-api-sub002/pkg/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTextNormalizer(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "empty string", input: "", want: ""},
		{name: "basic string", input: "Hello World", want: "hello world"},
		{name: "string with diacritics", input: "héllo wörld", want: "hello world"},
		{name: "mixed case with spaces", input: "HéLLo   WöRLD", want: "hello world"},
		{name: "cyrillic", input: "Спам   Здесь", want: "спам здесь"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, utils.NewTextNormalizer().Normalize(tt.input))
		})
	}
}

func TestTextNormalizer_WordPattern(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		phrase  string
		content string
		want    bool
	}{
		{name: "whole word", phrase: "spam", content: "this is spam here", want: true},
		{name: "case insensitive", phrase: "spam", content: "this is SPAM here", want: true},
		{name: "prefix of longer word", phrase: "spam", content: "spammer", want: false},
		{name: "suffix of longer word", phrase: "spam", content: "antispam", want: false},
		{name: "multi word phrase", phrase: "buy now", content: "please BUY NOW!", want: true},
		{name: "regex metacharacters", phrase: "c++", content: "i love c++ a lot", want: true},
		{name: "dot is literal", phrase: "a.b", content: "axb", want: false},
		{name: "diacritics folded", phrase: "cafe", content: "meet at the café", want: true},
		{name: "punctuation boundary", phrase: "scam", content: "total scam.", want: true},
		{name: "cyrillic before punctuation", phrase: "спам", content: "это спам, правда", want: true},
		{name: "cyrillic at end", phrase: "спам", content: "это спам", want: true},
		{name: "cyrillic prefix of longer word", phrase: "спам", content: "спамер", want: false},
		{name: "cyrillic suffix of longer word", phrase: "спам", content: "антиспам", want: false},
		{name: "latin inside cyrillic word", phrase: "spam", content: "пspamр", want: false},
		{name: "cjk phrase spaced", phrase: "垃圾", content: "这是 垃圾 !", want: true},
		{name: "digits are word runes", phrase: "x1", content: "x12", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			normalizer := utils.NewTextNormalizer()

			re, ok := normalizer.WordPattern(tt.phrase)
			require.True(t, ok)
			assert.Equal(t, tt.want, re.MatchString(normalizer.Normalize(tt.content)))
		})
	}
}

func TestTextNormalizer_WordPatternEmpty(t *testing.T) {
	t.Parallel()

	_, ok := utils.NewTextNormalizer().WordPattern("   ")
	assert.False(t, ok)
}
