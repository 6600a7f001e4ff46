package heuristics_test

import (
	"testing"

	"github.com/barazo-forum/barazo-api-sub002/internal/heuristics"
	"github.com/stretchr/testify/assert"
)

func set(values ...string) map[string]struct{} {
	s := make(map[string]struct{}, len(values))
	for _, v := range values {
		s[v] = struct{}{}
	}
	return s
}

func TestTrigrams(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		text string
		want map[string]struct{}
	}{
		{name: "empty", text: "", want: set()},
		{name: "too short after normalization", text: "Hi!!", want: set()},
		{name: "exactly three", text: "ABC", want: set("abc")},
		{
			name: "punctuation collapses to one space",
			text: "Hi,  there",
			want: set("hi ", "i t", " th", "the", "her", "ere"),
		},
		{name: "edges trimmed", text: "--abcd--", want: set("abc", "bcd")},
		{name: "repeats collapse", text: "aaaa", want: set("aaa")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, heuristics.Trigrams(tt.text))
		})
	}
}

func TestJaccard(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 1.0, heuristics.Jaccard(set(), set()), 1e-9)
	assert.InDelta(t, 0.0, heuristics.Jaccard(set("abc"), set()), 1e-9)
	assert.InDelta(t, 0.0, heuristics.Jaccard(set(), set("abc")), 1e-9)
	assert.InDelta(t, 0.5, heuristics.Jaccard(set("abc", "bcd", "cde"), set("abc", "bcd", "xyz")), 1e-9)
	assert.InDelta(t, 1.0, heuristics.Jaccard(set("abc", "bcd"), set("bcd", "abc")), 1e-9)
	assert.InDelta(t, 0.0, heuristics.Jaccard(set("abc"), set("xyz")), 1e-9)
}

func TestJaccardOfIdenticalTexts(t *testing.T) {
	t.Parallel()

	a := heuristics.Trigrams("Follow my channel for free crypto giveaways!")
	b := heuristics.Trigrams("follow my channel... for FREE crypto giveaways")
	assert.InDelta(t, 1.0, heuristics.Jaccard(a, b), 1e-9)
}
