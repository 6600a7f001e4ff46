package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/tailscale/hujson"
)

// ErrWordFilterNotFound indicates no wordfilter.jsonc exists in any search path.
var ErrWordFilterNotFound = errors.New("could not find wordfilter.jsonc in any config path")

// WordFilterEntry is a blocked term with its spelling variants.
type WordFilterEntry struct {
	Term     string   `json:"term"`               // Primary term
	Variants []string `json:"variants,omitempty"` // Alternate spellings and abbreviations
	Note     string   `json:"note,omitempty"`     // Why the term is blocked
}

// WordFilter is the base word filter applied to communities without their own.
type WordFilter struct {
	Terms []WordFilterEntry `json:"terms"`
}

// Words flattens terms and variants into lowercase filter words, keeping the
// first occurrence of each.
func (w *WordFilter) Words() []string {
	words := make([]string, 0, len(w.Terms))
	seen := make(map[string]struct{}, len(w.Terms))

	add := func(word string) {
		word = strings.ToLower(strings.TrimSpace(word))
		if word == "" {
			return
		}
		if _, ok := seen[word]; ok {
			return
		}
		seen[word] = struct{}{}
		words = append(words, word)
	}

	for _, entry := range w.Terms {
		add(entry.Term)
		for _, variant := range entry.Variants {
			add(variant)
		}
	}

	return words
}

// LoadWordFilter loads wordfilter.jsonc from configDir, or from the regular
// search paths when configDir has none.
func LoadWordFilter(configDir string) (*WordFilter, error) {
	if configDir != "" {
		if filter, err := loadWordFilterFromPath(configDir + "/wordfilter.jsonc"); err == nil {
			return filter, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	}

	configPaths, err := searchPaths()
	if err != nil {
		return nil, err
	}

	for _, path := range configPaths {
		filter, err := loadWordFilterFromPath(path + "/wordfilter.jsonc")
		if err == nil {
			return filter, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	}

	return nil, ErrWordFilterNotFound
}

// loadWordFilterFromPath parses a JSONC word filter file.
func loadWordFilterFromPath(path string) (*WordFilter, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read word filter: %w", err)
	}

	standardJSON, err := hujson.Standardize(data)
	if err != nil {
		return nil, fmt.Errorf("failed to standardize JSONC in %s: %w", path, err)
	}

	var filter WordFilter
	if err := sonic.Unmarshal(standardJSON, &filter); err != nil {
		return nil, fmt.Errorf("failed to parse word filter %s: %w", path, err)
	}

	return &filter, nil
}
