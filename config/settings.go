// Package config provides configuration structures for the help search service.
// It defines per-book search settings, search panel settings, and the
// environment-driven application configuration.
package config

import (
	"strings"
	"time"
)

// BookSearchSettings is the per-book search configuration produced by the
// help-set generator. It is loaded once per book and read-only afterward.
type BookSearchSettings struct {
	SearchFileCount   int      `json:"search_file_count"`   // Number of generated word shards for the book
	MinimumWordLength int      `json:"minimum_word_length"` // Words shorter than this are ignored unless they contain a wildcard
	SkipWords         []string `json:"skip_words"`          // Words never used for matching
}

// ApplyDefaults applies default values to the book search settings
func (s *BookSearchSettings) ApplyDefaults() {
	if s.SearchFileCount <= 0 {
		s.SearchFileCount = 1
	}
	if s.MinimumWordLength < 0 {
		s.MinimumWordLength = 0
	}
	if s.SkipWords == nil {
		s.SkipWords = []string{}
	}
}

// SkipWordSet returns the normalized skip words as a set.
// Blank entries are malformed configuration and are dropped.
func (s *BookSearchSettings) SkipWordSet() map[string]struct{} {
	set := make(map[string]struct{}, len(s.SkipWords))
	for _, w := range s.SkipWords {
		w = strings.ToLower(strings.TrimSpace(w))
		if w == "" {
			continue
		}
		set[w] = struct{}{}
	}
	return set
}

// Validate returns a list of human readable problems with the settings
func (s *BookSearchSettings) Validate() []string {
	var problems []string

	if s.SearchFileCount < 0 {
		problems = append(problems, "search_file_count cannot be negative")
	}
	if s.MinimumWordLength < 0 {
		problems = append(problems, "minimum_word_length cannot be negative")
	}
	problems = append(problems, checkDuplicates("skip_words", s.SkipWords)...)

	return problems
}

// PanelSettings controls how a search panel runs queries and renders results.
type PanelSettings struct {
	ResultsByBook  bool          `json:"results_by_book"`  // Always group results under book titles
	ShowRank       bool          `json:"show_rank"`        // Render rank percentages
	MaxSegmentSize int           `json:"max_segment_size"` // Soft byte limit of one rendered result segment
	LoadTimeout    time.Duration `json:"load_timeout"`     // Upper bound for one query's data loads
}

// ApplyDefaults applies default values to the panel settings
func (s *PanelSettings) ApplyDefaults() {
	if s.MaxSegmentSize <= 0 {
		s.MaxSegmentSize = 4096
	}
	if s.LoadTimeout <= 0 {
		s.LoadTimeout = 30 * time.Second
	}
}

// checkDuplicates checks for duplicate values in a slice and returns error messages
func checkDuplicates(fieldName string, values []string) []string {
	var errors []string
	seen := make(map[string]bool)

	for _, v := range values {
		key := strings.ToLower(strings.TrimSpace(v))
		if seen[key] {
			errors = append(errors, "Duplicate value '"+v+"' found in "+fieldName)
		}
		seen[key] = true
	}

	return errors
}
