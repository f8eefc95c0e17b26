package search

import (
	"github.com/gcbaptista/go-help-search/index"
	"github.com/gcbaptista/go-help-search/internal/tokenizer"
)

// phrase is a run of two or more valid words whose adjacent pairs must all
// be attested in a file.
type phrase struct {
	words []SearchWord
	found []bool // found[i] covers words[i], words[i+1]
}

func (p *phrase) exact() bool {
	for _, w := range p.words {
		if w.Wildcard {
			return false
		}
	}
	return true
}

// MultiPhrase checks the phrases of one query against per-file pair data
// for one book.
//
// Usage per candidate file: ResetMatches, SearchPairs with the file's data,
// then CheckForMatch.
type MultiPhrase struct {
	rules   BookRules
	phrases []*phrase
}

// NewMultiPhrase creates an empty phrase set that validates words with the
// book's rules.
func NewMultiPhrase(rules BookRules) *MultiPhrase {
	return &MultiPhrase{rules: rules}
}

// Parse builds the phrase list from a raw query.
func (m *MultiPhrase) Parse(query string) {
	m.ParseTokens(tokenizer.ParseQuery(query))
}

// ParseTokens builds the phrase list from tokenized input. Words invalid
// for the book are dropped from a phrase; a phrase left with fewer than two
// words needs no pair confirmation.
func (m *MultiPhrase) ParseTokens(tokens []tokenizer.Token) {
	m.phrases = m.phrases[:0]
	for _, t := range tokens {
		if !t.Phrase {
			continue
		}
		var words []SearchWord
		for _, w := range t.Words {
			if m.rules.ValidSearchWord(w) {
				words = append(words, NewSearchWord(w))
			}
		}
		if len(words) < 2 {
			continue
		}
		m.phrases = append(m.phrases, &phrase{words: words, found: make([]bool, len(words)-1)})
	}
}

// PhraseCount returns the number of phrases that need pair confirmation.
func (m *MultiPhrase) PhraseCount() int {
	return len(m.phrases)
}

// ResetMatches clears the match state before testing a new file.
func (m *MultiPhrase) ResetMatches() {
	for _, p := range m.phrases {
		for i := range p.found {
			p.found[i] = false
		}
	}
}

// SearchPairs marks every required pair attested by data.
func (m *MultiPhrase) SearchPairs(data *index.PairData) {
	if data.Len() == 0 {
		return
	}

	var all []index.Pair
	for _, p := range m.phrases {
		if p.exact() {
			for i := range p.found {
				if !p.found[i] && data.Contains(index.Pair{First: p.words[i].Text, Second: p.words[i+1].Text}) {
					p.found[i] = true
				}
			}
			continue
		}

		if all == nil {
			all = data.Pairs()
		}
		for i := range p.found {
			if p.found[i] {
				continue
			}
			first, second := p.words[i], p.words[i+1]
			for _, pair := range all {
				if first.Matches(pair.First) && second.Matches(pair.Second) {
					p.found[i] = true
					break
				}
			}
		}
	}
}

// CheckForMatch reports whether every phrase has all of its pairs attested.
func (m *MultiPhrase) CheckForMatch() bool {
	for _, p := range m.phrases {
		for _, ok := range p.found {
			if !ok {
				return false
			}
		}
	}
	return true
}
