package services

import (
	"sort"
	"strings"
)

const minTokenLength = 3

// stop words excluded from display keywords, not from search terms
var stopWords = map[string]bool{
	"the": true, "and": true, "for": true, "are": true, "but": true,
	"not": true, "was": true, "were": true, "with": true, "this": true,
	"that": true, "from": true, "they": true, "have": true, "has": true,
}

// Tokenize lowercases text and returns its distinct tokens longer than two
// characters, punctuation stripped. Both the query side and the chunk term
// side of keyword search use this, so matching stays symmetric.
func Tokenize(text string) []string {
	words := strings.Fields(strings.ToLower(text))

	seen := make(map[string]bool, len(words))
	tokens := make([]string, 0, len(words))
	for _, word := range words {
		word = strings.Trim(word, ".,;:!?()[]{}\"'`")
		if len(word) < minTokenLength || seen[word] {
			continue
		}
		seen[word] = true
		tokens = append(tokens, word)
	}
	return tokens
}

// TopKeywords extracts up to limit frequent non-stop-word terms for chunk
// metadata.
func TopKeywords(text string, limit int) []string {
	words := strings.Fields(strings.ToLower(text))

	wordFreq := make(map[string]int)
	for _, word := range words {
		word = strings.Trim(word, ".,;:!?()[]{}\"'`")
		if len(word) >= minTokenLength && !stopWords[word] {
			wordFreq[word]++
		}
	}

	type freq struct {
		word  string
		count int
	}
	ranked := make([]freq, 0, len(wordFreq))
	for word, count := range wordFreq {
		if count >= 2 {
			ranked = append(ranked, freq{word, count})
		}
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].count != ranked[j].count {
			return ranked[i].count > ranked[j].count
		}
		return ranked[i].word < ranked[j].word
	})

	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	keywords := make([]string, len(ranked))
	for i, f := range ranked {
		keywords[i] = f.word
	}
	return keywords
}
