package search

import "strings"

// Stop words ignored when matching query words
var stopWords = map[string]bool{
	"the": true, "a": true, "an": true, "be": true, "is": true, "are": true,
	"was": true, "to": true, "of": true, "and": true, "in": true, "that": true,
	"have": true, "it": true, "for": true, "not": true, "on": true, "with": true,
	"as": true, "you": true, "do": true, "at": true, "this": true, "but": true,
	"by": true, "from": true,
}

// tokenizeAndFilter splits text into words, lowercases, trims punctuation, and removes stop words
func tokenizeAndFilter(text string) []string {
	words := strings.Fields(text)
	filtered := make([]string, 0, len(words))

	for _, word := range words {
		cleaned := strings.ToLower(strings.Trim(word, ".,!?;:'\"-()[]{}/"))
		if cleaned != "" && !stopWords[cleaned] {
			filtered = append(filtered, cleaned)
		}
	}

	return filtered
}

// wordSet returns the filtered words of each text as a set.
func wordSet(texts ...string) map[string]bool {
	set := make(map[string]bool)
	for _, text := range texts {
		for _, word := range tokenizeAndFilter(text) {
			set[word] = true
		}
	}
	return set
}

// containsAllWords reports whether every query word is in the set. An empty
// word list never matches.
func containsAllWords(set map[string]bool, queryWords []string) bool {
	if len(queryWords) == 0 {
		return false
	}
	for _, word := range queryWords {
		if !set[word] {
			return false
		}
	}
	return true
}
