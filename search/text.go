package search

import (
	"strings"
	"unicode"
)

var stopWords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "be": {}, "is": {}, "are": {},
	"was": {}, "to": {}, "of": {}, "and": {}, "in": {}, "that": {},
	"have": {}, "it": {}, "for": {}, "not": {}, "on": {}, "with": {},
	"as": {}, "you": {}, "do": {}, "at": {}, "this": {}, "but": {},
	"by": {}, "from": {}, "what": {}, "how": {}, "or": {},
}

// words lowercases text and splits it on anything that is not a letter or
// digit, so markdown markup ("##", "|", "**") never forms a word.
func words(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func queryTerms(query string) []string {
	all := words(query)
	terms := all[:0]
	for _, w := range all {
		if _, stop := stopWords[w]; !stop {
			terms = append(terms, w)
		}
	}
	return terms
}

// containsAllQueryWords reports whether every non-stop-word of query occurs
// in document.
func containsAllQueryWords(document, query string) bool {
	terms := queryTerms(query)
	if len(terms) == 0 {
		return false
	}

	present := make(map[string]struct{})
	for _, w := range words(document) {
		present[w] = struct{}{}
	}
	for _, t := range terms {
		if _, ok := present[t]; !ok {
			return false
		}
	}
	return true
}
