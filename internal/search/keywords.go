// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"strings"
	"unicode"
)

// stopWords lists common English words stripped when converting a
// natural-language question into a keyword query.
var stopWords = map[string]bool{
	"a": true, "an": true, "and": true, "are": true, "as": true, "at": true,
	"be": true, "by": true, "can": true, "do": true, "does": true, "for": true,
	"from": true, "has": true, "have": true, "how": true, "in": true, "is": true,
	"it": true, "of": true, "on": true, "or": true, "that": true, "the": true,
	"to": true, "what": true, "when": true, "where": true, "which": true,
	"who": true, "why": true, "will": true, "with": true,
}

// Keywords converts a natural-language query into a keyword string for
// providers that perform poorly on full sentences. Punctuation is stripped,
// stop words are removed, and word order is preserved. Queries that reduce
// to nothing are returned unchanged.
func Keywords(query string) string {
	var words []string
	for _, field := range strings.Fields(query) {
		word := strings.TrimFunc(field, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		})
		if word == "" || stopWords[strings.ToLower(word)] {
			continue
		}
		words = append(words, word)
	}
	if len(words) == 0 {
		return query
	}
	return strings.Join(words, " ")
}
