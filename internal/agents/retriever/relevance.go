package retriever

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"go-mas/pkg/models"
)

var stopwords = map[string]bool{
	"the": true, "and": true, "for": true, "are": true, "was": true, "what": true,
	"which": true, "who": true, "how": true, "when": true, "where": true, "why": true,
	"with": true, "from": true, "that": true, "this": true, "does": true, "did": true,
	"has": true, "have": true, "into": true, "about": true, "many": true, "much": true,
	"its": true, "of": true, "in": true, "on": true, "is": true, "to": true, "a": true,
}

// Terms splits text into lowercased search terms. ASCII terms need three
// characters, others two runes, and stopwords are dropped.
func Terms(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	res := []string{}
	seen := map[string]bool{}
	for _, f := range fields {
		if seen[f] || stopwords[f] || !longEnough(f) {
			continue
		}
		seen[f] = true
		res = append(res, f)
	}
	return res
}

func longEnough(term string) bool {
	for _, r := range term {
		if r > unicode.MaxASCII {
			return utf8.RuneCountInString(term) >= 2
		}
	}
	return len(term) >= 3
}

// TermOverlap reports whether the result's title or snippet mentions any term.
func TermOverlap(r models.SearchResult, terms []string) bool {
	text := strings.ToLower(r.Title + " " + r.Snippet)
	for _, t := range terms {
		if t != "" && strings.Contains(text, t) {
			return true
		}
	}
	return false
}
