package services

import (
	"strings"
	"unicode"
)

// Relevance scoring for keyword search. Exact phrase matches always
// outrank keyword coverage, and coverage always outranks raw term
// frequency: the frequency component is normalised into [0, 1) while
// each distinct matched keyword contributes a fixed weight well above
// it, and a phrase hit contributes more than any realistic number of
// keywords could.
const (
	phraseMatchWeight = 1000.0
	keywordWeight     = 10.0
)

// tokenize lowercases text and splits it on any non-alphanumeric rune.
func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}

// queryKeywords tokenizes a query and drops repeated tokens so a
// keyword counts once toward coverage no matter how often it appears
// in the query.
func queryKeywords(query string) []string {
	tokens := tokenize(query)
	seen := make(map[string]struct{}, len(tokens))
	keywords := tokens[:0]
	for _, tok := range tokens {
		if _, ok := seen[tok]; ok {
			continue
		}
		seen[tok] = struct{}{}
		keywords = append(keywords, tok)
	}
	return keywords
}

// scoreChunk ranks chunk content against a query. A zero score means no
// keyword matched. Scoring is pure: identical inputs always produce the
// same score.
func scoreChunk(query string, keywords []string, content string) float64 {
	if len(keywords) == 0 {
		return 0
	}

	contentLower := strings.ToLower(content)
	tokens := tokenize(contentLower)
	if len(tokens) == 0 {
		return 0
	}

	freq := make(map[string]int, len(tokens))
	for _, tok := range tokens {
		freq[tok]++
	}

	matched := 0
	occurrences := 0
	for _, kw := range keywords {
		if n := freq[kw]; n > 0 {
			matched++
			occurrences += n
		}
	}
	if matched == 0 {
		return 0
	}

	score := keywordWeight * float64(matched)
	score += float64(occurrences) / float64(len(tokens)+1)

	phrase := strings.ToLower(strings.TrimSpace(query))
	if phrase != "" && strings.Contains(contentLower, phrase) {
		score += phraseMatchWeight
	}
	return score
}
