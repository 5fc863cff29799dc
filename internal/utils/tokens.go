package utils

import (
	"regexp"
	"strings"
)

var (
	tokenPattern = regexp.MustCompile(`[a-z0-9]+`)

	// Filler words that add noise to a keyword search over transcripts
	stopwords = map[string]struct{}{
		"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {}, "be": {},
		"call": {}, "calls": {}, "for": {}, "from": {}, "had": {}, "have": {},
		"in": {}, "is": {}, "it": {}, "meeting": {}, "of": {}, "on": {},
		"or": {}, "our": {}, "that": {}, "the": {}, "their": {}, "them": {},
		"they": {}, "this": {}, "to": {}, "was": {}, "we": {}, "were": {},
		"with": {},
	}
)

// ExtractSearchTokens lowercases and tokenizes free text, drops stopwords
// and single letters, and deduplicates while preserving order
func ExtractSearchTokens(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	raw := tokenPattern.FindAllString(strings.ToLower(text), -1)
	seen := make(map[string]struct{}, len(raw))
	tokens := make([]string, 0, len(raw))
	for _, token := range raw {
		if len(token) == 1 && (token[0] < '0' || token[0] > '9') {
			continue
		}
		if _, isStopword := stopwords[token]; isStopword {
			continue
		}
		if _, exists := seen[token]; exists {
			continue
		}
		seen[token] = struct{}{}
		tokens = append(tokens, token)
	}
	return tokens
}

// NormalizeQuery reduces a raw search query to its meaningful tokens joined
// by single spaces. An all-stopword query normalizes to the empty string.
func NormalizeQuery(query string) string {
	return strings.Join(ExtractSearchTokens(query), " ")
}
