package store

import (
	"regexp"
	"strings"
)

// wordRegex matches alphanumeric word sequences, including hyphenated
// compounds common in academic prose ("self-attention", "state-of-the-art").
var wordRegex = regexp.MustCompile(`[a-zA-Z0-9]+(?:-[a-zA-Z0-9]+)*`)

// TokenizeProse splits text into lowercase word tokens. Hyphenated compounds
// are kept whole and additionally split into their parts so both forms match.
func TokenizeProse(text string) []string {
	var tokens []string
	for _, word := range wordRegex.FindAllString(text, -1) {
		lower := strings.ToLower(word)
		if len(lower) < 2 {
			continue
		}
		tokens = append(tokens, lower)
		if strings.Contains(lower, "-") {
			for _, part := range strings.Split(lower, "-") {
				if len(part) >= 2 {
					tokens = append(tokens, part)
				}
			}
		}
	}
	return tokens
}

// FilterStopWords removes stop words from a token list.
func FilterStopWords(tokens []string, stopWords map[string]struct{}) []string {
	result := make([]string, 0, len(tokens))
	for _, token := range tokens {
		if _, isStop := stopWords[token]; !isStop {
			result = append(result, token)
		}
	}
	return result
}

// BuildStopWordMap converts a slice of stop words to a lookup map.
func BuildStopWordMap(stopWords []string) map[string]struct{} {
	m := make(map[string]struct{}, len(stopWords))
	for _, word := range stopWords {
		m[strings.ToLower(word)] = struct{}{}
	}
	return m
}
