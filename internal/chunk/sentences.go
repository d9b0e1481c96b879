package chunk

import (
	"strings"
	"unicode"
)

// Sentence is one sentence with its page attribution and byte offsets into
// that page's text.
type Sentence struct {
	Text       string
	PageNumber int
	Start      int
	End        int
}

// WordCount returns the number of whitespace-separated words.
func (s *Sentence) WordCount() int {
	return len(splitWords(s.Text))
}

// sentenceSplitter splits page text into sentences, treating a configured
// abbreviation list as non-terminators.
type sentenceSplitter struct {
	abbreviations map[string]struct{}
}

func newSentenceSplitter(abbreviations []string) *sentenceSplitter {
	m := make(map[string]struct{}, len(abbreviations))
	for _, a := range abbreviations {
		m[strings.ToLower(strings.TrimSuffix(a, "."))] = struct{}{}
	}
	return &sentenceSplitter{abbreviations: m}
}

// Split returns the sentences of one page in order. Text without terminal
// punctuation yields a single sentence; whitespace-only text yields none.
func (s *sentenceSplitter) Split(page PageText) []Sentence {
	text := page.Text
	var sentences []Sentence
	start := 0

	runes := []rune(text)
	bytePos := 0
	byteOf := make([]int, len(runes)+1)
	for i, r := range runes {
		byteOf[i] = bytePos
		bytePos += len(string(r))
	}
	byteOf[len(runes)] = len(text)

	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if r != '.' && r != '!' && r != '?' {
			continue
		}
		if r == '.' && s.isNonTerminator(runes, i) {
			continue
		}
		// Consume trailing closers and repeated terminators ("...", '?)').
		end := i + 1
		for end < len(runes) && (runes[end] == '.' || runes[end] == '!' ||
			runes[end] == '?' || runes[end] == ')' || runes[end] == '"' ||
			runes[end] == '\'') {
			end++
		}

		raw := text[byteOf[start]:byteOf[end]]
		if trimmed := strings.TrimSpace(raw); trimmed != "" {
			lead := len(raw) - len(strings.TrimLeft(raw, " \t\r\n"))
			sentences = append(sentences, Sentence{
				Text:       trimmed,
				PageNumber: page.PageNumber,
				Start:      byteOf[start] + lead,
				End:        byteOf[start] + lead + len(trimmed),
			})
		}
		i = end - 1
		start = end
	}

	// Trailing text without a terminator.
	if byteOf[start] < len(text) {
		raw := text[byteOf[start]:]
		if trimmed := strings.TrimSpace(raw); trimmed != "" {
			lead := len(raw) - len(strings.TrimLeft(raw, " \t\r\n"))
			sentences = append(sentences, Sentence{
				Text:       trimmed,
				PageNumber: page.PageNumber,
				Start:      byteOf[start] + lead,
				End:        byteOf[start] + lead + len(trimmed),
			})
		}
	}

	return sentences
}

// isNonTerminator reports whether the period at index i ends an abbreviation,
// an initial, or sits inside a number, and therefore does not end a sentence.
func (s *sentenceSplitter) isNonTerminator(runes []rune, i int) bool {
	// Decimal numbers: "3.14".
	if i > 0 && i+1 < len(runes) && unicode.IsDigit(runes[i-1]) && unicode.IsDigit(runes[i+1]) {
		return true
	}

	// Word immediately before the period.
	wordStart := i
	for wordStart > 0 && (unicode.IsLetter(runes[wordStart-1]) || runes[wordStart-1] == '.') {
		wordStart--
	}
	if wordStart == i {
		return false
	}
	prev := strings.ToLower(strings.TrimSuffix(string(runes[wordStart:i]), "."))

	// Single-letter initials: "J. Smith".
	if len(prev) == 1 {
		return true
	}
	_, isAbbrev := s.abbreviations[prev]
	return isAbbrev
}
