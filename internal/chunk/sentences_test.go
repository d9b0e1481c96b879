package chunk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func splitText(t *testing.T, text string) []Sentence {
	t.Helper()
	splitter := newSentenceSplitter(DefaultAbbreviations)
	return splitter.Split(PageText{PageNumber: 1, Text: text})
}

func sentenceTexts(sentences []Sentence) []string {
	out := make([]string, len(sentences))
	for i, s := range sentences {
		out[i] = s.Text
	}
	return out
}

func TestSentenceSplitter_Basic(t *testing.T) {
	got := splitText(t, "First sentence. Second sentence! Third one?")
	assert.Equal(t, []string{
		"First sentence.",
		"Second sentence!",
		"Third one?",
	}, sentenceTexts(got))
}

func TestSentenceSplitter_Abbreviations(t *testing.T) {
	got := splitText(t, "See Fig. 3 for details. Dr. Smith et al. proposed this.")
	assert.Equal(t, []string{
		"See Fig. 3 for details.",
		"Dr. Smith et al. proposed this.",
	}, sentenceTexts(got))
}

func TestSentenceSplitter_Decimals(t *testing.T) {
	got := splitText(t, "Accuracy reached 99.5 percent. Loss fell to 0.03.")
	assert.Equal(t, []string{
		"Accuracy reached 99.5 percent.",
		"Loss fell to 0.03.",
	}, sentenceTexts(got))
}

func TestSentenceSplitter_Initials(t *testing.T) {
	got := splitText(t, "J. Smith wrote the paper. It was published in 2020.")
	assert.Equal(t, []string{
		"J. Smith wrote the paper.",
		"It was published in 2020.",
	}, sentenceTexts(got))
}

func TestSentenceSplitter_TrailingClosers(t *testing.T) {
	got := splitText(t, `He asked "why?" Then he left... The end.`)
	require.NotEmpty(t, got)
	assert.Equal(t, `He asked "why?"`, got[0].Text)
}

func TestSentenceSplitter_NoTerminator(t *testing.T) {
	got := splitText(t, "a heading without punctuation")
	require.Len(t, got, 1)
	assert.Equal(t, "a heading without punctuation", got[0].Text)
}

func TestSentenceSplitter_Empty(t *testing.T) {
	assert.Empty(t, splitText(t, ""))
	assert.Empty(t, splitText(t, "   \n  "))
}

func TestSentenceSplitter_Offsets(t *testing.T) {
	text := "  One two. Three four!  "
	got := splitText(t, text)
	require.Len(t, got, 2)

	for _, s := range got {
		assert.Equal(t, text[s.Start:s.End], s.Text)
		assert.Equal(t, 1, s.PageNumber)
	}
	assert.Equal(t, 2, got[0].Start)
}

func TestSentenceSplitter_UnicodeOffsets(t *testing.T) {
	text := "Schrödinger proposed the equation. Curie studied radium."
	got := splitText(t, text)
	require.Len(t, got, 2)
	for _, s := range got {
		assert.Equal(t, text[s.Start:s.End], s.Text)
	}
}

func TestSentence_WordCount(t *testing.T) {
	s := Sentence{Text: "three word sentence"}
	assert.Equal(t, 3, s.WordCount())
}
