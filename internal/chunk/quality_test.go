package chunk

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const goodProse = "The model learns contextual representations from unlabeled text. " +
	"Pretraining exploits large corpora without manual annotation. " +
	"Fine-tuning then adapts those weights to downstream tasks. " +
	"Evaluation covers parsing, entailment, and question answering. " +
	"Results improve steadily with model capacity."

func TestQualityScorer_AcceptsProse(t *testing.T) {
	scorer := NewQualityScorer(QualityConfig{})

	score := scorer.Score(goodProse)
	assert.True(t, score.Accepted)
	assert.Empty(t, string(score.Reason))
	assert.Greater(t, score.Composite, 0.4)
	assert.Greater(t, score.Entropy, 0.8)
}

func TestQualityScorer_RejectsRepeatedWord(t *testing.T) {
	scorer := NewQualityScorer(QualityConfig{})

	score := scorer.Score(strings.Repeat("header ", 40))
	assert.False(t, score.Accepted)
	assert.Equal(t, RejectLowEntropy, score.Reason)
	assert.Zero(t, score.Entropy)
}

func TestQualityScorer_RejectsEmpty(t *testing.T) {
	scorer := NewQualityScorer(QualityConfig{})

	score := scorer.Score("   \n  ")
	assert.False(t, score.Accepted)
	assert.Equal(t, RejectEmpty, score.Reason)
}

func TestQualityScorer_RejectsWordLength(t *testing.T) {
	scorer := NewQualityScorer(QualityConfig{})

	// Single characters: average length 1, under the minimum of 2.
	score := scorer.Score("a b c d e f g h i j k l m n o p")
	assert.False(t, score.Accepted)
	assert.Equal(t, RejectWordLength, score.Reason)

	// Synthetic over-long tokens.
	long := strings.Repeat("x", 20)
	score = scorer.Score(long + "a " + long + "b " + long + "c " + long + "d")
	assert.False(t, score.Accepted)
	assert.Equal(t, RejectWordLength, score.Reason)
}

func TestQualityScorer_RejectsWordCount(t *testing.T) {
	scorer := NewQualityScorer(QualityConfig{})

	// High entropy and a plausible word length, but only three words.
	score := scorer.Score("quantum flux widget")
	assert.False(t, score.Accepted)
	assert.Equal(t, RejectWordCount, score.Reason)
	assert.Equal(t, 3, score.WordCount)

	// Raising the floor rejects longer fragments too.
	scorer = NewQualityScorer(QualityConfig{MinWordCount: 10})
	score = scorer.Score("the quick brown fox jumps over lazy dogs")
	assert.False(t, score.Accepted)
	assert.Equal(t, RejectWordCount, score.Reason)
}

func TestQualityScorer_RejectsSentenceCount(t *testing.T) {
	scorer := NewQualityScorer(QualityConfig{MinSentenceCount: 2})

	score := scorer.Score("A single sentence without enough structure to qualify here.")
	assert.False(t, score.Accepted)
	assert.Equal(t, RejectSentenceCount, score.Reason)
	assert.Equal(t, 1, score.SentenceCount)

	score = scorer.Score("First sentence stands alone. Second sentence completes the pair.")
	assert.True(t, score.Accepted)
}

func TestQualityScorer_ScoreComponents(t *testing.T) {
	scorer := NewQualityScorer(QualityConfig{})

	score := scorer.Score("alpha beta gamma delta. Second sentence here!")
	assert.InDelta(t, 1.0, score.Entropy, 1e-9)
	assert.InDelta(t, 1.0, score.UniqueRatio, 1e-9)
	assert.Equal(t, 7, score.WordCount)
	assert.Equal(t, 2, score.SentenceCount)
}

func TestQualityScorer_Filter(t *testing.T) {
	scorer := NewQualityScorer(QualityConfig{})

	chunks := []*Chunk{
		{ChunkIndex: 0, Content: goodProse},
		{ChunkIndex: 1, Content: strings.Repeat("boilerplate ", 30)},
		{ChunkIndex: 2, Content: goodProse + " Additional closing remarks follow."},
	}

	kept, rejected := scorer.Filter(chunks)
	require.Len(t, kept, 2)
	require.Len(t, rejected, 1)

	assert.Equal(t, 0, kept[0].ChunkIndex)
	assert.Equal(t, 2, kept[1].ChunkIndex)
	assert.Equal(t, 1, rejected[0].ChunkIndex)
	assert.Equal(t, RejectLowEntropy, rejected[0].Reason)
	assert.Contains(t, rejected[0].Error(), "low_entropy")
}

func TestNormalizedEntropy(t *testing.T) {
	assert.Zero(t, normalizedEntropy([]string{"same", "same", "same"}))
	assert.InDelta(t, 1.0, normalizedEntropy([]string{"a", "b", "c", "d"}), 1e-9)

	// Case-insensitive counting.
	assert.Zero(t, normalizedEntropy([]string{"Word", "word", "WORD"}))
}

func TestLengthFitness(t *testing.T) {
	assert.InDelta(t, 1.0, lengthFitness(5.0, 5.0), 1e-9)
	assert.InDelta(t, 0.8, lengthFitness(4.0, 5.0), 1e-9)
	assert.Zero(t, lengthFitness(15.0, 5.0))
}

func TestCountSentences(t *testing.T) {
	assert.Equal(t, 2, countSentences("One. Two."))
	assert.Equal(t, 1, countSentences("Ellipsis... still one run"))
	assert.Equal(t, 1, countSentences("no terminator at all"))
	assert.Equal(t, 0, countSentences("   "))
}
