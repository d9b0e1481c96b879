package chunk

import (
	"fmt"
	"math"
	"strings"
	"unicode"
)

// Quality scoring weights. The four components sum to 1.
const (
	entropyWeight    = 0.35
	uniquenessWeight = 0.25
	lengthWeight     = 0.20
	sentenceWeight   = 0.20

	// sentenceSaturation is the sentence count at which the richness
	// component reaches its maximum.
	sentenceSaturation = 5
)

// QualityConfig sets the acceptance thresholds for chunk candidates.
type QualityConfig struct {
	MinScore          float64 // Composite score floor
	MinEntropy        float64 // Normalized entropy floor
	MinUniqueRatio    float64 // Unique-word ratio floor
	MinWordCount      int     // Word count floor
	MinSentenceCount  int     // Sentence count floor
	MinAvgWordLength  float64 // Average word length band
	MaxAvgWordLength  float64
	OptimalWordLength float64 // Peak of the length-fitness curve
}

// DefaultQualityConfig returns the default acceptance thresholds.
func DefaultQualityConfig() QualityConfig {
	return QualityConfig{
		MinScore:          0.4,
		MinEntropy:        0.3,
		MinUniqueRatio:    0.2,
		MinWordCount:      5,
		MinSentenceCount:  1,
		MinAvgWordLength:  2.0,
		MaxAvgWordLength:  12.0,
		OptimalWordLength: 5.0,
	}
}

func (c QualityConfig) withDefaults() QualityConfig {
	def := DefaultQualityConfig()
	if c.MinScore == 0 {
		c.MinScore = def.MinScore
	}
	if c.MinEntropy == 0 {
		c.MinEntropy = def.MinEntropy
	}
	if c.MinUniqueRatio == 0 {
		c.MinUniqueRatio = def.MinUniqueRatio
	}
	if c.MinWordCount == 0 {
		c.MinWordCount = def.MinWordCount
	}
	if c.MinSentenceCount == 0 {
		c.MinSentenceCount = def.MinSentenceCount
	}
	if c.MinAvgWordLength == 0 {
		c.MinAvgWordLength = def.MinAvgWordLength
	}
	if c.MaxAvgWordLength == 0 {
		c.MaxAvgWordLength = def.MaxAvgWordLength
	}
	if c.OptimalWordLength == 0 {
		c.OptimalWordLength = def.OptimalWordLength
	}
	return c
}

// RejectionReason identifies the failing criterion for a rejected chunk.
type RejectionReason string

const (
	RejectEmpty         RejectionReason = "empty"
	RejectLowEntropy    RejectionReason = "low_entropy"
	RejectLowUniqueness RejectionReason = "low_uniqueness"
	RejectWordLength    RejectionReason = "word_length"
	RejectWordCount     RejectionReason = "word_count"
	RejectSentenceCount RejectionReason = "sentence_count"
	RejectLowScore      RejectionReason = "low_score"
)

// QualityScore breaks down the composite score for one chunk.
type QualityScore struct {
	Entropy       float64 // Normalized Shannon entropy over words, [0,1]
	UniqueRatio   float64 // Distinct words / total words
	AvgWordLength float64
	WordCount     int
	SentenceCount int
	Composite     float64
	Accepted      bool
	Reason        RejectionReason // Empty when accepted
}

// QualityError reports why a chunk was rejected.
type QualityError struct {
	ChunkIndex int
	Reason     RejectionReason
	Score      QualityScore
}

func (e *QualityError) Error() string {
	return fmt.Sprintf("chunk %d rejected: %s (score %.3f)", e.ChunkIndex, e.Reason, e.Score.Composite)
}

// QualityScorer rates chunk candidates and filters out low-information ones
// such as page headers, tables of numbers, and repeated boilerplate.
type QualityScorer struct {
	cfg QualityConfig
}

// NewQualityScorer builds a scorer with the given thresholds. Zero-valued
// fields fall back to defaults.
func NewQualityScorer(cfg QualityConfig) *QualityScorer {
	return &QualityScorer{cfg: cfg.withDefaults()}
}

// Score rates a single chunk without applying acceptance thresholds beyond
// filling Accepted and Reason.
func (s *QualityScorer) Score(content string) QualityScore {
	words := splitWords(content)
	if len(words) == 0 {
		return QualityScore{Accepted: false, Reason: RejectEmpty}
	}

	var score QualityScore
	score.Entropy = normalizedEntropy(words)
	score.UniqueRatio = uniqueRatio(words)
	score.AvgWordLength = avgWordLength(words)
	score.WordCount = len(words)
	score.SentenceCount = countSentences(content)

	lengthFitness := lengthFitness(score.AvgWordLength, s.cfg.OptimalWordLength)
	richness := math.Min(float64(score.SentenceCount)/sentenceSaturation, 1.0)

	score.Composite = entropyWeight*score.Entropy +
		uniquenessWeight*score.UniqueRatio +
		lengthWeight*lengthFitness +
		sentenceWeight*richness

	switch {
	case score.Entropy < s.cfg.MinEntropy:
		score.Reason = RejectLowEntropy
	case score.UniqueRatio < s.cfg.MinUniqueRatio:
		score.Reason = RejectLowUniqueness
	case score.AvgWordLength < s.cfg.MinAvgWordLength || score.AvgWordLength > s.cfg.MaxAvgWordLength:
		score.Reason = RejectWordLength
	case score.WordCount < s.cfg.MinWordCount:
		score.Reason = RejectWordCount
	case score.SentenceCount < s.cfg.MinSentenceCount:
		score.Reason = RejectSentenceCount
	case score.Composite < s.cfg.MinScore:
		score.Reason = RejectLowScore
	default:
		score.Accepted = true
	}
	return score
}

// Filter returns the chunks that pass scoring, plus one QualityError per
// rejected chunk. Chunk indices are not renumbered; the pipeline reassigns
// them after deduplication.
func (s *QualityScorer) Filter(chunks []*Chunk) ([]*Chunk, []*QualityError) {
	var kept []*Chunk
	var rejected []*QualityError
	for _, ch := range chunks {
		score := s.Score(ch.Content)
		if score.Accepted {
			kept = append(kept, ch)
			continue
		}
		rejected = append(rejected, &QualityError{
			ChunkIndex: ch.ChunkIndex,
			Reason:     score.Reason,
			Score:      score,
		})
	}
	return kept, rejected
}

// normalizedEntropy computes Shannon entropy over the word distribution,
// normalized by log2 of the distinct word count so the result lies in [0,1].
// A single repeated word scores 0; all-distinct words score 1.
func normalizedEntropy(words []string) float64 {
	counts := make(map[string]int, len(words))
	for _, w := range words {
		counts[strings.ToLower(w)]++
	}
	if len(counts) <= 1 {
		return 0
	}

	total := float64(len(words))
	var entropy float64
	for _, n := range counts {
		p := float64(n) / total
		entropy -= p * math.Log2(p)
	}
	return entropy / math.Log2(float64(len(counts)))
}

func uniqueRatio(words []string) float64 {
	seen := make(map[string]struct{}, len(words))
	for _, w := range words {
		seen[strings.ToLower(w)] = struct{}{}
	}
	return float64(len(seen)) / float64(len(words))
}

func avgWordLength(words []string) float64 {
	var total int
	for _, w := range words {
		total += len([]rune(w))
	}
	return float64(total) / float64(len(words))
}

// lengthFitness peaks at 1.0 when the average word length matches the
// optimum and decays linearly toward 0 as it diverges.
func lengthFitness(avg, optimal float64) float64 {
	fitness := 1.0 - math.Abs(avg-optimal)/optimal
	if fitness < 0 {
		return 0
	}
	return fitness
}

// countSentences counts terminal punctuation runs, treating consecutive
// terminators as one sentence end. Text without terminators counts as one
// sentence.
func countSentences(content string) int {
	count := 0
	inRun := false
	sawText := false
	for _, r := range content {
		switch {
		case r == '.' || r == '!' || r == '?':
			if !inRun {
				count++
				inRun = true
			}
		case unicode.IsSpace(r):
			inRun = false
		default:
			sawText = true
			inRun = false
		}
	}
	if count == 0 && sawText {
		return 1
	}
	return count
}
