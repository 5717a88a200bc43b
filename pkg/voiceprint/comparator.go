package voiceprint

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"sync"
)

// Threshold is the similarity above which two clips are judged to come
// from the same speaker. A score equal to Threshold is not a match.
const Threshold = 0.7

// Placeholder score range of RandomScorer.
const (
	MinRandomScore = 0.3
	MaxRandomScore = 0.95
)

// Verdict is the outcome of a comparison.
type Verdict int

const (
	DifferentSpeakers Verdict = iota
	SameSpeaker
)

// Decide maps a similarity score to a verdict.
func Decide(similarity float64) Verdict {
	if similarity > Threshold {
		return SameSpeaker
	}
	return DifferentSpeakers
}

func (v Verdict) String() string {
	if v == SameSpeaker {
		return "same speaker"
	}
	return "different speakers"
}

// Label is the verdict as shown in reports.
func (v Verdict) Label() string {
	if v == SameSpeaker {
		return "同一说话人"
	}
	return "不同说话人"
}

// MarshalText implements encoding.TextMarshaler.
func (v Verdict) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

// Scorer yields a similarity score in [0, 1] for a pair of clips.
type Scorer interface {
	Score(ctx context.Context, a, b AudioRef) (float64, error)
}

// ScorerFunc adapts a function to [Scorer].
type ScorerFunc func(ctx context.Context, a, b AudioRef) (float64, error)

// Score implements [Scorer].
func (f ScorerFunc) Score(ctx context.Context, a, b AudioRef) (float64, error) {
	return f(ctx, a, b)
}

// RandomScorer draws scores uniformly from [MinRandomScore, MaxRandomScore]
// without looking at the audio.
type RandomScorer struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandomScorer returns a RandomScorer. A non-zero seed makes the
// draws reproducible.
func NewRandomScorer(seed uint64) *RandomScorer {
	if seed == 0 {
		return &RandomScorer{rng: rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))}
	}
	return &RandomScorer{rng: rand.New(rand.NewPCG(seed, ^seed))}
}

// Score implements [Scorer].
func (s *RandomScorer) Score(ctx context.Context, _, _ AudioRef) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	u := s.rng.Float64()
	s.mu.Unlock()
	return MinRandomScore + u*(MaxRandomScore-MinRandomScore), nil
}

// CosineScorer scores a pair by the cosine similarity of their whole-clip
// embeddings, clamped to [0, 1].
type CosineScorer struct {
	Extractor *Extractor
}

// Score implements [Scorer].
func (s *CosineScorer) Score(ctx context.Context, a, b AudioRef) (float64, error) {
	w := Window{Type: WindowWhole}
	ea, err := s.Extractor.Embed(ctx, a, w)
	if err != nil {
		return 0, err
	}
	eb, err := s.Extractor.Embed(ctx, b, w)
	if err != nil {
		return 0, err
	}
	return max(0, CosineSimilarity(ea, eb)), nil
}

// Comparison is the result of one Compare call.
type Comparison struct {
	// Report is the human-readable markdown report, or MissingPairPrompt
	// when either clip was absent.
	Report string `json:"report" msgpack:"report"`

	File1      string  `json:"file1,omitempty" msgpack:"file1,omitempty"`
	File2      string  `json:"file2,omitempty" msgpack:"file2,omitempty"`
	Similarity float64 `json:"similarity" msgpack:"similarity"`
	Distance   float64 `json:"distance" msgpack:"distance"`
	Verdict    Verdict `json:"verdict" msgpack:"verdict"`
}

// Missing reports whether the comparison was skipped for lack of audio.
func (c *Comparison) Missing() bool {
	return c.File1 == "" && c.File2 == ""
}

// Comparator judges whether two clips share a speaker.
type Comparator struct {
	scorer Scorer
}

// NewComparator returns a Comparator using scorer.
func NewComparator(scorer Scorer) *Comparator {
	return &Comparator{scorer: scorer}
}

// Compare scores a and b. If either ref is absent the result carries
// MissingPairPrompt and no error. Scorer failures are returned wrapped
// in ErrInference unless they already are, or are context errors.
func (c *Comparator) Compare(ctx context.Context, a, b AudioRef) (*Comparison, error) {
	if a.IsZero() || b.IsZero() {
		return &Comparison{Report: MissingPairPrompt}, nil
	}
	sim, err := c.scorer.Score(ctx, a, b)
	if err != nil {
		return nil, wrapInference(err)
	}
	if math.IsNaN(sim) {
		return nil, fmt.Errorf("%w: scorer returned NaN", ErrInference)
	}
	sim = max(0, min(1, sim))
	cmp := &Comparison{
		File1:      a.BaseName(),
		File2:      b.BaseName(),
		Similarity: sim,
		Distance:   1 - sim,
		Verdict:    Decide(sim),
	}
	cmp.Report = comparisonReport(cmp)
	return cmp, nil
}
