package voiceprint

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync"
)

// Model extracts speaker embedding vectors from raw audio.
//
// The input audio is PCM16 signed little-endian, 16kHz, mono. It is nil
// when the extractor runs without a Decoder; implementations that need
// real audio must return an error in that case.
//
// # Thread Safety
//
// Implementations must be safe for concurrent use. Multiple goroutines
// may call Embed simultaneously.
type Model interface {
	// Embed computes a speaker embedding. Returns a float32 vector of
	// length Dimension().
	Embed(ctx context.Context, audio []byte) ([]float32, error)

	// Dimension returns the dimensionality of the embedding vectors.
	Dimension() int

	// Close releases any resources held by the model.
	Close() error
}

// Decoder resolves an AudioRef into PCM16 LE 16kHz mono audio.
type Decoder interface {
	Decode(ctx context.Context, ref AudioRef) ([]byte, error)
}

var errModelClosed = errors.New("voiceprint: model is closed")

// PlaceholderModel implements [Model] without inference: every element of
// the embedding is an independent standard-normal draw. The audio is
// ignored.
type PlaceholderModel struct {
	dim int

	mu     sync.Mutex
	rng    *rand.Rand
	closed bool
}

// PlaceholderOption configures a PlaceholderModel.
type PlaceholderOption func(*PlaceholderModel)

// WithSeed makes the draws reproducible.
func WithSeed(seed uint64) PlaceholderOption {
	return func(m *PlaceholderModel) {
		m.rng = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	}
}

// NewPlaceholderModel creates a placeholder model producing dim-length
// vectors.
func NewPlaceholderModel(dim int, opts ...PlaceholderOption) *PlaceholderModel {
	if dim <= 0 {
		panic("voiceprint: dim must be positive")
	}
	m := &PlaceholderModel{
		dim: dim,
		rng: rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Embed implements [Model].
func (m *PlaceholderModel) Embed(ctx context.Context, _ []byte) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, errModelClosed
	}
	emb := make([]float32, m.dim)
	for i := range emb {
		emb[i] = float32(m.rng.NormFloat64())
	}
	return emb, nil
}

// Dimension implements [Model].
func (m *PlaceholderModel) Dimension() int {
	return m.dim
}

// Close implements [Model].
func (m *PlaceholderModel) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return nil
}
