package voiceprint

import (
	"fmt"
	"math"
	"math/rand/v2"
	"strings"
)

// Hasher projects embeddings into compact locality-sensitive hashes using
// random hyperplane LSH.
//
// Each hash is an uppercase hex string of bits/4 characters. For 16 bits
// the output is 4 characters (e.g., "A3F8"). Nearby embeddings fall on
// the same side of most hyperplanes, so they produce identical or nearly
// identical hashes with high probability.
type Hasher struct {
	dim    int
	bits   int
	planes [][]float32 // bits × dim, each row is a unit hyperplane
}

// NewHasher creates a Hasher for dim-length embeddings producing bits-bit
// hashes. bits must be a positive multiple of 4. The seed fixes the
// hyperplanes so hashes are stable across restarts.
func NewHasher(dim, bits int, seed uint64) (*Hasher, error) {
	if bits <= 0 || bits%4 != 0 {
		return nil, fmt.Errorf("voiceprint: hash bits must be a positive multiple of 4, got %d", bits)
	}
	if dim <= 0 {
		return nil, fmt.Errorf("voiceprint: hash dim must be positive, got %d", dim)
	}

	rng := rand.New(rand.NewPCG(seed, seed^0xdeadbeef))
	planes := make([][]float32, bits)
	for i := range planes {
		plane := make([]float32, dim)
		var norm float64
		for j := range plane {
			v := float32(rng.NormFloat64())
			plane[j] = v
			norm += float64(v) * float64(v)
		}
		if norm = math.Sqrt(norm); norm > 0 {
			scale := float32(1.0 / norm)
			for j := range plane {
				plane[j] *= scale
			}
		}
		planes[i] = plane
	}
	return &Hasher{dim: dim, bits: bits, planes: planes}, nil
}

// Hash projects an embedding into its hex hash.
func (h *Hasher) Hash(embedding []float32) (string, error) {
	if len(embedding) != h.dim {
		return "", fmt.Errorf("voiceprint: hash embedding has %d dims, want %d", len(embedding), h.dim)
	}

	var sb strings.Builder
	sb.Grow(h.bits / 4)
	for i := 0; i < h.bits; i += 4 {
		var nibble byte
		for j := 0; j < 4; j++ {
			nibble <<= 1
			if dot32(h.planes[i+j], embedding) > 0 {
				nibble |= 1
			}
		}
		sb.WriteByte("0123456789ABCDEF"[nibble])
	}
	return sb.String(), nil
}

// Bits returns the number of hash bits.
func (h *Hasher) Bits() int { return h.bits }

// Dim returns the expected embedding dimension.
func (h *Hasher) Dim() int { return h.dim }

// TruncateHash reduces a hash to a coarser precision of bits (rounded
// down to whole hex characters). Zero or negative bits yield "*", which
// matches everything.
func TruncateHash(hash string, bits int) string {
	n := bits / 4
	if n <= 0 {
		return "*"
	}
	if n >= len(hash) {
		return hash
	}
	return hash[:n]
}
