package embed

import (
	"context"
	"hash/fnv"
	"math"

	"github.com/dgallion1/docinsight/internal/textnorm"
)

// DefaultHashDims is the vector width of the hashing embedder.
const DefaultHashDims = 384

// HashEmbedder is an offline, deterministic embedder. Each significant token and its
// prefix are hashed into a signed bucket, so texts sharing vocabulary point the same way.
type HashEmbedder struct {
	dims int
}

// NewHash returns a hashing embedder of the given width (DefaultHashDims when dims <= 0).
func NewHash(dims int) *HashEmbedder {
	if dims <= 0 {
		dims = DefaultHashDims
	}
	return &HashEmbedder{dims: dims}
}

func (h *HashEmbedder) Name() string { return ProviderHash }

// Embed returns a unit vector, or the zero vector when text has no significant tokens.
func (h *HashEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	vec := make([]float64, h.dims)
	for _, tok := range textnorm.Tokens(text) {
		h.add(vec, tok, 1)
		if r := []rune(tok); len(r) > textnorm.PrefixMatchRunes {
			h.add(vec, "#"+string(r[:textnorm.PrefixMatchRunes]), 0.5)
		}
	}

	var norm float64
	for _, v := range vec {
		norm += v * v
	}
	out := make([]float32, h.dims)
	if norm == 0 {
		return out, nil
	}
	norm = math.Sqrt(norm)
	for i, v := range vec {
		out[i] = float32(v / norm)
	}
	return out, nil
}

func (h *HashEmbedder) add(vec []float64, feature string, weight float64) {
	f := fnv.New64a()
	f.Write([]byte(feature))
	sum := f.Sum64()
	bucket := int(sum % uint64(h.dims))
	if sum>>63 == 1 {
		weight = -weight
	}
	vec[bucket] += weight
}
