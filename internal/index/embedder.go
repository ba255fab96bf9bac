package index

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
)

// DefaultHashDimensions is the vector size of the offline hash embedder.
const DefaultHashDimensions = 256

// Embedder turns texts into fixed-dimension vectors. Implementations must be
// deterministic for a given model so queries land in the index's space.
type Embedder interface {
	// Embed returns one vector per text, in input order.
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	// ModelName identifies the embedding model; it is stored with the index.
	ModelName() string
	// Dimensions is the vector size, or 0 when only known after a call.
	Dimensions() int
}

// HashEmbedder is a deterministic bag-of-terms embedder. Each index term is
// hashed into a signed bucket so texts sharing terms point the same way.
type HashEmbedder struct {
	dims int
}

// NewHashEmbedder creates a hash embedder; dims <= 0 selects the default.
func NewHashEmbedder(dims int) *HashEmbedder {
	if dims <= 0 {
		dims = DefaultHashDimensions
	}
	return &HashEmbedder{dims: dims}
}

// ModelName implements Embedder.
func (h *HashEmbedder) ModelName() string {
	return fmt.Sprintf("hash-bow-%d", h.dims)
}

// Dimensions implements Embedder.
func (h *HashEmbedder) Dimensions() int { return h.dims }

// Embed implements Embedder.
func (h *HashEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out[i] = h.vector(text)
	}
	return out, nil
}

func (h *HashEmbedder) vector(text string) []float32 {
	vec := make([]float32, h.dims)
	for _, term := range ngrams(Tokenize(text), 2) {
		hasher := fnv.New64a()
		hasher.Write([]byte(term))
		sum := hasher.Sum64()
		bucket := int(sum % uint64(h.dims))
		if sum>>63 == 1 {
			vec[bucket]--
		} else {
			vec[bucket]++
		}
	}
	normalize(vec)
	return vec
}

// normalize scales vec to unit length in place. Zero vectors are left as is.
func normalize(vec []float32) {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	if sum == 0 {
		return
	}
	inv := float32(1 / math.Sqrt(sum))
	for i := range vec {
		vec[i] *= inv
	}
}
