package index

import (
	"context"
	"fmt"
	"sort"
)

// SemanticIndex is an exact inner-product vector store over unit vectors.
type SemanticIndex struct {
	model   string
	dim     int
	ids     []string
	vectors [][]float32
}

// BuildSemantic embeds every document and stores the normalised vectors.
func BuildSemantic(ctx context.Context, embedder Embedder, docs []Document) (*SemanticIndex, error) {
	texts := make([]string, len(docs))
	ids := make([]string, len(docs))
	for i, d := range docs {
		texts[i] = d.Text
		ids[i] = d.ID
	}

	var vectors [][]float32
	if len(texts) > 0 {
		var err error
		vectors, err = embedder.Embed(ctx, texts)
		if err != nil {
			return nil, fmt.Errorf("failed to embed corpus: %w", err)
		}
		if len(vectors) != len(texts) {
			return nil, fmt.Errorf("embedder returned %d vectors for %d texts", len(vectors), len(texts))
		}
	}

	dim := embedder.Dimensions()
	if len(vectors) > 0 {
		dim = len(vectors[0])
	}
	for i, v := range vectors {
		if len(v) != dim {
			return nil, fmt.Errorf("%w: row %d has %d, want %d", ErrDimensionMismatch, i, len(v), dim)
		}
		normalize(v)
	}

	return &SemanticIndex{
		model:   embedder.ModelName(),
		dim:     dim,
		ids:     ids,
		vectors: vectors,
	}, nil
}

// NewSemanticIndex assembles an index from precomputed vectors, e.g. vectors
// stored next to the listings. Vectors are normalised in place.
func NewSemanticIndex(model string, ids []string, vectors [][]float32) (*SemanticIndex, error) {
	if len(ids) != len(vectors) {
		return nil, fmt.Errorf("%w: %d ids for %d vectors", ErrCorruptArtifact, len(ids), len(vectors))
	}
	dim := 0
	if len(vectors) > 0 {
		dim = len(vectors[0])
	}
	for i, v := range vectors {
		if len(v) != dim {
			return nil, fmt.Errorf("%w: row %d has %d, want %d", ErrDimensionMismatch, i, len(v), dim)
		}
		normalize(v)
	}
	return &SemanticIndex{model: model, dim: dim, ids: ids, vectors: vectors}, nil
}

// Model returns the embedding model the index was built with.
func (s *SemanticIndex) Model() string { return s.model }

// Dimensions returns the vector size.
func (s *SemanticIndex) Dimensions() int { return s.dim }

// Len returns the number of indexed rows.
func (s *SemanticIndex) Len() int { return len(s.ids) }

// IDs returns the row-id mapping.
func (s *SemanticIndex) IDs() []string { return append([]string(nil), s.ids...) }

// Search embeds the query with embedder and returns up to k rows by inner
// product, highest first. allow restricts the searched rows.
func (s *SemanticIndex) Search(ctx context.Context, embedder Embedder, query string, k int, allow func(id string) bool) ([]Hit, error) {
	if k <= 0 || len(s.ids) == 0 {
		return nil, nil
	}
	if embedder.ModelName() != s.model {
		return nil, fmt.Errorf("%w: index %q, embedder %q", ErrModelMismatch, s.model, embedder.ModelName())
	}

	vecs, err := embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	if len(vecs) != 1 {
		return nil, fmt.Errorf("embedder returned %d vectors for 1 query", len(vecs))
	}
	return s.SearchVector(vecs[0], k, allow)
}

// SearchVector is Search with a precomputed query vector.
func (s *SemanticIndex) SearchVector(query []float32, k int, allow func(id string) bool) ([]Hit, error) {
	if len(query) != s.dim {
		return nil, fmt.Errorf("%w: query has %d, index has %d", ErrDimensionMismatch, len(query), s.dim)
	}
	q := append([]float32(nil), query...)
	normalize(q)

	hits := make([]Hit, 0, len(s.ids))
	for row, v := range s.vectors {
		if allow != nil && !allow(s.ids[row]) {
			continue
		}
		var dot float64
		for i := range v {
			dot += float64(v[i]) * float64(q[i])
		}
		hits = append(hits, Hit{Row: row, ID: s.ids[row], Score: dot})
	}

	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Score > hits[j].Score
	})
	// An exact scan only yields real rows, so there are no -1 slots to drop.
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// SemanticArtifact is the persisted form of a SemanticIndex.
type SemanticArtifact struct {
	Version int         `json:"version"`
	Model   string      `json:"model"`
	Dim     int         `json:"dim"`
	RowIDs  []string    `json:"row_ids"`
	Vectors [][]float32 `json:"vectors"`
}

const semanticArtifactVersion = 1

// Artifact exports the index for persistence.
func (s *SemanticIndex) Artifact() *SemanticArtifact {
	return &SemanticArtifact{
		Version: semanticArtifactVersion,
		Model:   s.model,
		Dim:     s.dim,
		RowIDs:  s.ids,
		Vectors: s.vectors,
	}
}

// SemanticFromArtifact restores an index and checks it against the model
// the caller will query with. An empty model skips the check.
func SemanticFromArtifact(a *SemanticArtifact, model string) (*SemanticIndex, error) {
	if a == nil {
		return nil, ErrIndexNotBuilt
	}
	if a.Version != semanticArtifactVersion {
		return nil, fmt.Errorf("%w: semantic version %d", ErrCorruptArtifact, a.Version)
	}
	if model != "" && a.Model != model {
		return nil, fmt.Errorf("%w: artifact %q, configured %q", ErrModelMismatch, a.Model, model)
	}
	idx, err := NewSemanticIndex(a.Model, a.RowIDs, a.Vectors)
	if err != nil {
		return nil, err
	}
	if len(a.Vectors) > 0 && idx.dim != a.Dim {
		return nil, fmt.Errorf("%w: artifact says %d, vectors have %d", ErrDimensionMismatch, a.Dim, idx.dim)
	}
	idx.dim = a.Dim
	return idx, nil
}
