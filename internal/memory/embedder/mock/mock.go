// Package mock provides a deterministic embedder for tests and for
// running companiond without a local embedding model. Embeddings are
// derived from a hash of the text, so identical text always maps to
// the identical vector; there is no real semantic similarity.
package mock

import (
	"context"
	"hash/fnv"
	"math"
)

// Embedder generates hash-seeded pseudo-random unit vectors.
type Embedder struct {
	dimensions int
}

// New creates a mock embedder. Dimensions match all-MiniLM-L6-v2 so a
// mock-built index is shape-compatible with the ONNX embedder.
func New() *Embedder {
	return &Embedder{dimensions: 384}
}

// Embed derives a deterministic embedding from the FNV hash of text,
// expanded with an LCG and normalized to a unit vector.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	h := fnv.New64a()
	h.Write([]byte(text))
	seed := h.Sum64()

	embedding := make([]float32, e.dimensions)
	for i := range embedding {
		seed = seed*6364136223846793005 + 1442695040888963407
		embedding[i] = float32(int64(seed)) / float32(math.MaxInt64)
	}

	return normalize(embedding), nil
}

// Dimensions returns the embedding size.
func (e *Embedder) Dimensions() int {
	return e.dimensions
}

func normalize(vec []float32) []float32 {
	var norm float32
	for _, v := range vec {
		norm += v * v
	}
	if norm == 0 {
		return vec
	}

	norm = float32(math.Sqrt(float64(norm)))
	for i, v := range vec {
		vec[i] = v / norm
	}
	return vec
}
