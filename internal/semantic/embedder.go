// Package semantic provides the embedding side of search: embedders that
// turn text into vectors, vector stores that find the nearest corpus
// vectors by cosine similarity, and a Retriever composing the two.
package semantic

import (
	"context"
	"math"
)

// Embedder maps text to a dense vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	// Dimensions is 0 until the dimension is known.
	Dimensions() int
	ModelName() string
}

// normalize scales v to unit length in place and returns its original norm.
// Zero vectors are left untouched.
func normalize(v []float32) float64 {
	var sumSquares float64
	for _, x := range v {
		sumSquares += float64(x) * float64(x)
	}
	if sumSquares == 0 {
		return 0
	}
	norm := math.Sqrt(sumSquares)
	inv := float32(1 / norm)
	for i := range v {
		v[i] *= inv
	}
	return norm
}

func dot(a, b []float32) float64 {
	var s float64
	for i := range a {
		s += float64(a[i]) * float64(b[i])
	}
	return s
}

func isZero(v []float32) bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}
