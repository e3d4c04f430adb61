package vectorindex

import (
	"fmt"
	"math"
	"slices"

	"github.com/custodia-labs/ragindex/internal/core/domain"
)

var (
	// ErrDimensionMismatch indicates a vector whose length differs from the index.
	ErrDimensionMismatch = fmt.Errorf("%w: dimension mismatch", domain.ErrInvalidInput)

	// ErrEmptyIndex indicates a build with no vectors.
	ErrEmptyIndex = fmt.Errorf("%w: no vectors to index", domain.ErrInvalidInput)

	// ErrInvalidVector indicates a vector containing NaN or Inf.
	ErrInvalidVector = fmt.Errorf("%w: vector contains NaN or Inf", domain.ErrInvalidInput)
)

// Dot returns the inner product of a and b. Both must have the same length.
func Dot(a, b []float32) float32 {
	var sum float32
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

// Normalize returns an L2-normalised copy of v.
// A zero vector is returned unchanged.
func Normalize(v []float32) []float32 {
	out := make([]float32, len(v))
	copy(out, v)
	normalizeInPlace(out)
	return out
}

func normalizeInPlace(v []float32) {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return
	}
	inv := float32(1 / math.Sqrt(sum))
	for i := range v {
		v[i] *= inv
	}
}

// flatten validates vectors and copies them into one contiguous slice.
func flatten(vectors [][]float32, normalize bool) ([]float32, int, error) {
	if len(vectors) == 0 {
		return nil, 0, ErrEmptyIndex
	}
	dims := len(vectors[0])
	if dims == 0 {
		return nil, 0, fmt.Errorf("%w: zero-length vector", ErrDimensionMismatch)
	}

	data := make([]float32, 0, len(vectors)*dims)
	for i, v := range vectors {
		if len(v) != dims {
			return nil, 0, fmt.Errorf("%w: vector %d has %d dimensions, want %d", ErrDimensionMismatch, i, len(v), dims)
		}
		for _, x := range v {
			if math.IsNaN(float64(x)) || math.IsInf(float64(x), 0) {
				return nil, 0, fmt.Errorf("%w: vector %d", ErrInvalidVector, i)
			}
		}
		off := len(data)
		data = append(data, v...)
		if normalize {
			normalizeInPlace(data[off : off+dims])
		}
	}
	return data, dims, nil
}

// prepareQuery checks the query dimension and normalises it when the
// index was built from normalised vectors.
func prepareQuery(query []float32, dims int, normalized bool) ([]float32, error) {
	if len(query) != dims {
		return nil, fmt.Errorf("%w: query has %d dimensions, index has %d", ErrDimensionMismatch, len(query), dims)
	}
	if normalized {
		return Normalize(query), nil
	}
	return query, nil
}

// sortHits orders hits by descending score, ties by ascending position.
func sortHits(hits []domain.Hit) {
	slices.SortFunc(hits, func(a, b domain.Hit) int {
		switch {
		case a.Score > b.Score:
			return -1
		case a.Score < b.Score:
			return 1
		default:
			return a.Position - b.Position
		}
	})
}
