package vectorindex

import "github.com/custodia-labs/ragindex/internal/core/domain"

// Ensure Flat implements the interface.
var _ domain.VectorIndex = (*Flat)(nil)

// Flat is an exact inner-product index. Search scans every vector.
type Flat struct {
	dims       int
	normalized bool
	vectors    []float32
}

// NewFlat builds a flat index from vectors. With normalize set, vectors are
// L2-normalised first so scores are cosine similarities.
func NewFlat(vectors [][]float32, normalize bool) (*Flat, error) {
	data, dims, err := flatten(vectors, normalize)
	if err != nil {
		return nil, err
	}
	return &Flat{dims: dims, normalized: normalize, vectors: data}, nil
}

// Kind returns IndexKindFlat.
func (f *Flat) Kind() domain.IndexKind { return domain.IndexKindFlat }

// Len returns the number of stored vectors.
func (f *Flat) Len() int { return len(f.vectors) / f.dims }

// Dimensions returns the vector dimension.
func (f *Flat) Dimensions() int { return f.dims }

// Normalized reports whether vectors were normalised at build time.
func (f *Flat) Normalized() bool { return f.normalized }

// Search returns the min(k, Len()) highest-scoring positions.
func (f *Flat) Search(query []float32, k int) ([]domain.Hit, error) {
	if k <= 0 {
		return nil, nil
	}
	q, err := prepareQuery(query, f.dims, f.normalized)
	if err != nil {
		return nil, err
	}

	n := f.Len()
	hits := make([]domain.Hit, n)
	for i := range n {
		hits[i] = domain.Hit{Position: i, Score: Dot(q, f.vector(i))}
	}
	sortHits(hits)

	return hits[:min(k, n)], nil
}

func (f *Flat) vector(i int) []float32 {
	return f.vectors[i*f.dims : (i+1)*f.dims]
}
