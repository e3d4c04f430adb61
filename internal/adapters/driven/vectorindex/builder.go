package vectorindex

import (
	"fmt"

	"github.com/custodia-labs/ragindex/internal/core/domain"
	"github.com/custodia-labs/ragindex/internal/core/ports/driven"
)

// Ensure Builder implements the interface.
var _ driven.IndexBuilder = (*Builder)(nil)

// Builder constructs indexes from settings.
type Builder struct {
	seed uint64
}

// BuilderOption configures a Builder.
type BuilderOption func(*Builder)

// WithSeed sets the HNSW level seed.
func WithSeed(seed uint64) BuilderOption {
	return func(b *Builder) {
		b.seed = seed
	}
}

// NewBuilder creates a Builder.
func NewBuilder(opts ...BuilderOption) *Builder {
	b := &Builder{seed: DefaultHNSWConfig().Seed}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build creates an index of the configured kind over vectors.
// Position i of the result corresponds to vectors[i].
func (b *Builder) Build(vectors [][]float32, settings domain.IndexSettings, normalize bool) (domain.VectorIndex, error) {
	switch settings.Kind {
	case domain.IndexKindFlat:
		return NewFlat(vectors, normalize)
	case domain.IndexKindHNSW, "":
		return NewHNSW(vectors, HNSWConfig{
			M:              settings.M,
			EfConstruction: settings.EfConstruction,
			EfSearch:       settings.EfSearch,
			Seed:           b.seed,
		}, normalize)
	default:
		return nil, fmt.Errorf("%w: unknown index kind %q", domain.ErrInvalidInput, settings.Kind)
	}
}
