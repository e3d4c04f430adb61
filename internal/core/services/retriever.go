package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/custodia-labs/ragindex/internal/core/domain"
	"github.com/custodia-labs/ragindex/internal/core/ports/driven"
	"github.com/custodia-labs/ragindex/internal/logger"
)

// Retriever finds the chunks of a tenant's index closest to a query.
type Retriever struct {
	cache    *IndexCache
	embedder driven.Embedder
}

// NewRetriever creates a retriever. The embedder must be the one the
// indexes were built with.
func NewRetriever(cache *IndexCache, embedder driven.Embedder) *Retriever {
	return &Retriever{
		cache:    cache,
		embedder: embedder,
	}
}

// Retrieve returns up to k chunks, most similar first. k == 0 returns an
// empty result without embedding the query.
func (r *Retriever) Retrieve(ctx context.Context, tenant domain.TenantID, query string, k int) ([]domain.ScoredChunk, error) {
	if err := tenant.Validate(); err != nil {
		return nil, err
	}
	if k < 0 {
		return nil, fmt.Errorf("%w: k must not be negative, got %d", domain.ErrInvalidInput, k)
	}
	if strings.TrimSpace(query) == "" {
		return nil, domain.ErrInvalidQuestion
	}

	snap, err := r.cache.Get(ctx, tenant)
	if err != nil {
		return nil, err
	}
	if k == 0 {
		return []domain.ScoredChunk{}, nil
	}

	if snap.Model != "" && snap.Model != r.embedder.ModelName() {
		logger.Tenant(string(tenant)).Warn("index built with model %s, querying with %s", snap.Model, r.embedder.ModelName())
	}

	vectors, err := r.embedder.EmbedBatch(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("%w: expected 1 query vector, got %d", domain.ErrEmbeddingFailed, len(vectors))
	}
	query32 := vectors[0]
	if dims := snap.Index.Dimensions(); len(query32) != dims {
		return nil, fmt.Errorf("%w: index built with %d dims, query has %d", domain.ErrInvalidInput, dims, len(query32))
	}

	hits, err := snap.Index.Search(query32, k)
	if err != nil {
		return nil, fmt.Errorf("search index: %w", err)
	}

	out := make([]domain.ScoredChunk, 0, len(hits))
	for _, h := range hits {
		chunk, ok := snap.Chunk(h.Position)
		if !ok {
			return nil, fmt.Errorf("%w: index position %d has no chunk", domain.ErrStorageFailure, h.Position)
		}
		out = append(out, domain.ScoredChunk{Chunk: chunk, Score: float64(h.Score)})
	}
	return out, nil
}
