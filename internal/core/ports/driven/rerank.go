package driven

import (
	"context"

	"github.com/custodia-labs/ragindex/internal/core/domain"
)

// Reranker re-scores retrieval candidates against the query.
//
// Rerank returns at most topN of the given candidates in descending
// relevance, with Score replaced by the rerank score and content untouched.
// Failures are returned, never papered over with the unranked input.
type Reranker interface {
	Rerank(ctx context.Context, query string, candidates []domain.ScoredChunk, topN int) ([]domain.ScoredChunk, error)

	// Name identifies the strategy in logs.
	Name() string
}
