package rerank

import (
	"context"

	"github.com/custodia-labs/ragindex/internal/core/domain"
	"github.com/custodia-labs/ragindex/internal/core/ports/driven"
)

// Ensure None implements the interface.
var _ driven.Reranker = (*None)(nil)

// None keeps the retrieval order and scores, truncating to topN.
type None struct{}

// NewNone creates a pass-through reranker.
func NewNone() *None {
	return &None{}
}

// Rerank returns the first topN candidates.
func (n *None) Rerank(_ context.Context, _ string, candidates []domain.ScoredChunk, topN int) ([]domain.ScoredChunk, error) {
	if topN <= 0 || len(candidates) == 0 {
		return []domain.ScoredChunk{}, nil
	}
	out := make([]domain.ScoredChunk, min(topN, len(candidates)))
	copy(out, candidates)
	return out, nil
}

// Name returns "none".
func (n *None) Name() string {
	return string(domain.RerankerNone)
}
