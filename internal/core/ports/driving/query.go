package driving

import (
	"context"

	"github.com/custodia-labs/ragindex/internal/core/domain"
)

// QueryService answers questions against a tenant's index.
type QueryService interface {
	// Retrieve returns the k chunks most similar to the query.
	Retrieve(ctx context.Context, tenant domain.TenantID, query string, k int) ([]domain.ScoredChunk, error)

	// Ask runs retrieve, rerank and generate.
	Ask(ctx context.Context, tenant domain.TenantID, req domain.AskRequest) (*domain.Answer, error)
}
