package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/custodia-labs/ragindex/internal/core/domain"
	"github.com/custodia-labs/ragindex/internal/core/ports/driven"
	"github.com/custodia-labs/ragindex/internal/core/ports/driving"
	"github.com/custodia-labs/ragindex/internal/logger"
)

// Ensure QueryService implements the interface.
var _ driving.QueryService = (*QueryService)(nil)

// QueryService runs the retrieve, rerank and generate pipeline.
type QueryService struct {
	retriever *Retriever
	reranker  driven.Reranker
	answers   *AnswerGenerator
	defaults  domain.RetrievalSettings
	language  string
}

// NewQueryService creates a query service. defaults supplies K and TopN
// when a request leaves them unset; language is the default reply language.
func NewQueryService(
	retriever *Retriever,
	reranker driven.Reranker,
	answers *AnswerGenerator,
	defaults domain.RetrievalSettings,
	language string,
) *QueryService {
	return &QueryService{
		retriever: retriever,
		reranker:  reranker,
		answers:   answers,
		defaults:  defaults,
		language:  language,
	}
}

// Retrieve returns the k chunks most similar to query.
func (s *QueryService) Retrieve(ctx context.Context, tenant domain.TenantID, query string, k int) ([]domain.ScoredChunk, error) {
	chunks, err := s.retriever.Retrieve(ctx, tenant, query, k)
	if err != nil {
		return nil, fmt.Errorf("%w: retrieve: %w", domain.ErrQueryFailed, err)
	}
	return chunks, nil
}

// Ask answers a question from the tenant's documents.
func (s *QueryService) Ask(ctx context.Context, tenant domain.TenantID, req domain.AskRequest) (*domain.Answer, error) {
	if strings.TrimSpace(req.Question) == "" {
		return nil, domain.ErrInvalidQuestion
	}
	if err := tenant.Validate(); err != nil {
		return nil, err
	}

	k, topN := s.resolveBreadth(req)
	language := req.Language
	if language == "" {
		language = s.language
	}

	log := logger.Tenant(string(tenant))
	log.Debug("ask: k=%d top_n=%d reranker=%s", k, topN, s.reranker.Name())

	candidates, err := s.retriever.Retrieve(ctx, tenant, req.Question, k)
	if err != nil {
		return nil, fmt.Errorf("%w: retrieve: %w", domain.ErrQueryFailed, err)
	}

	ranked, err := s.reranker.Rerank(ctx, req.Question, candidates, topN)
	if err != nil {
		return nil, fmt.Errorf("%w: rerank (%s): %w", domain.ErrQueryFailed, s.reranker.Name(), err)
	}
	log.Debug("ask: %d candidates, %d after rerank", len(candidates), len(ranked))

	answer, err := s.answers.Generate(ctx, req.Question, ranked, language)
	if err != nil {
		return nil, fmt.Errorf("%w: generate: %w", domain.ErrQueryFailed, err)
	}
	return answer, nil
}

// resolveBreadth applies defaults and clamps TopN to K.
func (s *QueryService) resolveBreadth(req domain.AskRequest) (k, topN int) {
	k = req.K
	if k <= 0 {
		k = s.defaults.K
	}
	if k <= 0 {
		k = domain.DefaultSettings().Retrieval.K
	}

	topN = req.TopN
	if topN <= 0 {
		topN = s.defaults.RerankTopN
	}
	if topN <= 0 {
		topN = domain.DefaultSettings().Retrieval.RerankTopN
	}
	return k, min(topN, k)
}
