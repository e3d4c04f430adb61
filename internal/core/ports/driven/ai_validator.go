package driven

import "github.com/custodia-labs/ragindex/internal/core/domain"

// AIConfigValidator checks AI provider configurations by connecting to them.
// It backs `settings set-key` and `doctor`.
type AIConfigValidator interface {
	// ValidateEmbedding pings the embedding provider.
	// Returns domain.ErrEmbeddingUnavailable if it is not configured.
	ValidateEmbedding(config *domain.EmbeddingSettings) error

	// ValidateLLM pings the generative model provider.
	// Returns domain.ErrLLMUnavailable if it is not configured.
	ValidateLLM(config *domain.LLMSettings) error
}
