// Package ai provides factory functions for creating AI service adapters.
package ai

import (
	"context"
	"fmt"
	"time"

	"github.com/custodia-labs/ragindex/internal/adapters/driven/embedding/batch"
	ollamaembed "github.com/custodia-labs/ragindex/internal/adapters/driven/embedding/ollama"
	openaiembed "github.com/custodia-labs/ragindex/internal/adapters/driven/embedding/openai"
	anthropicllm "github.com/custodia-labs/ragindex/internal/adapters/driven/llm/anthropic"
	ollamallm "github.com/custodia-labs/ragindex/internal/adapters/driven/llm/ollama"
	openaillm "github.com/custodia-labs/ragindex/internal/adapters/driven/llm/openai"
	"github.com/custodia-labs/ragindex/internal/adapters/driven/rerank"
	"github.com/custodia-labs/ragindex/internal/core/domain"
	"github.com/custodia-labs/ragindex/internal/core/ports/driven"
)

// pingTimeout is the maximum time to wait for service connectivity validation.
const pingTimeout = 5 * time.Second

// Services holds the AI adapters of one process.
// Generator is nil when the LLM is not configured and no component needs it.
type Services struct {
	Embedder  driven.Embedder
	Generator driven.Generator
	Reranker  driven.Reranker
}

// Close releases all resources held by the services.
func (s *Services) Close() {
	if s.Embedder != nil {
		s.Embedder.Close()
	}
	if s.Generator != nil {
		s.Generator.Close()
	}
}

// NewServices creates the embedder, generator and reranker described by
// settings. It does not contact any provider.
func NewServices(settings *domain.Settings, prompts driven.PromptStore) (*Services, error) {
	embedder, err := CreateEmbedder(&settings.Embedding)
	if err != nil {
		return nil, err
	}

	svc := &Services{Embedder: embedder}

	gen, err := CreateGenerator(&settings.LLM)
	if err != nil {
		svc.Close()
		return nil, err
	}
	svc.Generator = gen

	reranker, err := CreateReranker(settings.Retrieval.Reranker, gen, prompts)
	if err != nil {
		svc.Close()
		return nil, err
	}
	svc.Reranker = reranker

	return svc, nil
}

// CreateEmbedder creates the configured embedding provider wrapped in the
// batching and retry policy from settings.
func CreateEmbedder(settings *domain.EmbeddingSettings) (driven.Embedder, error) {
	provider, err := CreateEmbeddingProvider(settings)
	if err != nil {
		return nil, err
	}
	return batch.FromSettings(provider, *settings), nil
}

// CreateEmbeddingProvider creates the bare provider adapter, one request per call.
func CreateEmbeddingProvider(settings *domain.EmbeddingSettings) (driven.Embedder, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, fmt.Errorf("%w: set embedding.provider and its API key", domain.ErrEmbeddingUnavailable)
	}

	switch settings.Provider {
	case domain.AIProviderOllama:
		return ollamaembed.NewEmbeddingService(ollamaembed.Config{
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		}), nil

	case domain.AIProviderOpenAI:
		return openaiembed.NewEmbeddingService(openaiembed.Config{
			APIKey:  settings.APIKey,
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		})

	case domain.AIProviderMistral:
		baseURL := settings.BaseURL
		if baseURL == "" {
			baseURL = openaiembed.MistralBaseURL
		}
		return openaiembed.NewEmbeddingService(openaiembed.Config{
			APIKey:  settings.APIKey,
			BaseURL: baseURL,
			Model:   settings.Model,
		})

	default:
		return nil, fmt.Errorf("%w: %s does not support embeddings, use ollama, openai or mistral",
			domain.ErrEmbeddingUnavailable, settings.Provider)
	}
}

// CreateGenerator creates the configured generative model adapter.
// Returns nil without error when the LLM is not configured.
func CreateGenerator(settings *domain.LLMSettings) (driven.Generator, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	switch settings.Provider {
	case domain.AIProviderOllama:
		return ollamallm.NewLLMService(ollamallm.LLMConfig{
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		}), nil

	case domain.AIProviderOpenAI:
		return openaillm.NewLLMService(openaillm.LLMConfig{
			APIKey:  settings.APIKey,
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		})

	case domain.AIProviderMistral:
		baseURL := settings.BaseURL
		if baseURL == "" {
			baseURL = openaillm.MistralBaseURL
		}
		return openaillm.NewLLMService(openaillm.LLMConfig{
			APIKey:  settings.APIKey,
			BaseURL: baseURL,
			Model:   settings.Model,
		})

	case domain.AIProviderAnthropic:
		return anthropicllm.NewLLMService(anthropicllm.Config{
			APIKey:  settings.APIKey,
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		})

	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", settings.Provider)
	}
}

// CreateReranker creates the configured reranking strategy. The llm
// strategy needs a generator.
func CreateReranker(kind domain.RerankerKind, gen driven.Generator, prompts driven.PromptStore) (driven.Reranker, error) {
	switch kind {
	case domain.RerankerLLM:
		if gen == nil {
			return nil, fmt.Errorf("%w: retrieval.reranker=llm needs a configured LLM", domain.ErrLLMUnavailable)
		}
		return rerank.NewLLM(gen, prompts), nil
	case domain.RerankerLexical, "":
		return rerank.NewLexical(), nil
	case domain.RerankerNone:
		return rerank.NewNone(), nil
	default:
		return nil, fmt.Errorf("%w: unknown reranker %q", domain.ErrInvalidInput, kind)
	}
}

// ValidateEmbeddingConfig creates the embedding provider and pings it.
func ValidateEmbeddingConfig(settings *domain.EmbeddingSettings) error {
	svc, err := CreateEmbeddingProvider(settings)
	if err != nil {
		return err
	}
	defer svc.Close()

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := svc.Ping(ctx); err != nil {
		return fmt.Errorf("%w: service unreachable (%w)", domain.ErrEmbeddingUnavailable, err)
	}
	return nil
}

// ValidateLLMConfig creates the LLM adapter and pings it.
func ValidateLLMConfig(settings *domain.LLMSettings) error {
	svc, err := CreateGenerator(settings)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrLLMUnavailable, err)
	}
	if svc == nil {
		return fmt.Errorf("%w: set llm.provider and its API key", domain.ErrLLMUnavailable)
	}
	defer svc.Close()

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := svc.Ping(ctx); err != nil {
		return fmt.Errorf("%w: service unreachable (%w)", domain.ErrLLMUnavailable, err)
	}
	return nil
}

// Ensure ConfigValidator implements the interface.
var _ driven.AIConfigValidator = ConfigValidator{}

// ConfigValidator pings providers through ValidateEmbeddingConfig and
// ValidateLLMConfig.
type ConfigValidator struct{}

// ValidateEmbedding implements driven.AIConfigValidator.
func (ConfigValidator) ValidateEmbedding(config *domain.EmbeddingSettings) error {
	return ValidateEmbeddingConfig(config)
}

// ValidateLLM implements driven.AIConfigValidator.
func (ConfigValidator) ValidateLLM(config *domain.LLMSettings) error {
	return ValidateLLMConfig(config)
}
