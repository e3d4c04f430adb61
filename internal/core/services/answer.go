package services

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/custodia-labs/ragindex/internal/core/domain"
	"github.com/custodia-labs/ragindex/internal/core/ports/driven"
)

// AnswerGenerator asks the language model to answer a question from
// retrieved context only.
type AnswerGenerator struct {
	generator   driven.Generator
	prompts     driven.PromptStore
	temperature float64
}

// NewAnswerGenerator creates an answer generator. generator may be nil when
// no model is configured; Generate then fails with domain.ErrLLMUnavailable.
func NewAnswerGenerator(generator driven.Generator, prompts driven.PromptStore, temperature float64) *AnswerGenerator {
	return &AnswerGenerator{
		generator:   generator,
		prompts:     prompts,
		temperature: temperature,
	}
}

// Generate answers question in language from chunks, which become the
// answer's sources exactly as given.
func (g *AnswerGenerator) Generate(ctx context.Context, question string, chunks []domain.ScoredChunk, language string) (*domain.Answer, error) {
	if strings.TrimSpace(question) == "" {
		return nil, domain.ErrInvalidQuestion
	}
	if g.generator == nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrGenerationFailed, domain.ErrLLMUnavailable)
	}

	tmpl, err := g.prompts.Load(driven.PromptAnswer)
	if err != nil {
		return nil, fmt.Errorf("%w: load prompt: %w", domain.ErrGenerationFailed, err)
	}
	prompt := strings.NewReplacer(
		"{{language}}", language,
		"{{context}}", BuildContext(chunks),
		"{{question}}", question,
	).Replace(tmpl)

	text, err := g.generator.Complete(ctx, prompt, driven.GenerateOptions{Temperature: g.temperature})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrGenerationFailed, err)
	}

	return &domain.Answer{
		Question: question,
		Text:     strings.TrimSpace(text),
		Language: language,
		Sources:  chunks,
	}, nil
}

// BuildContext renders chunks as numbered blocks:
//
//	[1] (source: handbook.pdf) text of the first chunk
func BuildContext(chunks []domain.ScoredChunk) string {
	var b strings.Builder
	for i, c := range chunks {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteByte('[')
		b.WriteString(strconv.Itoa(i + 1))
		b.WriteString("] (source: ")
		b.WriteString(c.DocumentName)
		b.WriteString(") ")
		b.WriteString(strings.TrimSpace(c.Content))
	}
	return b.String()
}
