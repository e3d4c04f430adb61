package rerank

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/custodia-labs/ragindex/internal/core/domain"
	"github.com/custodia-labs/ragindex/internal/core/ports/driven"
	"github.com/custodia-labs/ragindex/internal/logger"
)

// Ensure LLM implements the interface.
var _ driven.Reranker = (*LLM)(nil)

// defaultMaxPassageChars bounds each passage in the rerank prompt.
const defaultMaxPassageChars = 1500

// LLM asks the generative model to score each candidate.
//
// The model must reply with {"ranked":[{"index":i,"score":s},...]} where i
// is the zero-based candidate index. Any generator failure, unparsable
// reply, unknown or repeated index, or too short a ranking fails the call
// with domain.ErrRerankFailed.
type LLM struct {
	generator       driven.Generator
	prompts         driven.PromptStore
	maxPassageChars int
}

// LLMOption configures the LLM reranker.
type LLMOption func(*LLM)

// WithMaxPassageChars truncates each passage in the prompt to n runes.
func WithMaxPassageChars(n int) LLMOption {
	return func(l *LLM) {
		if n > 0 {
			l.maxPassageChars = n
		}
	}
}

// NewLLM creates an LLM reranker.
func NewLLM(generator driven.Generator, prompts driven.PromptStore, opts ...LLMOption) *LLM {
	l := &LLM{
		generator:       generator,
		prompts:         prompts,
		maxPassageChars: defaultMaxPassageChars,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

type rankedReply struct {
	Ranked []struct {
		Index *int     `json:"index"`
		Score *float64 `json:"score"`
	} `json:"ranked"`
}

// Rerank scores candidates with one model call.
func (l *LLM) Rerank(ctx context.Context, query string, candidates []domain.ScoredChunk, topN int) ([]domain.ScoredChunk, error) {
	if topN <= 0 || len(candidates) == 0 {
		return []domain.ScoredChunk{}, nil
	}
	want := min(topN, len(candidates))

	tmpl, err := l.prompts.Load(driven.PromptRerank)
	if err != nil {
		return nil, fmt.Errorf("%w: load prompt: %w", domain.ErrRerankFailed, err)
	}
	prompt := strings.NewReplacer(
		"{{query}}", query,
		"{{passages}}", l.passages(candidates),
		"{{count}}", strconv.Itoa(want),
	).Replace(tmpl)

	reply, err := l.generator.Complete(ctx, prompt, driven.GenerateOptions{JSON: true, Temperature: 0})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrRerankFailed, err)
	}

	scores, err := parseRanking(reply, len(candidates))
	if err != nil {
		logger.Debug("rerank: unusable reply: %q", reply)
		return nil, fmt.Errorf("%w: %w", domain.ErrRerankFailed, err)
	}
	if len(scores) < want {
		return nil, fmt.Errorf("%w: model ranked %d passages, need %d", domain.ErrRerankFailed, len(scores), want)
	}

	out := make([]domain.ScoredChunk, 0, len(scores))
	for i, c := range candidates {
		if s, ok := scores[i]; ok {
			out = append(out, domain.ScoredChunk{Chunk: c.Chunk, Score: s})
		}
	}
	sortByScore(out)
	return out[:want], nil
}

// Name returns "llm".
func (l *LLM) Name() string {
	return string(domain.RerankerLLM)
}

func (l *LLM) passages(candidates []domain.ScoredChunk) string {
	var b strings.Builder
	for i, c := range candidates {
		text := strings.TrimSpace(c.Content)
		if r := []rune(text); len(r) > l.maxPassageChars {
			text = string(r[:l.maxPassageChars]) + "..."
		}
		fmt.Fprintf(&b, "[%d] %s\n\n", i, text)
	}
	return strings.TrimRight(b.String(), "\n")
}

// parseRanking extracts index → score from a model reply. Code fences and
// text around the JSON object are tolerated.
func parseRanking(reply string, n int) (map[int]float64, error) {
	start := strings.Index(reply, "{")
	end := strings.LastIndex(reply, "}")
	if start < 0 || end < start {
		return nil, fmt.Errorf("no JSON object in reply")
	}

	var parsed rankedReply
	if err := json.Unmarshal([]byte(reply[start:end+1]), &parsed); err != nil {
		return nil, fmt.Errorf("decode ranking: %w", err)
	}

	scores := make(map[int]float64, len(parsed.Ranked))
	for _, r := range parsed.Ranked {
		if r.Index == nil || r.Score == nil {
			return nil, fmt.Errorf("ranking entry without index or score")
		}
		idx := *r.Index
		if idx < 0 || idx >= n {
			return nil, fmt.Errorf("index %d out of range [0,%d)", idx, n)
		}
		if _, dup := scores[idx]; dup {
			return nil, fmt.Errorf("index %d ranked twice", idx)
		}
		scores[idx] = *r.Score
	}
	return scores, nil
}
