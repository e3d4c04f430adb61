package rerank

import (
	"context"
	"errors"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ragindex/internal/core/domain"
	"github.com/custodia-labs/ragindex/internal/core/ports/driven"
)

// mockGenerator returns a canned reply and records the prompt.
type mockGenerator struct {
	reply  string
	err    error
	prompt string
	opts   driven.GenerateOptions
}

func (m *mockGenerator) Complete(_ context.Context, prompt string, opts driven.GenerateOptions) (string, error) {
	m.prompt = prompt
	m.opts = opts
	return m.reply, m.err
}

func (m *mockGenerator) ModelName() string            { return "mock-llm" }
func (m *mockGenerator) Ping(_ context.Context) error { return nil }
func (m *mockGenerator) Close() error                 { return nil }

// mockPromptStore serves fixed templates.
type mockPromptStore struct {
	err error
}

func (m *mockPromptStore) Load(name string) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	return name + ": Q={{query}} N={{count}}\n{{passages}}", nil
}

func (m *mockPromptStore) Reload() {}

func candidates(texts ...string) []domain.ScoredChunk {
	out := make([]domain.ScoredChunk, len(texts))
	for i, t := range texts {
		out[i] = domain.ScoredChunk{
			Chunk: domain.Chunk{ID: "doc#" + strconv.Itoa(i), DocumentName: "doc", Position: i, Content: t},
			Score: float64(len(texts) - i),
		}
	}
	return out
}

func ids(chunks []domain.ScoredChunk) []string {
	out := make([]string, len(chunks))
	for i, c := range chunks {
		out[i] = c.ID
	}
	return out
}

func TestNone(t *testing.T) {
	in := candidates("a", "b", "c")
	r := NewNone()

	out, err := r.Rerank(t.Context(), "q", in, 2)
	require.NoError(t, err)
	assert.Equal(t, in[:2], out)
	assert.Equal(t, "none", r.Name())

	out, err = r.Rerank(t.Context(), "q", in, 10)
	require.NoError(t, err)
	assert.Len(t, out, 3)

	out, err = r.Rerank(t.Context(), "q", in, 0)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestLexical_RanksByTermOverlap(t *testing.T) {
	in := candidates(
		"Weather in Lyon stays mild.",
		"Paris is the capital of France.",
		"France exports wine and cheese.",
		"Nothing relevant here.",
	)
	r := NewLexical()

	out, err := r.Rerank(t.Context(), "What is the capital of France?", in, 2)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "doc#1", out[0].ID)
	assert.Equal(t, "doc#2", out[1].ID)
	assert.Greater(t, out[0].Score, out[1].Score)
	assert.Equal(t, in[1].Content, out[0].Content)
}

func TestLexical_TiesKeepRetrievalOrder(t *testing.T) {
	in := candidates("alpha", "beta", "gamma")

	out, err := NewLexical().Rerank(t.Context(), "unrelated words", in, 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"doc#0", "doc#1", "doc#2"}, ids(out))
	for _, c := range out {
		assert.Zero(t, c.Score)
	}
}

func TestLexical_Tokenize(t *testing.T) {
	assert.Equal(t, []string{"où", "est", "l", "hôtel", "42"}, tokenize("Où est l'hôtel? 42!"))
}

func TestLexical_DoesNotMutateInput(t *testing.T) {
	in := candidates("paris", "lyon")
	before := append([]domain.ScoredChunk(nil), in...)

	_, err := NewLexical().Rerank(t.Context(), "lyon", in, 2)
	require.NoError(t, err)
	assert.Equal(t, before, in)
}

func TestLLM_Rerank(t *testing.T) {
	gen := &mockGenerator{reply: "```json\n" + `{"ranked":[{"index":2,"score":0.9},{"index":0,"score":0.4},{"index":1,"score":0.1}]}` + "\n```"}
	r := NewLLM(gen, &mockPromptStore{})

	out, err := r.Rerank(t.Context(), "capital?", candidates("a", "b", "c"), 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"doc#2", "doc#0"}, ids(out))
	assert.InDelta(t, 0.9, out[0].Score, 1e-9)

	assert.True(t, gen.opts.JSON)
	assert.Contains(t, gen.prompt, "Q=capital?")
	assert.Contains(t, gen.prompt, "N=2")
	assert.Contains(t, gen.prompt, "[0] a")
	assert.Contains(t, gen.prompt, "[2] c")
	assert.Equal(t, "llm", r.Name())
}

func TestLLM_RerankTiesKeepInputOrder(t *testing.T) {
	gen := &mockGenerator{reply: `{"ranked":[{"index":1,"score":0.5},{"index":0,"score":0.5}]}`}

	out, err := NewLLM(gen, &mockPromptStore{}).Rerank(t.Context(), "q", candidates("a", "b"), 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"doc#0", "doc#1"}, ids(out))
}

func TestLLM_FailsClosed(t *testing.T) {
	tests := []struct {
		name  string
		reply string
		err   error
	}{
		{"generator error", "", errors.New("503")},
		{"not json", "I think passage 2 is best", nil},
		{"broken json", `{"ranked":[{"index":0,`, nil},
		{"index out of range", `{"ranked":[{"index":7,"score":1}]}`, nil},
		{"duplicate index", `{"ranked":[{"index":0,"score":1},{"index":0,"score":0.5}]}`, nil},
		{"missing score", `{"ranked":[{"index":0}]}`, nil},
		{"too few ranked", `{"ranked":[{"index":0,"score":1}]}`, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := &mockGenerator{reply: tt.reply, err: tt.err}
			out, err := NewLLM(gen, &mockPromptStore{}).Rerank(t.Context(), "q", candidates("a", "b", "c"), 2)
			require.ErrorIs(t, err, domain.ErrRerankFailed)
			assert.Nil(t, out)
		})
	}
}

func TestLLM_PromptStoreFailure(t *testing.T) {
	gen := &mockGenerator{}
	_, err := NewLLM(gen, &mockPromptStore{err: errors.New("disk")}).Rerank(t.Context(), "q", candidates("a"), 1)
	require.ErrorIs(t, err, domain.ErrRerankFailed)
	assert.Empty(t, gen.prompt)
}

func TestLLM_TruncatesLongPassages(t *testing.T) {
	gen := &mockGenerator{reply: `{"ranked":[{"index":0,"score":1}]}`}
	long := ""
	for range 50 {
		long += "word "
	}

	_, err := NewLLM(gen, &mockPromptStore{}, WithMaxPassageChars(10)).Rerank(t.Context(), "q", candidates(long), 1)
	require.NoError(t, err)
	assert.Contains(t, gen.prompt, "[0] word word ...")
}
