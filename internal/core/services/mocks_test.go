package services

import (
	"bytes"
	"context"
	"hash/fnv"
	"os"
	"strings"
	"sync"
	"testing"
	"unicode"

	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ragindex/internal/adapters/driven/rerank"
	"github.com/custodia-labs/ragindex/internal/adapters/driven/storage/indexstore"
	"github.com/custodia-labs/ragindex/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/ragindex/internal/adapters/driven/vectorindex"
	"github.com/custodia-labs/ragindex/internal/core/domain"
	"github.com/custodia-labs/ragindex/internal/core/ports/driven"
	"github.com/custodia-labs/ragindex/internal/logger"
	"github.com/custodia-labs/ragindex/internal/normalisers"
	"github.com/custodia-labs/ragindex/internal/postprocessors/chunker"
)

// hashEmbedder embeds text as a bag of hashed lowercase words, so texts
// sharing words land close together.
type hashEmbedder struct {
	dims  int
	model string

	mu    sync.Mutex
	calls int
	err   error
	gate  chan struct{}
}

var _ driven.Embedder = (*hashEmbedder)(nil)

func newHashEmbedder() *hashEmbedder {
	return &hashEmbedder{dims: 256, model: "hash-256"}
}

func (e *hashEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	e.mu.Lock()
	e.calls++
	err, gate := e.err, e.gate
	e.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}

	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec := make([]float32, e.dims)
		words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		})
		for _, w := range words {
			h := fnv.New32a()
			_, _ = h.Write([]byte(w))
			vec[h.Sum32()%uint32(e.dims)]++
		}
		out[i] = vec
	}
	return out, nil
}

func (e *hashEmbedder) setErr(err error) {
	e.mu.Lock()
	e.err = err
	e.mu.Unlock()
}

func (e *hashEmbedder) setGate(gate chan struct{}) {
	e.mu.Lock()
	e.gate = gate
	e.mu.Unlock()
}

func (e *hashEmbedder) callCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}

func (e *hashEmbedder) Dimensions() int              { return e.dims }
func (e *hashEmbedder) ModelName() string            { return e.model }
func (e *hashEmbedder) Ping(_ context.Context) error { return nil }
func (e *hashEmbedder) Close() error                 { return nil }

// stubGenerator returns a canned reply and records the last prompt.
type stubGenerator struct {
	mu     sync.Mutex
	reply  string
	err    error
	prompt string
	opts   driven.GenerateOptions
}

var _ driven.Generator = (*stubGenerator)(nil)

func (g *stubGenerator) Complete(_ context.Context, prompt string, opts driven.GenerateOptions) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.prompt = prompt
	g.opts = opts
	if g.err != nil {
		return "", g.err
	}
	return g.reply, nil
}

func (g *stubGenerator) lastPrompt() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.prompt
}

func (g *stubGenerator) ModelName() string            { return "stub" }
func (g *stubGenerator) Ping(_ context.Context) error { return nil }
func (g *stubGenerator) Close() error                 { return nil }

// stubPrompts serves fixed templates.
type stubPrompts struct {
	templates map[string]string
}

func (p *stubPrompts) Load(name string) (string, error) {
	if t, ok := p.templates[name]; ok {
		return t, nil
	}
	return "", domain.ErrNotFound
}

func (p *stubPrompts) Reload() {}

const testAnswerPrompt = "Reply in {{language}}.\nContext:\n{{context}}\nQuestion: {{question}}"

func newStubPrompts() *stubPrompts {
	return &stubPrompts{templates: map[string]string{driven.PromptAnswer: testAnswerPrompt}}
}

// syncBuffer is a log sink safe for concurrent writers.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// captureLogs routes log output to a buffer for the rest of the test.
func captureLogs(t *testing.T, verbose bool) *syncBuffer {
	t.Helper()
	buf := &syncBuffer{}
	logger.SetOutput(buf)
	logger.SetVerbose(verbose)
	t.Cleanup(func() {
		logger.SetVerbose(false)
		logger.SetOutput(os.Stderr)
	})
	return buf
}

// pipeline wires the core services over in-memory adapters.
type pipeline struct {
	source       *memory.DocumentSource
	blobs        *memory.BlobStore
	store        *indexstore.Store
	cache        *IndexCache
	embedder     *hashEmbedder
	generator    *stubGenerator
	catalogue    *memory.CatalogueStore
	orchestrator *Orchestrator
	query        *QueryService
	tenants      *TenantService
}

func newPipeline(t *testing.T) *pipeline {
	t.Helper()
	return newPipelineWithIndex(t, domain.IndexSettings{Kind: domain.IndexKindFlat})
}

// newPipelineWithIndex is newPipeline building indexes with settings.
func newPipelineWithIndex(t *testing.T, settings domain.IndexSettings) *pipeline {
	t.Helper()
	captureLogs(t, false)

	p := &pipeline{
		source:    memory.NewDocumentSource(),
		blobs:     memory.NewBlobStore(),
		embedder:  newHashEmbedder(),
		generator: &stubGenerator{reply: "  Paris.  "},
		catalogue: memory.NewCatalogueStore(),
	}
	p.store = indexstore.New(p.blobs)
	p.cache = NewIndexCache(p.store)

	p.orchestrator = NewOrchestrator(
		NewLoader(p.source, normalisers.NewDefaultRegistry()),
		chunker.New(chunker.WithChunkSize(200), chunker.WithOverlap(0)),
		p.embedder,
		vectorindex.NewBuilder(),
		p.store,
		p.cache,
		settings,
		true,
	)
	p.orchestrator.SetCatalogue(p.catalogue)

	p.query = NewQueryService(
		NewRetriever(p.cache, p.embedder),
		rerank.NewLexical(),
		NewAnswerGenerator(p.generator, newStubPrompts(), 0.7),
		domain.RetrievalSettings{K: 10, RerankTopN: 5},
		"French",
	)

	p.tenants = NewTenantService(p.source, p.store, p.cache, p.orchestrator)
	p.tenants.SetCatalogue(p.catalogue)

	t.Cleanup(p.orchestrator.Wait)
	return p
}

func (p *pipeline) put(t *testing.T, tenant domain.TenantID, name, content string) {
	t.Helper()
	_, err := p.source.Put(context.Background(), tenant, name, strings.NewReader(content))
	require.NoError(t, err)
}

// seedAcme stores three unrelated one-chunk documents for tenant acme.
func (p *pipeline) seedAcme(t *testing.T) {
	t.Helper()
	p.put(t, "acme", "paris.txt", "Paris is the capital of France.")
	p.put(t, "acme", "cooking.md", "# Recipes\n\nBoil pasta in salted water for ten minutes.")
	p.put(t, "acme", "leave.txt", "Employees receive twenty five days of paid leave per year.")
}
