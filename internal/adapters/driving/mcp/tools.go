package mcp

import (
	"context"
	"errors"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/ragindex/internal/core/domain"
)

// AskInput is the input schema for the ask tool.
type AskInput struct {
	Question  string `json:"question" jsonschema:"the question to answer from the company's documents"`
	CompanyID string `json:"company_id,omitempty" jsonschema:"tenant to query (admins only; defaults to the caller's tenant)"`
	K         int    `json:"k,omitempty" jsonschema:"number of chunks to retrieve (default from settings)"`
	TopN      int    `json:"top_n,omitempty" jsonschema:"number of chunks kept after reranking (default from settings)"`
	Language  string `json:"language,omitempty" jsonschema:"language of the answer (default from settings)"`
}

// AskOutput is the output schema for the ask tool.
type AskOutput struct {
	Answer   string         `json:"answer"`
	Language string         `json:"language"`
	Sources  []SourceOutput `json:"sources"`
}

// RetrieveInput is the input schema for the retrieve tool.
type RetrieveInput struct {
	Query     string `json:"query" jsonschema:"text to find similar passages for"`
	CompanyID string `json:"company_id,omitempty" jsonschema:"tenant to query (admins only; defaults to the caller's tenant)"`
	K         int    `json:"k,omitempty" jsonschema:"maximum number of chunks to return (default 10)"`
}

// RetrieveOutput is the output schema for the retrieve tool.
type RetrieveOutput struct {
	Results []SourceOutput `json:"results"`
	Count   int            `json:"count"`
}

// SourceOutput is one chunk returned to the client.
type SourceOutput struct {
	ChunkID  string  `json:"chunk_id"`
	Document string  `json:"document"`
	Position int     `json:"position"`
	Score    float64 `json:"score"`
	Content  string  `json:"content"`
}

// TenantInput selects a tenant for rebuild and stats.
type TenantInput struct {
	CompanyID string `json:"company_id,omitempty" jsonschema:"tenant (admins only; defaults to the caller's tenant)"`
}

// RebuildOutput is the output schema for the rebuild tool.
type RebuildOutput struct {
	BuildID   string `json:"build_id"`
	Documents int    `json:"documents"`
	Chunks    int    `json:"chunks"`
}

const defaultRetrieveK = 10

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "ask",
		Description: "Answer a question using only the company's indexed documents",
	}, s.handleAsk)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "retrieve",
		Description: "Return the indexed passages most similar to a query",
	}, s.handleRetrieve)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "rebuild",
		Description: "Rebuild the company's index from its current documents",
	}, s.handleRebuild)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "stats",
		Description: "Report document counts and index state for the company",
	}, s.handleStats)
}

func (s *Server) handleAsk(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input AskInput,
) (*mcp.CallToolResult, AskOutput, error) {
	tenant, err := s.ports.tenantFor(input.CompanyID)
	if err != nil {
		return nil, AskOutput{}, toolError(err)
	}

	answer, err := s.ports.Query.Ask(ctx, tenant, domain.AskRequest{
		Question: input.Question,
		K:        input.K,
		TopN:     input.TopN,
		Language: input.Language,
	})
	if err != nil {
		return nil, AskOutput{}, toolError(err)
	}

	return nil, AskOutput{
		Answer:   answer.Text,
		Language: answer.Language,
		Sources:  toSources(answer.Sources),
	}, nil
}

func (s *Server) handleRetrieve(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input RetrieveInput,
) (*mcp.CallToolResult, RetrieveOutput, error) {
	tenant, err := s.ports.tenantFor(input.CompanyID)
	if err != nil {
		return nil, RetrieveOutput{}, toolError(err)
	}

	k := input.K
	if k <= 0 {
		k = defaultRetrieveK
	}

	chunks, err := s.ports.Query.Retrieve(ctx, tenant, input.Query, k)
	if err != nil {
		return nil, RetrieveOutput{}, toolError(err)
	}

	return nil, RetrieveOutput{
		Results: toSources(chunks),
		Count:   len(chunks),
	}, nil
}

func (s *Server) handleRebuild(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input TenantInput,
) (*mcp.CallToolResult, RebuildOutput, error) {
	if s.ports.Index == nil {
		return nil, RebuildOutput{}, errors.New("rebuild is not available on this server")
	}
	tenant, err := s.ports.tenantFor(input.CompanyID)
	if err != nil {
		return nil, RebuildOutput{}, toolError(err)
	}

	status, err := s.ports.Index.Rebuild(ctx, tenant)
	if err != nil {
		return nil, RebuildOutput{}, toolError(err)
	}

	return nil, RebuildOutput{
		BuildID:   status.BuildID,
		Documents: status.Documents,
		Chunks:    status.Chunks,
	}, nil
}

func (s *Server) handleStats(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input TenantInput,
) (*mcp.CallToolResult, domain.TenantStats, error) {
	if s.ports.Tenants == nil {
		return nil, domain.TenantStats{}, errors.New("stats are not available on this server")
	}
	tenant, err := s.ports.tenantFor(input.CompanyID)
	if err != nil {
		return nil, domain.TenantStats{}, toolError(err)
	}

	stats, err := s.ports.Tenants.Stats(ctx, tenant)
	if err != nil {
		return nil, domain.TenantStats{}, toolError(err)
	}
	return nil, *stats, nil
}

func toSources(chunks []domain.ScoredChunk) []SourceOutput {
	out := make([]SourceOutput, len(chunks))
	for i := range chunks {
		out[i] = SourceOutput{
			ChunkID:  chunks[i].ID,
			Document: chunks[i].DocumentName,
			Position: chunks[i].Position,
			Score:    chunks[i].Score,
			Content:  chunks[i].Content,
		}
	}
	return out
}
