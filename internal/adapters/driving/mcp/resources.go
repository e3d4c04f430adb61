package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/ragindex/internal/core/domain"
)

const (
	// URIScheme is the custom URI scheme for ragindex resources.
	uriScheme = "ragindex://"
)

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "documents",
		Name:        "documents",
		Description: "Documents stored for the caller's company",
		MIMEType:    "application/json",
	}, s.handleDocumentsResource)

	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: uriScheme + "companies/{companyId}/documents",
		Name:        "company-documents",
		Description: "Documents stored for a specific company (admins only for other companies)",
		MIMEType:    "application/json",
	}, s.handleDocumentsResource)
}

// handleDocumentsResource lists a tenant's stored documents.
func (s *Server) handleDocumentsResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	if s.ports.Tenants == nil {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	requested := ""
	if req.Params.URI != uriScheme+"documents" {
		requested = extractCompanyID(req.Params.URI)
		if requested == "" {
			return nil, mcp.ResourceNotFoundError(req.Params.URI)
		}
	}

	tenant, err := s.ports.tenantFor(requested)
	if err != nil {
		return nil, toolError(err)
	}

	docs, err := s.ports.Tenants.ListDocuments(ctx, tenant)
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}
	if docs == nil {
		docs = []domain.DocumentInfo{}
	}

	data, err := json.MarshalIndent(docs, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling documents: %w", err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

// extractCompanyID extracts the tenant from a URI like ragindex://companies/{companyId}/documents.
func extractCompanyID(uri string) string {
	const prefix = uriScheme + "companies/"
	const suffix = "/documents"

	if !strings.HasPrefix(uri, prefix) {
		return ""
	}

	uri = strings.TrimPrefix(uri, prefix)
	if !strings.HasSuffix(uri, suffix) {
		return ""
	}

	return strings.TrimSuffix(uri, suffix)
}
