// Package mcp provides an MCP (Model Context Protocol) server adapter for ragindex.
// It lets AI assistants ask questions over a tenant's documents and manage
// the tenant's index.
package mcp

import (
	"errors"
	"fmt"

	"github.com/custodia-labs/ragindex/internal/core/domain"
)

// ErrMissingQueryService is returned when the query service is not provided.
var ErrMissingQueryService = errors.New("mcp: query service is required")

// ErrMissingPrincipal is returned when the server has no caller identity.
var ErrMissingPrincipal = errors.New("mcp: principal is required")

// toolError prefixes err with its stable kind so clients can branch on it.
func toolError(err error) error {
	return fmt.Errorf("%s: %w", domain.KindOf(err), err)
}
