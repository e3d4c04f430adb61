package mcp

import (
	"github.com/custodia-labs/ragindex/internal/core/domain"
	"github.com/custodia-labs/ragindex/internal/core/ports/driving"
)

// Ports aggregates all driving port interfaces required by the MCP server.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Query answers questions and retrieves chunks.
	Query driving.QueryService

	// Index rebuilds tenant indexes. Optional; without it the rebuild tool
	// reports an error.
	Index driving.IndexService

	// Tenants serves stats and document listings. Optional.
	Tenants driving.TenantService

	// Principal is the identity every tool call runs as.
	Principal domain.Principal
}

// Validate ensures all required ports are set.
// Returns an error if any required port is nil.
func (p *Ports) Validate() error {
	if p.Query == nil {
		return ErrMissingQueryService
	}
	if p.Principal.Tenant == "" {
		return ErrMissingPrincipal
	}
	return nil
}

// tenantFor resolves the tenant a tool call targets. Members are confined
// to their own tenant; admins may name any tenant.
func (p *Ports) tenantFor(requested string) (domain.TenantID, error) {
	if requested == "" || domain.TenantID(requested) == p.Principal.Tenant {
		return p.Principal.Tenant, nil
	}
	if !p.Principal.IsAdmin() {
		return "", domain.ErrForbidden
	}
	tenant := domain.TenantID(requested)
	if err := tenant.Validate(); err != nil {
		return "", err
	}
	return tenant, nil
}
