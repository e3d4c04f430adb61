// Package tui provides an interactive terminal interface for asking
// questions against one company's documents.
// It implements a driving adapter following hexagonal architecture principles.
package tui

import (
	"fmt"

	"github.com/custodia-labs/ragindex/internal/core/domain"
	"github.com/custodia-labs/ragindex/internal/core/ports/driving"
)

// Ports aggregates all driving port interfaces required by the TUI.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Query runs the ask pipeline.
	Query driving.QueryService

	// Index rebuilds the tenant's index from the documents view.
	Index driving.IndexService

	// Tenants lists and deletes documents.
	Tenants driving.TenantService

	// Principal is the identity the session runs as. The TUI is bound to
	// the principal's tenant.
	Principal domain.Principal
}

// NewPorts creates a new Ports aggregate with the given services.
func NewPorts(
	query driving.QueryService,
	index driving.IndexService,
	tenants driving.TenantService,
	principal domain.Principal,
) *Ports {
	return &Ports{
		Query:     query,
		Index:     index,
		Tenants:   tenants,
		Principal: principal,
	}
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p == nil {
		return ErrInvalidPorts
	}
	if p.Query == nil {
		return ErrMissingQueryService
	}
	if p.Tenants == nil {
		return ErrMissingTenantService
	}
	if err := p.Principal.Tenant.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidPorts, err)
	}
	return nil
}
