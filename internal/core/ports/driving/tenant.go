package driving

import (
	"context"
	"io"

	"github.com/custodia-labs/ragindex/internal/core/domain"
)

// TenantService manages a tenant's documents and cache state.
type TenantService interface {
	// Upload stores a document and schedules a rebuild.
	Upload(ctx context.Context, tenant domain.TenantID, name string, r io.Reader) (domain.DocumentInfo, error)

	// Delete removes a document and schedules a rebuild.
	Delete(ctx context.Context, tenant domain.TenantID, name string) error

	// ListDocuments returns the tenant's stored documents.
	ListDocuments(ctx context.Context, tenant domain.TenantID) ([]domain.DocumentInfo, error)

	// Stats returns document counts, sizes and index state.
	Stats(ctx context.Context, tenant domain.TenantID) (*domain.TenantStats, error)

	// BuildHistory returns up to limit past rebuilds, newest first.
	BuildHistory(ctx context.Context, tenant domain.TenantID, limit int) ([]domain.BuildRecord, error)

	// ClearCache evicts the tenant's cached index, or every tenant's when
	// tenant is empty. Requires an admin principal.
	ClearCache(ctx context.Context, principal domain.Principal, tenant domain.TenantID) error
}
