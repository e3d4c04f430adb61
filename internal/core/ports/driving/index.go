package driving

import (
	"context"

	"github.com/custodia-labs/ragindex/internal/core/domain"
)

// IndexService rebuilds tenant indexes.
type IndexService interface {
	// Rebuild fully replaces the tenant's index. Concurrent calls for the same
	// tenant share one execution.
	Rebuild(ctx context.Context, tenant domain.TenantID) (*domain.BuildStatus, error)

	// RebuildAsync starts a rebuild in the background and returns immediately.
	RebuildAsync(tenant domain.TenantID)

	// Status returns the state of the tenant's most recent rebuild.
	Status(tenant domain.TenantID) domain.BuildStatus
}
