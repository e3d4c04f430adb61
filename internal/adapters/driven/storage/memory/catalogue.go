package memory

import (
	"cmp"
	"context"
	"slices"
	"sync"

	"github.com/custodia-labs/ragindex/internal/core/domain"
	"github.com/custodia-labs/ragindex/internal/core/ports/driven"
)

// Ensure CatalogueStore implements the interface.
var _ driven.CatalogueStore = (*CatalogueStore)(nil)

// CatalogueStore keeps build records in memory.
type CatalogueStore struct {
	mu     sync.RWMutex
	builds map[string]domain.BuildRecord
}

// NewCatalogueStore creates an empty catalogue.
func NewCatalogueStore() *CatalogueStore {
	return &CatalogueStore{builds: make(map[string]domain.BuildRecord)}
}

// RecordBuild inserts or replaces a build record.
func (s *CatalogueStore) RecordBuild(_ context.Context, rec domain.BuildRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.builds[rec.ID] = rec
	return nil
}

// LastBuild returns the most recently finished build of the tenant.
func (s *CatalogueStore) LastBuild(ctx context.Context, tenant domain.TenantID) (*domain.BuildRecord, error) {
	builds, _ := s.ListBuilds(ctx, tenant, 1)
	if len(builds) == 0 {
		return nil, domain.ErrNotFound
	}
	return &builds[0], nil
}

// ListBuilds returns up to limit builds, newest first.
func (s *CatalogueStore) ListBuilds(_ context.Context, tenant domain.TenantID, limit int) ([]domain.BuildRecord, error) {
	s.mu.RLock()
	var out []domain.BuildRecord
	for _, b := range s.builds {
		if b.Tenant == tenant {
			out = append(out, b)
		}
	}
	s.mu.RUnlock()

	slices.SortFunc(out, func(a, b domain.BuildRecord) int {
		if c := b.FinishedAt.Compare(a.FinishedAt); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Close is a no-op.
func (s *CatalogueStore) Close() error {
	return nil
}
