package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/custodia-labs/ragindex/internal/core/domain"
	"github.com/custodia-labs/ragindex/internal/core/ports/driven"
	"github.com/custodia-labs/ragindex/internal/core/ports/driving"
	"github.com/custodia-labs/ragindex/internal/logger"
)

// Ensure TenantService implements the interface.
var _ driving.TenantService = (*TenantService)(nil)

// TenantService manages tenant documents and cache state.
type TenantService struct {
	source    driven.DocumentSource
	store     driven.IndexStore
	cache     *IndexCache
	indexer   driving.IndexService
	catalogue driven.CatalogueStore
}

// NewTenantService creates a tenant service.
// indexer may be nil, in which case uploads do not trigger rebuilds.
func NewTenantService(
	source driven.DocumentSource,
	store driven.IndexStore,
	cache *IndexCache,
	indexer driving.IndexService,
) *TenantService {
	return &TenantService{
		source:  source,
		store:   store,
		cache:   cache,
		indexer: indexer,
	}
}

// SetCatalogue enables last-build lookups in Stats and BuildHistory.
func (s *TenantService) SetCatalogue(c driven.CatalogueStore) {
	s.catalogue = c
}

// Upload stores a document and schedules a background rebuild.
func (s *TenantService) Upload(
	ctx context.Context, tenant domain.TenantID, name string, r io.Reader,
) (domain.DocumentInfo, error) {
	if err := tenant.Validate(); err != nil {
		return domain.DocumentInfo{}, err
	}
	name = filepath.Base(name)
	if !domain.IsUploadable(name) {
		return domain.DocumentInfo{}, fmt.Errorf("%w: %s: accepted types are .pdf, .docx, .txt and .md",
			domain.ErrUnsupportedType, name)
	}

	info, err := s.source.Put(ctx, tenant, name, r)
	if err != nil {
		return domain.DocumentInfo{}, err
	}
	logger.Tenant(tenant.String()).Info("uploaded %s (%d bytes)", info.Name, info.Size)

	s.scheduleRebuild(tenant)
	return info, nil
}

// Delete removes a document and schedules a background rebuild.
func (s *TenantService) Delete(ctx context.Context, tenant domain.TenantID, name string) error {
	if err := tenant.Validate(); err != nil {
		return err
	}
	if err := s.source.Remove(ctx, tenant, name); err != nil {
		return err
	}
	logger.Tenant(tenant.String()).Info("deleted %s", name)

	s.scheduleRebuild(tenant)
	return nil
}

func (s *TenantService) scheduleRebuild(tenant domain.TenantID) {
	if s.indexer == nil {
		return
	}
	s.indexer.RebuildAsync(tenant)
}

// ListDocuments returns the tenant's stored documents.
func (s *TenantService) ListDocuments(ctx context.Context, tenant domain.TenantID) ([]domain.DocumentInfo, error) {
	if err := tenant.Validate(); err != nil {
		return nil, err
	}
	return s.source.List(ctx, tenant)
}

// Stats summarises the tenant's documents and index state.
func (s *TenantService) Stats(ctx context.Context, tenant domain.TenantID) (*domain.TenantStats, error) {
	if err := tenant.Validate(); err != nil {
		return nil, err
	}

	docs, err := s.source.List(ctx, tenant)
	if err != nil {
		return nil, err
	}

	stats := &domain.TenantStats{
		Tenant:        tenant,
		DocumentCount: len(docs),
		InCache:       s.cache.Contains(tenant),
	}
	for _, d := range docs {
		stats.TotalSizeBytes += d.Size
	}

	exists, err := s.store.Exists(ctx, tenant)
	if err != nil {
		return nil, err
	}
	stats.IndexExists = exists

	if s.catalogue != nil {
		last, err := s.catalogue.LastBuild(ctx, tenant)
		switch {
		case err == nil:
			stats.LastBuild = last
		case errors.Is(err, domain.ErrNotFound):
		default:
			logger.Tenant(tenant.String()).Warn("last build lookup failed: %v", err)
		}
	}

	return stats, nil
}

// BuildHistory lists the tenant's recorded builds. Without a catalogue
// there is no history and the result is empty.
func (s *TenantService) BuildHistory(ctx context.Context, tenant domain.TenantID, limit int) ([]domain.BuildRecord, error) {
	if err := tenant.Validate(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		return nil, fmt.Errorf("%w: limit must be positive", domain.ErrInvalidInput)
	}
	if s.catalogue == nil {
		return []domain.BuildRecord{}, nil
	}
	return s.catalogue.ListBuilds(ctx, tenant, limit)
}

// ClearCache evicts cached indexes. An empty tenant clears every tenant.
// Persisted snapshots are kept and reload on the next query.
func (s *TenantService) ClearCache(_ context.Context, principal domain.Principal, tenant domain.TenantID) error {
	if !principal.IsAdmin() {
		return fmt.Errorf("%w: clearing the cache requires the admin role", domain.ErrForbidden)
	}

	if tenant == "" {
		n := len(s.cache.Tenants())
		s.cache.Clear()
		logger.Info("cleared cache for %d tenants", n)
		return nil
	}

	if err := tenant.Validate(); err != nil {
		return err
	}
	s.cache.Evict(tenant)
	logger.Tenant(tenant.String()).Info("cache cleared")
	return nil
}
