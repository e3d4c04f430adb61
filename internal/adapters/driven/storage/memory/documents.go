package memory

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/custodia-labs/ragindex/internal/core/domain"
	"github.com/custodia-labs/ragindex/internal/core/ports/driven"
)

// Ensure DocumentSource implements the interface.
var _ driven.DocumentSource = (*DocumentSource)(nil)

type storedDocument struct {
	data       []byte
	modifiedAt time.Time
}

// DocumentSource keeps tenant documents in memory.
type DocumentSource struct {
	mu      sync.RWMutex
	tenants map[domain.TenantID]map[string]storedDocument

	// ListErr, when set, is returned by List.
	ListErr error
}

// NewDocumentSource creates an empty document source.
func NewDocumentSource() *DocumentSource {
	return &DocumentSource{tenants: make(map[domain.TenantID]map[string]storedDocument)}
}

// List returns the tenant's documents sorted by name.
func (s *DocumentSource) List(ctx context.Context, tenant domain.TenantID) ([]domain.DocumentInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.ListErr != nil {
		return nil, s.ListErr
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	docs := s.tenants[tenant]
	out := make([]domain.DocumentInfo, 0, len(docs))
	for name, d := range docs {
		out = append(out, domain.DocumentInfo{
			Name:       name,
			Size:       int64(len(d.data)),
			MIMEType:   domain.DetectMIMEType(name),
			ModifiedAt: d.modifiedAt,
		})
	}
	slices.SortFunc(out, func(a, b domain.DocumentInfo) int {
		return strings.Compare(a.Name, b.Name)
	})
	return out, nil
}

// Open returns the stored bytes of one document.
func (s *DocumentSource) Open(ctx context.Context, tenant domain.TenantID, name string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, ok := s.tenants[tenant][name]
	if !ok {
		return nil, fmt.Errorf("document %s: %w", name, domain.ErrNotFound)
	}
	return io.NopCloser(bytes.NewReader(d.data)), nil
}

// Put stores a document, replacing any previous version.
func (s *DocumentSource) Put(ctx context.Context, tenant domain.TenantID, name string, r io.Reader) (domain.DocumentInfo, error) {
	if err := tenant.Validate(); err != nil {
		return domain.DocumentInfo{}, err
	}
	if err := domain.ValidateDocumentName(name); err != nil {
		return domain.DocumentInfo{}, err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return domain.DocumentInfo{}, fmt.Errorf("%w: read upload: %w", domain.ErrStorageFailure, err)
	}
	if err := ctx.Err(); err != nil {
		return domain.DocumentInfo{}, err
	}

	now := time.Now().UTC()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tenants[tenant] == nil {
		s.tenants[tenant] = make(map[string]storedDocument)
	}
	s.tenants[tenant][name] = storedDocument{data: data, modifiedAt: now}

	return domain.DocumentInfo{
		Name:       name,
		Size:       int64(len(data)),
		MIMEType:   domain.DetectMIMEType(name),
		ModifiedAt: now,
	}, nil
}

// Remove deletes a document.
func (s *DocumentSource) Remove(ctx context.Context, tenant domain.TenantID, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tenants[tenant][name]; !ok {
		return fmt.Errorf("document %s: %w", name, domain.ErrNotFound)
	}
	delete(s.tenants[tenant], name)
	return nil
}
