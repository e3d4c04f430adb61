package tui

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ragindex/internal/core/domain"
)

// MockQueryService implements driving.QueryService for testing.
type MockQueryService struct {
	AskFunc func(ctx context.Context, tenant domain.TenantID, req domain.AskRequest) (*domain.Answer, error)
}

func (m *MockQueryService) Retrieve(
	context.Context, domain.TenantID, string, int,
) ([]domain.ScoredChunk, error) {
	return nil, nil
}

func (m *MockQueryService) Ask(
	ctx context.Context, tenant domain.TenantID, req domain.AskRequest,
) (*domain.Answer, error) {
	if m.AskFunc != nil {
		return m.AskFunc(ctx, tenant, req)
	}
	return &domain.Answer{Question: req.Question, Text: "Paris.", Sources: []domain.ScoredChunk{
		{Chunk: domain.Chunk{ID: "paris.txt#0", DocumentName: "paris.txt", Content: "Paris is the capital of France."}, Score: 1},
	}}, nil
}

// MockTenantService implements driving.TenantService for testing.
type MockTenantService struct {
	Docs []domain.DocumentInfo
}

func (m *MockTenantService) Upload(context.Context, domain.TenantID, string, io.Reader) (domain.DocumentInfo, error) {
	return domain.DocumentInfo{}, nil
}

func (m *MockTenantService) Delete(context.Context, domain.TenantID, string) error {
	return nil
}

func (m *MockTenantService) ListDocuments(context.Context, domain.TenantID) ([]domain.DocumentInfo, error) {
	return m.Docs, nil
}

func (m *MockTenantService) Stats(_ context.Context, tenant domain.TenantID) (*domain.TenantStats, error) {
	return &domain.TenantStats{Tenant: tenant, DocumentCount: len(m.Docs)}, nil
}

func (m *MockTenantService) BuildHistory(context.Context, domain.TenantID, int) ([]domain.BuildRecord, error) {
	return nil, nil
}

func (m *MockTenantService) ClearCache(context.Context, domain.Principal, domain.TenantID) error {
	return nil
}

// MockIndexService implements driving.IndexService for testing.
type MockIndexService struct{}

func (m *MockIndexService) Rebuild(_ context.Context, tenant domain.TenantID) (*domain.BuildStatus, error) {
	return &domain.BuildStatus{Tenant: tenant}, nil
}

func (m *MockIndexService) RebuildAsync(domain.TenantID) {}

func (m *MockIndexService) Status(tenant domain.TenantID) domain.BuildStatus {
	return domain.BuildStatus{Tenant: tenant}
}

var testPrincipal = domain.Principal{Subject: "alice", Tenant: "acme", Role: domain.RoleMember}

func TestNewPorts(t *testing.T) {
	query := &MockQueryService{}
	index := &MockIndexService{}
	tenants := &MockTenantService{}

	ports := NewPorts(query, index, tenants, testPrincipal)

	require.NotNil(t, ports)
	assert.Same(t, query, ports.Query)
	assert.Same(t, index, ports.Index)
	assert.Same(t, tenants, ports.Tenants)
	assert.Equal(t, testPrincipal, ports.Principal)
}

func TestPorts_Validate(t *testing.T) {
	tests := []struct {
		name  string
		ports *Ports
		want  error
	}{
		{
			name:  "all set",
			ports: NewPorts(&MockQueryService{}, &MockIndexService{}, &MockTenantService{}, testPrincipal),
		},
		{
			name:  "index is optional",
			ports: NewPorts(&MockQueryService{}, nil, &MockTenantService{}, testPrincipal),
		},
		{
			name:  "nil ports",
			ports: nil,
			want:  ErrInvalidPorts,
		},
		{
			name:  "missing query",
			ports: NewPorts(nil, &MockIndexService{}, &MockTenantService{}, testPrincipal),
			want:  ErrMissingQueryService,
		},
		{
			name:  "missing tenants",
			ports: NewPorts(&MockQueryService{}, &MockIndexService{}, nil, testPrincipal),
			want:  ErrMissingTenantService,
		},
		{
			name:  "missing tenant",
			ports: NewPorts(&MockQueryService{}, nil, &MockTenantService{}, domain.Principal{Subject: "alice"}),
			want:  ErrInvalidPorts,
		},
		{
			name:  "malformed tenant",
			ports: NewPorts(&MockQueryService{}, nil, &MockTenantService{}, domain.Principal{Tenant: "../etc"}),
			want:  domain.ErrInvalidTenant,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.ports.Validate()
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
}
