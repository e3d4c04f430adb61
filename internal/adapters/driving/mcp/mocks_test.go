package mcp

import (
	"context"
	"io"

	"github.com/custodia-labs/ragindex/internal/core/domain"
)

// mockQueryService is a mock implementation of driving.QueryService.
type mockQueryService struct {
	answer *domain.Answer
	chunks []domain.ScoredChunk
	err    error

	tenant domain.TenantID
	req    domain.AskRequest
	k      int
}

func (m *mockQueryService) Retrieve(_ context.Context, tenant domain.TenantID, _ string, k int) ([]domain.ScoredChunk, error) {
	m.tenant = tenant
	m.k = k
	return m.chunks, m.err
}

func (m *mockQueryService) Ask(_ context.Context, tenant domain.TenantID, req domain.AskRequest) (*domain.Answer, error) {
	m.tenant = tenant
	m.req = req
	return m.answer, m.err
}

// mockIndexService is a mock implementation of driving.IndexService.
type mockIndexService struct {
	status *domain.BuildStatus
	err    error
	tenant domain.TenantID
}

func (m *mockIndexService) Rebuild(_ context.Context, tenant domain.TenantID) (*domain.BuildStatus, error) {
	m.tenant = tenant
	return m.status, m.err
}

func (m *mockIndexService) RebuildAsync(tenant domain.TenantID) { m.tenant = tenant }

func (m *mockIndexService) Status(tenant domain.TenantID) domain.BuildStatus {
	return domain.BuildStatus{Tenant: tenant}
}

// mockTenantService is a mock implementation of driving.TenantService.
type mockTenantService struct {
	docs   []domain.DocumentInfo
	stats  *domain.TenantStats
	err    error
	tenant domain.TenantID
}

func (m *mockTenantService) Upload(_ context.Context, tenant domain.TenantID, name string, _ io.Reader) (domain.DocumentInfo, error) {
	m.tenant = tenant
	return domain.DocumentInfo{Name: name}, m.err
}

func (m *mockTenantService) Delete(_ context.Context, tenant domain.TenantID, _ string) error {
	m.tenant = tenant
	return m.err
}

func (m *mockTenantService) ListDocuments(_ context.Context, tenant domain.TenantID) ([]domain.DocumentInfo, error) {
	m.tenant = tenant
	return m.docs, m.err
}

func (m *mockTenantService) Stats(_ context.Context, tenant domain.TenantID) (*domain.TenantStats, error) {
	m.tenant = tenant
	return m.stats, m.err
}

func (m *mockTenantService) BuildHistory(context.Context, domain.TenantID, int) ([]domain.BuildRecord, error) {
	return nil, m.err
}

func (m *mockTenantService) ClearCache(_ context.Context, _ domain.Principal, tenant domain.TenantID) error {
	m.tenant = tenant
	return m.err
}

var (
	member = domain.Principal{Subject: "u1", Tenant: "acme", Role: domain.RoleMember}
	admin  = domain.Principal{Subject: "ops", Tenant: "acme", Role: domain.RoleAdmin}
)
