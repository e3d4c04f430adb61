package domain

import (
	"fmt"
	"regexp"
)

// TenantID identifies a tenant ("company"). It is used verbatim as a path
// segment and object-key component, so it is restricted to a safe alphabet.
type TenantID string

var tenantPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// Validate checks the identifier is non-empty and path-safe.
func (t TenantID) Validate() error {
	if !tenantPattern.MatchString(string(t)) {
		return fmt.Errorf("%w: %q", ErrInvalidTenant, string(t))
	}
	return nil
}

// String returns the string representation.
func (t TenantID) String() string {
	return string(t)
}

// StorageName returns the directory or key prefix used for this tenant.
func (t TenantID) StorageName() string {
	return "company_" + string(t)
}

// TenantStats is a read-only view of a tenant's state.
// No invariant depends on it.
type TenantStats struct {
	Tenant         TenantID     `json:"company_id"`
	DocumentCount  int          `json:"document_count"`
	TotalSizeBytes int64        `json:"total_size_bytes"`
	IndexExists    bool         `json:"index_exists"`
	InCache        bool         `json:"in_cache"`
	LastBuild      *BuildRecord `json:"last_build,omitempty"`
}
